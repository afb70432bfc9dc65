package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/spice-insights/internal/cli"
	"github.com/Veraticus/spice-insights/internal/engine"
	"github.com/Veraticus/spice-insights/internal/model"
)

// minForecastConfidence is the confidence below which a forecast is not shown.
const minForecastConfidence = 0.3

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderAnalysis(a *engine.Analysis) string {
	var b strings.Builder

	b.WriteString(cli.FormatTitle(fmt.Sprintf("Spending for the last %s", a.Timeframe)))
	b.WriteString("\n")

	if a.Summary.Count == 0 {
		b.WriteString(cli.FormatInfo("No spending in this timeframe"))
		b.WriteString("\n")
	} else {
		rows := make([][]string, 0, len(a.Summary.ByCategory))
		for _, cs := range a.Summary.Categories() {
			rows = append(rows, []string{
				cs.Category,
				fmt.Sprintf("%d", cs.Count),
				cli.FormatAmount(cs.Total),
				cli.FormatAmount(cs.Mean),
				cli.FormatPercent(cs.Volatility),
			})
		}
		b.WriteString(cli.RenderTable([]string{"Category", "Count", "Total", "Average", "Volatility"}, rows))
		b.WriteString(fmt.Sprintf("\nTotal: %s\n", cli.BoldStyle.Render(cli.FormatAmount(a.Summary.Total))))
	}

	if len(a.Progress) > 0 {
		b.WriteString("\n")
		rows := make([][]string, 0, len(a.Progress))
		for _, p := range a.Progress {
			rows = append(rows, []string{
				p.Budget.Category,
				cli.FormatAmount(p.Spent),
				cli.FormatAmount(p.Budget.Amount),
				cli.FormatPercent(p.Usage),
				cli.FormatStatus(p.Status),
			})
		}
		b.WriteString(cli.RenderTable([]string{"Budget", "Spent", "Limit", "Used", "Status"}, rows))
		b.WriteString("\n")
	}

	if len(a.Anomalies) > 0 {
		b.WriteString("\n")
		b.WriteString(cli.FormatWarning(fmt.Sprintf("%d unusual transactions", len(a.Anomalies))))
		b.WriteString("\n")
		for _, an := range a.Anomalies {
			b.WriteString(fmt.Sprintf("  %s %s %s (%s, z=%.1f)\n",
				an.Transaction.Date.Format("2006-01-02"),
				an.Transaction.Description,
				cli.FormatAmount(an.Transaction.Amount),
				an.Transaction.Category,
				an.ZScore))
		}
	}

	if len(a.Recommendations) > 0 {
		b.WriteString("\n")
		b.WriteString(cli.BoldStyle.Render("Recommendations"))
		b.WriteString("\n")
		for _, r := range a.Recommendations {
			b.WriteString(fmt.Sprintf("%s %s\n  %s\n", cli.FormatPriority(r.Priority), r.Title, r.Message))
		}
	}

	b.WriteString("\n")
	b.WriteString(renderForecast(a.Forecast))
	return b.String()
}

func renderForecast(f model.Forecast) string {
	subject := "all spending"
	if f.Category != nil {
		subject = *f.Category
	}

	if f.Method == model.MethodNone || f.Confidence < minForecastConfidence {
		return cli.FormatInfo(fmt.Sprintf("Not enough data to forecast %s", subject)) + "\n"
	}

	content := fmt.Sprintf("Next month: %s (%s)\nRange: %s to %s\nConfidence: %s, %s from %d months",
		cli.BoldStyle.Render(cli.FormatAmount(f.Prediction)),
		f.Trend,
		cli.FormatAmount(f.Scenarios.Optimistic),
		cli.FormatAmount(f.Scenarios.Pessimistic),
		cli.FormatPercent(f.Confidence),
		f.Method,
		f.DataPoints)
	return cli.RenderBox("Forecast: "+subject, content) + "\n"
}

func renderSplit(category string, s *model.SplitSuggestion) string {
	if s == nil {
		return cli.FormatInfo(fmt.Sprintf("No useful way to split %s yet", category)) + "\n"
	}

	rows := make([][]string, 0, len(s.Clusters))
	for _, c := range s.Clusters {
		rows = append(rows, []string{
			c.SuggestedName,
			fmt.Sprintf("%d", len(c.Transactions)),
			cli.FormatAmount(c.TotalAmount),
			cli.FormatPercent(c.Confidence),
		})
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle("Suggested split for " + category))
	b.WriteString("\n")
	b.WriteString(cli.RenderTable([]string{"Sub-category", "Transactions", "Total", "Confidence"}, rows))
	b.WriteString("\n")
	if s.Unclustered > 0 {
		b.WriteString(fmt.Sprintf("%d transactions stay in %s\n", s.Unclustered, category))
	}
	return b.String()
}

func renderRankings(rankings model.TemplateRankings) string {
	if len(rankings) == 0 {
		return cli.FormatInfo("No templates fit your profile yet") + "\n"
	}
	rows := make([][]string, 0, len(rankings))
	for _, r := range rankings {
		rows = append(rows, []string{
			r.Template.ID,
			r.Template.Name,
			cli.FormatPercent(r.Score),
			cli.FormatAmount(r.Template.Metadata.TotalAmount),
		})
	}
	best := rankings.Top()
	return cli.RenderTable([]string{"ID", "Template", "Match", "Total"}, rows) + "\n" +
		cli.FormatInfo(fmt.Sprintf("Best fit: %s (%s)", best.Template.Name, best.Template.ID)) + "\n"
}
