package recommend

import (
	"math"
	"strings"

	"github.com/Veraticus/spice-insights/internal/model"
)

// maxRating is the top of the template rating scale.
const maxRating = 5.0

// ScoreTemplates ranks templates against a user profile. Only templates scoring
// above the policy minimum are returned, best first, capped to the policy's top N.
func (e *Engine) ScoreTemplates(profile model.UserProfile, templates []model.BudgetTemplate) model.TemplateRankings {
	rankings := make(model.TemplateRankings, 0, len(templates))
	for _, tmpl := range templates {
		rankings = append(rankings, e.ScoreTemplate(profile, tmpl))
	}
	return rankings.AboveThreshold(e.policy.TemplateMinScore).TopN(e.policy.TemplateTopN)
}

// ScoreTemplate scores one template in [0,1].
func (e *Engine) ScoreTemplate(profile model.UserProfile, tmpl model.BudgetTemplate) model.TemplateScore {
	w := e.policy.TemplateWeights

	rating := math.Min(tmpl.Usage.AvgRating/maxRating, 1)
	usage := 0.0
	if e.policy.TemplateUsageCap > 0 {
		usage = math.Min(float64(tmpl.Usage.TimesUsed)/float64(e.policy.TemplateUsageCap), 1)
	}
	quality := math.Max(0, rating)*w.Rating + usage*w.Usage

	overlap := categoryOverlap(profile.TopCategories, tmpl.Categories()) * w.Overlap

	total := tmpl.Metadata.TotalAmount
	if total == 0 {
		for _, b := range tmpl.Budgets {
			total += b.Amount
		}
	}
	sizeFit := sizeCompatibility(profile.TotalBudget, total) * w.Size

	return model.TemplateScore{
		Template: tmpl,
		Score:    math.Max(0, math.Min(1, quality+overlap+sizeFit)),
		Quality:  quality,
		Overlap:  overlap,
		SizeFit:  sizeFit,
	}
}

// categoryOverlap is |user ∩ template| / max(|user|, |template|), case-insensitive.
func categoryOverlap(userCategories []string, templateCategories map[string]bool) float64 {
	user := make(map[string]bool, len(userCategories))
	for _, c := range userCategories {
		user[normalize(c)] = true
	}
	tmpl := make(map[string]bool, len(templateCategories))
	for c := range templateCategories {
		tmpl[normalize(c)] = true
	}

	denom := math.Max(float64(len(user)), float64(len(tmpl)))
	if denom == 0 {
		return 0
	}
	shared := 0
	for c := range user {
		if tmpl[c] {
			shared++
		}
	}
	return float64(shared) / denom
}

// sizeCompatibility is 1 minus the relative difference of the two totals, floored at 0.
func sizeCompatibility(userTotal, templateTotal float64) float64 {
	larger := math.Max(userTotal, templateTotal)
	if larger <= 0 {
		return 0
	}
	diff := math.Abs(userTotal-templateTotal) / larger
	return math.Max(0, 1-diff)
}

func normalize(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
