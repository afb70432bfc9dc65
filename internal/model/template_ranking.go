package model

import (
	"fmt"
	"sort"
)

// TemplateScore is how well a budget template fits a user profile.
type TemplateScore struct {
	Template BudgetTemplate `json:"template"`
	Score    float64        `json:"score"`
	Quality  float64        `json:"quality"`  // Rating and usage contribution
	Overlap  float64        `json:"overlap"`  // Category overlap contribution
	SizeFit  float64        `json:"size_fit"` // Budget size compatibility contribution
}

// Validate ensures the TemplateScore has valid data.
func (s *TemplateScore) Validate() error {
	if s.Template.ID == "" {
		return fmt.Errorf("template ID is required")
	}

	if s.Score < 0.0 || s.Score > 1.0 {
		return fmt.Errorf("score must be between 0.0 and 1.0, got %.2f", s.Score)
	}

	return nil
}

// TemplateRankings is a slice of TemplateScore that supports sorting and utility methods.
type TemplateRankings []TemplateScore

// Len implements sort.Interface.
func (r TemplateRankings) Len() int {
	return len(r)
}

// Less implements sort.Interface - higher scores come first.
func (r TemplateRankings) Less(i, j int) bool {
	if r[i].Score != r[j].Score {
		return r[i].Score > r[j].Score
	}
	// Equal scores fall back to name, then ID, for a stable presentation order
	if r[i].Template.Name != r[j].Template.Name {
		return r[i].Template.Name < r[j].Template.Name
	}
	return r[i].Template.ID < r[j].Template.ID
}

// Swap implements sort.Interface.
func (r TemplateRankings) Swap(i, j int) {
	r[i], r[j] = r[j], r[i]
}

// Sort sorts the rankings by score in descending order.
func (r TemplateRankings) Sort() {
	sort.Sort(r)
}

// Top returns the highest-scoring template, or nil if empty.
func (r TemplateRankings) Top() *TemplateScore {
	if len(r) == 0 {
		return nil
	}
	r.Sort()
	return &r[0]
}

// TopN returns the N highest-scoring templates.
func (r TemplateRankings) TopN(n int) TemplateRankings {
	if n <= 0 {
		return TemplateRankings{}
	}

	r.Sort()

	if n > len(r) {
		n = len(r)
	}

	result := make(TemplateRankings, n)
	copy(result, r[:n])
	return result
}

// AboveThreshold returns all templates scoring strictly above the threshold.
func (r TemplateRankings) AboveThreshold(threshold float64) TemplateRankings {
	r.Sort()

	result := TemplateRankings{}
	for _, ranking := range r {
		if ranking.Score > threshold {
			result = append(result, ranking)
		}
	}
	return result
}

// Validate ensures all rankings in the slice are valid.
func (r TemplateRankings) Validate() error {
	seen := make(map[string]bool)

	for i, ranking := range r {
		if err := ranking.Validate(); err != nil {
			return fmt.Errorf("invalid ranking at index %d: %w", i, err)
		}

		if seen[ranking.Template.ID] {
			return fmt.Errorf("duplicate template %q in rankings", ranking.Template.ID)
		}
		seen[ranking.Template.ID] = true
	}

	return nil
}
