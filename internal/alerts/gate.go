package alerts

import (
	"sync"
	"time"

	"github.com/Veraticus/spice-insights/internal/config"
	"github.com/Veraticus/spice-insights/internal/model"
)

// Suppression reasons reported by the gate.
const (
	ReasonCategoryDisabled = "category_disabled"
	ReasonQuietHours       = "quiet_hours"
	ReasonRateLimited      = "rate_limited"
	ReasonDuplicate        = "duplicate"
)

type sentRecord struct {
	at    time.Time
	id    string
	title string
	typ   model.AlertType
}

// Gate decides whether an alert may be delivered now. Checks run in order:
// category opt-in, quiet hours (high priority bypasses), per-type rate limit
// over a rolling window, then deduplication against recent deliveries.
type Gate struct {
	clock       func() time.Time
	limits      map[model.AlertType]int
	sent        []sentRecord
	prefs       model.Preferences
	window      time.Duration
	dedupWindow time.Duration
	mu          sync.Mutex
}

// NewGate creates a gate from policy and the user's preferences.
func NewGate(policy config.PolicyConfig, prefs model.Preferences) *Gate {
	limits := make(map[model.AlertType]int, len(policy.RateLimits))
	for typ, n := range policy.RateLimits {
		limits[typ] = n
	}
	return &Gate{
		clock:       time.Now,
		limits:      limits,
		prefs:       prefs,
		window:      policy.RateLimitWindow,
		dedupWindow: policy.DedupWindow,
	}
}

// Check returns "" when alert may be delivered, otherwise the reason it is suppressed.
func (g *Gate) Check(alert *model.Alert) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	g.prune(now)

	if !g.prefs.CategoryEnabled(alert.Category) {
		return ReasonCategoryDisabled
	}
	if alert.Priority != model.PriorityHigh && g.prefs.QuietHours.Active(now.Hour()) {
		return ReasonQuietHours
	}
	if limit, ok := g.limits[alert.Type]; ok && g.countSince(alert.Type, now.Add(-g.window)) >= limit {
		return ReasonRateLimited
	}
	if g.isDuplicate(alert, now.Add(-g.dedupWindow)) {
		return ReasonDuplicate
	}
	return ""
}

// Record notes that alert was delivered, counting it toward rate limits and dedup.
func (g *Gate) Record(alert *model.Alert) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, sentRecord{
		at:    g.clock(),
		id:    alert.ID,
		title: alert.Title,
		typ:   alert.Type,
	})
}

// Restore seeds the gate with previously delivered alerts, e.g. from history.
func (g *Gate) Restore(history []model.Alert) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range history {
		g.sent = append(g.sent, sentRecord{at: a.CreatedAt, id: a.ID, title: a.Title, typ: a.Type})
	}
	g.prune(g.clock())
}

func (g *Gate) countSince(typ model.AlertType, since time.Time) int {
	n := 0
	for _, r := range g.sent {
		if r.typ == typ && r.at.After(since) {
			n++
		}
	}
	return n
}

func (g *Gate) isDuplicate(alert *model.Alert, since time.Time) bool {
	for _, r := range g.sent {
		if !r.at.After(since) {
			continue
		}
		if (alert.ID != "" && r.id == alert.ID) || (r.typ == alert.Type && r.title == alert.Title) {
			return true
		}
	}
	return false
}

// prune drops records too old to affect any check.
func (g *Gate) prune(now time.Time) {
	horizon := g.window
	if g.dedupWindow > horizon {
		horizon = g.dedupWindow
	}
	cutoff := now.Add(-horizon)

	kept := g.sent[:0]
	for _, r := range g.sent {
		if r.at.After(cutoff) {
			kept = append(kept, r)
		}
	}
	g.sent = kept
}
