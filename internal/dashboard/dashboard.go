// Package dashboard projects ESG records into read-only summary views for
// suppliers and administrators.
package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
	"github.com/sells-group/esg-cli/internal/scoring"
)

// DefaultRecentLimit is the number of activity entries kept in a summary.
const DefaultRecentLimit = 5

// ActivityKind distinguishes data edits from status transitions.
type ActivityKind string

// Activity kinds.
const (
	ActivitySection ActivityKind = "section"
	ActivityStatus  ActivityKind = "status"
)

// Activity is one entry of the recent-updates feed.
type Activity struct {
	Kind       ActivityKind   `json:"kind"`
	Category   model.Category `json:"category,omitempty"`
	Subsection string         `json:"subsection,omitempty"`
	Status     model.Status   `json:"status,omitempty"`
	At         time.Time      `json:"at"`
	TimeAgo    string         `json:"timeAgo"`
}

// Summary is the supplier-facing dashboard view of one record.
type Summary struct {
	RecordID      string                 `json:"recordId"`
	Status        model.Status           `json:"status"`
	Scores        model.OverallScore     `json:"scores"`
	Completion    map[model.Category]int `json:"completion"`
	RecentUpdates []Activity             `json:"recentUpdates"`
}

// Projector builds dashboard views.
type Projector struct {
	RecentLimit int
	Now         func() time.Time
}

// NewProjector returns a Projector keeping limit recent entries.
func NewProjector(limit int) *Projector {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	return &Projector{RecentLimit: limit, Now: func() time.Time { return time.Now().UTC() }}
}

// Project summarizes rec: completion per category, rounded scores and the
// most recent sub-section and status activity.
func (p *Projector) Project(rec *model.Record) Summary {
	now := p.Now()
	return Summary{
		RecordID:      rec.ID,
		Status:        rec.Status,
		Scores:        roundScores(rec.OverallScore),
		Completion:    scoring.RecordCompletion(rec),
		RecentUpdates: p.recent(rec, now),
	}
}

func (p *Projector) recent(rec *model.Record, now time.Time) []Activity {
	var out []Activity
	add := func(a Activity) {
		if a.At.IsZero() {
			return
		}
		a.TimeAgo = TimeAgo(now, a.At)
		out = append(out, a)
	}

	if rec.CompanyInfo != nil {
		add(Activity{
			Kind:       ActivitySection,
			Category:   model.CategoryCompanyInfo,
			Subsection: registry.CompanyInfoSection,
			At:         rec.CompanyInfo.LastUpdated,
		})
	}
	for _, c := range model.ScoredCategories {
		for name, s := range rec.Category(c) {
			if s == nil || registry.Validate(c, name) != nil {
				continue
			}
			add(Activity{Kind: ActivitySection, Category: c, Subsection: name, At: s.LastUpdated})
		}
	}
	if rec.StatusChangedAt != nil {
		add(Activity{Kind: ActivityStatus, Status: rec.Status, At: *rec.StatusChangedAt})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.After(out[j].At)
		}
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Subsection < out[j].Subsection
	})
	if len(out) > p.RecentLimit {
		out = out[:p.RecentLimit]
	}
	return out
}

func roundScores(s model.OverallScore) model.OverallScore {
	r := func(v float64) float64 { return math.Round(v*100) / 100 }
	return model.OverallScore{
		Environment: r(s.Environment),
		Social:      r(s.Social),
		Quality:     r(s.Quality),
		Governance:  r(s.Governance),
		Total:       r(s.Total),
	}
}
