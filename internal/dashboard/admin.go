package dashboard

import (
	"sort"
	"time"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/scoring"
)

// recentWindow bounds "recent submissions" in the admin summary.
const recentWindow = 30 * day

// trendMonths is the number of calendar months in the submission trend.
const trendMonths = 6

// MonthCount is one bucket of the submission trend.
type MonthCount struct {
	Name        string `json:"name"`
	Year        int    `json:"year"`
	Submissions int    `json:"submissions"`
}

// CategoryCount counts records with data in one category.
type CategoryCount struct {
	Category model.Category `json:"category"`
	Records  int            `json:"records"`
}

// RecordActivity is one entry of the admin activity feed.
type RecordActivity struct {
	RecordID  string    `json:"recordId"`
	UserID    string    `json:"userId"`
	CompanyID string    `json:"companyId"`
	Action    string    `json:"action"`
	At        time.Time `json:"at"`
	TimeAgo   string    `json:"timeAgo"`
}

// AdminSummary aggregates every record for the admin dashboard.
type AdminSummary struct {
	TotalRecords         int                  `json:"totalRecords"`
	StatusCounts         map[model.Status]int `json:"statusCounts"`
	PendingApprovals     int                  `json:"pendingApprovals"`
	RecentSubmissions    int                  `json:"recentSubmissions"`
	SubmissionTrend      []MonthCount         `json:"submissionTrend"`
	CategoryDistribution []CategoryCount      `json:"categoryDistribution"`
	RecentActivities     []RecordActivity     `json:"recentActivities"`
}

// Admin summarizes records as of the projector's clock.
func (p *Projector) Admin(records []*model.Record) AdminSummary {
	now := p.Now()
	sum := AdminSummary{
		TotalRecords:    len(records),
		StatusCounts:    map[model.Status]int{},
		SubmissionTrend: monthBuckets(now),
	}

	distribution := map[model.Category]int{}
	for _, rec := range records {
		sum.StatusCounts[rec.Status]++
		if rec.Status == model.StatusSubmitted {
			sum.PendingApprovals++
			if now.Sub(rec.LastUpdated) <= recentWindow {
				sum.RecentSubmissions++
			}
		}
		countMonth(sum.SubmissionTrend, rec.LastUpdated)
		for c := range populatedCategories(rec) {
			distribution[c]++
		}
	}

	sum.CategoryDistribution = append(sum.CategoryDistribution,
		CategoryCount{Category: model.CategoryCompanyInfo, Records: distribution[model.CategoryCompanyInfo]})
	for _, c := range model.ScoredCategories {
		sum.CategoryDistribution = append(sum.CategoryDistribution, CategoryCount{Category: c, Records: distribution[c]})
	}

	sum.RecentActivities = p.activities(records, now)
	return sum
}

func (p *Projector) activities(records []*model.Record, now time.Time) []RecordActivity {
	sorted := make([]*model.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastUpdated.After(sorted[j].LastUpdated)
	})
	if len(sorted) > p.RecentLimit {
		sorted = sorted[:p.RecentLimit]
	}
	out := make([]RecordActivity, 0, len(sorted))
	for _, rec := range sorted {
		out = append(out, RecordActivity{
			RecordID:  rec.ID,
			UserID:    rec.UserID,
			CompanyID: rec.CompanyID,
			Action:    ActionText(rec.Status),
			At:        rec.LastUpdated,
			TimeAgo:   TimeAgo(now, rec.LastUpdated),
		})
	}
	return out
}

// ActionText describes a record's latest activity from its status.
func ActionText(s model.Status) string {
	switch s {
	case model.StatusSubmitted:
		return "submitted ESG data for review"
	case model.StatusReviewed:
		return "had ESG data reviewed"
	case model.StatusApproved:
		return "had ESG data approved"
	case model.StatusRejected:
		return "had ESG data rejected"
	default:
		return "updated ESG data"
	}
}

// monthBuckets returns the last trendMonths calendar months, oldest first,
// ending with the month containing now.
func monthBuckets(now time.Time) []MonthCount {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]MonthCount, trendMonths)
	for i := range out {
		m := first.AddDate(0, i-(trendMonths-1), 0)
		out[i] = MonthCount{Name: m.Format("Jan"), Year: m.Year()}
	}
	return out
}

func countMonth(buckets []MonthCount, t time.Time) {
	t = t.UTC()
	name := t.Format("Jan")
	for i := range buckets {
		if buckets[i].Name == name && buckets[i].Year == t.Year() {
			buckets[i].Submissions++
			return
		}
	}
}

// populatedCategories reports the categories in which rec has any completed
// checklist entry.
func populatedCategories(rec *model.Record) map[model.Category]bool {
	out := map[model.Category]bool{}
	for c, pct := range scoring.RecordCompletion(rec) {
		if pct > 0 {
			out[c] = true
		}
	}
	return out
}
