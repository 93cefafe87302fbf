// Package model defines the ESG record, sub-section and supplier profile types
// shared by the scoring engine, stores and transports.
package model

import (
	"time"
)

// Category names a top-level record section.
type Category string

// Categories.
const (
	CategoryCompanyInfo Category = "companyInfo"
	CategoryEnvironment Category = "environment"
	CategorySocial      Category = "social"
	CategoryQuality     Category = "quality"
	CategoryGovernance  Category = "governance"
)

// ScoredCategories lists the categories that carry sub-sections and feed the
// overall score, in presentation order.
var ScoredCategories = []Category{
	CategoryEnvironment,
	CategorySocial,
	CategoryQuality,
	CategoryGovernance,
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, bool) {
	switch c := Category(s); c {
	case CategoryCompanyInfo, CategoryEnvironment, CategorySocial, CategoryQuality, CategoryGovernance:
		return c, true
	}
	return "", false
}

// Status is the review lifecycle state of a record.
type Status string

// Record statuses.
const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusReviewed  Status = "reviewed"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// IsReviewOutcome reports whether s may be set by a review action.
func (s Status) IsReviewOutcome() bool {
	switch s {
	case StatusReviewed, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusSubmitted || s.IsReviewOutcome()
}

// Owner identifies the (user, company) pair that owns a record.
type Owner struct {
	UserID    string `json:"userId" yaml:"userId"`
	CompanyID string `json:"companyId" yaml:"companyId"`
}

// Validate checks that both halves of the key are present.
func (o Owner) Validate() error {
	if o.UserID == "" || o.CompanyID == "" {
		return InvalidInputf("owner requires user id and company id")
	}
	return nil
}

func (o Owner) String() string {
	return o.UserID + "/" + o.CompanyID
}

// CategoryData maps sub-section name to its stored data.
type CategoryData map[string]*Subsection

// OverallScore holds the per-category point averages and their mean.
type OverallScore struct {
	Environment float64 `json:"environment" yaml:"environment"`
	Social      float64 `json:"social" yaml:"social"`
	Quality     float64 `json:"quality" yaml:"quality"`
	Governance  float64 `json:"governance" yaml:"governance"`
	Total       float64 `json:"total" yaml:"total"`
}

// Get returns the score for a scored category.
func (o OverallScore) Get(c Category) float64 {
	switch c {
	case CategoryEnvironment:
		return o.Environment
	case CategorySocial:
		return o.Social
	case CategoryQuality:
		return o.Quality
	case CategoryGovernance:
		return o.Governance
	}
	return 0
}

// Set stores the score for a scored category. Other categories are ignored.
func (o *OverallScore) Set(c Category, v float64) {
	switch c {
	case CategoryEnvironment:
		o.Environment = v
	case CategorySocial:
		o.Social = v
	case CategoryQuality:
		o.Quality = v
	case CategoryGovernance:
		o.Governance = v
	}
}

// Record is the per-owner ESG self-assessment document.
type Record struct {
	ID              string       `json:"id" yaml:"id"`
	UserID          string       `json:"userId" yaml:"userId"`
	CompanyID       string       `json:"companyId" yaml:"companyId"`
	CompanyInfo     *Subsection  `json:"companyInfo,omitempty" yaml:"companyInfo,omitempty"`
	Environment     CategoryData `json:"environment,omitempty" yaml:"environment,omitempty"`
	Social          CategoryData `json:"social,omitempty" yaml:"social,omitempty"`
	Quality         CategoryData `json:"quality,omitempty" yaml:"quality,omitempty"`
	Governance      CategoryData `json:"governance,omitempty" yaml:"governance,omitempty"`
	OverallScore    OverallScore `json:"overallScore" yaml:"overallScore"`
	Status          Status       `json:"status" yaml:"status"`
	ReviewComments  string       `json:"reviewComments,omitempty" yaml:"reviewComments,omitempty"`
	StatusChangedAt *time.Time   `json:"statusChangedAt,omitempty" yaml:"statusChangedAt,omitempty"`
	Version         int64        `json:"version" yaml:"version"`
	LastUpdated     time.Time    `json:"lastUpdated" yaml:"lastUpdated"`
	CreatedAt       time.Time    `json:"createdAt" yaml:"createdAt"`
}

// NewRecord returns an empty draft record for owner.
func NewRecord(id string, owner Owner, now time.Time) *Record {
	return &Record{
		ID:          id,
		UserID:      owner.UserID,
		CompanyID:   owner.CompanyID,
		Status:      StatusDraft,
		LastUpdated: now,
		CreatedAt:   now,
	}
}

// Owner returns the record's owning key.
func (r *Record) Owner() Owner {
	return Owner{UserID: r.UserID, CompanyID: r.CompanyID}
}

// Category returns the sub-section mapping for a scored category, or nil.
func (r *Record) Category(c Category) CategoryData {
	switch c {
	case CategoryEnvironment:
		return r.Environment
	case CategorySocial:
		return r.Social
	case CategoryQuality:
		return r.Quality
	case CategoryGovernance:
		return r.Governance
	}
	return nil
}

// EnsureCategory returns the mapping for c, initializing it when absent.
func (r *Record) EnsureCategory(c Category) CategoryData {
	if data := r.Category(c); data != nil {
		return data
	}
	data := CategoryData{}
	switch c {
	case CategoryEnvironment:
		r.Environment = data
	case CategorySocial:
		r.Social = data
	case CategoryQuality:
		r.Quality = data
	case CategoryGovernance:
		r.Governance = data
	default:
		return nil
	}
	return data
}

// SetStatus changes the status and stamps the transition time.
func (r *Record) SetStatus(s Status, now time.Time) {
	r.Status = s
	t := now
	r.StatusChangedAt = &t
}
