package model

import (
	"math"
	"strings"
	"time"
)

// PlaceholderCompanyName is used when a profile is created before the
// supplier has entered any details.
const PlaceholderCompanyName = "Company Name"

// PlaceholderContactPerson stands in for a missing contact name.
const PlaceholderContactPerson = "Contact Person"

// ESGScores is the coarse per-category summary kept on a supplier profile.
// Every value is clamped to [0, 100].
type ESGScores struct {
	Environmental float64 `json:"environmental" yaml:"environmental"`
	Social        float64 `json:"social" yaml:"social"`
	Quality       float64 `json:"quality" yaml:"quality"`
	Governance    float64 `json:"governance" yaml:"governance"`
	Overall       float64 `json:"overall" yaml:"overall"`
}

// ESGScoresPatch carries a partial score update. Nil fields are left as is.
type ESGScoresPatch struct {
	Environmental *float64 `json:"environmental,omitempty"`
	Social        *float64 `json:"social,omitempty"`
	Quality       *float64 `json:"quality,omitempty"`
	Governance    *float64 `json:"governance,omitempty"`
}

// Apply merges p into s, clamps each value and recomputes Overall as the
// rounded mean of the four category scores.
func (s *ESGScores) Apply(p ESGScoresPatch) {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = ClampScore(*v)
		}
	}
	set(&s.Environmental, p.Environmental)
	set(&s.Social, p.Social)
	set(&s.Quality, p.Quality)
	set(&s.Governance, p.Governance)
	s.Overall = math.Round((s.Environmental + s.Social + s.Quality + s.Governance) / 4)
}

// ClampScore bounds v to [0, 100].
func ClampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// FormSubmission is the coarse workflow flag for one category form.
type FormSubmission struct {
	Submitted   bool       `json:"submitted" yaml:"submitted"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
}

// SupplierProfile holds contact metadata and score summaries for one supplier user.
type SupplierProfile struct {
	ID              string                      `json:"id" yaml:"id"`
	UserID          string                      `json:"userId" yaml:"userId"`
	CompanyName     string                      `json:"companyName" yaml:"companyName"`
	ContactPerson   string                      `json:"contactPerson" yaml:"contactPerson"`
	Phone           string                      `json:"phone,omitempty" yaml:"phone,omitempty"`
	Address         string                      `json:"address,omitempty" yaml:"address,omitempty"`
	Industry        string                      `json:"industry,omitempty" yaml:"industry,omitempty"`
	Description     string                      `json:"description,omitempty" yaml:"description,omitempty"`
	Website         string                      `json:"website,omitempty" yaml:"website,omitempty"`
	ESGScores       ESGScores                   `json:"esgScores" yaml:"esgScores"`
	FormSubmissions map[Category]FormSubmission `json:"formSubmissions" yaml:"formSubmissions"`
	Version         int64                       `json:"version" yaml:"version"`
	CreatedAt       time.Time                   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt       time.Time                   `json:"updatedAt" yaml:"updatedAt"`
}

// NewSupplierProfile returns a placeholder profile for userID, with every
// scored category form marked as not submitted.
func NewSupplierProfile(id, userID, contactPerson string, now time.Time) *SupplierProfile {
	subs := make(map[Category]FormSubmission, len(ScoredCategories))
	for _, c := range ScoredCategories {
		subs[c] = FormSubmission{}
	}
	return &SupplierProfile{
		ID:              id,
		UserID:          userID,
		CompanyName:     PlaceholderCompanyName,
		ContactPerson:   orPlaceholder(contactPerson),
		FormSubmissions: subs,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ProfileDetails is a partial update of the descriptive profile fields.
// Nil fields are left unchanged.
type ProfileDetails struct {
	CompanyName   *string `json:"companyName,omitempty"`
	ContactPerson *string `json:"contactPerson,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Address       *string `json:"address,omitempty"`
	Industry      *string `json:"industry,omitempty"`
	Description   *string `json:"description,omitempty"`
	Website       *string `json:"website,omitempty"`
}

// Apply copies the non-nil fields of d onto p. A blank contact person falls
// back to the placeholder.
func (d ProfileDetails) Apply(p *SupplierProfile) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&p.CompanyName, d.CompanyName)
	set(&p.ContactPerson, d.ContactPerson)
	set(&p.Phone, d.Phone)
	set(&p.Address, d.Address)
	set(&p.Industry, d.Industry)
	set(&p.Description, d.Description)
	set(&p.Website, d.Website)
	p.ContactPerson = orPlaceholder(p.ContactPerson)
}

func orPlaceholder(contact string) string {
	if strings.TrimSpace(contact) == "" {
		return PlaceholderContactPerson
	}
	return contact
}
