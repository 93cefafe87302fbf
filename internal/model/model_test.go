package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseCategory(t *testing.T) {
	for _, name := range []string{"companyInfo", "environment", "social", "quality", "governance"} {
		c, ok := ParseCategory(name)
		assert.True(t, ok, name)
		assert.Equal(t, Category(name), c)
	}
	_, ok := ParseCategory("finance")
	assert.False(t, ok)
}

func TestStatus_IsReviewOutcome(t *testing.T) {
	assert.True(t, StatusReviewed.IsReviewOutcome())
	assert.True(t, StatusApproved.IsReviewOutcome())
	assert.True(t, StatusRejected.IsReviewOutcome())
	assert.False(t, StatusDraft.IsReviewOutcome())
	assert.False(t, StatusSubmitted.IsReviewOutcome())
	assert.True(t, StatusSubmitted.Valid())
	assert.False(t, Status("archived").Valid())
}

func TestOwner_Validate(t *testing.T) {
	assert.NoError(t, Owner{UserID: "u1", CompanyID: "c1"}.Validate())

	err := Owner{UserID: "u1"}.Validate()
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInvalidInput))
}

func TestSubsection_JSONFlat(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := Subsection{
		Fields:      map[string]any{"value": "50", "certificate": "cert.pdf"},
		Points:      20,
		Remarks:     "ok",
		LastUpdated: ts,
	}

	b, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "50", raw["value"])
	assert.Equal(t, float64(20), raw["points"])
	assert.Equal(t, "ok", raw["remarks"])
	assert.Equal(t, "2026-03-01T12:00:00Z", raw["lastUpdated"])

	var back Subsection
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, s.Fields, back.Fields)
	assert.Equal(t, 20.0, back.Points)
	assert.True(t, ts.Equal(back.LastUpdated))
	assert.NotContains(t, back.Fields, "points")
}

func TestSubsection_UnmarshalBadTimestamp(t *testing.T) {
	var s Subsection
	err := json.Unmarshal([]byte(`{"lastUpdated":"yesterday"}`), &s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse lastUpdated")
}

func TestSubsection_UnmarshalYAML(t *testing.T) {
	doc := `
value: 50
certificate: cert.pdf
scopeEmissions:
  scope1: "3"
points: 15
lastUpdated: 2026-03-01T12:00:00Z
`
	var s Subsection
	require.NoError(t, yaml.Unmarshal([]byte(doc), &s))
	assert.Equal(t, float64(50), s.Fields["value"])
	assert.Equal(t, map[string]any{"scope1": "3"}, s.Fields["scopeEmissions"])
	assert.Equal(t, 15.0, s.Points)
	assert.True(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Equal(s.LastUpdated))
}

func TestRecord_EnsureCategory(t *testing.T) {
	r := NewRecord("r1", Owner{UserID: "u", CompanyID: "c"}, time.Now())
	assert.Nil(t, r.Category(CategorySocial))

	data := r.EnsureCategory(CategorySocial)
	require.NotNil(t, data)
	data["swachhWorkplace"] = NewSubsection()
	assert.Len(t, r.Social, 1)

	assert.Nil(t, r.EnsureCategory(CategoryCompanyInfo))
}

func TestRecord_CloneIsDeep(t *testing.T) {
	r := NewRecord("r1", Owner{UserID: "u", CompanyID: "c"}, time.Now().UTC())
	env := r.EnsureCategory(CategoryEnvironment)
	env["renewableEnergy"] = &Subsection{Fields: map[string]any{"value": "50"}, Points: 15}

	c, err := r.Clone()
	require.NoError(t, err)
	c.Environment["renewableEnergy"].Fields["value"] = "10"

	assert.Equal(t, "50", r.Environment["renewableEnergy"].Fields["value"])
	assert.Equal(t, 15.0, c.Environment["renewableEnergy"].Points)
}

func TestESGScores_Apply(t *testing.T) {
	var s ESGScores
	s.Apply(ESGScoresPatch{Environmental: ptr(120.0), Social: ptr(-5.0), Quality: ptr(61.0)})

	assert.Equal(t, 100.0, s.Environmental)
	assert.Equal(t, 0.0, s.Social)
	assert.Equal(t, 61.0, s.Quality)
	assert.Equal(t, 40.0, s.Overall) // round(161/4)

	s.Apply(ESGScoresPatch{Governance: ptr(80.0)})
	assert.Equal(t, 100.0, s.Environmental)
	assert.Equal(t, 60.0, s.Overall) // round(241/4)
}

func TestNewSupplierProfile(t *testing.T) {
	p := NewSupplierProfile("p1", "u1", "Jane", time.Now())
	assert.Equal(t, PlaceholderCompanyName, p.CompanyName)
	assert.Len(t, p.FormSubmissions, 4)
	assert.False(t, p.FormSubmissions[CategoryGovernance].Submitted)
}

func TestProfileDetails_Apply(t *testing.T) {
	p := NewSupplierProfile("p1", "u1", "", time.Now())
	assert.Equal(t, PlaceholderContactPerson, p.ContactPerson)

	ProfileDetails{CompanyName: ptr(" Acme Textiles "), ContactPerson: ptr("Jane"), Industry: ptr("textiles")}.Apply(p)
	assert.Equal(t, "Acme Textiles", p.CompanyName)
	assert.Equal(t, "Jane", p.ContactPerson)
	assert.Equal(t, "textiles", p.Industry)
	assert.Empty(t, p.Website)

	ProfileDetails{ContactPerson: ptr("  ")}.Apply(p)
	assert.Equal(t, PlaceholderContactPerson, p.ContactPerson)
	assert.Equal(t, "Acme Textiles", p.CompanyName)
}

func ptr[T any](v T) *T { return &v }
