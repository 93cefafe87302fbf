package supplier

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
	"github.com/sells-group/esg-cli/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := New(store.NewMemory(), resilience.DefaultRetryConfig())
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func ptr[T any](v T) *T { return &v }

func TestGet_NotFoundDoesNotCreate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "user-1")
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))

	list, err := svc.List(ctx, store.ProfileFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Get(ctx, "")
	assert.True(t, eris.Is(err, model.ErrInvalidInput))
}

func TestUpdateScores_LazyPlaceholderAndClamp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	scores, err := svc.UpdateScores(ctx, "user-1", model.ESGScoresPatch{
		Environmental: ptr(150.0),
		Social:        ptr(50.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, scores.Environmental)
	assert.Equal(t, 50.0, scores.Social)
	assert.Equal(t, 38.0, scores.Overall) // round(150/4)

	p, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderCompanyName, p.CompanyName)
	assert.Equal(t, model.PlaceholderContactPerson, p.ContactPerson)

	scores, err = svc.UpdateScores(ctx, "user-1", model.ESGScoresPatch{Governance: ptr(-10.0), Quality: ptr(90.0)})
	require.NoError(t, err)
	assert.Equal(t, 100.0, scores.Environmental)
	assert.Equal(t, 0.0, scores.Governance)
	assert.Equal(t, 60.0, scores.Overall)
}

func TestUpdateDetails(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	p, err := svc.UpdateDetails(ctx, "user-1", model.ProfileDetails{
		CompanyName:   ptr("Acme Textiles"),
		ContactPerson: ptr("Jane"),
		Industry:      ptr("textiles"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Textiles", p.CompanyName)
	assert.Equal(t, "Jane", p.ContactPerson)

	p, err = svc.UpdateDetails(ctx, "user-1", model.ProfileDetails{ContactPerson: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, model.PlaceholderContactPerson, p.ContactPerson)
	assert.Equal(t, "textiles", p.Industry)

	byIndustry, err := svc.List(ctx, store.ProfileFilter{Industry: "textiles"})
	require.NoError(t, err)
	assert.Len(t, byIndustry, 1)
}

func TestUpdateFormSubmission(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	forms, err := svc.UpdateFormSubmission(ctx, "user-1", model.CategorySocial, true)
	require.NoError(t, err)
	require.NotNil(t, forms[model.CategorySocial].LastUpdated)
	assert.True(t, forms[model.CategorySocial].Submitted)
	assert.Equal(t, svc.now(), *forms[model.CategorySocial].LastUpdated)
	assert.False(t, forms[model.CategoryEnvironment].Submitted)
	assert.Nil(t, forms[model.CategoryEnvironment].LastUpdated)

	svc.now = func() time.Time { return time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC) }
	forms, err = svc.UpdateFormSubmission(ctx, "user-1", model.CategorySocial, false)
	require.NoError(t, err)
	assert.False(t, forms[model.CategorySocial].Submitted)
	// Withdrawing keeps the last submission time.
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), *forms[model.CategorySocial].LastUpdated)

	_, err = svc.UpdateFormSubmission(ctx, "user-1", model.CategoryCompanyInfo, true)
	assert.True(t, eris.Is(err, model.ErrInvalidInput))
}

func TestService_SQLite(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	svc := New(st, resilience.DefaultRetryConfig())
	ctx := context.Background()

	_, err = svc.UpdateScores(ctx, "user-1", model.ESGScoresPatch{Quality: ptr(80.0)})
	require.NoError(t, err)
	_, err = svc.UpdateFormSubmission(ctx, "user-1", model.CategoryQuality, true)
	require.NoError(t, err)

	p, err := svc.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 20.0, p.ESGScores.Overall)
	assert.True(t, p.FormSubmissions[model.CategoryQuality].Submitted)
	assert.Equal(t, int64(2), p.Version)
}
