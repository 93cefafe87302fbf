// Package supplier manages supplier profiles: contact details, coarse ESG
// score summaries and per-category form submission flags.
package supplier

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
	"github.com/sells-group/esg-cli/internal/store"
)

// Service reads and updates supplier profiles. Update paths create a
// placeholder profile when the user has none; Get never creates.
type Service struct {
	store store.Store
	retry resilience.RetryConfig
	now   func() time.Time
}

// New creates a Service backed by st. Writes that lose a race are retried
// with retry.
func New(st store.Store, retry resilience.RetryConfig) *Service {
	return &Service{
		store: st,
		retry: retry,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the profile for userID.
func (s *Service) Get(ctx context.Context, userID string) (*model.SupplierProfile, error) {
	if userID == "" {
		return nil, model.InvalidInputf("supplier: user id is required")
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "supplier: get profile")
	}
	return p, nil
}

// List returns profiles matching filter, newest first.
func (s *Service) List(ctx context.Context, filter store.ProfileFilter) ([]*model.SupplierProfile, error) {
	out, err := s.store.ListProfiles(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "supplier: list profiles")
	}
	return out, nil
}

// UpdateDetails applies the non-nil descriptive fields of d.
func (s *Service) UpdateDetails(ctx context.Context, userID string, d model.ProfileDetails) (*model.SupplierProfile, error) {
	p, err := s.update(ctx, userID, "update details", func(p *model.SupplierProfile) error {
		d.Apply(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// UpdateScores merges a partial score update and returns the resulting
// summary. Values are clamped to [0, 100]; overall is the rounded mean.
func (s *Service) UpdateScores(ctx context.Context, userID string, patch model.ESGScoresPatch) (model.ESGScores, error) {
	p, err := s.update(ctx, userID, "update scores", func(p *model.SupplierProfile) error {
		p.ESGScores.Apply(patch)
		return nil
	})
	if err != nil {
		return model.ESGScores{}, err
	}
	return p.ESGScores, nil
}

// UpdateFormSubmission sets the submitted flag of one category form. The
// form's timestamp is only advanced when submitted is true.
func (s *Service) UpdateFormSubmission(ctx context.Context, userID string, form model.Category, submitted bool) (map[model.Category]model.FormSubmission, error) {
	if !isForm(form) {
		return nil, model.InvalidInputf("supplier: invalid form type %q", form)
	}
	p, err := s.update(ctx, userID, "update form submission", func(p *model.SupplierProfile) error {
		if p.FormSubmissions == nil {
			p.FormSubmissions = map[model.Category]model.FormSubmission{}
		}
		fs := p.FormSubmissions[form]
		fs.Submitted = submitted
		if submitted {
			t := s.now()
			fs.LastUpdated = &t
		}
		p.FormSubmissions[form] = fs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.FormSubmissions, nil
}

func (s *Service) update(ctx context.Context, userID, action string, fn func(p *model.SupplierProfile) error) (*model.SupplierProfile, error) {
	if userID == "" {
		return nil, model.InvalidInputf("supplier: user id is required")
	}
	log := zap.L().With(zap.String("user_id", userID))

	retry := s.retry
	retry.OnRetry = resilience.RetryLogger("supplier: "+action, zap.String("user_id", userID))

	p, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*model.SupplierProfile, error) {
		seed := model.NewSupplierProfile("", userID, "", s.now())
		return s.store.UpdateProfile(ctx, userID, seed, func(p *model.SupplierProfile, created bool) error {
			if created {
				log.Info("supplier: created placeholder profile")
			}
			return fn(p)
		})
	})
	if err != nil {
		return nil, eris.Wrapf(err, "supplier: %s", action)
	}
	return p, nil
}

func isForm(c model.Category) bool {
	for _, sc := range model.ScoredCategories {
		if c == sc {
			return true
		}
	}
	return false
}
