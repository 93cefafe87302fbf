// Package assessment runs the ESG record lifecycle: partial updates, submit
// for review, review outcomes, admin overrides and dashboard reads. Every
// write goes through the store's atomic update path with conflict retries.
package assessment

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esg-cli/internal/dashboard"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/registry"
	"github.com/sells-group/esg-cli/internal/resilience"
	"github.com/sells-group/esg-cli/internal/scoring"
	"github.com/sells-group/esg-cli/internal/store"
)

// Options tunes a Service.
type Options struct {
	// LockAfterSubmit rejects patches to records that are submitted,
	// reviewed or approved. Rejected records stay editable.
	LockAfterSubmit bool
	// RecentLimit is the number of recent activity entries in dashboards.
	RecentLimit int
	Retry       resilience.RetryConfig
	Now         func() time.Time
}

// Service implements the record lifecycle on top of a store.Store.
type Service struct {
	store     store.Store
	opts      Options
	projector *dashboard.Projector
}

// New creates a Service.
func New(st store.Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	p := dashboard.NewProjector(opts.RecentLimit)
	p.Now = opts.Now
	return &Service{store: st, opts: opts, projector: p}
}

// OverrideRequest is a manual score correction of one sub-section.
type OverrideRequest struct {
	RecordID   string         `json:"recordId"`
	Category   model.Category `json:"category"`
	Subsection string         `json:"subsection"`
	Points     float64        `json:"points"`
	Remarks    string         `json:"remarks"`
}

// Patch merges p into the owner's record, creating a draft record on the
// first write, and returns the stored result.
func (s *Service) Patch(ctx context.Context, p scoring.Patch) (*model.Record, error) {
	if _, err := p.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(
		zap.String("owner", p.Owner.String()),
		zap.String("category", string(p.Category)),
		zap.String("subsection", p.Subsection),
	)

	rec, err := s.write(ctx, "patch", func(ctx context.Context) (*model.Record, error) {
		return s.store.UpdateRecord(ctx, p.Owner, true, func(rec *model.Record, created bool) error {
			if !created && rec.Status != model.StatusDraft {
				if s.opts.LockAfterSubmit && rec.Status != model.StatusRejected {
					return eris.Wrapf(model.ErrInvalidState, "assessment: record %s is %s", rec.ID, rec.Status)
				}
				log.Info("assessment: editing record after submission", zap.String("status", string(rec.Status)))
			}
			_, err := scoring.Merge(rec, p, s.opts.Now())
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	log.Debug("assessment: patched record",
		zap.String("record_id", rec.ID),
		zap.Float64("total_score", rec.OverallScore.Total),
	)
	return rec, nil
}

// Get returns the owner's record.
func (s *Service) Get(ctx context.Context, owner model.Owner) (*model.Record, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.store.GetRecord(ctx, owner)
	if err != nil {
		return nil, eris.Wrap(err, "assessment: get record")
	}
	return rec, nil
}

// GetByID returns a record by id.
func (s *Service) GetByID(ctx context.Context, id string) (*model.Record, error) {
	rec, err := s.store.GetRecordByID(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "assessment: get record")
	}
	return rec, nil
}

// GetCompanyInfo returns the owner's company info sub-section. It is a
// not-found error when the record exists without one.
func (s *Service) GetCompanyInfo(ctx context.Context, owner model.Owner) (*model.Subsection, error) {
	rec, err := s.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	if rec.CompanyInfo == nil {
		return nil, model.NotFoundf("assessment: company info for %s", owner)
	}
	return rec.CompanyInfo, nil
}

// Submit moves the owner's record to submitted. Scores are unchanged.
func (s *Service) Submit(ctx context.Context, owner model.Owner) (*model.Record, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	rec, err := s.write(ctx, "submit", func(ctx context.Context) (*model.Record, error) {
		return s.store.UpdateRecord(ctx, owner, false, func(rec *model.Record, _ bool) error {
			rec.SetStatus(model.StatusSubmitted, s.opts.Now())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("assessment: record submitted", zap.String("record_id", rec.ID), zap.String("owner", owner.String()))
	return rec, nil
}

// Review records a review outcome and comments on a record.
func (s *Service) Review(ctx context.Context, id string, status model.Status, comments string) (*model.Record, error) {
	if id == "" {
		return nil, model.InvalidInputf("assessment: record id is required")
	}
	if !status.IsReviewOutcome() {
		return nil, model.InvalidInputf("assessment: %q is not a review outcome", status)
	}
	rec, err := s.write(ctx, "review", func(ctx context.Context) (*model.Record, error) {
		return s.store.UpdateRecordByID(ctx, id, func(rec *model.Record, _ bool) error {
			rec.SetStatus(status, s.opts.Now())
			rec.ReviewComments = comments
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("assessment: record reviewed", zap.String("record_id", id), zap.String("status", string(status)))
	return rec, nil
}

// Override sets a sub-section's points and remarks without running the
// point calculator. Category scores are re-aggregated.
func (s *Service) Override(ctx context.Context, req OverrideRequest) (*model.Record, error) {
	if req.RecordID == "" {
		return nil, model.InvalidInputf("assessment: record id is required")
	}
	if err := registry.Validate(req.Category, req.Subsection); err != nil {
		return nil, err
	}
	rec, err := s.write(ctx, "override", func(ctx context.Context) (*model.Record, error) {
		return s.store.UpdateRecordByID(ctx, req.RecordID, func(rec *model.Record, _ bool) error {
			return scoring.Override(rec, req.Category, req.Subsection, req.Points, req.Remarks, s.opts.Now())
		})
	})
	if err != nil {
		return nil, err
	}
	zap.L().Info("assessment: points overridden",
		zap.String("record_id", req.RecordID),
		zap.String("category", string(req.Category)),
		zap.String("subsection", req.Subsection),
		zap.Float64("points", req.Points),
	)
	return rec, nil
}

// Dashboard projects the owner's record into its dashboard summary.
func (s *Service) Dashboard(ctx context.Context, owner model.Owner) (dashboard.Summary, error) {
	rec, err := s.Get(ctx, owner)
	if err != nil {
		return dashboard.Summary{}, err
	}
	return s.projector.Project(rec), nil
}

// AdminSummary aggregates every stored record into the admin overview.
func (s *Service) AdminSummary(ctx context.Context) (dashboard.AdminSummary, error) {
	records, err := s.store.ListRecords(ctx, store.RecordFilter{})
	if err != nil {
		return dashboard.AdminSummary{}, eris.Wrap(err, "assessment: admin summary")
	}
	return s.projector.Admin(records), nil
}

// List returns records matching filter, most recently updated first.
func (s *Service) List(ctx context.Context, filter store.RecordFilter) ([]*model.Record, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.InvalidInputf("assessment: unknown status %q", filter.Status)
	}
	out, err := s.store.ListRecords(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "assessment: list records")
	}
	return out, nil
}

// Delete removes a record.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteRecord(ctx, id); err != nil {
		return eris.Wrap(err, "assessment: delete record")
	}
	zap.L().Info("assessment: record deleted", zap.String("record_id", id))
	return nil
}

// Import upserts records by owner. Scores are re-aggregated before write.
func (s *Service) Import(ctx context.Context, records []*model.Record) (int64, error) {
	n, err := s.store.ImportRecords(ctx, records)
	if err != nil {
		return 0, eris.Wrap(err, "assessment: import records")
	}
	zap.L().Info("assessment: imported records", zap.Int64("count", n))
	return n, nil
}

// write runs a store update with conflict retries.
func (s *Service) write(ctx context.Context, action string, fn func(ctx context.Context) (*model.Record, error)) (*model.Record, error) {
	retry := s.opts.Retry
	retry.OnRetry = resilience.RetryLogger("assessment: " + action)
	rec, err := resilience.DoVal(ctx, retry, fn)
	if err != nil {
		return nil, eris.Wrapf(err, "assessment: %s", action)
	}
	return rec, nil
}
