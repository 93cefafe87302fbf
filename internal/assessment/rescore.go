package assessment

import (
	"context"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/scoring"
	"github.com/sells-group/esg-cli/internal/store"
)

// RescoreOptions controls RescoreAll.
type RescoreOptions struct {
	Concurrency int
	// RecomputePoints re-runs the point calculator on every sub-section,
	// replacing manual overrides. Without it only category scores are
	// re-aggregated from stored points.
	RecomputePoints bool
	// Status limits the pass to records in one status.
	Status model.Status
}

// RescoreResult reports a RescoreAll pass.
type RescoreResult struct {
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}

// RescoreAll rewrites every matching record through the store write path so
// stored aggregates match the current scoring rules. Individual failures are
// logged and counted without aborting the pass.
func (s *Service) RescoreAll(ctx context.Context, opts RescoreOptions) (RescoreResult, error) {
	records, err := s.List(ctx, store.RecordFilter{Status: opts.Status})
	if err != nil {
		return RescoreResult{}, err
	}
	if len(records) == 0 {
		zap.L().Info("assessment: no records to rescore")
		return RescoreResult{}, nil
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	zap.L().Info("assessment: rescoring records",
		zap.Int("records", len(records)),
		zap.Int("concurrency", concurrency),
		zap.Bool("recompute_points", opts.RecomputePoints),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64
	for _, rec := range records {
		id := rec.ID
		g.Go(func() error {
			_, err := s.write(gctx, "rescore", func(ctx context.Context) (*model.Record, error) {
				return s.store.UpdateRecordByID(ctx, id, func(rec *model.Record, _ bool) error {
					if opts.RecomputePoints {
						scoring.Rescore(rec)
					}
					return nil
				})
			})
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				zap.L().Error("assessment: rescore failed", zap.String("record_id", id), zap.Error(err))
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}

	res := RescoreResult{}
	err = g.Wait()
	res.Succeeded, res.Failed = succeeded.Load(), failed.Load()
	if err != nil {
		return res, eris.Wrap(err, "assessment: rescore")
	}
	zap.L().Info("assessment: rescore complete",
		zap.Int64("succeeded", res.Succeeded),
		zap.Int64("failed", res.Failed),
	)
	return res, nil
}
