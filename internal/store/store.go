// Package store persists ESG records and supplier profiles. Every record
// write runs the caller's mutation and the score aggregation as one atomic
// step per backend.
package store

import (
	"context"
	"encoding/json"
	"math"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/scoring"
)

// RecordFilter specifies criteria for listing records.
type RecordFilter struct {
	Status    model.Status `json:"status,omitempty"`
	UserID    string       `json:"user_id,omitempty"`
	CompanyID string       `json:"company_id,omitempty"`
	Limit     int          `json:"limit,omitempty"`
	Offset    int          `json:"offset,omitempty"`
}

// ProfileFilter specifies criteria for listing supplier profiles.
type ProfileFilter struct {
	Industry string `json:"industry,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// RecordFunc mutates a record inside a store write. created is true when
// the record did not exist before this write. Returning an error aborts the
// write with no change persisted.
type RecordFunc func(rec *model.Record, created bool) error

// ProfileFunc mutates a supplier profile inside a store write.
type ProfileFunc func(p *model.SupplierProfile, created bool) error

// Store defines persistence for the ESG engine.
type Store interface {
	// Records
	GetRecord(ctx context.Context, owner model.Owner) (*model.Record, error)
	GetRecordByID(ctx context.Context, id string) (*model.Record, error)
	// UpdateRecord reads the owner's record, applies fn, re-aggregates scores
	// and writes the result atomically. With create set, an absent record is
	// created as a draft; otherwise it is a not-found error.
	UpdateRecord(ctx context.Context, owner model.Owner, create bool, fn RecordFunc) (*model.Record, error)
	UpdateRecordByID(ctx context.Context, id string, fn RecordFunc) (*model.Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error)
	DeleteRecord(ctx context.Context, id string) error
	ImportRecords(ctx context.Context, records []*model.Record) (int64, error)

	// Supplier profiles
	GetProfile(ctx context.Context, userID string) (*model.SupplierProfile, error)
	// UpdateProfile applies fn to the user's profile. A non-nil seed is
	// stored first when the profile is absent.
	UpdateProfile(ctx context.Context, userID string, seed *model.SupplierProfile, fn ProfileFunc) (*model.SupplierProfile, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) ([]*model.SupplierProfile, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

func now() time.Time {
	return time.Now().UTC()
}

func newRecord(owner model.Owner) *model.Record {
	return model.NewRecord(uuid.New().String(), owner, now())
}

// commitRecord runs fn and the aggregation step that must precede every
// record write, then advances the version.
func commitRecord(rec *model.Record, created bool, fn RecordFunc) error {
	if err := fn(rec, created); err != nil {
		return err
	}
	scoring.Aggregate(rec)
	rec.Version++
	return nil
}

// prepareImport assigns missing identities and re-aggregates scores.
func prepareImport(records []*model.Record) error {
	for i, rec := range records {
		if rec == nil {
			return model.InvalidInputf("store: import record %d is empty", i)
		}
		if err := rec.Owner().Validate(); err != nil {
			return eris.Wrapf(err, "store: import record %d", i)
		}
		if rec.ID == "" {
			rec.ID = uuid.New().String()
		}
		if !rec.Status.Valid() {
			rec.Status = model.StatusDraft
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now()
		}
		if rec.LastUpdated.IsZero() {
			rec.LastUpdated = rec.CreatedAt
		}
		scoring.Aggregate(rec)
	}
	return nil
}

func commitProfile(p *model.SupplierProfile, created bool, fn ProfileFunc) error {
	if err := fn(p, created); err != nil {
		return err
	}
	p.Version++
	p.UpdatedAt = now()
	return nil
}

func seedProfile(userID string, seed *model.SupplierProfile) *model.SupplierProfile {
	p := *seed
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.UserID = userID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now()
	}
	return &p
}

func decodeRecord(id string, version int64, doc []byte) (*model.Record, error) {
	var rec model.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, eris.Wrapf(err, "store: decode record %s", id)
	}
	rec.ID = id
	rec.Version = version
	return &rec, nil
}

func decodeProfile(id string, version int64, doc []byte) (*model.SupplierProfile, error) {
	var p model.SupplierProfile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, eris.Wrapf(err, "store: decode profile %s", id)
	}
	p.ID = id
	p.Version = version
	return &p, nil
}

func recordNotFound(key string) error {
	return model.NotFoundf("record %s", key)
}

func profileNotFound(userID string) error {
	return model.NotFoundf("supplier profile for user %s", userID)
}

// listRecordsQuery builds the filtered record listing for either SQL
// backend; b carries the driver's placeholder format.
func listRecordsQuery(b squirrel.StatementBuilderType, filter RecordFilter) squirrel.SelectBuilder {
	q := b.Select("id", "version", "doc").From("esg_records").OrderBy("updated_at DESC", "id")
	if filter.Status != "" {
		q = q.Where(squirrel.Eq{"status": string(filter.Status)})
	}
	if filter.UserID != "" {
		q = q.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.CompanyID != "" {
		q = q.Where(squirrel.Eq{"company_id": filter.CompanyID})
	}
	return pageQuery(q, filter.Limit, filter.Offset)
}

func listProfilesQuery(b squirrel.StatementBuilderType, filter ProfileFilter) squirrel.SelectBuilder {
	q := b.Select("id", "version", "doc").From("supplier_profiles").OrderBy("created_at DESC", "id")
	if filter.Industry != "" {
		q = q.Where(squirrel.Eq{"industry": filter.Industry})
	}
	return pageQuery(q, filter.Limit, filter.Offset)
}

// pageQuery applies limit and offset. SQLite rejects OFFSET without LIMIT, so an
// offset alone gets the largest LIMIT both backends accept.
func pageQuery(q squirrel.SelectBuilder, limit, offset int) squirrel.SelectBuilder {
	switch {
	case limit > 0:
		q = q.Limit(uint64(limit))
	case offset > 0:
		q = q.Limit(math.MaxInt64)
	}
	if offset > 0 {
		q = q.Offset(uint64(offset))
	}
	return q
}

