package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esg-cli/internal/db"
	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool. Record and profile writes
// lock the row with SELECT ... FOR UPDATE for the length of the transaction.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			pgxCfg.MaxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			pgxCfg.MinConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS esg_records (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	company_id  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'draft',
	total_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	doc         JSONB NOT NULL,
	version     BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, company_id)
);

CREATE INDEX IF NOT EXISTS idx_esg_records_status ON esg_records(status);
CREATE INDEX IF NOT EXISTS idx_esg_records_updated_at ON esg_records(updated_at DESC);

CREATE TABLE IF NOT EXISTS supplier_profiles (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	industry   TEXT NOT NULL DEFAULT '',
	doc        JSONB NOT NULL,
	version    BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_supplier_profiles_industry ON supplier_profiles(industry);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const (
	pgSelectRecord = `SELECT id, version, doc FROM esg_records`
	pgByOwner      = ` WHERE user_id = $1 AND company_id = $2`
	pgByID         = ` WHERE id = $1`
	pgForUpdate    = ` FOR UPDATE`
)

func (s *PostgresStore) GetRecord(ctx context.Context, owner model.Owner) (*model.Record, error) {
	rec, err := scanPgRecord(s.pool.QueryRow(ctx, pgSelectRecord+pgByOwner, owner.UserID, owner.CompanyID))
	if rec == nil && err == nil {
		return nil, recordNotFound(owner.String())
	}
	return rec, err
}

func (s *PostgresStore) GetRecordByID(ctx context.Context, id string) (*model.Record, error) {
	rec, err := scanPgRecord(s.pool.QueryRow(ctx, pgSelectRecord+pgByID, id))
	if rec == nil && err == nil {
		return nil, recordNotFound(id)
	}
	return rec, err
}

func (s *PostgresStore) UpdateRecord(ctx context.Context, owner model.Owner, create bool, fn RecordFunc) (*model.Record, error) {
	var out *model.Record
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		rec, err := scanPgRecord(tx.QueryRow(ctx, pgSelectRecord+pgByOwner+pgForUpdate, owner.UserID, owner.CompanyID))
		if err != nil {
			return err
		}
		if rec != nil {
			return s.writeRecord(ctx, tx, rec, false, fn, &out)
		}
		if !create {
			return recordNotFound(owner.String())
		}
		return s.writeRecord(ctx, tx, newRecord(owner), true, fn, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) UpdateRecordByID(ctx context.Context, id string, fn RecordFunc) (*model.Record, error) {
	var out *model.Record
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		rec, err := scanPgRecord(tx.QueryRow(ctx, pgSelectRecord+pgByID+pgForUpdate, id))
		if err != nil {
			return err
		}
		if rec == nil {
			return recordNotFound(id)
		}
		return s.writeRecord(ctx, tx, rec, false, fn, &out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// writeRecord applies fn and persists rec within tx. A lazily created record
// that collides with a concurrent creator reports a conflict.
func (s *PostgresStore) writeRecord(ctx context.Context, tx pgx.Tx, rec *model.Record, created bool, fn RecordFunc, out **model.Record) error {
	if err := commitRecord(rec, created, fn); err != nil {
		return err
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	var q squirrel.Sqlizer
	if created {
		q = psql.Insert("esg_records").
			Columns("id", "user_id", "company_id", "status", "total_score", "doc", "version", "created_at", "updated_at").
			Values(rec.ID, rec.UserID, rec.CompanyID, string(rec.Status), rec.OverallScore.Total, doc, rec.Version, rec.CreatedAt, rec.LastUpdated).
			Suffix("ON CONFLICT (user_id, company_id) DO NOTHING")
	} else {
		q = psql.Update("esg_records").
			Set("status", string(rec.Status)).
			Set("total_score", rec.OverallScore.Total).
			Set("doc", doc).
			Set("version", rec.Version).
			Set("updated_at", rec.LastUpdated).
			Where(squirrel.Eq{"id": rec.ID})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build record write")
	}
	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: write record %s", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		return resilience.NewConflictError("record", rec.Owner().String())
	}
	*out = rec
	return nil
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error) {
	sql, args, err := listRecordsQuery(psql, filter).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list records")
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func (s *PostgresStore) DeleteRecord(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM esg_records WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete record %s", id)
	}
	if tag.RowsAffected() == 0 {
		return recordNotFound(id)
	}
	return nil
}

var recordColumns = []string{"id", "user_id", "company_id", "status", "total_score", "doc", "version", "created_at", "updated_at"}

// ImportRecords upserts records keyed by owner through a COPY-staged bulk
// upsert. Existing rows keep their id.
func (s *PostgresStore) ImportRecords(ctx context.Context, records []*model.Record) (int64, error) {
	if err := prepareImport(records); err != nil {
		return 0, err
	}
	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return 0, eris.Wrap(err, "postgres: marshal record")
		}
		rows = append(rows, []any{
			rec.ID, rec.UserID, rec.CompanyID, string(rec.Status), rec.OverallScore.Total,
			doc, rec.Version + 1, rec.CreatedAt, rec.LastUpdated,
		})
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "esg_records",
		Columns:      recordColumns,
		ConflictKeys: []string{"user_id", "company_id"},
		UpdateCols:   []string{"status", "total_score", "doc", "version", "updated_at"},
	}, rows)
	return n, eris.Wrap(err, "postgres: import records")
}

const pgSelectProfile = `SELECT id, version, doc FROM supplier_profiles WHERE user_id = $1`

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*model.SupplierProfile, error) {
	p, err := scanPgProfile(s.pool.QueryRow(ctx, pgSelectProfile, userID))
	if p == nil && err == nil {
		return nil, profileNotFound(userID)
	}
	return p, err
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, seed *model.SupplierProfile, fn ProfileFunc) (*model.SupplierProfile, error) {
	var out *model.SupplierProfile
	err := db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := scanPgProfile(tx.QueryRow(ctx, pgSelectProfile+pgForUpdate, userID))
		if err != nil {
			return err
		}
		created := false
		if p == nil {
			if seed == nil {
				return profileNotFound(userID)
			}
			p = seedProfile(userID, seed)
			created = true
		}
		if err := commitProfile(p, created, fn); err != nil {
			return err
		}
		doc, err := json.Marshal(p)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal profile")
		}

		var q squirrel.Sqlizer
		if created {
			q = psql.Insert("supplier_profiles").
				Columns("id", "user_id", "industry", "doc", "version", "created_at", "updated_at").
				Values(p.ID, p.UserID, p.Industry, doc, p.Version, p.CreatedAt, p.UpdatedAt).
				Suffix("ON CONFLICT (user_id) DO NOTHING")
		} else {
			q = psql.Update("supplier_profiles").
				Set("industry", p.Industry).
				Set("doc", doc).
				Set("version", p.Version).
				Set("updated_at", p.UpdatedAt).
				Where(squirrel.Eq{"id": p.ID})
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return eris.Wrap(err, "postgres: build profile write")
		}
		tag, err := tx.Exec(ctx, sql, args...)
		if err != nil {
			return eris.Wrapf(err, "postgres: write profile %s", p.ID)
		}
		if tag.RowsAffected() == 0 {
			return resilience.NewConflictError("supplier profile", userID)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]*model.SupplierProfile, error) {
	sql, args, err := listProfilesQuery(psql, filter).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list profiles")
	}
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list profiles")
	}
	defer rows.Close()

	var out []*model.SupplierProfile
	for rows.Next() {
		p, err := scanPgProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate profiles")
}

// scanPgRecord returns nil, nil when the row does not exist.
func scanPgRecord(row pgx.Row) (*model.Record, error) {
	var (
		id      string
		version int64
		doc     []byte
	)
	err := row.Scan(&id, &version, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan record")
	}
	return decodeRecord(id, version, doc)
}

func scanPgProfile(row pgx.Row) (*model.SupplierProfile, error) {
	var (
		id      string
		version int64
		doc     []byte
	)
	err := row.Scan(&id, &version, &doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan profile")
	}
	return decodeProfile(id, version, doc)
}
