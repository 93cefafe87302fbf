package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. Writes use an
// optimistic compare-and-swap on the version column and report a
// resilience.ConflictError when another writer got there first.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS esg_records (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	company_id  TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'draft',
	total_score REAL NOT NULL DEFAULT 0,
	doc         TEXT NOT NULL,
	version     INTEGER NOT NULL DEFAULT 0,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (user_id, company_id)
);

CREATE INDEX IF NOT EXISTS idx_esg_records_status ON esg_records(status);
CREATE INDEX IF NOT EXISTS idx_esg_records_updated_at ON esg_records(updated_at);

CREATE TABLE IF NOT EXISTS supplier_profiles (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL UNIQUE,
	industry   TEXT NOT NULL DEFAULT '',
	doc        TEXT NOT NULL,
	version    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_supplier_profiles_industry ON supplier_profiles(industry);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var sqliteSQL = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

const sqliteSelectRecord = `SELECT id, version, doc FROM esg_records`

func (s *SQLiteStore) GetRecord(ctx context.Context, owner model.Owner) (*model.Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx,
		sqliteSelectRecord+` WHERE user_id = ? AND company_id = ?`, owner.UserID, owner.CompanyID))
	if rec == nil && err == nil {
		return nil, recordNotFound(owner.String())
	}
	return rec, err
}

func (s *SQLiteStore) GetRecordByID(ctx context.Context, id string) (*model.Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx, sqliteSelectRecord+` WHERE id = ?`, id))
	if rec == nil && err == nil {
		return nil, recordNotFound(id)
	}
	return rec, err
}

func (s *SQLiteStore) UpdateRecord(ctx context.Context, owner model.Owner, create bool, fn RecordFunc) (*model.Record, error) {
	rec, err := scanSQLiteRecord(s.db.QueryRowContext(ctx,
		sqliteSelectRecord+` WHERE user_id = ? AND company_id = ?`, owner.UserID, owner.CompanyID))
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return s.swapRecord(ctx, rec, fn)
	}
	if !create {
		return nil, recordNotFound(owner.String())
	}

	rec = newRecord(owner)
	if err := commitRecord(rec, true, fn); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal record")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO esg_records (id, user_id, company_id, status, total_score, doc, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, company_id) DO NOTHING`,
		rec.ID, rec.UserID, rec.CompanyID, string(rec.Status), rec.OverallScore.Total,
		string(doc), rec.Version, rec.CreatedAt, rec.LastUpdated,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert record")
	}
	if err := casApplied(res, "record", owner.String()); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) UpdateRecordByID(ctx context.Context, id string, fn RecordFunc) (*model.Record, error) {
	rec, err := s.GetRecordByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.swapRecord(ctx, rec, fn)
}

// swapRecord applies fn to rec and writes it only if the stored version is
// still the one rec was read at.
func (s *SQLiteStore) swapRecord(ctx context.Context, rec *model.Record, fn RecordFunc) (*model.Record, error) {
	readVersion := rec.Version
	if err := commitRecord(rec, false, fn); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal record")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE esg_records SET status = ?, total_score = ?, doc = ?, version = ?, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(rec.Status), rec.OverallScore.Total, string(doc), rec.Version, rec.LastUpdated,
		rec.ID, readVersion,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: update record %s", rec.ID)
	}
	if err := casApplied(res, "record", rec.ID); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]*model.Record, error) {
	query, args, err := listRecordsQuery(sqliteSQL, filter).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list records")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var out []*model.Record
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

func (s *SQLiteStore) DeleteRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM esg_records WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete record %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) ImportRecords(ctx context.Context, records []*model.Record) (int64, error) {
	if err := prepareImport(records); err != nil {
		return 0, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	var n int64
	for _, rec := range records {
		doc, err := json.Marshal(rec)
		if err != nil {
			return 0, eris.Wrap(err, "sqlite: marshal record")
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO esg_records (id, user_id, company_id, status, total_score, doc, version, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
			 ON CONFLICT (user_id, company_id) DO UPDATE SET
			   status = excluded.status, total_score = excluded.total_score, doc = excluded.doc,
			   version = esg_records.version + 1, updated_at = excluded.updated_at`,
			rec.ID, rec.UserID, rec.CompanyID, string(rec.Status), rec.OverallScore.Total,
			string(doc), rec.CreatedAt, rec.LastUpdated,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import record %s", rec.Owner())
		}
		affected, _ := res.RowsAffected()
		n += affected
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

const sqliteSelectProfile = `SELECT id, version, doc FROM supplier_profiles`

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*model.SupplierProfile, error) {
	p, err := scanSQLiteProfile(s.db.QueryRowContext(ctx, sqliteSelectProfile+` WHERE user_id = ?`, userID))
	if p == nil && err == nil {
		return nil, profileNotFound(userID)
	}
	return p, err
}

func (s *SQLiteStore) UpdateProfile(ctx context.Context, userID string, seed *model.SupplierProfile, fn ProfileFunc) (*model.SupplierProfile, error) {
	p, err := scanSQLiteProfile(s.db.QueryRowContext(ctx, sqliteSelectProfile+` WHERE user_id = ?`, userID))
	if err != nil {
		return nil, err
	}

	if p != nil {
		readVersion := p.Version
		if err := commitProfile(p, false, fn); err != nil {
			return nil, err
		}
		doc, err := json.Marshal(p)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal profile")
		}
		res, err := s.db.ExecContext(ctx,
			`UPDATE supplier_profiles SET industry = ?, doc = ?, version = ?, updated_at = ?
			 WHERE id = ? AND version = ?`,
			p.Industry, string(doc), p.Version, p.UpdatedAt, p.ID, readVersion,
		)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: update profile %s", p.ID)
		}
		if err := casApplied(res, "supplier profile", userID); err != nil {
			return nil, err
		}
		return p, nil
	}

	if seed == nil {
		return nil, profileNotFound(userID)
	}
	p = seedProfile(userID, seed)
	if err := commitProfile(p, true, fn); err != nil {
		return nil, err
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal profile")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO supplier_profiles (id, user_id, industry, doc, version, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO NOTHING`,
		p.ID, p.UserID, p.Industry, string(doc), p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert profile")
	}
	if err := casApplied(res, "supplier profile", userID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *SQLiteStore) ListProfiles(ctx context.Context, filter ProfileFilter) ([]*model.SupplierProfile, error) {
	query, args, err := listProfilesQuery(sqliteSQL, filter).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list profiles")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list profiles")
	}
	defer rows.Close()

	var out []*model.SupplierProfile
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate profiles")
}

type scannable interface {
	Scan(dest ...any) error
}

// scanSQLiteRecord returns nil, nil when the row does not exist.
func scanSQLiteRecord(row scannable) (*model.Record, error) {
	var (
		id      string
		version int64
		doc     string
	)
	err := row.Scan(&id, &version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}
	return decodeRecord(id, version, []byte(doc))
}

func scanSQLiteProfile(row scannable) (*model.SupplierProfile, error) {
	var (
		id      string
		version int64
		doc     string
	)
	err := row.Scan(&id, &version, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan profile")
	}
	return decodeProfile(id, version, []byte(doc))
}

// casApplied turns a zero-row conditional write into a conflict.
func casApplied(res sql.Result, entity, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return resilience.NewConflictError(entity, key)
	}
	return nil
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return recordNotFound(id)
	}
	return nil
}
