package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esg-cli/internal/model"
	"github.com/sells-group/esg-cli/internal/resilience"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func recordDoc(t *testing.T, rec *model.Record) []byte {
	t.Helper()
	doc, err := json.Marshal(rec)
	require.NoError(t, err)
	return doc
}

func TestPostgresStore_GetRecord_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, version, doc FROM esg_records WHERE user_id = \$1 AND company_id = \$2`).
		WithArgs("user-1", "acme").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRecord(context.Background(), acme)
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecordByID(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	stored := model.NewRecord("ignored", acme, time.Now().UTC())
	stored.Status = model.StatusSubmitted

	mock.ExpectQuery(`SELECT id, version, doc FROM esg_records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnRows(mock.NewRows([]string{"id", "version", "doc"}).AddRow("rec-1", int64(7), recordDoc(t, stored)))

	rec, err := s.GetRecordByID(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, int64(7), rec.Version)
	assert.Equal(t, model.StatusSubmitted, rec.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_Existing(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	stored := model.NewRecord("rec-1", acme, time.Now().UTC())
	stored.Version = 3

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, version, doc FROM esg_records WHERE user_id = \$1 AND company_id = \$2 FOR UPDATE`).
		WithArgs("user-1", "acme").
		WillReturnRows(mock.NewRows([]string{"id", "version", "doc"}).AddRow("rec-1", int64(3), recordDoc(t, stored)))
	mock.ExpectExec(`UPDATE esg_records SET status = \$1, total_score = \$2, doc = \$3, version = \$4, updated_at = \$5 WHERE id = \$6`).
		WithArgs("draft", pgxmock.AnyArg(), pgxmock.AnyArg(), int64(4), pgxmock.AnyArg(), "rec-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	rec, err := s.UpdateRecord(context.Background(), acme, true,
		patchFn(model.CategoryEnvironment, "renewableEnergy", map[string]any{"value": "50", "certificate": "c.pdf"}))
	require.NoError(t, err)
	assert.Equal(t, int64(4), rec.Version)
	assert.Equal(t, 4.0, rec.OverallScore.Environment)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_CreatesWhenAbsent(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, version, doc FROM esg_records WHERE user_id = \$1 AND company_id = \$2 FOR UPDATE`).
		WithArgs("user-1", "acme").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO esg_records \(id,user_id,company_id,status,total_score,doc,version,created_at,updated_at\) VALUES .* ON CONFLICT \(user_id, company_id\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "user-1", "acme", "draft", 0.0, pgxmock.AnyArg(), int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	var sawCreated bool
	rec, err := s.UpdateRecord(context.Background(), acme, true, func(rec *model.Record, created bool) error {
		sawCreated = created
		return nil
	})
	require.NoError(t, err)
	assert.True(t, sawCreated)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, int64(1), rec.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_CreateRaceConflicts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM esg_records WHERE user_id = \$1 AND company_id = \$2 FOR UPDATE`).
		WithArgs("user-1", "acme").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO esg_records`).
		WithArgs(pgxmock.AnyArg(), "user-1", "acme", "draft", 0.0, pgxmock.AnyArg(), int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	_, err := s.UpdateRecord(context.Background(), acme, true, func(*model.Record, bool) error { return nil })
	require.Error(t, err)
	assert.True(t, resilience.IsConflict(err))
	assert.True(t, resilience.IsRetryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecord_NotFoundWithoutCreate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM esg_records WHERE user_id = \$1 AND company_id = \$2 FOR UPDATE`).
		WithArgs("user-1", "acme").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.UpdateRecord(context.Background(), acme, false, func(*model.Record, bool) error { return nil })
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRecordByID_FuncErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	stored := model.NewRecord("rec-1", acme, time.Now().UTC())

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, version, doc FROM esg_records WHERE id = \$1 FOR UPDATE`).
		WithArgs("rec-1").
		WillReturnRows(mock.NewRows([]string{"id", "version", "doc"}).AddRow("rec-1", int64(1), recordDoc(t, stored)))
	mock.ExpectRollback()

	boom := errors.New("boom")
	_, err := s.UpdateRecordByID(context.Background(), "rec-1", func(*model.Record, bool) error { return boom })
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecords(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	stored := model.NewRecord("", acme, time.Now().UTC())

	mock.ExpectQuery(`SELECT id, version, doc FROM esg_records WHERE status = \$1 ORDER BY updated_at DESC, id LIMIT 2 OFFSET 1`).
		WithArgs("submitted").
		WillReturnRows(mock.NewRows([]string{"id", "version", "doc"}).
			AddRow("rec-1", int64(2), recordDoc(t, stored)).
			AddRow("rec-2", int64(5), recordDoc(t, stored)))

	recs, err := s.ListRecords(context.Background(), RecordFilter{Status: model.StatusSubmitted, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "rec-2", recs[1].ID)
	assert.Equal(t, int64(5), recs[1].Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteRecord(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM esg_records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM esg_records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.DeleteRecord(context.Background(), "rec-1"))
	err := s.DeleteRecord(context.Background(), "rec-1")
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProfile_Seeds(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, version, doc FROM supplier_profiles WHERE user_id = \$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectExec(`INSERT INTO supplier_profiles .* ON CONFLICT \(user_id\) DO NOTHING`).
		WithArgs(pgxmock.AnyArg(), "user-1", "", pgxmock.AnyArg(), int64(1), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	p, err := s.UpdateProfile(context.Background(), "user-1",
		model.NewSupplierProfile("", "", "Jane", time.Now().UTC()),
		func(p *model.SupplierProfile, created bool) error {
			assert.True(t, created)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, model.PlaceholderCompanyName, p.CompanyName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProfile_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, version, doc FROM supplier_profiles WHERE user_id = \$1`).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetProfile(context.Background(), "ghost")
	assert.True(t, eris.Is(err, model.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
