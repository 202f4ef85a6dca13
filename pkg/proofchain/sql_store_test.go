package proofchain

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSQLStore_AppendAndGet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewPostgresStore(db)
	ctx := context.Background()

	env := &Envelope{
		EnvelopeID:   "env-1",
		RunEventID:   "run-1",
		PreviousHash: GenesisHash,
		ContentHash:  "abc123",
	}

	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(seq\\), 0\\) \\+ 1 FROM proof_envelopes").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1))

	mock.ExpectExec("INSERT INTO proof_envelopes").
		WithArgs(env.EnvelopeID, int64(1), env.PreviousHash, env.ContentHash, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, store.Append(ctx, env))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewSQLiteStore(db)
	ctx := context.Background()

	mock.ExpectQuery("SELECT data FROM proof_envelopes WHERE envelope_id = ?").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"data"}))

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	require.False(t, found)
}

func TestSQLStore_Init(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	store := NewSQLiteStore(db)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS proof_envelopes").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Init(context.Background()))
}
