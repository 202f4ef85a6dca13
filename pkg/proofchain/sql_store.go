package proofchain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLStore implements EnvelopeStore over database/sql. It works against
// either an embedded SQLite database (modernc.org/sqlite, no cgo) or a
// Postgres database (lib/pq), selected by which placeholder style the
// caller supplies — SQLite uses "?", Postgres uses "$N". One schema,
// driver-agnostic queries built by the caller's placeholder function,
// optimistic single-statement writes with no explicit transaction.
type SQLStore struct {
	db          *sql.DB
	placeholder func(n int) string
}

// NewSQLiteStore builds an EnvelopeStore backed by an embedded SQLite
// database via modernc.org/sqlite (pure Go, no cgo).
func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, placeholder: func(n int) string { return "?" }}
}

// NewPostgresStore builds an EnvelopeStore backed by Postgres via lib/pq.
func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, placeholder: func(n int) string { return fmt.Sprintf("$%d", n) }}
}

const envelopeSchema = `
CREATE TABLE IF NOT EXISTS proof_envelopes (
	envelope_id   TEXT PRIMARY KEY,
	seq           INTEGER NOT NULL,
	previous_hash TEXT NOT NULL,
	content_hash  TEXT NOT NULL,
	data          TEXT NOT NULL
);
`

// Init creates the envelope table if it does not already exist.
func (s *SQLStore) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, envelopeSchema)
	return err
}

// Append inserts one envelope, assigning it the next sequence number.
func (s *SQLStore) Append(ctx context.Context, env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	var nextSeq int64
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) + 1 FROM proof_envelopes")
	if err := row.Scan(&nextSeq); err != nil {
		return fmt.Errorf("compute next seq: %w", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO proof_envelopes (envelope_id, seq, previous_hash, content_hash, data) VALUES (%s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
	)
	_, err = s.db.ExecContext(ctx, query, env.EnvelopeID, nextSeq, env.PreviousHash, env.ContentHash, string(data))
	return err
}

// Get retrieves a single envelope by ID.
func (s *SQLStore) Get(ctx context.Context, envelopeID string) (*Envelope, bool, error) {
	query := fmt.Sprintf("SELECT data FROM proof_envelopes WHERE envelope_id = %s", s.placeholder(1))
	row := s.db.QueryRowContext(ctx, query, envelopeID)

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, false, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, true, nil
}

// Tip returns the most recently appended envelope.
func (s *SQLStore) Tip(ctx context.Context) (*Envelope, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT data FROM proof_envelopes ORDER BY seq DESC LIMIT 1")

	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var env Envelope
	if err := json.Unmarshal([]byte(data), &env); err != nil {
		return nil, false, fmt.Errorf("unmarshal envelope: %w", err)
	}
	return &env, true, nil
}

// All returns every envelope in append order.
func (s *SQLStore) All(ctx context.Context) ([]*Envelope, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT data FROM proof_envelopes ORDER BY seq ASC")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var envelopes []*Envelope
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var env Envelope
		if err := json.Unmarshal([]byte(data), &env); err != nil {
			return nil, fmt.Errorf("unmarshal envelope: %w", err)
		}
		envelopes = append(envelopes, &env)
	}
	return envelopes, rows.Err()
}
