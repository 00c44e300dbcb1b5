package audit

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"custos/pkg/domain"
)

// PostgresStore appends change events to an audit table. It uses
// database/sql with the pq driver; the hot-path attribute store uses pgx
// directly, but the audit log is write-mostly and plain sql keeps it
// portable.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres dials the audit database with the pq driver.
func OpenPostgres(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	return db, nil
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS attribute_events (
    id            UUID        PRIMARY KEY,
    occurred_at   TIMESTAMPTZ NOT NULL,
    action        TEXT        NOT NULL,
    subject       BYTEA       NOT NULL,
    key           BYTEA       NOT NULL,
    value         BYTEA       NOT NULL,
    notes         BYTEA       NOT NULL,
    admin_address BYTEA       NOT NULL
);
CREATE INDEX IF NOT EXISTS attribute_events_subject_idx ON attribute_events (subject, occurred_at)`

// EnsureSchema creates the audit table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	buf := make([]byte, domain.KeyLen)
	if event.Value != nil {
		event.Value.FillBytes(buf)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attribute_events (id, occurred_at, action, subject, key, value, notes, admin_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.ID, event.Timestamp, string(event.Action),
		event.Subject[:], event.Key[:], buf, event.Notes[:], event.AdminAddress[:])
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject domain.Address) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, occurred_at, action, subject, key, value, notes, admin_address
		 FROM attribute_events WHERE subject = $1 ORDER BY occurred_at`,
		subject[:])
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e                          Event
			id                         uuid.UUID
			occurredAt                 time.Time
			action                     string
			subj, key, val, notes, adm []byte
		)
		if err := rows.Scan(&id, &occurredAt, &action, &subj, &key, &val, &notes, &adm); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.ID = id
		e.Timestamp = occurredAt
		e.Action = Action(action)
		copy(e.Subject[:], subj)
		copy(e.Key[:], key)
		e.Value = new(big.Int).SetBytes(val)
		copy(e.Notes[:], notes)
		copy(e.AdminAddress[:], adm)
		out = append(out, e)
	}
	return out, rows.Err()
}
