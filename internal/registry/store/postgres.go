package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"custos/internal/registry/models"
	"custos/pkg/domain"
	"custos/pkg/platform/sentinel"
)

// PostgresStore persists attribute records in PostgreSQL. Values are stored
// as 32-byte big-endian bytea so full 256-bit precision survives storage.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres constructs a PostgreSQL-backed attribute store.
func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const attributesSchema = `
CREATE TABLE IF NOT EXISTS attributes (
    subject       BYTEA       NOT NULL,
    key           BYTEA       NOT NULL,
    value         BYTEA       NOT NULL,
    notes         BYTEA       NOT NULL,
    admin_address BYTEA       NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (subject, key)
)`

// EnsureSchema creates the attributes table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, attributesSchema); err != nil {
		return fmt.Errorf("ensure attributes schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, subject domain.Address, key domain.AttributeKey) (models.AttributeRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT value, notes, admin_address, updated_at FROM attributes WHERE subject = $1 AND key = $2`,
		subject[:], key[:])
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AttributeRecord{}, sentinel.ErrNotFound
		}
		return models.AttributeRecord{}, fmt.Errorf("get attribute: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) Put(ctx context.Context, subject domain.Address, key domain.AttributeKey, rec models.AttributeRecord) (models.AttributeRecord, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.AttributeRecord{}, false, fmt.Errorf("begin put: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		prev    models.AttributeRecord
		existed bool
	)
	row := tx.QueryRow(ctx,
		`SELECT value, notes, admin_address, updated_at FROM attributes WHERE subject = $1 AND key = $2 FOR UPDATE`,
		subject[:], key[:])
	prev, err = scanRecord(row)
	switch {
	case err == nil:
		existed = true
	case errors.Is(err, pgx.ErrNoRows):
		prev = models.AttributeRecord{}
	default:
		return models.AttributeRecord{}, false, fmt.Errorf("read previous attribute: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO attributes (subject, key, value, notes, admin_address, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (subject, key) DO UPDATE
		 SET value = EXCLUDED.value, notes = EXCLUDED.notes,
		     admin_address = EXCLUDED.admin_address, updated_at = EXCLUDED.updated_at`,
		subject[:], key[:], valueBytes(rec.Value), rec.Notes[:], rec.AdminAddress[:], rec.Timestamp); err != nil {
		return models.AttributeRecord{}, false, fmt.Errorf("put attribute: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return models.AttributeRecord{}, false, fmt.Errorf("commit put: %w", err)
	}
	return prev, existed, nil
}

func (s *PostgresStore) Restore(ctx context.Context, subject domain.Address, key domain.AttributeKey, prev models.AttributeRecord, existed bool) error {
	if !existed {
		if _, err := s.pool.Exec(ctx,
			`DELETE FROM attributes WHERE subject = $1 AND key = $2`, subject[:], key[:]); err != nil {
			return fmt.Errorf("restore (remove staged): %w", err)
		}
		return nil
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO attributes (subject, key, value, notes, admin_address, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (subject, key) DO UPDATE
		 SET value = EXCLUDED.value, notes = EXCLUDED.notes,
		     admin_address = EXCLUDED.admin_address, updated_at = EXCLUDED.updated_at`,
		subject[:], key[:], valueBytes(prev.Value), prev.Notes[:], prev.AdminAddress[:], prev.Timestamp); err != nil {
		return fmt.Errorf("restore previous attribute: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.AttributeRecord, error) {
	var (
		value, notes, admin []byte
		updatedAt           time.Time
	)
	if err := row.Scan(&value, &notes, &admin, &updatedAt); err != nil {
		return models.AttributeRecord{}, err
	}
	rec := models.AttributeRecord{
		Value:     new(big.Int).SetBytes(value),
		Timestamp: updatedAt,
	}
	copy(rec.Notes[:], notes)
	copy(rec.AdminAddress[:], admin)
	return rec, nil
}

func valueBytes(v *big.Int) []byte {
	buf := make([]byte, domain.KeyLen)
	if v != nil {
		v.FillBytes(buf)
	}
	return buf
}
