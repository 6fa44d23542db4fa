package database

import (
	"context"
	"contract-orchestrator/internal/interfaces"
	"database/sql"
	"errors"
	"fmt"
)

var _ interfaces.IdempotencyStore = (*DB)(nil)

// Reserve claims key, taking over a row whose reservation expired
func (db *DB) Reserve(ctx context.Context, key, operation string) (bool, string, error) {
	now := db.now().UTC()
	var claimed string
	err := db.conn.QueryRowContext(ctx, `
		INSERT INTO submissions (idempotency_key, operation, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO UPDATE
		SET operation = EXCLUDED.operation, tx_hash = NULL,
		    created_at = EXCLUDED.created_at, expires_at = EXCLUDED.expires_at
		WHERE submissions.expires_at <= $3
		RETURNING idempotency_key
	`, key, operation, now, now.Add(db.ttl)).Scan(&claimed)
	if err == nil {
		return true, "", nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, "", fmt.Errorf("failed to reserve idempotency key: %w", err)
	}

	var txHash sql.NullString
	err = db.conn.QueryRowContext(ctx, `
		SELECT tx_hash FROM submissions WHERE idempotency_key = $1
	`, key).Scan(&txHash)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, "", fmt.Errorf("failed to read idempotency key: %w", err)
	}
	return false, txHash.String, nil
}

func (db *DB) Record(ctx context.Context, key, txHash string) error {
	_, err := db.conn.ExecContext(ctx, `
		UPDATE submissions SET tx_hash = $2 WHERE idempotency_key = $1
	`, key, txHash)
	return err
}

func (db *DB) Release(ctx context.Context, key string) error {
	_, err := db.conn.ExecContext(ctx, `
		DELETE FROM submissions WHERE idempotency_key = $1 AND tx_hash IS NULL
	`, key)
	return err
}
