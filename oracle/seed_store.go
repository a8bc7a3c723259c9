package oracle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ruteri/entropy-vault/interfaces"
)

// The ledger database also keeps the engine's master seed, so one sqlite file
// carries all state a restarted server needs besides the value records.

// LoadSeed implements entropy.SeedStore.
func (l *SQLLedger) LoadSeed(ctx context.Context) (interfaces.Ciphertext, error) {
	var seed []byte
	err := l.db.QueryRowContext(ctx, `SELECT seed FROM master_seed WHERE id = 0`).Scan(&seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return interfaces.Ciphertext(seed), nil
}

// SaveSeed implements entropy.SeedStore.
func (l *SQLLedger) SaveSeed(ctx context.Context, seed interfaces.Ciphertext) error {
	query := `
		INSERT INTO master_seed (id, seed)
		SELECT 0, ? WHERE NOT EXISTS (SELECT 1 FROM master_seed)
	`
	res, err := l.db.ExecContext(ctx, query, []byte(seed))
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return interfaces.ErrAlreadyInitialized
	}
	return nil
}
