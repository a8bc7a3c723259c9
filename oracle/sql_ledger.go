package oracle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ruteri/entropy-vault/interfaces"

	_ "modernc.org/sqlite"
)

// SQLLedger implements Ledger using database/sql. It is used with the pure-Go
// SQLite driver but only relies on portable SQL.
type SQLLedger struct {
	db *sql.DB
}

// NewSQLLedger wraps db and creates the schema if needed.
func NewSQLLedger(ctx context.Context, db *sql.DB) (*SQLLedger, error) {
	l := &SQLLedger{db: db}
	if err := l.migrate(ctx); err != nil {
		return nil, fmt.Errorf("could not migrate ledger: %w", err)
	}
	return l, nil
}

// OpenSQLiteLedger opens (or creates) a SQLite ledger at path. Use ":memory:"
// for an ephemeral database.
func OpenSQLiteLedger(ctx context.Context, path string) (*SQLLedger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	l, err := NewSQLLedger(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS entropy_requests (
	id BLOB PRIMARY KEY,
	seq INTEGER NOT NULL UNIQUE,
	tag BLOB NOT NULL,
	requester BLOB NOT NULL,
	fee_paid TEXT NOT NULL,
	status TEXT NOT NULL,
	value BLOB,
	created_at INTEGER NOT NULL,
	fulfilled_at INTEGER
);
CREATE TABLE IF NOT EXISTS master_seed (
	id INTEGER PRIMARY KEY CHECK (id = 0),
	seed BLOB NOT NULL
);`

func (l *SQLLedger) migrate(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, schema)
	return err
}

func (l *SQLLedger) Insert(ctx context.Context, req interfaces.EntropyRequest) error {
	query := `
		INSERT INTO entropy_requests (id, seq, tag, requester, fee_paid, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := l.db.ExecContext(ctx, query,
		req.ID.Bytes(), int64(req.Seq), req.Tag[:], req.Requester.Bytes(),
		feeString(req.FeePaid), interfaces.StatusRequested.String(), req.CreatedAt.UnixNano(),
	)
	return err
}

func (l *SQLLedger) Get(ctx context.Context, id interfaces.RequestID) (interfaces.EntropyRequest, error) {
	query := `SELECT id, seq, tag, requester, fee_paid, status, value, created_at, fulfilled_at FROM entropy_requests WHERE id = ?`
	req, err := scanRequest(l.db.QueryRowContext(ctx, query, id.Bytes()))
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.EntropyRequest{}, interfaces.ErrUnknownRequest
	}
	return req, err
}

func (l *SQLLedger) Fulfill(ctx context.Context, id interfaces.RequestID, value interfaces.Ciphertext, at time.Time) error {
	query := `
		UPDATE entropy_requests
		SET status = ?, value = ?, fulfilled_at = ?
		WHERE id = ? AND status = ?
	`
	res, err := l.db.ExecContext(ctx, query,
		interfaces.StatusFulfilled.String(), []byte(value), at.UnixNano(),
		id.Bytes(), interfaces.StatusRequested.String(),
	)
	if err != nil {
		return err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 1 {
		return nil
	}

	// Nothing updated: either the id is unknown or it was already fulfilled.
	if _, err := l.Get(ctx, id); err != nil {
		return err
	}
	return interfaces.ErrAlreadyFulfilled
}

func (l *SQLLedger) Count(ctx context.Context) (uint64, error) {
	var count int64
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entropy_requests`).Scan(&count); err != nil {
		return 0, err
	}
	return uint64(count), nil
}

func (l *SQLLedger) ListPending(ctx context.Context) ([]interfaces.EntropyRequest, error) {
	query := `SELECT id, seq, tag, requester, fee_paid, status, value, created_at, fulfilled_at FROM entropy_requests WHERE status = ? ORDER BY seq`
	rows, err := l.db.QueryContext(ctx, query, interfaces.StatusRequested.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]interfaces.EntropyRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *SQLLedger) Close() error {
	return l.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (interfaces.EntropyRequest, error) {
	var (
		id, tag, requester []byte
		seq, createdAt     int64
		fee, status        string
		value              []byte
		fulfilledAt        sql.NullInt64
	)
	if err := row.Scan(&id, &seq, &tag, &requester, &fee, &status, &value, &createdAt, &fulfilledAt); err != nil {
		return interfaces.EntropyRequest{}, err
	}

	req := interfaces.EntropyRequest{
		Seq:       uint64(seq),
		CreatedAt: time.Unix(0, createdAt).UTC(),
	}
	copy(req.ID[:], id)
	copy(req.Tag[:], tag)
	copy(req.Requester[:], requester)

	feePaid, ok := new(big.Int).SetString(fee, 10)
	if !ok {
		return interfaces.EntropyRequest{}, fmt.Errorf("corrupt fee %q for request %x", fee, id)
	}
	req.FeePaid = feePaid

	parsedStatus, err := interfaces.ParseRequestStatus(status)
	if err != nil {
		return interfaces.EntropyRequest{}, err
	}
	req.Status = parsedStatus

	if req.Fulfilled() {
		req.Value = append(interfaces.Ciphertext{}, value...)
		if fulfilledAt.Valid {
			req.FulfilledAt = time.Unix(0, fulfilledAt.Int64).UTC()
		}
	}
	return req, nil
}

func feeString(fee *big.Int) string {
	if fee == nil {
		return "0"
	}
	return fee.String()
}
