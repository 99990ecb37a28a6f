package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"flowerbot/internal/core"
	"flowerbot/internal/ledger"
	applog "flowerbot/internal/log"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("transaction not found")

type SQLiteRepository struct {
	db     *sql.DB
	loc    *time.Location
	logger *applog.Logger
}

// PendingSync is a row that has not reached the Sheets ledger yet.
type PendingSync struct {
	ID        int64
	CreatedAt time.Time
}

var _ ledger.Store = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations. Timestamps are returned in loc. A nil logger discards.
func NewSQLiteRepository(dbPath string, loc *time.Location, logger *applog.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = applog.Discard()
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, loc: loc, logger: logger.WithComponent(applog.ComponentStorage)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.Writer. The returned reference is the row id.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	ts := tx.Timestamp.In(r.loc)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (timestamp, seller, action, counterparty, amount, price, week_id, page)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.Format(time.RFC3339Nano),
		tx.Seller,
		tx.Action.String(),
		tx.Counterparty,
		tx.Amount.String(),
		tx.Price.String(),
		core.WeekID(ts),
		ledger.PageName(ts),
	)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved to SQLite",
		applog.NewFields().
			WithOperation(applog.OpAppend).
			WithTransaction(tx.Seller, tx.Action.String(), tx.Amount.String(), tx.Price.String()).
			ToSlice()...)

	return strconv.FormatInt(id, 10), nil
}

// LoadAll implements ledger.Reader, in insertion order.
func (r *SQLiteRepository) LoadAll(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT timestamp, seller, action, counterparty, amount, price FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns one row by id.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT timestamp, seller, action, counterparty, amount, price FROM transactions WHERE id = ?`, id)
	tx, err := r.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return tx, err
}

// GetPendingSync returns up to limit rows not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingSync, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at FROM transactions WHERE sync_status = 'pending' ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync: %w", err)
	}
	defer rows.Close()

	var out []PendingSync
	for rows.Next() {
		var (
			p         PendingSync
			createdAt string
		)
		if err := rows.Scan(&p.ID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan pending sync: %w", err)
		}
		p.CreatedAt = parseDBTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkSynced records that the row reached the Sheets ledger at ref.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64, ref string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced', sheets_ref = ? WHERE id = ?`, ref, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	r.logger.InfoContext(ctx, "Transaction marked as synced",
		applog.FieldOperation, applog.OpSync, applog.FieldTxID, id, applog.FieldRowRef, ref)
	return nil
}

// ClaimForSync moves a pending row to syncing and reports whether this
// caller won it. Only the winner may append the row to Sheets. A row that
// does not exist yields ErrNotFound.
func (r *SQLiteRepository) ClaimForSync(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'syncing' WHERE id = ? AND sync_status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("claim transaction for sync: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows affected: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	var status string
	err = r.db.QueryRowContext(ctx, `SELECT sync_status FROM transactions WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("get sync status: %w", err)
	}
	return false, nil
}

// ReleaseClaim returns a claimed row to pending after a failed append.
func (r *SQLiteRepository) ReleaseClaim(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'pending' WHERE id = ? AND sync_status = 'syncing'`, id); err != nil {
		return fmt.Errorf("release sync claim: %w", err)
	}
	return nil
}

// ResetStaleClaims returns every syncing row to pending. Call it only while
// no sync is running, i.e. at worker start after a crash.
func (r *SQLiteRepository) ResetStaleClaims(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'pending' WHERE sync_status = 'syncing'`)
	if err != nil {
		return 0, fmt.Errorf("reset stale sync claims: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rows affected: %w", err)
	}
	if n > 0 {
		r.logger.WarnContext(ctx, "Returned interrupted syncs to pending",
			applog.FieldOperation, applog.OpStartup, "count", n)
	}
	return n, nil
}

// MarkSyncError parks a row that failed to sync so the backstop skips it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	return nil
}

// IsSynced reports whether the row has been mirrored already.
func (r *SQLiteRepository) IsSynced(ctx context.Context, id int64) (bool, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT sync_status FROM transactions WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return false, fmt.Errorf("get sync status: %w", err)
	}
	return status == "synced", nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepository) scan(s scanner) (core.Transaction, error) {
	var ts, seller, action, counterparty, amount, price string
	if err := s.Scan(&ts, &seller, &action, &counterparty, &amount, &price); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, err
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	act, err := core.ParseAction(action)
	if err != nil {
		return core.Transaction{}, err
	}
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	prc, err := decimal.NewFromString(price)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return core.Transaction{
		Timestamp:    t.In(r.loc),
		Seller:       seller,
		Action:       act,
		Counterparty: counterparty,
		Amount:       amt,
		Price:        prc,
	}, nil
}

// parseDBTime accepts both the driver's RFC 3339 rendering and SQLite's
// CURRENT_TIMESTAMP text. Unparseable values yield the zero time.
func parseDBTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.DateTime} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
