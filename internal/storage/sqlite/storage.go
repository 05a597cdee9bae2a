// Package sqlite provides an embedded storage backend for single-node and
// development deployments. It implements the same repositories as the
// PostgreSQL backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
)

// DSN prefixes routed to this backend.
const (
	schemePrefix = "sqlite:"
	filePrefix   = "file:"

	txLockParam = "_txlock"
)

// Matches reports whether dsn selects the embedded backend.
func Matches(dsn string) bool {
	return strings.HasPrefix(dsn, schemePrefix) || strings.HasPrefix(dsn, filePrefix)
}

// dbtx is implemented by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Storage is a repository facade backed by SQLite.
type Storage struct {
	db          *sql.DB
	logger      *slog.Logger
	freeCredits int64
	now         func() time.Time
}

type ledgerRepository struct {
	storage *Storage
}

type paymentRepository struct {
	storage *Storage
}

type rowScanner interface {
	Scan(dest ...any) error
}

const paymentColumns = `checkout_id, user_id, phone, amount, credits_to_grant, attempt_count, status, result_desc, next_poll_at, created_at, updated_at`

// New opens the database and applies the schema.
func New(ctx context.Context, dsn string, freeCredits int64, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite", driverDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection keeps :memory: databases shared
	db.SetMaxOpenConns(1)

	storage := &Storage{db: db, logger: logger, freeCredits: freeCredits, now: time.Now}
	if err := storage.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}

// driverDSN strips the scheme prefix and makes every transaction take the
// write lock at BEGIN unless the DSN chooses a lock mode itself.
func driverDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, schemePrefix)
	if strings.Contains(dsn, txLockParam+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + txLockParam + "=immediate"
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS credits (
            user_id TEXT PRIMARY KEY,
            balance INTEGER NOT NULL CHECK (balance >= 0),
            updated_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL,
            delta INTEGER NOT NULL,
            reason TEXT NOT NULL,
            balance_after INTEGER NOT NULL,
            created_at INTEGER NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            checkout_id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            phone TEXT NOT NULL,
            amount INTEGER NOT NULL,
            credits_to_grant INTEGER NOT NULL,
            attempt_count INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            result_desc TEXT NOT NULL DEFAULT '',
            next_poll_at INTEGER NOT NULL,
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_due ON payments(status, next_poll_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_user_pending ON payments(user_id) WHERE status = 'pending'`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// withinTransaction runs fn in a transaction and commits when it returns nil.
func (s *Storage) withinTransaction(ctx context.Context, fn func(dbtx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}

func (s *Storage) stamp() int64 {
	return s.now().UnixMilli()
}

// --- LedgerRepository implementation ---

func (r *ledgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.storage.db.QueryRowContext(ctx, `SELECT balance FROM credits WHERE user_id = ?`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.storage.freeCredits, nil
		}
		return 0, err
	}
	return balance, nil
}

func (r *ledgerRepository) Adjust(ctx context.Context, userID string, delta int64, reason model.LedgerReason) (int64, error) {
	var balance int64
	err := r.storage.withinTransaction(ctx, func(tx dbtx) error {
		var err error
		balance, err = r.storage.adjustTx(ctx, tx, userID, delta, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *ledgerRepository) History(ctx context.Context, userID string, limit int) ([]model.LedgerEntry, error) {
	const query = `SELECT id, user_id, delta, reason, balance_after, created_at
                   FROM ledger_entries WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := r.storage.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LedgerEntry
	for rows.Next() {
		var (
			e         model.LedgerEntry
			reason    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &reason, &e.BalanceAfter, &createdAt); err != nil {
			return nil, err
		}
		e.Reason = model.LedgerReason(reason)
		e.CreatedAt = time.UnixMilli(createdAt)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Storage) adjustTx(ctx context.Context, tx dbtx, userID string, delta int64, reason model.LedgerReason) (int64, error) {
	now := s.stamp()
	const seed = `INSERT INTO credits (user_id, balance, updated_at) VALUES (?, ?, ?) ON CONFLICT(user_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, seed, userID, s.freeCredits, now); err != nil {
		return 0, err
	}

	var current int64
	if err := tx.QueryRowContext(ctx, `SELECT balance FROM credits WHERE user_id = ?`, userID).Scan(&current); err != nil {
		return 0, err
	}

	next := current + delta
	if next < 0 {
		return 0, domainErrors.ErrInsufficientCredits
	}
	if delta == 0 {
		return current, nil
	}

	if _, err := tx.ExecContext(ctx, `UPDATE credits SET balance = ?, updated_at = ? WHERE user_id = ?`, next, now, userID); err != nil {
		return 0, err
	}
	const journal = `INSERT INTO ledger_entries (user_id, delta, reason, balance_after, created_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, journal, userID, delta, string(reason), next, now); err != nil {
		return 0, err
	}
	return next, nil
}

// --- PaymentRepository implementation ---

func scanPayment(row rowScanner) (*model.PaymentRequest, error) {
	var (
		p                            model.PaymentRequest
		status                       string
		nextPoll, created, updatedAt int64
	)
	err := row.Scan(&p.CheckoutID, &p.UserID, &p.Phone, &p.AmountRequested, &p.CreditsToGrant, &p.AttemptCount,
		&status, &p.ResultDesc, &nextPoll, &created, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	p.NextPollAt = time.UnixMilli(nextPoll)
	p.CreatedAt = time.UnixMilli(created)
	p.UpdatedAt = time.UnixMilli(updatedAt)
	return &p, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.PaymentRequest) error {
	now := r.storage.now()
	const query = `INSERT INTO payments (checkout_id, user_id, phone, amount, credits_to_grant, attempt_count, status, result_desc, next_poll_at, created_at, updated_at)
                   VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.storage.db.ExecContext(ctx, query,
		payment.CheckoutID, payment.UserID, payment.Phone, payment.AmountRequested, payment.CreditsToGrant,
		payment.AttemptCount, string(payment.Status), payment.ResultDesc, payment.NextPollAt.UnixMilli(),
		now.UnixMilli(), now.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	payment.CreatedAt = time.UnixMilli(now.UnixMilli())
	payment.UpdatedAt = payment.CreatedAt
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, checkoutID string) (*model.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_id = ?`
	p, err := scanPayment(r.storage.db.QueryRowContext(ctx, query, checkoutID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) ActiveByUser(ctx context.Context, userID string) (*model.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = ? AND status = 'pending'
              ORDER BY created_at DESC LIMIT 1`
	p, err := scanPayment(r.storage.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) ClaimDue(ctx context.Context, dueBy, leaseUntil time.Time, limit int) ([]model.PaymentRequest, error) {
	selectQuery := `SELECT ` + paymentColumns + ` FROM payments
                    WHERE status = 'pending' AND next_poll_at <= ?
                    ORDER BY next_poll_at LIMIT ?`
	lease := leaseUntil.UnixMilli()

	var payments []model.PaymentRequest
	err := r.storage.withinTransaction(ctx, func(tx dbtx) error {
		rows, err := tx.QueryContext(ctx, selectQuery, dueBy.UnixMilli(), limit)
		if err != nil {
			return err
		}
		var claimed []model.PaymentRequest
		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				_ = rows.Close()
				return err
			}
			claimed = append(claimed, *p)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()

		for i := range claimed {
			if _, err := tx.ExecContext(ctx, `UPDATE payments SET next_poll_at = ? WHERE checkout_id = ? AND status = 'pending'`,
				lease, claimed[i].CheckoutID); err != nil {
				return err
			}
			claimed[i].NextPollAt = time.UnixMilli(lease)
		}
		payments = claimed
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payments, nil
}

func (r *paymentRepository) RecordAttempt(ctx context.Context, checkoutID string, nextPollAt time.Time) (bool, error) {
	const query = `UPDATE payments SET attempt_count = attempt_count + 1, next_poll_at = ?, updated_at = ?
                   WHERE checkout_id = ? AND status = 'pending'`
	res, err := r.storage.db.ExecContext(ctx, query, nextPollAt.UnixMilli(), r.storage.stamp(), checkoutID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *paymentRepository) Finish(ctx context.Context, checkoutID string, status model.PaymentStatus, desc string, attempts int) (bool, error) {
	const query = `UPDATE payments SET status = ?, result_desc = ?, attempt_count = ?, updated_at = ?
                   WHERE checkout_id = ? AND status = 'pending'`
	res, err := r.storage.db.ExecContext(ctx, query, string(status), desc, attempts, r.storage.stamp(), checkoutID)
	if err != nil {
		return false, err
	}
	return affectedOne(res)
}

func (r *paymentRepository) Succeed(ctx context.Context, checkoutID string, desc string, attempts int) (int64, bool, error) {
	const transition = `UPDATE payments SET status = 'succeeded', result_desc = ?, attempt_count = ?, updated_at = ?
                        WHERE checkout_id = ? AND status = 'pending'
                        RETURNING user_id, credits_to_grant`
	var (
		balance int64
		applied bool
	)
	err := r.storage.withinTransaction(ctx, func(tx dbtx) error {
		var (
			userID  string
			credits int64
		)
		err := tx.QueryRowContext(ctx, transition, desc, attempts, r.storage.stamp(), checkoutID).Scan(&userID, &credits)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}
		balance, err = r.storage.adjustTx(ctx, tx, userID, credits, model.LedgerReasonPaymentGrant)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	return balance, applied, nil
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
