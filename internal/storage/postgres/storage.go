package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/Blu-Chips/Invoice-Extractor/internal/domain/errors"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/model"
	"github.com/Blu-Chips/Invoice-Extractor/internal/domain/repository"
)

// pgxPool is the subset of *pgxpool.Pool used by Storage.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool        pgxPool
	logger      *slog.Logger
	freeCredits int64
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

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, freeCredits int64, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger, freeCredits: freeCredits}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Ledger() repository.LedgerRepository {
	return &ledgerRepository{storage: s}
}

func (s *Storage) Payments() repository.PaymentRepository {
	return &paymentRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS credits (
            user_id TEXT PRIMARY KEY,
            balance BIGINT NOT NULL CHECK (balance >= 0),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS ledger_entries (
            id BIGSERIAL PRIMARY KEY,
            user_id TEXT NOT NULL,
            delta BIGINT NOT NULL,
            reason TEXT NOT NULL,
            balance_after BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS payments (
            checkout_id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            phone TEXT NOT NULL,
            amount BIGINT NOT NULL,
            credits_to_grant BIGINT NOT NULL,
            attempt_count INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            result_desc TEXT NOT NULL DEFAULT '',
            next_poll_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_entries_user ON ledger_entries(user_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_due ON payments(status, next_poll_at)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_user_pending ON payments(user_id) WHERE status = 'pending'`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// --- LedgerRepository implementation ---

func (r *ledgerRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	const query = `SELECT balance FROM credits WHERE user_id=$1`
	var balance int64
	err := r.storage.pool.QueryRow(ctx, query, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.storage.freeCredits, nil
		}
		return 0, err
	}
	return balance, nil
}

func (r *ledgerRepository) Adjust(ctx context.Context, userID string, delta int64, reason model.LedgerReason) (int64, error) {
	var balance int64
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
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
                   FROM ledger_entries WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.storage.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Delta, &e.Reason, &e.BalanceAfter, &e.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// adjustTx seeds the free allotment, locks the balance row and applies delta.
func (s *Storage) adjustTx(ctx context.Context, tx pgx.Tx, userID string, delta int64, reason model.LedgerReason) (int64, error) {
	const seed = `INSERT INTO credits (user_id, balance) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`
	if _, err := tx.Exec(ctx, seed, userID, s.freeCredits); err != nil {
		return 0, err
	}

	const lock = `SELECT balance FROM credits WHERE user_id=$1 FOR UPDATE`
	var current int64
	if err := tx.QueryRow(ctx, lock, userID).Scan(&current); err != nil {
		return 0, err
	}

	next := current + delta
	if next < 0 {
		return 0, domainErrors.ErrInsufficientCredits
	}
	if delta == 0 {
		return current, nil
	}

	const update = `UPDATE credits SET balance=$2, updated_at=NOW() WHERE user_id=$1`
	if _, err := tx.Exec(ctx, update, userID, next); err != nil {
		return 0, err
	}

	const journal = `INSERT INTO ledger_entries (user_id, delta, reason, balance_after) VALUES ($1, $2, $3, $4)`
	if _, err := tx.Exec(ctx, journal, userID, delta, reason, next); err != nil {
		return 0, err
	}
	return next, nil
}

// --- PaymentRepository implementation ---

func scanPayment(row rowScanner) (*model.PaymentRequest, error) {
	var p model.PaymentRequest
	err := row.Scan(&p.CheckoutID, &p.UserID, &p.Phone, &p.AmountRequested, &p.CreditsToGrant, &p.AttemptCount,
		&p.Status, &p.ResultDesc, &p.NextPollAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.PaymentRequest) error {
	const query = `INSERT INTO payments (checkout_id, user_id, phone, amount, credits_to_grant, attempt_count, status, result_desc, next_poll_at)
                   VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
                   RETURNING created_at, updated_at`
	err := r.storage.pool.QueryRow(ctx, query,
		payment.CheckoutID, payment.UserID, payment.Phone, payment.AmountRequested, payment.CreditsToGrant,
		payment.AttemptCount, payment.Status, payment.ResultDesc, payment.NextPollAt,
	).Scan(&payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *paymentRepository) Get(ctx context.Context, checkoutID string) (*model.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE checkout_id=$1`
	p, err := scanPayment(r.storage.pool.QueryRow(ctx, query, checkoutID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) ActiveByUser(ctx context.Context, userID string) (*model.PaymentRequest, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id=$1 AND status='pending'
              ORDER BY created_at DESC LIMIT 1`
	p, err := scanPayment(r.storage.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) ClaimDue(ctx context.Context, dueBy, leaseUntil time.Time, limit int) ([]model.PaymentRequest, error) {
	selectQuery := `SELECT ` + paymentColumns + `
                    FROM payments
                    WHERE status='pending' AND next_poll_at <= $1
                    ORDER BY next_poll_at
                    LIMIT $2
                    FOR UPDATE SKIP LOCKED`
	const leaseQuery = `UPDATE payments SET next_poll_at=$2 WHERE checkout_id=$1`

	var payments []model.PaymentRequest
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, selectQuery, dueBy, limit)
		if err != nil {
			return err
		}

		var claimed []model.PaymentRequest
		for rows.Next() {
			p, err := scanPayment(rows)
			if err != nil {
				rows.Close()
				return err
			}
			claimed = append(claimed, *p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for i := range claimed {
			if _, err := tx.Exec(ctx, leaseQuery, claimed[i].CheckoutID, leaseUntil); err != nil {
				return err
			}
			claimed[i].NextPollAt = leaseUntil
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
	const query = `UPDATE payments SET attempt_count=attempt_count+1, next_poll_at=$2, updated_at=NOW()
                   WHERE checkout_id=$1 AND status='pending'`
	tag, err := r.storage.pool.Exec(ctx, query, checkoutID, nextPollAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) Finish(ctx context.Context, checkoutID string, status model.PaymentStatus, desc string, attempts int) (bool, error) {
	const query = `UPDATE payments SET status=$2, result_desc=$3, attempt_count=$4, updated_at=NOW()
                   WHERE checkout_id=$1 AND status='pending'`
	tag, err := r.storage.pool.Exec(ctx, query, checkoutID, status, desc, attempts)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepository) Succeed(ctx context.Context, checkoutID string, desc string, attempts int) (int64, bool, error) {
	const transition = `UPDATE payments SET status='succeeded', result_desc=$2, attempt_count=$3, updated_at=NOW()
                        WHERE checkout_id=$1 AND status='pending'
                        RETURNING user_id, credits_to_grant`

	var (
		balance int64
		applied bool
	)
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var (
			userID  string
			credits int64
		)
		if err := tx.QueryRow(ctx, transition, checkoutID, desc, attempts).Scan(&userID, &credits); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return err
		}
		var err error
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

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
