package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/honeynil/BizPromptService/internal/models"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const transactionColumns = `id, session_id, user_id, email, amount, currency, product_name, payment_status, payment_intent_id, provider_status, metadata, created_at, updated_at, completed_at`

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.PaymentTransaction) (err error) {
	ctx, span, done := observe(ctx, "transaction-repository", "CreateTransaction")
	defer func() { done(err) }()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}
	if tx.PaymentStatus != models.PaymentPending {
		err = pkgerrors.ErrInvalidTransactionStatus
		slog.Error("invalid initial transaction status", "method", "Create", "status", tx.PaymentStatus, "error", err)
		return err
	}
	if !tx.Amount.IsPositive() {
		err = fmt.Errorf("amount must be positive")
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount.String(), "error", err)
		return err
	}

	span.SetAttributes(
		attribute.String("session_id", tx.SessionID),
		attribute.String("email", tx.Email),
		attribute.String("amount", tx.Amount.StringFixed(2)),
	)

	metadata, err := json.Marshal(tx.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO payment_transactions (id, session_id, user_id, email, amount, currency, product_name, payment_status, metadata) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (session_id) DO NOTHING RETURNING created_at, updated_at`
	err = dbTx.QueryRowContext(ctx, query,
		tx.ID, tx.SessionID, nullString(tx.UserID), tx.Email, tx.Amount, tx.Currency, tx.ProductName, tx.PaymentStatus, metadata,
	).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			err = pkgerrors.ErrDuplicateSession
		}
		if rbErr := dbTx.Rollback(); rbErr != nil {
			err = fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
			slog.Error("rollback failed", "method", "Create", "error", rbErr)
		} else {
			slog.Error("failed to create transaction", "method", "Create", "session_id", tx.SessionID, "error", err)
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "Create", "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "id", tx.ID, "session_id", tx.SessionID, "email", tx.Email, "amount", tx.Amount.StringFixed(2))
	return nil
}

func (r *PostgresTransactionRepository) GetBySessionID(ctx context.Context, sessionID string) (tx *models.PaymentTransaction, err error) {
	ctx, span, done := observe(ctx, "transaction-repository", "GetTransactionBySessionID")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("session_id", sessionID))

	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE session_id = $1`
	tx, err = scanTransaction(r.db.QueryRowContext(ctx, query, sessionID))
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("transaction not found", "method", "GetBySessionID", "session_id", sessionID)
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction by session id", "method", "GetBySessionID", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to get transaction by session id: %w", err)
	}
	return tx, nil
}

func (r *PostgresTransactionRepository) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (tx *models.PaymentTransaction, err error) {
	ctx, span, done := observe(ctx, "transaction-repository", "GetTransactionByPaymentIntentID")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("payment_intent_id", paymentIntentID))

	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE payment_intent_id = $1`
	tx, err = scanTransaction(r.db.QueryRowContext(ctx, query, paymentIntentID))
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if err != nil {
		slog.Error("failed to get transaction by payment intent", "method", "GetByPaymentIntentID", "payment_intent_id", paymentIntentID, "error", err)
		return nil, fmt.Errorf("failed to get transaction by payment intent: %w", err)
	}
	return tx, nil
}

// Transition moves a transaction from one status to another in a single
// conditional UPDATE. It returns ErrStatusConflict when the stored status is no
// longer `from`, so exactly one of several racing callers wins.
func (r *PostgresTransactionRepository) Transition(ctx context.Context, sessionID string, from, to models.PaymentStatus, upd models.TransitionUpdate) (tx *models.PaymentTransaction, err error) {
	ctx, span, done := observe(ctx, "transaction-repository", "TransitionTransaction")
	defer func() { done(err) }()
	span.SetAttributes(
		attribute.String("session_id", sessionID),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	)

	if err = models.CheckTransition(from, to); err != nil {
		return nil, err
	}

	var completedAt sql.NullTime
	if to == models.PaymentCompleted {
		completedAt = sql.NullTime{Time: upd.At, Valid: true}
	}

	query := `
		UPDATE payment_transactions
		SET payment_status = $3,
			completed_at = $4,
			payment_intent_id = COALESCE(NULLIF($5, ''), payment_intent_id),
			provider_status = COALESCE(NULLIF($6, ''), provider_status),
			updated_at = $7
		WHERE session_id = $1 AND payment_status = $2
		RETURNING ` + transactionColumns
	tx, err = scanTransaction(r.db.QueryRowContext(ctx, query,
		sessionID, from, to, completedAt, upd.PaymentIntentID, upd.ProviderStatus, upd.At,
	))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrStatusConflict
		slog.Warn("transition lost: stored status changed", "method", "Transition", "session_id", sessionID, "from", from, "to", to)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to transition transaction", "method", "Transition", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to transition transaction: %w", err)
	}

	slog.Info("transaction transitioned", "method", "Transition", "session_id", sessionID, "from", from, "to", to)
	return tx, nil
}

func (r *PostgresTransactionRepository) UpdateProviderFields(ctx context.Context, sessionID, paymentIntentID, providerStatus string) (err error) {
	ctx, _, done := observe(ctx, "transaction-repository", "UpdateProviderFields")
	defer func() { done(err) }()

	query := `
		UPDATE payment_transactions
		SET payment_intent_id = COALESCE(NULLIF($2, ''), payment_intent_id),
			provider_status = COALESCE(NULLIF($3, ''), provider_status),
			updated_at = NOW()
		WHERE session_id = $1`
	res, err := r.db.ExecContext(ctx, query, sessionID, paymentIntentID, providerStatus)
	if err != nil {
		slog.Error("failed to update provider fields", "method", "UpdateProviderFields", "session_id", sessionID, "error", err)
		return fmt.Errorf("failed to update provider fields: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update provider fields: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrTransactionNotFound
		return err
	}
	return nil
}

func (r *PostgresTransactionRepository) List(ctx context.Context, limit int) (txs []models.PaymentTransaction, err error) {
	ctx, _, done := observe(ctx, "transaction-repository", "ListTransactions")
	defer func() { done(err) }()

	query := `SELECT ` + transactionColumns + ` FROM payment_transactions ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		slog.Error("failed to list transactions", "method", "List", "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs = []models.PaymentTransaction{}
	for rows.Next() {
		tx, scanErr := scanTransaction(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (r *PostgresTransactionRepository) SumCompleted(ctx context.Context) (total decimal.Decimal, err error) {
	ctx, _, done := observe(ctx, "transaction-repository", "SumCompleted")
	defer func() { done(err) }()

	query := `SELECT COALESCE(SUM(amount), 0) FROM payment_transactions WHERE payment_status = 'completed'`
	if err = r.db.QueryRowContext(ctx, query).Scan(&total); err != nil {
		slog.Error("failed to sum revenue", "method", "SumCompleted", "error", err)
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return total, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.PaymentTransaction, error) {
	var (
		tx          models.PaymentTransaction
		userID      sql.NullString
		intentID    sql.NullString
		provider    sql.NullString
		metadata    []byte
		completedAt sql.NullTime
	)
	err := row.Scan(
		&tx.ID, &tx.SessionID, &userID, &tx.Email, &tx.Amount, &tx.Currency, &tx.ProductName,
		&tx.PaymentStatus, &intentID, &provider, &metadata, &tx.CreatedAt, &tx.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if !tx.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: stored status %q", pkgerrors.ErrInvalidTransactionStatus, tx.PaymentStatus)
	}
	tx.UserID = stringPtr(userID)
	tx.PaymentIntentID = stringPtr(intentID)
	tx.ProviderStatus = stringPtr(provider)
	if completedAt.Valid {
		t := completedAt.Time
		tx.CompletedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
	}
	return &tx, nil
}

func nullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
