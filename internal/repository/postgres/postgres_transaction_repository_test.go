package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/honeynil/BizPromptService/internal/models"
	repository "github.com/honeynil/BizPromptService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

var transactionCols = []string{
	"id", "session_id", "user_id", "email", "amount", "currency", "product_name", "payment_status",
	"payment_intent_id", "provider_status", "metadata", "created_at", "updated_at", "completed_at",
}

func pendingTx() *models.PaymentTransaction {
	return &models.PaymentTransaction{
		ID:            "tx-1",
		SessionID:     "cs_test_1",
		Email:         "buyer@example.com",
		Amount:        decimal.RequireFromString("37.00"),
		Currency:      "usd",
		ProductName:   "BizPromptAI - 47 AI Business Prompts (Presale)",
		PaymentStatus: models.PaymentPending,
		Metadata:      map[string]string{"product_type": "presale"},
	}
}

func TestPostgresTransactionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	insert := regexp.QuoteMeta(`INSERT INTO payment_transactions (id, session_id, user_id, email, amount, currency, product_name, payment_status, metadata)`)

	t.Run("NilTransaction", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrNilTransaction)
	})

	t.Run("NotPending", func(t *testing.T) {
		tx := pendingTx()
		tx.PaymentStatus = models.PaymentCompleted
		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
	})

	t.Run("InvalidAmount", func(t *testing.T) {
		tx := pendingTx()
		tx.Amount = decimal.Zero
		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "amount must be positive")
	})

	t.Run("Success", func(t *testing.T) {
		tx := pendingTx()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).
			WithArgs(tx.ID, tx.SessionID, nil, tx.Email, tx.Amount, tx.Currency, tx.ProductName, tx.PaymentStatus, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit()

		err := repo.Create(ctx, tx)
		assert.NoError(t, err)
		assert.WithinDuration(t, now, tx.CreatedAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateSession", func(t *testing.T) {
		tx := pendingTx()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
		mock.ExpectRollback()

		err := repo.Create(ctx, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateSession)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackError", func(t *testing.T) {
		tx := pendingTx()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback().WillReturnError(fmt.Errorf("rollback error"))

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rollback failed")
		assert.Contains(t, err.Error(), "database error")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitError", func(t *testing.T) {
		tx := pendingTx()
		now := time.Now().UTC()
		mock.ExpectBegin()
		mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
		mock.ExpectCommit().WillReturnError(fmt.Errorf("commit error"))

		err := repo.Create(ctx, tx)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_GetBySessionID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`FROM payment_transactions WHERE session_id = $1`)

	t.Run("Found", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs("cs_test_1").
			WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
				"tx-1", "cs_test_1", "user-1", "buyer@example.com", "37.00", "usd", "Presale",
				"completed", "pi_1", "complete", []byte(`{"product_type":"presale"}`), now, now, now,
			))

		tx, err := repo.GetBySessionID(ctx, "cs_test_1")
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, tx.PaymentStatus)
		assert.True(t, tx.Amount.Equal(decimal.RequireFromString("37")))
		require.NotNil(t, tx.UserID)
		assert.Equal(t, "user-1", *tx.UserID)
		require.NotNil(t, tx.PaymentIntentID)
		assert.Equal(t, "pi_1", *tx.PaymentIntentID)
		assert.NotNil(t, tx.CompletedAt)
		assert.Equal(t, "presale", tx.Metadata["product_type"])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NullableColumns", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs("cs_test_2").
			WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
				"tx-2", "cs_test_2", nil, "buyer@example.com", "47.00", "usd", "Regular",
				"pending", nil, nil, nil, now, now, nil,
			))

		tx, err := repo.GetBySessionID(ctx, "cs_test_2")
		require.NoError(t, err)
		assert.Nil(t, tx.UserID)
		assert.Nil(t, tx.PaymentIntentID)
		assert.Nil(t, tx.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownStoredStatus", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs("cs_test_3").
			WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
				"tx-3", "cs_test_3", nil, "buyer@example.com", "37.00", "usd", "Presale",
				"disputed", nil, nil, nil, now, now, nil,
			))

		_, err := repo.GetBySessionID(ctx, "cs_test_3")
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransactionStatus)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("missing").WillReturnError(sql.ErrNoRows)

		tx, err := repo.GetBySessionID(ctx, "missing")
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_Transition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	update := regexp.QuoteMeta(`WHERE session_id = $1 AND payment_status = $2`)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("CompletedStampsCompletedAt", func(t *testing.T) {
		mock.ExpectQuery(update).
			WithArgs("cs_test_1", models.PaymentPending, models.PaymentCompleted,
				sql.NullTime{Time: at, Valid: true}, "pi_1", "complete", at).
			WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
				"tx-1", "cs_test_1", nil, "buyer@example.com", "37.00", "usd", "Presale",
				"completed", "pi_1", "complete", nil, at, at, at,
			))

		tx, err := repo.Transition(ctx, "cs_test_1", models.PaymentPending, models.PaymentCompleted,
			models.TransitionUpdate{PaymentIntentID: "pi_1", ProviderStatus: "complete", At: at})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentCompleted, tx.PaymentStatus)
		require.NotNil(t, tx.CompletedAt)
		assert.True(t, at.Equal(*tx.CompletedAt))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CancelledClearsCompletedAt", func(t *testing.T) {
		mock.ExpectQuery(update).
			WithArgs("cs_test_1", models.PaymentPending, models.PaymentCancelled, sql.NullTime{}, "", "expired", at).
			WillReturnRows(sqlmock.NewRows(transactionCols).AddRow(
				"tx-1", "cs_test_1", nil, "buyer@example.com", "37.00", "usd", "Presale",
				"cancelled", nil, "expired", nil, at, at, nil,
			))

		tx, err := repo.Transition(ctx, "cs_test_1", models.PaymentPending, models.PaymentCancelled,
			models.TransitionUpdate{ProviderStatus: "expired", At: at})
		require.NoError(t, err)
		assert.Nil(t, tx.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LostRace", func(t *testing.T) {
		mock.ExpectQuery(update).WillReturnError(sql.ErrNoRows)

		tx, err := repo.Transition(ctx, "cs_test_1", models.PaymentPending, models.PaymentCompleted, models.TransitionUpdate{At: at})
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrStatusConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidEdgeNeverHitsDatabase", func(t *testing.T) {
		tx, err := repo.Transition(ctx, "cs_test_1", models.PaymentCancelled, models.PaymentCompleted, models.TransitionUpdate{At: at})
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_UpdateProviderFields(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`UPDATE payment_transactions`)

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("cs_test_1", "pi_1", "open").WillReturnResult(sqlmock.NewResult(0, 1))
		assert.NoError(t, repo.UpdateProviderFields(ctx, "cs_test_1", "pi_1", "open"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec(query).WithArgs("missing", "", "open").WillReturnResult(sqlmock.NewResult(0, 0))
		err := repo.UpdateProviderFields(ctx, "missing", "", "open")
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_ListAndSum(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("List", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT $1`)).WithArgs(10).
			WillReturnRows(sqlmock.NewRows(transactionCols).
				AddRow("tx-1", "cs_1", nil, "a@example.com", "37.00", "usd", "Presale", "pending", nil, nil, nil, now, now, nil).
				AddRow("tx-2", "cs_2", nil, "b@example.com", "47.00", "usd", "Regular", "completed", "pi_2", "complete", nil, now, now, now))

		txs, err := repo.List(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, txs, 2)
		assert.Equal(t, "cs_2", txs[1].SessionID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SumCompleted", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0) FROM payment_transactions WHERE payment_status = 'completed'`)).
			WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("84.00"))

		total, err := repo.SumCompleted(ctx)
		require.NoError(t, err)
		assert.True(t, total.Equal(decimal.RequireFromString("84")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SumError", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(SUM(amount), 0)`)).WillReturnError(fmt.Errorf("boom"))

		total, err := repo.SumCompleted(ctx)
		assert.Error(t, err)
		assert.True(t, total.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
