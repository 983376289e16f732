package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"github.com/honeynil/BizPromptService/internal/models"
	pkgerrors "github.com/honeynil/BizPromptService/pkg/errors"
)

const userColumns = `id, email, password_hash, first_name, last_name, role, subscription_status, is_active, created_at, last_login, purchased_at`

const uniqueViolation = "23505"

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) (err error) {
	ctx, span, done := observe(ctx, "user-repository", "CreateUser")
	defer func() { done(err) }()

	if user == nil {
		err = pkgerrors.ErrNilUser
		return err
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.Email == "" {
		err = fmt.Errorf("email is required")
		return err
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = models.RoleCustomer
	}
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = models.SubscriptionFree
	}
	span.SetAttributes(attribute.String("user_id", user.ID))

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := `INSERT INTO users (id, email, password_hash, first_name, last_name, role, subscription_status, is_active) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`
	err = dbTx.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Role, user.SubscriptionStatus, user.IsActive,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			err = pkgerrors.ErrEmailExists
		}
		if rbErr := dbTx.Rollback(); rbErr != nil {
			err = fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
			slog.Error("rollback failed", "method", "CreateUser", "error", rbErr)
		}
		if errors.Is(err, pkgerrors.ErrEmailExists) {
			return err
		}
		slog.Error("failed to create user", "method", "CreateUser", "email", user.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	slog.Info("user created", "method", "CreateUser", "user_id", user.ID, "email", user.Email, "subscription_status", user.SubscriptionStatus)
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (user *models.User, err error) {
	ctx, _, done := observe(ctx, "user-repository", "GetUserByID")
	defer func() { done(err) }()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	user, err = scanUser(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (user *models.User, err error) {
	ctx, _, done := observe(ctx, "user-repository", "GetUserByEmail")
	defer func() { done(err) }()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		err = fmt.Errorf("email cannot be empty")
		return nil, err
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	user, err = scanUser(r.db.QueryRowContext(ctx, query, email))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

func (r *PostgresUserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) (err error) {
	ctx, _, done := observe(ctx, "user-repository", "TouchLastLogin")
	defer func() { done(err) }()

	_, err = r.db.ExecContext(ctx, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

// UpgradeEntitlement marks the user as a paying customer. Re-running it only
// refreshes purchased_at.
func (r *PostgresUserRepository) UpgradeEntitlement(ctx context.Context, id string, at time.Time) (err error) {
	ctx, span, done := observe(ctx, "user-repository", "UpgradeEntitlement")
	defer func() { done(err) }()
	span.SetAttributes(attribute.String("user_id", id))

	query := `UPDATE users SET subscription_status = $2, purchased_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, models.SubscriptionPaid, at)
	if err != nil {
		slog.Error("failed to upgrade entitlement", "method", "UpgradeEntitlement", "user_id", id, "error", err)
		return fmt.Errorf("failed to upgrade entitlement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to upgrade entitlement: %w", err)
	}
	if n == 0 {
		err = pkgerrors.ErrUserNotFound
		return err
	}
	slog.Info("entitlement upgraded", "method", "UpgradeEntitlement", "user_id", id)
	return nil
}

func (r *PostgresUserRepository) List(ctx context.Context, limit int) (users []models.User, err error) {
	ctx, _, done := observe(ctx, "user-repository", "ListUsers")
	defer func() { done(err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users = []models.User{}
	for rows.Next() {
		u, scanErr := scanUser(rows)
		if scanErr != nil {
			err = scanErr
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepository) Stats(ctx context.Context, since time.Time) (stats models.UserStats, err error) {
	ctx, _, done := observe(ctx, "user-repository", "UserStats")
	defer func() { done(err) }()

	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE subscription_status = 'paid'),
			COUNT(*) FILTER (WHERE created_at >= $1)
		FROM users`
	err = r.db.QueryRowContext(ctx, query, since).Scan(&stats.Total, &stats.Paid, &stats.RecentSignups)
	if err != nil {
		return models.UserStats{}, fmt.Errorf("failed to get user stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresUserRepository) HasAdmin(ctx context.Context) (exists bool, err error) {
	ctx, _, done := observe(ctx, "user-repository", "HasAdmin")
	defer func() { done(err) }()

	err = r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return exists, nil
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		u           models.User
		lastLogin   sql.NullTime
		purchasedAt sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.SubscriptionStatus, &u.IsActive, &u.CreatedAt, &lastLogin, &purchasedAt)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if purchasedAt.Valid {
		t := purchasedAt.Time
		u.PurchasedAt = &t
	}
	return &u, nil
}
