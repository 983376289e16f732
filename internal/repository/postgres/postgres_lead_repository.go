package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/honeynil/BizPromptService/internal/models"
)

type PostgresLeadRepository struct {
	db *sql.DB
}

func NewPostgresLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

func (r *PostgresLeadRepository) Create(ctx context.Context, lead *models.LeadMagnetSignup) (err error) {
	ctx, _, done := observe(ctx, "lead-repository", "CreateLead")
	defer func() { done(err) }()

	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	query := `
		INSERT INTO lead_magnet_signups (id, email, first_name, lead_magnet_type, source)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query, lead.ID, lead.Email, lead.FirstName, lead.LeadMagnetType, lead.Source).Scan(&lead.CreatedAt)
	if err != nil {
		slog.Error("failed to store lead", "method", "CreateLead", "email", lead.Email, "error", err)
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

func (r *PostgresLeadRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, _, done := observe(ctx, "lead-repository", "CountLeads")
	defer func() { done(err) }()

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lead_magnet_signups`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leads: %w", err)
	}
	return n, nil
}

func (r *PostgresLeadRepository) CountSince(ctx context.Context, since time.Time) (n int64, err error) {
	ctx, _, done := observe(ctx, "lead-repository", "CountLeadsSince")
	defer func() { done(err) }()

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lead_magnet_signups WHERE created_at >= $1`, since).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count recent leads: %w", err)
	}
	return n, nil
}
