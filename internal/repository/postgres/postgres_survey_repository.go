package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/honeynil/BizPromptService/internal/models"
)

type PostgresSurveyResponseRepository struct {
	db *sql.DB
}

func NewPostgresSurveyResponseRepository(db *sql.DB) *PostgresSurveyResponseRepository {
	return &PostgresSurveyResponseRepository{db: db}
}

func (r *PostgresSurveyResponseRepository) Create(ctx context.Context, resp *models.SurveyResponse) (err error) {
	ctx, _, done := observe(ctx, "survey-repository", "CreateSurveyResponse")
	defer func() { done(err) }()

	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	answers, err := json.Marshal(resp.Responses)
	if err != nil {
		return fmt.Errorf("failed to encode responses: %w", err)
	}

	query := `INSERT INTO survey_responses (id, survey_id, user_email, responses) VALUES ($1, $2, $3, $4) RETURNING submitted_at`
	err = r.db.QueryRowContext(ctx, query, resp.ID, resp.SurveyID, resp.UserEmail, answers).Scan(&resp.SubmittedAt)
	if err != nil {
		slog.Error("failed to store survey response", "method", "CreateSurveyResponse", "survey_id", resp.SurveyID, "error", err)
		return fmt.Errorf("failed to create survey response: %w", err)
	}
	return nil
}

func (r *PostgresSurveyResponseRepository) List(ctx context.Context, limit int) (out []models.SurveyResponse, err error) {
	ctx, _, done := observe(ctx, "survey-repository", "ListSurveyResponses")
	defer func() { done(err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT id, survey_id, user_email, responses, submitted_at FROM survey_responses ORDER BY submitted_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list survey responses: %w", err)
	}
	defer rows.Close()

	out = []models.SurveyResponse{}
	for rows.Next() {
		var (
			resp    models.SurveyResponse
			answers []byte
		)
		if err = rows.Scan(&resp.ID, &resp.SurveyID, &resp.UserEmail, &answers, &resp.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan survey response: %w", err)
		}
		if err = json.Unmarshal(answers, &resp.Responses); err != nil {
			return nil, fmt.Errorf("failed to decode survey response: %w", err)
		}
		out = append(out, resp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list survey responses: %w", err)
	}
	return out, nil
}

func (r *PostgresSurveyResponseRepository) Count(ctx context.Context) (n int64, err error) {
	ctx, _, done := observe(ctx, "survey-repository", "CountSurveyResponses")
	defer func() { done(err) }()

	if err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM survey_responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count survey responses: %w", err)
	}
	return n, nil
}
