package repository

import (
	"context"

	"github.com/honeynil/BizPromptService/internal/models"
)

type SurveyResponseRepository interface {
	Create(ctx context.Context, resp *models.SurveyResponse) error
	List(ctx context.Context, limit int) ([]models.SurveyResponse, error)
	Count(ctx context.Context) (int64, error)
}
