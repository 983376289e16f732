package repository

import (
	"context"
	"time"

	"github.com/honeynil/BizPromptService/internal/models"
)

type LeadRepository interface {
	Create(ctx context.Context, lead *models.LeadMagnetSignup) error
	Count(ctx context.Context) (int64, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}
