package repository

import (
	"context"
	"time"

	"github.com/honeynil/BizPromptService/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	UpgradeEntitlement(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context, limit int) ([]models.User, error)
	Stats(ctx context.Context, since time.Time) (models.UserStats, error)
	HasAdmin(ctx context.Context) (bool, error)
}
