package notifications

import (
	"context"

	"github.com/azure/brand-mentions-api/internal/models"
)

// Dispatcher tells an alert owner about newly matched posts
type Dispatcher interface {
	NotifyMatches(ctx context.Context, owner *models.User, alert *models.Alert, posts []models.Post) error
}
