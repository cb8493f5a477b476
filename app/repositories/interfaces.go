package repositories

import (
	"time"

	"skymock/app/models"
)

// PreferenceRepository stores per-session UI preferences
type PreferenceRepository interface {
	GetTheme(sessionID string) (models.Theme, error)
	SetTheme(sessionID string, theme models.Theme) error
}

// AvatarCache stores proxied avatar bodies for a bounded time
type AvatarCache interface {
	Get(key string) (*models.Avatar, error)
	Put(key string, avatar *models.Avatar, ttl time.Duration) error
}
