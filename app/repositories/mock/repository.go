package mock

import (
	"sync"
	"time"

	"skymock/app/models"
	"skymock/app/repositories"
)

type PreferenceRepository struct {
	themes map[string]models.Theme
	mutex  sync.RWMutex
	Err    error
}

type AvatarCache struct {
	avatars map[string]*models.Avatar
	mutex   sync.RWMutex
	Puts    int
}

func NewPreferenceRepository() *PreferenceRepository {
	return &PreferenceRepository{
		themes: make(map[string]models.Theme),
	}
}

func NewAvatarCache() *AvatarCache {
	return &AvatarCache{
		avatars: make(map[string]*models.Avatar),
	}
}

// PreferenceRepository implementation
func (m *PreferenceRepository) GetTheme(sessionID string) (models.Theme, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if m.Err != nil {
		return "", m.Err
	}
	theme, exists := m.themes[sessionID]
	if !exists {
		return "", repositories.ErrNotFound
	}
	return theme, nil
}

func (m *PreferenceRepository) SetTheme(sessionID string, theme models.Theme) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.themes[sessionID] = theme
	return nil
}

// AvatarCache implementation, ignoring ttl
func (m *AvatarCache) Get(key string) (*models.Avatar, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	avatar, exists := m.avatars[key]
	if !exists {
		return nil, repositories.ErrNotFound
	}
	return avatar, nil
}

func (m *AvatarCache) Put(key string, avatar *models.Avatar, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.avatars[key] = avatar
	m.Puts++
	return nil
}
