package repositories

import (
	"skymock/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerPreferenceRepository implements PreferenceRepository using BadgerDB
type BadgerPreferenceRepository struct {
	db *badger.DB
}

// NewBadgerPreferenceRepository creates a new BadgerPreferenceRepository
func NewBadgerPreferenceRepository(db *badger.DB) *BadgerPreferenceRepository {
	return &BadgerPreferenceRepository{db: db}
}

// GetTheme returns the stored theme for a session, or ErrNotFound
func (r *BadgerPreferenceRepository) GetTheme(sessionID string) (models.Theme, error) {
	var theme models.Theme
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(ThemeKeyPrefix + sessionID))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			theme = models.ParseTheme(string(val))
			return nil
		})
	})
	if err != nil {
		return "", err
	}
	return theme, nil
}

// SetTheme stores the theme for a session
func (r *BadgerPreferenceRepository) SetTheme(sessionID string, theme models.Theme) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(ThemeKeyPrefix+sessionID), []byte(models.ParseTheme(string(theme))))
	})
}
