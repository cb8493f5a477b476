package repositories

import (
	"time"

	"skymock/app/models"

	"github.com/dgraph-io/badger/v4"
)

// BadgerAvatarCache implements AvatarCache using BadgerDB entry TTLs
type BadgerAvatarCache struct {
	db *badger.DB
}

// NewBadgerAvatarCache creates a new BadgerAvatarCache
func NewBadgerAvatarCache(db *badger.DB) *BadgerAvatarCache {
	return &BadgerAvatarCache{db: db}
}

// Get returns a cached avatar, or ErrNotFound once it has expired
func (r *BadgerAvatarCache) Get(key string) (*models.Avatar, error) {
	var avatar models.Avatar
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(AvatarKeyPrefix + key))
		if err == badger.ErrKeyNotFound {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return unmarshalEntity(val, &avatar)
		})
	})
	if err != nil {
		return nil, err
	}
	return &avatar, nil
}

// Put stores an avatar; a zero ttl keeps it until overwritten
func (r *BadgerAvatarCache) Put(key string, avatar *models.Avatar, ttl time.Duration) error {
	data, err := marshalEntity(avatar)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(AvatarKeyPrefix+key), data)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}
