// Package repo – key/value blobs
//
// The snapshot and the saved provider API keys each live under one key in the
// kv_store table. Writes are upserts so the newest payload always wins.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/character-hub/internal/domain"
)

// ErrNotFound is returned when no blob is stored under the requested key.
var ErrNotFound = errors.New("not found")

// PutBlob stores payload under key, replacing any previous value.
func PutBlob(ctx context.Context, db *gorm.DB, key string, payload []byte) error {
	rec := &domain.Blob{Key: key, Payload: payload, UpdatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(rec).Error
}

// GetBlob returns the blob stored under key or ErrNotFound.
func GetBlob(ctx context.Context, db *gorm.DB, key string) (*domain.Blob, error) {
	var rec domain.Blob
	err := db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteBlob removes key. Deleting a missing key is not an error.
func DeleteBlob(ctx context.Context, db *gorm.DB, key string) error {
	return db.WithContext(ctx).Where("key = ?", key).Delete(&domain.Blob{}).Error
}

// ListBlobKeys returns every stored key in lexical order.
func ListBlobKeys(ctx context.Context, db *gorm.DB) ([]string, error) {
	var keys []string
	err := db.WithContext(ctx).Model(&domain.Blob{}).Order("key ASC").Pluck("key", &keys).Error
	return keys, err
}
