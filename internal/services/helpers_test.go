package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/repo"
)

// repoFuncs adapts the repo free functions to BlobRepo.
type repoFuncs struct{}

func (repoFuncs) PutBlob(ctx context.Context, db *gorm.DB, key string, payload []byte) error {
	return repo.PutBlob(ctx, db, key, payload)
}
func (repoFuncs) GetBlob(ctx context.Context, db *gorm.DB, key string) (*domain.Blob, error) {
	return repo.GetBlob(ctx, db, key)
}
func (repoFuncs) DeleteBlob(ctx context.Context, db *gorm.DB, key string) error {
	return repo.DeleteBlob(ctx, db, key)
}
func (repoFuncs) ListBlobKeys(ctx context.Context, db *gorm.DB) ([]string, error) {
	return repo.ListBlobKeys(ctx, db)
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("services_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}
