// Package services – DataService
//
// DataService persists the entity store as a snapshot blob in the key/value
// table, restores it on startup, imports and exports snapshots on request and
// runs the periodic autosave. Autosave honours the user's autoSave preference
// at every tick, so toggling it takes effect without a restart.
package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/character-hub/internal/config"
	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/repo"
	"github.com/tbourn/character-hub/internal/snapshot"
	"github.com/tbourn/character-hub/internal/store"
)

// BlobRepo defines the key/value persistence contract used by the data and
// provider services.
type BlobRepo interface {
	// PutBlob stores payload under key, replacing any previous value.
	PutBlob(ctx context.Context, db *gorm.DB, key string, payload []byte) error
	// GetBlob returns the blob under key or repo.ErrNotFound.
	GetBlob(ctx context.Context, db *gorm.DB, key string) (*domain.Blob, error)
	// DeleteBlob removes key; missing keys are not an error.
	DeleteBlob(ctx context.Context, db *gorm.DB, key string) error
	// ListBlobKeys returns every stored key.
	ListBlobKeys(ctx context.Context, db *gorm.DB) ([]string, error)
}

// DataStatus reports what is held in memory and on disk.
type DataStatus struct {
	Counts     domain.Counts `json:"counts"`
	StoredKeys []string      `json:"storedKeys"`
	LastSaved  *time.Time    `json:"lastSaved"`
	AutoSave   bool          `json:"autoSave"`
}

// DataService saves and restores the entity store.
type DataService struct {
	DB    *gorm.DB
	Repo  BlobRepo
	Store *store.Store

	// Key is the blob key the snapshot is stored under.
	Key string
	// MaxImportBytes caps Import bodies; 0 disables the cap.
	MaxImportBytes int64

	Log zerolog.Logger

	mu        sync.Mutex // guards store replacement and snapshot writes
	lastSaved time.Time
	now       func() time.Time
}

// NewDataService constructs a DataService using the storage settings in cfg.
func NewDataService(db *gorm.DB, r BlobRepo, st *store.Store, cfg config.StorageConfig, log zerolog.Logger) *DataService {
	return &DataService{
		DB:             db,
		Repo:           r,
		Store:          st,
		Key:            cfg.SnapshotKey,
		MaxImportBytes: cfg.MaxImportBytes,
		Log:            log,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Load restores the store from the saved snapshot. It reports false when
// nothing has been saved yet. A corrupt snapshot leaves the store untouched.
func (s *DataService) Load(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer("services/DataService").Start(ctx, "Load",
		trace.WithAttributes(attribute.String("blob.key", s.Key)))
	defer span.End()

	blob, err := s.Repo.GetBlob(ctx, s.DB, s.Key)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	snap, err := snapshot.Unmarshal(blob.Payload)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Store.Import(snap); err != nil {
		return false, err
	}
	s.lastSaved = blob.UpdatedAt
	return true, nil
}

// Save writes the current store contents under Key.
func (s *DataService) Save(ctx context.Context) error {
	ctx, span := otel.Tracer("services/DataService").Start(ctx, "Save",
		trace.WithAttributes(attribute.String("blob.key", s.Key)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx)
}

// saveLocked exports and writes the store. The caller holds s.mu, so the
// exported state is the one on disk once it returns.
func (s *DataService) saveLocked(ctx context.Context) error {
	payload, err := snapshot.Marshal(s.Store.Export())
	if err != nil {
		return err
	}
	if err := s.Repo.PutBlob(ctx, s.DB, s.Key, payload); err != nil {
		return err
	}
	s.lastSaved = s.now()
	return nil
}

// Export writes an indented snapshot of the store to w.
func (s *DataService) Export(_ context.Context, w io.Writer) error {
	return snapshot.Encode(w, s.Store.Export(), true)
}

// Import replaces the store with the snapshot read from r and saves it.
// Malformed input fails with snapshot.ErrInvalidFormat and changes nothing.
func (s *DataService) Import(ctx context.Context, r io.Reader) (domain.Counts, error) {
	ctx, span := otel.Tracer("services/DataService").Start(ctx, "Import")
	defer span.End()

	if s.MaxImportBytes > 0 {
		var buf bytes.Buffer
		n, err := io.Copy(&buf, io.LimitReader(r, s.MaxImportBytes+1))
		if err != nil {
			return domain.Counts{}, err
		}
		if n > s.MaxImportBytes {
			return domain.Counts{}, ErrImportTooLarge
		}
		r = &buf
	}
	snap, err := snapshot.Decode(r)
	if err != nil {
		return domain.Counts{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.Store.Import(snap); err != nil {
		return domain.Counts{}, err
	}
	counts := s.Store.Counts()
	span.SetAttributes(attribute.Int("characters", counts.Characters), attribute.Int("messages", counts.Messages))
	// The store already holds the import; a failed write is retried by the
	// next save.
	if err := s.saveLocked(ctx); err != nil {
		s.Log.Error().Err(err).Str("key", s.Key).Msg("save after import failed")
	}
	return counts, nil
}

// Clear empties the store, keeping only the default user, and deletes the
// saved snapshot. A failed delete is logged; the store stays cleared.
func (s *DataService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Store.Reset()
	s.lastSaved = time.Time{}
	if err := s.Repo.DeleteBlob(ctx, s.DB, s.Key); err != nil {
		s.Log.Error().Err(err).Str("key", s.Key).Msg("delete snapshot failed")
	}
	return nil
}

// Status reports collection sizes and the keys held in the key/value table.
func (s *DataService) Status(ctx context.Context) (*DataStatus, error) {
	keys, err := s.Repo.ListBlobKeys(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []string{}
	}
	st := &DataStatus{
		Counts:     s.Store.Counts(),
		StoredKeys: keys,
		AutoSave:   s.Store.AutoSaveEnabled(),
	}
	s.mu.Lock()
	if !s.lastSaved.IsZero() {
		t := s.lastSaved
		st.LastSaved = &t
	}
	s.mu.Unlock()
	return st, nil
}

// Run saves the store every interval while the user's autoSave preference is
// on. It returns when ctx is done.
func (s *DataService) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if !s.Store.AutoSaveEnabled() {
				continue
			}
			if err := s.Save(ctx); err != nil {
				s.Log.Error().Err(err).Msg("autosave failed")
				continue
			}
			s.Log.Debug().Msg("autosaved")
		}
	}
}
