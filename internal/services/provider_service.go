// Package services – ProviderService
//
// ProviderService exposes the provider gateway to the HTTP layer and keeps
// user-entered API keys in the key/value table so they survive restarts.
package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/repo"
)

// ProviderService manages backend selection and API keys.
type ProviderService struct {
	DB      *gorm.DB
	Repo    BlobRepo
	Gateway *provider.Gateway

	// Key is the blob key the API keys are stored under.
	Key string

	Log zerolog.Logger
}

// NewProviderService constructs a ProviderService storing keys under key.
func NewProviderService(db *gorm.DB, r BlobRepo, gw *provider.Gateway, key string, log zerolog.Logger) *ProviderService {
	return &ProviderService{DB: db, Repo: r, Gateway: gw, Key: key, Log: log}
}

// Load restores saved API keys into the gateway.
func (s *ProviderService) Load(ctx context.Context) error {
	blob, err := s.Repo.GetBlob(ctx, s.DB, s.Key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	keys := map[string]string{}
	if err := json.Unmarshal(blob.Payload, &keys); err != nil {
		s.Log.Warn().Err(err).Msg("ignoring unreadable saved api keys")
		return nil
	}
	s.Gateway.RestoreKeys(keys)
	return nil
}

// Statuses lists every backend.
func (s *ProviderService) Statuses(ctx context.Context) []provider.Status {
	return s.Gateway.Statuses(ctx)
}

// Current returns the selected backend.
func (s *ProviderService) Current() provider.Kind { return s.Gateway.Current() }

// SetCurrent selects the backend by name.
func (s *ProviderService) SetCurrent(name string) error {
	k, err := provider.ParseKind(name)
	if err != nil {
		return err
	}
	return s.Gateway.SetCurrent(k)
}

// SetAPIKey stores key for the named backend and saves the key table. An
// empty key removes it.
func (s *ProviderService) SetAPIKey(ctx context.Context, name, key string) error {
	ctx, span := otel.Tracer("services/ProviderService").Start(ctx, "SetAPIKey",
		trace.WithAttributes(attribute.String("provider", name)))
	defer span.End()

	k, err := provider.ParseKind(name)
	if err != nil {
		return err
	}
	if err := s.Gateway.SetAPIKey(k, key); err != nil {
		return err
	}
	payload, err := json.Marshal(s.Gateway.Keys())
	if err != nil {
		return err
	}
	return s.Repo.PutBlob(ctx, s.DB, s.Key, payload)
}

// TestConnection checks the named backend with key, or its stored key.
func (s *ProviderService) TestConnection(ctx context.Context, name, key string) error {
	k, err := provider.ParseKind(name)
	if err != nil {
		return err
	}
	return s.Gateway.TestConnection(ctx, k, key)
}

// Models lists the models of the named backend.
func (s *ProviderService) Models(name string) ([]string, error) {
	k, err := provider.ParseKind(name)
	if err != nil {
		return nil, err
	}
	return s.Gateway.Models(k)
}
