// Package handlers provides the HTTP endpoints of the character hub.
//
// Handlers are transport-thin: they bind and validate input with gin binding
// tags, call the entity store or an application service, and translate the
// result into a JSON response or a stable error envelope.
package handlers

import (
	"context"
	"io"
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/services"
	"github.com/tbourn/character-hub/internal/store"
)

//
// Service contracts (context-aware)
//

// ChatService drives conversations. *services.ChatService implements it.
type ChatService interface {
	StartChat(ctx context.Context, characterID string) (*domain.Chat, *domain.Message, error)
	Send(ctx context.Context, chatID, content string) (*services.Exchange, error)
	Stream(ctx context.Context, chatID, content string, onDelta func(string) error) (*services.Exchange, error)
	Regenerate(ctx context.Context, messageID string) (*services.Exchange, error)
}

// DataService persists and transfers snapshots. *services.DataService
// implements it.
type DataService interface {
	Save(ctx context.Context) error
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (domain.Counts, error)
	Clear(ctx context.Context) error
	Status(ctx context.Context) (*services.DataStatus, error)
}

// ProviderService manages model backends. *services.ProviderService
// implements it.
type ProviderService interface {
	Statuses(ctx context.Context) []provider.Status
	Current() provider.Kind
	SetCurrent(name string) error
	SetAPIKey(ctx context.Context, name, key string) error
	TestConnection(ctx context.Context, name, key string) error
	Models(name string) ([]string, error)
}

// TranscriptService renders chats for download.
type TranscriptService interface {
	Export(chatID, format string) (*services.Transcript, error)
}

//
// Handler wiring
//

// Handlers groups every HTTP endpoint. CRUD endpoints talk to the entity
// store directly; flows with side effects go through the services.
type Handlers struct {
	store       *store.Store
	chats       ChatService
	data        DataService
	providers   ProviderService
	transcripts TranscriptService
}

// New constructs Handlers and registers the custom binding validators.
func New(st *store.Store, chats ChatService, data DataService, providers ProviderService, transcripts TranscriptService) *Handlers {
	RegisterValidators()
	return &Handlers{store: st, chats: chats, data: data, providers: providers, transcripts: transcripts}
}

var (
	charNameRE   = regexp.MustCompile(`^[a-zA-Z0-9\s\-']+$`)
	registerOnce sync.Once
)

// RegisterValidators adds the "charname" and "category" tags to gin's
// validator. It is safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("charname", func(fl validator.FieldLevel) bool {
			return charNameRE.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return domain.Category(fl.Field().String()).Valid()
		})
	})
}
