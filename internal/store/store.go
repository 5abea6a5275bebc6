// Package store implements the entity store: the authoritative in-memory
// keeper of users, characters, chats, messages, scenarios and the tag index.
//
// All cascades and statistics are enforced here. Every operation runs under a
// single RWMutex, so each call is atomic with respect to every other call,
// including Export and Import. Records handed to callers are deep copies; the
// only way to change store state is through Store methods.
package store

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/character-hub/internal/domain"
)

// ErrNotFound is matched (via errors.Is) by every "missing id" error.
var ErrNotFound = errors.New("not found")

// Per-kind not-found errors. All wrap ErrNotFound.
var (
	ErrCharacterNotFound = fmt.Errorf("character %w", ErrNotFound)
	ErrChatNotFound      = fmt.Errorf("chat %w", ErrNotFound)
	ErrMessageNotFound   = fmt.Errorf("message %w", ErrNotFound)
	ErrScenarioNotFound  = fmt.Errorf("scenario %w", ErrNotFound)
)

// ID prefixes per entity kind.
const (
	prefixCharacter = "char"
	prefixChat      = "chat"
	prefixMessage   = "msg"
	prefixScenario  = "scenario"
)

// avatarColors is the palette for generated initial avatars.
var avatarColors = []string{
	"#3B82F6", "#10B981", "#8B5CF6", "#F59E0B",
	"#EF4444", "#F97316", "#EC4899", "#6366F1",
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides id generation. gen receives the kind prefix.
func WithIDGenerator(gen func(prefix string) string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithRandom overrides the source used to pick avatar colors. intn must
// return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Store) { s.intn = intn }
}

// Store holds every collection. The zero value is not usable; call New.
type Store struct {
	mu sync.RWMutex

	characters *collection[domain.Character]
	chats      *collection[domain.Chat]
	messages   *collection[domain.Message]
	scenarios  *collection[domain.Scenario]
	users      *collection[domain.User]
	tags       *tagSet

	now   func() time.Time
	newID func(prefix string) string
	intn  func(n int) int
}

// New returns an empty store seeded with the default user.
func New(opts ...Option) *Store {
	s := &Store{
		now:   func() time.Time { return time.Now().UTC() },
		newID: func(prefix string) string { return prefix + "-" + uuid.NewString() },
		intn:  rand.IntN,
	}
	for _, o := range opts {
		o(s)
	}
	s.clearLocked()
	return s
}

// clearLocked resets every collection and re-seeds the default user.
func (s *Store) clearLocked() {
	s.characters = newCollection[domain.Character]()
	s.chats = newCollection[domain.Chat]()
	s.messages = newCollection[domain.Message]()
	s.scenarios = newCollection[domain.Scenario]()
	s.users = newCollection[domain.User]()
	s.tags = newTagSet()
	s.ensureDefaultUserLocked()
}

func (s *Store) ensureDefaultUserLocked() {
	if _, ok := s.users.get(domain.DefaultUserID); !ok {
		s.users.put(domain.DefaultUserID, domain.NewDefaultUser(s.now()))
	}
}

// defaultUserLocked returns the live default user record.
func (s *Store) defaultUserLocked() *domain.User {
	s.ensureDefaultUserLocked()
	u, _ := s.users.get(domain.DefaultUserID)
	return u
}

// generateAvatar derives an initial avatar from name with a random color.
func (s *Store) generateAvatar(name string) domain.Avatar {
	initial := ""
	for _, r := range name {
		initial = cases.Upper(language.Und).String(string(r))
		break
	}
	return domain.Avatar{
		Type:    "initial",
		Color:   avatarColors[s.intn(len(avatarColors))],
		Initial: initial,
	}
}

// collection is a map that remembers insertion order.
type collection[T any] struct {
	items map[string]*T
	order []string
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]*T)}
}

func (c *collection[T]) get(id string) (*T, bool) {
	v, ok := c.items[id]
	return v, ok
}

// put inserts or replaces v. Replacing keeps the original position.
func (c *collection[T]) put(id string, v *T) {
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) remove(id string) bool {
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, k := range c.order {
		if k == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *collection[T]) len() int { return len(c.items) }

// each visits items in insertion order. Returning false stops the walk.
func (c *collection[T]) each(fn func(id string, v *T) bool) {
	for _, id := range c.order {
		if !fn(id, c.items[id]) {
			return
		}
	}
}

// tagSet is the append-only, lowercased tag index.
type tagSet struct {
	seen  map[string]struct{}
	order []string
}

func newTagSet() *tagSet { return &tagSet{seen: make(map[string]struct{})} }

func (t *tagSet) add(tags ...string) {
	for _, tag := range tags {
		k := lower(tag)
		if _, ok := t.seen[k]; ok {
			continue
		}
		t.seen[k] = struct{}{}
		t.order = append(t.order, k)
	}
}

func (t *tagSet) len() int { return len(t.order) }

// lower folds s for case-insensitive comparisons and the tag index.
func lower(s string) string { return cases.Lower(language.Und).String(s) }

// containsFold reports whether substr occurs in s ignoring case.
func containsFold(s, substr string) bool {
	return strings.Contains(lower(s), substr)
}

// copyStrings returns a non-nil copy of s.
func copyStrings(s []string) []string {
	return append([]string{}, s...)
}
