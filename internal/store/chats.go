package store

import (
	"slices"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
)

// Chat defaults.
const (
	DefaultChatName    = "New Chat"
	DefaultTemperature = 0.8
	DefaultMaxTokens   = 1000
)

// CreateChat registers a chat and increments the chat counter of every
// participant that exists. Unknown participants are kept but not counted.
func (s *Store) CreateChat(in domain.ChatInput) *domain.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ch := &domain.Chat{
		ID:           s.newID(prefixChat),
		Name:         in.Name,
		Type:         in.Type,
		Participants: copyStrings(in.Participants),
		Scenario:     in.Scenario,
		Messages:     []string{},
		Settings: domain.ChatSettings{
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
		Stats:     domain.ChatStats{LastActivity: now},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ch.Name == "" {
		ch.Name = DefaultChatName
	}
	if ch.Type == "" {
		ch.Type = domain.ChatSingle
	}
	if in.Settings != nil {
		ch.Settings = normalizeSettings(*in.Settings)
	}

	s.chats.put(ch.ID, ch)
	for _, id := range ch.Participants {
		if c, ok := s.characters.get(id); ok {
			c.Stats.Chats++
		}
	}
	return ch.Clone()
}

// UpdateChat applies p and refreshes UpdatedAt.
func (s *Store) UpdateChat(id string, p domain.ChatPatch) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chats.get(id)
	if !ok {
		return nil, ErrChatNotFound
	}
	setIf(&ch.Name, p.Name)
	setIf(&ch.Type, p.Type)
	setIf(&ch.Scenario, p.Scenario)
	if p.Settings != nil {
		ch.Settings = normalizeSettings(*p.Settings)
	}
	ch.UpdatedAt = s.now()
	return ch.Clone(), nil
}

// DeleteChat removes the chat and all of its messages. Participant chat
// counters are lifetime totals and are left as they are.
func (s *Store) DeleteChat(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.deleteChatLocked(id) {
		return ErrChatNotFound
	}
	return nil
}

func (s *Store) deleteChatLocked(id string) bool {
	ch, ok := s.chats.get(id)
	if !ok {
		return false
	}
	for _, msgID := range ch.Messages {
		s.messages.remove(msgID)
	}
	s.chats.remove(id)
	return true
}

// GetChat returns a copy of the chat.
func (s *Store) GetChat(id string) (*domain.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chats.get(id)
	if !ok {
		return nil, ErrChatNotFound
	}
	return ch.Clone(), nil
}

// ListChats returns chats matching f, most recently active first.
func (s *Store) ListChats(f domain.ChatFilter) []domain.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Chat, 0, s.chats.len())
	s.chats.each(func(_ string, ch *domain.Chat) bool {
		if f.Type != "" && ch.Type != f.Type {
			return true
		}
		if f.Participant != "" && !ch.HasParticipant(f.Participant) {
			return true
		}
		out = append(out, *ch.Clone())
		return true
	})
	slices.SortStableFunc(out, func(a, b domain.Chat) int {
		return b.Stats.LastActivity.Compare(a.Stats.LastActivity)
	})
	return out
}

// RecordChatTime adds d to the chat's duration and the user's total chat time.
func (s *Store) RecordChatTime(chatID string, d time.Duration) (*domain.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chats.get(chatID)
	if !ok {
		return nil, ErrChatNotFound
	}
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	ch.Stats.Duration += ms
	s.defaultUserLocked().Stats.TotalChatTime += ms
	return ch.Clone(), nil
}

// normalizeSettings substitutes defaults for out-of-range values.
func normalizeSettings(in domain.ChatSettings) domain.ChatSettings {
	if in.Temperature < 0 {
		in.Temperature = DefaultTemperature
	}
	if in.MaxTokens <= 0 {
		in.MaxTokens = DefaultMaxTokens
	}
	return in
}
