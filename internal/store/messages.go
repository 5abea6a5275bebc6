package store

import (
	"slices"

	"github.com/tbourn/character-hub/internal/domain"
)

// CreateMessage appends a message to an existing chat. It fails with
// ErrChatNotFound when the chat is absent. Sender statistics are bumped:
// the user's messagesSent for user messages, otherwise the sending
// character's messages counter.
func (s *Store) CreateMessage(in domain.MessageInput) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.chats.get(in.ChatID)
	if !ok {
		return nil, ErrChatNotFound
	}

	m := &domain.Message{
		ID:          s.newID(prefixMessage),
		ChatID:      in.ChatID,
		Sender:      in.Sender,
		Content:     in.Content,
		Role:        in.Role,
		Attachments: copyStrings(in.Attachments),
		Metadata: domain.MessageMetadata{
			Tokens: in.Tokens,
			Model:  in.Model,
		},
		CreatedAt: s.now(),
	}
	if m.Role == "" {
		if m.FromUser() {
			m.Role = domain.RoleUser
		} else {
			m.Role = domain.RoleAssistant
		}
	}
	if m.Metadata.Model == "" {
		m.Metadata.Model = domain.DefaultModel
	}

	s.messages.put(m.ID, m)
	ch.Messages = append(ch.Messages, m.ID)
	ch.Stats.MessageCount++
	ch.Stats.LastActivity = m.CreatedAt

	if m.FromUser() {
		s.defaultUserLocked().Stats.MessagesSent++
	} else if c, ok := s.characters.get(m.Sender); ok {
		c.Stats.Messages++
	}
	return m.Clone(), nil
}

// UpdateMessage edits a message and marks it as edited.
func (s *Store) UpdateMessage(id string, p domain.MessagePatch) (*domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages.get(id)
	if !ok {
		return nil, ErrMessageNotFound
	}
	setIf(&m.Content, p.Content)
	if p.Attachments != nil {
		m.Attachments = copyStrings(*p.Attachments)
	}
	now := s.now()
	m.Metadata.Edited = true
	m.Metadata.EditedAt = &now
	return m.Clone(), nil
}

// DeleteMessage removes a message from its chat and decrements the chat's
// message count. Sender statistics are lifetime totals and stay unchanged.
func (s *Store) DeleteMessage(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.messages.get(id)
	if !ok {
		return ErrMessageNotFound
	}
	if ch, ok := s.chats.get(m.ChatID); ok {
		n := len(ch.Messages)
		ch.Messages = slices.DeleteFunc(ch.Messages, func(mid string) bool { return mid == id })
		if len(ch.Messages) < n && ch.Stats.MessageCount > 0 {
			ch.Stats.MessageCount--
		}
	}
	s.messages.remove(id)
	return nil
}

// GetMessage returns a copy of the message.
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.messages.get(id)
	if !ok {
		return nil, ErrMessageNotFound
	}
	return m.Clone(), nil
}

// ChatMessages returns the chat's messages in creation order.
func (s *Store) ChatMessages(chatID string) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chats.get(chatID)
	if !ok {
		return nil, ErrChatNotFound
	}
	out := make([]domain.Message, 0, len(ch.Messages))
	for _, id := range ch.Messages {
		if m, ok := s.messages.get(id); ok {
			out = append(out, *m.Clone())
		}
	}
	return out, nil
}
