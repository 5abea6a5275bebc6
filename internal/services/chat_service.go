// Package services – ChatService
//
// This file implements ChatService, which drives conversations between the
// user and characters. It validates user messages, persists them in the entity
// store, picks which character answers, builds the prompt from the chat
// settings and the character persona, and records the generated reply.
//
// Generation may be slow, so the store lock is never held while a provider is
// called; the store is touched before and after generation only.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/character-hub/internal/config"
	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/store"
)

// historyWindow caps how many earlier messages are sent with a prompt.
const historyWindow = 20

// Generator produces character replies. *provider.Gateway implements it.
type Generator interface {
	Generate(ctx context.Context, req provider.Request) (provider.Result, error)
	Stream(ctx context.Context, req provider.Request, onDelta func(string) error) (provider.Result, error)
}

// Exchange is the outcome of one user turn.
type Exchange struct {
	User     *domain.Message `json:"user,omitempty"`
	Reply    *domain.Message `json:"reply"`
	Provider provider.Kind   `json:"provider"`
	Fallback bool            `json:"fallback"`
}

// ChatService coordinates the conversation flow.
type ChatService struct {
	Store *store.Store
	Gen   Generator

	// MaxMessageRunes caps user messages; 0 disables the check.
	MaxMessageRunes int
	// TopP is passed to providers with every request.
	TopP float64

	Log zerolog.Logger
}

// NewChatService constructs a ChatService with limits taken from cfg.
func NewChatService(st *store.Store, gen Generator, cfg config.ChatConfig, log zerolog.Logger) *ChatService {
	return &ChatService{
		Store:           st,
		Gen:             gen,
		MaxMessageRunes: cfg.MaxMessageRunes,
		TopP:            cfg.TopP,
		Log:             log,
	}
}

// StartChat opens a single chat with a character and posts its greeting.
func (s *ChatService) StartChat(ctx context.Context, characterID string) (*domain.Chat, *domain.Message, error) {
	_, span := otel.Tracer("services/ChatService").Start(ctx, "StartChat",
		trace.WithAttributes(attribute.String("character.id", characterID)))
	defer span.End()

	c, err := s.Store.GetCharacter(characterID)
	if err != nil {
		return nil, nil, err
	}
	chat := s.Store.CreateChat(domain.ChatInput{
		Name:         "Chat with " + c.Name,
		Type:         domain.ChatSingle,
		Participants: []string{c.ID},
	})
	greeting := c.Greeting
	if greeting == "" {
		scenario := c.Scenario
		if scenario == "" {
			scenario = "How can I help you today?"
		}
		greeting = fmt.Sprintf("Hello! I'm %s. %s", c.Name, scenario)
	}
	msg, err := s.Store.CreateMessage(domain.MessageInput{
		ChatID:  chat.ID,
		Sender:  c.ID,
		Content: greeting,
		Role:    domain.RoleAssistant,
		Tokens:  provider.EstimateTokens(greeting),
	})
	if err != nil {
		return nil, nil, err
	}
	chat, err = s.Store.GetChat(chat.ID)
	if err != nil {
		return nil, nil, err
	}
	return chat, msg, nil
}

// Send posts a user message and waits for the full character reply.
func (s *ChatService) Send(ctx context.Context, chatID, content string) (*Exchange, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Send",
		trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	return s.exchange(ctx, chatID, content, func(ctx context.Context, req provider.Request) (provider.Result, error) {
		return s.Gen.Generate(ctx, req)
	})
}

// Stream posts a user message and delivers the reply through onDelta as it
// is produced. The reply is stored once complete.
func (s *ChatService) Stream(ctx context.Context, chatID, content string, onDelta func(string) error) (*Exchange, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Stream",
		trace.WithAttributes(attribute.String("chat.id", chatID)))
	defer span.End()

	return s.exchange(ctx, chatID, content, func(ctx context.Context, req provider.Request) (provider.Result, error) {
		return s.Gen.Stream(ctx, req, onDelta)
	})
}

type generateFunc func(ctx context.Context, req provider.Request) (provider.Result, error)

func (s *ChatService) exchange(ctx context.Context, chatID, content string, gen generateFunc) (*Exchange, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(content) > s.MaxMessageRunes {
		return nil, ErrMessageTooLong
	}

	chat, err := s.Store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	history, err := s.Store.ChatMessages(chatID)
	if err != nil {
		return nil, err
	}
	responder, err := s.pickResponder(chat, history)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.Store.CreateMessage(domain.MessageInput{
		ChatID:  chatID,
		Sender:  domain.UserSender,
		Content: content,
		Role:    domain.RoleUser,
		Tokens:  provider.EstimateTokens(content),
	})
	if err != nil {
		return nil, err
	}

	started := time.Now()
	req := s.buildRequest(chat, responder, append(history, *userMsg))
	res, err := gen(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	reply, err := s.recordReply(chatID, responder, res)
	if err != nil {
		return nil, err
	}
	if _, err := s.Store.RecordChatTime(chatID, time.Since(started)); err != nil {
		return nil, err
	}
	if res.Fallback {
		s.Log.Info().Str("chat_id", chatID).Msg("reply served by mock fallback")
	}
	return &Exchange{User: userMsg, Reply: reply, Provider: res.Provider, Fallback: res.Fallback}, nil
}

// Regenerate replaces a character reply with a fresh one generated from the
// conversation up to the last user message. The original reply is deleted
// only once a new one has been generated.
func (s *ChatService) Regenerate(ctx context.Context, messageID string) (*Exchange, error) {
	ctx, span := otel.Tracer("services/ChatService").Start(ctx, "Regenerate",
		trace.WithAttributes(attribute.String("message.id", messageID)))
	defer span.End()

	old, err := s.Store.GetMessage(messageID)
	if err != nil {
		return nil, err
	}
	if old.FromUser() {
		return nil, ErrNotRegenerable
	}
	chat, err := s.Store.GetChat(old.ChatID)
	if err != nil {
		return nil, err
	}
	history, err := s.Store.ChatMessages(chat.ID)
	if err != nil {
		return nil, err
	}

	// Drop the old reply and keep the conversation up to the last user turn.
	kept := make([]domain.Message, 0, len(history))
	lastUser := -1
	for _, m := range history {
		if m.ID == old.ID {
			continue
		}
		kept = append(kept, m)
		if m.FromUser() {
			lastUser = len(kept) - 1
		}
	}
	if lastUser < 0 {
		return nil, ErrNotRegenerable
	}

	responder, err := s.Store.GetCharacter(old.Sender)
	if err != nil || !chat.HasParticipant(responder.ID) {
		if responder, err = s.pickResponder(chat, kept); err != nil {
			return nil, err
		}
	}

	res, err := s.Gen.Generate(ctx, s.buildRequest(chat, responder, kept[:lastUser+1]))
	if err != nil {
		return nil, fmt.Errorf("regenerate reply: %w", err)
	}
	if err := s.Store.DeleteMessage(old.ID); err != nil {
		return nil, err
	}
	reply, err := s.recordReply(chat.ID, responder, res)
	if err != nil {
		return nil, err
	}
	return &Exchange{Reply: reply, Provider: res.Provider, Fallback: res.Fallback}, nil
}

func (s *ChatService) recordReply(chatID string, responder *domain.Character, res provider.Result) (*domain.Message, error) {
	return s.Store.CreateMessage(domain.MessageInput{
		ChatID:  chatID,
		Sender:  responder.ID,
		Content: res.Text,
		Role:    domain.RoleAssistant,
		Tokens:  provider.EstimateTokens(res.Text),
		Model:   res.Model,
	})
}

// pickResponder chooses the answering character round robin: the number of
// replies so far, modulo the number of existing participants.
func (s *ChatService) pickResponder(chat *domain.Chat, history []domain.Message) (*domain.Character, error) {
	var cast []*domain.Character
	for _, id := range chat.Participants {
		if c, err := s.Store.GetCharacter(id); err == nil {
			cast = append(cast, c)
		}
	}
	if len(cast) == 0 {
		return nil, ErrNoParticipants
	}
	replies := 0
	for _, m := range history {
		if !m.FromUser() && chat.HasParticipant(m.Sender) {
			replies++
		}
	}
	return cast[replies%len(cast)], nil
}

// buildRequest assembles the provider request for responder from the tail of
// the conversation. Other characters' lines are presented as user turns
// prefixed with the speaker's name.
func (s *ChatService) buildRequest(chat *domain.Chat, responder *domain.Character, history []domain.Message) provider.Request {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	names := map[string]string{}
	msgs := make([]provider.Message, 0, len(history))
	for _, m := range history {
		switch {
		case m.FromUser():
			msgs = append(msgs, provider.Message{Role: domain.RoleUser, Content: m.Content})
		case m.Sender == responder.ID:
			msgs = append(msgs, provider.Message{Role: domain.RoleAssistant, Content: m.Content})
		default:
			name, ok := names[m.Sender]
			if !ok {
				name = m.Sender
				if c, err := s.Store.GetCharacter(m.Sender); err == nil {
					name = c.Name
				}
				names[m.Sender] = name
			}
			msgs = append(msgs, provider.Message{Role: domain.RoleUser, Content: name + ": " + m.Content})
		}
	}
	return provider.Request{
		System:      s.systemPrompt(chat, responder),
		Messages:    msgs,
		Temperature: chat.Settings.Temperature,
		MaxTokens:   chat.Settings.MaxTokens,
		TopP:        s.TopP,
		Persona: provider.Persona{
			Name:        responder.Name,
			Personality: responder.Personality,
			Greeting:    responder.Greeting,
			Scenario:    responder.Scenario,
		},
	}
}

func (s *ChatService) systemPrompt(chat *domain.Chat, c *domain.Character) string {
	var b strings.Builder
	if p := strings.TrimSpace(chat.Settings.SystemPrompt); p != "" {
		b.WriteString(p)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "You are %s. Stay in character and reply as %s would.", c.Name, c.Name)
	if c.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", c.Description)
	}
	if c.Personality != "" {
		fmt.Fprintf(&b, "\nPersonality: %s", c.Personality)
	}
	if c.Scenario != "" {
		fmt.Fprintf(&b, "\nScenario: %s", c.Scenario)
	}
	if chat.Scenario != "" {
		if sc, err := s.Store.GetScenario(chat.Scenario); err == nil {
			fmt.Fprintf(&b, "\nSetting: %s", sc.Setting)
			if len(sc.Objectives) > 0 {
				fmt.Fprintf(&b, "\nObjectives: %s", strings.Join(sc.Objectives, "; "))
			}
			if len(sc.Rules) > 0 {
				fmt.Fprintf(&b, "\nRules: %s", strings.Join(sc.Rules, "; "))
			}
		}
	}
	if c.Examples != "" {
		fmt.Fprintf(&b, "\nExample dialogue:\n%s", c.Examples)
	}
	return b.String()
}
