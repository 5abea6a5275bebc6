// Package domain defines the records kept by the character hub: users,
// characters, chats, messages and scenarios. These types are held in memory
// by the entity store and serialized into snapshots with the JSON field names
// declared here, so the tags double as the snapshot wire format.
package domain

import (
	"slices"
	"time"
)

// Fixed identifiers and literals shared across the store and the services.
const (
	// DefaultUserID is the id of the singleton user that always exists.
	DefaultUserID = "user-default"
	// UserSender marks a message written by the user rather than a character.
	UserSender = "user"
	// DefaultModel is recorded on messages that do not name a model.
	DefaultModel = "default"
)

// Category is the content category of a character.
type Category string

const (
	CategoryHuman      Category = "human"
	CategoryHumanoid   Category = "humanoid"
	CategoryMythical   Category = "mythical"
	CategoryMechanical Category = "mechanical"
	CategoryAlien      Category = "alien"
	CategoryAnimal     Category = "animal"
	CategoryFantasy    Category = "fantasy"
	CategoryHistorical Category = "historical"
	CategoryCelebrity  Category = "celebrity"
	CategoryAnime      Category = "anime"
	CategoryGame       Category = "game"
	CategoryHorror     Category = "horror"
	CategoryRomantic   Category = "romantic"
	CategoryComedy     Category = "comedy"
	CategorySuperhero  Category = "superhero"
	CategoryVillain    Category = "villain"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryHuman, CategoryHumanoid, CategoryMythical, CategoryMechanical,
	CategoryAlien, CategoryAnimal, CategoryFantasy, CategoryHistorical,
	CategoryCelebrity, CategoryAnime, CategoryGame, CategoryHorror,
	CategoryRomantic, CategoryComedy, CategorySuperhero, CategoryVillain,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool { return slices.Contains(Categories, c) }

// Visibility controls whether a character or scenario is shared.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
)

// Valid reports whether v is private or public.
func (v Visibility) Valid() bool { return v == VisibilityPrivate || v == VisibilityPublic }

// ChatType describes how many characters take part in a chat.
type ChatType string

const (
	ChatSingle   ChatType = "single"
	ChatGroup    ChatType = "group"
	ChatScenario ChatType = "scenario"
)

// Valid reports whether t is a known chat type.
func (t ChatType) Valid() bool { return t == ChatSingle || t == ChatGroup || t == ChatScenario }

// Role is the conversational role of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Avatar is either an emoji glyph or a generated color and initial pair.
type Avatar struct {
	Type    string `json:"type"` // "emoji" | "initial"
	Emoji   string `json:"emoji,omitempty"`
	Color   string `json:"color,omitempty"`
	Initial string `json:"initial,omitempty"`
}

// CharacterStats are lifetime counters: chats and messages never decrease.
type CharacterStats struct {
	Chats    int     `json:"chats"`
	Messages int     `json:"messages"`
	Likes    int     `json:"likes"`
	Rating   float64 `json:"rating"`
}

// Character is a chatbot persona.
type Character struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Category    Category       `json:"category"`
	Personality string         `json:"personality"`
	Scenario    string         `json:"scenario"`
	Greeting    string         `json:"greeting"`
	Examples    string         `json:"examples"`
	Description string         `json:"description"`
	Tags        []string       `json:"tags"`
	Creator     string         `json:"creator"`
	Avatar      Avatar         `json:"avatar"`
	Stats       CharacterStats `json:"stats"`
	IsNSFW      bool           `json:"isNSFW"`
	Visibility  Visibility     `json:"visibility"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of c.
func (c *Character) Clone() *Character {
	out := *c
	out.Tags = cloneStrings(c.Tags)
	return &out
}

// ChatSettings are the generation settings applied to replies in a chat.
type ChatSettings struct {
	Temperature  float64 `json:"temperature"`
	MaxTokens    int     `json:"maxTokens"`
	SystemPrompt string  `json:"systemPrompt"`
}

// ChatStats tracks activity. Duration is in milliseconds.
type ChatStats struct {
	MessageCount int       `json:"messageCount"`
	Duration     int64     `json:"duration"`
	LastActivity time.Time `json:"lastActivity"`
}

// Chat is a conversation between the user and one or more characters.
// Messages holds message ids in creation order.
type Chat struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Type         ChatType     `json:"type"`
	Participants []string     `json:"participants"`
	Scenario     string       `json:"scenario,omitempty"`
	Messages     []string     `json:"messages"`
	Settings     ChatSettings `json:"settings"`
	Stats        ChatStats    `json:"stats"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy of c.
func (c *Chat) Clone() *Chat {
	out := *c
	out.Participants = cloneStrings(c.Participants)
	out.Messages = cloneStrings(c.Messages)
	return &out
}

// HasParticipant reports whether characterID takes part in the chat.
func (c *Chat) HasParticipant(characterID string) bool {
	return slices.Contains(c.Participants, characterID)
}

// MessageMetadata carries generation details and edit tracking.
type MessageMetadata struct {
	Tokens   int        `json:"tokens"`
	Model    string     `json:"model"`
	Edited   bool       `json:"edited"`
	EditedAt *time.Time `json:"editedAt"`
}

// Message is a single utterance in a chat. Sender is UserSender or a
// character id.
type Message struct {
	ID          string          `json:"id"`
	ChatID      string          `json:"chatId"`
	Sender      string          `json:"sender"`
	Content     string          `json:"content"`
	Role        Role            `json:"role"`
	Attachments []string        `json:"attachments"`
	Metadata    MessageMetadata `json:"metadata"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	out := *m
	out.Attachments = cloneStrings(m.Attachments)
	if m.Metadata.EditedAt != nil {
		t := *m.Metadata.EditedAt
		out.Metadata.EditedAt = &t
	}
	return &out
}

// FromUser reports whether the user wrote the message.
func (m *Message) FromUser() bool { return m.Sender == UserSender }

// ScenarioStats are lifetime counters for a scenario.
type ScenarioStats struct {
	Plays       int     `json:"plays"`
	Completions int     `json:"completions"`
	Rating      float64 `json:"rating"`
}

// Scenario is a reusable setting that groups characters around objectives.
type Scenario struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Characters  []string      `json:"characters"`
	Setting     string        `json:"setting"`
	Objectives  []string      `json:"objectives"`
	Rules       []string      `json:"rules"`
	Tags        []string      `json:"tags"`
	Creator     string        `json:"creator"`
	Stats       ScenarioStats `json:"stats"`
	IsNSFW      bool          `json:"isNSFW"`
	Visibility  Visibility    `json:"visibility"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// Clone returns a deep copy of s.
func (s *Scenario) Clone() *Scenario {
	out := *s
	out.Characters = cloneStrings(s.Characters)
	out.Objectives = cloneStrings(s.Objectives)
	out.Rules = cloneStrings(s.Rules)
	out.Tags = cloneStrings(s.Tags)
	return &out
}

// Preferences are the user's application settings.
type Preferences struct {
	Theme       string `json:"theme"`
	Language    string `json:"language"`
	NSFWEnabled bool   `json:"nsfwEnabled"`
	AutoSave    bool   `json:"autoSave"`
}

// UserStats are cumulative counters. TotalChatTime is in milliseconds.
type UserStats struct {
	CharactersCreated int   `json:"charactersCreated"`
	MessagesSent      int   `json:"messagesSent"`
	ScenariosCreated  int   `json:"scenariosCreated"`
	TotalChatTime     int64 `json:"totalChatTime"`
}

// User is the singleton owner of all records.
type User struct {
	ID          string      `json:"id"`
	Username    string      `json:"username"`
	Email       string      `json:"email"`
	Preferences Preferences `json:"preferences"`
	Stats       UserStats   `json:"stats"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Clone returns a copy of u.
func (u *User) Clone() *User {
	out := *u
	return &out
}

// NewDefaultUser builds the singleton user with its default preferences.
func NewDefaultUser(now time.Time) *User {
	return &User{
		ID:       DefaultUserID,
		Username: "User",
		Email:    "user@example.com",
		Preferences: Preferences{
			Theme:    "light",
			Language: "en",
			AutoSave: true,
		},
		CreatedAt: now,
	}
}

// cloneStrings copies s, mapping nil to an empty slice so records always
// serialize lists as [] rather than null.
func cloneStrings(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
