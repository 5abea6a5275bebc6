package handlers

import (
	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/provider"
	"github.com/tbourn/character-hub/internal/utils"
)

//
// Characters
//

// CreateCharacterRequest is the JSON payload for creating a character.
type CreateCharacterRequest struct {
	Name        string            `json:"name" binding:"required,min=2,max=50,charname"`
	Category    domain.Category   `json:"category" binding:"omitempty,category"`
	Personality string            `json:"personality" binding:"required,min=20,max=1000"`
	Scenario    string            `json:"scenario" binding:"omitempty,min=10,max=500"`
	Greeting    string            `json:"greeting" binding:"omitempty,min=10,max=500"`
	Examples    string            `json:"examples" binding:"max=5000"`
	Description string            `json:"description" binding:"max=1000"`
	Tags        []string          `json:"tags" binding:"max=10,dive,min=2,max=20"`
	Avatar      *domain.Avatar    `json:"avatar"`
	IsNSFW      bool              `json:"isNSFW"`
	Visibility  domain.Visibility `json:"visibility" binding:"omitempty,oneof=private public"`
}

func (r CreateCharacterRequest) input() domain.CharacterInput {
	return domain.CharacterInput{
		Name:        r.Name,
		Category:    r.Category,
		Personality: r.Personality,
		Scenario:    r.Scenario,
		Greeting:    r.Greeting,
		Examples:    r.Examples,
		Description: r.Description,
		Tags:        r.Tags,
		Avatar:      r.Avatar,
		IsNSFW:      r.IsNSFW,
		Visibility:  r.Visibility,
	}
}

// UpdateCharacterRequest is a partial update; omitted fields are unchanged.
type UpdateCharacterRequest struct {
	Name        *string            `json:"name" binding:"omitempty,min=2,max=50,charname"`
	Category    *domain.Category   `json:"category" binding:"omitempty,category"`
	Personality *string            `json:"personality" binding:"omitempty,min=20,max=1000"`
	Scenario    *string            `json:"scenario" binding:"omitempty,max=500"`
	Greeting    *string            `json:"greeting" binding:"omitempty,max=500"`
	Examples    *string            `json:"examples" binding:"omitempty,max=5000"`
	Description *string            `json:"description" binding:"omitempty,max=1000"`
	Tags        *[]string          `json:"tags" binding:"omitempty,max=10,dive,min=2,max=20"`
	Avatar      *domain.Avatar     `json:"avatar"`
	IsNSFW      *bool              `json:"isNSFW"`
	Visibility  *domain.Visibility `json:"visibility" binding:"omitempty,oneof=private public"`
	Rating      *float64           `json:"rating" binding:"omitempty,min=0,max=5"`
}

func (r UpdateCharacterRequest) patch() domain.CharacterPatch {
	return domain.CharacterPatch{
		Name:        r.Name,
		Category:    r.Category,
		Personality: r.Personality,
		Scenario:    r.Scenario,
		Greeting:    r.Greeting,
		Examples:    r.Examples,
		Description: r.Description,
		Tags:        r.Tags,
		Avatar:      r.Avatar,
		IsNSFW:      r.IsNSFW,
		Visibility:  r.Visibility,
		Rating:      r.Rating,
	}
}

// ListCharactersResponse wraps a page of characters.
type ListCharactersResponse struct {
	Characters []domain.Character `json:"characters"`
	Pagination utils.Page         `json:"pagination"`
}

// StartChatResponse is returned when a chat with a character is opened.
type StartChatResponse struct {
	Chat     *domain.Chat    `json:"chat"`
	Greeting *domain.Message `json:"greeting"`
}

//
// Chats and messages
//

// ChatSettingsRequest carries generation settings.
type ChatSettingsRequest struct {
	Temperature  float64 `json:"temperature" binding:"min=0,max=2"`
	MaxTokens    int     `json:"maxTokens" binding:"min=0,max=32000"`
	SystemPrompt string  `json:"systemPrompt" binding:"max=4000"`
}

func (r *ChatSettingsRequest) settings() *domain.ChatSettings {
	if r == nil {
		return nil
	}
	return &domain.ChatSettings{Temperature: r.Temperature, MaxTokens: r.MaxTokens, SystemPrompt: r.SystemPrompt}
}

// CreateChatRequest is the JSON payload for creating a chat.
type CreateChatRequest struct {
	Name         string               `json:"name" binding:"omitempty,min=2,max=50"`
	Type         domain.ChatType      `json:"type" binding:"omitempty,oneof=single group scenario"`
	Participants []string             `json:"participants" binding:"required,min=1,dive,required"`
	Scenario     string               `json:"scenario"`
	Settings     *ChatSettingsRequest `json:"settings"`
}

// UpdateChatRequest is a partial chat update.
type UpdateChatRequest struct {
	Name     *string              `json:"name" binding:"omitempty,min=2,max=50"`
	Type     *domain.ChatType     `json:"type" binding:"omitempty,oneof=single group scenario"`
	Scenario *string              `json:"scenario"`
	Settings *ChatSettingsRequest `json:"settings"`
}

// ListChatsResponse wraps a page of chats.
type ListChatsResponse struct {
	Chats      []domain.Chat `json:"chats"`
	Pagination utils.Page    `json:"pagination"`
}

// PostMessageRequest is the JSON payload for sending a user message.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required,min=1,max=5000"`
}

// UpdateMessageRequest edits a message.
type UpdateMessageRequest struct {
	Content     *string   `json:"content" binding:"omitempty,min=1,max=5000"`
	Attachments *[]string `json:"attachments" binding:"omitempty,max=10"`
}

// ListMessagesResponse wraps a page of messages in creation order.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination utils.Page       `json:"pagination"`
}

//
// Scenarios
//

// CreateScenarioRequest is the JSON payload for creating a scenario.
type CreateScenarioRequest struct {
	Name        string            `json:"name" binding:"required,min=2,max=100"`
	Description string            `json:"description" binding:"max=1000"`
	Characters  []string          `json:"characters" binding:"max=20,dive,required"`
	Setting     string            `json:"setting" binding:"max=2000"`
	Objectives  []string          `json:"objectives" binding:"max=20"`
	Rules       []string          `json:"rules" binding:"max=20"`
	Tags        []string          `json:"tags" binding:"max=10,dive,min=2,max=20"`
	IsNSFW      bool              `json:"isNSFW"`
	Visibility  domain.Visibility `json:"visibility" binding:"omitempty,oneof=private public"`
}

func (r CreateScenarioRequest) input() domain.ScenarioInput {
	return domain.ScenarioInput{
		Name:        r.Name,
		Description: r.Description,
		Characters:  r.Characters,
		Setting:     r.Setting,
		Objectives:  r.Objectives,
		Rules:       r.Rules,
		Tags:        r.Tags,
		IsNSFW:      r.IsNSFW,
		Visibility:  r.Visibility,
	}
}

// UpdateScenarioRequest is a partial scenario update.
type UpdateScenarioRequest struct {
	Name        *string            `json:"name" binding:"omitempty,min=2,max=100"`
	Description *string            `json:"description" binding:"omitempty,max=1000"`
	Characters  *[]string          `json:"characters" binding:"omitempty,max=20"`
	Setting     *string            `json:"setting" binding:"omitempty,max=2000"`
	Objectives  *[]string          `json:"objectives" binding:"omitempty,max=20"`
	Rules       *[]string          `json:"rules" binding:"omitempty,max=20"`
	Tags        *[]string          `json:"tags" binding:"omitempty,max=10,dive,min=2,max=20"`
	IsNSFW      *bool              `json:"isNSFW"`
	Visibility  *domain.Visibility `json:"visibility" binding:"omitempty,oneof=private public"`
	Rating      *float64           `json:"rating" binding:"omitempty,min=0,max=5"`
}

func (r UpdateScenarioRequest) patch() domain.ScenarioPatch {
	return domain.ScenarioPatch{
		Name:        r.Name,
		Description: r.Description,
		Characters:  r.Characters,
		Setting:     r.Setting,
		Objectives:  r.Objectives,
		Rules:       r.Rules,
		Tags:        r.Tags,
		IsNSFW:      r.IsNSFW,
		Visibility:  r.Visibility,
		Rating:      r.Rating,
	}
}

// PlayScenarioRequest records a play, optionally completed.
type PlayScenarioRequest struct {
	Completed bool `json:"completed"`
}

//
// User
//

// UpdatePreferencesRequest is a partial preferences update.
type UpdatePreferencesRequest struct {
	Theme       *string `json:"theme" binding:"omitempty,oneof=light dark"`
	Language    *string `json:"language" binding:"omitempty,min=2,max=10"`
	NSFWEnabled *bool   `json:"nsfwEnabled"`
	AutoSave    *bool   `json:"autoSave"`
}

//
// Providers
//

// SetProviderRequest selects the active backend.
type SetProviderRequest struct {
	Provider string `json:"provider" binding:"required"`
}

// SetAPIKeyRequest stores (or, when empty, clears) a backend key.
type SetAPIKeyRequest struct {
	APIKey string `json:"apiKey" binding:"max=512"`
}

// TestProviderRequest optionally supplies a key to test instead of the
// stored one.
type TestProviderRequest struct {
	APIKey string `json:"apiKey" binding:"max=512"`
}

// ProvidersResponse lists every backend and the selected one.
type ProvidersResponse struct {
	Current   provider.Kind     `json:"current"`
	Providers []provider.Status `json:"providers"`
}
