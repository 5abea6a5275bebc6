package domain

// CharacterInput carries the fields accepted when creating a character.
// Zero values are replaced with defaults by the store.
type CharacterInput struct {
	Name        string
	Category    Category
	Personality string
	Scenario    string
	Greeting    string
	Examples    string
	Description string
	Tags        []string
	Creator     string
	Avatar      *Avatar
	IsNSFW      bool
	Visibility  Visibility
}

// CharacterPatch is a typed partial update. Nil fields are left untouched.
type CharacterPatch struct {
	Name        *string
	Category    *Category
	Personality *string
	Scenario    *string
	Greeting    *string
	Examples    *string
	Description *string
	Tags        *[]string
	Avatar      *Avatar
	IsNSFW      *bool
	Visibility  *Visibility
	Rating      *float64
}

// CharacterFilter narrows and orders ListCharacters results.
type CharacterFilter struct {
	// Search is a case-insensitive substring over name, description and tags.
	Search string
	// Category filters by exact category; "" and "all" disable the filter.
	Category string
	// Tags must all be present on a character (case-insensitive).
	Tags []string
	// NSFW, when set, keeps only characters whose flag equals it.
	NSFW *bool
	// SortBy is one of name, created, popular, rating. Other values keep
	// insertion order.
	SortBy string
}

// Character sort keys.
const (
	SortByName    = "name"
	SortByCreated = "created"
	SortByPopular = "popular"
	SortByRating  = "rating"
)

// ChatInput carries the fields accepted when creating a chat.
type ChatInput struct {
	Name         string
	Type         ChatType
	Participants []string
	Scenario     string
	Settings     *ChatSettings
}

// ChatPatch is a typed partial update for chats.
type ChatPatch struct {
	Name     *string
	Type     *ChatType
	Scenario *string
	Settings *ChatSettings
}

// ChatFilter narrows ListChats results.
type ChatFilter struct {
	Type        ChatType
	Participant string
}

// MessageInput carries the fields accepted when creating a message.
type MessageInput struct {
	ChatID      string
	Sender      string
	Content     string
	Role        Role // derived from Sender when empty
	Attachments []string
	Tokens      int
	Model       string
}

// MessagePatch is a typed partial update for messages.
type MessagePatch struct {
	Content     *string
	Attachments *[]string
}

// ScenarioInput carries the fields accepted when creating a scenario.
type ScenarioInput struct {
	Name        string
	Description string
	Characters  []string
	Setting     string
	Objectives  []string
	Rules       []string
	Tags        []string
	Creator     string
	IsNSFW      bool
	Visibility  Visibility
}

// ScenarioPatch is a typed partial update for scenarios.
type ScenarioPatch struct {
	Name        *string
	Description *string
	Characters  *[]string
	Setting     *string
	Objectives  *[]string
	Rules       *[]string
	Tags        *[]string
	IsNSFW      *bool
	Visibility  *Visibility
	Rating      *float64
}

// ScenarioFilter narrows ListScenarios results.
type ScenarioFilter struct {
	Search    string
	Character string
	NSFW      *bool
}

// PreferencesPatch updates the singleton user's preferences.
type PreferencesPatch struct {
	Theme       *string
	Language    *string
	NSFWEnabled *bool
	AutoSave    *bool
}

// DefaultSearchLimit caps each result list when SearchOptions.Limit is unset.
const DefaultSearchLimit = 10

// SearchOptions tune the global search. Each kind is included unless skipped.
type SearchOptions struct {
	Limit          int
	SkipCharacters bool
	SkipChats      bool
	SkipScenarios  bool
}

// SearchResults groups matches per entity kind.
type SearchResults struct {
	Characters []Character `json:"characters"`
	Chats      []Chat      `json:"chats"`
	Scenarios  []Scenario  `json:"scenarios"`
}

// Counts reports collection sizes.
type Counts struct {
	Characters int `json:"characters"`
	Chats      int `json:"chats"`
	Messages   int `json:"messages"`
	Scenarios  int `json:"scenarios"`
	Users      int `json:"users"`
	Tags       int `json:"tags"`
}
