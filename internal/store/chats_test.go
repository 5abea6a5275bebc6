package store

import (
	"errors"
	"testing"

	"github.com/tbourn/character-hub/internal/domain"
)

func TestCreateChat_DefaultsAndMonotonicParticipantStats(t *testing.T) {
	s := newTestStore(t)
	a := mkChar(s, "A", domain.CategoryHuman)
	b := mkChar(s, "B", domain.CategoryHuman)

	ch := s.CreateChat(domain.ChatInput{Participants: []string{a.ID, b.ID, "ghost"}})
	if ch.Name != DefaultChatName || ch.Type != domain.ChatSingle {
		t.Fatalf("defaults = %+v", ch)
	}
	if ch.Settings.Temperature != DefaultTemperature || ch.Settings.MaxTokens != DefaultMaxTokens {
		t.Fatalf("settings = %+v", ch.Settings)
	}
	if ch.Messages == nil || ch.Stats.MessageCount != 0 || ch.Stats.LastActivity.IsZero() {
		t.Fatalf("stats = %+v messages=%#v", ch.Stats, ch.Messages)
	}

	for _, id := range []string{a.ID, b.ID} {
		c, _ := s.GetCharacter(id)
		if c.Stats.Chats != 1 {
			t.Fatalf("%s chats = %d, want 1", id, c.Stats.Chats)
		}
	}

	if err := s.DeleteChat(ch.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Chat counters model lifetime activity and are not decremented.
	for _, id := range []string{a.ID, b.ID} {
		c, _ := s.GetCharacter(id)
		if c.Stats.Chats != 1 {
			t.Fatalf("%s chats = %d after delete, want 1", id, c.Stats.Chats)
		}
	}
	if err := s.DeleteChat(ch.ID); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestUpdateChat(t *testing.T) {
	s := newTestStore(t)
	ch := s.CreateChat(domain.ChatInput{Name: "Old"})
	name := "Renamed"
	settings := domain.ChatSettings{Temperature: 0.2, MaxTokens: 0, SystemPrompt: "be brief"}
	up, err := s.UpdateChat(ch.ID, domain.ChatPatch{Name: &name, Settings: &settings})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.Name != "Renamed" || up.Settings.Temperature != 0.2 || up.Settings.MaxTokens != DefaultMaxTokens || up.Settings.SystemPrompt != "be brief" {
		t.Fatalf("update = %+v", up)
	}
	if !up.UpdatedAt.After(ch.UpdatedAt) {
		t.Fatalf("updatedAt not refreshed")
	}
	if _, err := s.UpdateChat("x", domain.ChatPatch{}); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want not found")
	}
}

func TestListChats_FilterAndOrder(t *testing.T) {
	s := newTestStore(t)
	a := mkChar(s, "A", domain.CategoryHuman)
	first := s.CreateChat(domain.ChatInput{Participants: []string{a.ID}})
	second := s.CreateChat(domain.ChatInput{Type: domain.ChatGroup})
	third := s.CreateChat(domain.ChatInput{Participants: []string{a.ID}})

	// Activity on the first chat moves it to the front.
	if _, err := s.CreateMessage(domain.MessageInput{ChatID: first.ID, Sender: domain.UserSender, Content: "ping"}); err != nil {
		t.Fatalf("message: %v", err)
	}

	all := s.ListChats(domain.ChatFilter{})
	if len(all) != 3 || all[0].ID != first.ID || all[1].ID != third.ID || all[2].ID != second.ID {
		t.Fatalf("order = %v %v %v", all[0].ID, all[1].ID, all[2].ID)
	}
	groups := s.ListChats(domain.ChatFilter{Type: domain.ChatGroup})
	if len(groups) != 1 || groups[0].ID != second.ID {
		t.Fatalf("type filter = %+v", groups)
	}
	withA := s.ListChats(domain.ChatFilter{Participant: a.ID})
	if len(withA) != 2 {
		t.Fatalf("participant filter = %d", len(withA))
	}
}

func TestCreateMessage(t *testing.T) {
	s := newTestStore(t)
	a := mkChar(s, "A", domain.CategoryHuman)
	ch := s.CreateChat(domain.ChatInput{Participants: []string{a.ID}})

	if _, err := s.CreateMessage(domain.MessageInput{ChatID: "missing", Sender: domain.UserSender, Content: "x"}); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want chat not found, got %v", err)
	}
	if c := s.Counts(); c.Messages != 0 {
		t.Fatalf("failed create must not register a message")
	}

	um, err := s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: domain.UserSender, Content: "hi"})
	if err != nil {
		t.Fatalf("user message: %v", err)
	}
	am, _ := s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: a.ID, Content: "hello", Tokens: 2, Model: "gpt-4"})

	if um.Role != domain.RoleUser || am.Role != domain.RoleAssistant {
		t.Fatalf("roles = %s / %s", um.Role, am.Role)
	}
	if um.Metadata.Model != domain.DefaultModel || am.Metadata.Model != "gpt-4" || am.Metadata.Tokens != 2 {
		t.Fatalf("metadata = %+v / %+v", um.Metadata, am.Metadata)
	}
	if um.Metadata.Edited || um.Metadata.EditedAt != nil {
		t.Fatalf("new message marked edited")
	}

	got, _ := s.GetChat(ch.ID)
	if got.Stats.MessageCount != 2 || len(got.Messages) != 2 || got.Messages[0] != um.ID || got.Messages[1] != am.ID {
		t.Fatalf("chat after messages = %+v", got)
	}
	if !got.Stats.LastActivity.Equal(am.CreatedAt) {
		t.Fatalf("lastActivity = %v, want %v", got.Stats.LastActivity, am.CreatedAt)
	}
	if s.UserStats().MessagesSent != 1 {
		t.Fatalf("messagesSent = %d", s.UserStats().MessagesSent)
	}
	ca, _ := s.GetCharacter(a.ID)
	if ca.Stats.Messages != 1 {
		t.Fatalf("character messages = %d", ca.Stats.Messages)
	}

	// An explicit role overrides the derived one.
	sys, _ := s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: domain.UserSender, Content: "rules", Role: domain.RoleSystem})
	if sys.Role != domain.RoleSystem {
		t.Fatalf("role override ignored")
	}
}

func TestDeleteMessage(t *testing.T) {
	s := newTestStore(t)
	a := mkChar(s, "A", domain.CategoryHuman)
	ch := s.CreateChat(domain.ChatInput{Participants: []string{a.ID}})
	m1, _ := s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: a.ID, Content: "one"})
	m2, _ := s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: domain.UserSender, Content: "two"})

	if err := s.DeleteMessage(m1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ := s.GetChat(ch.ID)
	if got.Stats.MessageCount != 1 || len(got.Messages) != 1 || got.Messages[0] != m2.ID {
		t.Fatalf("chat after delete = %+v", got)
	}
	// Sender stats are not decremented.
	ca, _ := s.GetCharacter(a.ID)
	if ca.Stats.Messages != 1 {
		t.Fatalf("character messages = %d", ca.Stats.Messages)
	}
	if err := s.DeleteMessage(m1.ID); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

func TestUpdateMessage_MarksEdited(t *testing.T) {
	s := newTestStore(t)
	ch := s.CreateChat(domain.ChatInput{})
	m, _ := s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: domain.UserSender, Content: "typo"})

	fixed := "fixed"
	up, err := s.UpdateMessage(m.ID, domain.MessagePatch{Content: &fixed})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if up.Content != "fixed" || !up.Metadata.Edited || up.Metadata.EditedAt == nil || !up.Metadata.EditedAt.After(m.CreatedAt) {
		t.Fatalf("update = %+v", up)
	}
	if _, err := s.UpdateMessage("x", domain.MessagePatch{}); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("want not found")
	}
}

func TestChatMessages_Order(t *testing.T) {
	s := newTestStore(t)
	ch := s.CreateChat(domain.ChatInput{})
	for _, txt := range []string{"a", "b", "c"} {
		_, _ = s.CreateMessage(domain.MessageInput{ChatID: ch.ID, Sender: domain.UserSender, Content: txt})
	}
	msgs, err := s.ChatMessages(ch.ID)
	if err != nil || len(msgs) != 3 || msgs[0].Content != "a" || msgs[2].Content != "c" {
		t.Fatalf("messages = %+v err=%v", msgs, err)
	}
	if _, err := s.ChatMessages("x"); !errors.Is(err, ErrChatNotFound) {
		t.Fatalf("want not found")
	}
}

func TestScenarios(t *testing.T) {
	s := newTestStore(t)
	a := mkChar(s, "A", domain.CategoryHuman)
	sc := s.CreateScenario(domain.ScenarioInput{
		Name: "Castle Siege", Description: "Defend the keep", Characters: []string{a.ID},
		Objectives: []string{"survive"}, Tags: []string{"War"},
	})
	if sc.ID != "scenario-2" || sc.Visibility != domain.VisibilityPrivate || sc.Rules == nil {
		t.Fatalf("scenario = %+v", sc)
	}
	if s.UserStats().ScenariosCreated != 1 {
		t.Fatalf("scenariosCreated not bumped")
	}

	desc := "Hold the walls"
	up, err := s.UpdateScenario(sc.ID, domain.ScenarioPatch{Description: &desc})
	if err != nil || up.Description != desc {
		t.Fatalf("update = %+v err=%v", up, err)
	}
	played, _ := s.PlayScenario(sc.ID, false)
	done, _ := s.PlayScenario(sc.ID, true)
	if played.Stats.Plays != 1 || done.Stats.Completions != 1 {
		t.Fatalf("play stats = %+v", done.Stats)
	}

	if got := s.ListScenarios(domain.ScenarioFilter{Search: "WALLS"}); len(got) != 1 {
		t.Fatalf("search = %d", len(got))
	}
	if got := s.ListScenarios(domain.ScenarioFilter{Character: "other"}); len(got) != 0 {
		t.Fatalf("character filter = %d", len(got))
	}

	ch := s.CreateChat(domain.ChatInput{Type: domain.ChatScenario, Scenario: sc.ID})
	if err := s.DeleteScenario(sc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := s.GetChat(ch.ID)
	if err != nil || got.Scenario != "" {
		t.Fatalf("chat after scenario delete = %+v err=%v", got, err)
	}
	if err := s.DeleteScenario(sc.ID); !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := s.UpdateScenario(sc.ID, domain.ScenarioPatch{}); !errors.Is(err, ErrScenarioNotFound) {
		t.Fatalf("update missing: %v", err)
	}
}
