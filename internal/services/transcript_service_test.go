package services

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/store"
)

func newTranscriptFixture(t *testing.T) (*TranscriptService, string) {
	t.Helper()
	fixed := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	st := store.New(store.WithClock(func() time.Time { return fixed }))
	ada := st.CreateCharacter(domain.CharacterInput{Name: "Ada"})
	chat := st.CreateChat(domain.ChatInput{Name: "Late  night talk", Participants: []string{ada.ID}})
	for _, in := range []domain.MessageInput{
		{ChatID: chat.ID, Sender: domain.UserSender, Content: "Hello <b>there</b>"},
		{ChatID: chat.ID, Sender: ada.ID, Content: "Greetings, traveller, \"welcome\""},
	} {
		if _, err := st.CreateMessage(in); err != nil {
			t.Fatalf("CreateMessage: %v", err)
		}
	}
	svc := NewTranscriptService(st)
	svc.now = func() time.Time { return fixed }
	return svc, chat.ID
}

func TestTranscript_Formats(t *testing.T) {
	svc, chatID := newTranscriptFixture(t)

	cases := []struct {
		format   string
		ctype    string
		contains []string
	}{
		{"", "application/json", []string{`"exportDate"`, `"messages"`}},
		{"TXT", "text/plain", []string{"You: Hello <b>there</b>", "Ada: Greetings"}},
		{"md", "text/markdown", []string{"# Late  night talk", "**Ada**"}},
		{"html", "text/html", []string{"<title>Late  night talk</title>", "<strong>You</strong>"}},
		{"csv", "text/csv", []string{"timestamp,sender,role,content"}},
	}
	for _, tc := range cases {
		tr, err := svc.Export(chatID, tc.format)
		if err != nil {
			t.Fatalf("%q: %v", tc.format, err)
		}
		if !strings.HasPrefix(tr.ContentType, tc.ctype) {
			t.Fatalf("%q: content type %q", tc.format, tr.ContentType)
		}
		for _, want := range tc.contains {
			if !strings.Contains(string(tr.Body), want) {
				t.Fatalf("%q: body missing %q:\n%s", tc.format, want, tr.Body)
			}
		}
	}
}

func TestTranscript_FilenameAndJSONShape(t *testing.T) {
	svc, chatID := newTranscriptFixture(t)
	tr, err := svc.Export(chatID, "json")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if tr.Filename != "chat-Late-night-talk-2024-03-09.json" {
		t.Fatalf("filename %q", tr.Filename)
	}
	var out struct {
		Chat     domain.Chat      `json:"chat"`
		Messages []domain.Message `json:"messages"`
	}
	if err := json.Unmarshal(tr.Body, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Chat.ID != chatID || len(out.Messages) != 2 {
		t.Fatalf("json transcript %+v", out)
	}
}

func TestTranscript_HTMLEscapesRawMarkup(t *testing.T) {
	svc, chatID := newTranscriptFixture(t)
	tr, _ := svc.Export(chatID, "html")
	if strings.Contains(string(tr.Body), "<b>there</b>") {
		t.Fatalf("raw html leaked into transcript:\n%s", tr.Body)
	}
}

func TestTranscript_CSVQuoting(t *testing.T) {
	svc, chatID := newTranscriptFixture(t)
	tr, _ := svc.Export(chatID, "csv")
	rows, err := csv.NewReader(strings.NewReader(string(tr.Body))).ReadAll()
	if err != nil {
		t.Fatalf("csv parse: %v", err)
	}
	if len(rows) != 3 || rows[2][1] != "Ada" || rows[2][3] != `Greetings, traveller, "welcome"` {
		t.Fatalf("rows %v", rows)
	}
}

func TestTranscript_Errors(t *testing.T) {
	svc, chatID := newTranscriptFixture(t)
	if _, err := svc.Export(chatID, "pdf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("want ErrUnsupportedFormat, got %v", err)
	}
	if _, err := svc.Export("missing", "txt"); !errors.Is(err, store.ErrChatNotFound) {
		t.Fatalf("want ErrChatNotFound, got %v", err)
	}
}
