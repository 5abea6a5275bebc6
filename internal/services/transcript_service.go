// Package services – TranscriptService
//
// TranscriptService renders a chat and its messages for download in JSON,
// plain text, Markdown, HTML or CSV. HTML is produced by rendering the
// Markdown transcript with goldmark, which escapes raw HTML in messages.
package services

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/tbourn/character-hub/internal/domain"
	"github.com/tbourn/character-hub/internal/store"
)

// Transcript formats.
const (
	FormatJSON     = "json"
	FormatText     = "txt"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatCSV      = "csv"
)

var contentTypes = map[string]string{
	FormatJSON:     "application/json; charset=utf-8",
	FormatText:     "text/plain; charset=utf-8",
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatHTML:     "text/html; charset=utf-8",
	FormatCSV:      "text/csv; charset=utf-8",
}

var spaceRun = regexp.MustCompile(`\s+`)

// Transcript is a rendered chat ready for download.
type Transcript struct {
	Filename    string
	ContentType string
	Body        []byte
}

// TranscriptService renders chat transcripts.
type TranscriptService struct {
	Store *store.Store

	md  goldmark.Markdown
	now func() time.Time
}

// NewTranscriptService constructs a TranscriptService.
func NewTranscriptService(st *store.Store) *TranscriptService {
	return &TranscriptService{
		Store: st,
		md:    goldmark.New(goldmark.WithExtensions(extension.GFM)),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

type transcriptLine struct {
	At      time.Time
	Speaker string
	Role    domain.Role
	Content string
}

// Export renders chatID in format. Unknown formats fail with
// ErrUnsupportedFormat.
func (s *TranscriptService) Export(chatID, format string) (*Transcript, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatJSON
	}
	ctype, ok := contentTypes[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	chat, err := s.Store.GetChat(chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.Store.ChatMessages(chatID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var body []byte
	switch format {
	case FormatJSON:
		body, err = json.MarshalIndent(struct {
			Chat       *domain.Chat     `json:"chat"`
			Messages   []domain.Message `json:"messages"`
			ExportDate time.Time        `json:"exportDate"`
		}{chat, msgs, now}, "", "  ")
	case FormatText:
		body = s.text(chat, s.lines(msgs), now)
	case FormatMarkdown:
		body = s.markdown(chat, s.lines(msgs), now)
	case FormatHTML:
		body, err = s.html(chat, s.lines(msgs), now)
	case FormatCSV:
		body, err = s.csv(s.lines(msgs))
	}
	if err != nil {
		return nil, err
	}

	name := spaceRun.ReplaceAllString(strings.TrimSpace(chat.Name), "-")
	return &Transcript{
		Filename:    fmt.Sprintf("chat-%s-%s.%s", name, now.Format("2006-01-02"), format),
		ContentType: ctype,
		Body:        body,
	}, nil
}

func (s *TranscriptService) lines(msgs []domain.Message) []transcriptLine {
	names := map[string]string{}
	out := make([]transcriptLine, 0, len(msgs))
	for _, m := range msgs {
		speaker := "You"
		if !m.FromUser() {
			n, ok := names[m.Sender]
			if !ok {
				n = m.Sender
				if c, err := s.Store.GetCharacter(m.Sender); err == nil {
					n = c.Name
				}
				names[m.Sender] = n
			}
			speaker = n
		}
		out = append(out, transcriptLine{At: m.CreatedAt, Speaker: speaker, Role: m.Role, Content: m.Content})
	}
	return out
}

func (s *TranscriptService) text(chat *domain.Chat, lines []transcriptLine, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s\nExported: %s\n\n", chat.Name, now.Format(time.RFC3339))
	for _, l := range lines {
		fmt.Fprintf(&b, "[%s] %s: %s\n", l.At.Format("2006-01-02 15:04"), l.Speaker, l.Content)
	}
	return b.Bytes()
}

func (s *TranscriptService) markdown(chat *domain.Chat, lines []transcriptLine, now time.Time) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n_Exported %s_\n\n", chat.Name, now.Format(time.RFC3339))
	for _, l := range lines {
		fmt.Fprintf(&b, "**%s** · %s\n\n%s\n\n", l.Speaker, l.At.Format("2006-01-02 15:04"), l.Content)
	}
	return b.Bytes()
}

func (s *TranscriptService) html(chat *domain.Chat, lines []transcriptLine, now time.Time) ([]byte, error) {
	var rendered bytes.Buffer
	if err := s.md.Convert(s.markdown(chat, lines, now), &rendered); err != nil {
		return nil, err
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		html.EscapeString(chat.Name))
	b.Write(rendered.Bytes())
	b.WriteString("</body>\n</html>\n")
	return b.Bytes(), nil
}

func (s *TranscriptService) csv(lines []transcriptLine) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	_ = w.Write([]string{"timestamp", "sender", "role", "content"})
	for _, l := range lines {
		_ = w.Write([]string{l.At.Format(time.RFC3339), l.Speaker, string(l.Role), l.Content})
	}
	w.Flush()
	return b.Bytes(), w.Error()
}
