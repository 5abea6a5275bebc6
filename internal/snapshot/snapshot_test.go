package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
)

func sampleSnapshot() *Snapshot {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return New(&Data{
		Characters: []Entry[domain.Character]{{
			ID: "char-1",
			Record: domain.Character{
				ID: "char-1", Name: "Ada", Category: domain.CategoryHuman,
				Tags: []string{"Math"}, Avatar: domain.Avatar{Type: "initial", Color: "#3B82F6", Initial: "A"},
				Visibility: domain.VisibilityPrivate, CreatedAt: now, UpdatedAt: now,
			},
		}},
		Users: []Entry[domain.User]{{ID: domain.DefaultUserID, Record: *domain.NewDefaultUser(now)}},
		Tags:  []string{"math"},
	}, now)
}

func TestEntry_EncodesAsPair(t *testing.T) {
	b, err := json.Marshal(Entry[domain.Chat]{ID: "chat-1", Record: domain.Chat{ID: "chat-1", Name: "x"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil || len(pair) != 2 {
		t.Fatalf("expected a 2-element array, got %s", b)
	}
	if string(pair[0]) != `"chat-1"` {
		t.Fatalf("first element = %s", pair[0])
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	in := sampleSnapshot()
	var buf bytes.Buffer
	if err := Encode(&buf, in, true); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(buf.String(), `"version": "1.0"`) {
		t.Fatalf("indented output missing version: %s", buf.String())
	}
	out, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Version != Version || !out.ExportDate.Equal(in.ExportDate) {
		t.Fatalf("envelope mismatch: %+v", out)
	}
	got := out.Data.Characters[0]
	if got.ID != "char-1" || got.Record.Name != "Ada" || got.Record.Tags[0] != "Math" {
		t.Fatalf("character mismatch: %+v", got)
	}
	if len(out.Data.Users) != 1 || out.Data.Users[0].Record.Email != "user@example.com" {
		t.Fatalf("users mismatch: %+v", out.Data.Users)
	}
}

func TestDecode_InvalidFormat(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"missing data":   `{"version":"1.0"}`,
		"null data":      `{"version":"1.0","data":null}`,
		"entry not pair": `{"data":{"chats":[{"id":"x"}]}}`,
		"short pair":     `{"data":{"chats":[["x"]]}}`,
		"empty id":       `{"data":{"chats":[["", {}]]}}`,
		"bad record":     `{"data":{"characters":[["c", {"name": 5}]]}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal([]byte(body))
			if !errors.Is(err, ErrInvalidFormat) {
				t.Fatalf("want ErrInvalidFormat, got %v", err)
			}
		})
	}
}

func TestDecode_EmptyDataIsValid(t *testing.T) {
	s, err := Unmarshal([]byte(`{"version":"1.0","data":{}}`))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if s.Data == nil || len(s.Data.Characters) != 0 {
		t.Fatalf("unexpected data: %+v", s.Data)
	}
}

func TestValidate_And_EncodeNil(t *testing.T) {
	if !errors.Is(Validate(nil), ErrInvalidFormat) {
		t.Fatalf("nil snapshot should be invalid")
	}
	if !errors.Is(Validate(&Snapshot{Version: Version}), ErrInvalidFormat) {
		t.Fatalf("snapshot without data should be invalid")
	}
	if _, err := Marshal(&Snapshot{}); !errors.Is(err, ErrInvalidFormat) {
		t.Fatalf("marshal should reject missing data, got %v", err)
	}
}
