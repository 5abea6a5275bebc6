// Package snapshot defines the versioned envelope used to persist, export and
// import the whole entity store.
//
// Every entity collection is encoded as an ordered list of [id, record]
// pairs, matching insertion order in the store:
//
//	{
//	  "version": "1.0",
//	  "exportDate": "2024-05-01T10:00:00Z",
//	  "data": {
//	    "characters": [["char-…", {...}], ...],
//	    "chats":      [["chat-…", {...}], ...],
//	    "messages":   [["msg-…", {...}], ...],
//	    "scenarios":  [["scenario-…", {...}], ...],
//	    "users":      [["user-default", {...}]],
//	    "tags":       ["fantasy", ...]
//	  }
//	}
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tbourn/character-hub/internal/domain"
)

// Version is written into every snapshot produced by this package.
const Version = "1.0"

// ErrInvalidFormat is returned when a payload lacks the expected shape.
var ErrInvalidFormat = errors.New("invalid import data format")

// Entry is one (id, record) pair of a collection.
type Entry[T any] struct {
	ID     string
	Record T
}

// MarshalJSON encodes the entry as a two element array.
func (e Entry[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.ID, e.Record})
}

// UnmarshalJSON decodes a two element [id, record] array. Any other shape is
// reported as ErrInvalidFormat.
func (e *Entry[T]) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil || len(pair) != 2 {
		return fmt.Errorf("%w: entry must be an [id, record] pair", ErrInvalidFormat)
	}
	if err := json.Unmarshal(pair[0], &e.ID); err != nil || e.ID == "" {
		return fmt.Errorf("%w: entry id must be a non-empty string", ErrInvalidFormat)
	}
	if err := json.Unmarshal(pair[1], &e.Record); err != nil {
		return fmt.Errorf("%w: record %q: %v", ErrInvalidFormat, e.ID, err)
	}
	return nil
}

// Data holds every collection of the store.
type Data struct {
	Characters []Entry[domain.Character] `json:"characters"`
	Chats      []Entry[domain.Chat]      `json:"chats"`
	Messages   []Entry[domain.Message]   `json:"messages"`
	Scenarios  []Entry[domain.Scenario]  `json:"scenarios"`
	Users      []Entry[domain.User]      `json:"users"`
	Tags       []string                  `json:"tags"`
}

// Snapshot is the versioned envelope around Data.
type Snapshot struct {
	Version    string    `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	Data       *Data     `json:"data"`
}

// New wraps data in an envelope stamped with the current version.
func New(data *Data, now time.Time) *Snapshot {
	return &Snapshot{Version: Version, ExportDate: now.UTC(), Data: data}
}

// Validate checks the top-level shape. Individual records are validated
// while decoding.
func Validate(s *Snapshot) error {
	if s == nil || s.Data == nil {
		return ErrInvalidFormat
	}
	return nil
}

// Decode reads a snapshot from r and validates it.
func Decode(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		if errors.Is(err, ErrInvalidFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Unmarshal is Decode over a byte slice.
func Unmarshal(b []byte) (*Snapshot, error) {
	return Decode(bytes.NewReader(b))
}

// Encode writes s to w as JSON, optionally indented for human consumption.
func Encode(w io.Writer, s *Snapshot, indent bool) error {
	if err := Validate(s); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(s)
}

// Marshal returns the compact JSON encoding of s.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
