// Package services defines the application logic layered over the entity
// store: conversation flow with the provider gateway, snapshot persistence and
// autosave, provider key management, and transcript export. This file
// centralizes service-level error values so handlers can map them to HTTP
// results consistently.
package services

import "errors"

// Conversation errors.
var (
	// ErrEmptyMessage is returned when a message has no content after trimming.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when a message exceeds the configured
	// maximum length in runes.
	ErrMessageTooLong = errors.New("message too long")

	// ErrNoParticipants is returned when a chat has no existing character to
	// answer.
	ErrNoParticipants = errors.New("chat has no characters to respond")

	// ErrNotRegenerable is returned when regeneration targets a user message or
	// a reply with no preceding user message.
	ErrNotRegenerable = errors.New("message cannot be regenerated")
)

// Data and export errors.
var (
	// ErrUnsupportedFormat is returned for unknown transcript formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")

	// ErrImportTooLarge is returned when an import body exceeds the cap.
	ErrImportTooLarge = errors.New("import data too large")
)
