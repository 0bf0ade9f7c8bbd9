// Package transport defines the chat-platform boundary: inbound events,
// the outbound sender, and the command router that drives the generation
// services. No concrete chat platform client lives here; the binary wires
// one in behind the Source and Sender interfaces.
package transport

import "context"

// EventKind classifies an inbound chat event.
type EventKind string

const (
	// EventCommand is a slash command such as "generate" or "status".
	EventCommand EventKind = "command"
	// EventPhoto carries a reference to an uploaded photo.
	EventPhoto EventKind = "photo"
	// EventText is free text, typically the generation prompt.
	EventText EventKind = "text"
)

// Event is one inbound chat event, already stripped of platform framing.
type Event struct {
	UserID  int64
	ChatID  int64
	Kind    EventKind
	Command string // set when Kind is EventCommand, without the leading slash
	Text    string // set when Kind is EventText
	Photo   string // set when Kind is EventPhoto; an opaque platform file reference
}

// Sender pushes outbound content to a chat.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	SendVideo(ctx context.Context, chatID int64, resultRef, caption string) error
}

// Source yields batches of inbound events, blocking until events are
// available or the context ends.
type Source interface {
	Next(ctx context.Context) ([]Event, error)
}
