package model

import "context"

// ── Port Interfaces ──
// These interfaces decouple the evaluation core from concrete collaborators
// (SQLite journal, Redis publisher, order placement). Each implementation
// satisfies one of these interfaces.

// EventJournal persists emitted alert events for audit and dashboard queries.
type EventJournal interface {
	// RecordEvent appends one event to the journal.
	RecordEvent(ev AlertEvent) error

	// Close releases underlying resources.
	Close() error
}

// EventPublisher pushes alert events to a live consumer (e.g. the dashboard
// front-end via a Redis stream).
type EventPublisher interface {
	// Publish delivers one event. Returns an error on transport failure.
	Publish(ctx context.Context, ev AlertEvent) error

	// Close releases underlying resources.
	Close() error
}

// OrderPlacer submits close-position instructions to the broker collaborator.
type OrderPlacer interface {
	// PlaceStopClose closes quantity at market for the given exposure and
	// returns the broker's order ID.
	PlaceStopClose(ctx context.Context, inst StopInstruction) (string, error)
}
