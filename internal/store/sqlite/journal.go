// Package sqlite persists emitted alert events to SQLite for audit and for
// the dashboard's "recent alerts" view.
package sqlite

import (
	"context"
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"trading-dashboard/internal/model"
)

// Journal is an append-only store of alert events. Implements
// model.EventJournal.
type Journal struct {
	mu sync.Mutex
	db *sql.DB

	// OnWrite is called with the write latency (optional, metrics).
	OnWrite func(d time.Duration)
}

// NewJournal opens (or creates) a SQLite journal database.
func NewJournal(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS alert_events (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id          TEXT,
		trailing_stop_id  TEXT,
		event_type        TEXT NOT NULL,
		symbol            TEXT NOT NULL,
		value             REAL NOT NULL,
		ts                INTEGER NOT NULL,
		message           TEXT,
		created_at        DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_events_symbol ON alert_events(symbol);
	CREATE INDEX IF NOT EXISTS idx_events_type ON alert_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON alert_events(ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[journal] opened event journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// RecordEvent appends one event to the journal.
func (j *Journal) RecordEvent(ev model.AlertEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	start := time.Now()
	_, err := j.db.Exec(
		`INSERT INTO alert_events (alert_id, trailing_stop_id, event_type, symbol, value, ts, message)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.AlertID,
		ev.TrailingStopID,
		string(ev.Type),
		ev.Symbol,
		ev.Value,
		ev.Timestamp,
		ev.Message,
	)
	if j.OnWrite != nil {
		j.OnWrite(time.Since(start))
	}
	return err
}

// Run consumes events from evCh and records them until ctx is cancelled or
// the channel is closed. Write failures are logged, never fatal.
func (j *Journal) Run(ctx context.Context, evCh <-chan model.AlertEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-evCh:
			if !ok {
				return
			}
			if err := j.RecordEvent(ev); err != nil {
				log.Printf("[journal] write failed: %v", err)
			}
		}
	}
}

// EventRecord is a row from the alert_events table.
type EventRecord struct {
	ID             int64   `json:"id"`
	AlertID        string  `json:"alert_id"`
	TrailingStopID string  `json:"trailing_stop_id"`
	EventType      string  `json:"event_type"`
	Symbol         string  `json:"symbol"`
	Value          float64 `json:"value"`
	TS             int64   `json:"ts"`
	Message        string  `json:"message"`
}

// RecentEvents returns the last N events, newest first.
func (j *Journal) RecentEvents(limit int) ([]EventRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.Query(
		`SELECT id, alert_id, trailing_stop_id, event_type, symbol, value, ts, message
		 FROM alert_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var r EventRecord
		if err := rows.Scan(&r.ID, &r.AlertID, &r.TrailingStopID, &r.EventType,
			&r.Symbol, &r.Value, &r.TS, &r.Message); err != nil {
			continue
		}
		events = append(events, r)
	}
	return events, nil
}

// DB returns the underlying handle for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
