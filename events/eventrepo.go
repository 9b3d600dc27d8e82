package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/yeti47/camkit/ccc/db"
)

type EventRepository interface {
	// Create stores an event, assigning an ID and timestamp when missing
	Create(ctx context.Context, event *Event) error
	// GetByID retrieves an event, nil if it does not exist
	GetByID(ctx context.Context, id string) (*Event, error)
	// GetRecent retrieves the newest events first, optionally filtered by kind
	GetRecent(ctx context.Context, kind Kind, limit int) ([]*Event, error)
	// CountByKind counts stored events of kind
	CountByKind(ctx context.Context, kind Kind) (int, error)
	// DeleteOlderThan removes events before cutoff and returns how many were removed
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SQLiteEventRepository implements EventRepository using SQLite
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) (*SQLiteEventRepository, error) {
	repo := &SQLiteEventRepository{db: db}
	if err := repo.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return repo, nil
}

func (r *SQLiteEventRepository) createTables() error {
	createEventsTable := `
	CREATE TABLE IF NOT EXISTS camera_events (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		session_id TEXT NOT NULL,
		message TEXT NOT NULL,
		data TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_camera_events_kind ON camera_events(kind);
	CREATE INDEX IF NOT EXISTS idx_camera_events_timestamp ON camera_events(timestamp);`

	_, err := r.db.Exec(createEventsTable)
	return err
}

func (r *SQLiteEventRepository) Create(ctx context.Context, event *Event) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data := "{}"
	if len(event.Data) > 0 {
		encoded, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		data = string(encoded)
	}

	query := `
	INSERT INTO camera_events (id, kind, session_id, message, data, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, string(event.Kind), event.SessionID, event.Message, data, db.TimeToString(event.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*Event, error) {
	event := &Event{}
	var kind, data, timestampStr string
	if err := row.Scan(&event.ID, &kind, &event.SessionID, &event.Message, &data, &timestampStr); err != nil {
		return nil, err
	}
	event.Kind = Kind(kind)

	if data != "" && data != "{}" {
		if err := json.Unmarshal([]byte(data), &event.Data); err != nil {
			return nil, fmt.Errorf("failed to decode event data: %w", err)
		}
	}

	timestamp, err := db.StringToTime(timestampStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	event.Timestamp = timestamp

	return event, nil
}

func (r *SQLiteEventRepository) GetByID(ctx context.Context, id string) (*Event, error) {
	query := `
	SELECT id, kind, session_id, message, data, timestamp
	FROM camera_events WHERE id = ?`

	event, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event by ID: %w", err)
	}
	return event, nil
}

// GetRecent retrieves up to limit events, newest first. An empty kind matches all kinds.
func (r *SQLiteEventRepository) GetRecent(ctx context.Context, kind Kind, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
	SELECT id, kind, session_id, message, data, timestamp
	FROM camera_events
	WHERE (? = '' OR kind = ?)
	ORDER BY timestamp DESC
	LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, string(kind), string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		result = append(result, event)
	}

	return result, rows.Err()
}

func (r *SQLiteEventRepository) CountByKind(ctx context.Context, kind Kind) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM camera_events WHERE kind = ?`, string(kind)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *SQLiteEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM camera_events WHERE timestamp < ?`, db.TimeToString(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to delete events: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}
