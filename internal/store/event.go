package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DefaultEventLimit is the number of events List returns for a
// non-positive limit.
const DefaultEventLimit = 50

// Event is one journal entry: a recognized gesture that changed the
// selection state.
type Event struct {
	ID        string    `json:"id"`
	Gesture   string    `json:"gesture"`
	Focus     int       `json:"focus"`
	Active    int       `json:"active"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRepository provides access to the event journal.
type EventRepository struct {
	db *sql.DB
}

// Events returns the event repository for this store.
func (s *Store) Events() *EventRepository {
	return &EventRepository{db: s.db}
}

// Create appends e to the journal. An empty ID is filled with a new UUID.
func (r *EventRepository) Create(e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO events (id, gesture, focus, active, message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Gesture, e.Focus, e.Active, e.Message, e.CreatedAt,
	)
	return err
}

// List returns at most limit events, newest first.
func (r *EventRepository) List(limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = DefaultEventLimit
	}

	rows, err := r.db.Query(
		`SELECT id, gesture, focus, active, message, created_at
		 FROM events ORDER BY seq DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*Event, 0)
	for rows.Next() {
		e := &Event{}
		if err := rows.Scan(&e.ID, &e.Gesture, &e.Focus, &e.Active, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Count returns the number of journal entries.
func (r *EventRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// Clear removes every journal entry and returns how many were removed.
func (r *EventRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM events`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
