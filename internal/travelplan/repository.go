package travelplan

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ai-travel-planner/internal/database"

	"github.com/google/uuid"
)

// ErrPlanNotFound is returned when a note has no stored plan.
var ErrPlanNotFound = errors.New("travel plan not found")

// Plan is a stored itinerary. Each note owns at most one.
type Plan struct {
	ID        string    `json:"id"`
	NoteID    string    `json:"note_id"`
	Content   Content   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository is a database-backed repository for travel plans.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Upsert stores content as the note's plan, replacing any previous plan
// wholesale. created reports whether no plan existed before. The write is a
// single statement, so concurrent upserts for one note resolve as last write
// wins.
func (r *Repository) Upsert(ctx context.Context, noteID string, content Content) (Plan, bool, error) {
	data, err := json.Marshal(content)
	if err != nil {
		return Plan{}, false, fmt.Errorf("failed to marshal plan content: %w", err)
	}

	now := r.now().UTC()
	newID := uuid.NewString()
	plan := Plan{NoteID: noteID, Content: content, UpdatedAt: now}

	var createdAt string
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO travel_plans (id, note_id, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (note_id) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
		RETURNING id, created_at`,
		newID, noteID, string(data), database.FormatTime(now), database.FormatTime(now),
	).Scan(&plan.ID, &createdAt)
	if err != nil {
		return Plan{}, false, fmt.Errorf("failed to upsert travel plan for note %s: %w", noteID, err)
	}

	if plan.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return Plan{}, false, err
	}
	return plan, plan.ID == newID, nil
}

// Get returns the plan stored for noteID or ErrPlanNotFound.
func (r *Repository) Get(ctx context.Context, noteID string) (Plan, error) {
	var (
		plan                 Plan
		data                 string
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, note_id, content, created_at, updated_at FROM travel_plans WHERE note_id = ?`, noteID,
	).Scan(&plan.ID, &plan.NoteID, &data, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Plan{}, ErrPlanNotFound
	}
	if err != nil {
		return Plan{}, fmt.Errorf("failed to get travel plan for note %s: %w", noteID, err)
	}

	if err := json.Unmarshal([]byte(data), &plan.Content); err != nil {
		return Plan{}, fmt.Errorf("failed to decode travel plan for note %s: %w", noteID, err)
	}
	if plan.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return Plan{}, err
	}
	if plan.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Exists reports whether a plan is stored for noteID.
func (r *Repository) Exists(ctx context.Context, noteID string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM travel_plans WHERE note_id = ?`, noteID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check travel plan for note %s: %w", noteID, err)
	}
	return n > 0, nil
}

// Delete removes the note's plan. Deleting a missing plan is not an error.
func (r *Repository) Delete(ctx context.Context, noteID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM travel_plans WHERE note_id = ?`, noteID); err != nil {
		return fmt.Errorf("failed to delete travel plan for note %s: %w", noteID, err)
	}
	return nil
}
