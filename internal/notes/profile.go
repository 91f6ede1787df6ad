package notes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-travel-planner/internal/database"
)

// MaxPreferences caps the number of preference tags on a profile.
const MaxPreferences = 10

// ErrTooManyPreferences is returned when more than MaxPreferences tags are saved.
var ErrTooManyPreferences = fmt.Errorf("a profile may hold at most %d preferences", MaxPreferences)

// Profile holds a user's display name and travel preference tags.
type Profile struct {
	UserID      string    `json:"id"`
	Name        string    `json:"name"`
	Preferences []string  `json:"preferences"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProfileRepository stores profiles keyed by user id.
type ProfileRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewProfileRepository creates a new ProfileRepository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db, now: time.Now}
}

// Get returns the user's profile. A user without a stored profile gets an
// empty one rather than an error.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (Profile, error) {
	var (
		p                    = Profile{UserID: userID}
		prefs                string
		createdAt, updatedAt string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT name, preferences, created_at, updated_at FROM profiles WHERE user_id = ?`, userID,
	).Scan(&p.Name, &prefs, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		p.Preferences = []string{}
		return p, nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("failed to get profile for %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(prefs), &p.Preferences); err != nil {
		return Profile{}, fmt.Errorf("failed to decode preferences for %s: %w", userID, err)
	}
	if p.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return Profile{}, err
	}
	if p.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Save creates or updates the user's profile. Preferences are trimmed and
// de-duplicated case-insensitively, keeping first occurrences in order.
func (r *ProfileRepository) Save(ctx context.Context, userID, name string, preferences []string) (Profile, error) {
	prefs := NormalizePreferences(preferences)
	if len(prefs) > MaxPreferences {
		return Profile{}, ErrTooManyPreferences
	}

	data, err := json.Marshal(prefs)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	now := database.FormatTime(r.now())
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, name, preferences, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			name = excluded.name,
			preferences = excluded.preferences,
			updated_at = excluded.updated_at`,
		userID, strings.TrimSpace(name), string(data), now, now)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to save profile for %s: %w", userID, err)
	}
	return r.Get(ctx, userID)
}

// Preferences returns the user's preference tags.
func (r *ProfileRepository) Preferences(ctx context.Context, userID string) ([]string, error) {
	p, err := r.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return p.Preferences, nil
}

// NormalizePreferences trims tags, drops empties and repeats.
func NormalizePreferences(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
