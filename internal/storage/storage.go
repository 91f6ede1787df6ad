package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"ai-travel-planner/internal/shared"
)

// Diagnostic is a model reply that could not be turned into a plan.
type Diagnostic struct {
	NoteID     string             `json:"note_id"`
	Kind       string             `json:"kind"`
	Model      string             `json:"model,omitempty"`
	Raw        string             `json:"raw"`
	Violations []shared.Violation `json:"violations,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
}

// DiagnosticsStore keeps malformed model replies on disk so they can be
// inspected without ever being returned to end users.
type DiagnosticsStore struct {
	basePath string
	keep     int
}

// NewDiagnosticsStore creates a new DiagnosticsStore and ensures the base
// directory exists. At most keep files are retained per note.
func NewDiagnosticsStore(basePath string, keep int) (*DiagnosticsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	if keep < 1 {
		keep = 1
	}
	return &DiagnosticsStore{basePath: basePath, keep: keep}, nil
}

// sanitizeTimestamp makes the timestamp safe for filenames.
func sanitizeTimestamp(ts time.Time) string {
	return strings.ReplaceAll(ts.UTC().Format("20060102T150405.000000000Z"), ":", "-")
}

func (s *DiagnosticsStore) path(noteID string, ts time.Time) string {
	return filepath.Join(s.basePath, fmt.Sprintf("%s_%s.json", noteID, sanitizeTimestamp(ts)))
}

// Save writes d and prunes the oldest files for the same note. It returns
// the written path.
func (s *DiagnosticsStore) Save(d Diagnostic) (string, error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal diagnostic: %w", err)
	}

	filePath := s.path(d.NoteID, d.CreatedAt)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write diagnostic file: %w", err)
	}

	if err := s.prune(d.NoteID); err != nil {
		return filePath, err
	}
	return filePath, nil
}

// List returns the stored diagnostics for a note, oldest first.
func (s *DiagnosticsStore) List(noteID string) ([]Diagnostic, error) {
	matches, err := s.files(noteID)
	if err != nil {
		return nil, err
	}

	out := make([]Diagnostic, 0, len(matches))
	for _, match := range matches {
		data, err := os.ReadFile(match)
		if err != nil {
			return nil, fmt.Errorf("failed to read diagnostic file: %w", err)
		}
		var d Diagnostic
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal diagnostic %s: %w", match, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *DiagnosticsStore) files(noteID string) ([]string, error) {
	pattern := filepath.Join(s.basePath, fmt.Sprintf("%s_*.json", noteID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to glob diagnostic files: %w", err)
	}
	// Timestamped names sort chronologically.
	sort.Strings(matches)
	return matches, nil
}

func (s *DiagnosticsStore) prune(noteID string) error {
	matches, err := s.files(noteID)
	if err != nil {
		return err
	}
	for len(matches) > s.keep {
		if err := os.Remove(matches[0]); err != nil {
			return fmt.Errorf("failed to remove stale file %s: %w", matches[0], err)
		}
		matches = matches[1:]
	}
	return nil
}
