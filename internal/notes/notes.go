package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-travel-planner/internal/database"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a note does not exist or belongs to another user.
var ErrNotFound = errors.New("note not found")

// Note is a user's free-text travel note.
type Note struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   *string   `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Text returns the note content, or "" when it has none.
func (n Note) Text() string {
	if n.Content == nil {
		return ""
	}
	return *n.Content
}

// SortField is a column notes can be listed by.
type SortField string

const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
	SortTitle     SortField = "title"
)

// ListOptions controls paging and ordering of List.
type ListOptions struct {
	Page  int
	Limit int
	Sort  SortField
	Desc  bool
}

// Page is one page of notes plus the total count.
type Page struct {
	Notes []Note
	Total int
}

// Repository is a database-backed repository for notes.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// Create inserts a new note owned by userID.
func (r *Repository) Create(ctx context.Context, userID, title string, content *string) (Note, error) {
	now := r.now().UTC()
	n := Note{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     strings.TrimSpace(title),
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notes (id, user_id, title, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Title, nullString(content), database.FormatTime(now), database.FormatTime(now))
	if err != nil {
		return Note{}, fmt.Errorf("failed to insert note: %w", err)
	}
	return n, nil
}

// Get returns the note if it exists and belongs to userID.
func (r *Repository) Get(ctx context.Context, userID, id string) (Note, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, content, created_at, updated_at FROM notes WHERE id = ? AND user_id = ?`,
		id, userID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("failed to get note %s: %w", id, err)
	}
	return n, nil
}

// List returns one page of the user's notes.
func (r *Repository) List(ctx context.Context, userID string, opts ListOptions) (Page, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	order := "ASC"
	if opts.Desc {
		order = "DESC"
	}
	var column string
	switch opts.Sort {
	case SortUpdatedAt, SortTitle:
		column = string(opts.Sort)
	default:
		column = string(SortCreatedAt)
	}

	var page Page
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM notes WHERE user_id = ?`, userID).Scan(&page.Total); err != nil {
		return Page{}, fmt.Errorf("failed to count notes: %w", err)
	}

	// column and order come from closed sets above.
	query := fmt.Sprintf(
		`SELECT id, user_id, title, content, created_at, updated_at FROM notes WHERE user_id = ? ORDER BY %s %s, id %s LIMIT ? OFFSET ?`,
		column, order, order)
	rows, err := r.db.QueryContext(ctx, query, userID, opts.Limit, (opts.Page-1)*opts.Limit)
	if err != nil {
		return Page{}, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return Page{}, fmt.Errorf("failed to scan note: %w", err)
		}
		page.Notes = append(page.Notes, n)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return page, nil
}

// Update replaces the title and content of an existing note.
func (r *Repository) Update(ctx context.Context, userID, id, title string, content *string) (Note, error) {
	n, err := r.Get(ctx, userID, id)
	if err != nil {
		return Note{}, err
	}
	n.Title = strings.TrimSpace(title)
	n.Content = content
	n.UpdatedAt = r.now().UTC()

	_, err = r.db.ExecContext(ctx,
		`UPDATE notes SET title = ?, content = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		n.Title, nullString(content), database.FormatTime(n.UpdatedAt), id, userID)
	if err != nil {
		return Note{}, fmt.Errorf("failed to update note %s: %w", id, err)
	}
	return n, nil
}

// Delete removes a note; its travel plan goes with it.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete note %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (Note, error) {
	var (
		n                    Note
		content              sql.NullString
		createdAt, updatedAt string
	)
	if err := s.Scan(&n.ID, &n.UserID, &n.Title, &content, &createdAt, &updatedAt); err != nil {
		return Note{}, err
	}
	if content.Valid {
		c := content.String
		n.Content = &c
	}
	var err error
	if n.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return Note{}, err
	}
	if n.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return Note{}, err
	}
	return n, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
