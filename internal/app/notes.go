package app

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-travel-planner/internal/notes"
)

// CreateNote stores a new note for the user.
func (a *App) CreateNote(ctx context.Context, userID, title string, content *string) (notes.Note, error) {
	return a.notes.Create(ctx, userID, title, content)
}

// GetNote returns one of the user's notes.
func (a *App) GetNote(ctx context.Context, userID, noteID string) (notes.Note, error) {
	return a.notes.Get(ctx, userID, noteID)
}

// ListNotes returns one page of the user's notes.
func (a *App) ListNotes(ctx context.Context, userID string, opts notes.ListOptions) (notes.Page, error) {
	return a.notes.List(ctx, userID, opts)
}

// UpdateNote replaces the title and content of a note. An existing plan is
// kept; regenerating it is an explicit action.
func (a *App) UpdateNote(ctx context.Context, userID, noteID, title string, content *string) (notes.Note, error) {
	return a.notes.Update(ctx, userID, noteID, title, content)
}

// DeleteNote removes a note together with its plan.
func (a *App) DeleteNote(ctx context.Context, userID, noteID string) error {
	return a.notes.Delete(ctx, userID, noteID)
}

// ImportNote clips a travel article and stores it as a new note.
func (a *App) ImportNote(ctx context.Context, userID, url string) (notes.Note, error) {
	log.Printf("Importing note from %s...", url)
	article, err := a.clipper.ClipURL(ctx, url)
	if err != nil {
		return notes.Note{}, err
	}

	var sb strings.Builder
	sb.WriteString(article.Text)
	fmt.Fprintf(&sb, "\n\nŹródło: %s", article.URL)
	content := sb.String()

	return a.notes.Create(ctx, userID, article.Title, &content)
}

// GetProfile returns the user's profile.
func (a *App) GetProfile(ctx context.Context, userID string) (notes.Profile, error) {
	return a.profiles.Get(ctx, userID)
}

// SaveProfile updates the user's name and preference tags.
func (a *App) SaveProfile(ctx context.Context, userID, name string, preferences []string) (notes.Profile, error) {
	return a.profiles.Save(ctx, userID, name, preferences)
}
