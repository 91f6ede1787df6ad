package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"ai-travel-planner/internal/auth"
	"ai-travel-planner/internal/clipper"
	"ai-travel-planner/internal/notes"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type noteRequest struct {
	Title   string  `json:"title"`
	Content *string `json:"content"`
}

type importRequest struct {
	URL string `json:"url"`
}

type pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type noteListResponse struct {
	Notes      []notes.Note `json:"notes"`
	Pagination pagination   `json:"pagination"`
}

// userID returns the authenticated user. Routes are wrapped by
// auth.Authenticate, so a missing id is a wiring bug.
func userID(r *http.Request) string {
	id, _ := auth.UserID(r.Context())
	return id
}

// noteID reads and validates the :noteId parameter, writing a 400 when it is
// not a UUID.
func noteID(w http.ResponseWriter, ps httprouter.Params) (string, bool) {
	id := ps.ByName("noteId")
	if err := uuid.Validate(id); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidNoteID)
		return "", false
	}
	return id, true
}

func (s *Server) listNotes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts, err := parseListOptions(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid query parameters: "+err.Error())
		return
	}

	page, err := s.svc.ListNotes(r.Context(), userID(r), opts)
	if err != nil {
		respondAppError(w, err, "fetching notes")
		return
	}

	list := page.Notes
	if list == nil {
		list = []notes.Note{}
	}
	respondJSON(w, http.StatusOK, noteListResponse{
		Notes: list,
		Pagination: pagination{
			Page:       opts.Page,
			Limit:      opts.Limit,
			Total:      page.Total,
			TotalPages: (page.Total + opts.Limit - 1) / opts.Limit,
		},
	})
}

// parseListOptions reads page, limit, sort and order. Defaults: page 1,
// limit 10, sorted by created_at, newest first.
func parseListOptions(r *http.Request) (notes.ListOptions, error) {
	q := r.URL.Query()
	opts := notes.ListOptions{Page: 1, Limit: defaultPageLimit, Sort: notes.SortCreatedAt, Desc: true}
	var problems []string

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			problems = append(problems, "page: must be a positive integer")
		}
		opts.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageLimit {
			problems = append(problems, fmt.Sprintf("limit: must be an integer between 1 and %d", maxPageLimit))
		}
		opts.Limit = n
	}
	if v := q.Get("sort"); v != "" {
		switch notes.SortField(v) {
		case notes.SortCreatedAt, notes.SortUpdatedAt, notes.SortTitle:
			opts.Sort = notes.SortField(v)
		default:
			problems = append(problems, "sort: must be one of created_at, updated_at, title")
		}
	}
	if v := q.Get("order"); v != "" {
		switch v {
		case "asc":
			opts.Desc = false
		case "desc":
			opts.Desc = true
		default:
			problems = append(problems, "order: must be asc or desc")
		}
	}

	if len(problems) > 0 {
		return notes.ListOptions{}, fmt.Errorf("%s", strings.Join(problems, ", "))
	}
	return opts, nil
}

func (s *Server) createNote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req noteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "Validation failed: Title cannot be empty")
		return
	}

	note, err := s.svc.CreateNote(r.Context(), userID(r), req.Title, req.Content)
	if err != nil {
		respondAppError(w, err, "creating the note")
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

func (s *Server) importNote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req importRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		respondError(w, http.StatusBadRequest, "Validation failed: url is required")
		return
	}

	note, err := s.svc.ImportNote(r.Context(), userID(r), req.URL)
	if err != nil {
		respondImportError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, note)
}

func (s *Server) getNote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := noteID(w, ps)
	if !ok {
		return
	}
	note, err := s.svc.GetNote(r.Context(), userID(r), id)
	if err != nil {
		respondAppError(w, err, "fetching the note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) updateNote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := noteID(w, ps)
	if !ok {
		return
	}
	var req noteRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		respondError(w, http.StatusBadRequest, "Validation failed: Title cannot be empty")
		return
	}

	note, err := s.svc.UpdateNote(r.Context(), userID(r), id, req.Title, req.Content)
	if err != nil {
		respondAppError(w, err, "updating the note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

func (s *Server) deleteNote(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id, ok := noteID(w, ps)
	if !ok {
		return
	}
	if err := s.svc.DeleteNote(r.Context(), userID(r), id); err != nil {
		respondAppError(w, err, "deleting the note")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondImportError distinguishes bad input from an unreachable article.
func respondImportError(w http.ResponseWriter, err error) {
	if errors.Is(err, clipper.ErrInvalidURL) {
		respondAppError(w, err, "importing the note")
		return
	}
	respondError(w, http.StatusBadGateway, "Could not import the article: "+err.Error())
}
