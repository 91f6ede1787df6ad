package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/auth"
	"ai-travel-planner/internal/clipper"
	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/database"
	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/metrics"
	"ai-travel-planner/internal/notes"
	"ai-travel-planner/internal/planner"
	"ai-travel-planner/internal/storage"
	"ai-travel-planner/internal/travelplan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noteText = "Cztery dni w Lizbonie: Alfama, Belém, tramwaj 28 oraz pastéis de nata."

const planReply = `{
	"days": [{
		"day": 1,
		"date": "2025-05-01",
		"dayOfWeek": "czwartek",
		"title": "Alfama",
		"activities": {
			"morning": [{"name": "Zamek św. Jerzego", "description": "Widok na miasto.", "priceCategory": "moderate", "logistics": {}}],
			"evening": [{"name": "Fado", "description": "Koncert fado.", "priceCategory": "expensive", "logistics": {"estimatedTime": "2 godziny"}}]
		}
	}],
	"disclaimer": "Sprawdź godziny otwarcia."
}`

type testEnv struct {
	t        *testing.T
	handler  http.Handler
	token    string
	reply    func() (int, string)
	calls    atomic.Int32
	verifier *auth.Verifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{t: t, reply: func() (int, string) { return http.StatusOK, planReply }}

	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls.Add(1)
		status, content := env.reply()
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, content)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": content}}},
			"usage":   map[string]int{"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30},
		})
	}))
	t.Cleanup(provider.Close)

	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	diagnostics, err := storage.NewDiagnosticsStore(filepath.Join(dir, "diagnostics"), 3)
	require.NoError(t, err)

	gen := llm.NewOpenRouterClient(&config.Config{OpenRouterAPIKey: "k", OpenRouterBaseURL: provider.URL, LLMModel: "openai/gpt-4o-mini"})
	svc := app.NewApp(
		notes.NewRepository(db.SQL),
		notes.NewProfileRepository(db.SQL),
		travelplan.NewRepository(db.SQL),
		planner.NewPlanner(gen, planner.ModelSettings{}),
		metrics.NewStore(db.SQL),
		diagnostics,
		clipper.NewClipper(),
		5*time.Second,
	)

	env.verifier = auth.NewVerifier("test-secret")
	env.token = env.tokenFor("user-1")
	env.handler = NewServer(svc, env.verifier, []string{"*"}, dir).Handler()
	return env
}

func (e *testEnv) tokenFor(userID string) string {
	token, err := e.verifier.IssueToken(userID, time.Hour)
	require.NoError(e.t, err)
	return token
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	return e.doAs(e.token, method, path, body)
}

func (e *testEnv) doAs(token, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *testEnv) createNote(content string) notes.Note {
	body, _ := json.Marshal(map[string]any{"title": "Lizbona", "content": content})
	rec := e.do(http.MethodPost, "/api/notes", string(body))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[notes.Note](e.t, rec)
}

func TestHealthIsPublic(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPIRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doAs("", http.MethodGet, "/api/notes", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[errorBody](t, rec)
	assert.Equal(t, "Unauthorized", body.Error)
}

func TestNotesCRUD(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(noteText)
	assert.Equal(t, "user-1", note.UserID)

	rec := env.do(http.MethodGet, "/api/notes/"+note.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, noteText, decode[notes.Note](t, rec).Text())

	rec = env.do(http.MethodPut, "/api/notes/"+note.ID, `{"title": "Porto", "content": "Ribeira"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Porto", decode[notes.Note](t, rec).Title)

	rec = env.doAs(env.tokenFor("user-2"), http.MethodGet, "/api/notes/"+note.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, msgNoteNotFound, decode[errorBody](t, rec).Message)

	rec = env.do(http.MethodDelete, "/api/notes/"+note.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/notes/"+note.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateNoteValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/notes", `{"title": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Bad Request", decode[errorBody](t, rec).Error)

	rec = env.do(http.MethodPost, "/api/notes", `{"title": `)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgInvalidJSON, decode[errorBody](t, rec).Message)
}

func TestListNotesPagination(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < 3; i++ {
		env.createNote("treść")
	}

	rec := env.do(http.MethodGet, "/api/notes?page=2&limit=2&sort=title&order=asc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[noteListResponse](t, rec)
	assert.Len(t, list.Notes, 1)
	assert.Equal(t, pagination{Page: 2, Limit: 2, Total: 3, TotalPages: 2}, list.Pagination)

	rec = env.do(http.MethodGet, "/api/notes?limit=101", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "limit")

	rec = env.do(http.MethodGet, "/api/notes?sort=priority&order=up", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.doAs(env.tokenFor("user-2"), http.MethodGet, "/api/notes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"notes":[]`)
}

func TestGeneratePlanCreatesThenReplaces(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(noteText)

	rec := env.do(http.MethodPost, "/api/notes/"+note.ID+"/generate-plan", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[travelPlanResponse](t, rec).TravelPlan
	assert.Equal(t, note.ID, first.NoteID)
	require.Len(t, first.Content.Days, 1)
	assert.Equal(t, "2025-05-01", first.Content.Days[0].Date)

	rec = env.do(http.MethodPost, "/api/notes/"+note.ID+"/generate-plan", `{"options": {"style": "adventure"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, first.ID, decode[travelPlanResponse](t, rec).TravelPlan.ID)

	rec = env.do(http.MethodGet, "/api/notes/"+note.ID+"/travel-plan", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[travelplan.Plan](t, rec).ID)
}

func TestGeneratePlanRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(noteText)
	short := env.createNote("Lizbona w maju")

	tests := []struct {
		name    string
		path    string
		body    string
		status  int
		message string
	}{
		{"invalid id", "/api/notes/not-a-uuid/generate-plan", "", http.StatusBadRequest, msgInvalidNoteID},
		{"unknown note", "/api/notes/6f1c9b52-1111-4000-8000-000000000000/generate-plan", "", http.StatusNotFound, msgNoteNotFound},
		{"short note", "/api/notes/" + short.ID + "/generate-plan", "", http.StatusBadRequest, "Note content must contain at least 10 words to generate a travel plan"},
		{"bad option", "/api/notes/" + note.ID + "/generate-plan", `{"options": {"transport": "plane"}}`, http.StatusBadRequest, ""},
		{"bad body", "/api/notes/" + note.ID + "/generate-plan", `{"options": `, http.StatusBadRequest, "Invalid request body format"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, tc.path, tc.body)
			assert.Equal(t, tc.status, rec.Code)
			if tc.message != "" {
				assert.Equal(t, tc.message, decode[errorBody](t, rec).Message)
			}
		})
	}
	assert.Zero(t, env.calls.Load())
}

func TestGeneratePlanProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   int
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, http.StatusTooManyRequests},
		{"auth", http.StatusUnauthorized, `{}`, http.StatusBadGateway},
		{"server", http.StatusInternalServerError, `{}`, http.StatusServiceUnavailable},
		{"non-json reply", http.StatusOK, "SECRET raw reply", http.StatusBadGateway},
		{"schema mismatch", http.StatusOK, `{"days": [], "note": "SECRET"}`, http.StatusBadGateway},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.reply = func() (int, string) { return tc.status, tc.body }
			note := env.createNote(noteText)

			rec := env.do(http.MethodPost, "/api/notes/"+note.ID+"/generate-plan", "")
			assert.Equal(t, tc.want, rec.Code)
			assert.NotContains(t, rec.Body.String(), "SECRET")
			assert.NotEmpty(t, decode[errorBody](t, rec).Message)

			rec = env.do(http.MethodGet, "/api/notes/"+note.ID+"/travel-plan", "")
			assert.Equal(t, http.StatusNotFound, rec.Code)
			assert.Equal(t, msgPlanNotFound, decode[errorBody](t, rec).Message)
		})
	}
}

func TestReplaceTravelPlan(t *testing.T) {
	env := newTestEnv(t)
	note := env.createNote(noteText)
	path := "/api/notes/" + note.ID + "/travel-plan"

	rec := env.do(http.MethodPut, path, `{"confirm": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "generate-plan")

	rec = env.do(http.MethodPost, "/api/notes/"+note.ID+"/generate-plan", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(http.MethodPut, path, `{"confirm": false}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Message, "Confirmation required")

	rec = env.do(http.MethodPut, path, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	env.reply = func() (int, string) {
		return http.StatusOK, strings.Replace(planReply, "Alfama", "Sintra", 1)
	}
	rec = env.do(http.MethodPut, path, `{"confirm": true, "options": {"transport": "car"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Sintra", decode[travelplan.Plan](t, rec).Content.Days[0].Title)
}

func TestProfile(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/profiles/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"preferences":[]`)

	rec = env.do(http.MethodPut, "/api/profiles/me", `{"name": "Ala", "preferences": ["sztuka", "Sztuka", "jedzenie"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"sztuka", "jedzenie"}, decode[notes.Profile](t, rec).Preferences)

	rec = env.do(http.MethodPut, "/api/profiles/me", `{"name": "Ala K."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	profile := decode[notes.Profile](t, rec)
	assert.Equal(t, "Ala K.", profile.Name)
	assert.Equal(t, []string{"sztuka", "jedzenie"}, profile.Preferences)

	rec = env.do(http.MethodPut, "/api/profiles/me", `{"name": ""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPut, "/api/profiles/me", `{"name": "Ala", "preferences": ["1","2","3","4","5","6","7","8","9","10","11"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportNote(t *testing.T) {
	env := newTestEnv(t)
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `<html><head><title>Porto</title></head><body><main><p>Most Ludwika i piwnice porto.</p></main></body></html>`)
	}))
	t.Cleanup(site.Close)

	rec := env.do(http.MethodPost, "/api/import", `{"url": "`+site.URL+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decode[notes.Note](t, rec)
	assert.Equal(t, "Porto", note.Title)

	rec = env.do(http.MethodPost, "/api/import", `{"url": "file:///etc/passwd"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
