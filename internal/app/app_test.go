package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

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

const tenWordNote = "Trzy dni w Krakowie: Wawel, Kazimierz, Wieliczka i dobre pierogi."

// provider is a fake chat/completions endpoint. reply is called for every
// request and returns the status and the assistant message content (or the
// raw body for non-2xx statuses).
type provider struct {
	calls    atomic.Int32
	lastBody atomic.Value
	reply    func(n int32) (int, string)
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := p.calls.Add(1)
	body, _ := io.ReadAll(r.Body)
	p.lastBody.Store(string(body))

	status, content := p.reply(n)
	if status != http.StatusOK {
		w.WriteHeader(status)
		io.WriteString(w, content)
		return
	}
	envelope, _ := json.Marshal(map[string]any{
		"model":   "openai/gpt-4o-mini",
		"choices": []map[string]any{{"message": map[string]any{"content": content}}},
		"usage":   map[string]int{"prompt_tokens": 1000, "completion_tokens": 500, "total_tokens": 1500},
	})
	w.Write(envelope)
}

type harness struct {
	app         *App
	provider    *provider
	notes       *notes.Repository
	profiles    *notes.ProfileRepository
	plans       *travelplan.Repository
	metrics     *metrics.Store
	diagnostics *storage.DiagnosticsStore
}

func newHarness(t *testing.T, reply func(n int32) (int, string)) *harness {
	t.Helper()

	p := &provider{reply: reply}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	db, err := database.NewDB(filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	diagnostics, err := storage.NewDiagnosticsStore(filepath.Join(dir, "diagnostics"), 5)
	require.NoError(t, err)

	gen := llm.NewOpenRouterClient(&config.Config{
		OpenRouterAPIKey:  "test-key",
		OpenRouterBaseURL: srv.URL,
		LLMModel:          "openai/gpt-4o-mini",
	})

	h := &harness{
		provider:    p,
		notes:       notes.NewRepository(db.SQL),
		profiles:    notes.NewProfileRepository(db.SQL),
		plans:       travelplan.NewRepository(db.SQL),
		metrics:     metrics.NewStore(db.SQL),
		diagnostics: diagnostics,
	}
	h.app = NewApp(h.notes, h.profiles, h.plans,
		planner.NewPlanner(gen, planner.ModelSettings{Temperature: 0.7, MaxTokens: 4000}),
		h.metrics, h.diagnostics, clipper.NewClipper(), 5*time.Second)
	return h
}

func (h *harness) note(t *testing.T, text string) notes.Note {
	t.Helper()
	n, err := h.notes.Create(context.Background(), "user-1", "Kraków", &text)
	require.NoError(t, err)
	return n
}

func planJSON(titles ...string) string {
	var days []map[string]any
	for i, title := range titles {
		days = append(days, map[string]any{
			"day":   i + 1,
			"title": title,
			"activities": map[string]any{
				"morning": []map[string]any{{
					"name":          title,
					"description":   "Spacer po okolicy.",
					"priceCategory": "free",
					"logistics":     map[string]any{"mapLink": planner.MapLink(title, "Kraków")},
				}},
			},
		})
	}
	b, _ := json.Marshal(map[string]any{"days": days, "disclaimer": "Sprawdź godziny otwarcia."})
	return string(b)
}

func ok(content string) func(int32) (int, string) {
	return func(int32) (int, string) { return http.StatusOK, content }
}

func TestScenarioTenWordNoteDefaultOptions(t *testing.T) {
	h := newHarness(t, ok(planJSON("Wawel")))
	n := h.note(t, tenWordNote)
	require.True(t, planner.ValidateNoteContent(tenWordNote))

	out, err := h.app.GeneratePlanForNote(context.Background(), "user-1", n.ID, nil, ModeCreate)
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.NotEmpty(t, out.Plan.Content.Days)
	assert.Equal(t, n.ID, out.Plan.NoteID)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(h.provider.lastBody.Load().(string)), &sent))
	user := sent["messages"].([]any)[1].(map[string]any)["content"].(string)
	assert.Contains(t, user, "style leisure, transport public, budget standard")

	usage, err := h.metrics.GetDailyUsage(1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].TotalExecution)
	assert.Equal(t, 0, usage[0].Failures)
}

func TestScenarioRateLimitPersistsNothing(t *testing.T) {
	h := newHarness(t, func(int32) (int, string) {
		return http.StatusTooManyRequests, `{"error":{"message":"Rate limit exceeded"}}`
	})
	n := h.note(t, tenWordNote)

	_, err := h.app.GeneratePlanForNote(context.Background(), "user-1", n.ID, nil, ModeCreate)
	assert.ErrorIs(t, err, llm.ErrRateLimit)
	assert.Equal(t, int32(1), h.provider.calls.Load())

	exists, err := h.plans.Exists(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	usage, err := h.metrics.GetDailyUsage(1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].TotalExecution)
	assert.Equal(t, 1, usage[0].Failures)
}

func TestScenarioNonJSONBodyKeepsRawText(t *testing.T) {
	raw := "Przepraszam, nie mogę teraz przygotować planu."
	h := newHarness(t, ok(raw))
	n := h.note(t, tenWordNote)

	_, err := h.app.GeneratePlanForNote(context.Background(), "user-1", n.ID, nil, ModeCreate)
	assert.ErrorIs(t, err, llm.ErrInvalidJSONResponse)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, raw, llmErr.Raw)

	stored, err := h.diagnostics.List(n.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, raw, stored[0].Raw)
	assert.Equal(t, "invalid_json_response", stored[0].Kind)

	usage, err := h.metrics.GetDailyUsage(1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].Failures)
}

func TestScenarioEmptyDaysFailsOnDays(t *testing.T) {
	h := newHarness(t, ok(`{"days": [], "disclaimer": "x"}`))
	n := h.note(t, tenWordNote)

	_, err := h.app.GeneratePlanForNote(context.Background(), "user-1", n.ID, nil, ModeCreate)
	assert.ErrorIs(t, err, llm.ErrSchemaValidation)

	var llmErr *llm.Error
	require.ErrorAs(t, err, &llmErr)
	paths := make([]string, 0, len(llmErr.Violations))
	for _, v := range llmErr.Violations {
		paths = append(paths, v.Path)
	}
	assert.Contains(t, paths, "days")

	exists, err := h.plans.Exists(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestScenarioRegenerateReplacesWholesale(t *testing.T) {
	h := newHarness(t, func(n int32) (int, string) {
		if n == 1 {
			return http.StatusOK, planJSON("Wawel", "Kazimierz", "Wieliczka")
		}
		return http.StatusOK, planJSON("Ojców")
	})
	n := h.note(t, tenWordNote)
	ctx := context.Background()

	first, err := h.app.GeneratePlanForNote(ctx, "user-1", n.ID, nil, ModeCreate)
	require.NoError(t, err)
	require.Len(t, first.Plan.Content.Days, 3)

	second, err := h.app.GeneratePlanForNote(ctx, "user-1", n.ID,
		&planner.Options{Style: planner.StyleAdventure, Transport: planner.TransportCar}, ModeReplace)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Plan.ID, second.Plan.ID)

	stored, err := h.app.GetPlan(ctx, "user-1", n.ID)
	require.NoError(t, err)
	require.Len(t, stored.Content.Days, 1)
	assert.Equal(t, "Ojców", stored.Content.Days[0].Title)
	assert.Equal(t, "Sprawdź godziny otwarcia.", stored.Content.Disclaimer)
}

func TestGeneratePlanChecksPreconditions(t *testing.T) {
	h := newHarness(t, ok(planJSON("Wawel")))
	ctx := context.Background()

	short := h.note(t, "Kraków na weekend")
	_, err := h.app.GeneratePlanForNote(ctx, "user-1", short.ID, nil, ModeCreate)
	assert.ErrorIs(t, err, ErrNoteTooShort)

	n := h.note(t, tenWordNote)
	_, err = h.app.GeneratePlanForNote(ctx, "user-1", n.ID, nil, ModeReplace)
	assert.ErrorIs(t, err, travelplan.ErrPlanNotFound)

	_, err = h.app.GeneratePlanForNote(ctx, "user-2", n.ID, nil, ModeCreate)
	assert.ErrorIs(t, err, notes.ErrNotFound)

	_, err = h.app.GeneratePlanForNote(ctx, "user-1", n.ID, &planner.Options{Budget: "free"}, ModeCreate)
	assert.ErrorIs(t, err, llm.ErrBadRequest)

	assert.Equal(t, int32(0), h.provider.calls.Load())
}

func TestGeneratePlanUsesProfilePreferences(t *testing.T) {
	h := newHarness(t, ok(planJSON("Ogród Botaniczny")))
	ctx := context.Background()
	_, err := h.profiles.Save(ctx, "user-1", "Ala", []string{"biologia"})
	require.NoError(t, err)
	n := h.note(t, tenWordNote)

	_, err = h.app.GeneratePlanForNote(ctx, "user-1", n.ID, nil, ModeCreate)
	require.NoError(t, err)
	assert.Contains(t, h.provider.lastBody.Load().(string), "botanical gardens")
}

func TestGeneratePlanTimeout(t *testing.T) {
	block := make(chan struct{})
	p := &provider{reply: func(int32) (int, string) {
		<-block
		return http.StatusOK, planJSON("Wawel")
	}}
	srv := httptest.NewServer(p)
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(block) })

	h := newHarness(t, ok(""))
	gen := llm.NewOpenRouterClient(&config.Config{OpenRouterAPIKey: "k", OpenRouterBaseURL: srv.URL, LLMModel: "m"})
	h.app.planner = planner.NewPlanner(gen, planner.ModelSettings{})
	h.app.timeout = 50 * time.Millisecond

	n := h.note(t, tenWordNote)
	_, err := h.app.GeneratePlanForNote(context.Background(), "user-1", n.ID, nil, ModeCreate)
	assert.ErrorIs(t, err, ErrGenerationTimeout)

	exists, err := h.plans.Exists(context.Background(), n.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	usage, err := h.metrics.GetDailyUsage(1)
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.Equal(t, 1, usage[0].Failures)
}

func TestImportNote(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		io.WriteString(w, `<html><head><title>Lizbona w 3 dni</title></head><body>
			<nav>menu</nav>
			<article><h1>Lizbona w 3 dni</h1><p>Tramwaj 28 i Alfama o poranku.</p></article>
		</body></html>`)
	}))
	t.Cleanup(site.Close)

	h := newHarness(t, ok(""))
	n, err := h.app.ImportNote(context.Background(), "user-1", site.URL+"/lizbona")
	require.NoError(t, err)

	assert.Equal(t, "Lizbona w 3 dni", n.Title)
	assert.Contains(t, n.Text(), "Tramwaj 28 i Alfama o poranku.")
	assert.True(t, strings.HasSuffix(n.Text(), "Źródło: "+site.URL+"/lizbona"))
	assert.NotContains(t, n.Text(), "menu")
}
