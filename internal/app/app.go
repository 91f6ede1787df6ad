package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ai-travel-planner/internal/clipper"
	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/metrics"
	"ai-travel-planner/internal/notes"
	"ai-travel-planner/internal/planner"
	"ai-travel-planner/internal/shared"
	"ai-travel-planner/internal/storage"
	"ai-travel-planner/internal/travelplan"
)

// DefaultGenerationTimeout bounds one plan generation when none is configured.
const DefaultGenerationTimeout = 60 * time.Second

var (
	// ErrGenerationTimeout is returned when the model did not answer in time.
	ErrGenerationTimeout = errors.New("travel plan generation timed out, try again")
	// ErrNoteTooShort is returned for notes below planner.MinNoteWords words.
	ErrNoteTooShort = fmt.Errorf("note content must contain at least %d words to generate a travel plan", planner.MinNoteWords)
)

// Mode selects create-or-replace (POST) or replace-only (PUT) semantics.
type Mode int

const (
	ModeCreate Mode = iota
	ModeReplace
)

// PlanGenerator is the part of planner.Planner the app depends on.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, noteText string, opts *planner.Options, preferences []string) (planner.Result, error)
}

// App holds the application's dependencies.
type App struct {
	notes        *notes.Repository
	profiles     *notes.ProfileRepository
	plans        *travelplan.Repository
	planner      PlanGenerator
	metricsStore *metrics.Store
	diagnostics  *storage.DiagnosticsStore
	clipper      *clipper.Clipper
	timeout      time.Duration
}

// NewApp creates and initializes a new App instance.
func NewApp(
	noteRepo *notes.Repository,
	profileRepo *notes.ProfileRepository,
	planRepo *travelplan.Repository,
	planGen PlanGenerator,
	metricsStore *metrics.Store,
	diagnostics *storage.DiagnosticsStore,
	articleClipper *clipper.Clipper,
	timeout time.Duration,
) *App {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &App{
		notes:        noteRepo,
		profiles:     profileRepo,
		plans:        planRepo,
		planner:      planGen,
		metricsStore: metricsStore,
		diagnostics:  diagnostics,
		clipper:      articleClipper,
		timeout:      timeout,
	}
}

// PlanOutcome is a stored plan, whether it was newly created and the
// metadata of the model call that produced it.
type PlanOutcome struct {
	Plan    travelplan.Plan
	Created bool
	Meta    shared.AgentMeta
}

// GeneratePlanForNote generates a plan for the user's note and stores it,
// replacing any previous plan. In ModeReplace a plan must already exist.
// Nothing is stored when generation fails.
func (a *App) GeneratePlanForNote(ctx context.Context, userID, noteID string, opts *planner.Options, mode Mode) (PlanOutcome, error) {
	note, err := a.notes.Get(ctx, userID, noteID)
	if err != nil {
		return PlanOutcome{}, err
	}

	if !planner.ValidateNoteContent(note.Text()) {
		return PlanOutcome{}, ErrNoteTooShort
	}

	if mode == ModeReplace {
		exists, err := a.plans.Exists(ctx, noteID)
		if err != nil {
			return PlanOutcome{}, err
		}
		if !exists {
			return PlanOutcome{}, travelplan.ErrPlanNotFound
		}
	}

	prefs, err := a.profiles.Preferences(ctx, userID)
	if err != nil {
		return PlanOutcome{}, err
	}

	log.Printf("Generating travel plan for note %s (%d preferences)...", noteID, len(prefs))
	genCtx, cancel := context.WithTimeout(ctx, a.timeout)
	res, err := a.planner.GeneratePlan(genCtx, note.Text(), opts, prefs)
	timedOut := err != nil && errors.Is(genCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	a.recordMetrics(res, err, timedOut)

	if err != nil {
		if timedOut {
			log.Printf("Plan generation for note %s timed out after %s", noteID, a.timeout)
			return PlanOutcome{}, ErrGenerationTimeout
		}
		a.keepDiagnostics(noteID, res, err)
		log.Printf("Plan generation for note %s failed: %v", noteID, err)
		return PlanOutcome{}, err
	}

	plan, created, err := a.plans.Upsert(ctx, noteID, res.Plan)
	if err != nil {
		return PlanOutcome{}, fmt.Errorf("failed to save travel plan: %w", err)
	}

	log.Printf("Travel plan for note %s saved (%d days, created=%t).", noteID, len(plan.Content.Days), created)
	return PlanOutcome{Plan: plan, Created: created, Meta: res.Meta}, nil
}

// GetPlan returns the stored plan of the user's note.
func (a *App) GetPlan(ctx context.Context, userID, noteID string) (travelplan.Plan, error) {
	if _, err := a.notes.Get(ctx, userID, noteID); err != nil {
		return travelplan.Plan{}, err
	}
	return a.plans.Get(ctx, noteID)
}

func (a *App) recordMetrics(res planner.Result, err error, timedOut bool) {
	outcome := metrics.OutcomeOK
	switch {
	case timedOut:
		outcome = "timeout"
	case err != nil:
		outcome = "error"
		if kind, ok := llm.KindOf(err); ok {
			outcome = kind.String()
		}
	}
	if rerr := a.metricsStore.RecordMeta(res.Meta, outcome); rerr != nil {
		log.Printf("Warning: failed to record metrics for %s: %v", res.Meta.AgentName, rerr)
	}
}

// keepDiagnostics stores malformed replies for later inspection.
func (a *App) keepDiagnostics(noteID string, res planner.Result, err error) {
	var lerr *llm.Error
	if a.diagnostics == nil || !errors.As(err, &lerr) {
		return
	}
	if lerr.Kind != llm.KindInvalidJSONResponse && lerr.Kind != llm.KindSchemaValidation {
		return
	}
	path, serr := a.diagnostics.Save(storage.Diagnostic{
		NoteID:     noteID,
		Kind:       lerr.Kind.String(),
		Model:      res.Meta.Usage.Model,
		Raw:        lerr.Raw,
		Violations: lerr.Violations,
	})
	if serr != nil {
		log.Printf("Warning: failed to store diagnostics for note %s: %v", noteID, serr)
		return
	}
	log.Printf("Malformed model reply for note %s stored at %s", noteID, path)
}
