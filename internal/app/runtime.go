package app

import (
	"context"
	"fmt"
	"log"

	"ai-travel-planner/internal/clipper"
	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/database"
	"ai-travel-planner/internal/llm"
	"ai-travel-planner/internal/metrics"
	"ai-travel-planner/internal/notes"
	"ai-travel-planner/internal/planner"
	"ai-travel-planner/internal/storage"
	"ai-travel-planner/internal/travelplan"
)

// diagnosticsPerNote is how many failed generations are kept per note.
const diagnosticsPerNote = 5

// Runtime is an App wired from configuration, together with the resources
// it owns.
type Runtime struct {
	App     *App
	Metrics *metrics.Store

	closers []func() error
}

// NewRuntime opens the database, builds the configured model client and
// wires the App.
func NewRuntime(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	rt := &Runtime{}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	rt.closers = append(rt.closers, db.Close)

	gen, err := newGenerator(ctx, cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if c, ok := gen.(llm.Closer); ok {
		rt.closers = append(rt.closers, c.Close)
	}

	diagnostics, err := storage.NewDiagnosticsStore(cfg.DiagnosticsPath, diagnosticsPerNote)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to initialize diagnostics store: %w", err)
	}

	rt.Metrics = metrics.NewStore(db.SQL)
	travelPlanner := planner.NewPlanner(gen, planner.ModelSettings{
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Language:    cfg.PlanLanguage,
	})

	rt.App = NewApp(
		notes.NewRepository(db.SQL),
		notes.NewProfileRepository(db.SQL),
		travelplan.NewRepository(db.SQL),
		travelPlanner,
		rt.Metrics,
		diagnostics,
		clipper.NewClipper(),
		cfg.GenerationTimeout,
	)
	return rt, nil
}

func newGenerator(ctx context.Context, cfg *config.Config) (llm.StructuredGenerator, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		client, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Printf("Using Gemini model %s", cfg.LLMModel)
		return client, nil
	default:
		log.Printf("Using OpenRouter model %s", cfg.LLMModel)
		return llm.NewOpenRouterClient(cfg), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (r *Runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			log.Printf("Warning: failed to close resource: %v", err)
		}
	}
	r.closers = nil
}
