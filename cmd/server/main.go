package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ai-travel-planner/internal/api"
	"ai-travel-planner/internal/app"
	"ai-travel-planner/internal/auth"
	"ai-travel-planner/internal/config"
	"ai-travel-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET environment variable not set")
	}

	// 2. Wire database, model client and app
	rt, err := app.NewRuntime(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer rt.Close()

	server := api.NewServer(rt.App, auth.NewVerifier(cfg.JWTSecret), cfg.CORSAllowedOrigins,
		filepath.Dir(cfg.DatabasePath), cfg.DiagnosticsPath)

	// 3. Telegram front-end is optional
	if cfg.TelegramBotToken != "" {
		bot, err := telegram.NewBot(cfg, rt.App, rt.Metrics)
		if err != nil {
			log.Fatalf("Failed to initialize Telegram Bot: %v", err)
		}
		server.Mount("/webhook", bot)
	} else {
		log.Println("TELEGRAM_BOT_TOKEN not set, Telegram bot disabled")
	}

	// 4. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Plan generation can take up to GENERATION_TIMEOUT.
		WriteTimeout: cfg.GenerationTimeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		log.Printf("Travel planner API listening on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}
