package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/IvanMacRib/ParentPalMVP/internal/agent"
	"github.com/IvanMacRib/ParentPalMVP/internal/config"
	"github.com/IvanMacRib/ParentPalMVP/internal/db"
	"github.com/IvanMacRib/ParentPalMVP/internal/profile"
	"github.com/IvanMacRib/ParentPalMVP/internal/server"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	store := profile.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("database schema setup failed: %v", err)
	}

	var ai agent.AIClient
	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" && cfg.AppEnv == "local" {
		log.Printf("OPENAI_API_KEY not set; using mock AI client")
		ai = agent.MockAIClient{Model: cfg.OpenAIModel}
	} else {
		ai = agent.NewOpenAIResponsesClient(cfg)
	}

	router := agent.NewRouter(ai, cfg.OpenAIModel)
	extractor := agent.NewExtractor(ai, cfg.ExtractionModel)
	workflow := agent.NewCoordinator(extractor, store)

	app := server.New(cfg, router, workflow, store, server.NewVerifier(cfg))
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("parentpal api listening on http://localhost:%s", cfg.AppPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
