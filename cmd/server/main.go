package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"todochat/internal/agent"
	"todochat/internal/auth"
	"todochat/internal/config"
	"todochat/internal/history"
	"todochat/internal/httpapi"
	"todochat/internal/provider"
	"todochat/internal/store"
	"todochat/internal/tools"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.IsDevelopment() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()
	logger.Info("database ready", "path", cfg.Database.Path)

	var prov provider.Provider
	if cfg.ProviderConfigured() {
		prov = provider.NewOpenAIProvider(provider.OpenAIConfig{
			BaseURL:    cfg.Provider.BaseURL,
			APIKey:     cfg.Provider.APIKey,
			Model:      cfg.Provider.Model,
			TimeoutMS:  cfg.Provider.TimeoutMS,
			MaxRetries: cfg.Provider.MaxRetries,
		})
		logger.Info("completion service configured", "model", cfg.Provider.Model)
	} else {
		logger.Warn("OPENAI_API_KEY not set, chat runs in degraded fallback mode")
	}

	registry := tools.NewTaskRegistry(st)
	hist := history.New(st, cfg.Agent.MaxContextMessages, cfg.Agent.ContextTokenLimit)

	var limiter *agent.RateLimiter
	if cfg.Agent.RateLimitPerMinute > 0 {
		limiter = agent.NewRateLimiter(cfg.Agent.RateLimitPerMinute)
	}

	var confirmer agent.Confirmer = agent.AutoApprove{}
	if cfg.Agent.ToolPolicy != "" {
		policy := agent.NewToolPolicy(cfg.Agent.ToolPolicy, cfg.Agent.ConfirmationEnabled)
		logger.Info("tool policy active", "policy", policy.Summary())
		confirmer = policy
	}

	ag := agent.New(agent.Options{
		Provider:     prov,
		Registry:     registry,
		History:      hist,
		Limiter:      limiter,
		Confirmer:    confirmer,
		Logger:       logger,
		Instructions: cfg.Agent.Instructions,
		Temperature:  cfg.Provider.Temperature,
	})

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.TokenDuration)
	handler := httpapi.NewServer(st, tokens, ag, registry, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
