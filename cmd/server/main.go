package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/miracodeai/mira/internal/bitbucket"
	"github.com/miracodeai/mira/internal/client"
	"github.com/miracodeai/mira/internal/config"
	"github.com/miracodeai/mira/internal/diffreview/chunker"
	"github.com/miracodeai/mira/internal/diffreview/engine"
	"github.com/miracodeai/mira/internal/diffreview/llm"
	"github.com/miracodeai/mira/internal/diffreview/prompt"
	"github.com/miracodeai/mira/internal/diffreview/provider"
	"github.com/miracodeai/mira/internal/diffreview/verifyfix"
	"github.com/miracodeai/mira/internal/filter"
	_ "github.com/miracodeai/mira/internal/filter/bitbucket" // registers the "truncate" response filter
	"github.com/miracodeai/mira/internal/store"
	"github.com/miracodeai/mira/internal/webhook"
)

func main() {
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, logCleanup := setupLogger(cfg)
	defer logCleanup()
	slog.SetDefault(logger)

	mcpClient := client.NewMCPClient(cfg)
	if err := mcpClient.InitializeConnections(); err != nil {
		slog.Error("init mcp failed", "error", err)
	}
	defer mcpClient.Close()

	respFilter, err := filter.Create("truncate", map[string]interface{}{
		"max_len": cfg.MCP.ResponseFilter.MaxStringLen,
	})
	if err != nil {
		slog.Error("init response filter failed", "error", err)
		os.Exit(1)
	}
	mcpClient.SetResponseFilter("bitbucket", respFilter)
	mcpClient.SetResponseFilter("jira", respFilter)
	mcpClient.SetResponseFilter("confluence", respFilter)

	oaClient := openai.NewClient(option.WithAPIKey(cfg.LLM.APIKey), option.WithBaseURL(cfg.LLM.Endpoint))
	llmClient := llm.NewChat(&oaClient, cfg.LLM.Model, cfg.LLM.FallbackModel, cfg.LLM.MaxRetries, cfg.LLM.RetryBackoff)

	promptBuilder := prompt.NewBuilder(cfg.Prompts.Dir)
	counter := chunker.NewTiktokenCounter("cl100k_base")
	verifier := verifyfix.NewVerifier(llmClient, cfg.VerifyFix)

	prov, err := provider.Create("bitbucket", provider.Config{
		"caller":              mcpClient,
		"bot_login":           cfg.Bot.Login,
		"max_concurrent_post": cfg.MCP.Retry.Attempts,
	})
	if err != nil {
		slog.Error("init provider failed", "error", err)
		os.Exit(1)
	}

	reviewEngine := engine.New(
		cfg.Filter, cfg.Review, cfg.LLM.MaxContextTokens,
		llmClient, promptBuilder, counter, verifier, prov,
		cfg.Bot.Name, false,
	)

	var reviewStore store.Store
	if cfg.Storage.Driver == "sqlite" {
		sqliteStore, err := store.Open(cfg.Storage.DSN)
		if err != nil {
			slog.Error("init store failed", "error", err)
			os.Exit(1)
		}
		defer sqliteStore.Close()
		reviewStore = sqliteStore
	} else if cfg.Storage.Driver != "" {
		slog.Warn("unknown storage driver", "driver", cfg.Storage.Driver)
	}

	eventParser := bitbucket.NewEventParser(cfg.Webhook, llmClient)

	pool := webhook.NewWorkerPool(int(cfg.Server.ConcurrencyLimit), int(cfg.Server.ConcurrencyLimit)*4)
	pool.Start()

	webhookHandler := webhook.NewHandler(reviewEngine, eventParser, reviewStore, pool, cfg.Server.WebhookSecret, cfg.Server.MaxBodySize)

	mux := http.NewServeMux()
	mux.Handle("/webhook", webhookHandler)

	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if !mcpClient.IsHealthy() {
			slog.Warn("mcp unhealthy")
			http.Error(w, "MCP Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Ready"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			slog.Warn("received request at root path",
				"path", r.URL.Path, "method", r.Method,
				"msg", "please configure webhook URL to path '/webhook'")
		}
		http.NotFound(w, r)
	})
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server start failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("server stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown forced", "error", err)
		os.Exit(1)
	}

	slog.Info("waiting for in-flight reviews")
	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("in-flight reviews completed")
	case <-time.After(30 * time.Second):
		slog.Warn("review drain timeout, exiting")
	}

	slog.Info("server stopped")
}

// setupLogger builds a structured logger writing to one or more of
// stdout/stderr/rotated files, based on cfg.Log.
func setupLogger(cfg *config.Config) (*slog.Logger, func()) {
	var writers []io.Writer
	var closers []io.Closer

	for _, output := range strings.Split(cfg.Log.Output, ",") {
		output = strings.TrimSpace(output)
		if output == "" {
			continue
		}

		var w io.Writer
		switch output {
		case "stderr":
			w = os.Stderr
		case "stdout":
			w = os.Stdout
		default:
			l := &lumberjack.Logger{
				Filename:   output,
				MaxSize:    cfg.Log.Rotation.MaxSize,
				MaxBackups: cfg.Log.Rotation.MaxBackups,
				MaxAge:     cfg.Log.Rotation.MaxAge,
				Compress:   cfg.Log.Rotation.Compress,
			}
			w = l
			closers = append(closers, l)
		}
		writers = append(writers, w)
	}

	if len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	opts := &slog.HandlerOptions{Level: cfg.GetLogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(io.MultiWriter(writers...), opts)
	} else {
		handler = slog.NewTextHandler(io.MultiWriter(writers...), opts)
	}

	cleanup := func() {
		for _, c := range closers {
			c.Close()
		}
	}
	return slog.New(handler), cleanup
}
