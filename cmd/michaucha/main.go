package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"michaucha/internal/backend"
	"michaucha/internal/cli"
	"michaucha/internal/config"
	apphttp "michaucha/internal/http"
	"michaucha/internal/log"
	"michaucha/internal/parser"
	"michaucha/internal/ports"
	"michaucha/internal/services"
	"michaucha/internal/telegram"
	"michaucha/internal/telemetry"
	"michaucha/internal/transcribe"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()
	stopTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, "michaucha")
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	b, err := backend.NewFactory(logger).Create(ctx, cfg, false)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var transcriber ports.Transcriber
	if cfg.GeminiAPIKey != "" {
		g, err := transcribe.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini transcriber", "error", err)
			os.Exit(1)
		}
		transcriber = g
	} else {
		logger.Info("Voice transcription disabled - no GEMINI_API_KEY provided")
	}

	p := parser.New()
	fixed := services.NewFixedExpenseService(b.Store, b.Publisher, b.Locker)
	txs := services.NewTransactionService(b.Store, b.Publisher, fixed)
	svc := apphttp.Services{
		Parser:       p,
		Transactions: txs,
		Fixed:        fixed,
		Periods:      services.NewPeriodService(b.Store, b.Publisher, b.Locker),
		Summary:      services.NewSummaryService(b.Store),
		Assistant:    services.NewAssistantService(p, txs, fixed, transcriber),
	}

	opts := apphttp.Options{
		N8NSecret:         cfg.N8NWebhookSecret,
		HistoryPeriods:    cfg.HistoryPeriods,
		RequestsPerMinute: cfg.RequestsPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
		Ready:             b.Ready,
	}
	if cfg.TelegramBotToken != "" {
		tg := telegram.NewClient(cfg.TelegramBotToken)
		opts.Messenger = tg
		opts.Files = tg
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, opts)
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := b.Close(); err != nil {
			logger.Error("Backend close error", "error", err)
		}
		if err := stopTracing(ctx); err != nil {
			logger.Error("Tracing shutdown error", "error", err)
		}
	})

	logger.Info("Starting michaucha server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events", b.Publisher != nil,
		"telegram", opts.Messenger != nil,
		"voice", transcriber != nil,
		"tracing", cfg.OTLPEndpoint != "")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
