package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/config"
	"github.com/deidaraiorek/lemmasearch/internal/fetcher"
	"github.com/deidaraiorek/lemmasearch/internal/indexing"
	"github.com/deidaraiorek/lemmasearch/internal/morphology"
	"github.com/deidaraiorek/lemmasearch/internal/server"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

func main() {
	configPath := flag.String("config", "application.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	var out io.Writer = os.Stdout
	if cfg.Logging.File != "" {
		logFile, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Error("failed to open log file", "error", err)
			os.Exit(1)
		}
		defer logFile.Close()
		out = io.MultiWriter(os.Stdout, logFile)
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: parseLevel(cfg.Logging.Level)}))
	slog.SetDefault(logger)

	analyzer, err := morphology.New(cfg.Morphology.Language)
	if err != nil {
		logger.Error("failed to create morphology analyzer", "language", cfg.Morphology.Language, "error", err)
		os.Exit(1)
	}
	logger.Info("morphology analyzer ready", "language", analyzer.Language())

	logger.Info("initializing database", "path", cfg.Database.Path)
	db, err := storage.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ix := cfg.Indexing
	fetchConfig := fetcher.Config{
		UserAgent:     ix.UserAgent,
		Referrer:      ix.Referrer,
		Timeout:       ix.RequestTimeout,
		MaxBodyBytes:  ix.MaxBodyBytes,
		RespectRobots: ix.RespectsRobots(),
	}
	f := fetcher.New(fetchConfig, logger)
	if ix.BrowserFallback {
		f.SetRenderer(fetcher.NewBrowserRenderer(fetchConfig))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	services := indexing.NewServices(db, f, analyzer, indexing.Config{
		CrawlParallelism:      ix.CrawlParallelism,
		PolitenessDelay:       ix.PolitenessDelay,
		MaxPages:              ix.MaxPages,
		LemmaFrequencyPercent: ix.LemmaFrequencyPercent,
	}, logger)

	sites := make([]indexing.SiteConfig, len(cfg.Sites))
	for i, s := range cfg.Sites {
		sites[i] = indexing.SiteConfig{URL: s.URL, Name: s.Name}
	}
	fields := make([]storage.Field, len(cfg.Fields))
	for i, fc := range cfg.Fields {
		fields[i] = storage.Field{Name: fc.Name, Selector: fc.Selector, Weight: fc.Weight}
	}

	service, err := indexing.NewService(ctx, db, services, sites, fields, ix.Workers, logger)
	if err != nil {
		logger.Error("failed to create indexing service", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(service, logger).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr, "sites", len(sites))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := service.Shutdown(shutdownCtx); err != nil {
		logger.Error("indexing shutdown", "error", err)
	}
	logger.Info("server stopped")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
