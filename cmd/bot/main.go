package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"findit/internal/bot"
	"findit/internal/config"
	"findit/internal/fetcher"
	"findit/internal/notify"
	"findit/internal/report"
	"findit/internal/scheduler"
	"findit/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	f := fetcher.New(store, cfg.StoreTimeout)
	reports := report.New(store, newMailer(cfg, log), cfg.ReportTTL, cfg.StoreTimeout, log)

	b, err := bot.New(cfg.TelegramBotToken, f, store, reports, cfg, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	sweeper := scheduler.New(store, cfg.SweepSchedule, cfg.StoreTimeout, log)

	log.Info("starting bot", "backend", cfg.StoreBackend, "page_size", cfg.PageSize)

	go func() {
		if err := sweeper.Run(ctx); err != nil {
			log.Error("expiry sweeper", "error", err)
		}
	}()

	b.Run(ctx)

	log.Info("bot stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	if cfg.StoreBackend == config.BackendMongo {
		ctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
		defer cancel()
		m, err := storage.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return m, nil
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create data directory %s: %w", dir, err)
		}
	}
	log.Debug("opening sqlite", "path", cfg.DatabasePath)
	s, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// newMailer prefers the HTTP relay over direct SMTP. Without either,
// verification codes are not emailed.
func newMailer(cfg *config.Config, log *slog.Logger) notify.Sender {
	switch {
	case cfg.EmailEndpoint != "":
		return notify.NewHTTPSender(cfg.EmailEndpoint, http.DefaultClient)
	case cfg.EmailFrom != "":
		return notify.NewSMTPSender(cfg.SMTPAddr, cfg.EmailFrom, cfg.EmailPass)
	}
	log.Warn("no email delivery configured, verification codes will not be sent")
	return nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
