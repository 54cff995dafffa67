// Package main is the entry point for the Telegram download bot.
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

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ytdbot/ytd-bot/internal/bot"
	"github.com/ytdbot/ytd-bot/internal/config"
	"github.com/ytdbot/ytd-bot/internal/engine"
	"github.com/ytdbot/ytd-bot/internal/infra/cache"
	"github.com/ytdbot/ytd-bot/internal/infra/fs"
	"github.com/ytdbot/ytd-bot/internal/infra/sqlite"
	"github.com/ytdbot/ytd-bot/internal/orchestrator"
	"github.com/ytdbot/ytd-bot/internal/publish"
	"github.com/ytdbot/ytd-bot/internal/session"
	"github.com/ytdbot/ytd-bot/internal/stage"
	transporthttp "github.com/ytdbot/ytd-bot/internal/transport/http"
	"github.com/ytdbot/ytd-bot/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(&logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("failed to connect to Telegram", "error", err)
		os.Exit(1)
	}

	stager, err := stage.New(cfg.WorkDir, cfg.PublicDir)
	if err != nil {
		log.Error("failed to prepare staging directories", "error", err)
		os.Exit(1)
	}

	history, err := sqlite.NewRepository(cfg.DataDir)
	if err != nil {
		log.Error("failed to open history database", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	var (
		publisher orchestrator.Publisher
		remote    fs.RemoteCleaner
	)
	if cfg.UseR2() {
		r2, err := publish.NewR2(ctx, &publish.R2Config{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicURL:       cfg.R2PublicURL,
			PresignExpiry:   cfg.R2PresignExpiry,
		}, log)
		if err != nil {
			log.Error("failed to initialize R2 publisher", "error", err)
			os.Exit(1)
		}
		publisher = r2
		remote = r2
	} else {
		publisher = publish.NewLocal(cfg.PublicBaseURL)
	}

	primary := engine.NewCommand("primary", cfg.PrimaryBinary, cfg.PrimaryArgs)
	var fallback engine.Engine
	if cfg.FallbackBinary != "" {
		fallback = engine.NewCommand("fallback", cfg.FallbackBinary, cfg.FallbackArgs)
	}

	orch := orchestrator.New(orchestrator.Config{
		Primary:   primary,
		Fallback:  fallback,
		Stager:    stager,
		Publisher: publisher,
		History:   history,
		Cookies: func(userID int64) string {
			return bot.CookieFile(cfg.CookiesDir, userID)
		},
		WorkDir:         cfg.WorkDir,
		DownloadTimeout: cfg.DownloadTimeout,
	}, log)

	cleaner := fs.NewCleaner(&fs.CleanerConfig{
		Dirs:         []string{cfg.WorkDir, cfg.PublicDir},
		MaxAge:       cfg.FileMaxAge,
		Interval:     cfg.CleanupInterval,
		Remote:       remote,
		RemoteMaxAge: cfg.FileMaxAge,
	}, log)
	cleaner.Start(ctx)
	defer cleaner.Stop()

	var fileServer *http.Server
	if !cfg.UseR2() {
		router := transporthttp.NewRouter(&transporthttp.FileHostConfig{
			PublicDir:      cfg.PublicDir,
			AllowedOrigins: cfg.AllowedOrigins,
		})
		fileServer = transporthttp.NewServer(cfg.FileHostAddr, router)
		go func() {
			log.Info("file host starting", "addr", cfg.FileHostAddr)
			if err := fileServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("file host error", "error", err)
				stop()
			}
		}()
	}

	b := bot.New(cfg, bot.Deps{
		API:      api,
		Sessions: session.New(cfg.SessionTTL),
		Metadata: cache.DefaultMetadataCache(),
		Probe:    primary,
		Orch:     orch,
		History:  history,
	}, log)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", "error", err)
	}

	if fileServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := fileServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("file host shutdown error", "error", err)
		}
	}

	log.Info("shutdown complete")
}
