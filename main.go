// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluffyriot/rtsync/internal/config"
	"github.com/fluffyriot/rtsync/internal/discord"
	"github.com/fluffyriot/rtsync/internal/fetcher"
	"github.com/fluffyriot/rtsync/internal/filebase"
	"github.com/fluffyriot/rtsync/internal/logging"
	"github.com/fluffyriot/rtsync/internal/reddit"
	"github.com/fluffyriot/rtsync/internal/solver"
	"github.com/fluffyriot/rtsync/internal/telegram"
	"github.com/fluffyriot/rtsync/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	closeLog, err := logging.Setup(filepath.Join(cfg.StateDir, "events.log"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}
	defer closeLog()

	httpClient := fetcher.NewClient(
		60*time.Second,
		cfg.GetAttempts,
		cfg.PostAttempts,
		cfg.SleepOnFailedGet,
		cfg.SleepOnFailedPost,
	)

	redditClient := reddit.NewClient(cfg, httpClient)
	telegramClient := telegram.NewClient(cfg.TelegramBotToken, cfg.TelegramChatID, httpClient)
	postSolver := solver.New(httpClient, redditClient, telegramClient)

	notifier, err := discord.NewNotifier()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Discord notifier")
	}

	var store *filebase.Store
	if cfg.FilebaseBucket != "" {
		store, err = filebase.NewStore(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Filebase store")
		}
	}

	var w *worker.Worker
	if store != nil {
		w, err = worker.New(cfg, redditClient, postSolver, notifier, store)
	} else {
		w, err = worker.New(cfg, redditClient, postSolver, notifier, nil)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize worker")
	}

	stop := make(chan struct{})
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		log.Info().Msg("Shutdown signal received")
		close(stop)
	}()

	w.Run(stop)
}
