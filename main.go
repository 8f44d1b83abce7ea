package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/astromatch/internal/apod"
	"github.com/robalobadob/astromatch/internal/config"
	"github.com/robalobadob/astromatch/internal/httpserver"
	"github.com/robalobadob/astromatch/internal/scores"
	"github.com/robalobadob/astromatch/internal/store"
)

func main() {
	cfg, err := config.Load(getEnv("CONFIG_FILE", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.Server.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.Server.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	var rec scores.Recorder
	if cfg.Leaderboard.DBPath != "" {
		db, err := scores.OpenSQLite(cfg.Leaderboard.DBPath, cfg.Leaderboard.Size)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.Leaderboard.DBPath).Msg("failed to open leaderboard")
		}
		defer db.Close()
		rec = db
	} else {
		log.Warn().Msg("DB_PATH empty, leaderboard kept in memory")
		rec = scores.NewMemoryStore(cfg.Leaderboard.Size)
	}

	images := apod.New(apod.Options{
		BaseURL:    cfg.APOD.BaseURL,
		APIKey:     cfg.APOD.APIKey,
		Timeout:    cfg.APOD.Timeout,
		RatePerSec: cfg.APOD.RatePerSec,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv := httpserver.New(httpserver.Deps{
		Config:   cfg,
		Sessions: store.NewMemoryStore(),
		Scores:   rec,
		Images:   images,
		Registry: reg,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("port", cfg.Server.Port).Str("origin", cfg.Server.ClientOrigin).Msg("starting astromatch")
	if err := srv.Start(ctx, ":"+cfg.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
