package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"oroya/internal/api"
	"oroya/internal/blob"
	"oroya/internal/config"
	"oroya/internal/logstream"
	"oroya/internal/seed"
	"oroya/internal/store"
)

func main() {
	cfg := config.Load("oroya.json")

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.DevMode {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	} else {
		log = log.Level(zerolog.InfoLevel)
	}

	// 1. База: Postgres по URL, иначе локальный SQLite
	db, err := store.Open(cfg.DBURL, cfg.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()

	if err := store.ApplyDDL(db, store.Schema); err != nil {
		log.Fatal().Err(err).Msg("schema apply failed")
	}

	// 2. Локальное хранилище файлов
	if err := os.MkdirAll(cfg.FilesRoot, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.FilesRoot).Msg("files root create failed")
	}
	blobs := &blob.LocalStore{Root: cfg.FilesRoot}

	// 3. Затравка из YAML-каталога, если задан
	if cfg.SeedDir != "" {
		seeds, err := seed.LoadDir(cfg.SeedDir)
		if err != nil {
			log.Fatal().Err(err).Str("dir", cfg.SeedDir).Msg("seed load failed")
		}
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := seed.Apply(ctx, db, log, seeds); err != nil {
			log.Fatal().Err(err).Msg("seed apply failed")
		}
		cancel()
	}

	// 4. REST API + live-стрим журнала
	hub := logstream.NewHub()
	srv := api.NewServer(cfg, log, db, blobs, hub)

	log.Info().Str("port", cfg.Port).Bool("dev", cfg.DevMode).Msg("starting oroya server")
	if err := srv.Router().Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
