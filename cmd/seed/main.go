package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/campus-query-router/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/campus-query-router/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	dir := flag.String("dir", "", "directory of corpus JSON files (defaults to corpus.dir)")
	dryRun := flag.Bool("dry-run", false, "validate the corpus without writing it")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *dir == "" {
		*dir = cfg.Corpus.Dir
	}
	docs, err := corpus.FileLoader{Dir: *dir}.Load(ctx)
	if err != nil {
		var verr *corpus.ValidationError
		if errors.As(err, &verr) {
			for id, problem := range verr.Problems {
				slog.Error("invalid document", "id", id, "problem", problem)
			}
		}
		slog.Error("corpus rejected", "dir", *dir, "error", err)
		os.Exit(1)
	}

	counts := make(map[corpus.Domain]int)
	for _, d := range docs {
		counts[d.Domain]++
	}
	slog.Info("corpus validated", "dir", *dir, "documents", len(docs), "by_domain", counts)
	if *dryRun {
		return
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := corpus.NewPostgresStore(db, cfg.Corpus.Table)
	if err != nil {
		slog.Error("invalid corpus table", "error", err)
		os.Exit(1)
	}
	if err := store.Upsert(ctx, docs); err != nil {
		slog.Error("seeding failed, nothing written", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus seeded", "table", cfg.Corpus.Table, "documents", len(docs))
}
