package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/park285/cheese-arena/internal/adapter/chesspresenter"
	"github.com/park285/cheese-arena/internal/chessbuilder"
	"github.com/park285/cheese-arena/internal/config"
	"github.com/park285/cheese-arena/internal/msgcat"
	"github.com/park285/cheese-arena/internal/obslog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("chess-arena: %v", err)
	}
}

func run() error {
	resumeID := flag.String("resume", "", "match id stored in Redis to continue")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		return fmt.Errorf("logger init error: %w", err)
	}
	defer obslog.Sync()
	logger := obslog.L()

	deps, err := chessbuilder.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("chess init error: %w", err)
	}
	defer func() { _ = deps.Close() }()

	cat, err := msgcat.New(cfg.MessagesDir)
	if err != nil {
		return fmt.Errorf("messages init error: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := newArena(deps, chesspresenter.NewFormatter(cat), chesspresenter.NewPresenter(os.Stdout), logger.Named("arena"))
	if err := a.open(ctx, *resumeID); err != nil {
		return err
	}
	err = a.run(ctx, readLines(os.Stdin))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
