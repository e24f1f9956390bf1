package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/MrSnakeDoc/mindmark/internal/app"
	"github.com/MrSnakeDoc/mindmark/internal/config"
	"github.com/MrSnakeDoc/mindmark/internal/logger"
	"github.com/MrSnakeDoc/mindmark/internal/queue"
	"github.com/MrSnakeDoc/mindmark/internal/store"
	"github.com/MrSnakeDoc/mindmark/internal/utils"
)

func serveAction(_ *cli.Context) error {
	cfg := config.Load()
	a, err := app.New(cfg, logger.New(cfg.LogLevel, cfg.PrettyLog))
	if err != nil {
		return err
	}
	return a.Run()
}

func availabilityAction(c *cli.Context) error {
	cfg := config.Load()
	manager := app.NewModelManager(cfg, logger.NewNop())

	fmt.Printf("text model  (%s): %s\n", cfg.TextModel, manager.Availability(c.Context))
	fmt.Printf("vision model (%s): %s\n", cfg.VisionModel, manager.ImageAvailability(c.Context))
	return nil
}

func enqueueAction(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, st *store.Store, id int64) error {
		if _, err := st.Bookmark(ctx, id); err != nil {
			return err
		}
		if err := st.AddToQueue(ctx, id); err != nil {
			return fmt.Errorf("failed to enqueue bookmark %d: %w", id, err)
		}
		fmt.Printf("bookmark %d queued\n", id)
		return nil
	})
}

func retryAction(c *cli.Context) error {
	return withStore(c, func(ctx context.Context, st *store.Store, id int64) error {
		if err := queue.PrepareRetry(ctx, st, id); err != nil {
			return fmt.Errorf("cannot retry bookmark %d: %w", id, err)
		}
		fmt.Printf("bookmark %d queued for retry\n", id)
		return nil
	})
}

// withStore opens the configured store for a one-shot command. Jobs are
// only written to the queue; the running server processes them on its
// next kick.
func withStore(c *cli.Context, fn func(ctx context.Context, st *store.Store, id int64) error) error {
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("expected a bookmark id, got %q", c.Args().First())
	}

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if cfg.Store == config.StoreMemory {
		return fmt.Errorf("the memory store is per-process, use the HTTP API instead")
	}

	st, backend, err := app.OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer utils.CloseLogged(backend, "store", log)

	return fn(c.Context, st, id)
}
