package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coursechat/coursechat/internal/app"
	"github.com/coursechat/coursechat/internal/config"
)

// runIngest loads course documents into the vector store.
func runIngest(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	dir := cfg.DocsDir
	if len(os.Args) > 2 {
		dir = os.Args[2]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	res, err := a.System.IngestDirectory(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", dir, err)
	}

	fmt.Printf("Ingested %d course(s), %d chunk(s) in %s\n",
		res.FilesAdded, res.ChunksAdded, res.Duration.Round(time.Millisecond))
	if res.FilesSkipped > 0 {
		fmt.Printf("Skipped %d non-course file(s)\n", res.FilesSkipped)
	}
	if res.FilesFailed > 0 {
		fmt.Printf("Failed %d file(s); see log for details\n", res.FilesFailed)
	}
	return nil
}
