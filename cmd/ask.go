package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coursechat/coursechat/internal/app"
	"github.com/coursechat/coursechat/internal/config"
)

// runAsk answers a single question and exits.
func runAsk(logger *slog.Logger) error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("usage: coursechat ask <question>")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	ans, err := a.System.Query(ctx, "", question)
	if err != nil {
		return fmt.Errorf("answering question: %w", err)
	}

	fmt.Println(ans.Answer)
	if len(ans.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range ans.Sources {
			if src.Link != "" {
				fmt.Printf("  - %s (%s)\n", src.Label, src.Link)
			} else {
				fmt.Printf("  - %s\n", src.Label)
			}
		}
	}
	return nil
}
