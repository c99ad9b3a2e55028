// Package cmd provides the CLI commands for coursechat.
//
// Commands:
//   - serve: HTTP API server over the ingested course materials
//   - ingest: load course documents into the vector store
//   - ask: answer a single question from the command line
//
// All commands handle SIGINT/SIGTERM via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/coursechat/coursechat/internal/log"
)

// Execute is the entry point for the coursechat CLI.
func Execute() error {
	logger := log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("COURSECHAT_LOG_JSON") != "",
	})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "ask":
		return runAsk(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func runHelp() {
	fmt.Println("coursechat - chat with your course materials")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  coursechat serve [addr]     Start HTTP API server (default: 127.0.0.1:3400)")
	fmt.Println("  coursechat ingest [dir]     Ingest course documents (default: configured docs_dir)")
	fmt.Println("  coursechat ask <question>   Answer one question and exit")
	fmt.Println("  coursechat version          Show version information")
	fmt.Println("  coursechat help             Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY        Required: Gemini API key")
	fmt.Println("  DEBUG                 Optional: enable debug logging")
	fmt.Println("  COURSECHAT_*          Optional: override any config key, e.g. COURSECHAT_MODEL_NAME")
}
