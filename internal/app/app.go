// Package app wires the production application: genkit with the Google AI
// plugin, the vector store, the retrieval tools, and the assistant.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"golang.org/x/time/rate"

	"github.com/coursechat/coursechat/internal/chat"
	"github.com/coursechat/coursechat/internal/config"
	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/store"
	"github.com/coursechat/coursechat/internal/tools"
)

// App holds the assembled application.
type App struct {
	Config   *config.Config
	Genkit   *genkit.Genkit
	Store    *store.Store
	Sessions *session.Manager
	System   *rag.System
	Logger   *slog.Logger
}

// Setup assembles the application from configuration. It requires
// GEMINI_API_KEY in the environment (enforced by the Google AI plugin on
// first use).
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not available", cfg.EmbedderModel)
	}

	st, err := store.New(store.Config{
		Path:          cfg.StorePath,
		Embedder:      embedder,
		MaxResults:    cfg.MaxResults,
		MinSimilarity: cfg.MinSimilarity,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	kit, err := tools.NewToolkit(st, logger)
	if err != nil {
		return nil, fmt.Errorf("building toolkit: %w", err)
	}
	registry := tools.NewRegistry(kit, kit.Register(g), logger)

	sessions := session.NewManager(cfg.MaxHistory)

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	assistant, err := chat.New(chat.Config{
		Genkit:    g,
		ModelName: cfg.ModelName,
		Registry:  registry,
		Sessions:  sessions,
		Limiter:   limiter,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building assistant: %w", err)
	}

	chunker, err := course.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("building chunker: %w", err)
	}

	system, err := rag.New(rag.Config{
		Store:     st,
		Sessions:  sessions,
		Assistant: assistant,
		Chunker:   chunker,
		StorePath: cfg.StorePath,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("building system: %w", err)
	}

	return &App{
		Config:   cfg,
		Genkit:   g,
		Store:    st,
		Sessions: sessions,
		System:   system,
		Logger:   logger,
	}, nil
}
