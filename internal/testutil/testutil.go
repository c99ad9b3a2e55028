// Package testutil provides deterministic genkit doubles for tests: a
// scripted chat model and an embedder with controllable vectors. No test
// in this repository talks to a real model provider.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/coursechat/coursechat/internal/log"
)

// NewGenkit initializes a genkit registry for a test. No provider plugins
// are loaded; register doubles from this package against it.
func NewGenkit(t *testing.T) *genkit.Genkit {
	t.Helper()
	return genkit.Init(context.Background())
}

// QuietLogger returns a logger that discards everything below warn.
func QuietLogger() *slog.Logger {
	return log.NewWithWriter(io.Discard, log.Config{Level: slog.LevelWarn})
}
