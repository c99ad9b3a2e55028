package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
)

// handler executes one tool request against already-decoded JSON input.
type handler func(ctx context.Context, raw json.RawMessage) (string, error)

// Registry dispatches tool requests by name. The orchestrator runs tool
// requests through Execute instead of letting the framework resolve them,
// so every failure path collapses into a textual tool result.
//
// Safe for concurrent use after construction.
type Registry struct {
	handlers map[string]handler
	refs     []ai.ToolRef
	logger   *slog.Logger
}

// NewRegistry builds a Registry over the toolkit's tools. refs must be the
// genkit registrations for the same tools (from Toolkit.Register) so
// Definitions and Execute stay in agreement.
func NewRegistry(kit *Toolkit, refs []ai.Tool, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	toolRefs := make([]ai.ToolRef, 0, len(refs))
	for _, t := range refs {
		toolRefs = append(toolRefs, t)
	}

	return &Registry{
		handlers: map[string]handler{
			SearchContentName: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var in SearchContentInput
				if err := json.Unmarshal(raw, &in); err != nil {
					return "", fmt.Errorf("decoding input: %w", err)
				}
				return kit.SearchContent(ctx, in)
			},
			CourseOutlineName: func(ctx context.Context, raw json.RawMessage) (string, error) {
				var in CourseOutlineInput
				if err := json.Unmarshal(raw, &in); err != nil {
					return "", fmt.Errorf("decoding input: %w", err)
				}
				return kit.GetOutline(ctx, in)
			},
		},
		refs:   toolRefs,
		logger: logger,
	}
}

// Definitions returns the tool references to advertise on a generate call.
func (r *Registry) Definitions() []ai.ToolRef {
	return r.refs
}

// Execute runs a named tool and always returns result text. Unknown names
// and handler failures are reported to the model as text; the detail stays
// in the log.
func (r *Registry) Execute(ctx context.Context, name string, input any) string {
	h, ok := r.handlers[name]
	if !ok {
		r.logger.Warn("model requested unknown tool", "tool", name)
		return fmt.Sprintf("Tool '%s' not found", name)
	}

	raw, err := json.Marshal(input)
	if err != nil {
		r.logger.Error("tool input not serializable", "tool", name, "error", err)
		return fmt.Sprintf("Tool '%s' received invalid input", name)
	}

	out, err := h(ctx, raw)
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("Tool '%s' failed to execute", name)
	}
	return out
}
