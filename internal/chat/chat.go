// Package chat orchestrates answer generation: it sends the question to
// the model with the retrieval tools attached, runs at most one round of
// tool calls, and returns the final text with the sources consulted.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/tools"
)

// ErrGenerationFailed indicates the model call itself failed. Callers map
// it to a service-level error; it is never shown verbatim to users.
var ErrGenerationFailed = errors.New("generation failed")

// fallbackAnswer is returned when the model produces no usable text.
const fallbackAnswer = "I'm sorry, I couldn't produce an answer to that. Please try rephrasing your question."

// systemPrompt steers tool selection and response style. History, when
// present, is appended under "Previous conversation:".
const systemPrompt = `You are an AI assistant specialized in course materials and educational content, with access to tools for course information.

Tool Selection Guide:
- get_course_outline: use when users ask about course structure, what lessons a course covers, course overviews, or lesson lists.
- search_course_content: use when users ask about specific content or concepts within course materials.

Tool Usage Rules:
- For general knowledge questions, answer from existing knowledge without tools.
- For course-specific questions, use the appropriate tool first, then answer.
- If a tool yields no results, state this clearly. Do not invent course content.
- Provide direct answers only. No meta-commentary about tools or searches.

All responses must be brief, educational, clear, and supported by examples where they aid understanding.`

// Response is a completed answer.
type Response struct {
	Answer  string
	Sources []tools.Source
}

// Config contains required parameters for Assistant.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string
	Registry  *tools.Registry
	Sessions  *session.Manager

	// Limiter, when set, paces model calls. Nil means no pacing.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

func (c Config) validate() error {
	if c.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if c.ModelName == "" {
		return errors.New("model name is required")
	}
	if c.Registry == nil {
		return errors.New("tool registry is required")
	}
	if c.Sessions == nil {
		return errors.New("session manager is required")
	}
	return nil
}

// Assistant answers questions over ingested course material.
// Safe for concurrent use; each call carries its own source recorder.
type Assistant struct {
	g         *genkit.Genkit
	modelName string
	registry  *tools.Registry
	sessions  *session.Manager
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// New creates an Assistant.
func New(cfg Config) (*Assistant, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		g:         cfg.Genkit,
		modelName: cfg.ModelName,
		registry:  cfg.Registry,
		sessions:  cfg.Sessions,
		limiter:   cfg.Limiter,
		logger:    logger,
	}, nil
}

// Answer generates a response to question within the given session. On
// success the exchange is recorded into the session history.
//
// The generation is a bounded state machine: one call with tools attached,
// then, if the model requested tools, their results are fed back in exactly
// one follow-up call made without tools. The model cannot loop.
func (a *Assistant) Answer(ctx context.Context, sessionID, question string) (*Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	rec := tools.NewRecorder()
	ctx = tools.WithRecorder(ctx, rec)

	system := systemPrompt
	if hist := a.sessions.History(sessionID); hist != "" {
		system = systemPrompt + "\n\nPrevious conversation:\n" + hist
	}

	messages := []*ai.Message{ai.NewUserMessage(ai.NewTextPart(question))}

	resp, err := genkit.Generate(ctx, a.g,
		ai.WithModelName(a.modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithTools(a.registry.Definitions()...),
		ai.WithReturnToolRequests(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	if requests := resp.ToolRequests(); len(requests) > 0 {
		parts := make([]*ai.Part, 0, len(requests))
		for _, tr := range requests {
			a.logger.Debug("executing tool", "tool", tr.Name, "session", sessionID)
			out := a.registry.Execute(ctx, tr.Name, tr.Input)
			parts = append(parts, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   tr.Name,
				Ref:    tr.Ref,
				Output: out,
			}))
		}

		messages = append(messages, resp.Message, &ai.Message{
			Role:    ai.RoleTool,
			Content: parts,
		})

		// Final call goes out without tools so the model must answer.
		resp, err = genkit.Generate(ctx, a.g,
			ai.WithModelName(a.modelName),
			ai.WithSystem(system),
			ai.WithMessages(messages...),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
		}
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		a.logger.Warn("model returned empty answer", "session", sessionID)
		answer = fallbackAnswer
	}

	a.sessions.AddExchange(sessionID, question, answer)

	return &Response{Answer: answer, Sources: rec.Sources()}, nil
}
