package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// ScriptedModelName is the model name the scripted double registers under.
const ScriptedModelName = "scripted/chat"

// ScriptedModel is a chat model double driven by substring rules. Each rule
// matches against the last user message; the first matching rule decides
// the reply and any tool requests the model emits. Calls are recorded so
// tests can assert on what the model saw.
//
// Safe for concurrent use.
type ScriptedModel struct {
	mu       sync.Mutex
	rules    []scriptRule
	fallback string
	seen     []SeenRequest
}

type scriptRule struct {
	match string
	reply string
	tools []*ai.ToolRequest
}

// SeenRequest captures one request handled by the scripted model.
type SeenRequest struct {
	System      string
	UserMessage string
	HadToolRole bool
	Reply       string
}

// NewScriptedModel creates a scripted model that replies with fallback
// when no rule matches.
func NewScriptedModel(fallback string) *ScriptedModel {
	return &ScriptedModel{fallback: fallback}
}

// Reply adds a rule: when the last user message contains match
// (case-insensitive), answer with reply.
func (m *ScriptedModel) Reply(match, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, scriptRule{match: strings.ToLower(match), reply: reply})
}

// ReplyWithTools adds a rule that emits tool requests alongside the reply.
// The second generation round (the one carrying a tool-role message) is
// answered with reply alone, so a single rule drives a full tool round.
func (m *ScriptedModel) ReplyWithTools(match, reply string, tools ...*ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, scriptRule{match: strings.ToLower(match), reply: reply, tools: tools})
}

// Seen returns a copy of all requests handled so far.
func (m *ScriptedModel) Seen() []SeenRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SeenRequest, len(m.seen))
	copy(out, m.seen)
	return out
}

// Register defines the double as a genkit model and returns it.
func (m *ScriptedModel) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ScriptedModelName, &ai.ModelOptions{
		Label: "Scripted Chat Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *ScriptedModel) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var user, system string
	hadToolRole := false
	for _, msg := range req.Messages {
		switch msg.Role {
		case ai.RoleUser:
			user = msg.Text()
		case ai.RoleSystem:
			system = msg.Text()
		case ai.RoleTool:
			hadToolRole = true
		}
	}

	m.mu.Lock()
	var matched *scriptRule
	lower := strings.ToLower(user)
	for i := range m.rules {
		if strings.Contains(lower, m.rules[i].match) {
			matched = &m.rules[i]
			break
		}
	}

	reply := m.fallback
	if matched != nil {
		reply = matched.reply
	}

	m.seen = append(m.seen, SeenRequest{
		System:      system,
		UserMessage: user,
		HadToolRole: hadToolRole,
		Reply:       reply,
	})
	m.mu.Unlock()

	if cb != nil {
		_ = cb(ctx, &ai.ModelResponseChunk{Content: []*ai.Part{ai.NewTextPart(reply)}})
	}

	var parts []*ai.Part
	// Emit tool requests only on the first round for this rule. Once a
	// tool-role message is in the conversation, the round is done.
	if matched != nil && len(matched.tools) > 0 && !hadToolRole {
		for _, tr := range matched.tools {
			parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
		}
	} else {
		parts = append(parts, ai.NewTextPart(reply))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}
