package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// VectorEmbedderName is the embedder name the double registers under.
const VectorEmbedderName = "scripted/embedder"

// VectorEmbedder is an embedder double. Texts with an explicit vector set
// via Pin embed to exactly that vector; everything else embeds to a unit
// vector derived from its SHA-256 hash, so equal texts always land on the
// same point and distinct texts almost never collide.
//
// Safe for concurrent use.
type VectorEmbedder struct {
	mu     sync.Mutex
	pinned map[string][]float32
	dim    int
	fail   error
}

// NewVectorEmbedder creates an embedder double producing vectors of the
// given dimension.
func NewVectorEmbedder(dim int) *VectorEmbedder {
	return &VectorEmbedder{pinned: make(map[string][]float32), dim: dim}
}

// Pin fixes the vector returned for an exact text. Use it to control
// cosine similarity between specific test inputs.
func (e *VectorEmbedder) Pin(text string, vec []float32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pinned[text] = vec
}

// FailWith makes every subsequent embedding call return err. Pass nil to
// restore normal behavior.
func (e *VectorEmbedder) FailWith(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

// Register defines the double as a genkit embedder and returns it.
func (e *VectorEmbedder) Register(g *genkit.Genkit) ai.Embedder {
	return genkit.DefineEmbedder(g, VectorEmbedderName, &ai.EmbedderOptions{
		Label:      "Scripted Embedder",
		Dimensions: e.dim,
	}, e.embed)
}

func (e *VectorEmbedder) embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	e.mu.Lock()
	fail := e.fail
	e.mu.Unlock()
	if fail != nil {
		return nil, fail
	}
	if len(req.Input) == 0 {
		return nil, errors.New("empty embed request")
	}

	out := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		out[i] = &ai.Embedding{Embedding: e.vectorFor(docText(doc))}
	}
	return &ai.EmbedResponse{Embeddings: out}, nil
}

func (e *VectorEmbedder) vectorFor(text string) []float32 {
	e.mu.Lock()
	v, ok := e.pinned[text]
	e.mu.Unlock()
	if ok {
		return v
	}
	return hashVector(text, e.dim)
}

func docText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// hashVector maps text to a unit vector seeded by its SHA-256 digest.
func hashVector(text string, dim int) []float32 {
	digest := sha256.Sum256([]byte(text))
	vec := make([]float32, dim)
	for i := range vec {
		idx := (i * 4) % len(digest)
		bits := binary.LittleEndian.Uint32([]byte{
			digest[idx%32],
			digest[(idx+1)%32],
			digest[(idx+2)%32],
			digest[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
