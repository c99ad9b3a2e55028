package rag_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofrs/flock"

	"github.com/coursechat/coursechat/internal/chat"
	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/rag"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/store"
	"github.com/coursechat/coursechat/internal/testutil"
	"github.com/coursechat/coursechat/internal/tools"
)

const goDoc = `Course Title: Go Basics
Course Link: https://example.com/go
Course Instructor: Ada Lovelace

Lesson 0: Introduction
Lesson Link: https://example.com/go/0
Go is a statically typed language. Goroutines make concurrency simple.

Lesson 1: Channels
Channels let goroutines communicate by passing values.
`

const rustDoc = `Course Title: Rust Basics
Course Link: https://example.com/rust
Course Instructor: Grace Hopper

Lesson 0: Ownership
Every value in Rust has a single owner.
`

type harness struct {
	system   *rag.System
	model    *testutil.ScriptedModel
	sessions *session.Manager
}

func newHarness(t *testing.T, storePath string) *harness {
	t.Helper()

	g := testutil.NewGenkit(t)
	emb := testutil.NewVectorEmbedder(16)
	model := testutil.NewScriptedModel("I don't know.")
	model.Register(g)

	st, err := store.New(store.Config{
		Path:          storePath,
		Embedder:      emb.Register(g),
		MaxResults:    5,
		MinSimilarity: 0.3,
		Logger:        testutil.QuietLogger(),
	})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}

	kit, err := tools.NewToolkit(st, testutil.QuietLogger())
	if err != nil {
		t.Fatalf("NewToolkit: %v", err)
	}
	registry := tools.NewRegistry(kit, kit.Register(g), testutil.QuietLogger())
	sessions := session.NewManager(2)

	assistant, err := chat.New(chat.Config{
		Genkit:    g,
		ModelName: testutil.ScriptedModelName,
		Registry:  registry,
		Sessions:  sessions,
		Logger:    testutil.QuietLogger(),
	})
	if err != nil {
		t.Fatalf("chat.New: %v", err)
	}

	chunker, err := course.NewChunker(800, 100)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	system, err := rag.New(rag.Config{
		Store:     st,
		Sessions:  sessions,
		Assistant: assistant,
		Chunker:   chunker,
		StorePath: storePath,
		Logger:    testutil.QuietLogger(),
	})
	if err != nil {
		t.Fatalf("rag.New: %v", err)
	}

	return &harness{system: system, model: model, sessions: sessions}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}

func TestIngestDirectory(t *testing.T) {
	docs := t.TempDir()
	writeFile(t, docs, "go.txt", goDoc)
	writeFile(t, docs, "rust.txt", rustDoc)
	writeFile(t, docs, "broken.txt", "\n\n\n")
	writeFile(t, docs, "notes.md", "not a course document")

	h := newHarness(t, "")
	res, err := h.system.IngestDirectory(context.Background(), docs)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}

	if res.FilesAdded != 2 {
		t.Errorf("FilesAdded = %d, want 2", res.FilesAdded)
	}
	if res.FilesSkipped != 1 {
		t.Errorf("FilesSkipped = %d, want 1", res.FilesSkipped)
	}
	if res.FilesFailed != 1 {
		t.Errorf("FilesFailed = %d, want 1", res.FilesFailed)
	}
	if res.ChunksAdded == 0 {
		t.Error("ChunksAdded = 0, want some")
	}

	stats, err := h.system.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.CourseCount != 2 {
		t.Errorf("CourseCount = %d, want 2", stats.CourseCount)
	}
	want := []string{"Go Basics", "Rust Basics"}
	for i, title := range want {
		if stats.CourseTitles[i] != title {
			t.Errorf("CourseTitles[%d] = %q, want %q", i, stats.CourseTitles[i], title)
		}
	}
}

func TestIngestDirectoryMissing(t *testing.T) {
	h := newHarness(t, "")
	if _, err := h.system.IngestDirectory(context.Background(), "/no/such/dir"); err == nil {
		t.Error("expected error for missing directory")
	}
}

func TestIngestLock(t *testing.T) {
	storePath := t.TempDir()
	docs := t.TempDir()
	writeFile(t, docs, "go.txt", goDoc)

	h := newHarness(t, storePath)

	// Simulate a concurrent ingest holding the lock.
	other := flock.New(filepath.Join(storePath, ".ingest.lock"))
	locked, err := other.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take lock externally: locked=%v err=%v", locked, err)
	}
	defer other.Unlock()

	if _, err := h.system.IngestDirectory(context.Background(), docs); !errors.Is(err, rag.ErrIngestLocked) {
		t.Errorf("expected ErrIngestLocked, got %v", err)
	}
}

func TestQueryMintsSession(t *testing.T) {
	h := newHarness(t, "")
	h.model.Reply("hello", "Hi there.")

	ans, err := h.system.Query(context.Background(), "", "hello")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ans.SessionID == "" {
		t.Fatal("no session ID minted")
	}
	if ans.Answer != "Hi there." {
		t.Errorf("answer = %q", ans.Answer)
	}

	// Reusing the returned ID continues the same conversation.
	h.model.Reply("again", "Hello again.")
	ans2, err := h.system.Query(context.Background(), ans.SessionID, "again")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ans2.SessionID != ans.SessionID {
		t.Errorf("session changed: %q -> %q", ans.SessionID, ans2.SessionID)
	}

	hist := h.sessions.History(ans.SessionID)
	if !strings.Contains(hist, "User: hello") || !strings.Contains(hist, "User: again") {
		t.Errorf("history = %q", hist)
	}
}

func TestQueryUnknownSessionDegradesToNew(t *testing.T) {
	h := newHarness(t, "")
	h.model.Reply("hello", "Hi.")

	ans, err := h.system.Query(context.Background(), "bogus-session-id", "hello")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if ans.SessionID == "bogus-session-id" || ans.SessionID == "" {
		t.Errorf("SessionID = %q, want a freshly minted one", ans.SessionID)
	}
}
