// Package rag wires the document pipeline and the assistant into one
// system. It is the only entry point the API and CLI layers use.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/coursechat/coursechat/internal/chat"
	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/session"
	"github.com/coursechat/coursechat/internal/store"
	"github.com/coursechat/coursechat/internal/tools"
)

// ErrIngestLocked indicates another process is ingesting into the same
// store directory.
var ErrIngestLocked = errors.New("another ingest is already running against this store")

// ingestLockFile is created inside the store directory to serialize
// ingestion across processes.
const ingestLockFile = ".ingest.lock"

// Config contains required parameters for System.
type Config struct {
	Store     *store.Store
	Sessions  *session.Manager
	Assistant *chat.Assistant
	Chunker   *course.Chunker

	// StorePath is the store's persistence directory, used for the
	// cross-process ingest lock. Empty disables locking (in-memory store).
	StorePath string

	Logger *slog.Logger
}

func (c Config) validate() error {
	if c.Store == nil {
		return errors.New("store is required")
	}
	if c.Sessions == nil {
		return errors.New("session manager is required")
	}
	if c.Assistant == nil {
		return errors.New("assistant is required")
	}
	if c.Chunker == nil {
		return errors.New("chunker is required")
	}
	return nil
}

// System is the top-level facade over ingestion, retrieval, and chat.
// Safe for concurrent use.
type System struct {
	store     *store.Store
	sessions  *session.Manager
	assistant *chat.Assistant
	chunker   *course.Chunker
	storePath string
	logger    *slog.Logger
}

// New creates a System.
func New(cfg Config) (*System, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		store:     cfg.Store,
		sessions:  cfg.Sessions,
		assistant: cfg.Assistant,
		chunker:   cfg.Chunker,
		storePath: cfg.StorePath,
		logger:    logger,
	}, nil
}

// Result summarizes one ingest run.
type Result struct {
	FilesAdded   int
	FilesSkipped int
	FilesFailed  int
	ChunksAdded  int
	Duration     time.Duration
}

// IngestDirectory parses every .txt course document in dir and loads it
// into the store. A malformed or failing file is logged and counted, not
// fatal; the rest of the batch still lands. Re-ingesting a title replaces
// its previous content.
func (s *System) IngestDirectory(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()

	if s.storePath != "" {
		lock := flock.New(filepath.Join(s.storePath, ingestLockFile))
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquiring ingest lock: %w", err)
		}
		if !locked {
			return nil, ErrIngestLocked
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				s.logger.Warn("releasing ingest lock", "error", err)
			}
		}()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading documents directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	res := &Result{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".txt") {
			res.FilesSkipped++
			continue
		}

		path := filepath.Join(dir, entry.Name())
		added, err := s.ingestFile(ctx, path)
		if err != nil {
			s.logger.Error("ingesting document failed", "file", entry.Name(), "error", err)
			res.FilesFailed++
			continue
		}

		res.FilesAdded++
		res.ChunksAdded += added
		s.logger.Info("ingested document", "file", entry.Name(), "chunks", added)
	}

	res.Duration = time.Since(start)
	s.logger.Info("ingest finished",
		"added", res.FilesAdded,
		"skipped", res.FilesSkipped,
		"failed", res.FilesFailed,
		"chunks", res.ChunksAdded,
		"duration", res.Duration)
	return res, nil
}

// ingestFile parses one document and stores its metadata and chunks.
func (s *System) ingestFile(ctx context.Context, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening document: %w", err)
	}
	defer f.Close()

	crs, err := course.ParseDocument(f)
	if err != nil {
		return 0, fmt.Errorf("parsing document: %w", err)
	}

	chunks := s.chunker.ChunkCourse(crs)

	if err := s.store.AddCourse(ctx, crs); err != nil {
		return 0, fmt.Errorf("storing course %q: %w", crs.Title, err)
	}
	if err := s.store.AddChunks(ctx, chunks); err != nil {
		return 0, fmt.Errorf("storing chunks for %q: %w", crs.Title, err)
	}

	return len(chunks), nil
}

// Answer is the caller-facing result of a query.
type Answer struct {
	Answer    string
	Sources   []tools.Source
	SessionID string
}

// Query answers a question. An empty or unknown sessionID starts a fresh
// session; the returned SessionID is what the caller should send next time.
func (s *System) Query(ctx context.Context, sessionID, question string) (*Answer, error) {
	sessionID = s.sessions.Ensure(sessionID)

	resp, err := s.assistant.Answer(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Answer:    resp.Answer,
		Sources:   resp.Sources,
		SessionID: sessionID,
	}, nil
}

// CourseStats describes the store for the analytics endpoint.
type CourseStats struct {
	CourseCount  int
	CourseTitles []string
}

// Stats returns the number of stored courses and their titles.
func (s *System) Stats(ctx context.Context) (*CourseStats, error) {
	titles, err := s.store.CourseTitles(ctx)
	if err != nil {
		return nil, err
	}
	return &CourseStats{
		CourseCount:  s.store.CourseCount(ctx),
		CourseTitles: titles,
	}, nil
}
