// Package store adapts an embedded chromem-go vector database for course
// content. It maintains two collections: course_catalog holds one entry per
// course (title, link, instructor, lesson list) and course_content holds one
// entry per chunk. All other components go through this adapter; neither
// collection is accessed directly elsewhere.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"sync"

	"github.com/firebase/genkit/go/ai"
	chromem "github.com/philippgille/chromem-go"

	"github.com/coursechat/coursechat/internal/course"
)

// Collection names in the underlying database.
const (
	CatalogCollection = "course_catalog"
	ContentCollection = "course_content"
)

// Metadata keys on content collection entries.
const (
	metaCourseTitle  = "course_title"
	metaLessonNumber = "lesson_number"
	metaChunkIndex   = "chunk_index"
)

// Metadata keys on catalog collection entries.
const (
	metaCourseLink = "course_link"
	metaInstructor = "instructor"
	metaLessons    = "lessons_json"
)

// Result is one search hit: a chunk with its provenance and cosine
// similarity to the query. Results are ephemeral, never persisted.
type Result struct {
	Text         string
	CourseTitle  string
	LessonNumber int
	Similarity   float32
}

// Config contains required parameters for Store.
type Config struct {
	// Path is the persistence directory. Empty means in-memory (tests).
	Path string

	// Embedder generates vectors at both ingestion and query time.
	Embedder ai.Embedder

	// MaxResults is the default search result limit.
	MaxResults int

	// MinSimilarity is the cosine similarity threshold for fuzzy
	// course-name resolution.
	MinSimilarity float32

	Logger *slog.Logger
}

// Store manages the course catalog and content collections.
// Safe for concurrent use by multiple goroutines.
type Store struct {
	db      *chromem.DB
	catalog *chromem.Collection
	content *chromem.Collection

	maxResults    int
	minSimilarity float32
	logger        *slog.Logger

	// mu serializes course replacement (delete then re-add) so two
	// concurrent ingests of the same title cannot interleave.
	mu sync.Mutex
}

// New creates a Store backed by a persistent database at cfg.Path, or an
// in-memory database when the path is empty.
func New(cfg Config) (*Store, error) {
	if cfg.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if cfg.MaxResults <= 0 {
		return nil, fmt.Errorf("max results must be positive, got %d", cfg.MaxResults)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: opening database at %s: %v", ErrStoreUnavailable, cfg.Path, err)
		}
	}

	embed := NewEmbeddingFunc(cfg.Embedder)

	catalog, err := db.GetOrCreateCollection(CatalogCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrStoreUnavailable, CatalogCollection, err)
	}
	content, err := db.GetOrCreateCollection(ContentCollection, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("%w: creating %s: %v", ErrStoreUnavailable, ContentCollection, err)
	}

	return &Store{
		db:            db,
		catalog:       catalog,
		content:       content,
		maxResults:    cfg.MaxResults,
		minSimilarity: cfg.MinSimilarity,
		logger:        logger,
	}, nil
}

// AddCourse adds a course's metadata to the catalog. An existing course
// with the same title is fully replaced: its prior chunks and catalog
// entry are deleted first, so ingestion is idempotent per title.
func (s *Store) AddCourse(ctx context.Context, crs *course.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.deleteCourseLocked(ctx, crs.Title); err != nil {
		return err
	}

	lessonsJSON, err := json.Marshal(crs.Lessons)
	if err != nil {
		return fmt.Errorf("marshaling lessons for %q: %w", crs.Title, err)
	}

	doc := chromem.Document{
		ID:      crs.Title,
		Content: crs.Title,
		Metadata: map[string]string{
			metaCourseLink: crs.Link,
			metaInstructor: crs.Instructor,
			metaLessons:    string(lessonsJSON),
		},
	}
	if err := s.catalog.AddDocument(ctx, doc); err != nil {
		return s.classify("adding course metadata", err)
	}

	s.logger.Debug("added course metadata", "title", crs.Title, "lessons", len(crs.Lessons))
	return nil
}

// deleteCourseLocked removes a course's chunks and catalog entry if they
// exist. Caller must hold s.mu.
func (s *Store) deleteCourseLocked(ctx context.Context, title string) error {
	if _, err := s.catalog.GetByID(ctx, title); err != nil {
		// Not stored yet; nothing to replace.
		return nil
	}

	if err := s.content.Delete(ctx, map[string]string{metaCourseTitle: title}, nil); err != nil {
		return s.classify("deleting prior chunks", err)
	}
	if err := s.catalog.Delete(ctx, nil, nil, title); err != nil {
		return s.classify("deleting prior catalog entry", err)
	}

	s.logger.Debug("replaced existing course", "title", title)
	return nil
}

// AddChunks adds content chunks to the content collection. Chunk IDs are
// derived from course title, lesson number, and chunk index, so re-adding
// the same chunk overwrites rather than duplicates.
func (s *Store) AddChunks(ctx context.Context, chunks []course.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(chunks))
	for _, ch := range chunks {
		docs = append(docs, chromem.Document{
			ID:      fmt.Sprintf("%s|%d|%d", ch.CourseTitle, ch.LessonNumber, ch.Index),
			Content: ch.Text,
			Metadata: map[string]string{
				metaCourseTitle:  ch.CourseTitle,
				metaLessonNumber: strconv.Itoa(ch.LessonNumber),
				metaChunkIndex:   strconv.Itoa(ch.Index),
			},
		})
	}

	if err := s.content.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return s.classify("adding chunks", err)
	}

	s.logger.Debug("added chunks", "count", len(docs))
	return nil
}

// Search embeds the query and performs nearest-neighbor retrieval over the
// content collection. Filters are hard constraints applied before the
// result limit; results are ordered by descending similarity.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(s.maxResults, opts)

	total := s.content.Count()
	if total == 0 {
		return nil, nil
	}
	limit := min(cfg.limit, total)

	where := make(map[string]string)
	if cfg.courseTitle != "" {
		where[metaCourseTitle] = cfg.courseTitle
	}
	if cfg.hasLesson {
		where[metaLessonNumber] = strconv.Itoa(cfg.lessonNumber)
	}
	if len(where) == 0 {
		where = nil
	}

	hits, err := s.content.Query(ctx, query, limit, where, nil)
	if err != nil {
		return nil, s.classify("searching content", err)
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		lesson, err := strconv.Atoi(hit.Metadata[metaLessonNumber])
		if err != nil {
			s.logger.Warn("chunk with invalid lesson metadata", "id", hit.ID, "error", err)
			continue
		}
		results = append(results, Result{
			Text:         hit.Content,
			CourseTitle:  hit.Metadata[metaCourseTitle],
			LessonNumber: lesson,
			Similarity:   hit.Similarity,
		})
	}
	return results, nil
}

// ResolveCourseTitle translates a user-typed, possibly imprecise course
// name into the canonical stored title via semantic lookup against the
// catalog. Returns ErrCourseNotFound when no stored course is close
// enough (similarity below the configured threshold).
func (s *Store) ResolveCourseTitle(ctx context.Context, name string) (string, error) {
	if s.catalog.Count() == 0 {
		return "", fmt.Errorf("%w: %q (catalog is empty)", ErrCourseNotFound, name)
	}

	hits, err := s.catalog.Query(ctx, name, 1, nil, nil)
	if err != nil {
		return "", s.classify("resolving course name", err)
	}
	if len(hits) == 0 || hits[0].Similarity < s.minSimilarity {
		return "", fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}

	return hits[0].ID, nil
}

// CourseOutline returns the stored course metadata (title, link,
// instructor, and lesson list) for an exact title.
func (s *Store) CourseOutline(ctx context.Context, title string) (*course.Course, error) {
	doc, err := s.catalog.GetByID(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrCourseNotFound, title)
	}

	crs := &course.Course{
		Title:      doc.ID,
		Link:       doc.Metadata[metaCourseLink],
		Instructor: doc.Metadata[metaInstructor],
	}
	if raw := doc.Metadata[metaLessons]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &crs.Lessons); err != nil {
			return nil, fmt.Errorf("parsing lesson list for %q: %w", title, err)
		}
	}
	sort.Slice(crs.Lessons, func(i, j int) bool {
		return crs.Lessons[i].Number < crs.Lessons[j].Number
	})

	return crs, nil
}

// LessonLink returns the stored link for a lesson, or empty when the
// course or lesson has none.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	crs, err := s.CourseOutline(ctx, courseTitle)
	if err != nil {
		return ""
	}
	for _, l := range crs.Lessons {
		if l.Number == lessonNumber {
			return l.Link
		}
	}
	return ""
}

// CourseCount returns the number of courses in the catalog.
func (s *Store) CourseCount(ctx context.Context) int {
	return s.catalog.Count()
}

// CourseTitles returns all stored course titles in lexical order.
//
// chromem-go exposes no iteration API, so this ranks the whole catalog
// against a fixed probe query and keeps only the IDs.
func (s *Store) CourseTitles(ctx context.Context) ([]string, error) {
	count := s.catalog.Count()
	if count == 0 {
		return nil, nil
	}

	hits, err := s.catalog.Query(ctx, "course", count, nil, nil)
	if err != nil {
		return nil, s.classify("listing courses", err)
	}

	titles := make([]string, 0, len(hits))
	for _, hit := range hits {
		titles = append(titles, hit.ID)
	}
	sort.Strings(titles)
	return titles, nil
}

// classify wraps database errors with the store error taxonomy. Embedding
// failures keep their ErrEmbeddingUnavailable identity; everything else
// becomes ErrStoreUnavailable.
func (s *Store) classify(op string, err error) error {
	if errors.Is(err, ErrEmbeddingUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnavailable, err)
}
