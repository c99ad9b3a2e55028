package store

import "errors"

var (
	// ErrEmbeddingUnavailable indicates the embedding capability failed.
	// Callers degrade search to "no results" rather than crashing the
	// request.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrStoreUnavailable indicates the vector database itself failed.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrCourseNotFound indicates fuzzy course-name resolution found no
	// sufficiently close match in the catalog.
	ErrCourseNotFound = errors.New("course not found")
)
