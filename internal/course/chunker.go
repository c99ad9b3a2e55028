package course

import (
	"fmt"
	"unicode"
)

// Chunker splits lesson text into chunks of at most Size characters, with
// Overlap characters shared between consecutive chunks. Chunk boundaries
// prefer sentence ends, then whitespace, over mid-word cuts.
//
// The zero value is not useful; use NewChunker.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a Chunker. Overlap must be non-negative and strictly
// smaller than size, otherwise chunking cannot terminate.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, size %d)", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split splits text into overlapping chunks.
//
// Each chunk after the first begins exactly overlap characters before the
// previous chunk's end, so discarding the first overlap characters of every
// chunk after the first reconstructs the input losslessly. Text no longer
// than the chunk size yields a single chunk; empty text yields none.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= c.size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			return chunks
		}

		end = c.breakPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:end]))
		start = end - c.overlap
	}
}

// breakPoint adjusts a tentative chunk end backwards to the nearest
// sentence or whitespace boundary. It never moves the end so far back that
// the next chunk would fail to make progress past the current start.
func (c *Chunker) breakPoint(runes []rune, start, end int) int {
	// The next chunk starts at end-overlap, which must exceed start.
	floor := start + c.overlap + 1
	if half := start + c.size/2; half > floor {
		floor = half
	}

	// Prefer a sentence boundary: punctuation followed by whitespace.
	for i := end - 1; i > floor; i-- {
		if isSentenceEnd(runes[i-1]) && unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	// Fall back to any whitespace so words stay intact.
	for i := end - 1; i > floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}

// ChunkCourse splits every lesson of a course into chunks carrying their
// course title, lesson number, and per-lesson sequential index.
func (c *Chunker) ChunkCourse(crs *Course) []Chunk {
	var chunks []Chunk
	for _, lesson := range crs.Lessons {
		for i, text := range c.Split(lesson.Body) {
			chunks = append(chunks, Chunk{
				Text:         text,
				CourseTitle:  crs.Title,
				LessonNumber: lesson.Number,
				Index:        i,
			})
		}
	}
	return chunks
}
