package course

import (
	"strings"
	"testing"
)

func TestNewChunker(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr bool
	}{
		{name: "valid defaults", size: 800, overlap: 100},
		{name: "zero overlap", size: 100, overlap: 0},
		{name: "zero size", size: 0, overlap: 0, wantErr: true},
		{name: "overlap equals size", size: 100, overlap: 100, wantErr: true},
		{name: "overlap exceeds size", size: 100, overlap: 150, wantErr: true},
		{name: "negative overlap", size: 100, overlap: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewChunker(%d, %d) error = %v, wantErr %v",
					tt.size, tt.overlap, err, tt.wantErr)
			}
		})
	}
}

// rejoin reconstructs the original text by discarding the first overlap
// characters of every chunk after the first.
func rejoin(chunks []string, overlap int) string {
	var b strings.Builder
	for i, ch := range chunks {
		runes := []rune(ch)
		if i == 0 {
			b.WriteString(ch)
			continue
		}
		b.WriteString(string(runes[overlap:]))
	}
	return b.String()
}

func TestSplitReconstruction(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		text    string
	}{
		{
			name:    "unbroken run",
			size:    800,
			overlap: 100,
			text:    strings.Repeat("a", 1000),
		},
		{
			name:    "sentences",
			size:    120,
			overlap: 20,
			text: strings.Repeat(
				"Neural networks learn representations. Gradient descent updates weights. ", 12),
		},
		{
			name:    "words without sentence ends",
			size:    64,
			overlap: 16,
			text:    strings.Repeat("retrieval augmented generation ", 20),
		},
		{
			name:    "multibyte runes",
			size:    50,
			overlap: 10,
			text:    strings.Repeat("機械学習は楽しい。", 40),
		},
		{
			name:    "exactly chunk size",
			size:    100,
			overlap: 10,
			text:    strings.Repeat("b", 100),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunker, err := NewChunker(tt.size, tt.overlap)
			if err != nil {
				t.Fatalf("NewChunker: %v", err)
			}

			chunks := chunker.Split(tt.text)
			if got := rejoin(chunks, tt.overlap); got != tt.text {
				t.Errorf("rejoined text does not match original:\ngot  %d chars\nwant %d chars",
					len(got), len(tt.text))
			}

			for i, ch := range chunks {
				if n := len([]rune(ch)); n > tt.size {
					t.Errorf("chunk %d has %d chars, exceeds size %d", i, n, tt.size)
				}
			}
		})
	}
}

func TestSplitShortText(t *testing.T) {
	chunker, err := NewChunker(800, 100)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := chunker.Split("a lesson shorter than the chunk size")
	if len(chunks) != 1 {
		t.Fatalf("short text should produce exactly one chunk, got %d", len(chunks))
	}
	if chunks[0] != "a lesson shorter than the chunk size" {
		t.Errorf("single chunk altered: %q", chunks[0])
	}

	if got := chunker.Split(""); got != nil {
		t.Errorf("empty text should produce no chunks, got %v", got)
	}
}

func TestSplitOverlapPositions(t *testing.T) {
	// 1000 chars with size 800 and overlap 100: two chunks, the second
	// starting at character 700 of the original body.
	body := strings.Repeat("a", 1000)
	chunker, err := NewChunker(800, 100)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := chunker.Split(body)
	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if len(chunks[0]) != 800 {
		t.Errorf("first chunk length = %d, want 800", len(chunks[0]))
	}
	if len(chunks[1]) != 300 {
		t.Errorf("second chunk length = %d, want 300 (starts at char 700)", len(chunks[1]))
	}
}

func TestSplitPrefersSentenceBoundary(t *testing.T) {
	first := strings.Repeat("w", 60) + ". "
	text := first + strings.Repeat("x", 80)
	chunker, err := NewChunker(100, 10)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := chunker.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	if !strings.HasSuffix(strings.TrimRight(chunks[0], " "), ".") {
		t.Errorf("first chunk should end at the sentence boundary, got %q", chunks[0])
	}
}

func TestChunkCourse(t *testing.T) {
	crs := &Course{
		Title: "Intro to X",
		Lessons: []Lesson{
			{Number: 0, Title: "Welcome", Body: strings.Repeat("a", 1000)},
			{Number: 2, Title: "Basics", Body: "short body"},
		},
	}

	chunker, err := NewChunker(800, 100)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}

	chunks := chunker.ChunkCourse(crs)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	for i, want := range []struct {
		lesson, index int
	}{{0, 0}, {0, 1}, {2, 0}} {
		if chunks[i].CourseTitle != "Intro to X" {
			t.Errorf("chunk %d course = %q", i, chunks[i].CourseTitle)
		}
		if chunks[i].LessonNumber != want.lesson || chunks[i].Index != want.index {
			t.Errorf("chunk %d = lesson %d index %d, want lesson %d index %d",
				i, chunks[i].LessonNumber, chunks[i].Index, want.lesson, want.index)
		}
	}
}
