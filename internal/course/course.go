// Package course defines the course-material data model and implements
// document parsing and text chunking for ingestion.
//
// A course document is a plain-text file with a header block (title,
// optional link and instructor) followed by numbered lesson sections.
// Lessons are split into overlapping chunks, the unit of embedding and
// retrieval in the vector store.
package course

// Course represents one ingested course. The title is the unique
// identifier; re-ingesting a course with the same title replaces its
// prior content.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson is a numbered section owned by a Course. Numbers are unique
// within a course but not necessarily contiguous.
type Lesson struct {
	Number int    `json:"lesson_number"`
	Title  string `json:"lesson_title"`
	Link   string `json:"lesson_link,omitempty"`
	Body   string `json:"-"`
}

// Chunk is a bounded slice of lesson text. It references its parent
// course and lesson by identifier rather than owning them; Index is the
// chunk's sequential position within the lesson.
type Chunk struct {
	Text         string
	CourseTitle  string
	LessonNumber int
	Index        int
}
