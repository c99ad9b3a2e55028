package course

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformedDocument indicates a course document that does not conform
// to the expected format. The whole file is skipped during ingestion,
// never partially ingested.
var ErrMalformedDocument = errors.New("malformed course document")

// Header line prefixes of the course document format.
const (
	titlePrefix      = "Course Title:"
	linkPrefix       = "Course Link:"
	instructorPrefix = "Course Instructor:"
	lessonLinkPrefix = "Lesson Link:"
)

// lessonHeaderRe matches lesson section headers like "Lesson 0: Introduction".
var lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// ParseDocument parses a course document from r.
//
// Format: the first non-blank line must be "Course Title: <t>", optionally
// followed by "Course Link: <url>" and "Course Instructor: <name>" in the
// header block. Lesson sections start with "Lesson <N>: <title>", each
// optionally followed by "Lesson Link: <url>", then free text until the
// next lesson header or EOF.
//
// A missing title line fails with ErrMalformedDocument.
func ParseDocument(r io.Reader) (*Course, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	c := &Course{}

	// Header block: everything before the first lesson header.
	var pending string
	inHeader := true
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if c.Title == "" {
			rest, ok := strings.CutPrefix(trimmed, titlePrefix)
			if !ok {
				return nil, fmt.Errorf("%w: first line must start with %q, got %q",
					ErrMalformedDocument, titlePrefix, trimmed)
			}
			c.Title = strings.TrimSpace(rest)
			if c.Title == "" {
				return nil, fmt.Errorf("%w: empty course title", ErrMalformedDocument)
			}
			continue
		}

		if lessonHeaderRe.MatchString(trimmed) {
			pending = trimmed
			inHeader = false
			break
		}

		switch {
		case strings.HasPrefix(trimmed, linkPrefix):
			c.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, linkPrefix))
		case strings.HasPrefix(trimmed, instructorPrefix):
			c.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, instructorPrefix))
		default:
			// Unknown header lines are tolerated and skipped.
		}
	}

	if c.Title == "" {
		return nil, fmt.Errorf("%w: missing course title", ErrMalformedDocument)
	}
	if inHeader {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading document: %w", err)
		}
		// A course with no lessons is valid (metadata-only document).
		return c, nil
	}

	// Lesson sections.
	var (
		current *Lesson
		body    []string
		seen    = make(map[int]bool)
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		c.Lessons = append(c.Lessons, *current)
		current = nil
		body = body[:0]
	}

	startLesson := func(header string) error {
		m := lessonHeaderRe.FindStringSubmatch(header)
		num, err := strconv.Atoi(m[1])
		if err != nil {
			return fmt.Errorf("%w: lesson number %q: %v", ErrMalformedDocument, m[1], err)
		}
		if seen[num] {
			return fmt.Errorf("%w: duplicate lesson number %d", ErrMalformedDocument, num)
		}
		seen[num] = true
		flush()
		current = &Lesson{Number: num, Title: strings.TrimSpace(m[2])}
		return nil
	}

	if err := startLesson(pending); err != nil {
		return nil, err
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r")
		trimmed := strings.TrimSpace(line)

		if lessonHeaderRe.MatchString(trimmed) {
			if err := startLesson(trimmed); err != nil {
				return nil, err
			}
			continue
		}

		// Leading blank lines before the body are dropped.
		if len(body) == 0 && trimmed == "" {
			continue
		}

		// "Lesson Link:" directly after the header belongs to the lesson.
		if current.Link == "" && len(body) == 0 && strings.HasPrefix(trimmed, lessonLinkPrefix) {
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, lessonLinkPrefix))
			continue
		}

		body = append(body, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	flush()

	return c, nil
}
