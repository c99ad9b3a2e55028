// Package tools defines the retrieval tools exposed to the model and the
// registry that executes their requests. Tools return their findings as
// plain text; failures surface as textual results too, so a broken tool
// degrades the answer instead of aborting the request.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/coursechat/coursechat/internal/course"
	"github.com/coursechat/coursechat/internal/store"
)

// Tool names registered with genkit.
const (
	SearchContentName = "search_course_content"
	CourseOutlineName = "get_course_outline"
)

// CourseSearcher is the slice of the store the tools need.
type CourseSearcher interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) ([]store.Result, error)
	ResolveCourseTitle(ctx context.Context, name string) (string, error)
	CourseOutline(ctx context.Context, title string) (*course.Course, error)
	LessonLink(ctx context.Context, courseTitle string, lessonNumber int) string
}

// SearchContentInput is the model-facing schema for search_course_content.
type SearchContentInput struct {
	Query        string `json:"query" jsonschema_description:"What to search for in the course content"`
	CourseName   string `json:"course_name,omitempty" jsonschema_description:"Course title to restrict the search to (partial names work, e.g. 'MCP')"`
	LessonNumber *int   `json:"lesson_number,omitempty" jsonschema_description:"Specific lesson number to search within (e.g. 1, 2, 3)"`
}

// CourseOutlineInput is the model-facing schema for get_course_outline.
type CourseOutlineInput struct {
	CourseName string `json:"course_name" jsonschema_description:"Course title to get the outline for (partial names work)"`
}

// Toolkit holds the dependencies behind both tools.
type Toolkit struct {
	searcher CourseSearcher
	logger   *slog.Logger
}

// NewToolkit creates a Toolkit.
func NewToolkit(searcher CourseSearcher, logger *slog.Logger) (*Toolkit, error) {
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Toolkit{searcher: searcher, logger: logger}, nil
}

// SearchContent answers a search_course_content request. The optional
// course name is resolved semantically first; an unresolvable name is a
// textual result for the model, not an error.
func (k *Toolkit) SearchContent(ctx context.Context, in SearchContentInput) (string, error) {
	var opts []store.SearchOption

	if in.CourseName != "" {
		resolved, err := k.searcher.ResolveCourseTitle(ctx, in.CourseName)
		if err != nil {
			if errors.Is(err, store.ErrCourseNotFound) {
				return fmt.Sprintf("No course found matching '%s'.", in.CourseName), nil
			}
			return "", fmt.Errorf("resolving course name: %w", err)
		}
		opts = append(opts, store.WithCourse(resolved))
	}
	if in.LessonNumber != nil {
		opts = append(opts, store.WithLesson(*in.LessonNumber))
	}

	results, err := k.searcher.Search(ctx, in.Query, opts...)
	if err != nil {
		return "", fmt.Errorf("searching content: %w", err)
	}

	if len(results) == 0 {
		var filter strings.Builder
		if in.CourseName != "" {
			fmt.Fprintf(&filter, " in course '%s'", in.CourseName)
		}
		if in.LessonNumber != nil {
			fmt.Fprintf(&filter, " in lesson %d", *in.LessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filter.String()), nil
	}

	return k.formatResults(ctx, results), nil
}

// formatResults renders hits as context blocks and records their sources.
func (k *Toolkit) formatResults(ctx context.Context, results []store.Result) string {
	rec := RecorderFromContext(ctx)

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		label := fmt.Sprintf("%s - Lesson %d", r.CourseTitle, r.LessonNumber)
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", label, r.Text))

		if rec != nil {
			rec.Record(Source{
				Label: label,
				Link:  k.searcher.LessonLink(ctx, r.CourseTitle, r.LessonNumber),
			})
		}
	}
	return strings.Join(blocks, "\n\n")
}

// GetOutline answers a get_course_outline request with the course title,
// link, and numbered lesson list.
func (k *Toolkit) GetOutline(ctx context.Context, in CourseOutlineInput) (string, error) {
	resolved, err := k.searcher.ResolveCourseTitle(ctx, in.CourseName)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'.", in.CourseName), nil
		}
		return "", fmt.Errorf("resolving course name: %w", err)
	}

	crs, err := k.searcher.CourseOutline(ctx, resolved)
	if err != nil {
		return "", fmt.Errorf("loading outline: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", crs.Title)
	if crs.Link != "" {
		fmt.Fprintf(&sb, "Course Link: %s\n", crs.Link)
	}
	sb.WriteString("\n")

	if len(crs.Lessons) == 0 {
		sb.WriteString("No structured lesson list available.")
	} else {
		fmt.Fprintf(&sb, "Lessons (%d total):\n", len(crs.Lessons))
		for _, l := range crs.Lessons {
			fmt.Fprintf(&sb, "  Lesson %d: %s\n", l.Number, l.Title)
		}
	}

	if rec := RecorderFromContext(ctx); rec != nil {
		rec.Record(Source{Label: crs.Title, Link: crs.Link})
	}

	return strings.TrimRight(sb.String(), "\n"), nil
}

// Register defines both tools with genkit so Generate can advertise them
// to the model.
func (k *Toolkit) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, SearchContentName,
			"Search course materials with smart course name matching and lesson filtering. "+
				"Use this for questions about specific course content or detailed educational materials.",
			func(tctx *ai.ToolContext, in SearchContentInput) (string, error) {
				return k.SearchContent(tctx, in)
			}),
		genkit.DefineTool(g, CourseOutlineName,
			"Get the complete outline of a course including its title, link, and full list of lessons. "+
				"Use this when users ask about course structure, what topics are covered, or lesson lists.",
			func(tctx *ai.ToolContext, in CourseOutlineInput) (string, error) {
				return k.GetOutline(tctx, in)
			}),
	}
}
