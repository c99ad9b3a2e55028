package store

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	courseTitle  string
	lessonNumber int
	hasLesson    bool
	limit        int
}

// WithCourse restricts results to the given exact course title. The title
// must already be resolved; use ResolveCourseTitle for fuzzy names.
func WithCourse(title string) SearchOption {
	return func(c *searchConfig) {
		c.courseTitle = title
	}
}

// WithLesson restricts results to the given lesson number.
func WithLesson(number int) SearchOption {
	return func(c *searchConfig) {
		c.lessonNumber = number
		c.hasLesson = true
	}
}

// WithLimit sets the maximum number of results. Non-positive values fall
// back to the store's configured default.
func WithLimit(k int) SearchOption {
	return func(c *searchConfig) {
		c.limit = k
	}
}

func buildSearchConfig(defaultLimit int, opts []SearchOption) *searchConfig {
	cfg := &searchConfig{limit: defaultLimit}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.limit <= 0 {
		cfg.limit = defaultLimit
	}
	return cfg
}
