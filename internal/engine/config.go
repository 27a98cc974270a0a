package engine

// Mode selects what the annotator is asked to produce.
type Mode int

const (
	// ModeAnalyze requests per-statement summaries and persists them to the
	// graph sink.
	ModeAnalyze Mode = iota
	// ModeTransform requests rewritten statement code and reassembles the
	// results into a full-file output.
	ModeTransform
)

func (m Mode) String() string {
	switch m {
	case ModeTransform:
		return "transform"
	default:
		return "analyze"
	}
}

// Config carries the engine's tuning knobs.
type Config struct {
	// TokenLimit caps the estimated token cost of one batch payload.
	TokenLimit int

	// GroupTokenLimit caps the fragment tokens per container fold call.
	GroupTokenLimit int

	// MaxConcurrency bounds in-flight annotator calls across the whole
	// engine, not per file.
	MaxConcurrency int

	// Locale is the language hint passed to the annotator.
	Locale string

	// Mode selects analysis or transformation.
	Mode Mode

	// Force skips the incremental cache and re-annotates every file.
	Force bool
}

// withDefaults fills zero values with working defaults.
func (c Config) withDefaults() Config {
	if c.TokenLimit <= 0 {
		c.TokenLimit = 6000
	}
	if c.GroupTokenLimit <= 0 {
		c.GroupTokenLimit = 2000
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.Locale == "" {
		c.Locale = "en"
	}
	return c
}
