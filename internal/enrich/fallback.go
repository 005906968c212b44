package enrich

import (
	"context"

	"github.com/aigraph/aigraph/internal/logger"
	"github.com/charmbracelet/log"
)

// Fallback wraps a Source so that failures and empty answers yield the
// default lists instead of errors.
type Fallback struct {
	src Source
	log *log.Logger
}

var _ Source = (*Fallback)(nil)

// WithDefaults wraps src. A nil src always answers with the defaults.
func WithDefaults(src Source, l *log.Logger) *Fallback {
	if l == nil {
		l = logger.With("enrich")
	}
	return &Fallback{src: src, log: l}
}

// RelatedTopics never returns an error.
func (f *Fallback) RelatedTopics(ctx context.Context, prompt string, count int) ([]TopicCandidate, error) {
	if f.src != nil {
		cands, err := f.src.RelatedTopics(ctx, prompt, count)
		if err == nil && len(cands) > 0 {
			return cands, nil
		}
		f.log.Warn("topic enrichment fell back to defaults", "err", err, "candidates", len(cands))
	}
	return limit(DefaultTopics(), count), nil
}

// RelatedTools never returns an error.
func (f *Fallback) RelatedTools(ctx context.Context, prompt string, count int) ([]ToolCandidate, error) {
	if f.src != nil {
		cands, err := f.src.RelatedTools(ctx, prompt, count)
		if err == nil && len(cands) > 0 {
			return cands, nil
		}
		f.log.Warn("tool enrichment fell back to defaults", "err", err, "candidates", len(cands))
	}
	return limit(DefaultTools(), count), nil
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
