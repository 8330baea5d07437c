package pipeline

import "log/slog"

// Outcome is the terminal state of one feed entry in a run.
type Outcome int

const (
	Skipped Outcome = iota
	PublishedWithImage
	PublishedTextOnly
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case PublishedWithImage:
		return "published_with_image"
	case PublishedTextOnly:
		return "published_text_only"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

func (o Outcome) attemptedSend() bool {
	return o == PublishedWithImage || o == PublishedTextOnly
}

type Stats struct {
	Fetched            int
	Skipped            int
	PublishedWithImage int
	PublishedTextOnly  int
	Failed             int
	FailedSources      int
}

func (s Stats) Published() int {
	return s.PublishedWithImage + s.PublishedTextOnly
}

func (s *Stats) add(o Outcome) {
	switch o {
	case Skipped:
		s.Skipped++
	case PublishedWithImage:
		s.PublishedWithImage++
	case PublishedTextOnly:
		s.PublishedTextOnly++
	case Failed:
		s.Failed++
	}
}

func (s Stats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("fetched", s.Fetched),
		slog.Int("skipped", s.Skipped),
		slog.Int("published_with_image", s.PublishedWithImage),
		slog.Int("published_text_only", s.PublishedTextOnly),
		slog.Int("failed", s.Failed),
		slog.Int("failed_sources", s.FailedSources),
	)
}
