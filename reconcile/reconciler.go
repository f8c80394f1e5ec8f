package reconcile

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/vocalia/anamnesis/core"
)

const (
	// DefaultOverlapThreshold is the minimum overlap fraction required to
	// attribute a transcript interval to a speaker. Below it the utterance
	// is marked UNKNOWN and flagged for manual review.
	DefaultOverlapThreshold = 0.5

	// DefaultAdjacencyEpsilon is the gap (seconds) under which two
	// transcript intervals of the same speaker count as adjacent turns.
	// Adjacent turns are deliberately not merged.
	DefaultAdjacencyEpsilon = 0.3
)

// Config holds the tunable parameters of the reconciler.
// It is immutable once the reconciler is constructed.
type Config struct {
	OverlapThreshold float64
	AdjacencyEpsilon float64
}

// DefaultConfig returns the default reconciler configuration.
func DefaultConfig() Config {
	return Config{
		OverlapThreshold: DefaultOverlapThreshold,
		AdjacencyEpsilon: DefaultAdjacencyEpsilon,
	}
}

// Reconciler aligns transcript intervals with diarization intervals.
type Reconciler struct {
	config Config
	logger *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler) error

// WithConfig sets a custom configuration.
func WithConfig(config Config) Option {
	return func(r *Reconciler) error {
		if config.OverlapThreshold < 0 || config.OverlapThreshold > 1 {
			return fmt.Errorf("overlap threshold must be in [0,1]: %g", config.OverlapThreshold)
		}
		if config.AdjacencyEpsilon < 0 {
			return fmt.Errorf("adjacency epsilon must be non-negative: %g", config.AdjacencyEpsilon)
		}
		r.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// NewReconciler creates a new reconciler.
func NewReconciler(opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Reconcile merges a diarization interval list and a transcript interval list
// for one interview into an ordered list of speaker-attributed utterances.
//
// Each transcript interval yields exactly one utterance, assigned to the
// diarization interval with the maximal overlap fraction. Ties break on the
// earlier diarization start time, then on the larger raw overlap duration.
// When the best overlap fraction is below the configured threshold, the
// utterance gets SpeakerRoleUnknown and is flagged for review instead of
// guessing.
//
// Returns ErrAlignment (wrapping the specific cause) when either input list
// is empty or any interval has end <= start. Reconciliation is all-or-nothing
// per interview.
func (r *Reconciler) Reconcile(
	interviewId string,
	diarization []core.DiarizationInterval,
	transcript []core.TranscriptInterval,
	roles core.RoleMapping,
) ([]*core.Utterance, error) {
	if interviewId == "" {
		return nil, fmt.Errorf("%w: %w", ErrAlignment, ErrEmptyInterviewId)
	}
	if len(diarization) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAlignment, ErrEmptyDiarization)
	}
	if len(transcript) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrAlignment, ErrEmptyTranscript)
	}
	for _, d := range diarization {
		if !core.IsValidTimeRange(d.StartTime, d.EndTime) {
			return nil, fmt.Errorf("%w: %w: diarization [%g, %g]",
				ErrAlignment, ErrInvalidInterval, d.StartTime, d.EndTime)
		}
	}
	for _, t := range transcript {
		if !core.IsValidTimeRange(t.StartTime, t.EndTime) {
			return nil, fmt.Errorf("%w: %w: transcript [%g, %g]",
				ErrAlignment, ErrInvalidInterval, t.StartTime, t.EndTime)
		}
	}

	// Work on sorted copies; callers keep their ordering.
	diar := slices.Clone(diarization)
	slices.SortStableFunc(diar, func(a, b core.DiarizationInterval) int {
		if a.StartTime != b.StartTime {
			if a.StartTime < b.StartTime {
				return -1
			}
			return 1
		}
		if a.EndTime != b.EndTime {
			if a.EndTime < b.EndTime {
				return -1
			}
			return 1
		}
		return 0
	})
	trans := slices.Clone(transcript)
	slices.SortStableFunc(trans, func(a, b core.TranscriptInterval) int {
		if a.StartTime != b.StartTime {
			if a.StartTime < b.StartTime {
				return -1
			}
			return 1
		}
		return 0
	})

	utterances := make([]*core.Utterance, 0, len(trans))
	for _, t := range trans {
		best, fraction := bestOverlap(t, diar)
		u := &core.Utterance{
			InterviewId: interviewId,
			StartTime:   t.StartTime,
			EndTime:     t.EndTime,
			Text:        t.Text,
			Confidence:  -1,
			Mode:        core.IngestOffline,
		}

		switch {
		case fraction < r.config.OverlapThreshold:
			u.Speaker = core.SpeakerRoleUnknown
			u.Ext.NeedsReview = true
			u.Ext.ReviewReason = fmt.Sprintf("speaker overlap %.2f below threshold %.2f",
				fraction, r.config.OverlapThreshold)
			r.logger.Debug("low overlap, marking unknown",
				"interview", interviewId, "start", t.StartTime, "overlap", fraction)
		default:
			role, ok := roles[best.SpeakerLabel]
			if !ok {
				u.Speaker = core.SpeakerRoleUnknown
				u.Ext.NeedsReview = true
				u.Ext.ReviewReason = fmt.Sprintf("unmapped speaker label %q", best.SpeakerLabel)
				r.logger.Warn("speaker label missing from role mapping",
					"interview", interviewId, "label", best.SpeakerLabel)
			} else {
				u.Speaker = role
			}
		}

		utterances = append(utterances, u)
	}

	return utterances, nil
}

// bestOverlap returns the diarization interval with the maximal overlap
// fraction against t, and that fraction. Ties break on earlier start time,
// then on larger raw overlap duration. The diarization slice must be sorted
// by start time so the earlier-start tie-break falls out of iteration order.
func bestOverlap(t core.TranscriptInterval, diar []core.DiarizationInterval) (core.DiarizationInterval, float64) {
	var (
		best         core.DiarizationInterval
		bestFraction float64
		bestRaw      float64
		found        bool
	)

	duration := t.EndTime - t.StartTime
	for _, d := range diar {
		raw := overlapDuration(t.StartTime, t.EndTime, d.StartTime, d.EndTime)
		fraction := raw / duration
		if !found || fraction > bestFraction ||
			(fraction == bestFraction && raw > bestRaw) {
			best = d
			bestFraction = fraction
			bestRaw = raw
			found = true
		}
	}

	return best, bestFraction
}

// overlapDuration returns the length of the intersection of [aStart,aEnd)
// and [bStart,bEnd), or 0 when they are disjoint.
func overlapDuration(aStart, aEnd, bStart, bEnd float64) float64 {
	lo := aStart
	if bStart > lo {
		lo = bStart
	}
	hi := aEnd
	if bEnd < hi {
		hi = bEnd
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}
