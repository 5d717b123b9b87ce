// Package intent resolves an utterance to a command tag.
//
// Resolution runs the deterministic keyword lookup first and consults the
// statistical classifier only when it misses. Whatever produced the answer,
// it is accepted only if its confidence is strictly above the acceptance
// threshold; an unresolved utterance is left to the generative fallback.
package intent

import (
	"context"
	"math"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/vaani/internal/nlu"
	"github.com/MrWong99/vaani/internal/observe"
	"github.com/MrWong99/vaani/pkg/provider/classify"
)

const (
	// DefaultThreshold is the acceptance threshold. A confidence equal to
	// it is rejected.
	DefaultThreshold = 0.65

	// DefaultFuzzyDistance is the largest edit distance the fuzzy keyword
	// pass accepts.
	DefaultFuzzyDistance = 1
)

// Source identifies what produced a [Match].
type Source int

const (
	// SourceNone means nothing produced a candidate.
	SourceNone Source = iota

	// SourceDeterministic means the keyword map matched.
	SourceDeterministic

	// SourceStatistical means the classifier produced the candidate.
	SourceStatistical
)

// String returns the source name used in logs and metrics.
func (s Source) String() string {
	switch s {
	case SourceDeterministic:
		return "deterministic"
	case SourceStatistical:
		return "statistical"
	default:
		return "none"
	}
}

// Match is the resolver's candidate for one utterance.
type Match struct {
	// Tag is the intent tag, or "" when no candidate was found.
	Tag string

	// Confidence is in [0, 1]. Deterministic matches carry 1.
	Confidence float64

	// Source is what produced the candidate.
	Source Source

	// Keyword is the keyword that matched, for deterministic matches.
	Keyword string
}

// Option configures a [Resolver].
type Option func(*Resolver)

// WithThreshold sets the acceptance threshold.
func WithThreshold(t float64) Option {
	return func(r *Resolver) { r.SetThreshold(t) }
}

// WithFuzzyDistance sets the fuzzy pass tolerance. A negative value disables
// the fuzzy pass.
func WithFuzzyDistance(d int) Option {
	return func(r *Resolver) { r.SetFuzzyDistance(d) }
}

// Resolver arbitrates between the keyword map and the classifier. It is safe
// for concurrent use; the tunables may be changed while it runs.
type Resolver struct {
	keywords   *nlu.KeywordMap
	classifier classify.Classifier

	threshold atomic.Uint64 // float64 bits
	fuzzy     atomic.Int64
}

// New creates a Resolver. keywords may be nil for statistical-only
// resolution; classifier may be nil for deterministic-only resolution.
func New(keywords *nlu.KeywordMap, classifier classify.Classifier, opts ...Option) *Resolver {
	if keywords == nil {
		keywords = nlu.NewKeywordMap(nlu.Corpus{})
	}
	r := &Resolver{keywords: keywords, classifier: classifier}
	r.SetThreshold(DefaultThreshold)
	r.SetFuzzyDistance(DefaultFuzzyDistance)
	for _, o := range opts {
		o(r)
	}
	return r
}

// SetThreshold changes the acceptance threshold.
func (r *Resolver) SetThreshold(t float64) { r.threshold.Store(math.Float64bits(t)) }

// Threshold returns the acceptance threshold.
func (r *Resolver) Threshold() float64 { return math.Float64frombits(r.threshold.Load()) }

// SetFuzzyDistance changes the fuzzy pass tolerance.
func (r *Resolver) SetFuzzyDistance(d int) { r.fuzzy.Store(int64(d)) }

// Accepts reports whether confidence clears the acceptance threshold.
func (r *Resolver) Accepts(confidence float64) bool {
	return confidence > r.Threshold()
}

// Resolve returns the best candidate for text and whether it was accepted.
// The candidate is returned even when rejected so callers can log it.
//
// Classifier failures are logged and treated as no candidate.
func (r *Resolver) Resolve(ctx context.Context, text string) (Match, bool) {
	ctx, span := observe.StartSpan(ctx, "intent.resolve")
	defer span.End()

	m := r.candidate(ctx, text)
	ok := m.Tag != "" && r.Accepts(m.Confidence)

	span.SetAttributes(
		attribute.String("intent.tag", m.Tag),
		attribute.String("intent.source", m.Source.String()),
		attribute.Float64("intent.confidence", m.Confidence),
		attribute.Bool("intent.resolved", ok),
	)
	observe.Logger(ctx).Debug("intent resolved",
		"text", text, "tag", m.Tag, "source", m.Source.String(),
		"confidence", m.Confidence, "accepted", ok)
	return m, ok
}

func (r *Resolver) candidate(ctx context.Context, text string) Match {
	tokens := nlu.FilterNoise(nlu.Tokens(text))
	if hit, ok := r.keywords.Match(tokens, int(r.fuzzy.Load())); ok {
		return Match{Tag: hit.Tag, Confidence: 1, Source: SourceDeterministic, Keyword: hit.Keyword}
	}

	if r.classifier == nil {
		return Match{Source: SourceNone}
	}
	label, p, err := r.classifier.Classify(ctx, text)
	if err != nil {
		observe.Logger(ctx).Warn("classifier failed, treating utterance as unresolved", "err", err)
		return Match{Source: SourceNone}
	}
	return Match{Tag: label, Confidence: clamp(p), Source: SourceStatistical}
}

// clamp maps NaN to 0 and limits p to [0, 1].
func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
