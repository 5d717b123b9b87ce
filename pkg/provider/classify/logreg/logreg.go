// Package logreg implements [classify.Classifier] with an exported TF-IDF +
// logistic-regression model.
//
// The model is trained offline and exported as JSON:
//
//	{
//	  "vocabulary":   {"term": 0, ...},
//	  "idf":          [1.69, ...],
//	  "classes":      ["day", "time", ...],
//	  "coefficients": [[...], ...],
//	  "intercepts":   [...]
//	}
//
// Feature extraction follows the default scikit-learn TfidfVectorizer:
// lower-cased text, tokens are runs of two or more letters, digits or
// underscores, raw term counts scaled by idf and L2-normalised. Probabilities
// use the softmax over class scores, or the logistic function when the
// model has a single coefficient row (binary classification).
package logreg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/spf13/afero"

	"github.com/MrWong99/vaani/pkg/provider/classify"
)

// DefaultFloor is the probability below which Classify reports no label.
const DefaultFloor = 0.3

// modelFile is the JSON export layout.
type modelFile struct {
	Vocabulary   map[string]int `json:"vocabulary"`
	IDF          []float64      `json:"idf"`
	Classes      []string       `json:"classes"`
	Coefficients [][]float64    `json:"coefficients"`
	Intercepts   []float64      `json:"intercepts"`
}

// Option configures a [Model].
type Option func(*Model)

// WithFloor sets the reporting floor. Predictions whose probability is below
// floor are returned with an empty label. Default: 0.3.
func WithFloor(floor float64) Option {
	return func(m *Model) { m.floor = floor }
}

// Model is a loaded classifier. It is immutable and safe for concurrent use.
type Model struct {
	vocab     map[string]int
	idf       []float64
	classes   []string
	coef      [][]float64
	intercept []float64
	floor     float64
}

var _ classify.Classifier = (*Model)(nil)

// Load reads and validates the model JSON at path on fs. Any failure wraps
// [classify.ErrUnavailable].
func Load(fs afero.Fs, path string, opts ...Option) (*Model, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("logreg: read %q: %w: %w", path, classify.ErrUnavailable, err)
	}
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("logreg: decode %q: %w: %w", path, classify.ErrUnavailable, err)
	}
	m, err := New(f.Vocabulary, f.IDF, f.Classes, f.Coefficients, f.Intercepts, opts...)
	if err != nil {
		return nil, fmt.Errorf("logreg: %q: %w: %w", path, classify.ErrUnavailable, err)
	}
	return m, nil
}

// New builds a model from its parameters, validating their shapes.
func New(vocab map[string]int, idf []float64, classes []string, coef [][]float64, intercept []float64, opts ...Option) (*Model, error) {
	var errs []error
	if len(classes) < 2 {
		errs = append(errs, fmt.Errorf("need at least 2 classes, got %d", len(classes)))
	}
	wantRows := len(classes)
	if len(classes) == 2 {
		wantRows = 1
	}
	if len(coef) != wantRows && len(coef) != len(classes) {
		errs = append(errs, fmt.Errorf("coefficients: %d rows for %d classes", len(coef), len(classes)))
	}
	if len(intercept) != len(coef) {
		errs = append(errs, fmt.Errorf("intercepts: %d values for %d coefficient rows", len(intercept), len(coef)))
	}
	for i, row := range coef {
		if len(row) != len(idf) {
			errs = append(errs, fmt.Errorf("coefficients row %d: %d features, idf has %d", i, len(row), len(idf)))
		}
	}
	for term, idx := range vocab {
		if idx < 0 || idx >= len(idf) {
			errs = append(errs, fmt.Errorf("vocabulary %q: index %d out of range", term, idx))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	m := &Model{
		vocab:     vocab,
		idf:       idf,
		classes:   classes,
		coef:      coef,
		intercept: intercept,
		floor:     DefaultFloor,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Classes returns the label set in model order.
func (m *Model) Classes() []string {
	return append([]string(nil), m.classes...)
}

// Classify returns the argmax label and its probability. Ties go to the
// earlier class.
func (m *Model) Classify(ctx context.Context, text string) (string, float64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	probs := m.Probabilities(text)
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	p := probs[best]
	if p < m.floor {
		return "", p, nil
	}
	return m.classes[best], p, nil
}

// Probabilities returns the per-class probabilities for text in model order.
func (m *Model) Probabilities(text string) []float64 {
	x := m.features(text)

	scores := make([]float64, len(m.coef))
	for r, row := range m.coef {
		s := m.intercept[r]
		for idx, v := range x {
			s += row[idx] * v
		}
		scores[r] = s
	}

	if len(m.coef) == 1 {
		p1 := 1 / (1 + math.Exp(-scores[0]))
		return []float64{1 - p1, p1}
	}
	return softmax(scores)
}

// features returns the sparse L2-normalised tf-idf vector of text.
func (m *Model) features(text string) map[int]float64 {
	x := make(map[int]float64)
	for _, tok := range analyze(text) {
		if idx, ok := m.vocab[tok]; ok {
			x[idx]++
		}
	}
	var norm float64
	for idx, tf := range x {
		v := tf * m.idf[idx]
		x[idx] = v
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range x {
			x[idx] /= norm
		}
	}
	return x
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = max(maxScore, s)
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// analyze lower-cases text and returns every run of two or more word runes.
// Combining marks end a run, so Devanagari words split at vowel signs exactly
// as they do in the exporter's tokenizer.
func analyze(text string) []string {
	var (
		tokens []string
		run    []rune
	)
	flush := func() {
		if len(run) >= 2 {
			tokens = append(tokens, string(run))
		}
		run = run[:0]
	}
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
