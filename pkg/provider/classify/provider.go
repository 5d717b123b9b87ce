// Package classify defines the Classifier interface for statistical intent
// classifiers.
//
// A classifier maps free-form utterance text to one intent label and the
// probability the model assigns to it. Classifiers are trained offline; this
// package only consumes them.
package classify

import (
	"context"
	"errors"
)

// ErrUnavailable is returned when a classifier model cannot be loaded.
var ErrUnavailable = errors.New("classify: model unavailable")

// Classifier predicts an intent label for text.
//
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Classify returns the most probable label and its probability in [0, 1].
	// An empty label with a non-zero confidence means the model's best guess
	// fell below its own reporting floor.
	Classify(ctx context.Context, text string) (label string, confidence float64, err error)
}
