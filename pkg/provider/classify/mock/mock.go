// Package mock provides a test double for [classify.Classifier].
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/vaani/pkg/provider/classify"
)

// Classifier is a mock implementation of [classify.Classifier].
type Classifier struct {
	mu sync.Mutex

	// Label and Confidence are returned by Classify unless ByText has an entry
	// for the input.
	Label      string
	Confidence float64

	// ByText maps exact input text to a scripted result.
	ByText map[string]Result

	// Err, if non-nil, is returned by every Classify call.
	Err error

	// Calls records the text of every Classify call.
	Calls []string
}

// Result is a scripted classification.
type Result struct {
	Label      string
	Confidence float64
}

// Classify records the call and returns the scripted result.
func (c *Classifier) Classify(_ context.Context, text string) (string, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, text)
	if c.Err != nil {
		return "", 0, c.Err
	}
	if r, ok := c.ByText[text]; ok {
		return r.Label, r.Confidence, nil
	}
	return c.Label, c.Confidence, nil
}

// CallCount returns the number of Classify calls. Thread-safe.
func (c *Classifier) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Calls)
}

var _ classify.Classifier = (*Classifier)(nil)
