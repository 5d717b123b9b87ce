package listen

import (
	"slices"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/vaani/internal/nlu"
)

// WakeWords is an immutable set of normalised trigger phrases.
type WakeWords struct {
	words []string
	set   map[string]struct{}

	// phonetic maps a Double Metaphone code to the wake word it came from.
	// Only populated when phonetic aliasing is enabled.
	phonetic map[string]string
}

// WakeOption configures [NewWakeWords].
type WakeOption func(*WakeWords)

// WithPhoneticAliases also accepts hypothesis tokens that sound like a
// romanised wake word ("eera" for "ira"). Tokens without a Latin phonetic
// code, such as Devanagari, are only matched literally.
func WithPhoneticAliases() WakeOption {
	return func(w *WakeWords) { w.phonetic = make(map[string]string) }
}

// NewWakeWords normalises words and drops blanks and duplicates.
func NewWakeWords(words []string, opts ...WakeOption) *WakeWords {
	w := &WakeWords{set: make(map[string]struct{}, len(words))}
	for _, o := range opts {
		o(w)
	}
	for _, raw := range words {
		word := nlu.Normalize(raw)
		if word == "" {
			continue
		}
		if _, dup := w.set[word]; dup {
			continue
		}
		w.set[word] = struct{}{}
		w.words = append(w.words, word)
		if w.phonetic != nil && !strings.Contains(word, " ") {
			for _, code := range phoneticCodes(word) {
				if _, taken := w.phonetic[code]; !taken {
					w.phonetic[code] = word
				}
			}
		}
	}
	return w
}

// Words returns the normalised wake words in configuration order.
func (w *WakeWords) Words() []string { return slices.Clone(w.words) }

// Len returns the number of wake words.
func (w *WakeWords) Len() int { return len(w.words) }

// Contains reports whether token is exactly a wake word.
func (w *WakeWords) Contains(token string) bool {
	_, ok := w.set[token]
	return ok
}

// ContainsAny reports whether any token is exactly a wake word.
func (w *WakeWords) ContainsAny(tokens []string) bool {
	return slices.ContainsFunc(tokens, w.Contains)
}

// Find returns the first wake word (in configuration order) that occurs as a
// substring of the normalised hypothesis. With phonetic aliasing enabled a
// token that sounds like a wake word also matches.
func (w *WakeWords) Find(hypothesis string) (string, bool) {
	if hypothesis == "" {
		return "", false
	}
	for _, word := range w.words {
		if strings.Contains(hypothesis, word) {
			return word, true
		}
	}
	if len(w.phonetic) == 0 {
		return "", false
	}
	for _, tok := range nlu.Tokenize(hypothesis) {
		for _, code := range phoneticCodes(tok) {
			if word, ok := w.phonetic[code]; ok {
				return word, true
			}
		}
	}
	return "", false
}

// minPhoneticCode is the shortest Double Metaphone code used for aliasing;
// single-consonant codes collide with too many ordinary words.
const minPhoneticCode = 2

// phoneticCodes returns the usable Double Metaphone codes of s.
func phoneticCodes(s string) []string {
	primary, secondary := matchr.DoubleMetaphone(s)
	var codes []string
	if len(primary) >= minPhoneticCode {
		codes = append(codes, primary)
	}
	if len(secondary) >= minPhoneticCode && secondary != primary {
		codes = append(codes, secondary)
	}
	return codes
}
