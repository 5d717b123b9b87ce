// Package nlu prepares recognised speech for intent lookup.
//
// Text flows through [Normalize] and [Tokenize] (or [Tokens] for both), then
// [FilterNoise] drops function words. The surviving tokens are looked up in a
// [KeywordMap] built once from the training corpus.
//
// A "unit" throughout this package is a Unicode code point of the
// NFC-normalised token. Length filtering and [EditDistance] both count units,
// so a Devanagari matra or nukta is a unit of its own.
package nlu

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MinTokenUnits is the shortest token that survives [FilterNoise].
const MinTokenUnits = 2

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

var punctuationStripper = strings.NewReplacer(punctuationPairs()...)

func punctuationPairs() []string {
	pairs := make([]string, 0, 2*len(asciiPunctuation))
	for _, c := range asciiPunctuation {
		pairs = append(pairs, string(c), "")
	}
	return pairs
}

// Normalize lowercases text, strips ASCII punctuation, brings it to NFC and
// trims surrounding whitespace. Normalize is idempotent.
func Normalize(text string) string {
	text = punctuationStripper.Replace(text)
	text = cases.Lower(language.Und).String(text)
	text = norm.NFC.String(text)
	return strings.TrimSpace(text)
}

// Tokenize splits text on runs of whitespace. Empty input yields an empty,
// non-nil slice.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Tokens is Tokenize(Normalize(text)).
func Tokens(text string) []string {
	return Tokenize(Normalize(text))
}

// Units returns the number of code points in s.
func Units(s string) int {
	return utf8.RuneCountInString(s)
}

// EditDistance returns the Levenshtein distance between a and b counted in
// code points. It keeps a single row sized by the shorter input.
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) < len(rb) {
		ra, rb = rb, ra
	}
	if len(rb) == 0 {
		return len(ra)
	}

	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i, ca := range ra {
		diag := row[0]
		row[0] = i + 1
		for j, cb := range rb {
			above := row[j+1]
			cost := 1
			if ca == cb {
				cost = 0
			}
			row[j+1] = min(above+1, row[j]+1, diag+cost)
			diag = above
		}
	}
	return row[len(rb)]
}
