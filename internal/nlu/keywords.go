package nlu

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/afero"
)

// Corpus is the training data format:
//
//	{"intents": [{"tag": "day", "patterns": ["आज कौन सा दिन है"], "responses": [...]}]}
type Corpus struct {
	Intents []IntentExamples `json:"intents"`
}

// IntentExamples holds the example phrases of one intent tag.
type IntentExamples struct {
	Tag       string   `json:"tag"`
	Patterns  []string `json:"patterns"`
	Responses []string `json:"responses,omitempty"`
}

// ParseCorpus decodes a training corpus.
func ParseCorpus(r io.Reader) (Corpus, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return Corpus{}, fmt.Errorf("nlu: parse corpus: %w", err)
	}
	return c, nil
}

// Hit describes a successful keyword lookup.
type Hit struct {
	Tag     string
	Keyword string
	Token   string

	// Distance is 0 for an exact hit and the edit distance for a fuzzy one.
	Distance int
}

// Fuzzy reports whether the hit came from the fuzzy pass.
func (h Hit) Fuzzy() bool { return h.Distance > 0 }

// KeywordMap maps keywords to intent tags. It is read-only after
// construction and safe for concurrent use.
type KeywordMap struct {
	tags    map[string]string
	keys    []string // lexicographic; fuzzy iteration order
	intents []string
}

// NewKeywordMap builds the map from a corpus. Every pattern is normalised,
// tokenised and noise-filtered; each surviving token is registered to the
// pattern's tag. When two tags share a keyword the later one wins.
func NewKeywordMap(c Corpus) *KeywordMap {
	m := &KeywordMap{tags: make(map[string]string)}
	for _, intent := range c.Intents {
		if intent.Tag == "" {
			continue
		}
		if !slices.Contains(m.intents, intent.Tag) {
			m.intents = append(m.intents, intent.Tag)
		}
		for _, pattern := range intent.Patterns {
			for _, tok := range FilterNoise(Tokens(pattern)) {
				if prev, ok := m.tags[tok]; ok && prev != intent.Tag {
					slog.Debug("keyword collision", "keyword", tok, "old_tag", prev, "new_tag", intent.Tag)
				}
				m.tags[tok] = intent.Tag
			}
		}
	}
	m.keys = make([]string, 0, len(m.tags))
	for k := range m.tags {
		m.keys = append(m.keys, k)
	}
	slices.Sort(m.keys)
	slices.Sort(m.intents)
	return m
}

// LoadKeywordMap reads a corpus from path. A missing or malformed file is
// logged and yields an empty map, so lookups always miss.
func LoadKeywordMap(fs afero.Fs, path string) *KeywordMap {
	f, err := fs.Open(path)
	if err != nil {
		slog.Warn("training data unavailable, keyword lookup disabled", "path", path, "err", err)
		return NewKeywordMap(Corpus{})
	}
	defer f.Close()

	c, err := ParseCorpus(f)
	if err != nil {
		slog.Warn("training data malformed, keyword lookup disabled", "path", path, "err", err)
		return NewKeywordMap(Corpus{})
	}
	m := NewKeywordMap(c)
	slog.Info("keyword map loaded", "path", path, "keywords", m.Len(), "intents", len(c.Intents))
	return m
}

// Len returns the number of keywords.
func (m *KeywordMap) Len() int { return len(m.keys) }

// Keywords returns the keywords in lexicographic order.
func (m *KeywordMap) Keywords() []string { return slices.Clone(m.keys) }

// Tags returns every intent tag of the corpus, sorted, including tags whose
// patterns yielded no keyword.
func (m *KeywordMap) Tags() []string { return slices.Clone(m.intents) }

// Tag returns the tag registered for keyword.
func (m *KeywordMap) Tag(keyword string) (string, bool) {
	tag, ok := m.tags[keyword]
	return tag, ok
}

// Match looks tokens up in two passes. The exact pass returns the tag of
// the first token that is a keyword. Only when it misses does the fuzzy pass
// run: for each token in order, keywords are tried in lexicographic order
// and the first within maxDistance wins. A negative maxDistance disables the
// fuzzy pass.
func (m *KeywordMap) Match(tokens []string, maxDistance int) (Hit, bool) {
	for _, tok := range tokens {
		if tag, ok := m.tags[tok]; ok {
			return Hit{Tag: tag, Keyword: tok, Token: tok}, true
		}
	}
	if maxDistance < 0 {
		return Hit{}, false
	}
	for _, tok := range tokens {
		for _, kw := range m.keys {
			if d := EditDistance(tok, kw); d <= maxDistance {
				return Hit{Tag: m.tags[kw], Keyword: kw, Token: tok, Distance: d}, true
			}
		}
	}
	return Hit{}, false
}
