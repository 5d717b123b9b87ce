// Package knowledge answers general-knowledge questions from flat topic
// tables.
//
// Each topic is a JSON object mapping a key phrase to its answer, stored as
// <dir>/<topic>.json. A query is matched against one topic in three passes:
// exact key, then substring in either direction, then the closest key by
// Jaro-Winkler similarity.
package knowledge

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
	"github.com/spf13/afero"

	"github.com/MrWong99/vaani/internal/nlu"
)

// MinSimilarity is the lowest Jaro-Winkler score accepted by the last pass.
const MinSimilarity = 0.85

// Topic names one knowledge table.
type Topic string

// Topics.
const (
	History       Topic = "history"
	IndianHistory Topic = "indian_history"
	Politics      Topic = "politics"
	WorldGK       Topic = "world_gk"
	IndiaGK       Topic = "india_gk"
)

// Topics lists every topic.
var Topics = []Topic{History, IndianHistory, Politics, WorldGK, IndiaGK}

// IsValid reports whether t is a known topic.
func (t Topic) IsValid() bool { return slices.Contains(Topics, t) }

// table is one topic: normalised keys in sorted order and their answers.
type table struct {
	keys    []string
	answers map[string]string
}

func newTable(entries map[string]string) table {
	t := table{answers: make(map[string]string, len(entries))}
	for k, v := range entries {
		nk := nlu.Normalize(k)
		if nk == "" || v == "" {
			continue
		}
		t.answers[nk] = v
	}
	t.keys = make([]string, 0, len(t.answers))
	for k := range t.answers {
		t.keys = append(t.keys, k)
	}
	slices.Sort(t.keys)
	return t
}

// Base holds all topic tables. It is read-only after construction and safe
// for concurrent use.
type Base struct {
	tables map[Topic]table
}

// New builds a Base from in-memory tables.
func New(tables map[Topic]map[string]string) *Base {
	b := &Base{tables: make(map[Topic]table, len(tables))}
	for topic, entries := range tables {
		b.tables[topic] = newTable(entries)
	}
	return b
}

// Load reads every topic from dir. A missing or malformed table is logged
// and left empty.
func Load(fs afero.Fs, dir string) *Base {
	tables := make(map[Topic]map[string]string, len(Topics))
	for _, topic := range Topics {
		entries, err := loadTable(fs, path.Join(dir, string(topic)+".json"))
		if err != nil {
			slog.Warn("knowledge table unavailable", "topic", topic, "err", err)
			continue
		}
		tables[topic] = entries
	}
	b := New(tables)
	slog.Info("knowledge base loaded", "dir", dir, "entries", b.Len())
	return b
}

func loadTable(fs afero.Fs, name string) (map[string]string, error) {
	data, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %q: %w", name, err)
	}
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("knowledge: parse %q: %w", name, err)
	}
	return entries, nil
}

// Len returns the total number of entries across topics.
func (b *Base) Len() int {
	n := 0
	for _, t := range b.tables {
		n += len(t.keys)
	}
	return n
}

// Lookup returns the answer for query within topic.
func (b *Base) Lookup(topic Topic, query string) (string, bool) {
	t, ok := b.tables[topic]
	if !ok {
		return "", false
	}
	q := nlu.Normalize(query)
	if q == "" {
		return "", false
	}

	if a, ok := t.answers[q]; ok {
		return a, true
	}
	for _, k := range t.keys {
		if strings.Contains(k, q) || strings.Contains(q, k) {
			return t.answers[k], true
		}
	}

	best, bestScore := "", MinSimilarity
	for _, k := range t.keys {
		if s := matchr.JaroWinkler(q, k, false); s >= bestScore && (best == "" || s > bestScore) {
			best, bestScore = k, s
		}
	}
	if best == "" {
		return "", false
	}
	return t.answers[best], true
}

// Result is one answer found by [Base.Search].
type Result struct {
	Topic  Topic
	Answer string
}

// Search looks query up in every topic, in [Topics] order.
func (b *Base) Search(query string) []Result {
	var out []Result
	for _, topic := range Topics {
		if a, ok := b.Lookup(topic, query); ok {
			out = append(out, Result{Topic: topic, Answer: a})
		}
	}
	return out
}
