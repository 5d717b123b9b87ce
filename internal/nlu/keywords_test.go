package nlu_test

import (
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/MrWong99/vaani/internal/nlu"
)

func corpus(pairs ...string) nlu.Corpus {
	var c nlu.Corpus
	for i := 0; i+1 < len(pairs); i += 2 {
		c.Intents = append(c.Intents, nlu.IntentExamples{Tag: pairs[i], Patterns: []string{pairs[i+1]}})
	}
	return c
}

func TestNewKeywordMap(t *testing.T) {
	t.Parallel()

	m := nlu.NewKeywordMap(corpus(
		"day", "आज कौन सा दिन है",
		"time", "समय क्या है?",
		"cpu", "CPU usage batao",
	))
	for kw, want := range map[string]string{"दिन": "day", "समय": "time", "cpu": "cpu", "usage": "cpu"} {
		if got, ok := m.Tag(kw); !ok || got != want {
			t.Errorf("Tag(%q) = %q, %v; want %q", kw, got, ok, want)
		}
	}
	for _, kw := range m.Keywords() {
		if nlu.IsStopword(kw) || nlu.Units(kw) < nlu.MinTokenUnits {
			t.Errorf("keyword %q should have been filtered", kw)
		}
	}
	keys := m.Keywords()
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Fatalf("keywords not sorted: %q", keys)
		}
	}
}

func TestKeywordMap_Tags(t *testing.T) {
	t.Parallel()

	m := nlu.NewKeywordMap(corpus("time", "समय", "day", "दिन", "exit", "है", "time", "वक्त"))
	got := m.Tags()
	want := []string{"day", "exit", "time"}
	if len(got) != len(want) {
		t.Fatalf("Tags() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tags()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewKeywordMap_LastWriteWins(t *testing.T) {
	t.Parallel()
	m := nlu.NewKeywordMap(corpus("first", "shared word", "second", "shared"))
	if got, _ := m.Tag("shared"); got != "second" {
		t.Errorf("Tag(shared) = %q, want second", got)
	}
	if got, _ := m.Tag("word"); got != "first" {
		t.Errorf("Tag(word) = %q, want first", got)
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	m := nlu.NewKeywordMap(corpus(
		"day", "दिन",
		"time", "समय",
		"alpha", "abc",
		"beta", "xyz",
		"gamma", "abd",
	))

	tests := []struct {
		name      string
		text      string
		maxDist   int
		wantTag   string
		wantOK    bool
		wantFuzzy bool
	}{
		{"stopword dropped then exact", "दिन बताओ", 1, "day", true, false},
		{"unknown first token", "असद दिन", 1, "day", true, false},
		{"near miss first token", "कुछश दिन", 1, "day", true, false},
		{"fuzzy only", "दीन", 1, "day", true, true},
		{"fuzzy disabled", "दीन", -1, "", false, false},
		{"exact beats earlier fuzzy candidate", "abx xyz", 1, "beta", true, false},
		{"fuzzy lexicographic tie-break", "abz", 1, "alpha", true, true},
		{"no match", "random noise", 1, "", false, false},
		{"empty", "", 1, "", false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			hit, ok := m.Match(nlu.FilterNoise(nlu.Tokens(tc.text)), tc.maxDist)
			if ok != tc.wantOK || hit.Tag != tc.wantTag {
				t.Fatalf("Match(%q) = %+v, %v; want %q, %v", tc.text, hit, ok, tc.wantTag, tc.wantOK)
			}
			if ok && hit.Fuzzy() != tc.wantFuzzy {
				t.Errorf("Fuzzy = %v, want %v (hit %+v)", hit.Fuzzy(), tc.wantFuzzy, hit)
			}
		})
	}
}

func TestLoadKeywordMap(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/intent.json", []byte(`{"intents":[
		{"tag":"ram","patterns":["रैम कितनी है","memory usage"],"responses":[]}
	]}`), 0o644)
	_ = afero.WriteFile(fs, "/broken.json", []byte(`{"intents": [`), 0o644)

	m := nlu.LoadKeywordMap(fs, "/intent.json")
	if got, ok := m.Tag("रैम"); !ok || got != "ram" {
		t.Errorf("Tag(रैम) = %q, %v", got, ok)
	}

	for _, path := range []string{"/broken.json", "/missing.json"} {
		m := nlu.LoadKeywordMap(fs, path)
		if m.Len() != 0 {
			t.Errorf("LoadKeywordMap(%s) has %d keywords, want 0", path, m.Len())
		}
		if _, ok := m.Match([]string{"रैम"}, 1); ok {
			t.Errorf("empty map matched")
		}
	}
}

func TestParseCorpus(t *testing.T) {
	t.Parallel()
	c, err := nlu.ParseCorpus(strings.NewReader(`{"intents":[{"tag":"exit","patterns":["बंद करो"],"responses":["अलविदा"]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Intents) != 1 || c.Intents[0].Responses[0] != "अलविदा" {
		t.Errorf("corpus = %+v", c)
	}
}
