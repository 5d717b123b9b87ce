package turnlog

import (
	"bufio"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func readRecords(t *testing.T, fs afero.Fs, name string) []Record {
	t.Helper()
	f, err := fs.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer f.Close()

	var out []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err != nil {
			t.Fatalf("line %d: %v", len(out)+1, err)
		}
		out = append(out, r)
	}
	return out
}

func TestAppend_CreatesFileAndDir(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/var/log/vaani/turns.jsonl")
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.FixedZone("IST", 19800))
	s.now = func() time.Time { return fixed }

	if err := s.Append(Record{WakeWord: "vira", Text: "दिन बताओ", Outcome: "captured", Tag: "day", Confidence: 1, Source: "deterministic", Resolved: true, Reply: "आज Monday है"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := s.Append(Record{WakeWord: "ira", Outcome: "timed_out", Source: "none"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got := readRecords(t, fs, "/var/log/vaani/turns.jsonl")
	if len(got) != 2 {
		t.Fatalf("records = %d, want 2", len(got))
	}
	if !got[0].Timestamp.Equal(fixed) || got[0].Timestamp.Location() != time.UTC {
		t.Errorf("timestamp = %v, want %v in UTC", got[0].Timestamp, fixed)
	}
	if got[0].Tag != "day" || got[0].Reply != "आज Monday है" || !got[0].Resolved {
		t.Errorf("first record = %+v", got[0])
	}
	if got[1].Outcome != "timed_out" || got[1].Text != "" {
		t.Errorf("second record = %+v", got[1])
	}
}

func TestAppend_KeepsGivenTimestamp(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "turns.jsonl")
	ts := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := s.Append(Record{Timestamp: ts, Outcome: "captured"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := readRecords(t, fs, "turns.jsonl"); !got[0].Timestamp.Equal(ts) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, ts)
	}
}

func TestAppend_Concurrent(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/turns.jsonl")

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Append(Record{Outcome: "captured", Text: "समय"}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := readRecords(t, fs, "/turns.jsonl"); len(got) != n {
		t.Errorf("records = %d, want %d", len(got), n)
	}
}

func TestAppend_ReadOnlyFs(t *testing.T) {
	t.Parallel()

	s := NewFileStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/turns.jsonl")
	if err := s.Append(Record{Outcome: "captured"}); err == nil {
		t.Fatal("Append on a read-only fs succeeded")
	}
}
