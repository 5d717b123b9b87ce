package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h *Handler, path string) (int, result, string) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body, rec.Header().Get("Content-Type")
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "stt", Check: func(context.Context) error { return errors.New("down") }})
	code, body, ct := serve(t, h, "/healthz")
	if code != http.StatusOK || body.Status != "ok" {
		t.Errorf("healthz = %d %q, want 200 ok regardless of checkers", code, body.Status)
	}
	if ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	pass := func(context.Context) error { return nil }
	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
		{
			name:       "all pass",
			checkers:   []Checker{{Name: "stt", Check: pass}, Probe("tts", func() bool { return true })},
			wantCode:   http.StatusOK,
			wantStatus: "ok",
			wantChecks: map[string]string{"stt": "ok", "tts": "ok"},
		},
		{
			name: "one fails",
			checkers: []Checker{
				{Name: "stt", Check: func(context.Context) error { return errors.New("model not loaded") }},
				{Name: "audio", Check: pass},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{"stt": "fail: model not loaded", "audio": "ok"},
		},
		{
			name:       "open circuit",
			checkers:   []Checker{Probe("tts", func() bool { return false })},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{"tts": "fail: unhealthy"},
		},
		{
			name:       "nil probe",
			checkers:   []Checker{Probe("llm", nil)},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "fail",
			wantChecks: map[string]string{"llm": "fail: not configured"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			code, body, _ := serve(t, New(tt.checkers...), "/readyz")
			if code != tt.wantCode || body.Status != tt.wantStatus {
				t.Errorf("readyz = %d %q, want %d %q", code, body.Status, tt.wantCode, tt.wantStatus)
			}
			for name, want := range tt.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("check %q = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_ChecksGetDeadline(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "stt", Check: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}})
	if code, body, _ := serve(t, h, "/readyz"); code != http.StatusOK {
		t.Errorf("readyz = %d %v", code, body.Checks)
	}
}

func TestNew_CopiesCheckers(t *testing.T) {
	t.Parallel()

	checkers := []Checker{{Name: "a", Check: func(context.Context) error { return nil }}}
	h := New(checkers...)
	checkers[0].Check = func(context.Context) error { return errors.New("mutated") }
	if code, _, _ := serve(t, h, "/readyz"); code != http.StatusOK {
		t.Errorf("handler observed caller mutation")
	}
}
