package config_test

import (
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/vaani/internal/config"
	audiomock "github.com/MrWong99/vaani/pkg/audio/mock"
	"github.com/MrWong99/vaani/pkg/provider/classify"
	classifymock "github.com/MrWong99/vaani/pkg/provider/classify/mock"
	"github.com/MrWong99/vaani/pkg/provider/llm"
	llmmock "github.com/MrWong99/vaani/pkg/provider/llm/mock"
	"github.com/MrWong99/vaani/pkg/provider/stt"
	sttmock "github.com/MrWong99/vaani/pkg/provider/stt/mock"
	"github.com/MrWong99/vaani/pkg/provider/tts"
	ttsmock "github.com/MrWong99/vaani/pkg/provider/tts/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug

assistant:
  name: वीरा

listen:
  wake_words: ["ira", "वीरा"]
  phonetic_wake: true
  noise_threshold: 500
  command_timeout: 6s
  record_dir: /tmp/vaani

intent:
  threshold: 0.7
  fuzzy_distance: 0

data:
  training_data: data/intents.json
  knowledge_dir: data/knowledge

providers:
  stt:
    name: vosk
    model: models/vosk-model-small-hi
  stt_fallback:
    name: whisper
    base_url: http://localhost:8178
  classifier:
    name: logreg
    model: models/intent.json
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
  llm_fallback:
    name: ollama
    model: llama3.1
  tts:
    name: piper
    base_url: http://localhost:5000
    options:
      length_scale: 1.1
      speaker: 2
  audio:
    name: portaudio
`

func mustLoad(t *testing.T, yaml string) *config.Config {
	t.Helper()
	cfg, err := config.LoadFromReader(strings.NewReader(yaml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	return cfg
}

// ── Loading ──────────────────────────────────────────────────────────────────

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg := mustLoad(t, sampleYAML)
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Assistant.Name != "वीरा" {
		t.Errorf("assistant.name = %q", cfg.Assistant.Name)
	}
	if !slices.Equal(cfg.Listen.WakeWords, []string{"ira", "वीरा"}) || !cfg.Listen.PhoneticWake {
		t.Errorf("listen wake = %v phonetic=%v", cfg.Listen.WakeWords, cfg.Listen.PhoneticWake)
	}
	if cfg.Listen.NoiseThreshold != 500 {
		t.Errorf("noise_threshold = %v, want 500", cfg.Listen.NoiseThreshold)
	}
	if cfg.Listen.CommandTimeout != 6*time.Second {
		t.Errorf("command_timeout = %v, want 6s", cfg.Listen.CommandTimeout)
	}
	if cfg.Intent.Threshold != 0.7 {
		t.Errorf("intent.threshold = %v", cfg.Intent.Threshold)
	}
	if cfg.Intent.Fuzzy() != 0 {
		t.Errorf("explicit fuzzy_distance 0 became %d", cfg.Intent.Fuzzy())
	}
	if cfg.Providers.STT.Model != "models/vosk-model-small-hi" || cfg.Providers.STTFallback.Name != "whisper" {
		t.Errorf("stt providers = %+v / %+v", cfg.Providers.STT, cfg.Providers.STTFallback)
	}
	if got := cfg.Providers.TTS.FloatOption("length_scale", 1); got != 1.1 {
		t.Errorf("tts length_scale = %v, want 1.1", got)
	}
	if got := cfg.Providers.TTS.IntOption("speaker", -1); got != 2 {
		t.Errorf("tts speaker = %v, want 2", got)
	}
}

func TestLoadFromReader_Defaults(t *testing.T) {
	t.Parallel()

	cfg := mustLoad(t, "providers:\n  audio:\n    name: wavfile\n")
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log_level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Assistant.Name != config.DefaultAssistantName {
		t.Errorf("assistant.name = %q", cfg.Assistant.Name)
	}
	if cfg.Assistant.MaxTokens != 64 || cfg.Assistant.Temperature != 0.6 {
		t.Errorf("assistant llm = %d / %v, want 64 / 0.6", cfg.Assistant.MaxTokens, cfg.Assistant.Temperature)
	}
	l := cfg.Listen
	if !slices.Equal(l.WakeWords, config.DefaultWakeWords) {
		t.Errorf("wake words = %v", l.WakeWords)
	}
	if l.NoiseThreshold != 800 || l.CommandTimeout != 4500*time.Millisecond || l.MinTokens != 1 {
		t.Errorf("listen tunables = %+v", l)
	}
	if l.SampleRate != 16000 || l.WakeFrameSize != 1024 || l.CommandFrameSize != 4000 {
		t.Errorf("listen audio = %d / %d / %d", l.SampleRate, l.WakeFrameSize, l.CommandFrameSize)
	}
	if cfg.Intent.Threshold != 0.65 || cfg.Intent.Fuzzy() != 1 {
		t.Errorf("intent = %v / %d, want 0.65 / 1", cfg.Intent.Threshold, cfg.Intent.Fuzzy())
	}
}

func TestLoadFromReader_DefaultWakeWordsAreCopied(t *testing.T) {
	t.Parallel()

	cfg := mustLoad(t, "providers:\n  audio:\n    name: wavfile\n")
	cfg.Listen.WakeWords[0] = "changed"
	if config.DefaultWakeWords[0] == "changed" {
		t.Fatal("ApplyDefaults aliased DefaultWakeWords")
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("listen:\n  wake_wrods: [ira]\n"))
	if err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadFromReader_EmptyNeedsAudio(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader(""))
	if err == nil || !strings.Contains(err.Error(), "providers.audio") {
		t.Fatalf("err = %v, want providers.audio requirement", err)
	}
}

// ── Validation ───────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	t.Parallel()

	const audio = "providers:\n  audio:\n    name: portaudio\n"
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "bad log level", yaml: "server:\n  log_level: loud\n" + audio, wantErr: "server.log_level"},
		{name: "threshold one", yaml: "intent:\n  threshold: 1\n" + audio, wantErr: "intent.threshold"},
		{name: "negative threshold", yaml: "intent:\n  threshold: -0.1\n" + audio, wantErr: "intent.threshold"},
		{name: "negative noise", yaml: "listen:\n  noise_threshold: -5\n" + audio, wantErr: "listen.noise_threshold"},
		{name: "blank wake word", yaml: "listen:\n  wake_words: [ira, \" \"]\n" + audio, wantErr: "listen.wake_words[1]"},
		{name: "negative min tokens", yaml: "listen:\n  min_tokens: -1\n" + audio, wantErr: "listen.min_tokens"},
		{name: "hot temperature", yaml: "assistant:\n  temperature: 3\n" + audio, wantErr: "assistant.temperature"},
		{name: "fallback without primary", yaml: "providers:\n  audio:\n    name: portaudio\n  llm_fallback:\n    name: ollama\n", wantErr: "providers.llm_fallback requires providers.llm"},
		{name: "negative timeout is allowed", yaml: "listen:\n  command_timeout: -1s\n" + audio},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadFromReader(strings.NewReader(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_JoinsAllErrors(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  log_level: loud\nintent:\n  threshold: 2\n"))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"server.log_level", "intent.threshold", "providers.audio"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %q", err, want)
		}
	}
}

// ── Provider options ─────────────────────────────────────────────────────────

func TestProviderEntry_Options(t *testing.T) {
	t.Parallel()

	e := config.ProviderEntry{Options: map[string]any{
		"lang":    "hi",
		"rate":    1.5,
		"count":   3,
		"numeric": "42",
		"whole":   4.0,
		"on":      true,
		"wait":    "750ms",
		"bogus":   []any{1},
	}}
	if got := e.StringOption("lang", "en"); got != "hi" {
		t.Errorf("StringOption = %q", got)
	}
	if got := e.StringOption("missing", "en"); got != "en" {
		t.Errorf("StringOption default = %q", got)
	}
	if got := e.FloatOption("rate", 0); got != 1.5 {
		t.Errorf("FloatOption = %v", got)
	}
	if got := e.FloatOption("count", 0); got != 3 {
		t.Errorf("FloatOption(int) = %v", got)
	}
	if got := e.IntOption("numeric", 0); got != 42 {
		t.Errorf("IntOption(string) = %v", got)
	}
	if got := e.IntOption("whole", 0); got != 4 {
		t.Errorf("IntOption(float) = %v", got)
	}
	if got := e.IntOption("rate", 7); got != 7 {
		t.Errorf("IntOption(fractional) = %v, want default", got)
	}
	if !e.BoolOption("on", false) || e.BoolOption("bogus", false) {
		t.Error("BoolOption mismatch")
	}
	if got := e.DurationOption("wait", time.Second); got != 750*time.Millisecond {
		t.Errorf("DurationOption = %v", got)
	}
	if got := e.DurationOption("lang", time.Second); got != time.Second {
		t.Errorf("DurationOption(unparseable) = %v, want default", got)
	}
}

// ── Registry ─────────────────────────────────────────────────────────────────

func TestRegistry_Unknown(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	entry := config.ProviderEntry{Name: "nonexistent"}
	errs := map[string]error{}
	_, errs["stt"] = reg.CreateSTT(entry)
	_, errs["classifier"] = reg.CreateClassifier(entry)
	_, errs["llm"] = reg.CreateLLM(entry)
	_, errs["tts"] = reg.CreateTTS(entry)
	_, errs["audio"] = reg.CreateAudio(entry)
	for kind, err := range errs {
		if !errors.Is(err, config.ErrProviderNotRegistered) {
			t.Errorf("%s: err = %v, want ErrProviderNotRegistered", kind, err)
		}
	}
}

func TestRegistry_Registered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	engine := &sttmock.Engine{}
	classifier := &classifymock.Classifier{}
	provider := &llmmock.Provider{}
	synth := &ttsmock.Synthesizer{}
	source := &audiomock.Source{}

	var gotEntry config.ProviderEntry
	reg.RegisterSTT("vosk", func(e config.ProviderEntry) (stt.Engine, error) { gotEntry = e; return engine, nil })
	reg.RegisterClassifier("logreg", func(config.ProviderEntry) (classify.Classifier, error) { return classifier, nil })
	reg.RegisterLLM("openai", func(config.ProviderEntry) (llm.Provider, error) { return provider, nil })
	reg.RegisterTTS("piper", func(config.ProviderEntry) (tts.Synthesizer, error) { return synth, nil })
	reg.RegisterAudio("wavfile", func(config.ProviderEntry) (config.AudioDevice, error) {
		return config.AudioDevice{Source: source}, nil
	})

	e, err := reg.CreateSTT(config.ProviderEntry{Name: "vosk", Model: "m"})
	if err != nil || e != engine || gotEntry.Model != "m" {
		t.Errorf("CreateSTT = %v, %v (entry %+v)", e, err, gotEntry)
	}
	if c, err := reg.CreateClassifier(config.ProviderEntry{Name: "logreg"}); err != nil || c != classifier {
		t.Errorf("CreateClassifier = %v, %v", c, err)
	}
	if p, err := reg.CreateLLM(config.ProviderEntry{Name: "openai"}); err != nil || p != provider {
		t.Errorf("CreateLLM = %v, %v", p, err)
	}
	if s, err := reg.CreateTTS(config.ProviderEntry{Name: "piper"}); err != nil || s != synth {
		t.Errorf("CreateTTS = %v, %v", s, err)
	}
	if d, err := reg.CreateAudio(config.ProviderEntry{Name: "wavfile"}); err != nil || d.Source != source {
		t.Errorf("CreateAudio = %+v, %v", d, err)
	}
	if got := reg.Names("stt"); !slices.Equal(got, []string{"vosk"}) {
		t.Errorf("Names(stt) = %v", got)
	}
	if got := reg.Names("bogus"); len(got) != 0 {
		t.Errorf("Names(bogus) = %v", got)
	}
}

func TestRegistry_FactoryError(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	boom := errors.New("model missing")
	reg.RegisterSTT("vosk", func(config.ProviderEntry) (stt.Engine, error) { return nil, boom })

	_, err := reg.CreateSTT(config.ProviderEntry{Name: "vosk"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped factory error", err)
	}
	if errors.Is(err, config.ErrProviderNotRegistered) {
		t.Error("factory error reported as not registered")
	}
}
