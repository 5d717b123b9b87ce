package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt":        {"vosk", "whisper", "whisper-native"},
	"classifier": {"logreg"},
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"tts":        {"piper", "coqui", "elevenlabs"},
	"audio":      {"portaudio", "wavfile"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and validates
// the result. Unknown keys are rejected. An empty document yields the
// defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills every zero-valued tunable with its default. Explicit
// values are left alone, including a negative command timeout, which
// disables the capture bound.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Assistant.Name == "" {
		cfg.Assistant.Name = DefaultAssistantName
	}
	if cfg.Assistant.MaxTokens == 0 {
		cfg.Assistant.MaxTokens = DefaultLLMMaxTokens
	}
	if cfg.Assistant.Temperature == 0 {
		cfg.Assistant.Temperature = DefaultLLMTemperature
	}

	l := &cfg.Listen
	if len(l.WakeWords) == 0 {
		l.WakeWords = slices.Clone(DefaultWakeWords)
	}
	if l.NoiseThreshold == 0 {
		l.NoiseThreshold = DefaultNoiseThreshold
	}
	if l.CommandTimeout == 0 {
		l.CommandTimeout = DefaultCommandTimeout
	}
	if l.MinTokens == 0 {
		l.MinTokens = DefaultMinTokens
	}
	if l.SampleRate == 0 {
		l.SampleRate = DefaultSampleRate
	}
	if l.WakeFrameSize == 0 {
		l.WakeFrameSize = DefaultWakeFrameSize
	}
	if l.CommandFrameSize == 0 {
		l.CommandFrameSize = DefaultCommandFrameSize
	}

	if cfg.Intent.Threshold == 0 {
		cfg.Intent.Threshold = DefaultThreshold
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Assistant
	if cfg.Assistant.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("assistant.max_tokens %d must not be negative", cfg.Assistant.MaxTokens))
	}
	if cfg.Assistant.Temperature < 0 || cfg.Assistant.Temperature > 2 {
		errs = append(errs, fmt.Errorf("assistant.temperature %.2f is out of range [0, 2]", cfg.Assistant.Temperature))
	}

	// Listen
	l := cfg.Listen
	for i, w := range l.WakeWords {
		if strings.TrimSpace(w) == "" {
			errs = append(errs, fmt.Errorf("listen.wake_words[%d] is blank", i))
		}
	}
	if l.NoiseThreshold < 0 {
		errs = append(errs, fmt.Errorf("listen.noise_threshold %.1f must not be negative", l.NoiseThreshold))
	}
	if l.MinTokens < 0 {
		errs = append(errs, fmt.Errorf("listen.min_tokens %d must not be negative", l.MinTokens))
	}
	if l.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("listen.sample_rate %d must be positive", l.SampleRate))
	}
	if l.WakeFrameSize < 0 || l.CommandFrameSize < 0 {
		errs = append(errs, fmt.Errorf("listen frame sizes (%d, %d) must be positive", l.WakeFrameSize, l.CommandFrameSize))
	}
	if l.CommandTimeout < 0 {
		slog.Warn("listen.command_timeout is negative; command capture is unbounded")
	}

	// Intent
	if cfg.Intent.Threshold < 0 || cfg.Intent.Threshold >= 1 {
		errs = append(errs, fmt.Errorf("intent.threshold %.3f is out of range [0, 1)", cfg.Intent.Threshold))
	}

	// Data
	if cfg.Data.TrainingData == "" {
		slog.Warn("data.training_data is empty; only the statistical classifier can resolve intents")
	}

	// Providers
	p := cfg.Providers
	validateProviderName("stt", p.STT.Name)
	validateProviderName("stt", p.STTFallback.Name)
	validateProviderName("classifier", p.Classifier.Name)
	validateProviderName("llm", p.LLM.Name)
	validateProviderName("llm", p.LLMFallback.Name)
	validateProviderName("tts", p.TTS.Name)
	validateProviderName("tts", p.TTSFallback.Name)
	validateProviderName("audio", p.Audio.Name)

	if !p.Audio.Configured() {
		errs = append(errs, errors.New("providers.audio is required"))
	}
	for _, pair := range []struct {
		kind              string
		primary, fallback ProviderEntry
	}{
		{"stt", p.STT, p.STTFallback},
		{"llm", p.LLM, p.LLMFallback},
		{"tts", p.TTS, p.TTSFallback},
	} {
		if pair.fallback.Configured() && !pair.primary.Configured() {
			errs = append(errs, fmt.Errorf("providers.%s_fallback requires providers.%s", pair.kind, pair.kind))
		}
	}
	if !p.STT.Configured() {
		slog.Warn("providers.stt is not configured; the assistant cannot hear anything")
	}
	if !p.TTS.Configured() {
		slog.Warn("providers.tts is not configured; replies will only be logged")
	}
	if !p.LLM.Configured() {
		slog.Warn("providers.llm is not configured; unresolved commands get a fixed reply")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok || slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
