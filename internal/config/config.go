// Package config provides the configuration schema, loader, provider registry
// and hot-reload watcher for the vaani voice assistant.
package config

import (
	"strconv"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultAssistantName    = "नोवा"
	DefaultSampleRate       = 16000
	DefaultWakeFrameSize    = 1024
	DefaultCommandFrameSize = 4000
	DefaultCommandTimeout   = 4500 * time.Millisecond
	DefaultMinTokens        = 1
	DefaultNoiseThreshold   = 800
	DefaultThreshold        = 0.65
	DefaultFuzzyDistance    = 1
	DefaultLLMMaxTokens     = 64
	DefaultLLMTemperature   = 0.6
)

// DefaultWakeWords are the wake phrases used when none are configured.
var DefaultWakeWords = []string{
	"ira", "vira", "वीरा",
	"aiva", "ava", "ऐवा",
	"ziva", "ज़ीवा",
	"kiva", "कीवा",
	"tiva", "टीवा",
	"reva", "रेवा",
	"niva", "नीवा",
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Listen    ListenConfig    `yaml:"listen"`
	Intent    IntentConfig    `yaml:"intent"`
	Data      DataConfig      `yaml:"data"`
	Providers ProvidersConfig `yaml:"providers"`
}

// ServerConfig holds the optional health/metrics listener and logging.
type ServerConfig struct {
	// ListenAddr is the TCP address serving /healthz, /readyz and /metrics
	// (e.g. ":9090"). Empty disables the listener.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`
}

// AssistantConfig holds the assistant's persona and generative fallback
// settings.
type AssistantConfig struct {
	// Name is spoken by the assistant_name intent.
	Name string `yaml:"name"`

	// MaxTokens caps generative fallback answers.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature of generative fallback answers.
	Temperature float64 `yaml:"temperature"`
}

// ListenConfig tunes wake-word detection and command capture.
type ListenConfig struct {
	// WakeWords are matched as substrings of the normalised hypothesis, in
	// order.
	WakeWords []string `yaml:"wake_words"`

	// PhoneticWake also matches wake words by Double Metaphone code.
	PhoneticWake bool `yaml:"phonetic_wake"`

	// NoiseThreshold is the RMS level below which command frames are dropped.
	// Hot-reloadable.
	NoiseThreshold float64 `yaml:"noise_threshold"`

	// CommandTimeout bounds command capture. Zero or negative disables the
	// bound. Hot-reloadable.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// MinTokens is the least number of tokens a final result needs to count
	// as a command.
	MinTokens int `yaml:"min_tokens"`

	SampleRate       int `yaml:"sample_rate"`
	WakeFrameSize    int `yaml:"wake_frame_size"`
	CommandFrameSize int `yaml:"command_frame_size"`

	// RecordDir, when set, receives a WAV file per captured command.
	RecordDir string `yaml:"record_dir"`
}

// IntentConfig tunes the intent resolver.
type IntentConfig struct {
	// Threshold is the acceptance gate; confidences must be strictly above
	// it. Hot-reloadable.
	Threshold float64 `yaml:"threshold"`

	// FuzzyDistance is the maximum edit distance of the fuzzy keyword pass.
	// Negative disables the fuzzy pass. Nil means the default. Hot-reloadable.
	FuzzyDistance *int `yaml:"fuzzy_distance"`
}

// Fuzzy returns the configured fuzzy distance or the default.
func (c IntentConfig) Fuzzy() int {
	if c.FuzzyDistance == nil {
		return DefaultFuzzyDistance
	}
	return *c.FuzzyDistance
}

// DataConfig points at the on-disk data the assistant reads at startup.
type DataConfig struct {
	// TrainingData is the intents JSON file keywords are extracted from.
	TrainingData string `yaml:"training_data"`

	// KnowledgeDir holds one <topic>.json file per knowledge topic.
	KnowledgeDir string `yaml:"knowledge_dir"`

	// TurnLog, when set, is a JSON lines file every finished turn is
	// appended to.
	TurnLog string `yaml:"turn_log"`
}

// ProvidersConfig declares which implementation backs each pipeline stage.
// Each entry selects a named factory registered in the [Registry]. Fallback
// entries are optional and tried when the primary fails.
type ProvidersConfig struct {
	STT         ProviderEntry `yaml:"stt"`
	STTFallback ProviderEntry `yaml:"stt_fallback"`
	Classifier  ProviderEntry `yaml:"classifier"`
	LLM         ProviderEntry `yaml:"llm"`
	LLMFallback ProviderEntry `yaml:"llm_fallback"`
	TTS         ProviderEntry `yaml:"tts"`
	TTSFallback ProviderEntry `yaml:"tts_fallback"`
	Audio       ProviderEntry `yaml:"audio"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g. "vosk", "piper").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a model name or, for local engines, a model path.
	Model string `yaml:"model"`

	// Options holds provider-specific values not covered by the standard
	// fields above.
	Options map[string]any `yaml:"options"`
}

// Configured reports whether the entry names a provider.
func (e ProviderEntry) Configured() bool { return e.Name != "" }

// StringOption returns the option under key, or def when absent.
func (e ProviderEntry) StringOption(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// FloatOption returns the numeric option under key, or def when absent or not a
// number.
func (e ProviderEntry) FloatOption(key string, def float64) float64 {
	switch v := e.Options[key].(type) {
	case int:
		return float64(v)
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

// IntOption returns the integer option under key, or def when absent or not an
// integer.
func (e ProviderEntry) IntOption(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case float64:
		if v == float64(int(v)) {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// BoolOption returns the boolean option under key, or def when absent.
func (e ProviderEntry) BoolOption(key string, def bool) bool {
	if v, ok := e.Options[key].(bool); ok {
		return v
	}
	return def
}

// DurationOption returns the duration option under key ("2s", "500ms"), or def when
// absent or unparseable.
func (e ProviderEntry) DurationOption(key string, def time.Duration) time.Duration {
	if s, ok := e.Options[key].(string); ok {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return def
}
