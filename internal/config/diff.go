package config

import (
	"slices"
	"time"
)

// ConfigDiff describes what changed between two configs.
// Only tunables that can be swapped between turns are tracked; everything
// else needs a restart.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	NoiseThresholdChanged bool
	NewNoiseThreshold     float64

	CommandTimeoutChanged bool
	NewCommandTimeout     time.Duration

	ThresholdChanged bool
	NewThreshold     float64

	FuzzyDistanceChanged bool
	NewFuzzyDistance     int

	// RestartRequired lists the top-level sections that changed in ways
	// that are only picked up on restart.
	RestartRequired []string
}

// Changed reports whether any hot-reloadable tunable changed.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.NoiseThresholdChanged || d.CommandTimeoutChanged ||
		d.ThresholdChanged || d.FuzzyDistanceChanged
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Listen.NoiseThreshold != new.Listen.NoiseThreshold {
		d.NoiseThresholdChanged = true
		d.NewNoiseThreshold = new.Listen.NoiseThreshold
	}
	if old.Listen.CommandTimeout != new.Listen.CommandTimeout {
		d.CommandTimeoutChanged = true
		d.NewCommandTimeout = new.Listen.CommandTimeout
	}
	if old.Intent.Threshold != new.Intent.Threshold {
		d.ThresholdChanged = true
		d.NewThreshold = new.Intent.Threshold
	}
	if old.Intent.Fuzzy() != new.Intent.Fuzzy() {
		d.FuzzyDistanceChanged = true
		d.NewFuzzyDistance = new.Intent.Fuzzy()
	}

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Assistant != new.Assistant {
		d.RestartRequired = append(d.RestartRequired, "assistant")
	}
	if !listenStaticEqual(old.Listen, new.Listen) {
		d.RestartRequired = append(d.RestartRequired, "listen")
	}
	if old.Data != new.Data {
		d.RestartRequired = append(d.RestartRequired, "data")
	}
	if !providersEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	return d
}

// listenStaticEqual compares the listen settings that are not hot-reloadable.
func listenStaticEqual(a, b ListenConfig) bool {
	return slices.Equal(a.WakeWords, b.WakeWords) &&
		a.PhoneticWake == b.PhoneticWake &&
		a.MinTokens == b.MinTokens &&
		a.SampleRate == b.SampleRate &&
		a.WakeFrameSize == b.WakeFrameSize &&
		a.CommandFrameSize == b.CommandFrameSize &&
		a.RecordDir == b.RecordDir
}

func providersEqual(a, b ProvidersConfig) bool {
	pairs := [][2]ProviderEntry{
		{a.STT, b.STT}, {a.STTFallback, b.STTFallback},
		{a.Classifier, b.Classifier},
		{a.LLM, b.LLM}, {a.LLMFallback, b.LLMFallback},
		{a.TTS, b.TTS}, {a.TTSFallback, b.TTSFallback},
		{a.Audio, b.Audio},
	}
	for _, p := range pairs {
		if !entryEqual(p[0], p[1]) {
			return false
		}
	}
	return true
}

func entryEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey || a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Options) != len(b.Options) {
		return false
	}
	for k, v := range a.Options {
		w, ok := b.Options[k]
		if !ok || !optionEqual(v, w) {
			return false
		}
	}
	return true
}

// optionEqual compares decoded YAML scalars; nested maps and lists are
// treated as changed.
func optionEqual(a, b any) bool {
	switch a.(type) {
	case string, int, float64, bool, nil:
		return a == b
	}
	return false
}
