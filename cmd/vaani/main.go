// Command vaani is the entry point of the vaani Hindi voice assistant.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/spf13/afero"

	"github.com/MrWong99/vaani/internal/app"
	"github.com/MrWong99/vaani/internal/config"
	"github.com/MrWong99/vaani/internal/observe"
	"github.com/MrWong99/vaani/internal/resilience"
	"github.com/MrWong99/vaani/pkg/audio/portaudio"
	"github.com/MrWong99/vaani/pkg/audio/wavfile"
	"github.com/MrWong99/vaani/pkg/provider/classify"
	"github.com/MrWong99/vaani/pkg/provider/classify/logreg"
	"github.com/MrWong99/vaani/pkg/provider/llm"
	"github.com/MrWong99/vaani/pkg/provider/llm/anyllm"
	"github.com/MrWong99/vaani/pkg/provider/llm/openai"
	"github.com/MrWong99/vaani/pkg/provider/stt"
	"github.com/MrWong99/vaani/pkg/provider/stt/vosk"
	"github.com/MrWong99/vaani/pkg/provider/stt/whisper"
	"github.com/MrWong99/vaani/pkg/provider/tts"
	"github.com/MrWong99/vaani/pkg/provider/tts/coqui"
	"github.com/MrWong99/vaani/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/vaani/pkg/provider/tts/piper"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watch := flag.Bool("watch", true, "reload tunables when the configuration file changes")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "vaani: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "vaani: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("vaani starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, device, err := buildProviders(cfg, reg, observe.DefaultMetrics())
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer func() {
		if device.Close == nil {
			return
		}
		if err := device.Close(); err != nil {
			slog.Warn("audio device close error", "err", err)
		}
	}()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	if *watch {
		w, err := config.NewWatcher(*configPath, func(_, _ *config.Config, diff config.ConfigDiff) {
			if diff.LogLevelChanged {
				level.Set(slogLevel(diff.NewLogLevel))
			}
			application.ApplyConfig(diff)
		})
		if err != nil {
			slog.Warn("config watcher disabled", "err", err)
		} else {
			defer w.Stop()
		}
	}

	slog.Info("assistant ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	exit := 0
	switch {
	case runErr == nil:
		slog.Info("audio input finished")
	case errors.Is(runErr, app.ErrStopped):
		slog.Info("stopped by voice command")
	case errors.Is(runErr, context.Canceled):
		slog.Info("shutdown signal received, stopping…")
	default:
		slog.Error("run error", "err", runErr)
		exit = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return exit
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyllmProviders are the LLM backends served through any-llm-go. They all
// share the same pattern: optional APIKey + optional BaseURL.
var anyllmProviders = []string{
	"anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry, cfg *config.Config) {
	fs := afero.NewOsFs()

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("vosk", func(entry config.ProviderEntry) (stt.Engine, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		return vosk.New(modelPath,
			vosk.WithLogLevel(entry.IntOption("log_level", -1)),
			vosk.WithWords(entry.BoolOption("words", false)),
		)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Engine, error) {
		opts := []whisper.ServerOption{whisper.WithServerOptions(whisperOptions(entry)...)}
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		return whisper.NewServer(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Engine, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		return whisper.NewNative(modelPath, whisperOptions(entry)...)
	})

	// ── Classifier ────────────────────────────────────────────────────────────

	reg.RegisterClassifier("logreg", func(entry config.ProviderEntry) (classify.Classifier, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.StringOption("model_path", "")
		}
		var opts []logreg.Option
		if floor := entry.FloatOption("floor", -1); floor >= 0 {
			opts = append(opts, logreg.WithFloor(floor))
		}
		return logreg.Load(fs, modelPath, opts...)
	})

	// ── LLM ───────────────────────────────────────────────────────────────────

	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := entry.StringOption("organization", ""); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if d := entry.DurationOption("timeout", 0); d > 0 {
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range anyllmProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("piper", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []piper.Option
		if scale := entry.FloatOption("length_scale", 0); scale > 0 {
			opts = append(opts, piper.WithLengthScale(scale))
		}
		if speaker := entry.IntOption("speaker", -1); speaker >= 0 {
			opts = append(opts, piper.WithSpeaker(speaker))
		}
		if d := entry.DurationOption("timeout", 0); d > 0 {
			opts = append(opts, piper.WithTimeout(d))
		}
		return piper.New(entry.BaseURL, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []coqui.Option
		if lang := entry.StringOption("language", ""); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if speaker := entry.StringOption("speaker", ""); speaker != "" {
			opts = append(opts, coqui.WithSpeaker(speaker))
		}
		if mode := entry.StringOption("api_mode", ""); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if d := entry.DurationOption("timeout", 0); d > 0 {
			opts = append(opts, coqui.WithTimeout(d))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Synthesizer, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := entry.StringOption("output_format", ""); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithEndpoint(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, entry.StringOption("voice_id", ""), opts...)
	})

	// ── Audio ─────────────────────────────────────────────────────────────────

	reg.RegisterAudio("portaudio", func(entry config.ProviderEntry) (config.AudioDevice, error) {
		terminate, err := portaudio.Init()
		if err != nil {
			return config.AudioDevice{}, err
		}
		rate := entry.IntOption("sample_rate", cfg.Listen.SampleRate)
		return config.AudioDevice{
			Source: portaudio.NewMicrophone(
				portaudio.WithSampleRate(rate),
				portaudio.WithBufferSamples(entry.IntOption("buffer_samples", 0)),
			),
			Sink:  portaudio.NewSpeaker(entry.IntOption("output_sample_rate", 22050)),
			Close: terminate,
		}, nil
	})

	reg.RegisterAudio("wavfile", func(entry config.ProviderEntry) (config.AudioDevice, error) {
		input := entry.StringOption("input", "")
		if input == "" {
			return config.AudioDevice{}, errors.New("options.input is required")
		}
		dev := config.AudioDevice{Source: wavfile.NewSource(fs, input)}
		if out := entry.StringOption("output_dir", ""); out != "" {
			dev.Sink = wavfile.NewSink(fs, out)
		}
		return dev, nil
	})

	for _, kind := range []string{"stt", "classifier", "llm", "tts", "audio"} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// whisperOptions collects the recogniser settings shared by both whisper
// engines.
func whisperOptions(entry config.ProviderEntry) []whisper.Option {
	var opts []whisper.Option
	if lang := entry.StringOption("language", ""); lang != "" {
		opts = append(opts, whisper.WithLanguage(lang))
	}
	if rms := entry.FloatOption("speech_rms", 0); rms > 0 {
		opts = append(opts, whisper.WithSpeechRMS(rms))
	}
	if d := entry.DurationOption("silence", 0); d > 0 {
		opts = append(opts, whisper.WithSilenceThreshold(d))
	}
	if d := entry.DurationOption("max_buffer", 0); d > 0 {
		opts = append(opts, whisper.WithMaxBuffer(d))
	}
	if d := entry.DurationOption("partial_interval", 0); d != 0 {
		opts = append(opts, whisper.WithPartialInterval(d))
	}
	return opts
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to
// consume. Speech, LLM and TTS providers are wrapped in fallback groups so
// a configured secondary takes over when the primary's circuit opens.
func buildProviders(cfg *config.Config, reg *config.Registry, metrics *observe.Metrics) (*app.Providers, config.AudioDevice, error) {
	ps := &app.Providers{}
	pc := cfg.Providers

	// ── Audio ─────────────────────────────────────────────────────────────────
	device, err := reg.CreateAudio(pc.Audio)
	if err != nil {
		return nil, config.AudioDevice{}, fmt.Errorf("create audio provider %q: %w", pc.Audio.Name, err)
	}
	ps.Source, ps.Sink = device.Source, device.Sink
	slog.Info("provider created", "kind", "audio", "name", pc.Audio.Name)

	// On failure below the device is released before returning.
	fail := func(err error) (*app.Providers, config.AudioDevice, error) {
		if device.Close != nil {
			_ = device.Close()
		}
		return nil, config.AudioDevice{}, err
	}

	// ── STT ───────────────────────────────────────────────────────────────────
	// A speech engine that cannot load is not fatal: the listeners report
	// listen.ErrEngineUnavailable and /readyz stays unhealthy.
	primarySTT, err := optional(reg.CreateSTT, "stt", pc.STT)
	if err != nil {
		slog.Error("speech engine unavailable", "name", pc.STT.Name, "err", err)
	}
	if primarySTT != nil {
		group := resilience.NewSTTFallback(primarySTT, pc.STT.Name, resilience.FallbackConfig{Kind: "stt", Metrics: metrics})
		if err := addFallback(reg.CreateSTT, "stt", pc.STTFallback, group.AddFallback); err != nil {
			slog.Warn("speech engine fallback unavailable", "name", pc.STTFallback.Name, "err", err)
		}
		ps.STT = group
	}

	// ── Classifier ────────────────────────────────────────────────────────────
	// A classifier that cannot load leaves the resolver keyword-only.
	if pc.Classifier.Configured() {
		c, err := reg.CreateClassifier(pc.Classifier)
		if err != nil {
			slog.Warn("classifier unavailable", "name", pc.Classifier.Name, "err", err)
		} else {
			ps.Classifier = c
			slog.Info("provider created", "kind", "classifier", "name", pc.Classifier.Name)
		}
	}

	// ── LLM ───────────────────────────────────────────────────────────────────
	primaryLLM, err := optional(reg.CreateLLM, "llm", pc.LLM)
	if err != nil {
		return fail(err)
	}
	if primaryLLM != nil {
		group := resilience.NewLLMFallback(primaryLLM, pc.LLM.Name, resilience.FallbackConfig{Kind: "llm", Metrics: metrics})
		if err := addFallback(reg.CreateLLM, "llm", pc.LLMFallback, group.AddFallback); err != nil {
			return fail(err)
		}
		ps.LLM = group
	}

	// ── TTS ───────────────────────────────────────────────────────────────────
	primaryTTS, err := optional(reg.CreateTTS, "tts", pc.TTS)
	if err != nil {
		return fail(err)
	}
	if primaryTTS != nil {
		group := resilience.NewTTSFallback(primaryTTS, pc.TTS.Name, resilience.FallbackConfig{Kind: "tts", Metrics: metrics})
		if err := addFallback(reg.CreateTTS, "tts", pc.TTSFallback, group.AddFallback); err != nil {
			return fail(err)
		}
		ps.TTS = group
	}

	return ps, device, nil
}

// optional creates the provider of entry when one is configured. An
// unregistered name is logged and skipped.
func optional[T any](create func(config.ProviderEntry) (T, error), kind string, entry config.ProviderEntry) (T, error) {
	var zero T
	if !entry.Configured() {
		return zero, nil
	}
	p, err := create(entry)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("provider not implemented, skipping", "kind", kind, "name", entry.Name)
		return zero, nil
	}
	if err != nil {
		return zero, fmt.Errorf("create %s provider %q: %w", kind, entry.Name, err)
	}
	slog.Info("provider created", "kind", kind, "name", entry.Name)
	return p, nil
}

// addFallback creates the secondary provider of entry, if configured, and
// adds it to a fallback group.
func addFallback[T any](create func(config.ProviderEntry) (T, error), kind string, entry config.ProviderEntry, add func(string, T)) error {
	if !entry.Configured() {
		return nil
	}
	p, err := create(entry)
	if err != nil {
		return fmt.Errorf("create %s fallback %q: %w", kind, entry.Name, err)
	}
	add(entry.Name, p)
	slog.Info("provider created", "kind", kind+"_fallback", "name", entry.Name)
	return nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         vaani — startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("Classifier", cfg.Providers.Classifier.Name, "")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Audio", cfg.Providers.Audio.Name, "")
	fmt.Printf("║  Wake words      : %-19d ║\n", len(cfg.Listen.WakeWords))
	fmt.Printf("║  Threshold       : %-19.2f ║\n", cfg.Intent.Threshold)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr     : %-19s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
