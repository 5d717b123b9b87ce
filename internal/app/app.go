// Package app wires the vaani subsystems into a running assistant.
//
// The App struct owns the full lifecycle: New loads the training data and
// knowledge base and builds the listener, resolver and dispatcher, Run
// executes the turn loop alongside the optional HTTP server, and Shutdown
// tears everything down in order.
//
// For testing, inject mock implementations via the [Providers] struct and
// functional options (WithFs, WithTelemetry, WithKnowledge, ...). When an
// option is not provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/MrWong99/vaani/internal/config"
	"github.com/MrWong99/vaani/internal/dispatch"
	"github.com/MrWong99/vaani/internal/intent"
	"github.com/MrWong99/vaani/internal/knowledge"
	"github.com/MrWong99/vaani/internal/listen"
	"github.com/MrWong99/vaani/internal/nlu"
	"github.com/MrWong99/vaani/internal/observe"
	"github.com/MrWong99/vaani/internal/telemetry"
	"github.com/MrWong99/vaani/internal/turnlog"
	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/classify"
	"github.com/MrWong99/vaani/pkg/provider/llm"
	"github.com/MrWong99/vaani/pkg/provider/stt"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

// ErrNoSource is returned by New when no audio source is configured.
var ErrNoSource = errors.New("app: audio source is required")

// defaultRetryDelay is how long the turn loop waits after a failed turn.
const defaultRetryDelay = 500 * time.Millisecond

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	STT        stt.Engine
	Classifier classify.Classifier
	LLM        llm.Provider
	TTS        tts.Synthesizer
	Source     audio.Source
	Sink       audio.Sink
}

// App owns all subsystem lifetimes and runs the voice turn loop.
type App struct {
	cfg       *config.Config
	providers *Providers

	fs         afero.Fs
	metrics    *observe.Metrics
	telemetry  dispatch.Telemetry
	knowledge  dispatch.Knowledge
	listenOpts []listen.Option
	retryDelay time.Duration

	// Subsystems, initialised in New.
	keywords   *nlu.KeywordMap
	recognizer stt.Recognizer
	listener   *listen.Listener
	resolver   *intent.Resolver
	dispatcher *dispatch.Dispatcher
	turns      *turnlog.FileStore

	// pending holds tunables that take effect at the start of the next turn.
	mu      sync.Mutex
	pending []config.ConfigDiff

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithFs reads training data and the knowledge base from fs and writes
// capture recordings to it. The default is the OS file system.
func WithFs(fs afero.Fs) Option {
	return func(a *App) { a.fs = fs }
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithTelemetry injects the host probe instead of creating a [telemetry.Probe].
func WithTelemetry(t dispatch.Telemetry) Option {
	return func(a *App) { a.telemetry = t }
}

// WithKnowledge injects a knowledge base instead of loading one from
// data.knowledge_dir.
func WithKnowledge(k dispatch.Knowledge) Option {
	return func(a *App) { a.knowledge = k }
}

// WithListenOptions appends listener options after the ones derived from
// the config.
func WithListenOptions(opts ...listen.Option) Option {
	return func(a *App) { a.listenOpts = append(a.listenOpts, opts...) }
}

// WithRetryDelay sets the pause after a turn that failed with an audio or
// recognition error.
func WithRetryDelay(d time.Duration) Option {
	return func(a *App) { a.retryDelay = d }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry).
//
// A missing speech engine is not fatal: the listener then reports
// [listen.ErrEngineUnavailable] and Run keeps only the HTTP server alive. A
// missing classifier leaves the resolver deterministic-only.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:        cfg,
		providers:  providers,
		fs:         afero.NewOsFs(),
		retryDelay: defaultRetryDelay,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if providers.Source == nil {
		return nil, ErrNoSource
	}

	// ── 1. Training data + resolver ──────────────────────────────────────
	a.initResolver()

	// ── 2. Dispatcher ────────────────────────────────────────────────────
	a.initDispatcher()

	// ── 3. Speech engine session ─────────────────────────────────────────
	a.initRecognizer()

	// ── 4. Audio ─────────────────────────────────────────────────────────
	if err := providers.Source.Open(); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: open audio source: %w", err)
	}
	a.closers = append(a.closers, providers.Source.Close)
	if providers.Sink != nil {
		a.closers = append(a.closers, providers.Sink.Close)
	}

	// ── 5. Listener ──────────────────────────────────────────────────────
	a.initListener()

	// ── 6. Turn log ──────────────────────────────────────────────────────
	if p := cfg.Data.TurnLog; p != "" {
		a.turns = turnlog.NewFileStore(a.fs, p)
	}

	observe.Logger(ctx).Info("assistant ready",
		"name", cfg.Assistant.Name,
		"keywords", a.keywords.Len(),
		"handlers", len(a.dispatcher.Tags()),
		"engine", a.recognizer != nil,
		"classifier", providers.Classifier != nil,
		"llm", providers.LLM != nil,
		"tts", providers.TTS != nil && providers.Sink != nil,
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initResolver loads the keyword map and builds the intent resolver.
func (a *App) initResolver() {
	if path := a.cfg.Data.TrainingData; path != "" {
		a.keywords = nlu.LoadKeywordMap(a.fs, path)
	} else {
		a.keywords = nlu.NewKeywordMap(nlu.Corpus{})
	}
	if a.providers.Classifier == nil {
		slog.Warn("no classifier configured, intent resolution is keyword-only")
	}
	a.resolver = intent.New(a.keywords, a.providers.Classifier,
		intent.WithThreshold(a.cfg.Intent.Threshold),
		intent.WithFuzzyDistance(a.cfg.Intent.Fuzzy()),
	)
}

// initDispatcher builds the handler table and checks it against the corpus.
func (a *App) initDispatcher() {
	if a.telemetry == nil {
		a.telemetry = telemetry.New()
	}
	if a.knowledge == nil && a.cfg.Data.KnowledgeDir != "" {
		a.knowledge = knowledge.Load(a.fs, a.cfg.Data.KnowledgeDir)
	}
	a.dispatcher = dispatch.New(dispatch.Standard(dispatch.Deps{
		Telemetry:     a.telemetry,
		Knowledge:     a.knowledge,
		AssistantName: a.cfg.Assistant.Name,
	}))

	if a.keywords.Len() == 0 {
		return
	}
	if err := dispatch.Validate(a.keywords.Tags(), a.dispatcher); err != nil {
		slog.Warn("intent table does not match training data", "err", err)
	}
}

// initRecognizer opens the recogniser session shared by both listening
// phases.
func (a *App) initRecognizer() {
	engine := a.providers.STT
	if engine == nil {
		slog.Error("no speech engine configured, the assistant cannot listen")
		return
	}
	a.closers = append(a.closers, engine.Close)

	rec, err := engine.NewRecognizer(a.cfg.Listen.SampleRate)
	if err != nil {
		slog.Error("speech engine unavailable", "err", err)
		return
	}
	a.recognizer = rec
}

func (a *App) initListener() {
	lc := a.cfg.Listen

	var wakeOpts []listen.WakeOption
	if lc.PhoneticWake {
		wakeOpts = append(wakeOpts, listen.WithPhoneticAliases())
	}
	wake := listen.NewWakeWords(lc.WakeWords, wakeOpts...)

	opts := []listen.Option{
		listen.WithNoiseGate(listen.NoiseGate{Threshold: lc.NoiseThreshold}),
		listen.WithTimeout(lc.CommandTimeout),
		listen.WithFrameSizes(lc.WakeFrameSize, lc.CommandFrameSize),
		listen.WithMinTokens(lc.MinTokens),
	}
	if lc.RecordDir != "" {
		opts = append(opts, listen.WithRecorder(listen.NewRecorder(a.fs, lc.RecordDir)))
	}
	opts = append(opts, a.listenOpts...)

	a.listener = listen.New(a.providers.Source, a.recognizer, wake, opts...)
}

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig queues the hot-reloadable tunables of diff. They take effect at
// the start of the next turn so that a capture in progress keeps its
// settings. Safe to call from any goroutine.
func (a *App) ApplyConfig(diff config.ConfigDiff) {
	if !diff.Changed() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, diff)
}

// applyPending installs queued tunables. Called by the turn loop between
// turns.
func (a *App) applyPending() {
	a.mu.Lock()
	pending := a.pending
	a.pending = nil
	a.mu.Unlock()

	for _, d := range pending {
		if d.NoiseThresholdChanged {
			a.listener.SetNoiseThreshold(d.NewNoiseThreshold)
		}
		if d.CommandTimeoutChanged {
			a.listener.SetTimeout(d.NewCommandTimeout)
		}
		if d.ThresholdChanged {
			a.resolver.SetThreshold(d.NewThreshold)
		}
		if d.FuzzyDistanceChanged {
			a.resolver.SetFuzzyDistance(d.NewFuzzyDistance)
		}
		slog.Info("tunables updated",
			"noise_threshold", d.NoiseThresholdChanged,
			"command_timeout", d.CommandTimeoutChanged,
			"threshold", d.ThresholdChanged,
			"fuzzy_distance", d.FuzzyDistanceChanged,
		)
	}
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in init order. It respects the context
// deadline: if ctx expires before all closers finish, remaining closers are
// skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll runs the closers registered so far after a failed New.
func (a *App) closeAll() {
	for _, closer := range a.closers {
		if err := closer(); err != nil {
			slog.Warn("closer error", "err", err)
		}
	}
	a.closers = nil
}
