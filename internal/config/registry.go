package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/provider/classify"
	"github.com/MrWong99/vaani/pkg/provider/llm"
	"github.com/MrWong99/vaani/pkg/provider/stt"
	"github.com/MrWong99/vaani/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by Create* methods when no factory has
// been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// AudioDevice is what an audio factory builds: the microphone-side source and
// the speaker-side sink. Close releases both.
type AudioDevice struct {
	Source audio.Source
	Sink   audio.Sink

	// Close releases process-wide resources the device holds (e.g. the
	// PortAudio runtime). May be nil.
	Close func() error
}

// factories is a name → constructor table for one provider kind.
type factories[T any] map[string]func(ProviderEntry) (T, error)

func create[T any](mu *sync.RWMutex, table factories[T], kind string, entry ProviderEntry) (T, error) {
	mu.RLock()
	factory, ok := table[entry.Name]
	mu.RUnlock()
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, kind, entry.Name)
	}
	v, err := factory(entry)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("config: create %s/%q: %w", kind, entry.Name, err)
	}
	return v, nil
}

// Registry maps provider names to their constructor functions for each
// provider type. It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	stt        factories[stt.Engine]
	classifier factories[classify.Classifier]
	llm        factories[llm.Provider]
	tts        factories[tts.Synthesizer]
	audio      factories[AudioDevice]
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		stt:        make(factories[stt.Engine]),
		classifier: make(factories[classify.Classifier]),
		llm:        make(factories[llm.Provider]),
		tts:        make(factories[tts.Synthesizer]),
		audio:      make(factories[AudioDevice]),
	}
}

// RegisterSTT registers a speech engine factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory func(ProviderEntry) (stt.Engine, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// RegisterClassifier registers an intent classifier factory under name.
func (r *Registry) RegisterClassifier(name string, factory func(ProviderEntry) (classify.Classifier, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classifier[name] = factory
}

// RegisterLLM registers an LLM provider factory under name.
func (r *Registry) RegisterLLM(name string, factory func(ProviderEntry) (llm.Provider, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.llm[name] = factory
}

// RegisterTTS registers a speech synthesizer factory under name.
func (r *Registry) RegisterTTS(name string, factory func(ProviderEntry) (tts.Synthesizer, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts[name] = factory
}

// RegisterAudio registers an audio device factory under name.
func (r *Registry) RegisterAudio(name string, factory func(ProviderEntry) (AudioDevice, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audio[name] = factory
}

// CreateSTT instantiates a speech engine using the factory registered under
// entry.Name. Returns [ErrProviderNotRegistered] if there is none.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Engine, error) {
	return create(&r.mu, r.stt, "stt", entry)
}

// CreateClassifier instantiates an intent classifier.
func (r *Registry) CreateClassifier(entry ProviderEntry) (classify.Classifier, error) {
	return create(&r.mu, r.classifier, "classifier", entry)
}

// CreateLLM instantiates an LLM provider.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	return create(&r.mu, r.llm, "llm", entry)
}

// CreateTTS instantiates a speech synthesizer.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Synthesizer, error) {
	return create(&r.mu, r.tts, "tts", entry)
}

// CreateAudio instantiates an audio device.
func (r *Registry) CreateAudio(entry ProviderEntry) (AudioDevice, error) {
	return create(&r.mu, r.audio, "audio", entry)
}

// Names returns the sorted provider names registered for kind ("stt",
// "classifier", "llm", "tts", "audio").
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	switch kind {
	case "stt":
		names = keys(r.stt)
	case "classifier":
		names = keys(r.classifier)
	case "llm":
		names = keys(r.llm)
	case "tts":
		names = keys(r.tts)
	case "audio":
		names = keys(r.audio)
	}
	slices.Sort(names)
	return names
}

func keys[T any](table factories[T]) []string {
	out := make([]string, 0, len(table))
	for k := range table {
		out = append(out, k)
	}
	return out
}
