package config_test

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MrWong99/vaani/internal/config"
)

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "vaani.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.Audio.Name != "portaudio" {
		t.Errorf("audio = %q", cfg.Providers.Audio.Name)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestLoad_InvalidNamesPath(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("intent:\n  threshold: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := config.Load(path)
	if err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("err = %v, want path in message", err)
	}
}

func TestLoadFromReader_UnknownProviderNameOnlyWarns(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("providers:\n  audio:\n    name: alsa\n  tts:\n    name: espeak\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Providers.TTS.Name != "espeak" {
		t.Errorf("tts = %q", cfg.Providers.TTS.Name)
	}
}
