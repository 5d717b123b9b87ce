package wavfile_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/spf13/afero"

	"github.com/MrWong99/vaani/pkg/audio"
	"github.com/MrWong99/vaani/pkg/audio/wavfile"
)

func buildWAV(t *testing.T, samples []int16, sampleRate, channels int) []byte {
	t.Helper()
	wav, err := wavfile.Encode(audio.Clip{
		PCM:    audio.Int16ToBytes(samples),
		Format: audio.Format{SampleRate: sampleRate, Channels: channels},
	})
	if err != nil {
		t.Fatal(err)
	}
	return wav
}

func TestDecode(t *testing.T) {
	t.Parallel()

	samples := []int16{0, 100, -100, 32767, -32768, 7}
	clip, err := wavfile.Decode(bytes.NewReader(buildWAV(t, samples, 16000, 1)))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if clip.Format != (audio.Format{SampleRate: 16000, Channels: 1}) {
		t.Errorf("format = %+v", clip.Format)
	}
	got := audio.BytesToInt16(clip.PCM)
	if len(got) != len(samples) {
		t.Fatalf("decoded %d samples, want %d", len(got), len(samples))
	}
	for i := range samples {
		if got[i] != samples[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], samples[i])
		}
	}
}

func TestDecode_Garbage(t *testing.T) {
	t.Parallel()
	_, err := wavfile.Decode(bytes.NewReader([]byte("definitely not a wav file")))
	if !errors.Is(err, wavfile.ErrUnsupported) {
		t.Fatalf("Decode(garbage) err = %v, want ErrUnsupported", err)
	}
}

func TestSource_ReplaysFramesThenEOF(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	samples := make([]int16, 10)
	for i := range samples {
		samples[i] = int16(i)
	}
	if err := afero.WriteFile(fs, "/rec.wav", buildWAV(t, samples, 16000, 1), 0o644); err != nil {
		t.Fatal(err)
	}

	src := wavfile.NewSource(fs, "/rec.wav")
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	var sizes []int
	for {
		frame, err := src.Read(4)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		sizes = append(sizes, len(frame)/2)
	}
	want := []int{4, 4, 2}
	if len(sizes) != len(want) {
		t.Fatalf("frame sizes = %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Errorf("frame %d: %d samples, want %d", i, sizes[i], want[i])
		}
	}
}

func TestSource_StereoIsDownmixed(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/st.wav", buildWAV(t, []int16{100, 300, -100, -300}, 8000, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	src := wavfile.NewSource(fs, "/st.wav")
	if err := src.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := src.Format(); got.Channels != 1 || got.SampleRate != 8000 {
		t.Errorf("Format = %+v, want 8000 Hz mono", got)
	}
	frame, err := src.Read(8)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got := audio.BytesToInt16(frame)
	if len(got) != 2 || got[0] != 200 || got[1] != -200 {
		t.Errorf("downmixed = %v, want [200 -200]", got)
	}
}

func TestSource_MissingFile(t *testing.T) {
	t.Parallel()
	src := wavfile.NewSource(afero.NewMemMapFs(), "/nope.wav")
	if err := src.Open(); !errors.Is(err, audio.ErrDevice) {
		t.Fatalf("Open(missing) err = %v, want ErrDevice", err)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		pcm      []byte
		channels int
		wantData int
	}{
		{name: "mono", pcm: make([]byte, 8), channels: 1, wantData: 8},
		{name: "empty", channels: 1},
		{name: "partial sample dropped", pcm: make([]byte, 9), channels: 1, wantData: 8},
		{name: "partial stereo frame dropped", pcm: make([]byte, 10), channels: 2, wantData: 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			wav, err := wavfile.Encode(audio.Clip{PCM: tt.pcm, Format: audio.Format{SampleRate: 22050, Channels: tt.channels}})
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if len(wav) != 44+tt.wantData {
				t.Fatalf("len = %d, want %d", len(wav), 44+tt.wantData)
			}
			if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" || string(wav[36:40]) != "data" {
				t.Errorf("bad chunk ids: %q", wav[:40])
			}
			if got := binary.LittleEndian.Uint32(wav[4:8]); got != uint32(36+tt.wantData) {
				t.Errorf("riff size = %d, want %d", got, 36+tt.wantData)
			}
			if got := binary.LittleEndian.Uint32(wav[40:44]); got != uint32(tt.wantData) {
				t.Errorf("data size = %d, want %d", got, tt.wantData)
			}
			if got := binary.LittleEndian.Uint32(wav[28:32]); got != uint32(22050*tt.channels*2) {
				t.Errorf("byte rate = %d, want %d", got, 22050*tt.channels*2)
			}
		})
	}
}

func TestSink_WritesNumberedFiles(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	sink := wavfile.NewSink(fs, "/out")
	clip := audio.Clip{PCM: audio.Int16ToBytes([]int16{1, 2, 3}), Format: audio.Format{SampleRate: 22050, Channels: 1}}

	for range 2 {
		if err := sink.Play(context.Background(), clip); err != nil {
			t.Fatalf("Play: %v", err)
		}
	}

	for _, name := range []string{"/out/reply-001.wav", "/out/reply-002.wav"} {
		data, err := afero.ReadFile(fs, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		got, err := wavfile.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("Decode(%s): %v", name, err)
		}
		if got.Format != clip.Format || !bytes.Equal(got.PCM, clip.PCM) {
			t.Errorf("%s = %+v, want %+v", name, got, clip)
		}
	}
}

func TestSink_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fs := afero.NewMemMapFs()
	if err := wavfile.NewSink(fs, "/out").Play(ctx, audio.Clip{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("Play err = %v, want context.Canceled", err)
	}
	if ok, _ := afero.DirExists(fs, "/out"); ok {
		t.Error("cancelled Play created the output directory")
	}
}
