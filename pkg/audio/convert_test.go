package audio_test

import (
	"math"
	"testing"
	"time"

	"github.com/MrWong99/vaani/pkg/audio"
)

func TestRMS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", []int16{0, 0, 0, 0}, 0},
		{"constant", []int16{1000, -1000, 1000, -1000}, 1000},
		{"mixed", []int16{3, 4}, math.Sqrt(12.5)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := audio.RMS(audio.Int16ToBytes(tc.samples))
			if math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("RMS(%v) = %f, want %f", tc.samples, got, tc.want)
			}
		})
	}
}

func TestRMS_IgnoresTrailingOddByte(t *testing.T) {
	t.Parallel()
	pcm := append(audio.Int16ToBytes([]int16{500, -500}), 0x7f)
	if got := audio.RMS(pcm); got != 500 {
		t.Errorf("RMS = %f, want 500", got)
	}
}

func TestInt16RoundTrip(t *testing.T) {
	t.Parallel()
	in := []int16{math.MinInt16, -1, 0, 1, math.MaxInt16}
	got := audio.BytesToInt16(audio.Int16ToBytes(in))
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], in[i])
		}
	}
}

func TestPCMToFloat32Mono(t *testing.T) {
	t.Parallel()
	stereo := audio.Int16ToBytes([]int16{16384, -16384, 16384, 16384})
	got := audio.PCMToFloat32Mono(stereo, 2)
	want := []float32{0, 0.5}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()
	stereo := audio.Int16ToBytes([]int16{100, 200, -100, -200, 32767, 32767})
	got := audio.BytesToInt16(audio.StereoToMono(stereo))
	want := []int16{150, -150, 32767}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleMono16(t *testing.T) {
	t.Parallel()
	pcm := audio.Int16ToBytes(make([]int16, 22050))
	out := audio.ResampleMono16(pcm, 22050, 16000)
	if got := len(out) / 2; got != 16000 {
		t.Errorf("resampled length = %d samples, want 16000", got)
	}
	if same := audio.ResampleMono16(pcm, 16000, 16000); len(same) != len(pcm) {
		t.Error("same-rate resample should return input unchanged")
	}
}

func TestConvertClip(t *testing.T) {
	t.Parallel()
	clip := audio.Clip{
		PCM:    audio.Int16ToBytes(make([]int16, 2*22050)),
		Format: audio.Format{SampleRate: 22050, Channels: 2},
	}
	target := audio.Format{SampleRate: 16000, Channels: 1}
	got := audio.ConvertClip(clip, target)
	if got.Format != target {
		t.Fatalf("format = %+v, want %+v", got.Format, target)
	}
	if d := got.Duration(); d != time.Second {
		t.Errorf("duration = %v, want 1s", d)
	}
}

func TestFormat_FrameDuration(t *testing.T) {
	t.Parallel()
	f := audio.Format{SampleRate: 16000, Channels: 1}
	if got := f.FrameDuration(4000); got != 250*time.Millisecond {
		t.Errorf("FrameDuration(4000) = %v, want 250ms", got)
	}
	if got := (audio.Format{}).FrameDuration(4000); got != 0 {
		t.Errorf("zero format FrameDuration = %v, want 0", got)
	}
}
