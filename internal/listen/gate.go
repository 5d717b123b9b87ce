package listen

import "github.com/MrWong99/vaani/pkg/audio"

// NoiseGate rejects frames whose energy is below Threshold. Rejected frames
// are never fed to the recogniser.
type NoiseGate struct {
	// Threshold is the minimum RMS amplitude of an accepted frame, in 16-bit
	// sample units. Zero accepts every frame.
	Threshold float64
}

// Accept reports whether frame is loud enough to pass. A frame with RMS
// strictly below the threshold is rejected; an empty frame has RMS 0.
func (g NoiseGate) Accept(frame []byte) bool {
	return audio.RMS(frame) >= g.Threshold
}
