// Package audio implements the real-time microphone capture loop and the
// VAD-driven utterance segmenter described in spec.md §4.2.
package audio

const (
	// SampleRate is the fixed capture rate in Hz (spec.md §3).
	SampleRate = 16000

	// FrameMillis is the fixed frame duration.
	FrameMillis = 20

	// FrameSamples is the number of int16 samples per frame (16kHz * 20ms).
	FrameSamples = SampleRate * FrameMillis / 1000

	// PreRollFrames is the number of frames kept in the pre-roll ring
	// (300ms / 20ms).
	PreRollFrames = 15

	// StartTriggerFrames is the run of voiced frames required to confirm
	// speech onset (60ms / 20ms).
	StartTriggerFrames = 3

	// StopTriggerFrames is the run of unvoiced frames required to confirm
	// speech end (400ms / 20ms).
	StopTriggerFrames = 20

	// CooldownFrames is armed after playback ends, covering speaker tail
	// (600ms / 20ms, rounded up).
	CooldownFrames = 30

	// MinUtteranceMillis is the minimum utterance duration to enqueue.
	MinUtteranceMillis = 200

	// MaxUtteranceMillis bounds utterance growth.
	MaxUtteranceMillis = 10000
)

// Frame is one fixed-duration block of 16-bit signed little-endian mono
// samples at 16kHz. Immutable once produced.
type Frame struct {
	Samples [FrameSamples]int16
}

// DurationMillis returns the duration in milliseconds represented by
// numSamples int16 samples at SampleRate.
func DurationMillis(numSamples int) int {
	return numSamples * 1000 / SampleRate
}
