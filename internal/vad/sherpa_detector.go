package vad

import (
	"errors"

	"github.com/edna-assistant/edna/internal/sherpa"
)

// SherpaConfig configures the Silero VAD model underlying SherpaDetector.
type SherpaConfig struct {
	ModelPath  string
	Threshold  float32
	Provider   string // cpu or cuda
	NumThreads int
	Verbose    bool
}

// SherpaDetector classifies frames using sherpa-onnx's Silero VAD model,
// one 20ms frame at a time. Grounded on the teacher's
// internal/stt/recognizer.go AcceptWaveform/IsSpeech pattern, narrowed to a
// single-frame call since hysteresis lives in the segmenter (spec.md §4.2),
// not here.
type SherpaDetector struct {
	vad *sherpa.VoiceActivityDetector
}

// NewSherpaDetector loads the Silero VAD model.
func NewSherpaDetector(cfg *SherpaConfig) (*SherpaDetector, error) {
	vadConfig := &sherpa.VadModelConfig{}
	vadConfig.SileroVad.Model = cfg.ModelPath
	vadConfig.SileroVad.Threshold = cfg.Threshold
	// MinSilenceDuration/MinSpeechDuration/MaxSpeechDuration govern the
	// model's own internal segment buffer, which Edna does not consult —
	// the segmenter owns hysteresis — but sherpa requires non-zero values
	// to construct the model.
	vadConfig.SileroVad.MinSilenceDuration = 0.4
	vadConfig.SileroVad.MinSpeechDuration = 0.06
	vadConfig.SileroVad.MaxSpeechDuration = 10.0
	vadConfig.SileroVad.WindowSize = 512
	vadConfig.SampleRate = 16000
	vadConfig.NumThreads = cfg.NumThreads
	vadConfig.Debug = 0
	if cfg.Verbose {
		vadConfig.Debug = 1
	}

	v := sherpa.NewVoiceActivityDetector(vadConfig, 60.0)
	if v == nil {
		return nil, errors.New("vad: failed to create VAD model")
	}
	return &SherpaDetector{vad: v}, nil
}

// Detect feeds one frame and returns the ternary voiced decision.
func (d *SherpaDetector) Detect(frame []int16) int {
	if d.vad == nil {
		return -1
	}
	samples := make([]float32, len(frame))
	for i, s := range frame {
		samples[i] = float32(s) / 32768.0
	}
	d.vad.AcceptWaveform(samples)
	// Drain any segment the model's internal buffer produced; Edna
	// doesn't use the segments themselves, only the live speech flag.
	for !d.vad.IsEmpty() {
		d.vad.Pop()
	}
	if d.vad.IsSpeech() {
		return 1
	}
	return 0
}

// Close releases the native model.
func (d *SherpaDetector) Close() {
	if d.vad != nil {
		sherpa.DeleteVoiceActivityDetector(d.vad)
		d.vad = nil
	}
}
