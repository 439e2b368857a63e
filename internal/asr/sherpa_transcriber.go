package asr

import (
	"errors"
	"strings"

	"github.com/edna-assistant/edna/internal/sherpa"
)

// SherpaConfig configures the offline Whisper recognizer underlying
// SherpaTranscriber.
type SherpaConfig struct {
	Encoder    string
	Decoder    string
	Tokens     string
	Language   string // "auto" maps to "" (Whisper auto-detection)
	Provider   string
	NumThreads int
	Verbose    bool
}

// SherpaTranscriber decodes one utterance per call using sherpa-onnx's
// offline Whisper recognizer: single_segment, no prior context, greedy
// search (spec.md §4.3). Grounded on the teacher's
// internal/stt/recognizer.go TranscribeSegment, stripped of its
// streaming segment-channel machinery since each call here already
// receives a complete, finalized utterance.
type SherpaTranscriber struct {
	recognizer *sherpa.OfflineRecognizer
}

// NewSherpaTranscriber loads the Whisper encoder/decoder/tokens once.
func NewSherpaTranscriber(cfg *SherpaConfig) (*SherpaTranscriber, error) {
	rc := &sherpa.OfflineRecognizerConfig{}
	rc.ModelConfig.Whisper.Encoder = cfg.Encoder
	rc.ModelConfig.Whisper.Decoder = cfg.Decoder

	language := cfg.Language
	if strings.EqualFold(language, "auto") {
		language = ""
	}
	rc.ModelConfig.Whisper.Language = language
	rc.ModelConfig.Whisper.Task = "transcribe"
	rc.ModelConfig.Whisper.TailPaddings = -1
	rc.ModelConfig.Tokens = cfg.Tokens
	rc.ModelConfig.NumThreads = cfg.NumThreads
	rc.ModelConfig.Provider = cfg.Provider
	rc.DecodingMethod = "greedy_search"
	rc.ModelConfig.Debug = 0
	if cfg.Verbose {
		rc.ModelConfig.Debug = 1
	}

	recognizer := sherpa.NewOfflineRecognizer(rc)
	if recognizer == nil {
		return nil, errors.New("asr: failed to create offline recognizer")
	}
	return &SherpaTranscriber{recognizer: recognizer}, nil
}

// Transcribe decodes one complete utterance and returns its trimmed text.
func (t *SherpaTranscriber) Transcribe(samples []int16, sampleRate int) (string, error) {
	if len(samples) == 0 {
		return "", nil
	}

	floats := make([]float32, len(samples))
	for i, s := range samples {
		floats[i] = float32(s) / 32768.0
	}

	stream := sherpa.NewOfflineStream(t.recognizer)
	if stream == nil {
		return "", errors.New("asr: failed to create offline stream")
	}
	defer sherpa.DeleteOfflineStream(stream)

	stream.AcceptWaveform(sampleRate, floats)
	t.recognizer.Decode(stream)

	result := stream.GetResult()
	return strings.TrimSpace(result.Text), nil
}

// Close releases the native recognizer.
func (t *SherpaTranscriber) Close() {
	if t.recognizer != nil {
		sherpa.DeleteOfflineRecognizer(t.recognizer)
		t.recognizer = nil
	}
}
