package audio

import (
	"errors"

	"github.com/edna-assistant/edna/internal/pipeline"
	"github.com/edna-assistant/edna/internal/state"
	"github.com/edna-assistant/edna/internal/vad"
)

// ErrFatalDetector is returned by ProcessFrame when the VAD reports a fatal
// ternary result (spec.md §4.2 step 5: "−1 is fatal").
var ErrFatalDetector = errors.New("audio: vad detector returned fatal result")

// Segmenter implements the hysteresis voice-activity segmenter: pre-roll
// buffering, voiced/unvoiced run counters, the mic gate driven by the
// state machine, and the post-speaking cooldown. The mic gate covers
// Speaking, Transcribing, and Thinking, plus the cooldown tail after
// Speaking ends — any captured audio during those phases is discarded
// and the utterance queue is cleared (the command queue is not touched).
type Segmenter struct {
	detector vad.Detector
	machine  *state.Machine
	queue    *pipeline.UtteranceQueue

	preRoll     [][]int16
	inSpeech    bool
	voicedRun   int
	unvoicedRun int
	utterance   []int16

	cooldown        int
	prevWasSpeaking bool
}

// NewSegmenter wires a detector, the pipeline state machine, and the
// utterance queue into a segmenter ready to process frames.
func NewSegmenter(detector vad.Detector, machine *state.Machine, queue *pipeline.UtteranceQueue) *Segmenter {
	return &Segmenter{detector: detector, machine: machine, queue: queue}
}

// ProcessFrame runs one iteration of the audio loop body (spec.md §4.2
// steps 2-7) against a single 20ms frame.
func (s *Segmenter) ProcessFrame(frame []int16) error {
	current := s.machine.Current()

	gated := current == state.Speaking || current == state.Transcribing || current == state.Thinking
	if gated || s.cooldown > 0 {
		if s.cooldown > 0 {
			s.cooldown--
		}
		s.resetAccumulators()
		s.queue.Clear()
		s.prevWasSpeaking = current == state.Speaking
		return nil
	}

	if s.prevWasSpeaking {
		s.cooldown = CooldownFrames
	}
	s.prevWasSpeaking = false

	s.pushPreRoll(frame)

	decision := s.detector.Detect(frame)
	if decision < 0 {
		return ErrFatalDetector
	}

	if !s.inSpeech {
		if decision == 1 {
			s.voicedRun++
		} else {
			s.voicedRun = 0
		}
		if s.voicedRun >= StartTriggerFrames {
			s.inSpeech = true
			s.unvoicedRun = 0
			s.utterance = s.flattenPreRoll()
			s.machine.Dispatch(state.SpeechStart, "")
		}
		return nil
	}

	s.appendUtterance(frame)
	if decision == 0 {
		s.unvoicedRun++
	} else {
		s.unvoicedRun = 0
	}

	if s.unvoicedRun >= StopTriggerFrames {
		s.finalizeUtterance()
	}
	return nil
}

// Shutdown resets the segmentation accumulators (in-speech flag, voiced
// and unvoiced runs, utterance buffer, pre-roll); the cooldown counter is
// left as it is.
func (s *Segmenter) Shutdown() {
	s.resetAccumulators()
}

func (s *Segmenter) resetAccumulators() {
	s.inSpeech = false
	s.voicedRun = 0
	s.unvoicedRun = 0
	s.utterance = nil
	s.preRoll = nil
}

func (s *Segmenter) pushPreRoll(frame []int16) {
	cp := make([]int16, len(frame))
	copy(cp, frame)
	s.preRoll = append(s.preRoll, cp)
	if len(s.preRoll) > PreRollFrames {
		s.preRoll = s.preRoll[len(s.preRoll)-PreRollFrames:]
	}
}

func (s *Segmenter) flattenPreRoll() []int16 {
	total := 0
	for _, f := range s.preRoll {
		total += len(f)
	}
	out := make([]int16, 0, total)
	for _, f := range s.preRoll {
		out = append(out, f...)
	}
	return out
}

const maxUtteranceSamples = MaxUtteranceMillis * SampleRate / 1000

func (s *Segmenter) appendUtterance(frame []int16) {
	if len(s.utterance) >= maxUtteranceSamples {
		return
	}
	room := maxUtteranceSamples - len(s.utterance)
	if room > len(frame) {
		room = len(frame)
	}
	s.utterance = append(s.utterance, frame[:room]...)
}

func (s *Segmenter) finalizeUtterance() {
	s.machine.Dispatch(state.SpeechEndQueued, "")

	if DurationMillis(len(s.utterance)) >= MinUtteranceMillis {
		s.queue.Replace(pipeline.Utterance{Samples: s.utterance})
	}

	s.resetAccumulators()
}
