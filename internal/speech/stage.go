package speech

import (
	"context"
	"log"
)

// SubprocessSpeaker is the production Speaker: synthesize via SynthWorker,
// then play the resulting WAV file via Player.
type SubprocessSpeaker struct {
	synth  *SynthWorker
	player *Player
}

// NewSubprocessSpeaker wires a synthesis worker to a player.
func NewSubprocessSpeaker(synth *SynthWorker, player *Player) *SubprocessSpeaker {
	return &SubprocessSpeaker{synth: synth, player: player}
}

// Speak synthesizes text to a WAV file and plays it. Synthesis failures
// (including a disabled worker) and playback failures are both reported
// to the caller; the Stage logs and continues rather than propagating
// them as fatal.
func (s *SubprocessSpeaker) Speak(text string) error {
	path, err := s.synth.Synthesize(context.Background(), text)
	if err != nil {
		return err
	}
	return s.player.Play(path)
}

// Close shuts down the synthesis subprocess.
func (s *SubprocessSpeaker) Close() {
	s.synth.Close()
}

// TtsDoneFunc is invoked exactly once per reply, after every chunk has
// been attempted, regardless of success (spec.md §4.6).
type TtsDoneFunc func()

// Stage splits a reply into sentences and speaks each in turn.
type Stage struct {
	speaker Speaker
	onDone  TtsDoneFunc
}

// NewStage wires a Speaker and the completion callback.
func NewStage(speaker Speaker, onDone TtsDoneFunc) *Stage {
	return &Stage{speaker: speaker, onDone: onDone}
}

// Run splits reply into sentences, speaks each one in order, and always
// invokes the TtsDone callback afterward. A failure on any one chunk is
// logged and does not stop the remaining chunks or fault the caller.
func (s *Stage) Run(reply string) {
	defer s.onDone()

	for _, sentence := range SplitSentences(reply) {
		if err := s.speaker.Speak(sentence); err != nil {
			log.Printf("speech: chunk failed: %v", err)
		}
	}
}
