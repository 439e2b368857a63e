package pipeline

import (
	"sync"
	"testing"
	"time"

	"github.com/edna-assistant/edna/internal/asr"
	"github.com/edna-assistant/edna/internal/brain"
	"github.com/edna-assistant/edna/internal/speech"
	"github.com/edna-assistant/edna/internal/state"
)

// transitionLog records the destination state of every transition the
// state machine makes, for assertions against spec.md §8 scenario 6's
// expected sequence.
type transitionLog struct {
	mu   sync.Mutex
	seen []state.State
}

func (l *transitionLog) observe(from, to state.State, event state.Event, note string) {
	if to == from {
		return
	}
	l.mu.Lock()
	l.seen = append(l.seen, to)
	l.mu.Unlock()
}

func (l *transitionLog) snapshot() []state.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]state.State, len(l.seen))
	copy(out, l.seen)
	return out
}

func newTestCoordinator(transcriber asr.Transcriber, chatter brain.Chatter, speaker speech.Speaker) (*Coordinator, *state.Machine, *transitionLog) {
	log := &transitionLog{}
	machine := state.New(log.observe)
	utterances := NewUtteranceQueue()
	commands := NewCommandQueue()

	var stage *speech.Stage
	stage = speech.NewStage(speaker, func() { machine.Dispatch(state.TtsDone, "") })

	c := &Coordinator{
		machine:     machine,
		utterances:  utterances,
		commands:    commands,
		transcriber: transcriber,
		chatter:     chatter,
		speechStage: stage,
	}
	return c, machine, log
}

func waitForState(t *testing.T, machine *state.Machine, want state.State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if machine.Current() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for state %s, still %s", want, machine.Current())
}

// TestCoordinatorNonInvocationTranscriptIsIgnored is spec.md §8 scenario 4.
func TestCoordinatorNonInvocationTranscriptIsIgnored(t *testing.T) {
	transcriber := &asr.StubTranscriber{Text: "What time is it"}
	chatter := &brain.StubChatter{}
	speaker := &speech.StubSpeaker{}

	c, machine, _ := newTestCoordinator(transcriber, chatter, speaker)
	machine.Dispatch(state.Start, "")
	machine.Dispatch(state.SpeechStart, "")
	machine.Dispatch(state.SpeechEndQueued, "")

	go c.runASRWorker()
	c.utterances.Replace(Utterance{Samples: []int16{1, 2, 3}})

	waitForState(t, machine, state.AwaitSpeech)
	c.utterances.Close()

	if chatter.LastCommand != "" {
		t.Fatalf("brain stage should never have been reached, got command %q", chatter.LastCommand)
	}
}

// TestCoordinatorInvocationOnlyYieldsNoCommand is spec.md §8 scenario 5.
func TestCoordinatorInvocationOnlyYieldsNoCommand(t *testing.T) {
	transcriber := &asr.StubTranscriber{Text: "Hey Edna."}
	chatter := &brain.StubChatter{}
	speaker := &speech.StubSpeaker{}

	c, machine, _ := newTestCoordinator(transcriber, chatter, speaker)
	machine.Dispatch(state.Start, "")
	machine.Dispatch(state.SpeechStart, "")
	machine.Dispatch(state.SpeechEndQueued, "")

	go c.runASRWorker()
	c.utterances.Replace(Utterance{Samples: []int16{1, 2, 3}})

	waitForState(t, machine, state.AwaitSpeech)
	c.utterances.Close()

	if chatter.LastCommand != "" {
		t.Fatalf("brain stage should never have been reached, got command %q", chatter.LastCommand)
	}
}

// TestCoordinatorFullTurn is spec.md §8 scenario 6.
func TestCoordinatorFullTurn(t *testing.T) {
	transcriber := &asr.StubTranscriber{Text: "Edna what is the sky color"}
	chatter := &brain.StubChatter{Reply: "The sky is blue. Usually."}
	speaker := &speech.StubSpeaker{}

	c, machine, log := newTestCoordinator(transcriber, chatter, speaker)
	machine.Dispatch(state.Start, "")
	machine.Dispatch(state.SpeechStart, "")
	machine.Dispatch(state.SpeechEndQueued, "")

	go c.runASRWorker()
	go c.runBrainWorker()

	c.utterances.Replace(Utterance{Samples: []int16{1, 2, 3}})

	waitForState(t, machine, state.AwaitSpeech)
	c.utterances.Close()
	c.commands.Close()

	if chatter.LastCommand != "what is the sky color" {
		t.Fatalf("command = %q, want %q", chatter.LastCommand, "what is the sky color")
	}

	want := []string{"The sky is blue.", "Usually."}
	if len(speaker.Spoken) != len(want) {
		t.Fatalf("spoke %d chunks, want %d: %v", len(speaker.Spoken), len(want), speaker.Spoken)
	}
	for i, w := range want {
		if speaker.Spoken[i] != w {
			t.Errorf("chunk %d = %q, want %q", i, speaker.Spoken[i], w)
		}
	}

	transitions := log.snapshot()
	foundThinking, foundSpeaking := false, false
	for _, st := range transitions {
		if st == state.Thinking {
			foundThinking = true
		}
		if st == state.Speaking {
			foundSpeaking = true
		}
	}
	if !foundThinking || !foundSpeaking {
		t.Fatalf("expected Thinking and Speaking to be visited, got %v", transitions)
	}
	if transitions[len(transitions)-1] != state.AwaitSpeech {
		t.Fatalf("expected pipeline to return to AwaitSpeech, last state = %v", transitions[len(transitions)-1])
	}
}
