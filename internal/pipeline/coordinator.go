package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/edna-assistant/edna/internal/asr"
	"github.com/edna-assistant/edna/internal/audio"
	"github.com/edna-assistant/edna/internal/brain"
	"github.com/edna-assistant/edna/internal/speech"
	"github.com/edna-assistant/edna/internal/state"
)

// Coordinator owns the three long-lived threads of the pipeline (spec.md
// §5): the audio/VAD loop (driven from the caller's goroutine via
// RunAudioLoop),
// the ASR worker, and the Brain+Speech worker (speech runs inline in the
// brain worker, as in the teacher's ttsProcessor-called-from-llmProcessor
// shape, only here it's a direct call rather than a channel hop).
type Coordinator struct {
	machine    *state.Machine
	capturer   *audio.Capturer
	segmenter  *audio.Segmenter
	utterances *UtteranceQueue
	commands   *CommandQueue

	transcriber asr.Transcriber
	chatter     brain.Chatter
	speechStage *speech.Stage

	wg sync.WaitGroup
}

// NewCoordinator wires every stage together. speechStage must already be
// constructed with a TtsDoneFunc that dispatches state.TtsDone on machine.
func NewCoordinator(
	machine *state.Machine,
	capturer *audio.Capturer,
	segmenter *audio.Segmenter,
	utterances *UtteranceQueue,
	commands *CommandQueue,
	transcriber asr.Transcriber,
	chatter brain.Chatter,
	speechStage *speech.Stage,
) *Coordinator {
	return &Coordinator{
		machine:     machine,
		capturer:    capturer,
		segmenter:   segmenter,
		utterances:  utterances,
		commands:    commands,
		transcriber: transcriber,
		chatter:     chatter,
		speechStage: speechStage,
	}
}

// Start dispatches state.Start (Boot -> AwaitSpeech) and launches the ASR
// and Brain+Speech worker goroutines. The audio loop itself is not
// launched here; the caller drives it on its own thread via RunAudioLoop,
// matching spec.md §4.2's "runs on the main thread."
func (c *Coordinator) Start() {
	c.machine.Dispatch(state.Start, "")

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.runASRWorker()
	}()
	go func() {
		defer c.wg.Done()
		c.runBrainWorker()
	}()
}

// RunAudioLoop reads frames from the capturer and feeds the segmenter
// until the capturer is closed or ReadFrame returns a fatal error.
// Intended to run on the caller's own goroutine (the "main thread" of
// spec.md §4.2). Returns the error that ended the loop, or nil on a clean
// shutdown (audio.ErrCaptureClosed).
func (c *Coordinator) RunAudioLoop() error {
	for {
		frame, err := c.capturer.ReadFrame()
		if err != nil {
			if err == audio.ErrCaptureClosed {
				return nil
			}
			return err
		}
		if err := c.segmenter.ProcessFrame(frame); err != nil {
			return err
		}
	}
}

// runASRWorker is the ASR stage: blocks on the utterance queue, transcribes,
// strips the invocation, and either enqueues a command or dispatches
// NoCommand (spec.md §4.3).
func (c *Coordinator) runASRWorker() {
	for {
		utterance, ok := c.utterances.Take()
		if !ok {
			return
		}

		text, err := c.transcriber.Transcribe(utterance.Samples, audio.SampleRate)
		if err != nil {
			text = ""
		}
		text = trimBlankAudio(text)

		if len(text) < 2 {
			c.machine.Dispatch(state.NoCommand, "blank audio")
			continue
		}

		printTranscript(text)

		command, matched := asr.Strip(text)
		if !matched {
			c.machine.Dispatch(state.NoCommand, "ignored transcript")
			continue
		}
		if command == "" {
			c.machine.Dispatch(state.NoCommand, "invocation only")
			continue
		}

		c.machine.Dispatch(state.TranscriptReady, "")
		c.commands.Enqueue(command)
	}
}

// runBrainWorker is the Brain+Speech worker: blocks on the command queue,
// asks the Chatter for a reply, and runs the Speech stage inline
// (spec.md §4.5 step 7, §4.6 "runs inline in the brain worker").
func (c *Coordinator) runBrainWorker() {
	for {
		command, ok := c.commands.Take()
		if !ok {
			return
		}

		reply, err := c.chatter.Chat(context.Background(), command)
		if err != nil {
			reply = "I'm sorry, I ran into a problem answering that."
		}

		if reply == "" {
			c.machine.Dispatch(state.NoCommand, "empty reply")
			continue
		}

		c.machine.Dispatch(state.ReplyReady, "")
		printReply(reply)
		c.speechStage.Run(reply)
	}
}

// trimBlankAudio trims whitespace and maps the ASR sentinel for silence to
// empty text (spec.md §4.3 step 4).
func trimBlankAudio(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "[BLANK_AUDIO]" {
		return ""
	}
	return trimmed
}

// Shutdown dispatches state.Stop, closes the queues so the ASR and Brain
// workers exit, then waits for them to finish (spec.md §4.2 step 8, §5
// cancellation). The caller is responsible for closing the capturer (which
// ends RunAudioLoop) before calling Shutdown.
func (c *Coordinator) Shutdown() {
	c.machine.Dispatch(state.Stop, "")
	c.utterances.Close()
	c.commands.Close()
	c.wg.Wait()
}
