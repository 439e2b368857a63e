// Edna is a fully local, real-time voice assistant: it listens on a
// microphone, transcribes commands, answers them with a local language
// model, and speaks the reply through a loudspeaker.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/edna-assistant/edna/internal/asr"
	"github.com/edna-assistant/edna/internal/audio"
	"github.com/edna-assistant/edna/internal/brain"
	"github.com/edna-assistant/edna/internal/config"
	"github.com/edna-assistant/edna/internal/pipeline"
	"github.com/edna-assistant/edna/internal/speech"
	"github.com/edna-assistant/edna/internal/state"
	"github.com/edna-assistant/edna/internal/vad"
)

func main() {
	os.Exit(run())
}

// run does all setup and teardown so that deferred Close calls actually
// execute before the process exits with the right status code (os.Exit
// itself never runs deferred functions).
func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return 1
	}

	log.Println("🎤 Edna starting...")
	log.Printf("⚡ acceleration: %s", cfg.Provider)

	detector, err := vad.NewSherpaDetector(&vad.SherpaConfig{
		ModelPath:  cfg.VADModel,
		Threshold:  0.5,
		Provider:   cfg.Provider,
		NumThreads: cfg.VADThreads,
		Verbose:    cfg.Verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load VAD model: %v\n", err)
		return 1
	}
	defer detector.Close()
	log.Println("✅ VAD ready")

	log.Println("🧠 Loading speech recognition model...")
	transcriber, err := asr.NewSherpaTranscriber(&asr.SherpaConfig{
		Encoder:    cfg.WhisperEncoder,
		Decoder:    cfg.WhisperDecoder,
		Tokens:     cfg.WhisperTokens,
		Language:   cfg.STTLanguage,
		Provider:   cfg.Provider,
		NumThreads: cfg.STTThreads,
		Verbose:    cfg.Verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load speech recognition model: %v\n", err)
		return 1
	}
	defer transcriber.Close()
	log.Println("✅ Speech recognition ready")

	chatter, err := brain.NewOllamaChatter(brain.OllamaConfig{
		Host:         cfg.OllamaURL,
		Model:        cfg.OllamaModel,
		SystemPrompt: cfg.SystemPrompt,
		Temperature:  cfg.Temperature,
		TopK:         cfg.TopK,
		TopP:         cfg.TopP,
		Seed:         cfg.Seed,
		Verbose:      cfg.Verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create Ollama client: %v\n", err)
		return 1
	}
	defer chatter.Close()

	log.Printf("🔗 Checking Ollama connection at %s...", cfg.OllamaURL)
	if err := chatter.HealthCheck(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Ollama connection failed: %v\n", err)
		return 1
	}
	log.Printf("✅ Ollama connected (model: %s)", cfg.OllamaModel)

	synthWorker, err := speech.NewSynthWorker(cfg.TTSBin, "--model", cfg.TTSModel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start synthesis subprocess: %v\n", err)
		return 1
	}
	if synthWorker.Disabled() {
		log.Println("⚠️  Synthesis subprocess failed its handshake; replies will be printed only")
	} else {
		log.Println("✅ Synthesis ready")
	}

	player := speech.NewPlayer("aplay", "-D", cfg.TTSDevice)
	speaker := speech.NewSubprocessSpeaker(synthWorker, player)
	defer speaker.Close()

	capturer, err := audio.NewCapturer(cfg.SampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open capture device: %v\n", err)
		return 1
	}
	if err := capturer.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start audio capture: %v\n", err)
		return 1
	}
	defer capturer.Close()

	machine := state.New(func(from, to state.State, event state.Event, note string) {
		if cfg.Verbose {
			log.Printf("[state] %s -> %s (%s %s)", from, to, event, note)
		}
	})

	utterances := pipeline.NewUtteranceQueue()
	commands := pipeline.NewCommandQueue()
	segmenter := audio.NewSegmenter(detector, machine, utterances)

	stage := speech.NewStage(speaker, func() { machine.Dispatch(state.TtsDone, "") })
	coordinator := pipeline.NewCoordinator(machine, capturer, segmenter, utterances, commands, transcriber, chatter, stage)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	coordinator.Start()
	log.Println("🎙️ Listening... (speak to interact, Ctrl+C to quit)")

	audioErrCh := make(chan error, 1)
	go func() {
		audioErrCh <- coordinator.RunAudioLoop()
	}()

	select {
	case <-sigChan:
		log.Println("🛑 Shutting down...")
		capturer.Close()
		<-audioErrCh
		coordinator.Shutdown()
		log.Println("✅ Shutdown complete")
		return 0
	case err := <-audioErrCh:
		fmt.Fprintf(os.Stderr, "Fatal audio capture error: %v\n", err)
		coordinator.Shutdown()
		return 1
	}
}

func init() {
	log.SetFlags(log.Ltime)
	log.SetOutput(os.Stderr)
}
