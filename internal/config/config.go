// Package config provides configuration for the voice assistant, derived
// entirely from the process environment (spec.md §6: no command-line flags).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/edna-assistant/edna/internal/sherpa"
)

// Config holds all configuration for the voice assistant. Populated from
// EDNA_* environment variables overlaid on DefaultConfig.
type Config struct {
	// TopDir is EDNA_TOP_DIR: the root model/runtime directory every other
	// path is derived from.
	TopDir string

	// Model paths, derived from TopDir.
	VADModel       string
	WhisperEncoder string
	WhisperDecoder string
	WhisperTokens  string

	STTLanguage string // e.g. "en", "auto"

	// LLM (Ollama) settings.
	OllamaURL    string
	OllamaModel  string
	SystemPrompt string
	Temperature  float64
	TopK         int
	TopP         float64
	Seed         int

	// Synthesis subprocess: EDNA_TTS_COQUI_BIN, EDNA_TTS_MODEL, EDNA_TTS_DEVICE.
	TTSBin    string
	TTSModel  string
	TTSDevice string

	// Capture device string, e.g. "plughw:0,0".
	CaptureDevice string
	SampleRate    int

	// Hardware acceleration provider (cpu, cuda, coreml). Auto-detected if empty.
	Provider string

	// Thread counts (0 = auto-detect based on CPU cores).
	NumThreads int
	VADThreads int
	STTThreads int

	// Verbose enables debug logging, from EDNA_VERBOSE.
	Verbose bool
}

// DefaultConfig returns a configuration with sensible defaults, before any
// environment overlay.
func DefaultConfig() *Config {
	return &Config{
		TopDir:      "/opt/edna",
		SampleRate:  16000,
		STTLanguage: "en",

		OllamaURL:    "http://localhost:11434",
		OllamaModel:  "qwen2.5:3b",
		SystemPrompt: "You are Edna, a concise voice assistant. Answer in 1-2 sentences.",
		Temperature:  0.7,
		TopK:         40,
		TopP:         0.9,
		Seed:         0xC0FFEE,

		TTSBin:    "coqui-tts-worker",
		TTSModel:  "",
		TTSDevice: "plughw:CARD=V3,DEV=0",

		CaptureDevice: "plughw:0,0",

		Provider: "",

		NumThreads: 0,
		VADThreads: 0,
		STTThreads: 0,

		Verbose: false,
	}
}

// Load overlays EDNA_* environment variables onto DefaultConfig, derives
// model paths from TopDir, auto-detects provider and thread counts, and
// validates that required model files exist.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("EDNA_TOP_DIR"); v != "" {
		cfg.TopDir = v
	}
	if v := os.Getenv("EDNA_TTS_COQUI_BIN"); v != "" {
		cfg.TTSBin = v
	}
	if v := os.Getenv("EDNA_TTS_MODEL"); v != "" {
		cfg.TTSModel = v
	}
	if v := os.Getenv("EDNA_TTS_DEVICE"); v != "" {
		cfg.TTSDevice = v
	}
	if v := os.Getenv("EDNA_CAPTURE_DEVICE"); v != "" {
		cfg.CaptureDevice = v
	}
	if v := os.Getenv("EDNA_OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("EDNA_OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("EDNA_STT_LANGUAGE"); v != "" {
		cfg.STTLanguage = v
	}
	if v := os.Getenv("EDNA_PROVIDER"); v != "" {
		cfg.Provider = v
	}
	if os.Getenv("EDNA_VERBOSE") != "" {
		cfg.Verbose = true
	}

	// Speech recognition model lives under third_party/whisper.cpp in the
	// original layout; sherpa-onnx's offline Whisper recognizer wants an
	// encoder/decoder/tokens triple rather than a single ggml blob, so the
	// three paths are derived siblings under the same model directory.
	whisperDir := filepath.Join(cfg.TopDir, "third_party", "whisper.cpp", "models")
	cfg.WhisperEncoder = filepath.Join(whisperDir, "ggml-base.en-encoder.onnx")
	cfg.WhisperDecoder = filepath.Join(whisperDir, "ggml-base.en-decoder.onnx")
	cfg.WhisperTokens = filepath.Join(whisperDir, "ggml-base.en-tokens.txt")

	cfg.VADModel = filepath.Join(cfg.TopDir, "models", "silero_vad.onnx")

	if cfg.Provider == "" {
		cfg.Provider = detectProvider()
	}

	cfg.normalizeThreadCounts()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// normalizeThreadCounts auto-detects reasonable thread counts based on CPU
// cores when not otherwise specified.
func (c *Config) normalizeThreadCounts() {
	cpuCores := runtime.NumCPU()

	if c.NumThreads == 0 {
		c.NumThreads = max(1, cpuCores/3)
	}
	if c.VADThreads == 0 {
		c.VADThreads = 1
	}
	if c.STTThreads == 0 {
		c.STTThreads = c.NumThreads
	}

	if c.Verbose {
		fmt.Fprintf(os.Stderr, "[Config] CPU cores: %d, threads: VAD=%d STT=%d\n", cpuCores, c.VADThreads, c.STTThreads)
	}
}

func (c *Config) validate() error {
	requiredFiles := []string{
		c.VADModel,
		c.WhisperEncoder,
		c.WhisperDecoder,
		c.WhisperTokens,
	}

	for _, path := range requiredFiles {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return fmt.Errorf("required file not found: %s (set EDNA_TOP_DIR to point at a valid model tree)", path)
		}
	}

	return nil
}

// detectProvider auto-detects the best hardware acceleration provider for
// the current platform.
func detectProvider() string {
	switch runtime.GOOS {
	case "darwin":
		return "coreml"
	case "linux":
		if sherpa.HasNvidiaGPU() {
			return "cuda"
		}
		return "cpu"
	default:
		return "cpu"
	}
}
