package brain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaConfig configures an OllamaChatter.
type OllamaConfig struct {
	Host            string
	Model           string
	SystemPrompt    string // defaults to DefaultSystemPrompt if empty
	Temperature     float64
	TopK            int
	TopP            float64
	Seed            int
	MaxPromptChars  int
	MaxNewTokens    int
	// StopOnNewline overrides DefaultStopOnNewline when non-nil.
	StopOnNewline *bool
	Verbose       bool
}

// OllamaChatter sends every turn as a single raw, stateless completion
// request — no chat history is kept, matching spec.md §4.5's "every turn
// stateless" requirement. Grounded on the teacher's internal/llm/client.go
// connection-pooled http.Client and api.Client construction, with the
// history/trimHistory machinery removed and the sampler chain mapped onto
// api.GenerateRequest.Options.
type OllamaChatter struct {
	client *api.Client
	cfg    OllamaConfig

	// mu serializes all engine access: the LLM is not thread-safe
	// (spec.md §4.5 concurrency note).
	mu sync.Mutex
}

// NewOllamaChatter builds a client against an already-running Ollama
// server; the model itself is loaded by that server, once, outside Edna's
// control.
func NewOllamaChatter(cfg OllamaConfig) (*OllamaChatter, error) {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxPromptChars <= 0 {
		cfg.MaxPromptChars = DefaultMaxPromptChars
	}
	if cfg.MaxNewTokens <= 0 {
		cfg.MaxNewTokens = DefaultMaxNewTokens
	}

	host := strings.TrimSuffix(cfg.Host, "/")
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("brain: invalid ollama host %q: %w", cfg.Host, err)
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &OllamaChatter{
		client: api.NewClient(parsed, httpClient),
		cfg:    cfg,
	}, nil
}

// Chat builds a fresh raw prompt, applies the sampler chain, and returns
// the cleaned reply. Re-creating the request from scratch every call is
// what makes the turn stateless (spec.md §4.5 step 1): there is no local
// context object to tear down since the engine lives in the Ollama server
// process, so the per-turn "re-create context" step has no Go-side
// analogue beyond simply not sending prior turns.
func (c *OllamaChatter) Chat(ctx context.Context, command string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prompt := truncatePrompt(buildPrompt(c.cfg.SystemPrompt, command), c.cfg.MaxPromptChars)

	options := map[string]any{
		"temperature": valueOr(c.cfg.Temperature, DefaultTemperature),
		"top_k":       valueOrInt(c.cfg.TopK, DefaultTopK),
		"top_p":       valueOr(c.cfg.TopP, DefaultTopP),
		"seed":        valueOrInt(c.cfg.Seed, DefaultSeed),
		"num_predict": c.cfg.MaxNewTokens,
	}
	stopOnNewline := DefaultStopOnNewline
	if c.cfg.StopOnNewline != nil {
		stopOnNewline = *c.cfg.StopOnNewline
	}
	if stopOnNewline {
		options["stop"] = []string{"\n"}
	}

	stream := false
	var response api.GenerateResponse
	err := c.client.Generate(ctx, &api.GenerateRequest{
		Model:   c.cfg.Model,
		Prompt:  prompt,
		Raw:     true,
		Stream:  &stream,
		Options: options,
	}, func(resp api.GenerateResponse) error {
		response = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("brain: generate request failed: %w", err)
	}

	return cleanReply(response.Response), nil
}

// Close is a no-op: the HTTP client owns no resources that need explicit
// release, and the Ollama server's model lifecycle is outside Edna.
func (c *OllamaChatter) Close() {}

// HealthCheck verifies the Ollama server is reachable.
func (c *OllamaChatter) HealthCheck(ctx context.Context) error {
	if err := c.client.Heartbeat(ctx); err != nil {
		return fmt.Errorf("brain: cannot reach ollama: %w", err)
	}
	return nil
}

func valueOr(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func valueOrInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

