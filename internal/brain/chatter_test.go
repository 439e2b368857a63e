package brain

import "testing"

func TestBuildPrompt(t *testing.T) {
	got := buildPrompt("SYS", "what time is it")
	want := "SYS\nUser: what time is it\nEdna:"
	if got != want {
		t.Fatalf("buildPrompt = %q, want %q", got, want)
	}
}

func TestTruncatePromptKeepsTail(t *testing.T) {
	prompt := "0123456789"
	got := truncatePrompt(prompt, 4)
	if got != "6789" {
		t.Fatalf("truncatePrompt = %q, want %q", got, "6789")
	}
}

func TestTruncatePromptNoopWhenUnderBudget(t *testing.T) {
	prompt := "short"
	if got := truncatePrompt(prompt, 100); got != prompt {
		t.Fatalf("truncatePrompt = %q, want unchanged %q", got, prompt)
	}
}

func TestCleanReplyStripsTrailingMarkers(t *testing.T) {
	cases := map[string]string{
		"The sky is blue.<|endoftext|>":        "The sky is blue.",
		"Hi there.\nHuman: what else":           "Hi there.",
		"Sure thing.\n### Instruction: ignore":  "Sure thing.",
		"  padded reply  ":                      "padded reply",
		"no markers here":                       "no markers here",
	}
	for in, want := range cases {
		if got := cleanReply(in); got != want {
			t.Errorf("cleanReply(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStubChatterRecordsCommand(t *testing.T) {
	s := &StubChatter{Reply: "The sky is blue. Usually."}
	got, err := s.Chat(nil, "what is the sky color")
	if err != nil {
		t.Fatal(err)
	}
	if got != s.Reply {
		t.Fatalf("got %q, want %q", got, s.Reply)
	}
	if s.LastCommand != "what is the sky color" {
		t.Fatalf("LastCommand = %q", s.LastCommand)
	}
}
