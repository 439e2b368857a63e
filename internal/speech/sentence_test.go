package speech

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentencesTwoFragments(t *testing.T) {
	got := SplitSentences("The sky is blue. Usually.")
	want := []string{"The sky is blue.", "Usually."}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSplitSentencesDropsEmptyFragments(t *testing.T) {
	got := SplitSentences("Hi!   How are you?")
	want := []string{"Hi!", "How are you?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSplitSentencesNoTerminalPunctuation(t *testing.T) {
	got := SplitSentences("just a fragment with no ending")
	want := []string{"just a fragment with no ending"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSplitSentencesSoftWrapsSingleLongFragment(t *testing.T) {
	long := strings.Repeat("a ", 200) // no terminal punctuation, > 180 chars
	got := SplitSentences(long)
	if len(got) < 2 {
		t.Fatalf("expected soft-wrap to produce multiple chunks, got %d", len(got))
	}
	for _, chunk := range got {
		if len(chunk) > SoftWrapWidth {
			t.Errorf("chunk exceeds soft wrap width: %d chars", len(chunk))
		}
	}
}

func TestSplitSentencesEmptyInput(t *testing.T) {
	got := SplitSentences("")
	if got != nil {
		t.Fatalf("expected nil for empty input, got %#v", got)
	}
}
