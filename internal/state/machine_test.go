package state

import (
	"sync"
	"testing"
)

func TestApplyTransitionTable(t *testing.T) {
	tests := []struct {
		from  State
		event Event
		want  State
		ok    bool
	}{
		{Boot, Start, AwaitSpeech, true},
		{AwaitSpeech, SpeechStart, CapturingSpeech, true},
		{CapturingSpeech, SpeechEndQueued, Transcribing, true},
		{Transcribing, TranscriptReady, Thinking, true},
		{Transcribing, NoCommand, AwaitSpeech, true},
		{Thinking, ReplyReady, Speaking, true},
		{Thinking, NoCommand, AwaitSpeech, true},
		{Speaking, TtsDone, AwaitSpeech, true},
		{Error, Start, AwaitSpeech, true},
		// Unlisted pairs are no-ops.
		{AwaitSpeech, TtsDone, AwaitSpeech, false},
		{Boot, SpeechStart, Boot, false},
		{Speaking, SpeechStart, Speaking, false},
	}

	for _, tt := range tests {
		got, ok := Apply(tt.from, tt.event)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Apply(%v, %v) = (%v, %v), want (%v, %v)", tt.from, tt.event, got, ok, tt.want, tt.ok)
		}
	}
}

func TestApplyFullTurnReturnsToAwaitSpeech(t *testing.T) {
	// Invariant 1: applying the table in order from Boot through one full
	// turn transitions at every step and ends back in AwaitSpeech.
	seq := []Event{Start, SpeechStart, SpeechEndQueued, TranscriptReady, ReplyReady, TtsDone}
	want := Boot
	for _, ev := range seq {
		next, ok := Apply(want, ev)
		if !ok {
			t.Fatalf("expected transition for %v from %v", ev, want)
		}
		want = next
	}
	if want != AwaitSpeech {
		t.Errorf("final state = %v, want AwaitSpeech", want)
	}
}

func TestDispatchNotifiesAfterUnlock(t *testing.T) {
	var mu sync.Mutex
	var notified bool

	var m *Machine
	m = New(func(from, to State, event Event, note string) {
		// Re-entrant Dispatch from inside the observer must not deadlock.
		mu.Lock()
		notified = true
		mu.Unlock()
		m.Dispatch(SpeechStart, "reentrant")
	})

	m.Dispatch(Start, "boot complete")

	mu.Lock()
	defer mu.Unlock()
	if !notified {
		t.Fatal("observer was not invoked")
	}
	if got := m.Current(); got != CapturingSpeech {
		t.Errorf("Current() = %v, want CapturingSpeech (re-entrant dispatch should have applied)", got)
	}
}

func TestDispatchNoOpLeavesStateUnchanged(t *testing.T) {
	m := New(nil)
	if ok := m.Dispatch(SpeechStart, ""); ok {
		t.Fatal("expected no-op from Boot on SpeechStart")
	}
	if got := m.Current(); got != Boot {
		t.Errorf("Current() = %v, want Boot", got)
	}
}

func TestSpeechStartNotRepeatableWithoutEnd(t *testing.T) {
	// Invariant 2: at most one SpeechEndQueued between consecutive SpeechStarts.
	m := New(nil)
	m.Dispatch(Start, "")
	if !m.Dispatch(SpeechStart, "") {
		t.Fatal("expected SpeechStart to transition from AwaitSpeech")
	}
	// A second SpeechStart while already CapturingSpeech is a no-op per the table.
	if m.Dispatch(SpeechStart, "") {
		t.Fatal("expected SpeechStart to be a no-op while CapturingSpeech")
	}
	if !m.Dispatch(SpeechEndQueued, "") {
		t.Fatal("expected SpeechEndQueued to transition from CapturingSpeech")
	}
}
