// Package state implements the pipeline's single source of truth for
// where a conversational turn currently stands.
package state

import "sync"

// State is one phase of the pipeline.
type State int

const (
	Boot State = iota
	AwaitSpeech
	CapturingSpeech
	Transcribing
	Thinking
	Speaking
	Error
	Shutdown
)

// String renders a State for logging.
func (s State) String() string {
	switch s {
	case Boot:
		return "Boot"
	case AwaitSpeech:
		return "AwaitSpeech"
	case CapturingSpeech:
		return "CapturingSpeech"
	case Transcribing:
		return "Transcribing"
	case Thinking:
		return "Thinking"
	case Speaking:
		return "Speaking"
	case Error:
		return "Error"
	case Shutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Event is a trigger for a state transition.
type Event int

const (
	Start Event = iota
	SpeechStart
	SpeechEndQueued
	TranscriptReady
	NoCommand
	ReplyReady
	TtsDone
	Stop
)

// String renders an Event for logging.
func (e Event) String() string {
	switch e {
	case Start:
		return "Start"
	case SpeechStart:
		return "SpeechStart"
	case SpeechEndQueued:
		return "SpeechEndQueued"
	case TranscriptReady:
		return "TranscriptReady"
	case NoCommand:
		return "NoCommand"
	case ReplyReady:
		return "ReplyReady"
	case TtsDone:
		return "TtsDone"
	case Stop:
		return "Stop"
	default:
		return "Unknown"
	}
}

type edge struct {
	from  State
	event Event
}

// table is the complete transition table from spec.md §4.1. Any (state,
// event) pair not listed here is a no-op.
var table = map[edge]State{
	{Boot, Start}:                 AwaitSpeech,
	{AwaitSpeech, SpeechStart}:    CapturingSpeech,
	{CapturingSpeech, SpeechEndQueued}: Transcribing,
	{Transcribing, TranscriptReady}: Thinking,
	{Transcribing, NoCommand}:     AwaitSpeech,
	{Thinking, ReplyReady}:        Speaking,
	{Thinking, NoCommand}:         AwaitSpeech,
	{Speaking, TtsDone}:           AwaitSpeech,
	{Error, Start}:                AwaitSpeech,
}

// Observer is notified after a transition, once the state lock has been
// released — never invoke it while holding the lock, to avoid re-entrant
// deadlock if the observer itself calls Dispatch.
type Observer func(from, to State, event Event, note string)

// Machine is the pipeline's single authority on phase. Safe for concurrent
// use from any thread.
type Machine struct {
	mu       sync.Mutex
	current  State
	observer Observer
}

// New creates a Machine starting in Boot.
func New(observer Observer) *Machine {
	return &Machine{current: Boot, observer: observer}
}

// Current returns an atomic snapshot of the current state.
func (m *Machine) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Dispatch atomically applies (state, event), and if a transition is
// defined, notifies the observer after releasing the lock. Returns whether
// a transition occurred.
func (m *Machine) Dispatch(event Event, note string) bool {
	m.mu.Lock()
	from := m.current
	to, ok := table[edge{from, event}]
	if ok {
		m.current = to
	}
	m.mu.Unlock()

	if ok && m.observer != nil {
		m.observer(from, to, event, note)
	}
	return ok
}

// Apply is the pure function underlying Dispatch, exposed for testing
// invariant 1 of spec.md §8 without needing a Machine instance.
func Apply(from State, event Event) (State, bool) {
	to, ok := table[edge{from, event}]
	if !ok {
		return from, false
	}
	return to, true
}
