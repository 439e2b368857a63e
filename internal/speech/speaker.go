package speech

// Speaker maps one sentence of reply text to played audio. Speak returns
// any synthesis or playback failure to its caller; the Stage logs it and
// moves on to the next chunk, so such a failure never faults the overall
// state machine (spec.md §4.6).
type Speaker interface {
	Speak(text string) error
	Close()
}

// StubSpeaker is an in-memory Speaker for deterministic tests.
type StubSpeaker struct {
	Err error

	// Spoken records every sentence passed to Speak, in order.
	Spoken []string
}

// Speak records text and returns the scripted error.
func (s *StubSpeaker) Speak(text string) error {
	s.Spoken = append(s.Spoken, text)
	return s.Err
}

// Close is a no-op for the stub.
func (s *StubSpeaker) Close() {}
