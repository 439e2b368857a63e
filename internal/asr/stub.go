package asr

// StubTranscriber is an in-memory Transcriber for deterministic tests
// (spec.md §9: "Each has a stubbable in-memory implementation used by the
// test suite.").
type StubTranscriber struct {
	Text string
	Err  error

	// LastSamples records the most recently transcribed utterance, for
	// assertions that the right audio reached the stage.
	LastSamples []int16
}

// Transcribe returns the scripted text/error, recording the input.
func (s *StubTranscriber) Transcribe(samples []int16, _ int) (string, error) {
	s.LastSamples = samples
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// Close is a no-op for the stub.
func (s *StubTranscriber) Close() {}
