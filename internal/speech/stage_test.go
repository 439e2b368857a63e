package speech

import "testing"

func TestStageSpeaksEachChunkAndDispatchesOnce(t *testing.T) {
	speaker := &StubSpeaker{}
	doneCount := 0
	stage := NewStage(speaker, func() { doneCount++ })

	stage.Run("The sky is blue. Usually.")

	if doneCount != 1 {
		t.Fatalf("expected exactly one TtsDone dispatch, got %d", doneCount)
	}
	want := []string{"The sky is blue.", "Usually."}
	if len(speaker.Spoken) != len(want) {
		t.Fatalf("spoke %d chunks, want %d: %v", len(speaker.Spoken), len(want), speaker.Spoken)
	}
	for i, w := range want {
		if speaker.Spoken[i] != w {
			t.Errorf("chunk %d = %q, want %q", i, speaker.Spoken[i], w)
		}
	}
}

func TestStageDispatchesTtsDoneEvenOnFailure(t *testing.T) {
	speaker := &StubSpeaker{Err: errBoom}
	doneCount := 0
	stage := NewStage(speaker, func() { doneCount++ })

	stage.Run("Hello there.")

	if doneCount != 1 {
		t.Fatalf("expected TtsDone despite speaker failure, got %d", doneCount)
	}
}

var errBoom = simpleErr("boom")

type simpleErr string

func (e simpleErr) Error() string { return string(e) }
