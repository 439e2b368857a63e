package speech

import (
	"fmt"
	"os/exec"
)

// Player spawns the configured playback binary for a WAV file and blocks
// until it exits. Superseded the teacher's malgo continuous playback
// device — spec.md §4.6 models the loudspeaker as a spawned blocking
// binary per chunk, not a persistent audio output device fed raw
// samples, so this is plain os/exec.
type Player struct {
	bin  string
	args []string
}

// NewPlayer configures the binary and any fixed leading arguments (for
// example, a device selector); the WAV path is appended per call.
func NewPlayer(bin string, args ...string) *Player {
	return &Player{bin: bin, args: args}
}

// Play runs the playback binary against path and waits for it to exit. A
// non-zero exit code marks the chunk as failed.
func (p *Player) Play(path string) error {
	args := append(append([]string{}, p.args...), path)
	cmd := exec.Command(p.bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("speech: playback failed: %w: %s", err, out)
	}
	return nil
}
