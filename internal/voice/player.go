package voice

import (
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Playback is one in-flight audio playback. Stop halts it and releases its
// transient resources; the controller guarantees Stop runs exactly once.
type Playback interface {
	Stop()
	Done() <-chan error
}

// Player starts playback of an audio payload.
type Player interface {
	Start(ctx context.Context, audio []byte) (Playback, error)
}

// CmdPlayer plays a clip by writing it to a temp file and invoking an
// external player command with the file path appended to args.
type CmdPlayer struct {
	Command string
	Args    []string
}

// Start writes the audio to a temp file and launches the player process. The
// temp file is the playback's transient resource: Stop removes it.
func (p *CmdPlayer) Start(ctx context.Context, audio []byte) (Playback, error) {
	f, err := os.CreateTemp("", "kestrel-clip-*.wav")
	if err != nil {
		return nil, fmt.Errorf("failed to create clip file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(audio); err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("failed to write clip file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to close clip file: %w", err)
	}

	args := append(append([]string{}, p.Args...), path)
	cmd := exec.CommandContext(ctx, p.Command, args...)
	if err := cmd.Start(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to start player %q: %w", p.Command, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	return &cmdPlayback{cmd: cmd, path: path, done: done}, nil
}

type cmdPlayback struct {
	cmd  *exec.Cmd
	path string
	done chan error
}

func (p *cmdPlayback) Stop() {
	if p.cmd.Process != nil {
		// Kill is a no-op error on an already-exited process.
		p.cmd.Process.Kill()
	}
	os.Remove(p.path)
}

func (p *cmdPlayback) Done() <-chan error {
	return p.done
}

// NullPlayer completes every playback immediately without audio output, for
// environments with no player command configured.
type NullPlayer struct{}

func (NullPlayer) Start(ctx context.Context, audio []byte) (Playback, error) {
	done := make(chan error, 1)
	done <- nil
	return nullPlayback{done: done}, nil
}

type nullPlayback struct {
	done chan error
}

func (nullPlayback) Stop() {}

func (p nullPlayback) Done() <-chan error {
	return p.done
}
