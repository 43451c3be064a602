package main

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
)

// execPlayer speaks by running an external TTS command with the text as its
// only argument. Playback is not tied to the caller's context; Stop kills it.
type execPlayer struct {
	command string

	mu  sync.Mutex
	cmd *exec.Cmd
}

func (p *execPlayer) Play(_ context.Context, text string) (<-chan struct{}, error) {
	if p.command == "" {
		return nil, errors.New("speech: no command configured")
	}
	cmd := exec.Command(p.command, text)
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.cmd = cmd
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		if p.cmd == cmd {
			p.cmd = nil
		}
		p.mu.Unlock()
		close(done)
	}()
	return done, nil
}

func (p *execPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	p.cmd = nil
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}
