package executor

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"
)

const (
	stopGrace   = 5 * time.Second
	outputLimit = 64 << 10
)

type implProcess struct {
	name   string
	cmd    *exec.Cmd
	output *tailBuffer
	done   chan struct{}

	mu      sync.Mutex
	err     error
	stopped bool
}

// Start runs name in the background, keeping the tail of its combined output.
func (e *implExecutor) Start(name string, args ...string) (Process, error) {
	cmd := exec.Command(name, args...)
	out := &tailBuffer{max: outputLimit}
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start '%s': %w", name, err)
	}

	p := &implProcess{
		name:   name,
		cmd:    cmd,
		output: out,
		done:   make(chan struct{}),
	}
	go p.wait()
	return p, nil
}

func (p *implProcess) wait() {
	err := p.cmd.Wait()

	p.mu.Lock()
	switch {
	case p.stopped:
		p.err = fmt.Errorf("command '%s' stopped", p.name)
	case err != nil:
		p.err = fmt.Errorf("command '%s' exited: %w", p.name, err)
	default:
		p.err = fmt.Errorf("command '%s' exited", p.name)
	}
	if msg := lastLines(p.output.String(), 5); msg != "" && !p.stopped {
		p.err = fmt.Errorf("%w\noutput: %s", p.err, msg)
	}
	p.mu.Unlock()

	close(p.done)
}

func (p *implProcess) Done() <-chan struct{} { return p.done }

func (p *implProcess) Err() error {
	select {
	case <-p.done:
	default:
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *implProcess) Stop() error {
	select {
	case <-p.done:
		return nil
	default:
	}

	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()

	// os.Interrupt is not supported on Windows; fall through to Kill.
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		p.cmd.Process.Kill()
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(stopGrace):
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill '%s': %w", p.name, err)
	}
	<-p.done
	return nil
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	buf []byte
	max int
}

func (t *tailBuffer) Write(b []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, b...)
	if len(t.buf) > t.max {
		t.buf = append([]byte(nil), t.buf[len(t.buf)-t.max:]...)
	}
	return len(b), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
