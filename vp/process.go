package vp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/charmbracelet/log"
)

// ErrAlreadyStarted is returned when Start is called twice on one Process.
var ErrAlreadyStarted = errors.New("process already started")

// Result carries the outcome of one synthesizer invocation. A nonzero
// Status with a nil Err means the executable ran and reported failure;
// a non-nil Err means the invocation itself could not complete.
type Result struct {
	Status int
	Err    error
}

// LineFunc receives one line of process output. Implementations must not
// block for long; lines are dispatched from a drain goroutine that always
// keeps reading so the child process never stalls on a full pipe.
type LineFunc func(line string)

// Process is a single, one-shot synthesizer invocation. Output subscribers
// must be attached before Start.
type Process struct {
	argv []string

	mu        sync.Mutex
	stdoutFns []LineFunc
	stderrFns []LineFunc
	started   bool
}

// NewProcess creates a process description from a complete argument list.
// argv[0] is the executable.
func NewProcess(argv []string) *Process {
	return &Process{argv: argv}
}

// Argv returns a copy of the command line this process will run.
func (p *Process) Argv() []string {
	out := make([]string, len(p.argv))
	copy(out, p.argv)
	return out
}

// SubscribeStdout attaches a sink for standard output lines.
func (p *Process) SubscribeStdout(fn LineFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stdoutFns = append(p.stdoutFns, fn)
}

// SubscribeStderr attaches a sink for standard error lines.
func (p *Process) SubscribeStderr(fn LineFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stderrFns = append(p.stderrFns, fn)
}

// Start launches the process and returns a channel that delivers exactly
// one Result when it exits. Output forwarding runs on its own goroutines.
func (p *Process) Start(ctx context.Context) (<-chan Result, error) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return nil, ErrAlreadyStarted
	}
	p.started = true
	stdoutFns := p.stdoutFns
	stderrFns := p.stderrFns
	p.mu.Unlock()

	if len(p.argv) == 0 {
		return nil, errors.New("empty command line")
	}

	cmd := exec.CommandContext(ctx, p.argv[0], p.argv[1:]...)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", p.argv[0], err)
	}
	log.Debug("started process", "pid", cmd.Process.Pid, "executable", p.argv[0])

	var wg sync.WaitGroup
	wg.Add(2)
	go forwardLines(&wg, stdout, stdoutFns)
	go forwardLines(&wg, stderr, stderrFns)

	done := make(chan Result, 1)
	go func() {
		// Pipes must be fully drained before Wait.
		wg.Wait()
		err := cmd.Wait()

		var exitErr *exec.ExitError
		switch {
		case err == nil:
			done <- Result{Status: 0}
		case errors.As(err, &exitErr):
			done <- Result{Status: exitErr.ExitCode()}
		default:
			done <- Result{Status: -1, Err: err}
		}
	}()

	return done, nil
}

// Run starts the process and blocks until it exits or the context ends.
func (p *Process) Run(ctx context.Context) (int, error) {
	done, err := p.Start(ctx)
	if err != nil {
		return -1, err
	}
	select {
	case res := <-done:
		return res.Status, res.Err
	case <-ctx.Done():
		// CommandContext kills the child; collect its result so the
		// drain goroutines finish.
		res := <-done
		if res.Err != nil {
			return res.Status, res.Err
		}
		return res.Status, ctx.Err()
	}
}

// forwardLines scans a process stream line by line and hands each line to
// every subscriber. The stream is read to EOF even with no subscribers.
func forwardLines(wg *sync.WaitGroup, r io.Reader, fns []LineFunc) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		for _, fn := range fns {
			fn(line)
		}
	}
}
