package speech

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the live handle for one running speech pipeline. It is shared
// between the pipeline's lanes and the caller's control goroutine; all
// mutation goes through atomics.
type State struct {
	total    int
	position atomic.Int32
	failures atomic.Int32
	cancel   atomic.Bool

	mu   sync.Mutex
	err  error
	done chan struct{}

	sink AudioSink
}

func newState(total int, sink AudioSink) *State {
	return &State{
		total: total,
		done:  make(chan struct{}),
		sink:  sink,
	}
}

// ChunkCount returns the number of chunks in the pipeline.
func (s *State) ChunkCount() int {
	return s.total
}

// Position returns the number of playback attempts that have settled.
func (s *State) Position() int {
	return int(s.position.Load())
}

// IsDone reports whether every chunk's playback attempt has settled.
func (s *State) IsDone() bool {
	return s.Position() == s.total
}

// Done returns a channel closed when the pipeline reaches a terminal
// state: all playback attempts settled, or cancellation completed.
func (s *State) Done() <-chan struct{} {
	return s.done
}

// Err returns the aggregate outcome: nil on full success, ErrCancelled if
// the pipeline was stopped, or ErrPartialFailure if some chunks failed.
// Only meaningful once Done is closed.
func (s *State) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the pipeline finishes or the context ends.
func (s *State) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestVolume forwards a live volume change (0.0 to 2.0, 1.0 is unity)
// to the audio sink.
func (s *State) RequestVolume(ratio float64) {
	if s.sink != nil {
		s.sink.RequestVolume(ratio)
	}
}

// RequestStop cancels the pipeline: playback aborts at the next buffer
// boundary, pending synthesis is skipped, and an in-flight synthesis is
// allowed to finish before its artifact is discarded.
func (s *State) RequestStop() {
	if s.sink == nil {
		return
	}
	s.cancel.Store(true)
	s.sink.RequestCancel()
}

func (s *State) cancelRequested() bool {
	return s.cancel.Load()
}

func (s *State) incrementPosition() {
	s.position.Add(1)
}

func (s *State) recordFailure() {
	s.failures.Add(1)
}

func (s *State) failureCount() int {
	return int(s.failures.Load())
}

// finish records the aggregate outcome and closes the done channel.
// Calling it twice is a bug, guarded only by pipeline structure.
func (s *State) finish(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
}
