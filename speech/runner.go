package speech

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/k7t3/vpspeech/vp"
)

// task is one chunk's unit of work: a ready-to-launch synthesizer process
// and the artifact path it will write. Created at build time, immutable
// afterward; the artifact file is owned by the pipeline until playback
// settles, then deleted.
type task struct {
	index    int
	process  *vp.Process
	artifact string
	done     chan taskResult
}

type taskResult struct {
	status    int
	cancelled bool
	err       error
}

// Runner drives the synthesis/playback pipeline over an ordered chunk
// sequence. Synthesis runs on one strictly serial lane, reflecting the
// synthesizer's one-instance-at-a-time constraint; playback runs on a
// second serial lane so chunk k+1 synthesizes while chunk k plays.
type Runner struct {
	tasks  []*task
	sink   AudioSink
	volume float64
	delay  time.Duration

	stdoutFn vp.LineFunc
	stderrFn vp.LineFunc
}

// SetStdoutSubscriber forwards every synthesizer stdout line to fn.
// Must be called before Start.
func (r *Runner) SetStdoutSubscriber(fn vp.LineFunc) {
	r.stdoutFn = fn
}

// SetStderrSubscriber forwards every synthesizer stderr line to fn.
// Must be called before Start.
func (r *Runner) SetStderrSubscriber(fn vp.LineFunc) {
	r.stderrFn = fn
}

// Start launches both lanes and returns immediately with the pipeline
// handle. An empty pipeline returns an already-finished handle.
func (r *Runner) Start() *State {
	log.Debug("runner started", "chunks", len(r.tasks))

	if len(r.tasks) == 0 {
		state := newState(0, nil)
		state.finish(nil)
		return state
	}

	sink := r.sink
	if sink == nil {
		sink = NewPlayer()
	}
	sink.RequestVolume(r.volume)

	state := newState(len(r.tasks), sink)

	for _, t := range r.tasks {
		if r.stdoutFn != nil {
			t.process.SubscribeStdout(r.stdoutFn)
		}
		if r.stderrFn != nil {
			t.process.SubscribeStderr(r.stderrFn)
		}
	}

	go r.synthesisLane(state)
	go r.playbackLane(state, sink)

	return state
}

// synthesisLane runs every synthesis task in order, one at a time. A task
// whose turn comes after cancellation is skipped without launching the
// external process.
func (r *Runner) synthesisLane(state *State) {
	for _, t := range r.tasks {
		if state.cancelRequested() {
			t.done <- taskResult{cancelled: true}
			continue
		}
		t.done <- r.synthesize(t, state)
	}
}

func (r *Runner) synthesize(t *task, state *State) taskResult {
	status, err := t.process.Run(context.Background())
	if err != nil {
		log.Warn("synthesis failed to run", "index", t.index, "err", err)
		return taskResult{status: -1, err: err}
	}
	if status != 0 {
		log.Warn("synthesis exited abnormally", "index", t.index, "status", status)
	} else {
		log.Debug("synthesis done", "index", t.index)
	}

	// The external call was already in flight when cancellation arrived;
	// its artifact will never be played, so discard it right away.
	if status == 0 && state.cancelRequested() {
		removeArtifact(t.artifact)
		return taskResult{status: status, cancelled: true}
	}

	return taskResult{status: status}
}

// playbackLane consumes synthesis results in submission order, plays each
// successful artifact, and settles the pipeline's aggregate outcome. Every
// attempt, including skips and failures, advances the position counter
// exactly once and removes the artifact if it still exists.
func (r *Runner) playbackLane(state *State, sink AudioSink) {
	for _, t := range r.tasks {
		res := <-t.done
		r.playOne(t, res, state, sink)
		state.incrementPosition()
		removeArtifact(t.artifact)
	}

	if err := sink.Close(); err != nil {
		log.Warn("closing audio sink", "err", err)
	}

	switch {
	case state.cancelRequested():
		state.finish(ErrCancelled)
	case state.failureCount() > 0:
		state.finish(fmt.Errorf("%w: %d of %d",
			ErrPartialFailure, state.failureCount(), state.ChunkCount()))
	default:
		state.finish(nil)
	}
}

func (r *Runner) playOne(t *task, res taskResult, state *State, sink AudioSink) {
	if res.err != nil || res.status != 0 {
		state.recordFailure()
		return
	}
	if res.cancelled || state.cancelRequested() {
		return
	}

	// Give the synthesis lane a head start before the very first playback
	// so later chunks are ready when their turn comes.
	if t.index == 0 && r.delay > 0 && len(r.tasks) > 1 {
		log.Debug("delaying first playback", "delay", r.delay)
		time.Sleep(r.delay)
	}

	log.Debug("play audio", "index", t.index)
	if err := sink.Play(t.artifact); err != nil {
		log.Warn("playback failed", "index", t.index, "err", err)
		state.recordFailure()
	}
}

// removeArtifact deletes a temporary audio file, tolerating earlier
// deletion on the cancellation path.
func removeArtifact(path string) {
	err := os.Remove(path)
	switch {
	case err == nil:
		log.Debug("deleted audio artifact", "path", path)
	case errors.Is(err, os.ErrNotExist):
	default:
		log.Warn("could not delete audio artifact", "path", path, "err", err)
	}
}
