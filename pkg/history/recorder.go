package history

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is the debounce window between the last observed
// mutation and the snapshot it triggers.
const DefaultQuietPeriod = 500 * time.Millisecond

// Recorder turns a stream of store mutations into user-action-sized
// snapshots.
//
// Two grouping mechanisms are available. Touch schedules a capture after a
// quiet period; a new mutation before the timer fires reschedules rather
// than stacks, so a drag producing hundreds of geometry writes yields one
// undo step. Explicit batches (BeginBatch/EndBatch) mark an exact action
// boundary - one capture at EndBatch - and take precedence over the timer
// while open; gesture-driven callers should prefer them, since time-based
// debouncing is a heuristic that can mis-group rapid successive actions.
//
// The capture callback runs on the timer goroutine when debounced; it is
// responsible for its own synchronization with mutators.
type Recorder struct {
	capture func()
	quiet   time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	depth  int  // open batch nesting
	dirty  bool // mutation seen inside the current batch
	closed bool
}

// NewRecorder creates a recorder invoking capture for every coalesced
// action. A non-positive quiet period falls back to DefaultQuietPeriod.
func NewRecorder(capture func(), quiet time.Duration) *Recorder {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Recorder{capture: capture, quiet: quiet}
}

// Touch notes that a mutation happened. Inside a batch it only marks the
// batch dirty; otherwise it (re)schedules a capture after the quiet period.
func (r *Recorder) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if r.depth > 0 {
		r.dirty = true
		return
	}
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.quiet, r.fire)
}

// BeginBatch opens an explicit action boundary, suspending the debounce
// timer. Batches nest; only the outermost EndBatch captures.
func (r *Recorder) BeginBatch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
		r.dirty = true // a pending debounce folds into this batch
	}
	r.depth++
}

// EndBatch closes the current batch. Closing the outermost batch captures
// immediately when any mutation was seen since BeginBatch.
func (r *Recorder) EndBatch() {
	r.mu.Lock()
	if r.depth > 0 {
		r.depth--
	}
	run := r.depth == 0 && r.dirty && !r.closed
	if run {
		r.dirty = false
	}
	r.mu.Unlock()
	if run {
		r.capture()
	}
}

// Flush captures any pending debounced mutation immediately and cancels
// the timer. Used before undo/redo and before saving a document, so the
// history never lags the store.
func (r *Recorder) Flush() {
	r.mu.Lock()
	pending := r.timer != nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	if r.closed {
		pending = false
	}
	r.mu.Unlock()
	if pending {
		r.capture()
	}
}

// Close cancels any pending capture and rejects further activity.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Recorder) fire() {
	r.mu.Lock()
	if r.closed || r.depth > 0 {
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.mu.Unlock()
	r.capture()
}
