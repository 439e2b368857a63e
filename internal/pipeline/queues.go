// Package pipeline wires the bounded queues and lifecycle that connect the
// audio, ASR, brain, and speech stages (spec.md §3, §5).
package pipeline

import "sync"

// Utterance is a finalized span of captured speech, pre-roll included
// (spec.md §3).
type Utterance struct {
	Samples []int16
}

// DurationMillis returns the utterance's duration in milliseconds.
func (u Utterance) DurationMillis() int {
	return len(u.Samples) * 1000 / 16000
}

// UtteranceQueue is the single-producer single-consumer, newest-wins,
// capacity-1 handoff described in spec.md §3: enqueueing clears any prior
// contents. The ASR stage blocks on Take.
type UtteranceQueue struct {
	mu   sync.Mutex
	cond *sync.Cond
	item *Utterance
	// closed is set on shutdown so blocked Take calls wake and return false.
	closed bool
}

// NewUtteranceQueue creates an empty queue.
func NewUtteranceQueue() *UtteranceQueue {
	q := &UtteranceQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Replace clears any prior contents and stores u as the sole item,
// waking one blocked consumer.
func (q *UtteranceQueue) Replace(u Utterance) {
	q.mu.Lock()
	cp := make([]int16, len(u.Samples))
	copy(cp, u.Samples)
	q.item = &Utterance{Samples: cp}
	q.mu.Unlock()
	q.cond.Signal()
}

// Clear empties the queue without producing an item.
func (q *UtteranceQueue) Clear() {
	q.mu.Lock()
	q.item = nil
	q.mu.Unlock()
}

// IsEmpty reports whether the queue currently holds an item.
func (q *UtteranceQueue) IsEmpty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.item == nil
}

// Take blocks until an item is available or the queue is closed, then
// removes and returns it. Returns ok=false only after Close.
func (q *UtteranceQueue) Take() (Utterance, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.item == nil && !q.closed {
		q.cond.Wait()
	}
	if q.item == nil {
		return Utterance{}, false
	}
	u := *q.item
	q.item = nil
	return u, true
}

// Close unblocks any pending Take.
func (q *UtteranceQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// CommandQueue is the FIFO handoff between the ASR and Brain stages. In
// steady state it holds at most one entry because the state machine
// serializes the pipeline (spec.md §3). It is a buffered channel with
// capacity one: a second enqueue while a command is pending blocks the ASR
// stage until the Brain stage takes the pending command.
type CommandQueue struct {
	ch chan string
}

// NewCommandQueue creates a FIFO command queue.
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{ch: make(chan string, 1)}
}

// Enqueue blocks only if the queue is already full, which should not
// happen in steady state per the invariant above.
func (q *CommandQueue) Enqueue(cmd string) {
	q.ch <- cmd
}

// Take blocks until a command is available or the queue is closed.
func (q *CommandQueue) Take() (string, bool) {
	cmd, ok := <-q.ch
	return cmd, ok
}

// Close unblocks any pending Take once drained.
func (q *CommandQueue) Close() {
	close(q.ch)
}
