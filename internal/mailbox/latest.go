// Package mailbox provides single-slot, overwrite-on-put mailboxes.
//
// A producer never blocks and never queues: a value that is not taken
// before the next Put is dropped. Consumers always see the newest value.
package mailbox

import "sync"

// Latest is a single-slot mailbox. Put overwrites, Take blocks until a
// value is available or the mailbox is closed.
type Latest[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	value  T
	full   bool
	closed bool

	puts  uint64
	drops uint64 // values overwritten before anyone took them
}

// New creates an empty mailbox.
func New[T any]() *Latest[T] {
	l := &Latest[T]{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Put stores v, replacing any value not yet taken. Puts after Close are
// ignored.
func (l *Latest[T]) Put(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if l.full {
		l.drops++
	}
	l.value = v
	l.full = true
	l.puts++
	l.cond.Signal()
}

// Take blocks until a value is available and consumes it. ok is false
// once the mailbox is closed.
func (l *Latest[T]) Take() (v T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for !l.full && !l.closed {
		l.cond.Wait()
	}
	if l.closed {
		return v, false
	}
	v = l.value
	var zero T
	l.value = zero
	l.full = false
	return v, true
}

// TryTake consumes the value if there is one, without blocking.
func (l *Latest[T]) TryTake() (v T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.full || l.closed {
		return v, false
	}
	v = l.value
	var zero T
	l.value = zero
	l.full = false
	return v, true
}

// Close wakes every blocked Take. Closing twice is a no-op.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	l.cond.Broadcast()
}

// Stats returns how many values were put and how many were dropped.
func (l *Latest[T]) Stats() (puts, drops uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.puts, l.drops
}
