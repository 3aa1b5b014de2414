// Package signal implements the observable status handles returned by
// Send and Request: cheaply cloneable, lock-free, write-once-to-terminal
// cells that a session task updates and any goroutine can poll.
package signal

import "sync/atomic"

// MessageStatus is the lifecycle of one outbound fire-and-forget message.
type MessageStatus uint8

const (
	MessageSending MessageStatus = iota
	MessageSent
	MessageFailed
)

func (s MessageStatus) String() string {
	switch s {
	case MessageSending:
		return "Sending"
	case MessageSent:
		return "Sent"
	case MessageFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Terminal reports whether s is one of the statuses a MessageSignal never
// leaves once reached.
func (s MessageStatus) Terminal() bool {
	return s == MessageSent || s == MessageFailed
}

// MessageSignal is a read handle over a message's status. It is a thin
// wrapper around a shared atomic cell: copying a MessageSignal value copies
// the pointer, never the underlying state, so handing one to the
// application and keeping another in the session is free.
type MessageSignal struct {
	cell *atomic.Pointer[MessageStatus]
}

// Status returns the current status. Safe to call from any goroutine.
func (s MessageSignal) Status() MessageStatus {
	if s.cell == nil {
		return MessageFailed
	}
	return *s.cell.Load()
}

// MessageSettler is the write side of a MessageSignal, held only by the
// session task that owns the underlying send. It is deliberately a
// different type than MessageSignal so an application that only holds the
// latter cannot mutate it.
type MessageSettler struct {
	cell *atomic.Pointer[MessageStatus]
}

// Settle moves the signal to a terminal status. Settling an already
// terminal signal is a no-op: status is write-once past Sending.
func (s MessageSettler) Settle(status MessageStatus) {
	for {
		cur := s.cell.Load()
		if cur != nil && (*cur).Terminal() {
			return
		}
		next := status
		if s.cell.CompareAndSwap(cur, &next) {
			return
		}
	}
}

// NewMessageSignal creates a linked read/write pair, initialized to Sending.
func NewMessageSignal() (MessageSignal, MessageSettler) {
	cell := new(atomic.Pointer[MessageStatus])
	init := MessageSending
	cell.Store(&init)
	return MessageSignal{cell: cell}, MessageSettler{cell: cell}
}
