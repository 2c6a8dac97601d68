package network

import (
	"errors"
	"sync"
)

// ErrClosed is returned by operations on a channel that has been closed,
// locally or by the remote end.
var ErrClosed = errors.New("channel closed")

// Channel is a reliable, ordered, bidirectional byte link between two
// participants or between a participant and the coordinator.
// Send and Receive block; Close is idempotent.
type Channel interface {
	Send(b byte) error
	Receive() (byte, error)
	Close() error
}

// pipeBuffer is the capacity of each direction of an in-memory pipe.
// A protocol round never queues more than one byte per direction.
const pipeBuffer = 64

// pipeEnd is one side of an in-memory pipe.
type pipeEnd struct {
	in   <-chan byte   // in carries bytes written by the other end
	out  chan byte     // out carries bytes written by this end
	done chan struct{} // done is closed by Close to wake a blocked Receive

	mu     sync.Mutex // mu orders Send against Close
	closed bool       // closed is set once out has been closed
}

// Pipe returns two connected in-memory channels. Writes do not wait for the
// reader, so both ends may send before receiving like they would over TCP or QUIC.
func Pipe() (Channel, Channel) {
	ab := make(chan byte, pipeBuffer)
	ba := make(chan byte, pipeBuffer)

	return &pipeEnd{in: ba, out: ab, done: make(chan struct{})},
		&pipeEnd{in: ab, out: ba, done: make(chan struct{})}
}

// Send queues b for the other end.
func (p *pipeEnd) Send(b byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.out <- b

	return nil
}

// Receive blocks until the other end sends a byte or either end closes.
func (p *pipeEnd) Receive() (byte, error) {
	select {
	case <-p.done:
		return 0, ErrClosed
	default:
	}

	select {
	case b, ok := <-p.in:
		if !ok {
			return 0, ErrClosed
		}
		return b, nil

	case <-p.done:
		return 0, ErrClosed
	}
}

// Close stops this end; the other end drains queued bytes then sees ErrClosed.
func (p *pipeEnd) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.out)
	close(p.done)

	return nil
}
