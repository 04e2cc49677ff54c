package channel

import (
	"context"
	"io"
	"sync"
)

// Loopback is an in-process Channel test double wired to a peer Loopback:
// one side's OutTransfer feeds the other's InTransfer, and vice versa.
// It generalizes the teacher's host/hal/fifo + device/hal/fifo pair (which
// crosses a real process boundary over named pipes, one discrete message
// per read) down to the minimal two-operation contract this module needs
// for unit tests and the host/target loopback scenario.
//
// Each OutTransfer call is one discrete transfer, queued whole. InTransfer
// pops the oldest queued transfer and copies as much of it as fits in the
// caller's buffer; any remainder of that same transfer is discarded, not
// carried over to the next call — exactly as a real bulk endpoint
// completes or truncates a single transaction rather than threading
// leftover bytes into the next one. Callers that need more than one
// transfer's worth of data must issue that many InTransfer calls.
type Loopback struct {
	out *pipe // transfers this side writes, the peer reads
	in  *pipe // transfers this side reads, the peer wrote
}

// NewLoopbackPair creates two Loopback channels wired to each other: bytes
// written on a's OutTransfer are readable via b's InTransfer, and bytes
// written on b's OutTransfer are readable via a's InTransfer.
func NewLoopbackPair() (a, b *Loopback) {
	ab := newPipe()
	ba := newPipe()
	a = &Loopback{out: ab, in: ba}
	b = &Loopback{out: ba, in: ab}
	return a, b
}

// OutTransfer enqueues data as one discrete transfer for the peer.
func (l *Loopback) OutTransfer(ctx context.Context, data []byte) (int, error) {
	return l.out.write(ctx, data)
}

// InTransfer pops the oldest queued transfer and copies what fits into buf,
// blocking until the peer has queued at least one transfer.
func (l *Loopback) InTransfer(ctx context.Context, buf []byte) (int, error) {
	return l.in.read(ctx, buf)
}

// Close closes this side's outgoing direction: the peer's pending and
// future InTransfer calls observe EOF once the transfers already queued
// for it are drained, and this side's later OutTransfer calls fail with
// io.ErrClosedPipe. This side's own InTransfer is not affected.
func (l *Loopback) Close() error {
	l.out.mu.Lock()
	l.out.closed = true
	l.out.mu.Unlock()
	l.out.cond.Broadcast()
	return nil
}

// pipe is a queue of discrete byte transfers with blocking reads, used to
// connect one direction of a Loopback pair.
type pipe struct {
	mu      sync.Mutex
	cond    *sync.Cond
	packets [][]byte
	closed  bool
}

func newPipe() *pipe {
	p := &pipe{}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *pipe) write(ctx context.Context, data []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	packet := make([]byte, len(data))
	copy(packet, data)
	p.packets = append(p.packets, packet)
	p.mu.Unlock()
	p.cond.Broadcast()
	return len(data), nil
}

// read blocks until at least one transfer is queued, then pops it and
// copies as much as fits into buf; any excess in that transfer is dropped.
func (p *pipe) read(ctx context.Context, buf []byte) (int, error) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			p.cond.Broadcast()
		case <-done:
		}
	}()

	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.packets) == 0 && !p.closed {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		p.cond.Wait()
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p.packets) == 0 && p.closed {
		return 0, io.EOF
	}

	packet := p.packets[0]
	p.packets = p.packets[1:]
	return copy(buf, packet), nil
}

var _ Channel = (*Loopback)(nil)
