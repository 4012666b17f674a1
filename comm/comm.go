/*
Package comm runs a fixed set of ranks as goroutines that share no state and talk only
through point to point messages and the collectives built on them.

Each rank owns a mailbox. Send posts into the mailbox of the target and never blocks,
Recv waits until a message with the requested source and tag has been posted. Messages
between one pair of ranks with one tag are received in the order they were sent.
*/
package comm

import (
	"context"
	"fmt"
	"sync"
)

// AnySource matches messages from every rank in Recv
const AnySource = -1

type message struct {
	from, tag int
	payload   interface{}
}

type mailbox struct {
	mu      sync.Mutex
	pending []message
	notify  chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{notify: make(chan struct{}, 1)}
}

func (mb *mailbox) post(msg message) {
	mb.mu.Lock()
	mb.pending = append(mb.pending, msg)
	mb.mu.Unlock()
	select {
	case mb.notify <- struct{}{}:
	default:
	}
}

// take removes the oldest message matching from and tag
func (mb *mailbox) take(from, tag int) (msg message, ok bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for i, m := range mb.pending {
		if m.tag == tag && (from == AnySource || m.from == from) {
			mb.pending = append(mb.pending[:i], mb.pending[i+1:]...)
			return m, true
		}
	}
	return
}

// Comm is the endpoint of one rank
type Comm struct {
	rank  int
	world *World
	// seq numbers the collectives this rank has entered, every rank enters them in the same order
	seq int
}

func (c *Comm) Rank() int { return c.rank }
func (c *Comm) Size() int { return c.world.size }

// Send posts v to rank to. User tags are non-negative.
func (c *Comm) Send(ctx context.Context, to, tag int, v interface{}) error {
	if tag < 0 {
		return fmt.Errorf("rank %d: tag %d is reserved for collectives", c.rank, tag)
	}
	return c.send(ctx, to, tag, v)
}

func (c *Comm) send(ctx context.Context, to, tag int, v interface{}) error {
	if to < 0 || to >= c.world.size {
		return fmt.Errorf("rank %d: destination %d is not in [0,%d)", c.rank, to, c.world.size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c.world.boxes[to].post(message{from: c.rank, tag: tag, payload: v})
	return nil
}

// Recv waits for a message from rank from (or AnySource) with the given tag
func (c *Comm) Recv(ctx context.Context, from, tag int) (v interface{}, err error) {
	if from != AnySource && (from < 0 || from >= c.world.size) {
		return nil, fmt.Errorf("rank %d: source %d is not in [0,%d)", c.rank, from, c.world.size)
	}
	mb := c.world.boxes[c.rank]
	for {
		if msg, ok := mb.take(from, tag); ok {
			return msg.payload, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("rank %d waiting for rank %d tag %d: %w", c.rank, from, tag, ctx.Err())
		case <-mb.notify:
		}
	}
}

// nextTag returns the tag of the next collective
func (c *Comm) nextTag() int {
	c.seq++
	return -c.seq
}

// Barrier returns once every rank has entered it
func (c *Comm) Barrier(ctx context.Context) error {
	_, err := AllGather(ctx, c, struct{}{})
	return err
}

// AllGatherInt gathers one integer from every rank on every rank
func (c *Comm) AllGatherInt(ctx context.Context, v int) ([]int, error) {
	return AllGather(ctx, c, v)
}
