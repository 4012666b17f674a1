package comm

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// World is a set of ranks. A World serves a single Run.
type World struct {
	size  int
	boxes []*mailbox
	comms []*Comm
}

func NewWorld(size int) (w *World, err error) {
	if size < 1 {
		return nil, fmt.Errorf("number of ranks must be positive, have %d", size)
	}
	w = &World{
		size:  size,
		boxes: make([]*mailbox, size),
		comms: make([]*Comm, size),
	}
	for r := 0; r < size; r++ {
		w.boxes[r] = newMailbox()
		w.comms[r] = &Comm{rank: r, world: w}
	}
	return
}

func (w *World) Size() int { return w.size }

// Comm returns the endpoint of rank
func (w *World) Comm(rank int) *Comm { return w.comms[rank] }

/*
Run executes fn once per rank, each on its own goroutine, and waits for all of them. The
first failing rank cancels the context of the others, so ranks blocked in a collective
return instead of waiting forever. The errors of all failed ranks are combined; the
cancellations they caused are dropped unless nothing else failed. A panic in a rank is
returned as that rank's error.
*/
func (w *World) Run(ctx context.Context, fn func(ctx context.Context, c *Comm) error) error {
	var (
		g, gctx = errgroup.WithContext(ctx)
		errs    = make([]error, w.size)
	)
	for r := 0; r < w.size; r++ {
		r := r
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					log.WithField("rank", r).Debugf("panic: %v\n%s", p, debug.Stack())
					err = fmt.Errorf("panic: %v", p)
				}
				if err != nil {
					err = fmt.Errorf("rank %d: %w", r, err)
					errs[r] = err
				}
			}()
			return fn(gctx, w.comms[r])
		})
	}
	_ = g.Wait()

	var failed, canceled []error
	for _, err := range errs {
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled) && ctx.Err() == nil:
			canceled = append(canceled, err)
		default:
			failed = append(failed, err)
		}
	}
	if len(failed) == 0 {
		return multierr.Combine(canceled...)
	}
	return multierr.Combine(failed...)
}
