package comm

import (
	"context"
	"fmt"
)

func collect[T any](ctx context.Context, c *Comm, from, tag int) (v T, err error) {
	var p interface{}
	if p, err = c.Recv(ctx, from, tag); err != nil {
		return
	}
	var ok bool
	if v, ok = p.(T); !ok {
		err = fmt.Errorf("rank %d: message from rank %d is %T, want %T", c.rank, from, p, v)
	}
	return
}

// Receive waits for a message of type T from rank from with a user tag
func Receive[T any](ctx context.Context, c *Comm, from, tag int) (T, error) {
	return collect[T](ctx, c, from, tag)
}

// AllGather returns the values of all ranks, indexed by rank, on every rank
func AllGather[T any](ctx context.Context, c *Comm, v T) (all []T, err error) {
	tag := c.nextTag()
	for r := 0; r < c.Size(); r++ {
		if r != c.rank {
			if err = c.send(ctx, r, tag, v); err != nil {
				return nil, err
			}
		}
	}
	all = make([]T, c.Size())
	all[c.rank] = v
	for r := 0; r < c.Size(); r++ {
		if r == c.rank {
			continue
		}
		if all[r], err = collect[T](ctx, c, r, tag); err != nil {
			return nil, err
		}
	}
	return
}

// Gather collects the values of all ranks on root. Other ranks get nil.
func Gather[T any](ctx context.Context, c *Comm, root int, v T) (all []T, err error) {
	tag := c.nextTag()
	if c.rank != root {
		return nil, c.send(ctx, root, tag, v)
	}
	all = make([]T, c.Size())
	all[root] = v
	for r := 0; r < c.Size(); r++ {
		if r == root {
			continue
		}
		if all[r], err = collect[T](ctx, c, r, tag); err != nil {
			return nil, err
		}
	}
	return
}

// Scatter sends values[r] from root to every rank r. Only root reads values.
func Scatter[T any](ctx context.Context, c *Comm, root int, values []T) (v T, err error) {
	tag := c.nextTag()
	if c.rank != root {
		return collect[T](ctx, c, root, tag)
	}
	if len(values) != c.Size() {
		err = fmt.Errorf("rank %d: scatter of %d values over %d ranks", c.rank, len(values), c.Size())
		return
	}
	for r := 0; r < c.Size(); r++ {
		if r != root {
			if err = c.send(ctx, r, tag, values[r]); err != nil {
				return
			}
		}
	}
	return values[root], nil
}

// Bcast sends v from root to every rank
func Bcast[T any](ctx context.Context, c *Comm, root int, v T) (T, error) {
	tag := c.nextTag()
	if c.rank != root {
		return collect[T](ctx, c, root, tag)
	}
	for r := 0; r < c.Size(); r++ {
		if r != root {
			if err := c.send(ctx, r, tag, v); err != nil {
				return v, err
			}
		}
	}
	return v, nil
}

// AllToAll sends out[r] to every rank r and returns what every rank sent to this one, indexed by source
func AllToAll[T any](ctx context.Context, c *Comm, out []T) (in []T, err error) {
	tag := c.nextTag()
	if len(out) != c.Size() {
		return nil, fmt.Errorf("rank %d: all to all with %d values over %d ranks", c.rank, len(out), c.Size())
	}
	for r := 0; r < c.Size(); r++ {
		if r != c.rank {
			if err = c.send(ctx, r, tag, out[r]); err != nil {
				return nil, err
			}
		}
	}
	in = make([]T, c.Size())
	in[c.rank] = out[c.rank]
	for r := 0; r < c.Size(); r++ {
		if r == c.rank {
			continue
		}
		if in[r], err = collect[T](ctx, c, r, tag); err != nil {
			return nil, err
		}
	}
	return
}

// ExclusiveScan returns the sum of v over all lower ranks and the total over all ranks
func ExclusiveScan(ctx context.Context, c *Comm, v int) (offset, total int, err error) {
	var all []int
	if all, err = c.AllGatherInt(ctx, v); err != nil {
		return
	}
	for r, n := range all {
		if r < c.rank {
			offset += n
		}
		total += n
	}
	return
}
