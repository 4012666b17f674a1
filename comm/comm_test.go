package comm

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func run(t *testing.T, size int, fn func(ctx context.Context, c *Comm) error) error {
	w, err := NewWorld(size)
	require.NoError(t, err)
	assert.Equal(t, size, w.Size())
	return w.Run(context.Background(), fn)
}

func TestSendRecv(t *testing.T) {
	err := run(t, 2, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 0 {
			for i := 0; i < 5; i++ {
				if err := c.Send(ctx, 1, 7, i); err != nil {
					return err
				}
			}
			return c.Send(ctx, 1, 3, "last")
		}
		// Tag 3 was sent after tag 7 but is matched first
		s, err := Receive[string](ctx, c, 0, 3)
		if err != nil {
			return err
		}
		if s != "last" {
			return fmt.Errorf("got %q", s)
		}
		for i := 0; i < 5; i++ {
			v, err := Receive[int](ctx, c, AnySource, 7)
			if err != nil {
				return err
			}
			if v != i {
				return fmt.Errorf("message %d arrived as %d", i, v)
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCollectives(t *testing.T) {
	const size = 4
	err := run(t, size, func(ctx context.Context, c *Comm) error {
		r := c.Rank()
		all, err := c.AllGatherInt(ctx, r*r)
		if err != nil {
			return err
		}
		if !assert.Equal(t, []int{0, 1, 4, 9}, all) {
			return errors.New("allgather")
		}

		offset, total, err := ExclusiveScan(ctx, c, r+1)
		if err != nil {
			return err
		}
		assert.Equal(t, r*(r+1)/2, offset)
		assert.Equal(t, 10, total)

		var values []string
		if r == 2 {
			values = []string{"a", "b", "c", "d"}
		}
		s, err := Scatter(ctx, c, 2, values)
		if err != nil {
			return err
		}
		assert.Equal(t, string(rune('a'+r)), s)

		g, err := Gather(ctx, c, 1, s+s)
		if err != nil {
			return err
		}
		if r == 1 {
			assert.Equal(t, []string{"aa", "bb", "cc", "dd"}, g)
		} else {
			assert.Nil(t, g)
		}

		b, err := Bcast(ctx, c, 3, r*10)
		if err != nil {
			return err
		}
		assert.Equal(t, 30, b)

		out := make([][]int, size)
		for k := range out {
			out[k] = []int{r, k}
		}
		in, err := AllToAll(ctx, c, out)
		if err != nil {
			return err
		}
		for k := range in {
			assert.Equal(t, []int{k, r}, in[k])
		}
		return c.Barrier(ctx)
	})
	require.NoError(t, err)
}

func TestRunFailureCancelsCollective(t *testing.T) {
	var waited int32
	err := run(t, 3, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 1 {
			return errors.New("mesh is broken")
		}
		_, err := c.AllGatherInt(ctx, 1)
		if err != nil {
			atomic.AddInt32(&waited, 1)
		}
		return err
	})
	require.Error(t, err)
	errs := multierr.Errors(err)
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0], "rank 1: mesh is broken")
	assert.Equal(t, int32(2), atomic.LoadInt32(&waited))
}

func TestRunCombinesFailures(t *testing.T) {
	err := run(t, 4, func(ctx context.Context, c *Comm) error {
		if c.Rank()%2 == 0 {
			return fmt.Errorf("rank local failure")
		}
		return nil
	})
	assert.Len(t, multierr.Errors(err), 2)
}

func TestRunPanic(t *testing.T) {
	err := run(t, 2, func(ctx context.Context, c *Comm) error {
		if c.Rank() == 0 {
			panic("index out of range")
		}
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rank 0: panic: index out of range")
}

func TestInvalidArguments(t *testing.T) {
	_, err := NewWorld(0)
	assert.Error(t, err)

	w, err := NewWorld(2)
	require.NoError(t, err)
	c := w.Comm(0)
	ctx := context.Background()
	assert.Error(t, c.Send(ctx, 2, 0, 1))
	assert.Error(t, c.Send(ctx, 1, -1, 1))
	_, err = c.Recv(ctx, 5, 0)
	assert.Error(t, err)
	_, err = AllToAll(ctx, c, []int{1})
	assert.Error(t, err)

	// A message of the wrong type is an error, not a panic
	require.NoError(t, w.Comm(1).Send(ctx, 0, 4, "text"))
	_, err = Receive[int](ctx, c, 1, 4)
	assert.Error(t, err)

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = c.Recv(canceled, 1, 9)
	assert.True(t, errors.Is(err, context.Canceled))
}
