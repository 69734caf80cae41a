package async_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/pkg/async"
)

func TestPoolExecute(t *testing.T) {
	t.Run("returns a result for every task", func(t *testing.T) {
		pool := async.NewPool(3)
		tasks := []async.Task{
			{Name: "a", Execute: func(ctx context.Context) (any, error) { return 1, nil }},
			{Name: "b", Execute: func(ctx context.Context) (any, error) { return 2, nil }},
			{Name: "c", Execute: func(ctx context.Context) (any, error) { return 3, nil }},
			{Name: "d", Execute: func(ctx context.Context) (any, error) { return 4, nil }},
		}

		results := pool.Execute(context.Background(), tasks)
		require.Len(t, results, 4)
		assert.Equal(t, 1, results["a"].Data)
		assert.Equal(t, 4, results["d"].Data)
		assert.NoError(t, async.FirstError(tasks, results))
	})

	t.Run("pool can be reused", func(t *testing.T) {
		pool := async.NewPool(2)
		task := []async.Task{{Name: "x", Execute: func(ctx context.Context) (any, error) { return "ok", nil }}}

		first := pool.Execute(context.Background(), task)
		second := pool.Execute(context.Background(), task)
		assert.Equal(t, "ok", first["x"].Data)
		assert.Equal(t, "ok", second["x"].Data)
	})

	t.Run("limits concurrency to worker count", func(t *testing.T) {
		pool := async.NewPool(2)
		var running, peak int32
		tasks := make([]async.Task, 0, 6)
		for _, name := range []string{"1", "2", "3", "4", "5", "6"} {
			tasks = append(tasks, async.Task{Name: name, Execute: func(ctx context.Context) (any, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil, nil
			}})
		}

		results := pool.Execute(context.Background(), tasks)
		assert.Len(t, results, 6)
		assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	})

	t.Run("reports errors and panics per task", func(t *testing.T) {
		pool := async.NewPool(1)
		boom := errors.New("boom")
		tasks := []async.Task{
			{Name: "ok", Execute: func(ctx context.Context) (any, error) { return true, nil }},
			{Name: "fails", Execute: func(ctx context.Context) (any, error) { return nil, boom }},
			{Name: "panics", Execute: func(ctx context.Context) (any, error) { panic("bad") }},
		}

		results := pool.Execute(context.Background(), tasks)
		assert.NoError(t, results["ok"].Err)
		assert.ErrorIs(t, results["fails"].Err, boom)
		assert.Error(t, results["panics"].Err)
		assert.ErrorIs(t, async.FirstError(tasks, results), boom)
	})

	t.Run("cancelled context marks tasks as failed", func(t *testing.T) {
		pool := async.NewPool(1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		tasks := []async.Task{{Name: "late", Execute: func(ctx context.Context) (any, error) { return 1, nil }}}
		results := pool.Execute(ctx, tasks)
		assert.ErrorIs(t, results["late"].Err, context.Canceled)
	})

	t.Run("empty task list", func(t *testing.T) {
		assert.Empty(t, async.NewPool(4).Execute(context.Background(), nil))
	})
}
