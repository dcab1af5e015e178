package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/hiscores/internal/adapters/mq/queue"
	"github.com/okian/hiscores/internal/adapters/mq/worker"
	logging "github.com/okian/hiscores/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	tasks chan queue.Task
}

func newMockQueue() *mockQueue {
	return &mockQueue{tasks: make(chan queue.Task, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Task { return mq.tasks }

type mockProcessor struct {
	mu        sync.Mutex
	seen      map[string]int
	failures  map[string]error
	inFlight  atomic.Int64
	maxFlight atomic.Int64
	delay     time.Duration
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{
		seen:     make(map[string]int),
		failures: make(map[string]error),
	}
}

func (mp *mockProcessor) Process(ctx context.Context, t queue.Task) error {
	n := mp.inFlight.Add(1)
	defer mp.inFlight.Add(-1)
	for {
		cur := mp.maxFlight.Load()
		if n <= cur || mp.maxFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	if mp.delay > 0 {
		time.Sleep(mp.delay)
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.seen[t.Username]++
	return mp.failures[t.Username]
}

func (mp *mockProcessor) fail(username string, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.failures[username] = err
}

func (mp *mockProcessor) count(username string) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.seen[username]
}

func tasks(n int) []queue.Task {
	out := make([]queue.Task, n)
	for i := range out {
		out[i] = queue.NewTask("run-1", 0, fmt.Sprintf("player%02d", i))
	}
	return out
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker on a mock queue", t, func() {
		q := newMockQueue()
		p := newMockProcessor()

		var mu sync.Mutex
		var results []worker.Result
		w := worker.NewInMemoryWorker(q, p,
			worker.WithName("test-worker"),
			worker.WithLogger(logging.Nop()),
			worker.WithReporter(func(r worker.Result) {
				mu.Lock()
				defer mu.Unlock()
				results = append(results, r)
			}),
		)

		convey.Convey("When tasks succeed and fail", func() {
			p.fail("bob", errors.New("store down"))
			q.tasks <- queue.NewTask("r", 0, "alice")
			q.tasks <- queue.NewTask("r", 0, "bob")
			close(q.tasks)

			w.Run(context.Background())

			convey.Convey("Then every task is reported and the failure carries its error", func() {
				convey.So(results, convey.ShouldHaveLength, 2)
				convey.So(results[0].Task.Username, convey.ShouldEqual, "alice")
				convey.So(results[0].Err, convey.ShouldBeNil)
				convey.So(results[1].Err, convey.ShouldNotBeNil)
				convey.So(p.count("alice"), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When shut down while idle", func() {
			go w.Run(context.Background())
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()

			convey.Convey("Then it stops and a second shutdown is harmless", func() {
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})

		convey.Convey("When its context is cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			go w.Run(ctx)
			cancel()

			convey.Convey("Then Run returns", func() {
				select {
				case <-w.Done():
					convey.So(true, convey.ShouldBeTrue)
				case <-time.After(time.Second):
					convey.So("worker still running", convey.ShouldBeEmpty)
				}
			})
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool of three workers", t, func() {
		p := newMockProcessor()
		pool := worker.NewPool(3, p, worker.WithPoolLogger(logging.Nop()))

		convey.Convey("When a batch is drained", func() {
			batch := tasks(10)
			p.fail("player04", errors.New("corrupt"))
			res := pool.RunBatch(context.Background(), batch)

			convey.Convey("Then every task is handled exactly once", func() {
				for _, task := range batch {
					convey.So(p.count(task.Username), convey.ShouldEqual, 1)
				}
				convey.So(res.Processed, convey.ShouldEqual, 9)
				convey.So(res.Failed, convey.ShouldEqual, 1)
				convey.So(res.Skipped, convey.ShouldEqual, 0)
				convey.So(res.Errors, convey.ShouldContainKey, "player04")
			})
		})

		convey.Convey("When the batch is larger than the pool", func() {
			p.delay = 5 * time.Millisecond
			pool.RunBatch(context.Background(), tasks(12))

			convey.Convey("Then concurrency never exceeds the pool size", func() {
				convey.So(p.maxFlight.Load(), convey.ShouldBeLessThanOrEqualTo, int64(3))
				convey.So(p.maxFlight.Load(), convey.ShouldBeGreaterThan, int64(0))
			})
		})

		convey.Convey("When the batch is empty", func() {
			res := pool.RunBatch(context.Background(), nil)

			convey.Convey("Then nothing happens", func() {
				convey.So(res.Processed, convey.ShouldEqual, 0)
				convey.So(res.Failed, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res := pool.RunBatch(ctx, tasks(5))

			convey.Convey("Then unhandled tasks are counted as skipped", func() {
				convey.So(res.Processed+res.Failed+res.Skipped, convey.ShouldEqual, 5)
			})
		})
	})

	convey.Convey("Given a pool with no explicit size", t, func() {
		pool := worker.NewPool(0, worker.ProcessorFunc(func(context.Context, queue.Task) error { return nil }),
			worker.WithPoolLogger(logging.Nop()))

		convey.Convey("Then it sizes itself from the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
