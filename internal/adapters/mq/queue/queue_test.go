package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestNewTask(t *testing.T) {
	a := NewTask("run-1", 0, "zezima")
	b := NewTask("run-1", 0, "zezima")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
	if a.RunID != "run-1" || a.Username != "zezima" {
		t.Errorf("unexpected task %+v", a)
	}
	if a.EnqueuedAt.IsZero() {
		t.Error("expected enqueue time to be set")
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	task := NewTask("run-1", 0, "alice")
	if !q.Enqueue(ctx, task) {
		t.Fatal("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	select {
	case got := <-q.Dequeue(ctx):
		if got.ID != task.ID {
			t.Errorf("expected task %s, got %s", task.ID, got.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task")
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, NewTask("r", 0, "a")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, NewTask("r", 0, "b")) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, NewTask("r", 0, "c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_BufferNeverSmallerThanCapacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(8), WithBufferSize(2))
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		if !q.Enqueue(ctx, NewTask("r", 0, fmt.Sprintf("p%d", i))) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				task := NewTask("r", id, fmt.Sprintf("p%d_%d", id, j))
				for !q.Enqueue(ctx, task) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	consumed := make(chan string, producers*perProducer)
	out := q.Dequeue(ctx)
	go func() {
		for task := range out {
			consumed <- task.Username
		}
	}()

	wg.Wait()

	seen := make(map[string]struct{})
	timeout := time.After(2 * time.Second)
	for len(seen) < producers*perProducer {
		select {
		case u := <-consumed:
			seen[u] = struct{}{}
		case <-timeout:
			t.Fatalf("consumed %d of %d tasks", len(seen), producers*perProducer)
		}
	}
}

func TestInMemoryQueue_CloseDrains(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	q.Enqueue(ctx, NewTask("r", 0, "a"))
	q.Enqueue(ctx, NewTask("r", 0, "b"))

	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, NewTask("r", 0, "c")) {
		t.Error("expected enqueue to fail after closing")
	}

	var got []string
	timeout := time.After(time.Second)
	out := q.Dequeue(ctx)
	for {
		select {
		case task, ok := <-out:
			if !ok {
				if len(got) != 2 {
					t.Errorf("expected 2 drained tasks, got %v", got)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			got = append(got, task.Username)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}

func TestInMemoryQueue_DequeueStopsOnCancel(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())

	out := q.Dequeue(ctx)
	cancel()
	q.Enqueue(context.Background(), NewTask("r", 0, "a"))

	select {
	case <-out:
	case <-time.After(time.Second):
		t.Fatal("expected dequeue channel to stop after cancel")
	}
}
