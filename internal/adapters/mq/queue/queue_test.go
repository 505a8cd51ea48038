package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/aedplacement/internal/domain/model"
)

func job(row, col int) Job {
	return model.CellJob{Row: row, Col: col, Origin: model.Coordinate{Lat: 50.85, Lon: 4.35}, Dest: model.Coordinate{Lat: 50.86, Lon: 4.36}}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job(0, 1)) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.Row != 0 || got.Col != 1 {
		t.Errorf("expected cell (0,1), got (%d,%d)", got.Row, got.Col)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2), WithBufferSize(1))
	ctx := context.Background()

	if !q.Enqueue(ctx, job(0, 0)) || !q.Enqueue(ctx, job(0, 1)) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job(0, 2)) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_DrainsAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(ctx, job(i, 0)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if q.Enqueue(ctx, job(9, 9)) {
		t.Error("expected enqueue to fail after closing")
	}

	var rows []int
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(rows) != 5 {
					t.Fatalf("expected 5 jobs, got %d", len(rows))
				}
				for i, r := range rows {
					if r != i {
						t.Errorf("expected FIFO order, got %v", rows)
						break
					}
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got %v", err)
				}
				return
			}
			rows = append(rows, j.Row)
		case <-timeout:
			t.Fatal("expected dequeue channel to close")
		}
	}
}

func TestInMemoryQueue_ConcurrentConsumers(t *testing.T) {
	const total = 200
	q := NewInMemoryQueue(WithCapacity(total))
	ctx := context.Background()

	for i := 0; i < total; i++ {
		if !q.Enqueue(ctx, job(i, 0)) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	_ = q.Close()

	var (
		mu   sync.Mutex
		seen = make(map[int]bool, total)
		wg   sync.WaitGroup
	)
	for c := 0; c < 4; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range q.Dequeue(ctx) {
				mu.Lock()
				seen[j.Row] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Errorf("expected %d distinct jobs, got %d", total, len(seen))
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(3))
	for i := 0; i < 3; i++ {
		if !q.Enqueue(context.Background(), job(i, 0)) {
			t.Fatal("expected enqueue to succeed")
		}
	}
	_ = q.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The forwarder may still hand over a job before it sees the cancellation.
	ch := q.Dequeue(ctx)
	timeout := time.After(time.Second)
	for received := 0; ; received++ {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			if received > 3 {
				t.Fatal("received more jobs than queued")
			}
		case <-timeout:
			t.Fatal("expected dequeue channel to close after cancellation")
		}
	}
}
