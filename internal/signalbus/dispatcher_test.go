package signalbus

import (
	"context"
	"sync"
	"testing"
	"time"
)

type recordSink struct {
	mu     sync.Mutex
	events []int
	block  chan struct{}
}

func (s *recordSink) Emit(_ context.Context, e int) {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordSink) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.events...)
}

func TestDisabledDispatcherIsNil(t *testing.T) {
	d := New[int](Config{Enabled: false}, &recordSink{}, nil)
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), 1)
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestCloseFlushesInOrder(t *testing.T) {
	sink := &recordSink{}
	d := New[int](Config{Enabled: true, BufferSize: 16}, sink, nil)
	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), i)
	}
	d.Close()

	got := sink.snapshot()
	if len(got) != 10 {
		t.Fatalf("expected 10 delivered, got %d", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("out of order delivery: %v", got)
		}
	}
	if d.Delivered() != 10 {
		t.Fatalf("delivered counter = %d", d.Delivered())
	}

	d.Emit(context.Background(), 99)
	if len(sink.snapshot()) != 10 {
		t.Fatal("emit after close must be ignored")
	}
}

func TestDropIfFullCountsDrops(t *testing.T) {
	sink := &recordSink{block: make(chan struct{})}
	d := New[int](Config{Enabled: true, BufferSize: 1, DropIfFull: true}, sink, nil)

	// First event is taken by the relay and blocks in the sink; the second
	// fills the buffer; the rest are dropped.
	d.Emit(context.Background(), 1)
	deadline := time.Now().Add(time.Second)
	for len(d.ch) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	d.Emit(context.Background(), 2)
	d.Emit(context.Background(), 3)
	d.Emit(context.Background(), 4)

	if d.Dropped() != 2 {
		t.Fatalf("expected 2 dropped, got %d", d.Dropped())
	}
	close(sink.block)
	d.Close()
}

type panicSink struct{ calls int }

func (p *panicSink) Emit(context.Context, int) {
	p.calls++
	panic("sink failure")
}

func TestPanickingSinkDoesNotStopRelay(t *testing.T) {
	sink := &panicSink{}
	var mu sync.Mutex
	var recovered []any
	d := New[int](Config{Enabled: true, BufferSize: 4}, sink, func(r any) {
		mu.Lock()
		recovered = append(recovered, r)
		mu.Unlock()
	})
	d.Emit(context.Background(), 1)
	d.Emit(context.Background(), 2)
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(recovered) != 2 || sink.calls != 2 {
		t.Fatalf("expected both events to reach the sink, recovered=%d calls=%d", len(recovered), sink.calls)
	}
}
