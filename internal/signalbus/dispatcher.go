package signalbus

import (
	"context"
	"sync"
	"sync/atomic"
)

// Sink receives dispatched events.
type Sink[E any] interface {
	Emit(ctx context.Context, event E)
}

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Dispatcher asynchronously forwards events to a sink in emit order.
type Dispatcher[E any] struct {
	cfg       Config
	sink      Sink[E]
	ch        chan E
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	delivered atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
	onPanic   func(any)
}

// New starts a dispatcher. It returns nil when cfg is disabled or sink is
// nil; a nil dispatcher accepts and discards events.
func New[E any](cfg Config, sink Sink[E], onPanic func(any)) *Dispatcher[E] {
	if !cfg.Enabled || sink == nil {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if onPanic == nil {
		onPanic = func(any) {}
	}

	d := &Dispatcher[E]{
		cfg:     cfg,
		sink:    sink,
		ch:      make(chan E, cfg.BufferSize),
		done:    make(chan struct{}),
		onPanic: onPanic,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *Dispatcher[E]) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.ch:
			d.deliver(event)
		case <-d.done:
			for {
				select {
				case event := <-d.ch:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

// deliver keeps one panicking sink call from killing the relay.
func (d *Dispatcher[E]) deliver(event E) {
	defer func() {
		if r := recover(); r != nil {
			d.onPanic(r)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.delivered.Add(1)
}

// Emit queues event. With DropIfFull a full buffer drops the event;
// otherwise Emit blocks until there is room, ctx ends, or Close runs.
func (d *Dispatcher[E]) Emit(ctx context.Context, event E) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- event:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- event:
	case <-ctx.Done():
		d.dropped.Add(1)
	case <-d.done:
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher[E]) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}

// Dropped returns how many events were discarded.
func (d *Dispatcher[E]) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Delivered returns how many events reached the sink.
func (d *Dispatcher[E]) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
