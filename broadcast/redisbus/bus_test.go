package redisbus

import (
	"context"
	"testing"
	"time"

	"github.com/MrEthical07/qmsauth/broadcast"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

func newBusTest(t *testing.T) (*Bus, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return New(rdb, "", logr.Discard()), mr, func() {
		rdb.Close()
		mr.Close()
	}
}

func TestBusDeliversPublishedEvents(t *testing.T) {
	bus, _, done := newBusTest(t)
	defer done()
	ctx := context.Background()

	events, cancel, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	sent := broadcast.Event{
		Type:   broadcast.EventStorageRemoved,
		Key:    "qms_access_token",
		Origin: "cli-1",
		At:     time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC),
	}
	if err := bus.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-events:
		if got.Type != sent.Type || got.Key != sent.Key || got.Origin != sent.Origin || !got.At.Equal(sent.At) {
			t.Fatalf("unexpected event %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusSkipsMalformedPayloads(t *testing.T) {
	bus, mr, done := newBusTest(t)
	defer done()
	ctx := context.Background()

	events, cancel, err := bus.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer cancel()

	mr.Publish(DefaultChannel, "not-json")
	if err := bus.Publish(ctx, broadcast.Event{Type: broadcast.EventLogout, Origin: "o"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case got := <-events:
		if got.Type != broadcast.EventLogout {
			t.Fatalf("expected logout after malformed payload, got %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBusCancelClosesChannel(t *testing.T) {
	bus, _, done := newBusTest(t)
	defer done()

	events, cancel, err := bus.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed")
	}
}
