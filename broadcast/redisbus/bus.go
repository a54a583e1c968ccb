// Package redisbus carries session broadcast events over Redis pub/sub.
package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/MrEthical07/qmsauth/broadcast"
	"github.com/go-logr/logr"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "qmsauth:session-events"

// Bus publishes JSON-encoded events on one Redis channel.
type Bus struct {
	redis   redis.UniversalClient
	channel string
	buffer  int
	log     logr.Logger
}

// New returns a Bus on channel.
func New(client redis.UniversalClient, channel string, logger logr.Logger) *Bus {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}
	return &Bus{
		redis:   client,
		channel: channel,
		buffer:  16,
		log:     logger,
	}
}

var _ broadcast.Broadcaster = (*Bus)(nil)

func (b *Bus) Publish(ctx context.Context, event broadcast.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode session event: %w", err)
	}
	return b.redis.Publish(ctx, b.channel, data).Err()
}

// Subscribe waits for the subscription to be confirmed so events published
// after it returns are not missed.
func (b *Bus) Subscribe(ctx context.Context) (<-chan broadcast.Event, func(), error) {
	pubsub := b.redis.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", b.channel, err)
	}

	out := make(chan broadcast.Event, b.buffer)
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var event broadcast.Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					b.log.Error(err, "dropping malformed session event", "channel", b.channel)
					continue
				}
				select {
				case out <- event:
				case <-done:
					return
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
			wg.Wait()
		})
	}
	return out, cancel, nil
}
