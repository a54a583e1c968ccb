package qmsauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/MrEthical07/qmsauth/model"
)

// SignalType names a session lifecycle event.
type SignalType string

const (
	SignalLoginSuccess     SignalType = "login.success"
	SignalLoginFailed      SignalType = "login.failed"
	SignalLogout           SignalType = "logout"
	SignalTokenRefreshed   SignalType = "token.refreshed"
	SignalSessionExpired   SignalType = "session.expired"
	SignalConnectivityLost SignalType = "connectivity.lost"
)

// Logout reasons carried in Signal.Reason.
const (
	ReasonUser         = "user"
	ReasonUnauthorized = "unauthorized"
	ReasonCrossTab     = "cross_tab"
	ReasonExpired      = "expired"
)

// Signal is delivered to the configured SignalSink. User and Tokens are
// copies; sinks may keep them.
type Signal struct {
	Type      SignalType       `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	User      *model.User      `json:"user,omitempty"`
	Tokens    *model.TokenPair `json:"-"`
	Error     string           `json:"error,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// SignalSink receives signals on the dispatcher goroutine, in emit order.
type SignalSink interface {
	Emit(ctx context.Context, signal Signal)
}

// SinkFunc adapts a function to SignalSink.
type SinkFunc func(ctx context.Context, signal Signal)

func (f SinkFunc) Emit(ctx context.Context, signal Signal) {
	f(ctx, signal)
}

// NoOpSink drops signals.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Signal) {}

// ChannelSink writes signals into a buffered channel.
type ChannelSink struct {
	signals chan Signal
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		signals: make(chan Signal, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, signal Signal) {
	select {
	case s.signals <- signal:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Signals() <-chan Signal {
	return s.signals
}

// JSONWriterSink writes one JSON object per line. Tokens are never written.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(_ context.Context, signal Signal) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(signal)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
