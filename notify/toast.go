package notify

import (
	"context"
	"sync"
	"time"

	"github.com/MrEthical07/qmsauth/apierr"
	"github.com/go-logr/logr"
)

// Level is the toast style.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Toast is one user-facing notification. A zero Duration means the toast
// stays until dismissed.
type Toast struct {
	Level      Level
	Title      string
	Message    string
	Duration   time.Duration
	Descriptor apierr.Descriptor
}

// Sticky reports whether the toast never auto-dismisses.
func (t Toast) Sticky() bool {
	return t.Duration == 0
}

// ToastFor maps a descriptor to its presentation.
func ToastFor(d apierr.Descriptor) Toast {
	t := Toast{Message: d.UserMessage, Descriptor: d}
	if t.Message == "" {
		t.Message = d.Message
	}
	switch d.Severity {
	case apierr.SeverityLow:
		t.Level, t.Title, t.Duration = LevelInfo, "Información", 3*time.Second
	case apierr.SeverityMedium:
		t.Level, t.Title, t.Duration = LevelWarning, "Advertencia", 5*time.Second
	case apierr.SeverityHigh:
		t.Level, t.Title, t.Duration = LevelError, "Error", 8*time.Second
	case apierr.SeverityCritical:
		t.Level, t.Title, t.Duration = LevelError, "Error crítico", 0
	default:
		t.Level, t.Title, t.Duration = LevelWarning, "Advertencia", 5*time.Second
	}
	return t
}

// Presenter shows toasts.
type Presenter interface {
	Present(ctx context.Context, toast Toast)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, toast Toast)

func (f PresenterFunc) Present(ctx context.Context, toast Toast) {
	f(ctx, toast)
}

// LogPresenter writes toasts to a logger.
type LogPresenter struct {
	Logger logr.Logger
}

func (p LogPresenter) Present(_ context.Context, toast Toast) {
	p.Logger.Info("toast",
		"level", toast.Level,
		"title", toast.Title,
		"message", toast.Message,
		"duration", toast.Duration,
	)
}

// Recorder keeps every presented toast. It is meant for tests and for UI
// bridges that poll.
type Recorder struct {
	mu     sync.Mutex
	toasts []Toast
}

func (r *Recorder) Present(_ context.Context, toast Toast) {
	r.mu.Lock()
	r.toasts = append(r.toasts, toast)
	r.mu.Unlock()
}

// Toasts returns a copy of the recorded toasts.
func (r *Recorder) Toasts() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	copy(out, r.toasts)
	return out
}
