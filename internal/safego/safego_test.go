package safego

import (
	"errors"
	"sync"
	"testing"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

func TestGoRecoversAndLogsPanics(t *testing.T) {
	var mu sync.Mutex
	var lines []string
	log := funcr.New(func(prefix, args string) {
		mu.Lock()
		lines = append(lines, args)
		mu.Unlock()
	}, funcr.Options{})

	var wg sync.WaitGroup
	Go(&wg, log, "auto-refresh", func() { panic("boom") })
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d", len(lines))
	}
}

func TestGoRunsWithoutWaitGroup(t *testing.T) {
	done := make(chan struct{})
	Go(nil, logr.Discard(), "plain", func() { close(done) })
	<-done
}

func TestPanicErrorMessage(t *testing.T) {
	var err error = &PanicError{Value: "boom"}
	var pe *PanicError
	if !errors.As(err, &pe) || err.Error() != "panic: boom" {
		t.Fatalf("unexpected panic error %v", err)
	}
}
