// Package safego runs background work so that a panic is logged instead of
// crashing the process.
package safego

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/go-logr/logr"
)

// PanicError carries a recovered panic value and the stack it came from.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover logs a panic in progress. Use as `defer safego.Recover(log, "name")`.
func Recover(log logr.Logger, name string) {
	if r := recover(); r != nil {
		log.Error(&PanicError{Value: r, Stack: debug.Stack()}, "recovered panic in background task", "task", name)
	}
}

// Go runs fn in a goroutine tracked by wg (when non-nil). A panic in fn is
// logged and swallowed.
func Go(wg *sync.WaitGroup, log logr.Logger, name string, fn func()) {
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}
		defer Recover(log, name)
		fn()
	}()
}
