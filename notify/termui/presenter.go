// Package termui presents toasts on a terminal with pterm.
package termui

import (
	"context"
	"io"
	"os"

	"github.com/MrEthical07/qmsauth/notify"
	"github.com/pterm/pterm"
)

// Presenter prints toasts with pterm prefix printers.
type Presenter struct {
	info    *pterm.PrefixPrinter
	warning *pterm.PrefixPrinter
	error   *pterm.PrefixPrinter
}

// New returns a Presenter writing to w, or stderr when w is nil.
func New(w io.Writer) *Presenter {
	if w == nil {
		w = os.Stderr
	}
	return &Presenter{
		info:    pterm.Info.WithWriter(w),
		warning: pterm.Warning.WithWriter(w),
		error:   pterm.Error.WithWriter(w),
	}
}

var _ notify.Presenter = (*Presenter)(nil)

func (p *Presenter) Present(_ context.Context, toast notify.Toast) {
	printer := p.warning
	switch toast.Level {
	case notify.LevelInfo:
		printer = p.info
	case notify.LevelError:
		printer = p.error
	}
	printer.Println(toast.Title + ": " + toast.Message)
}
