// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"fmt"
)

// Printer consumes Messages from MessageQ and terminates once the controller
// closes MessageQ or the run's context is cancelled. Interactive terminal printers / progress bars themselves are
// out of scope for this package; StdoutPrinter is the default, minimal
// implementation in the spirit of the original's BasicPrinter
// (original_source/proton/multipro/messages.py).
type Printer interface {
	Run(ctx context.Context, messages <-chan Message)
}

// StdoutPrinter prints every Message's String() to stdout until the
// controller closes MessageQ.
type StdoutPrinter struct{}

// Run implements Printer.
func (StdoutPrinter) Run(ctx context.Context, messages <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-messages:
			if !ok {
				return
			}
			fmt.Println(m.String())
		}
	}
}

// NoopPrinter discards every Message; it is used when Options.Verbose is
// false, since workers and the feeder unconditionally send Messages and the
// channel must still be drained.
type NoopPrinter struct{}

// Run implements Printer.
func (NoopPrinter) Run(ctx context.Context, messages <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-messages:
			if !ok {
				return
			}
		}
	}
}
