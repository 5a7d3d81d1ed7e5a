// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"k8s.io/klog/v2"

	"github.com/gardener/proton/pkg/proton/affinity"
)

// Options is the common construction surface shared by NewAsyncMapper,
// NewSyncMapper and NewStackAsync.
type Options struct {
	// Target wraps the user-supplied callable. Build it with NewTarget or
	// NewTargetWithWorker.
	Target *Target
	// Jobs is the lazy, finite sequence of Jobs to process.
	Jobs JobGenerator
	// IgnoreExceptions lists the ErrorKinds a target may raise that should
	// not tear down the run. Forbidden (ArgumentError) for NewSyncMapper.
	IgnoreExceptions []ErrorKind
	// NumWorkers is the size of the worker pool. Defaults to host CPU
	// count when <= 0.
	NumWorkers int
	// Affinity is either "" (unset), a single core "k", or a range "a-b"
	// with b >= a >= 0.
	Affinity string
	// Lock is an optional cross-worker mutex surfaced on the WorkerHandle.
	Lock sync.Locker
	// Verbose enables the default StdoutPrinter; otherwise a NoopPrinter
	// drains MessageQ.
	Verbose bool
	// Printer overrides the default printer selected by Verbose.
	Printer Printer
	// LowPriority requests a niceness adjustment for this process group.
	LowPriority bool
	// ErrorLogPath overrides DefaultErrorLogPath.
	ErrorLogPath string
}

func (o Options) numWorkers() int {
	if o.NumWorkers > 0 {
		return o.NumWorkers
	}
	return runtime.NumCPU()
}

func (o Options) ignoreSet() map[ErrorKind]struct{} {
	set := make(map[ErrorKind]struct{}, len(o.IgnoreExceptions))
	for _, k := range o.IgnoreExceptions {
		set[k] = struct{}{}
	}
	return set
}

func (o Options) validate(orderedMode bool) (affinity.Descriptor, error) {
	var descriptor affinity.Descriptor
	if o.Target == nil {
		return descriptor, NewArgumentError("Target is required")
	}
	if o.Jobs == nil {
		return descriptor, NewArgumentError("Jobs is required")
	}
	if orderedMode && len(o.IgnoreExceptions) > 0 {
		return descriptor, NewArgumentError("ordered-map mode forbids configuring ignore_exceptions")
	}
	if o.Affinity != "" {
		d, err := affinity.Parse(o.Affinity)
		if err != nil {
			return descriptor, NewArgumentError("%v", err)
		}
		descriptor = d
	}
	return descriptor, nil
}

// runnable is the interface both worker and stacker satisfy: a single
// blocking loop over InputQ, started as its own goroutine.
type runnable interface {
	run(ctx context.Context)
}

// pipeline is the shared Mapper/Stacker lifecycle: it owns the three queues,
// the feeder, the worker (or stacker) pool, the printer, and the error log,
// and implements the scoped-acquisition/scoped-release protocol.
//
// Go has no process-level "terminate" primitive for a running goroutine, so
// this port substitutes context cancellation: every blocking channel
// operation in feeder/worker/stacker/printer selects on ctx.Done(), so
// cancelling ctx has the same unblocking effect as closing the channels,
// without the send-on-closed-channel race a literal "close first" port
// would risk. The close-before-terminate ordering is preserved in spirit:
// ctx is cancelled, every goroutine is joined (so nothing can still be
// sending), and only then are the channels actually closed.
type pipeline struct {
	q        *queues
	fd       *feeder
	items    []runnable
	nactive  int
	ignore   map[ErrorKind]struct{}
	printer  Printer
	errLog   *errorLog
	affinity affinity.Descriptor
	hasAff   bool
	lowPrio  bool

	ctx       context.Context
	cancel    context.CancelFunc
	wgWorkers sync.WaitGroup
	wgPrinter sync.WaitGroup
	fatalErr  error
	started   bool

	teardownMu  sync.Mutex
	teardownErr *multierror.Error
}

// recordTeardownError accumulates a non-fatal failure encountered while
// tearing down a collaborator (applying affinity, reniceing, appending to
// the error log) so close returns it instead of only logging it.
func (p *pipeline) recordTeardownError(err error) {
	if err == nil {
		return
	}
	p.teardownMu.Lock()
	defer p.teardownMu.Unlock()
	p.teardownErr = multierror.Append(p.teardownErr, err)
}

func newPipeline(opts Options, descriptor affinity.Descriptor, build func(q *queues, seed int64, name string) runnable) *pipeline {
	n := opts.numWorkers()
	q := newQueues(n)
	fd := newFeeder(opts.Jobs, q)

	seedSrc := rand.New(rand.NewSource(time.Now().UnixNano()))
	items := make([]runnable, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("Worker_%04d", i+1)
		items[i] = build(q, seedSrc.Int63(), name)
	}

	printer := opts.Printer
	if printer == nil {
		if opts.Verbose {
			printer = StdoutPrinter{}
		} else {
			printer = NoopPrinter{}
		}
	}

	return &pipeline{
		q:        q,
		fd:       fd,
		items:    items,
		nactive:  n,
		ignore:   opts.ignoreSet(),
		printer:  printer,
		errLog:   newErrorLog(opts.ErrorLogPath),
		affinity: descriptor,
		hasAff:   opts.Affinity != "",
		lowPrio:  opts.LowPriority,
	}
}

// start spawns the feeder, the worker/stacker pool and the printer, then
// applies affinity/niceness exactly once, to this process. Unlike the
// Python original, whose workers are separate OS processes each pinned
// individually, Go's workers are goroutines sharing one address space, so
// affinity and niceness are applied to the controller's own pid/
// process-group rather than per child.
func (p *pipeline) start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.started = true

	for _, item := range p.items {
		p.wgWorkers.Add(1)
		go func(r runnable) {
			defer p.wgWorkers.Done()
			r.run(p.ctx)
		}(item)
	}

	p.wgWorkers.Add(1)
	go func() {
		defer p.wgWorkers.Done()
		p.fd.run(p.ctx)
	}()

	p.wgPrinter.Add(1)
	go func() {
		defer p.wgPrinter.Done()
		p.printer.Run(p.ctx, p.q.message)
	}()

	if p.hasAff {
		if err := p.affinity.Apply(os.Getpid()); err != nil {
			klog.Warningf("proton: failed to apply affinity %+v: %v", p.affinity, err)
			p.recordTeardownError(fmt.Errorf("applying affinity %+v: %w", p.affinity, err))
		}
	}
	if p.lowPrio {
		if err := affinity.Renice(os.Getpgrp(), 10); err != nil {
			klog.Warningf("proton: failed to renice process group: %v", err)
			p.recordTeardownError(fmt.Errorf("reniceing process group: %w", err))
		}
	}
}

// logWorkerError appends a WorkerError's trace to the shared error log; only
// the pipeline (never a worker/stacker directly) writes it.
func (p *pipeline) logWorkerError(we *WorkerError) {
	if err := p.errLog.append(we.Trace); err != nil {
		klog.Warningf("proton: failed to append to error log: %v", err)
		p.recordTeardownError(fmt.Errorf("appending to error log: %w", err))
	}
}

func (p *pipeline) ignored(kind ErrorKind) bool {
	_, ok := p.ignore[kind]
	return ok
}

// close implements the controller's "Exit": the clean path joins everything
// and closes channels; the error/early-exit path cancels first (this port's
// substitute for forced termination, see the pipeline doc comment above),
// then joins, then closes. Every non-fatal teardown failure recorded via
// recordTeardownError is combined with the run's fatalErr (if any) into a
// single multierror so callers see all of them, not just whichever happened
// to be checked first.
func (p *pipeline) close(clean bool) error {
	if !p.started {
		if err := p.errLog.close(); err != nil {
			p.recordTeardownError(err)
		}
		return p.teardownErr.ErrorOrNil()
	}
	defer p.cancel()

	if !clean {
		p.cancel()
	}
	p.wgWorkers.Wait()
	close(p.q.message)
	p.wgPrinter.Wait()
	close(p.q.input)
	close(p.q.output)

	if err := p.errLog.close(); err != nil {
		p.recordTeardownError(err)
	}
	if p.fatalErr != nil {
		p.recordTeardownError(p.fatalErr)
	}
	return p.teardownErr.ErrorOrNil()
}
