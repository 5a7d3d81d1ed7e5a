// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"

	"k8s.io/klog/v2"
)

// WorkerHandle is exposed to a WorkerAwareTargetFunc when its Target was
// built with NewTargetWithWorker. It carries per-worker capabilities: a
// deterministic seeded RNG, a way to emit progress Messages, and
// (optionally) a shared cross-worker lock.
type WorkerHandle struct {
	name     string
	rnd      *rand.Rand
	q        *queues
	lock     sync.Locker
	isLocked bool
}

// Name returns this worker's "Worker_NNNN" identifier.
func (w *WorkerHandle) Name() string { return w.name }

// Rand returns a deterministic float64 in [0,1) drawn from this worker's
// per-construction seed.
func (w *WorkerHandle) Rand() float64 { return w.rnd.Float64() }

// RandN returns n such deterministic values.
func (w *WorkerHandle) RandN(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = w.rnd.Float64()
	}
	return out
}

// Communicate enqueues a free-form progress Message on MessageQ.
func (w *WorkerHandle) Communicate(text string) {
	w.q.sendMessage(Message{SenderName: w.name, Time: clk.Now(), Text: text})
}

// Acquire takes the shared lock configured on the Mapper. It is an
// ArgumentError to acquire when no lock was configured, and an error to
// acquire while already holding it.
func (w *WorkerHandle) Acquire() error {
	if w.lock == nil {
		return NewArgumentError("%s: cannot acquire the lock, no lock was provided when constructing the mapper", w.name)
	}
	if w.isLocked {
		return NewArgumentError("%s: is already locked", w.name)
	}
	w.lock.Lock()
	w.isLocked = true
	return nil
}

// Release drops the shared lock. It is an error to release while not
// holding it.
func (w *WorkerHandle) Release() error {
	if !w.isLocked {
		return NewArgumentError("%s: is not locked", w.name)
	}
	w.isLocked = false
	w.lock.Unlock()
	return nil
}

// worker is one of the N isolated executors in the pool. It owns its own
// Target reference, a shared view of the three queues, and its own
// WorkerHandle (seeded RNG, optional lock).
type worker struct {
	name   string
	target *Target
	q      *queues
	handle *WorkerHandle
	ignore map[ErrorKind]struct{}
}

func newWorker(name string, target *Target, q *queues, seed int64, lock sync.Locker, ignore map[ErrorKind]struct{}) *worker {
	return &worker{
		name:   name,
		target: target,
		q:      q,
		handle: &WorkerHandle{name: name, rnd: rand.New(rand.NewSource(seed)), q: q, lock: lock},
		ignore: ignore,
	}
}

// run is the worker's single loop. It drains InputQ until it observes an
// EndingSignal, a GeneratorError, or an unignored WorkerError.
func (w *worker) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			klog.Warningf("%s panicked: %v\n%s", w.name, r, string(debug.Stack()))
			w.putInput(ctx, endingSignalEnvelope())
		}
	}()

	for {
		var (
			env Envelope
			ok  bool
		)
		select {
		case <-ctx.Done():
			return
		case env, ok = <-w.q.input:
			if !ok {
				return
			}
		}

		switch env.Kind {
		case EndingSignalKind:
			w.handle.Communicate("got EndingSignal")
			w.putInput(ctx, endingSignalEnvelope())
			w.putOutput(ctx, endingSignalEnvelope())
			return

		case GeneratorErrorKind:
			w.putInput(ctx, endingSignalEnvelope())
			w.putOutput(ctx, generatorErrorEnvelope(env.GeneratorErr))
			return

		case JobKind:
			if w.processJob(ctx, env.Job) {
				return
			}

		default:
			panic(&ProtocolViolationError{Kind: env.Kind})
		}
	}
}

// processJob invokes the target for job and reports the outcome. It returns
// true if the worker must exit (an unignored WorkerError occurred).
func (w *worker) processJob(ctx context.Context, job Job) bool {
	w.handle.Communicate(fmt.Sprintf("got job %d", job.ID))

	start := clk.Now()
	answer, err := w.target.invoke(w.handle, job)
	end := clk.Now()

	if err != nil {
		kind := classify(err)
		workerErr := NewWorkerError(kind, err, w.name, job.ID)
		w.putOutput(ctx, workerErrorEnvelope(workerErr))

		if _, ignored := w.ignore[kind]; !ignored {
			w.putInput(ctx, endingSignalEnvelope())
			return true
		}
		w.handle.Communicate(fmt.Sprintf("failed %d", job.ID))
		return false
	}

	output := WorkerOutput{
		JobID:    job.ID,
		Answer:   answer,
		GenTime:  job.GenTime,
		ProcTime: Interval{Start: start, End: end},
	}
	w.putOutput(ctx, workerOutputEnvelope(output))
	w.handle.Communicate(fmt.Sprintf("put job %d", job.ID))
	return false
}

// putInput re-enqueues an envelope (always an EndingSignal in practice) on
// InputQ so the next worker in the daisy chain also observes it.
func (w *worker) putInput(ctx context.Context, env Envelope) {
	select {
	case w.q.input <- env:
	case <-ctx.Done():
	}
}

// putOutput enqueues an envelope on OutputQ for the controller to consume.
func (w *worker) putOutput(ctx context.Context, env Envelope) {
	select {
	case w.q.output <- env:
	case <-ctx.Done():
	}
}
