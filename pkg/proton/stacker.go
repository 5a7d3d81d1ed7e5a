// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"time"

	"k8s.io/klog/v2"
)

// stacker is the Worker variant used by a StackController: instead of
// emitting one WorkerOutput per Job, it locally reduces every successful
// answer into a running StackerOutput using the user-supplied Combiner, and
// emits it once when it observes the EndingSignal.
type stacker struct {
	name    string
	target  *Target
	q       *queues
	handle  *WorkerHandle
	combine Combiner
	ignore  map[ErrorKind]struct{}

	partial       interface{}
	jobIDs        []int64
	genTimeTotal  time.Duration
	procTimeTotal time.Duration
}

func newStacker(name string, target *Target, q *queues, seed int64, combine Combiner, ignore map[ErrorKind]struct{}) *stacker {
	return &stacker{
		name:    name,
		target:  target,
		q:       q,
		handle:  &WorkerHandle{name: name, rnd: rand.New(rand.NewSource(seed)), q: q},
		combine: combine,
		ignore:  ignore,
		partial: combine.Absent(),
	}
}

func (s *stacker) run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			klog.Warningf("%s panicked: %v\n%s", s.name, r, string(debug.Stack()))
			s.putInput(ctx, endingSignalEnvelope())
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
		case env, ok = <-s.q.input:
			if !ok {
				return
			}
		}

		switch env.Kind {
		case EndingSignalKind:
			s.emitIfNonAbsent(ctx)
			s.putInput(ctx, endingSignalEnvelope())
			s.putOutput(ctx, endingSignalEnvelope())
			return

		case GeneratorErrorKind:
			s.putInput(ctx, endingSignalEnvelope())
			s.putOutput(ctx, generatorErrorEnvelope(env.GeneratorErr))
			return

		case JobKind:
			if s.processJob(ctx, env.Job) {
				return
			}

		default:
			panic(&ProtocolViolationError{Kind: env.Kind})
		}
	}
}

// processJob combines a successful answer into the running partial. It
// returns true if the stacker must exit on an unignored WorkerError.
func (s *stacker) processJob(ctx context.Context, job Job) bool {
	start := clk.Now()
	answer, err := s.target.invoke(s.handle, job)
	end := clk.Now()

	if err != nil {
		kind := classify(err)
		workerErr := NewWorkerError(kind, err, s.name, job.ID)
		s.putOutput(ctx, workerErrorEnvelope(workerErr))
		if _, ignored := s.ignore[kind]; !ignored {
			s.putInput(ctx, endingSignalEnvelope())
			return true
		}
		return false
	}

	if s.combine.IsAbsent(s.partial) {
		s.partial = answer
	} else {
		s.partial = s.combine.Combine(s.partial, answer)
	}
	s.jobIDs = append(s.jobIDs, job.ID)
	s.genTimeTotal += job.GenTime.Elapsed()
	s.procTimeTotal += end.Sub(start)
	return false
}

// emitIfNonAbsent emits a single StackerOutput on OutputQ if this stacker
// accumulated at least one job.
func (s *stacker) emitIfNonAbsent(ctx context.Context) {
	if s.combine.IsAbsent(s.partial) {
		return
	}
	out := StackerOutput{
		StackerName:   s.name,
		JobIDs:        s.jobIDs,
		Answer:        s.partial,
		GenTimeTotal:  s.genTimeTotal,
		ProcTimeTotal: s.procTimeTotal,
	}
	s.putOutput(ctx, stackerOutputEnvelope(out))
	s.handle.Communicate(fmt.Sprintf("emitted stack of %d jobs", len(s.jobIDs)))
}

func (s *stacker) putInput(ctx context.Context, env Envelope) {
	select {
	case s.q.input <- env:
	case <-ctx.Done():
	}
}

func (s *stacker) putOutput(ctx context.Context, env Envelope) {
	select {
	case s.q.output <- env:
	case <-ctx.Done():
	}
}
