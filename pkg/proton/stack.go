// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
)

// StackController is the cumulative-reduce controller. It pools stackers
// rather than workers: each stacker locally combines its own share of
// answers and emits a single StackerOutput when it exhausts InputQ, and the
// controller combines those per-stacker partials into one grand total using
// the same Combiner.
type StackController struct {
	*pipeline
	combine Combiner
}

// NewStackAsync validates opts, builds a stacker pool wired to combine, and
// returns the controller. combine must be associative and its Absent value
// must behave as an identity.
func NewStackAsync(opts Options, combine Combiner) (*StackController, error) {
	descriptor, err := opts.validate(false)
	if err != nil {
		return nil, err
	}
	if combine == nil {
		return nil, NewArgumentError("combine is required")
	}
	p := newPipeline(opts, descriptor, func(q *queues, seed int64, name string) runnable {
		s := newStacker(name, opts.Target, q, seed, combine, opts.ignoreSet())
		s.handle.lock = opts.Lock
		return s
	})
	return &StackController{pipeline: p, combine: combine}, nil
}

// Start begins processing.
func (sc *StackController) Start(ctx context.Context) {
	sc.pipeline.start(ctx)
}

// Close releases the pipeline's resources.
func (sc *StackController) Close() error {
	clean := sc.fatalErr == nil && sc.nactive == 0
	return sc.pipeline.close(clean)
}

// Stack drains every stacker's StackerOutput and reduces them into one
// grand-total result. It returns a zero StackerOutput with combine.Absent()
// as its Answer if no stacker ever emitted (e.g. the job generator produced
// zero jobs).
func (sc *StackController) Stack() (StackerOutput, error) {
	if sc.fatalErr != nil {
		return StackerOutput{}, sc.fatalErr
	}

	total := StackerOutput{Answer: sc.combine.Absent()}
	for sc.nactive > 0 {
		env, open := <-sc.q.output
		if !open {
			break
		}

		switch env.Kind {
		case EndingSignalKind:
			sc.nactive--

		case GeneratorErrorKind:
			sc.fatalErr = env.GeneratorErr
			return StackerOutput{}, sc.fatalErr

		case WorkerErrorKind:
			sc.logWorkerError(env.WorkerErr)
			if !sc.ignored(env.WorkerErr.Kind) {
				sc.fatalErr = env.WorkerErr
				return StackerOutput{}, sc.fatalErr
			}

		case StackerOutputKind:
			total = total.combine(env.StackerOutput, sc.combine)

		default:
			panic(&ProtocolViolationError{Kind: env.Kind})
		}
	}
	return total, nil
}

// StackAll is a convenience wrapper: it starts sc, drains it to completion,
// and closes it, propagating whichever error (Stack's or Close's) occurs
// first.
func StackAll(ctx context.Context, sc *StackController) (StackerOutput, error) {
	sc.Start(ctx)

	total, runErr := sc.Stack()

	if closeErr := sc.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return total, runErr
}
