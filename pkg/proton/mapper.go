// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
)

// Mapper is the unordered ("async") map controller. It is a scoped resource
// (Start acquires workers/feeder/printer, Close releases them) and a lazy
// producer of WorkerOutput values.
type Mapper struct {
	*pipeline
}

// NewAsyncMapper validates opts and builds an unordered map controller.
func NewAsyncMapper(opts Options) (*Mapper, error) {
	descriptor, err := opts.validate(false)
	if err != nil {
		return nil, err
	}
	p := newPipeline(opts, descriptor, func(q *queues, seed int64, name string) runnable {
		return newWorker(name, opts.Target, q, seed, opts.Lock, opts.ignoreSet())
	})
	return &Mapper{pipeline: p}, nil
}

// Start begins processing.
func (m *Mapper) Start(ctx context.Context) {
	m.pipeline.start(ctx)
}

// Next pulls the next available WorkerOutput. ok is false once the run is
// exhausted (err == nil) or has failed fatally (err != nil carries the
// GeneratorError/WorkerError). An envelope of unexpected kind on OutputQ
// makes Next panic with a *ProtocolViolationError.
func (m *Mapper) Next() (output WorkerOutput, err error, ok bool) {
	if m.fatalErr != nil {
		return WorkerOutput{}, m.fatalErr, false
	}

	for m.nactive > 0 {
		env, open := <-m.q.output
		if !open {
			return WorkerOutput{}, nil, false
		}

		switch env.Kind {
		case EndingSignalKind:
			m.nactive--
			if m.nactive == 0 {
				m.q.sendMessage(Message{SenderName: "mapper", Time: clk.Now(), Text: "got EndingSignal"})
			}

		case GeneratorErrorKind:
			m.fatalErr = env.GeneratorErr
			return WorkerOutput{}, m.fatalErr, false

		case WorkerErrorKind:
			m.logWorkerError(env.WorkerErr)
			if !m.ignored(env.WorkerErr.Kind) {
				m.fatalErr = env.WorkerErr
				return WorkerOutput{}, m.fatalErr, false
			}

		case WorkerOutputKind:
			return env.WorkerOutput, nil, true

		default:
			panic(&ProtocolViolationError{Kind: env.Kind})
		}
	}
	return WorkerOutput{}, nil, false
}

// Close releases the pipeline's resources. Call it (typically via defer)
// after the caller is done iterating, whether iteration completed normally
// or stopped early.
func (m *Mapper) Close() error {
	clean := m.fatalErr == nil && m.nactive == 0
	return m.pipeline.close(clean)
}

// All drains the mapper to completion, collecting every WorkerOutput. It is
// a convenience wrapper for callers that don't need to stream results.
func All(ctx context.Context, m *Mapper) ([]WorkerOutput, error) {
	m.Start(ctx)

	var out []WorkerOutput
	var runErr error
	for {
		o, err, ok := m.Next()
		if err != nil {
			runErr = err
			break
		}
		if !ok {
			break
		}
		out = append(out, o)
	}

	if closeErr := m.Close(); closeErr != nil && runErr == nil {
		runErr = closeErr
	}
	return out, runErr
}
