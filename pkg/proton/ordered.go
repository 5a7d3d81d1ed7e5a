// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"sort"
)

// DefaultWaitingQueueLimit bounds the reorder buffer's pending-packet count.
// It is deliberately generous: a run whose fastest and slowest worker ever
// diverge by more than this many in-flight jobids is almost certainly
// misconfigured (too few workers for wildly uneven job durations), and
// WaitingQueueFullError says so.
const DefaultWaitingQueueLimit = 1 << 16

// OrderedMapper wraps a Mapper to restore strict jobid order, the "ordered
// map" mode. Ordered mode forbids Options.IgnoreExceptions (enforced at
// construction) so that every missing jobid can only be explained by feeder
// exhaustion, never by a deliberately swallowed error.
type OrderedMapper struct {
	m *Mapper

	expected  int64
	limit     int
	pending   map[int64]WorkerOutput
	order     []int64 // kept sorted; mirrors the keys of pending
	exhausted bool
}

// NewSyncMapper validates opts and builds an ordered map controller.
// Construction fails with an ArgumentError if opts.IgnoreExceptions is
// non-empty: ordered-map mode forbids configuring ignorable errors to keep
// semantics simple.
func NewSyncMapper(opts Options) (*OrderedMapper, error) {
	descriptor, err := opts.validate(true)
	if err != nil {
		return nil, err
	}
	p := newPipeline(opts, descriptor, func(q *queues, seed int64, name string) runnable {
		return newWorker(name, opts.Target, q, seed, opts.Lock, opts.ignoreSet())
	})
	return &OrderedMapper{
		m:       &Mapper{pipeline: p},
		limit:   DefaultWaitingQueueLimit,
		pending: make(map[int64]WorkerOutput),
	}, nil
}

// Start begins processing.
func (o *OrderedMapper) Start(ctx context.Context) {
	o.m.Start(ctx)
}

// Close releases the underlying pipeline.
func (o *OrderedMapper) Close() error {
	return o.m.Close()
}

// Next returns WorkerOutputs in strict increasing jobid order starting from
// 0, synthesizing a MissingPacket for any jobid that never produced a real
// output because the underlying run ended early.
func (o *OrderedMapper) Next() (WorkerOutput, error, bool) {
	if out, ok := o.popExpected(); ok {
		return out, nil, true
	}

	for {
		if o.exhausted {
			break
		}
		out, err, ok := o.m.Next()
		if err != nil {
			return WorkerOutput{}, err, false
		}
		if !ok {
			o.exhausted = true
			break
		}

		switch {
		case out.JobID == o.expected:
			o.expected++
			return out, nil, true
		case out.JobID > o.expected:
			if err := o.insert(out); err != nil {
				return WorkerOutput{}, err, false
			}
		default:
			// out.JobID < o.expected: impossible under the feeder's
			// contract (jobids are dense and assigned once); treat it
			// as an implementation bug rather than silently dropping it.
			return WorkerOutput{}, &ProtocolViolationError{Kind: WorkerOutputKind}, false
		}
	}

	if len(o.pending) > 0 {
		missing := missingPacket(o.expected)
		o.expected++
		delete(o.pending, missing.JobID)
		o.removeFromOrder(missing.JobID)
		return missing, nil, true
	}

	return WorkerOutput{}, nil, false
}

func (o *OrderedMapper) popExpected() (WorkerOutput, bool) {
	out, ok := o.pending[o.expected]
	if !ok {
		return WorkerOutput{}, false
	}
	delete(o.pending, o.expected)
	o.removeFromOrder(o.expected)
	o.expected++
	return out, true
}

func (o *OrderedMapper) insert(out WorkerOutput) error {
	if len(o.pending) >= o.limit {
		return &WaitingQueueFullError{Limit: o.limit}
	}
	o.pending[out.JobID] = out
	i := sort.Search(len(o.order), func(i int) bool { return o.order[i] >= out.JobID })
	o.order = append(o.order, 0)
	copy(o.order[i+1:], o.order[i:])
	o.order[i] = out.JobID
	return nil
}

func (o *OrderedMapper) removeFromOrder(jobID int64) {
	i := sort.Search(len(o.order), func(i int) bool { return o.order[i] >= jobID })
	if i < len(o.order) && o.order[i] == jobID {
		o.order = append(o.order[:i], o.order[i+1:]...)
	}
}
