// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"time"

	"k8s.io/utils/clock"
)

// Interval brackets two wall-clock instants, the before/after pair the
// feeder records around a generator pull and the worker records around a
// target call.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Elapsed returns End.Sub(Start), or zero for a zero-value Interval.
func (i Interval) Elapsed() time.Duration {
	if i.Start.IsZero() || i.End.IsZero() {
		return 0
	}
	return i.End.Sub(i.Start)
}

// Job is an immutable bundle of positional and named arguments plus a
// sequentially assigned id, stamped by the Feeder and never mutated
// afterwards. Args/Kwargs are opaque to the engine; only the target
// function interprets them.
type Job struct {
	Args    []interface{}
	Kwargs  map[string]interface{}
	ID      int64
	GenTime Interval
}

// NewJob builds a Job from positional args and named kwargs. ID and GenTime
// are filled in by the Feeder, not by the caller.
func NewJob(args []interface{}, kwargs map[string]interface{}) Job {
	return Job{Args: args, Kwargs: kwargs}
}

// JobGenerator is the lazy, finite sequence of Jobs a Mapper pulls from. It
// mirrors a Python generator: Next returns the next Job, an error if
// production failed, and ok=false once the sequence is exhausted (err and ok
// are mutually exclusive with a successful Job).
type JobGenerator interface {
	Next(ctx context.Context) (job Job, err error, ok bool)
}

// JobGeneratorFunc adapts a plain function to the JobGenerator interface.
type JobGeneratorFunc func(ctx context.Context) (Job, error, bool)

// Next calls f.
func (f JobGeneratorFunc) Next(ctx context.Context) (Job, error, bool) {
	return f(ctx)
}

// SliceGenerator returns a JobGenerator that yields n Jobs for indices
// 0..n-1 in order, building Args/Kwargs from a per-index function. It is a
// convenience for in-memory job lists, such as this package's tests.
func SliceGenerator(n int, build func(i int) (args []interface{}, kwargs map[string]interface{})) JobGenerator {
	i := 0
	return JobGeneratorFunc(func(_ context.Context) (Job, error, bool) {
		if i >= n {
			return Job{}, nil, false
		}
		args, kwargs := build(i)
		i++
		return NewJob(args, kwargs), nil, true
	})
}

// clk is swappable in tests so gen_time/proc_time can be asserted without
// sleeping on wall time.
var clk clock.Clock = clock.RealClock{}
