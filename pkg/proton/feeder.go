// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"
)

// feeder is the pipeline's single producer: it runs in its own goroutine,
// pulls from the user's lazy JobGenerator, stamps each Job with a strictly
// increasing gap-free id, and enqueues it on InputQ.
type feeder struct {
	gen JobGenerator
	q   *queues
}

func newFeeder(gen JobGenerator, q *queues) *feeder {
	return &feeder{gen: gen, q: q}
}

// run produces Jobs until the generator is exhausted or fails, then always
// concludes by enqueuing exactly one EndingSignal on InputQ.
func (f *feeder) run(ctx context.Context) {
	var jobID int64

	for {
		genBegin := clk.Now()
		job, err, ok := f.gen.Next(ctx)
		genEnd := clk.Now()

		if !ok && err == nil {
			break
		}

		if err != nil {
			genErr := &GeneratorError{Message: err.Error()}
			f.putInput(ctx, generatorErrorEnvelope(genErr))
			f.q.sendMessage(Message{
				SenderName: "job feeder",
				Time:       clk.Now(),
				Text:       fmt.Sprintf("failed to generate job %d", jobID),
			})
			klog.V(6).Infof("job feeder: generator failed at job %d: %v", jobID, err)
			f.putInput(ctx, endingSignalEnvelope())
			return
		}

		job.ID = jobID
		job.GenTime = Interval{Start: genBegin, End: genEnd}
		jobID++

		f.putInput(ctx, jobEnvelope(job))
		f.q.sendMessage(Message{
			SenderName: "job feeder",
			Time:       clk.Now(),
			Text:       fmt.Sprintf("put job %d", job.ID),
			JobID:      &job.ID,
		})
		klog.V(6).Infof("job feeder: put job %d", job.ID)
	}

	f.putInput(ctx, endingSignalEnvelope())
}

func (f *feeder) putInput(ctx context.Context, env Envelope) {
	select {
	case f.q.input <- env:
	case <-ctx.Done():
	}
}
