// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

package proton

import (
	"fmt"
	"strings"
	"time"
)

// EnvelopeKind tags the payload carried by an Envelope travelling on InputQ
// or OutputQ.
type EnvelopeKind int

// The six envelope kinds. InputQ carries JobKind, GeneratorErrorKind and
// EndingSignalKind; OutputQ carries every kind except JobKind.
const (
	JobKind EnvelopeKind = iota
	GeneratorErrorKind
	WorkerErrorKind
	WorkerOutputKind
	StackerOutputKind
	EndingSignalKind
)

func (k EnvelopeKind) String() string {
	switch k {
	case JobKind:
		return "Job"
	case GeneratorErrorKind:
		return "GeneratorError"
	case WorkerErrorKind:
		return "WorkerError"
	case WorkerOutputKind:
		return "WorkerOutput"
	case StackerOutputKind:
		return "StackerOutput"
	case EndingSignalKind:
		return "EndingSignal"
	default:
		return "Unknown"
	}
}

// Envelope is the single tagged variant that travels on InputQ and OutputQ.
// Only the field matching Kind is populated.
type Envelope struct {
	Kind          EnvelopeKind
	Job           Job
	GeneratorErr  *GeneratorError
	WorkerErr     *WorkerError
	WorkerOutput  WorkerOutput
	StackerOutput StackerOutput
}

func jobEnvelope(j Job) Envelope { return Envelope{Kind: JobKind, Job: j} }
func generatorErrorEnvelope(e *GeneratorError) Envelope {
	return Envelope{Kind: GeneratorErrorKind, GeneratorErr: e}
}
func workerErrorEnvelope(e *WorkerError) Envelope {
	return Envelope{Kind: WorkerErrorKind, WorkerErr: e}
}
func workerOutputEnvelope(o WorkerOutput) Envelope {
	return Envelope{Kind: WorkerOutputKind, WorkerOutput: o}
}
func stackerOutputEnvelope(o StackerOutput) Envelope {
	return Envelope{Kind: StackerOutputKind, StackerOutput: o}
}
func endingSignalEnvelope() Envelope { return Envelope{Kind: EndingSignalKind} }

// WorkerOutput is the result of a single successful target invocation.
type WorkerOutput struct {
	JobID    int64
	Answer   interface{}
	GenTime  Interval
	ProcTime Interval
	// Missing marks a synthetic placeholder produced by the ordered-map
	// reorder buffer for a jobid that never produced a real output (see
	// missingPacket).
	Missing bool
}

// String renders a one-line summary, ported from the original's
// WorkerOutput.__str__ (generator/processor time in microseconds, answer
// truncated to its first line).
func (w WorkerOutput) String() string {
	answer := fmt.Sprintf("%v", w.Answer)
	if idx := strings.IndexByte(answer, '\n'); idx >= 0 {
		answer = answer[:idx]
	}
	return fmt.Sprintf("WorkerOutput: job:%d\n\tgentime:%.2fus\n\tproctime:%.2fus\n\tanswer:%s",
		w.JobID,
		float64(w.GenTime.Elapsed())/float64(time.Microsecond),
		float64(w.ProcTime.Elapsed())/float64(time.Microsecond),
		answer)
}

// missingPacket synthesizes the placeholder the reorder buffer returns for a
// jobid that never produced a WorkerOutput.
func missingPacket(jobID int64) WorkerOutput {
	return WorkerOutput{JobID: jobID, Missing: true}
}

// Combiner merges two accumulated answers using a user-supplied associative
// (and, for deterministic results, commutative) operation. Absent is the
// identity value: the engine never passes it to Combine; combining with an
// absent side yields the other operand unchanged.
type Combiner interface {
	Combine(a, b interface{}) interface{}
	Absent() interface{}
	IsAbsent(v interface{}) bool
}

// StackerOutput is a Stacker's locally reduced partial result, or the
// controller's final grand-total reduction of all StackerOutputs.
type StackerOutput struct {
	StackerName   string
	JobIDs        []int64
	Answer        interface{}
	GenTimeTotal  time.Duration
	ProcTimeTotal time.Duration
}

// combine concatenates jobids, sums durations, and combines answers using c.
// The identity case (either side absent) yields the other operand.
func (s StackerOutput) combine(other StackerOutput, c Combiner) StackerOutput {
	var answer interface{}
	switch {
	case c.IsAbsent(s.Answer):
		answer = other.Answer
	case c.IsAbsent(other.Answer):
		answer = s.Answer
	default:
		answer = c.Combine(s.Answer, other.Answer)
	}
	jobIDs := make([]int64, 0, len(s.JobIDs)+len(other.JobIDs))
	jobIDs = append(jobIDs, s.JobIDs...)
	jobIDs = append(jobIDs, other.JobIDs...)
	return StackerOutput{
		StackerName:   s.StackerName,
		JobIDs:        jobIDs,
		Answer:        answer,
		GenTimeTotal:  s.GenTimeTotal + other.GenTimeTotal,
		ProcTimeTotal: s.ProcTimeTotal + other.ProcTimeTotal,
	}
}

// Message is a human-readable progress report sent by any pipeline
// component to the printer collaborator over MessageQ.
type Message struct {
	SenderName string
	Time       time.Time
	Text       string
	JobID      *int64
}

func (m Message) String() string {
	jobid := "-"
	if m.JobID != nil {
		jobid = fmt.Sprintf("%d", *m.JobID)
	}
	return fmt.Sprintf("%8s: %30s(job:%4s): %s", m.Time.Format("15:04:05"), m.SenderName, jobid, m.Text)
}
