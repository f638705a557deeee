package flow

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/reply"
)

// Outcome is the verdict of a flow step.
type Outcome int

const (
	// OutcomeAdvance stores the merged accumulator and moves to the next step.
	OutcomeAdvance Outcome = iota
	// OutcomeRetry keeps step and accumulator and re-prompts.
	OutcomeRetry
	// OutcomeComplete runs the flow's finish side effect and clears the state.
	OutcomeComplete
	// OutcomeCancel clears the state.
	OutcomeCancel
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAdvance:
		return "advance"
	case OutcomeRetry:
		return "retry"
	case OutcomeComplete:
		return "complete"
	case OutcomeCancel:
		return "cancel"
	}
	return "fail"
}

// Result is what a step decided.
type Result struct {
	Outcome Outcome
	Next    state.Step
	Data    state.Accumulator
	Replies []reply.Reply
}

// Advance moves to next with data.
func Advance(next state.Step, data state.Accumulator, replies ...reply.Reply) Result {
	return Result{Outcome: OutcomeAdvance, Next: next, Data: data, Replies: replies}
}

// Retry stays on the current step.
func Retry(replies ...reply.Reply) Result {
	return Result{Outcome: OutcomeRetry, Replies: replies}
}

// Complete finishes the flow with data.
func Complete(data state.Accumulator, replies ...reply.Reply) Result {
	return Result{Outcome: OutcomeComplete, Data: data, Replies: replies}
}

// Cancel abandons the flow.
func Cancel(replies ...reply.Reply) Result {
	return Result{Outcome: OutcomeCancel, Replies: replies}
}

// StepFunc validates one input against the accumulator collected so far.
type StepFunc func(ctx context.Context, r *Request, data state.Accumulator) Result

// FinishFunc performs the side effect of a completed flow.
type FinishFunc func(ctx context.Context, r *Request, data state.Accumulator) ([]reply.Reply, error)

// Flow is a named set of steps and the side effect run on completion.
type Flow struct {
	Name   state.Flow
	Steps  map[state.Step]StepFunc
	Finish FinishFunc
	// Cancelled overrides the acknowledgement sent when the flow is cancelled.
	Cancelled func(r *Request) []reply.Reply
}
