package state

import (
	"maps"
	"time"
)

// Flow names a multi-step conversation.
type Flow string

// Step names the input a flow is waiting for.
type Step string

// FlowIdle means no conversation is in progress.
const FlowIdle Flow = "idle"

// Accumulator holds fields collected within one flow. Values are never
// mutated in place; With returns a new map.
type Accumulator map[string]string

// Get returns the value for key, or "" when absent.
func (a Accumulator) Get(key string) string {
	return a[key]
}

// Has reports whether key was collected.
func (a Accumulator) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// With returns a copy of a extended by the key/value pairs in kv.
// A trailing key without value is ignored.
func (a Accumulator) With(kv ...string) Accumulator {
	out := make(Accumulator, len(a)+len(kv)/2)
	maps.Copy(out, a)
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// Clone copies the accumulator; nil stays nil.
func (a Accumulator) Clone() Accumulator {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// FlowState is the conversation position of one user.
type FlowState struct {
	Flow      Flow
	Step      Step
	Data      Accumulator
	UpdatedAt time.Time
}

// Idle is the state of a user outside any flow.
func Idle() FlowState {
	return FlowState{Flow: FlowIdle}
}

// Enter starts flow at step with an empty accumulator.
func Enter(flow Flow, step Step) FlowState {
	return FlowState{Flow: flow, Step: step, Data: Accumulator{}}
}

// Active reports whether a flow is in progress.
func (s FlowState) Active() bool {
	return s.Flow != "" && s.Flow != FlowIdle
}

// In reports whether the user is at step of flow.
func (s FlowState) In(flow Flow, step Step) bool {
	return s.Flow == flow && s.Step == step
}

// expired reports whether the state was last written more than ttl before now.
func (s FlowState) expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && now.Sub(s.UpdatedAt) > ttl
}
