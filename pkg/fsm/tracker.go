// Copyright 2026 Statekit Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fsm

import (
	"fmt"
	"time"

	"github.com/statekit/statekit/pkg/constants"
)

// Tracker is the per-client transition history and elapsed-time counter.
// It records committed transitions newest-first in a bounded list and keeps
// the time spent in the current state, fed by the caller's per-tick delta.
//
// Like the Registry, the Tracker relies on the caller serializing ticks for
// its client; it takes no locks of its own.
type Tracker struct {
	currentName     string
	previousName    string
	timeInState     time.Duration
	transitionCount uint64
	capacity        int
	history         []string
}

// TrackerSnapshot is an immutable copy of a Tracker's state.
type TrackerSnapshot struct {
	CurrentStateName  string        `json:"currentStateName"`
	PreviousStateName string        `json:"previousStateName"`
	TimeInState       time.Duration `json:"timeInState"`
	TransitionCount   uint64        `json:"transitionCount"`
	History           []string      `json:"history"`
}

// NewTracker creates a tracker with the default history capacity.
func NewTracker() *Tracker {
	return NewTrackerWithCapacity(constants.DefaultHistoryCapacity)
}

// NewTrackerWithCapacity creates a tracker keeping at most capacity history
// entries. Non-positive capacities fall back to the default.
func NewTrackerWithCapacity(capacity int) *Tracker {
	if capacity <= 0 {
		capacity = constants.DefaultHistoryCapacity
	}

	return &Tracker{
		capacity: capacity,
		history:  make([]string, 0, capacity),
	}
}

// RecordTransition records a committed transition into the state named
// newName: names shift, the elapsed counter resets, the transition counter
// increments, and a "{counter}: {name}" entry is prepended to the history.
// The oldest entry is evicted when the history exceeds its capacity.
func (t *Tracker) RecordTransition(newName string) {
	t.previousName = t.currentName
	t.currentName = newName
	t.timeInState = 0
	t.transitionCount++

	entry := fmt.Sprintf("%d: %s", t.transitionCount, newName)
	t.history = append([]string{entry}, t.history...)
	if len(t.history) > t.capacity {
		t.history = t.history[:t.capacity]
	}
}

// AdvanceTime adds the caller-supplied delta to the elapsed-in-state
// counter. Called once per Primary tick, whether or not a transition
// occurred that tick.
func (t *Tracker) AdvanceTime(delta time.Duration) {
	t.timeInState += delta
}

// CurrentStateName returns the name recorded by the latest transition.
func (t *Tracker) CurrentStateName() string { return t.currentName }

// PreviousStateName returns the name the latest transition replaced.
func (t *Tracker) PreviousStateName() string { return t.previousName }

// TimeInState returns the accumulated delta since the latest transition.
func (t *Tracker) TimeInState() time.Duration { return t.timeInState }

// TransitionCount returns the monotonically increasing transition counter.
func (t *Tracker) TransitionCount() uint64 { return t.transitionCount }

// History returns a copy of the history entries, newest first.
func (t *Tracker) History() []string {
	history := make([]string, len(t.history))
	copy(history, t.history)

	return history
}

// Snapshot returns an immutable copy of the tracker's state.
func (t *Tracker) Snapshot() TrackerSnapshot {
	return TrackerSnapshot{
		CurrentStateName:  t.currentName,
		PreviousStateName: t.previousName,
		TimeInState:       t.timeInState,
		TransitionCount:   t.transitionCount,
		History:           t.History(),
	}
}
