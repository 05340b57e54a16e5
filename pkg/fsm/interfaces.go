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
	"time"

	"github.com/google/uuid"
)

// StateID identifies a state type within a client's registry. Implementations
// declare their ids as package-level constants so transition requests are
// checked handles rather than runtime type descriptors.
type StateID string

// Phase selects which per-tick hook of the current state runs. The driver is
// expected to invoke the phases in a fixed order (Primary, Physics, Late)
// once per logical cycle per client. Only the Primary phase can trigger
// transitions.
type Phase int

const (
	// PhasePrimary runs the state's Tick hook and all transition logic.
	PhasePrimary Phase = iota
	// PhasePhysics forwards to the state's TickPhysics hook.
	PhasePhysics
	// PhaseLate forwards to the state's TickLate hook.
	PhaseLate
)

func (p Phase) String() string {
	switch p {
	case PhasePrimary:
		return "primary"
	case PhasePhysics:
		return "physics"
	case PhaseLate:
		return "late"
	default:
		return "unknown"
	}
}

// TickResult is the outcome of a state's Tick hook: either stay in the
// current state or request a transition to another registered state.
type TickResult struct {
	next       StateID
	transition bool
}

// Stay keeps the current state.
func Stay() TickResult {
	return TickResult{}
}

// TransitionTo requests a transition to the state registered under id.
func TransitionTo(id StateID) TickResult {
	return TickResult{next: id, transition: true}
}

// Requested returns the requested target id and whether a transition was
// requested at all.
func (r TickResult) Requested() (StateID, bool) {
	return r.next, r.transition
}

// State is the capability set a behavior must implement to be managed.
// Exactly one instance exists per (client, StateID) pair; instances are
// never shared across clients.
type State interface {
	// ID returns the state's registry handle. Fixed per state type.
	ID() StateID
	// Name returns the name assigned by the registry. Immutable after registration.
	Name() string
	// SetName assigns the state's name. Called exactly once by the registry.
	SetName(name string)
	// Priority returns the state's ordinal rank. A transition target with a
	// strictly lower priority than the current state is rejected; equal or
	// higher priority may always interrupt.
	Priority() int
	// AllowInterruption reports whether a pending global override may force
	// a transition away from this state while it is current.
	AllowInterruption() bool

	// Init runs once when the registry constructs the instance.
	Init(client Client)
	// CanEnter is the entry guard, consulted before every transition into this state.
	CanEnter(client Client) bool
	// OnEnter runs after a committed transition into this state.
	OnEnter(client Client)
	// Tick runs once per Primary phase while this state is current.
	Tick(client Client, delta time.Duration) TickResult
	// TickPhysics runs once per Physics phase while this state is current.
	TickPhysics(client Client)
	// TickLate runs once per Late phase while this state is current.
	TickLate(client Client)
	// CanExit is the exit guard, consulted before every transition away from this state.
	CanExit(client Client) bool
	// OnExit runs before a committed transition away from this state.
	OnExit(client Client)
}

// Client is the capability set an agent must implement to host the FSM.
// The current and previous state slots are written only by the Manager;
// the host may read them freely between ticks.
type Client interface {
	// ID returns the stable handle keying this client's registry in the manager.
	ID() uuid.UUID
	// CurrentState returns the current state, or nil before the first
	// successful transition.
	CurrentState() State
	// SetCurrentState is written only by the Manager.
	SetCurrentState(state State)
	// PreviousState returns the state before the last committed transition,
	// or nil if at most one transition has been committed.
	PreviousState() State
	// SetPreviousState is written only by the Manager.
	SetPreviousState(state State)
	// Tracker returns the client's debug tracker, or nil when transition
	// history is not tracked for this client.
	Tracker() *Tracker
	// Notify is the post-commit notification sink. from is empty on the
	// first transition. Panics are recovered and reported by the Manager
	// without undoing the committed transition.
	Notify(from string, to string)
}

// BaseState carries the fixed attributes of a state type and provides no-op
// defaults for every hook. Concrete states embed it and override the hooks
// they need.
type BaseState struct {
	id                StateID
	name              string
	priority          int
	allowInterruption bool
}

// NewBaseState creates the embeddable base for a state type.
func NewBaseState(id StateID, priority int, allowInterruption bool) BaseState {
	return BaseState{
		id:                id,
		priority:          priority,
		allowInterruption: allowInterruption,
	}
}

func (s *BaseState) ID() StateID { return s.id }

func (s *BaseState) Name() string { return s.name }

func (s *BaseState) SetName(name string) { s.name = name }

func (s *BaseState) Priority() int { return s.priority }

func (s *BaseState) AllowInterruption() bool { return s.allowInterruption }

func (s *BaseState) Init(client Client) {}

func (s *BaseState) CanEnter(client Client) bool { return true }

func (s *BaseState) OnEnter(client Client) {}

func (s *BaseState) Tick(client Client, delta time.Duration) TickResult { return Stay() }

func (s *BaseState) TickPhysics(client Client) {}

func (s *BaseState) TickLate(client Client) {}

func (s *BaseState) CanExit(client Client) bool { return true }

func (s *BaseState) OnExit(client Client) {}
