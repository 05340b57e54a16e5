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
	"sort"
	"time"

	internalfsm "github.com/statekit/statekit/internal/fsm"
	"github.com/statekit/statekit/pkg/logger"
	"github.com/statekit/statekit/pkg/standarderrors"
	"go.uber.org/zap"
)

// stateEntry colocates a state instance with its per-instance bookkeeping.
// The elapsed timer lives here rather than on the state value so it stays
// private to the (client, state-type) pair.
type stateEntry struct {
	state       State
	timeInState time.Duration
}

// Registry is the per-client store of state instances. It owns every State
// of its client and indexes them by id and by name. A client has at most one
// Registry, created lazily by the Manager on first registration and
// destroyed exactly once via the Manager's Cleanup.
//
// The Registry is not safe for concurrent use; ticks for a single client
// must be serialized by the caller.
type Registry struct {
	client Client
	logger *zap.SugaredLogger

	byID   map[StateID]*stateEntry
	byName map[string]*stateEntry

	// Pending global override. At most one value; consumed within the tick
	// that observes it.
	override    StateID
	overrideSet bool

	lifecycle *internalfsm.ClientLifecycle
}

// NewRegistry creates an empty registry for the given client.
func NewRegistry(client Client) *Registry {
	log := logger.For(logger.ComponentRegistry)

	return &Registry{
		client:    client,
		logger:    log,
		byID:      make(map[StateID]*stateEntry),
		byName:    make(map[string]*stateEntry),
		lifecycle: internalfsm.NewClientLifecycle(client.ID().String(), logger.For(logger.ComponentLifecycle)),
	}
}

// deriveStateName derives a state's immutable name from its id. Kept as a
// single point of truth so both indices agree on the mapping.
func deriveStateName(id StateID) string {
	return string(id)
}

// Register stores the state instance under both indices. If an instance for
// the same id is already registered, that instance is returned unchanged and
// the argument is discarded. Otherwise the instance gets its name assigned,
// its one-time Init hook runs with the client reference, and the instance is
// returned.
func (r *Registry) Register(state State) (State, error) {
	if state == nil {
		return nil, standarderrors.ErrNilTarget
	}

	if entry, ok := r.byID[state.ID()]; ok {
		return entry.state, nil
	}

	state.SetName(deriveStateName(state.ID()))
	state.Init(r.client)

	entry := &stateEntry{state: state}
	r.byID[state.ID()] = entry
	r.byName[state.Name()] = entry

	r.logger.Debugf("Registered state %s for client %s", state.Name(), r.client.ID())

	return state, nil
}

// Get returns the instance registered under id.
func (r *Registry) Get(id StateID) (State, bool) {
	entry, ok := r.byID[id]
	if !ok {
		return nil, false
	}

	return entry.state, true
}

// GetByName returns the instance registered under name.
func (r *Registry) GetByName(name string) (State, bool) {
	entry, ok := r.byName[name]
	if !ok {
		return nil, false
	}

	return entry.state, true
}

// Has reports whether an instance is registered under id, without constructing one.
func (r *Registry) Has(id StateID) bool {
	_, ok := r.byID[id]

	return ok
}

// StateNames returns the sorted names of all registered states.
func (r *Registry) StateNames() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// TimeInState returns how long the instance registered under id has been the
// current state. The timer resets to zero on every committed transition into
// the state and only advances on Primary ticks while it is current.
func (r *Registry) TimeInState(id StateID) (time.Duration, bool) {
	entry, ok := r.byID[id]
	if !ok {
		return 0, false
	}

	return entry.timeInState, true
}

// advanceTime advances the per-instance timer of the current state.
func (r *Registry) advanceTime(id StateID, delta time.Duration) {
	if entry, ok := r.byID[id]; ok {
		entry.timeInState += delta
	}
}

// resetTime zeroes the per-instance timer on a committed transition.
func (r *Registry) resetTime(id StateID) {
	if entry, ok := r.byID[id]; ok {
		entry.timeInState = 0
	}
}

// Lifecycle returns the client's unset/active lifecycle machine.
func (r *Registry) Lifecycle() *internalfsm.ClientLifecycle {
	return r.lifecycle
}

// setOverride stores the pending global override. The id must already be
// validated against the registry by the caller.
func (r *Registry) setOverride(id StateID) {
	r.override = id
	r.overrideSet = true
}

// pendingOverride returns the pending override, if any.
func (r *Registry) pendingOverride() (StateID, bool) {
	return r.override, r.overrideSet
}

// clearOverride drops the pending override.
func (r *Registry) clearOverride() {
	r.override = ""
	r.overrideSet = false
}

// Clear drops both indices and any pending override. Idempotent.
func (r *Registry) Clear() {
	r.byID = make(map[StateID]*stateEntry)
	r.byName = make(map[string]*stateEntry)
	r.clearOverride()
}
