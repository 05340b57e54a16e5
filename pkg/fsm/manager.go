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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/statekit/statekit/pkg/constants"
	"github.com/statekit/statekit/pkg/logger"
	"github.com/statekit/statekit/pkg/metrics"
	"github.com/statekit/statekit/pkg/sentry"
	"github.com/statekit/statekit/pkg/standarderrors"
	"go.uber.org/zap"
)

// Manager arbitrates state transitions for many independent clients. It owns
// the client-to-registry mapping, consults priority and entry/exit guards,
// applies pending global overrides, and dispatches the three tick phases to
// the current state of each client.
//
// The mapping itself is guarded by a mutex so clients may be created and
// destroyed from multiple goroutines; tick execution for a single client
// takes no lock and must be serialized by the caller. The Manager is passed
// by reference wherever it is needed; there is no package-level instance.
type Manager struct {
	mu         sync.RWMutex
	registries map[uuid.UUID]*Registry

	name   string
	logger *zap.SugaredLogger
}

// NewManager creates a Manager. The name shows up in logs and metric labels;
// an empty name falls back to the default.
func NewManager(name string) *Manager {
	if name == "" {
		name = constants.DefaultManagerName
	}

	metrics.InitErrorCounter(metrics.ComponentManager, name)

	return &Manager{
		registries: make(map[uuid.UUID]*Registry),
		name:       name,
		logger:     logger.For(logger.ComponentManager).Named(name),
	}
}

// Name returns the manager's name for logging and metrics.
func (m *Manager) Name() string {
	return m.name
}

// Register stores a state instance in the client's registry, creating the
// registry on first registration. Registering the same id twice returns the
// already-registered instance unchanged.
func (m *Manager) Register(client Client, state State) (State, error) {
	if client == nil {
		metrics.IncErrorCount(metrics.ComponentManager, m.name)

		return nil, standarderrors.ErrNilClient
	}

	m.mu.Lock()
	registry, ok := m.registries[client.ID()]
	if !ok {
		registry = NewRegistry(client)
		m.registries[client.ID()] = registry
		m.logger.Debugf("Created registry for client %s", client.ID())
	}
	m.mu.Unlock()

	return registry.Register(state)
}

// RegistryFor returns the client's registry, or nil if none exists.
func (m *Manager) RegistryFor(client Client) *Registry {
	if client == nil {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registries[client.ID()]
}

// Tick runs one phase of the per-tick cycle for a client. The returned bool
// reports whether a transition was committed this call.
//
// Only the Primary phase evaluates transition logic; Physics and Late simply
// forward to the current state's corresponding hook. Without a current state
// the tick is a no-op. delta is the caller-supplied logical time step and is
// consumed only by the Primary phase.
//
// The Primary phase, in order:
//  1. advances the tracker and per-instance elapsed timers by delta,
//  2. consumes a pending global override targeting a state other than the
//     current one, committing it if the current state allows interruption and
//     discarding it otherwise; in either case it returns without running the
//     current state's own Tick hook this cycle,
//  3. otherwise runs the current state's Tick hook and attempts any
//     transition it requests.
func (m *Manager) Tick(client Client, phase Phase, delta time.Duration) (error, bool) {
	if client == nil {
		metrics.IncErrorCount(metrics.ComponentManager, m.name)
		sentry.ReportFSMWarningf(m.logger, "", m.name, "tick", "tick invoked with nil client: %v", standarderrors.ErrNilClient)

		return standarderrors.ErrNilClient, false
	}

	current := client.CurrentState()
	if current == nil {
		return nil, false
	}

	start := time.Now()
	defer func() {
		metrics.ObserveTickTime(metrics.ComponentManager, m.name+"."+phase.String(), time.Since(start))
	}()

	switch phase {
	case PhasePhysics:
		current.TickPhysics(client)

		return nil, false
	case PhaseLate:
		current.TickLate(client)

		return nil, false
	case PhasePrimary:
		// fallthrough below
	default:
		metrics.IncErrorCount(metrics.ComponentManager, m.name)

		return fmt.Errorf("unknown tick phase %d", phase), false
	}

	registry := m.RegistryFor(client)

	// Time advances on every Primary tick, independent of transitions.
	if tracker := client.Tracker(); tracker != nil {
		tracker.AdvanceTime(delta)
	}
	if registry != nil {
		registry.advanceTime(current.ID(), delta)
	}

	if registry != nil {
		if target, pending := registry.pendingOverride(); pending {
			// Consumed within the tick that observes it, regardless of outcome.
			registry.clearOverride()

			if target != current.ID() {
				return m.consumeOverride(client, registry, current, target)
			}
		}
	}

	result := current.Tick(client, delta)

	next, requested := result.Requested()
	if !requested {
		return nil, false
	}

	var target State
	if registry != nil {
		target, _ = registry.Get(next)
	}
	if target == nil {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "tick",
			"state %s requested transition to unregistered state %q", current.Name(), next)

		return fmt.Errorf("%w: %s", standarderrors.ErrUnregisteredTarget, next), false
	}
	if target == current {
		return nil, false
	}

	if err := m.Transition(client, target); err != nil {
		return err, false
	}

	return nil, true
}

// consumeOverride attempts a forced transition to the override target. The
// override has already been cleared; the current state's own Tick hook does
// not run this cycle either way.
func (m *Manager) consumeOverride(client Client, registry *Registry, current State, target StateID) (error, bool) {
	if !current.AllowInterruption() {
		metrics.IncOverrideCount(m.name, metrics.OverrideOutcomeBlocked)
		metrics.IncRejectionCount(m.name, metrics.ReasonInterruptBlocked)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "tick",
			"discarding global override to %q while in %s: %v", target, current.Name(), standarderrors.ErrInterruptBlocked)

		return fmt.Errorf("%w: override to %s discarded", standarderrors.ErrInterruptBlocked, target), false
	}

	// The target was validated against the registry when the override was
	// set, but the registry may have been cleared in between.
	targetState, ok := registry.Get(target)
	if !ok {
		metrics.IncOverrideCount(m.name, metrics.OverrideOutcomeRejected)
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "tick",
			"global override targets unregistered state %q", target)

		return fmt.Errorf("%w: %s", standarderrors.ErrUnregisteredTarget, target), false
	}

	if err := m.Transition(client, targetState); err != nil {
		metrics.IncOverrideCount(m.name, metrics.OverrideOutcomeRejected)

		return err, false
	}

	metrics.IncOverrideCount(m.name, metrics.OverrideOutcomeCommitted)

	return nil, true
}

// Transition attempts the guarded state change to target.
//
// Rejections (failure return, current state untouched):
//   - target is nil or equals the current state,
//   - target's priority is strictly lower than the current state's,
//   - the current state's CanExit guard refuses,
//   - the target's CanEnter guard refuses.
//
// Before the first successful transition there is no current state, so only
// the target's CanEnter guard is consulted.
//
// On commit: the current state's OnExit runs, the previous/current slots
// shift, the per-instance timer resets, the tracker records the transition,
// the target's OnEnter runs, and the client's notification sink is invoked.
// A fault in the sink is recovered and reported; the transition stays
// committed.
func (m *Manager) Transition(client Client, target State) error {
	if client == nil {
		metrics.IncErrorCount(metrics.ComponentManager, m.name)
		sentry.ReportFSMWarningf(m.logger, "", m.name, "transition", "transition invoked with nil client: %v", standarderrors.ErrNilClient)

		return standarderrors.ErrNilClient
	}

	current := client.CurrentState()

	if target == nil {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "transition", "rejecting transition: %v", standarderrors.ErrNilTarget)

		return standarderrors.ErrNilTarget
	}
	if target == current {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)

		return fmt.Errorf("%w: %s", standarderrors.ErrSelfTransition, target.Name())
	}

	if current != nil {
		// Equal priority is always permitted to interrupt; only strictly
		// lower-priority targets are blocked.
		if target.Priority() < current.Priority() {
			metrics.IncRejectionCount(m.name, metrics.ReasonLowerPriority)
			sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "transition",
				"rejecting %s(%d) -> %s(%d): %v", current.Name(), current.Priority(), target.Name(), target.Priority(), standarderrors.ErrLowerPriority)

			return fmt.Errorf("%w: %s(%d) -> %s(%d)", standarderrors.ErrLowerPriority,
				current.Name(), current.Priority(), target.Name(), target.Priority())
		}

		if !current.CanExit(client) {
			metrics.IncRejectionCount(m.name, metrics.ReasonExitBlocked)
			sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "transition",
				"rejecting %s -> %s: %v", current.Name(), target.Name(), standarderrors.ErrExitBlocked)

			return fmt.Errorf("%w: %s", standarderrors.ErrExitBlocked, current.Name())
		}
	}

	if !target.CanEnter(client) {
		metrics.IncRejectionCount(m.name, metrics.ReasonEnterBlocked)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "transition",
			"rejecting transition to %s: %v", target.Name(), standarderrors.ErrEnterBlocked)

		return fmt.Errorf("%w: %s", standarderrors.ErrEnterBlocked, target.Name())
	}

	// Commit. The state change is final once the guards have passed.
	fromName := ""
	if current != nil {
		current.OnExit(client)
		fromName = current.Name()
	}

	client.SetPreviousState(current)
	client.SetCurrentState(target)

	if registry := m.RegistryFor(client); registry != nil {
		registry.resetTime(target.ID())

		if err := registry.Lifecycle().Commit(); err != nil {
			metrics.IncErrorCount(metrics.ComponentManager, m.name)
			sentry.ReportFSMErrorf(m.logger, client.ID().String(), m.name, "transition", "lifecycle commit failed: %v", err)
		}
	}

	if tracker := client.Tracker(); tracker != nil {
		tracker.RecordTransition(target.Name())
	}

	target.OnEnter(client)

	m.notify(client, fromName, target.Name())

	metrics.IncTransitionCount(m.name)
	m.logger.Debugf("Client %s transitioned %s -> %s", client.ID(), fromName, target.Name())

	return nil
}

// notify invokes the client's post-commit sink, recovering and reporting any
// fault without unwinding the already-committed transition.
func (m *Manager) notify(client Client, from, to string) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncErrorCount(metrics.ComponentManager, m.name)
			sentry.ReportFSMErrorf(m.logger, client.ID().String(), m.name, "notify",
				"notification sink fault after transition %s -> %s: %v", from, to, r)
		}
	}()

	client.Notify(from, to)
}

// TransitionTo resolves id in the client's registry and attempts the
// transition to the resolved instance.
func (m *Manager) TransitionTo(client Client, id StateID) error {
	if client == nil {
		metrics.IncErrorCount(metrics.ComponentManager, m.name)

		return standarderrors.ErrNilClient
	}

	registry := m.RegistryFor(client)
	if registry == nil {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)

		return fmt.Errorf("%w: %s", standarderrors.ErrUnregisteredTarget, id)
	}

	target, ok := registry.Get(id)
	if !ok {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "transition",
			"transition requested to unregistered state %q", id)

		return fmt.Errorf("%w: %s", standarderrors.ErrUnregisteredTarget, id)
	}

	return m.Transition(client, target)
}

// TransitionToPrevious attempts a transition back to the client's previous
// state. It fails when no previous state is recorded, e.g. immediately after
// the first-ever transition.
func (m *Manager) TransitionToPrevious(client Client) error {
	if client == nil {
		metrics.IncErrorCount(metrics.ComponentManager, m.name)

		return standarderrors.ErrNilClient
	}

	previous := client.PreviousState()
	if previous == nil {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "transition",
			"transition to previous requested: %v", standarderrors.ErrNoPreviousState)

		return standarderrors.ErrNoPreviousState
	}

	return m.Transition(client, previous)
}

// SetGlobalOverride stages a forced transition to the state registered under
// id, to be consumed by the client's next Primary tick. Ids not registered
// in the client's registry are rejected and the override slot is left unset.
func (m *Manager) SetGlobalOverride(client Client, id StateID) error {
	if client == nil {
		metrics.IncErrorCount(metrics.ComponentManager, m.name)

		return standarderrors.ErrNilClient
	}

	registry := m.RegistryFor(client)
	if registry == nil || !registry.Has(id) {
		metrics.IncRejectionCount(m.name, metrics.ReasonValidation)
		sentry.ReportFSMWarningf(m.logger, client.ID().String(), m.name, "set_global_override",
			"refusing global override to unregistered state %q", id)

		return fmt.Errorf("%w: %s", standarderrors.ErrUnregisteredTarget, id)
	}

	registry.setOverride(id)
	m.logger.Debugf("Client %s global override set to %s", client.ID(), id)

	return nil
}

// GlobalOverride returns the client's pending override, if any.
func (m *Manager) GlobalOverride(client Client) (StateID, bool) {
	registry := m.RegistryFor(client)
	if registry == nil {
		return "", false
	}

	return registry.pendingOverride()
}

// ClearGlobalOverride drops the client's pending override.
func (m *Manager) ClearGlobalOverride(client Client) {
	if registry := m.RegistryFor(client); registry != nil {
		registry.clearOverride()
	}
}

// Cleanup destroys the client's registry: both indices and any pending
// override are dropped, the client-to-registry mapping entry is removed, and
// the client's state slots are reset. Idempotent: calling it on an
// already-cleaned or never-registered client is a no-op. The client must
// re-register before reuse.
func (m *Manager) Cleanup(client Client) {
	if client == nil {
		return
	}

	m.mu.Lock()
	if registry, ok := m.registries[client.ID()]; ok {
		registry.Clear()
		delete(m.registries, client.ID())
		m.logger.Debugf("Destroyed registry for client %s", client.ID())
	}
	m.mu.Unlock()

	client.SetCurrentState(nil)
	client.SetPreviousState(nil)
}
