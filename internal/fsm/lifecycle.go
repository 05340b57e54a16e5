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
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Lifecycle states of a client. A client starts in unset and becomes active
// on its first committed transition. There is no terminal state; the
// lifecycle ends when the client's registry is destroyed.
const (
	// LifecycleStateUnset indicates no transition has been committed yet.
	LifecycleStateUnset = "unset"
	// LifecycleStateActive indicates the client has a current state.
	LifecycleStateActive = "active"
)

const (
	// LifecycleEventCommit fires on a committed transition.
	LifecycleEventCommit = "commit"
)

// IsLifecycleState reports whether state names a known lifecycle state.
func IsLifecycleState(state string) bool {
	switch state {
	case LifecycleStateUnset, LifecycleStateActive:
		return true
	default:
		return false
	}
}

// ClientLifecycle tracks the unset/active lifecycle of a single client.
// It is bookkeeping only; the transition arbitration itself lives in the
// manager and never consults this machine as a guard.
type ClientLifecycle struct {
	clientID string

	// fsm is the finite state machine that tracks the lifecycle
	fsm *fsm.FSM

	// Registered "enter_state" callbacks, purely for logging or minor side-effects.
	callbacks map[string]fsm.Callback

	logger *zap.SugaredLogger
}

// NewClientLifecycle creates a lifecycle machine in the unset state.
func NewClientLifecycle(clientID string, logger *zap.SugaredLogger) *ClientLifecycle {
	lifecycle := &ClientLifecycle{
		clientID:  clientID,
		callbacks: make(map[string]fsm.Callback),
		logger:    logger,
	}

	lifecycle.fsm = fsm.NewFSM(
		LifecycleStateUnset,
		fsm.Events{
			{Name: LifecycleEventCommit, Src: []string{LifecycleStateUnset}, Dst: LifecycleStateActive},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				// Call registered callback for this state if exists
				if cb, ok := lifecycle.callbacks["enter_"+e.Dst]; ok {
					cb(ctx, e)
				}
			},
		},
	)

	lifecycle.AddCallback("enter_"+LifecycleStateActive, func(ctx context.Context, e *fsm.Event) {
		lifecycle.logger.Debugf("Client %s entered active lifecycle state", lifecycle.clientID)
	})

	return lifecycle
}

// AddCallback adds a callback for a given event name.
func (l *ClientLifecycle) AddCallback(eventName string, callback fsm.Callback) {
	l.callbacks[eventName] = callback
}

// Current returns the current lifecycle state.
func (l *ClientLifecycle) Current() string {
	return l.fsm.Current()
}

// IsActive returns true once the first transition has been committed.
func (l *ClientLifecycle) IsActive() bool {
	return l.fsm.Current() == LifecycleStateActive
}

// Commit records a committed transition. The unset state moves to active;
// once active, further commits are self-loops that the machine does not
// need to observe.
func (l *ClientLifecycle) Commit() error {
	if l.IsActive() {
		return nil
	}

	return l.fsm.Event(context.Background(), LifecycleEventCommit)
}
