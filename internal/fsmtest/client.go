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

package fsmtest

import (
	"github.com/google/uuid"
	"github.com/statekit/statekit/pkg/fsm"
)

// Notification records one invocation of a client's post-commit sink.
type Notification struct {
	From string
	To   string
}

// MockClient is a minimal Client implementation for the suites. Setting
// NotifyPanics makes the sink panic, exercising the manager's fault
// containment.
type MockClient struct {
	id       uuid.UUID
	current  fsm.State
	previous fsm.State
	tracker  *fsm.Tracker

	Notifications []Notification
	NotifyPanics  bool
}

// NewMockClient creates a client with a fresh tracker.
func NewMockClient() *MockClient {
	return &MockClient{
		id:      uuid.New(),
		tracker: fsm.NewTracker(),
	}
}

// NewMockClientWithoutTracker creates a client whose Tracker() is nil.
func NewMockClientWithoutTracker() *MockClient {
	return &MockClient{id: uuid.New()}
}

func (c *MockClient) ID() uuid.UUID { return c.id }

func (c *MockClient) CurrentState() fsm.State { return c.current }

func (c *MockClient) SetCurrentState(state fsm.State) { c.current = state }

func (c *MockClient) PreviousState() fsm.State { return c.previous }

func (c *MockClient) SetPreviousState(state fsm.State) { c.previous = state }

func (c *MockClient) Tracker() *fsm.Tracker { return c.tracker }

func (c *MockClient) Notify(from string, to string) {
	if c.NotifyPanics {
		panic("notification sink failure")
	}

	c.Notifications = append(c.Notifications, Notification{From: from, To: to})
}
