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

// Package fsmtest provides scripted states and clients shared by the test
// suites. Guards can be toggled, tick results scripted, and every hook
// invocation is counted so suites can assert exactly which hooks ran.
package fsmtest

import (
	"time"

	"github.com/statekit/statekit/pkg/fsm"
)

// MockState is a fully scriptable state. The zero guards allow everything;
// tests flip CanEnterResult/CanExitResult to exercise rejections and set
// NextResult to drive transition requests from the Tick hook.
type MockState struct {
	fsm.BaseState

	CanEnterResult bool
	CanExitResult  bool
	NextResult     fsm.TickResult

	InitCalls     int
	EnterCalls    int
	ExitCalls     int
	TickCalls     int
	PhysicsCalls  int
	LateCalls     int
	CanEnterCalls int
	CanExitCalls  int

	LastDelta time.Duration
}

// NewMockState creates a mock state that permits everything and stays put.
func NewMockState(id fsm.StateID, priority int, allowInterruption bool) *MockState {
	return &MockState{
		BaseState:      fsm.NewBaseState(id, priority, allowInterruption),
		CanEnterResult: true,
		CanExitResult:  true,
		NextResult:     fsm.Stay(),
	}
}

func (s *MockState) Init(client fsm.Client) {
	s.InitCalls++
}

func (s *MockState) CanEnter(client fsm.Client) bool {
	s.CanEnterCalls++

	return s.CanEnterResult
}

func (s *MockState) OnEnter(client fsm.Client) {
	s.EnterCalls++
}

func (s *MockState) Tick(client fsm.Client, delta time.Duration) fsm.TickResult {
	s.TickCalls++
	s.LastDelta = delta

	return s.NextResult
}

func (s *MockState) TickPhysics(client fsm.Client) {
	s.PhysicsCalls++
}

func (s *MockState) TickLate(client fsm.Client) {
	s.LateCalls++
}

func (s *MockState) CanExit(client fsm.Client) bool {
	s.CanExitCalls++

	return s.CanExitResult
}

func (s *MockState) OnExit(client fsm.Client) {
	s.ExitCalls++
}
