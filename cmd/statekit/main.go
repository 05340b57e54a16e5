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

// Command statekit runs a small simulated driver against the FSM runtime:
// two agents cycling through idle/patrol behaviors, one of them force-moved
// into an alert state via a global override. It demonstrates the driver
// obligations: Primary, Physics and Late once per cycle per client, cleanup
// once at end of life.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/statekit/statekit/pkg/config"
	"github.com/statekit/statekit/pkg/fsm"
	"github.com/statekit/statekit/pkg/logger"
	"github.com/statekit/statekit/pkg/metrics"
	"github.com/statekit/statekit/pkg/sentry"
	"github.com/statekit/statekit/pkg/version"
	"go.uber.org/zap"
)

const (
	stateIdle   fsm.StateID = "idle"
	statePatrol fsm.StateID = "patrol"
	stateAlert  fsm.StateID = "alert"
)

// idleState waits a few ticks, then asks to patrol.
type idleState struct {
	fsm.BaseState
	ticks int
}

func newIdleState() *idleState {
	return &idleState{BaseState: fsm.NewBaseState(stateIdle, 0, true)}
}

func (s *idleState) OnEnter(client fsm.Client) { s.ticks = 0 }

func (s *idleState) Tick(client fsm.Client, delta time.Duration) fsm.TickResult {
	s.ticks++
	if s.ticks >= 3 {
		return fsm.TransitionTo(statePatrol)
	}

	return fsm.Stay()
}

// patrolState walks until something more urgent takes over.
type patrolState struct {
	fsm.BaseState
}

func newPatrolState() *patrolState {
	return &patrolState{BaseState: fsm.NewBaseState(statePatrol, 1, true)}
}

// alertState is a high-priority behavior that refuses interruption while active.
type alertState struct {
	fsm.BaseState
}

func newAlertState() *alertState {
	return &alertState{BaseState: fsm.NewBaseState(stateAlert, 10, false)}
}

// agent is a demo client hosting the FSM.
type agent struct {
	id       uuid.UUID
	name     string
	current  fsm.State
	previous fsm.State
	tracker  *fsm.Tracker
	log      *zap.SugaredLogger
}

func newAgent(name string, historyCapacity int, log *zap.SugaredLogger) *agent {
	return &agent{
		id:      uuid.New(),
		name:    name,
		tracker: fsm.NewTrackerWithCapacity(historyCapacity),
		log:     log,
	}
}

func (a *agent) ID() uuid.UUID { return a.id }

func (a *agent) CurrentState() fsm.State { return a.current }

func (a *agent) SetCurrentState(state fsm.State) { a.current = state }

func (a *agent) PreviousState() fsm.State { return a.previous }

func (a *agent) SetPreviousState(state fsm.State) { a.previous = state }

func (a *agent) Tracker() *fsm.Tracker { return a.tracker }

func (a *agent) Notify(from string, to string) {
	a.log.Infof("%s changed behavior: %q -> %q", a.name, from, to)
}

func main() {
	logger.Initialize()

	sentry.InitSentry(version.GetAppVersion(), true)

	log := logger.For(logger.ComponentCore)
	log.Infof("Starting statekit demo (version %s)", version.GetAppVersion())

	cfg := config.DefaultConfig()
	if path := os.Getenv("STATEKIT_CONFIG"); path != "" {
		var err error
		cfg, err = config.LoadFile(path)
		if err != nil {
			sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to load config: %v", err)
			os.Exit(1)
		}
	}

	if cfg.Metrics.Enabled {
		metrics.StartMetricsServer(cfg.Metrics.Port)
	}

	manager := fsm.NewManager(cfg.FSM.ManagerName)

	scout := newAgent("scout", cfg.FSM.HistoryCapacity, log)
	sentinel := newAgent("sentinel", cfg.FSM.HistoryCapacity, log)
	agents := []*agent{scout, sentinel}

	for _, a := range agents {
		for _, state := range []fsm.State{newIdleState(), newPatrolState(), newAlertState()} {
			if _, err := manager.Register(a, state); err != nil {
				sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to register state for %s: %v", a.name, err)
				os.Exit(1)
			}
		}

		if err := manager.TransitionTo(a, stateIdle); err != nil {
			sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to enter initial state for %s: %v", a.name, err)
			os.Exit(1)
		}
	}

	delta := 16 * time.Millisecond

	for cycle := 0; cycle < 12; cycle++ {
		// The scout spots something halfway through the run.
		if cycle == 6 {
			if err := manager.SetGlobalOverride(scout, stateAlert); err != nil {
				log.Warnf("Override rejected: %v", err)
			}
		}

		for _, a := range agents {
			if err, _ := manager.Tick(a, fsm.PhasePrimary, delta); err != nil {
				log.Warnf("%s primary tick: %v", a.name, err)
			}
			if err, _ := manager.Tick(a, fsm.PhasePhysics, 0); err != nil {
				log.Warnf("%s physics tick: %v", a.name, err)
			}
			if err, _ := manager.Tick(a, fsm.PhaseLate, 0); err != nil {
				log.Warnf("%s late tick: %v", a.name, err)
			}
		}
	}

	snapshot := manager.CreateSnapshot()
	if data, err := snapshot.JSON(); err == nil {
		fmt.Println(string(data))
	}

	for _, a := range agents {
		manager.Cleanup(a)
	}

	// Sync on stdout fails on some platforms; nothing to do about it here.
	_ = logger.Sync()
}
