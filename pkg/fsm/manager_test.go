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

package fsm_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/statekit/statekit/internal/fsmtest"
	"github.com/statekit/statekit/pkg/fsm"
	"github.com/statekit/statekit/pkg/standarderrors"
)

var _ = Describe("Manager", func() {
	var (
		manager *fsm.Manager
		client  *fsmtest.MockClient
		low     *fsmtest.MockState
		high    *fsmtest.MockState
		delta   time.Duration
	)

	BeforeEach(func() {
		manager = fsm.NewManager("test")
		client = fsmtest.NewMockClient()

		low = fsmtest.NewMockState("A", 0, true)
		high = fsmtest.NewMockState("B", 10, true)

		_, err := manager.Register(client, low)
		Expect(err).NotTo(HaveOccurred())
		_, err = manager.Register(client, high)
		Expect(err).NotTo(HaveOccurred())

		delta = 16 * time.Millisecond
	})

	Context("registration", func() {
		It("should create the registry lazily on first registration", func() {
			fresh := fsmtest.NewMockClient()
			Expect(manager.RegistryFor(fresh)).To(BeNil())

			_, err := manager.Register(fresh, fsmtest.NewMockState("A", 0, true))
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.RegistryFor(fresh)).NotTo(BeNil())
		})

		It("should reject nil clients", func() {
			_, err := manager.Register(nil, fsmtest.NewMockState("A", 0, true))
			Expect(err).To(MatchError(standarderrors.ErrNilClient))
		})

		It("should keep instances of distinct clients independent", func() {
			other := fsmtest.NewMockClient()
			otherState := fsmtest.NewMockState("A", 0, true)

			_, err := manager.Register(other, otherState)
			Expect(err).NotTo(HaveOccurred())

			registered, ok := manager.RegistryFor(other).Get("A")
			Expect(ok).To(BeTrue())
			Expect(registered).NotTo(BeIdenticalTo(low))
		})

		It("should track per-instance timers independently across clients", func() {
			other := fsmtest.NewMockClient()
			_, err := manager.Register(other, fsmtest.NewMockState("A", 0, true))
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.TransitionTo(client, "A")).To(Succeed())
			Expect(manager.TransitionTo(other, "A")).To(Succeed())

			for i := 0; i < 3; i++ {
				err, _ := manager.Tick(client, fsm.PhasePrimary, delta)
				Expect(err).NotTo(HaveOccurred())
			}

			elapsed, ok := manager.RegistryFor(client).TimeInState("A")
			Expect(ok).To(BeTrue())
			Expect(elapsed).To(Equal(3 * delta))

			otherElapsed, ok := manager.RegistryFor(other).TimeInState("A")
			Expect(ok).To(BeTrue())
			Expect(otherElapsed).To(BeZero())
		})
	})

	Context("transition from the unset lifecycle state", func() {
		It("should consult only the target's entry guard", func() {
			Expect(manager.Transition(client, low)).To(Succeed())

			Expect(low.CanEnterCalls).To(Equal(1))
			Expect(low.CanExitCalls).To(BeZero())
			Expect(low.EnterCalls).To(Equal(1))
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(low)))
			Expect(client.PreviousState()).To(BeNil())
		})

		It("should reject when the entry guard refuses", func() {
			low.CanEnterResult = false

			err := manager.Transition(client, low)
			Expect(err).To(MatchError(standarderrors.ErrEnterBlocked))
			Expect(client.CurrentState()).To(BeNil())
			Expect(low.EnterCalls).To(BeZero())
		})

		It("should move the lifecycle to active on the first commit", func() {
			Expect(manager.RegistryFor(client).Lifecycle().IsActive()).To(BeFalse())
			Expect(manager.Transition(client, low)).To(Succeed())
			Expect(manager.RegistryFor(client).Lifecycle().IsActive()).To(BeTrue())
		})

		It("should notify with an empty from name", func() {
			Expect(manager.Transition(client, low)).To(Succeed())

			Expect(client.Notifications).To(HaveLen(1))
			Expect(client.Notifications[0].From).To(BeEmpty())
			Expect(client.Notifications[0].To).To(Equal("A"))
		})
	})

	Context("transition guards with a current state", func() {
		BeforeEach(func() {
			Expect(manager.Transition(client, high)).To(Succeed())
		})

		It("should reject strictly lower-priority targets", func() {
			err := manager.Transition(client, low)
			Expect(err).To(MatchError(standarderrors.ErrLowerPriority))
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(high)))
			Expect(low.EnterCalls).To(BeZero())
		})

		It("should permit equal-priority targets", func() {
			lateral := fsmtest.NewMockState("C", 10, true)
			_, err := manager.Register(client, lateral)
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.Transition(client, lateral)).To(Succeed())
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(lateral)))
		})

		It("should reject when the exit guard refuses, regardless of priority", func() {
			higher := fsmtest.NewMockState("C", 100, true)
			_, err := manager.Register(client, higher)
			Expect(err).NotTo(HaveOccurred())

			high.CanExitResult = false

			err = manager.Transition(client, higher)
			Expect(err).To(MatchError(standarderrors.ErrExitBlocked))
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(high)))
		})

		It("should reject when the entry guard refuses, without partial mutation", func() {
			higher := fsmtest.NewMockState("C", 100, true)
			higher.CanEnterResult = false
			_, err := manager.Register(client, higher)
			Expect(err).NotTo(HaveOccurred())

			countBefore := client.Tracker().TransitionCount()

			err = manager.Transition(client, higher)
			Expect(err).To(MatchError(standarderrors.ErrEnterBlocked))
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(high)))
			Expect(client.PreviousState()).To(BeNil())
			Expect(high.ExitCalls).To(BeZero())
			Expect(client.Tracker().TransitionCount()).To(Equal(countBefore))
		})

		It("should reject nil targets", func() {
			Expect(manager.Transition(client, nil)).To(MatchError(standarderrors.ErrNilTarget))
		})

		It("should reject self transitions", func() {
			Expect(manager.Transition(client, high)).To(MatchError(standarderrors.ErrSelfTransition))
		})
	})

	Context("tick dispatch", func() {
		It("should be a no-op without a current state", func() {
			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeFalse())
			Expect(low.TickCalls).To(BeZero())
		})

		It("should reject nil clients", func() {
			err, _ := manager.Tick(nil, fsm.PhasePrimary, delta)
			Expect(err).To(MatchError(standarderrors.ErrNilClient))
		})

		It("should forward Physics and Late without transition logic", func() {
			Expect(manager.Transition(client, low)).To(Succeed())
			low.NextResult = fsm.TransitionTo("B")

			err, transitioned := manager.Tick(client, fsm.PhasePhysics, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeFalse())

			err, transitioned = manager.Tick(client, fsm.PhaseLate, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeFalse())

			Expect(low.PhysicsCalls).To(Equal(1))
			Expect(low.LateCalls).To(Equal(1))
			Expect(low.TickCalls).To(BeZero())
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(low)))
		})

		It("should commit a transition requested by the current state's tick", func() {
			Expect(manager.Transition(client, low)).To(Succeed())
			low.NextResult = fsm.TransitionTo("B")

			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeTrue())

			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(high)))
			Expect(client.PreviousState()).To(BeIdenticalTo(fsm.State(low)))
			Expect(client.Tracker().TransitionCount()).To(Equal(uint64(2)))
			Expect(client.Tracker().History()).To(Equal([]string{"2: B", "1: A"}))
		})

		It("should stay put and report unregistered tick requests", func() {
			Expect(manager.Transition(client, low)).To(Succeed())
			low.NextResult = fsm.TransitionTo("missing")

			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).To(MatchError(standarderrors.ErrUnregisteredTarget))
			Expect(transitioned).To(BeFalse())
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(low)))
		})

		It("should advance the tracker's elapsed time on every Primary tick", func() {
			Expect(manager.Transition(client, low)).To(Succeed())

			for i := 0; i < 2; i++ {
				err, _ := manager.Tick(client, fsm.PhasePrimary, delta)
				Expect(err).NotTo(HaveOccurred())
			}

			Expect(client.Tracker().TimeInState()).To(Equal(2 * delta))
		})

		It("should reset elapsed time on a committed transition", func() {
			Expect(manager.Transition(client, low)).To(Succeed())

			err, _ := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())

			low.NextResult = fsm.TransitionTo("B")
			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeTrue())

			Expect(client.Tracker().TimeInState()).To(BeZero())

			elapsed, ok := manager.RegistryFor(client).TimeInState("B")
			Expect(ok).To(BeTrue())
			Expect(elapsed).To(BeZero())
		})
	})

	Context("global overrides", func() {
		BeforeEach(func() {
			Expect(manager.Transition(client, low)).To(Succeed())
		})

		It("should reject overrides to unregistered states and leave the slot unset", func() {
			err := manager.SetGlobalOverride(client, "missing")
			Expect(err).To(MatchError(standarderrors.ErrUnregisteredTarget))

			_, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})

		It("should force the transition and skip the state's own tick hook", func() {
			Expect(manager.SetGlobalOverride(client, "B")).To(Succeed())

			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeTrue())

			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(high)))
			Expect(low.TickCalls).To(BeZero())

			_, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})

		It("should discard the override when interruption is disallowed, skipping the tick hook", func() {
			locked := fsmtest.NewMockState("locked", 5, false)
			_, err := manager.Register(client, locked)
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.Transition(client, locked)).To(Succeed())

			Expect(manager.SetGlobalOverride(client, "B")).To(Succeed())

			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).To(MatchError(standarderrors.ErrInterruptBlocked))
			Expect(transitioned).To(BeFalse())

			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(locked)))
			Expect(locked.TickCalls).To(BeZero())

			_, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})

		It("should clear the override even when the forced transition is rejected", func() {
			high.CanEnterResult = false
			Expect(manager.SetGlobalOverride(client, "B")).To(Succeed())

			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).To(MatchError(standarderrors.ErrEnterBlocked))
			Expect(transitioned).To(BeFalse())
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(low)))

			_, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})

		It("should consume an override naming the current state and run the tick hook", func() {
			Expect(manager.SetGlobalOverride(client, "A")).To(Succeed())

			err, transitioned := manager.Tick(client, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())
			Expect(transitioned).To(BeFalse())
			Expect(low.TickCalls).To(Equal(1))

			_, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})

		It("should expose and clear the pending slot", func() {
			Expect(manager.SetGlobalOverride(client, "B")).To(Succeed())

			id, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeTrue())
			Expect(id).To(Equal(fsm.StateID("B")))

			manager.ClearGlobalOverride(client)
			_, pending = manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})
	})

	Context("transition to previous", func() {
		It("should fail immediately after the first-ever transition", func() {
			Expect(manager.Transition(client, low)).To(Succeed())

			err := manager.TransitionToPrevious(client)
			Expect(err).To(MatchError(standarderrors.ErrNoPreviousState))
		})

		It("should return to the previous state after a second transition", func() {
			Expect(manager.Transition(client, low)).To(Succeed())
			Expect(manager.Transition(client, high)).To(Succeed())

			Expect(manager.TransitionToPrevious(client)).To(Succeed())
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(low)))
			Expect(client.PreviousState()).To(BeIdenticalTo(fsm.State(high)))
		})
	})

	Context("notification sink", func() {
		It("should deliver from and to names post-commit", func() {
			Expect(manager.Transition(client, low)).To(Succeed())
			Expect(manager.Transition(client, high)).To(Succeed())

			Expect(client.Notifications).To(Equal([]fsmtest.Notification{
				{From: "", To: "A"},
				{From: "A", To: "B"},
			}))
		})

		It("should contain sink faults without unwinding the transition", func() {
			client.NotifyPanics = true

			Expect(manager.Transition(client, low)).To(Succeed())
			Expect(client.CurrentState()).To(BeIdenticalTo(fsm.State(low)))
			Expect(client.Tracker().TransitionCount()).To(Equal(uint64(1)))
		})
	})

	Context("cleanup", func() {
		It("should destroy the registry and reset the client", func() {
			Expect(manager.Transition(client, low)).To(Succeed())
			Expect(manager.SetGlobalOverride(client, "B")).To(Succeed())

			manager.Cleanup(client)

			Expect(manager.RegistryFor(client)).To(BeNil())
			Expect(client.CurrentState()).To(BeNil())
			Expect(client.PreviousState()).To(BeNil())

			_, pending := manager.GlobalOverride(client)
			Expect(pending).To(BeFalse())
		})

		It("should be idempotent", func() {
			manager.Cleanup(client)
			manager.Cleanup(client)

			Expect(manager.RegistryFor(client)).To(BeNil())

			// Never-registered clients are fine too
			manager.Cleanup(fsmtest.NewMockClient())
		})

		It("should require re-registration before reuse", func() {
			manager.Cleanup(client)

			err := manager.TransitionTo(client, "A")
			Expect(err).To(MatchError(standarderrors.ErrUnregisteredTarget))

			_, err = manager.Register(client, fsmtest.NewMockState("A", 0, true))
			Expect(err).NotTo(HaveOccurred())
			Expect(manager.TransitionTo(client, "A")).To(Succeed())
		})
	})

	Context("clients without a tracker", func() {
		It("should tick and transition without recording history", func() {
			bare := fsmtest.NewMockClientWithoutTracker()
			state := fsmtest.NewMockState("A", 0, true)
			_, err := manager.Register(bare, state)
			Expect(err).NotTo(HaveOccurred())

			Expect(manager.Transition(bare, state)).To(Succeed())

			err, _ = manager.Tick(bare, fsm.PhasePrimary, delta)
			Expect(err).NotTo(HaveOccurred())
			Expect(state.TickCalls).To(Equal(1))
		})
	})
})
