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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	internalfsm "github.com/statekit/statekit/internal/fsm"
	"github.com/statekit/statekit/internal/fsmtest"
	"github.com/statekit/statekit/pkg/fsm"
)

var _ = Describe("Snapshot", func() {
	var (
		manager *fsm.Manager
		client  *fsmtest.MockClient
	)

	BeforeEach(func() {
		manager = fsm.NewManager("snapshot-test")
		client = fsmtest.NewMockClient()

		_, err := manager.Register(client, fsmtest.NewMockState("idle", 0, true))
		Expect(err).NotTo(HaveOccurred())
		_, err = manager.Register(client, fsmtest.NewMockState("patrol", 1, true))
		Expect(err).NotTo(HaveOccurred())
	})

	It("should capture the client's current state, lifecycle and history", func() {
		Expect(manager.TransitionTo(client, "idle")).To(Succeed())
		Expect(manager.TransitionTo(client, "patrol")).To(Succeed())

		snapshot := manager.CreateSnapshot()
		Expect(snapshot.ManagerName).To(Equal("snapshot-test"))
		Expect(snapshot.Clients).To(HaveLen(1))

		clientSnapshot := snapshot.Clients[client.ID().String()]
		Expect(clientSnapshot).NotTo(BeNil())
		Expect(clientSnapshot.CurrentState).To(Equal("patrol"))
		Expect(clientSnapshot.PreviousState).To(Equal("idle"))
		Expect(clientSnapshot.Lifecycle).To(Equal(internalfsm.LifecycleStateActive))
		Expect(clientSnapshot.RegisteredStates).To(Equal([]string{"idle", "patrol"}))
		Expect(clientSnapshot.Tracker).NotTo(BeNil())
		Expect(clientSnapshot.Tracker.History).To(Equal([]string{"2: patrol", "1: idle"}))
	})

	It("should capture a pending override", func() {
		Expect(manager.TransitionTo(client, "idle")).To(Succeed())
		Expect(manager.SetGlobalOverride(client, "patrol")).To(Succeed())

		snapshot := manager.CreateSnapshot()
		Expect(snapshot.Clients[client.ID().String()].PendingOverride).To(Equal("patrol"))
	})

	It("should serialize to JSON", func() {
		Expect(manager.TransitionTo(client, "idle")).To(Succeed())

		data, err := manager.CreateSnapshot().JSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"currentState":"idle"`))
	})

	Describe("SnapshotManager", func() {
		It("should hand out independent deep copies", func() {
			Expect(manager.TransitionTo(client, "idle")).To(Succeed())

			snapshots := fsm.NewSnapshotManager()
			snapshots.UpdateSnapshot(manager.CreateSnapshot())

			copied, err := snapshots.GetDeepCopySnapshot()
			Expect(err).NotTo(HaveOccurred())

			copied.Clients[client.ID().String()].Tracker.History[0] = "mutated"

			original := snapshots.GetSnapshot()
			Expect(original.Clients[client.ID().String()].Tracker.History[0]).To(Equal("1: idle"))
		})
	})
})
