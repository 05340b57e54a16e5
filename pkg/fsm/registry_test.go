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
	"github.com/statekit/statekit/pkg/standarderrors"
)

var _ = Describe("Registry", func() {
	var (
		client   *fsmtest.MockClient
		registry *fsm.Registry
	)

	BeforeEach(func() {
		client = fsmtest.NewMockClient()
		registry = fsm.NewRegistry(client)
	})

	Context("when registering states", func() {
		It("should assign the name derived from the id and run Init once", func() {
			state := fsmtest.NewMockState("idle", 0, true)

			registered, err := registry.Register(state)
			Expect(err).NotTo(HaveOccurred())
			Expect(registered.Name()).To(Equal("idle"))
			Expect(state.InitCalls).To(Equal(1))
		})

		It("should be idempotent and return the identical instance", func() {
			first := fsmtest.NewMockState("idle", 0, true)
			second := fsmtest.NewMockState("idle", 0, true)

			registeredFirst, err := registry.Register(first)
			Expect(err).NotTo(HaveOccurred())

			registeredSecond, err := registry.Register(second)
			Expect(err).NotTo(HaveOccurred())

			Expect(registeredSecond).To(BeIdenticalTo(registeredFirst))
			// The discarded duplicate was never initialized
			Expect(second.InitCalls).To(Equal(0))
			Expect(first.InitCalls).To(Equal(1))
		})

		It("should reject nil states", func() {
			_, err := registry.Register(nil)
			Expect(err).To(MatchError(standarderrors.ErrNilTarget))
		})

		It("should index the same instance by id and by name", func() {
			state := fsmtest.NewMockState("patrol", 1, true)
			_, err := registry.Register(state)
			Expect(err).NotTo(HaveOccurred())

			byID, ok := registry.Get("patrol")
			Expect(ok).To(BeTrue())

			byName, ok := registry.GetByName("patrol")
			Expect(ok).To(BeTrue())

			Expect(byName).To(BeIdenticalTo(byID))
		})
	})

	Context("when looking up states", func() {
		It("should report existence without construction", func() {
			Expect(registry.Has("idle")).To(BeFalse())

			_, err := registry.Register(fsmtest.NewMockState("idle", 0, true))
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.Has("idle")).To(BeTrue())
		})

		It("should return not-found for unknown ids and names", func() {
			_, ok := registry.Get("missing")
			Expect(ok).To(BeFalse())

			_, ok = registry.GetByName("missing")
			Expect(ok).To(BeFalse())
		})

		It("should list registered state names sorted", func() {
			_, err := registry.Register(fsmtest.NewMockState("patrol", 1, true))
			Expect(err).NotTo(HaveOccurred())
			_, err = registry.Register(fsmtest.NewMockState("idle", 0, true))
			Expect(err).NotTo(HaveOccurred())

			Expect(registry.StateNames()).To(Equal([]string{"idle", "patrol"}))
		})
	})

	Context("when clearing", func() {
		It("should drop both indices and stay usable", func() {
			_, err := registry.Register(fsmtest.NewMockState("idle", 0, true))
			Expect(err).NotTo(HaveOccurred())

			registry.Clear()
			Expect(registry.Has("idle")).To(BeFalse())
			_, ok := registry.GetByName("idle")
			Expect(ok).To(BeFalse())

			// Idempotent
			registry.Clear()
			Expect(registry.Has("idle")).To(BeFalse())
		})
	})

	Context("lifecycle", func() {
		It("should start in the unset state", func() {
			Expect(registry.Lifecycle().Current()).To(Equal(internalfsm.LifecycleStateUnset))
			Expect(registry.Lifecycle().IsActive()).To(BeFalse())
		})
	})
})
