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
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/tiendc/go-deepcopy"
)

// ClientSnapshot contains the immutable state of one client.
type ClientSnapshot struct {
	ID               string           `json:"id"`
	CurrentState     string           `json:"currentState"`
	PreviousState    string           `json:"previousState"`
	Lifecycle        string           `json:"lifecycle"`
	RegisteredStates []string         `json:"registeredStates"`
	PendingOverride  string           `json:"pendingOverride,omitempty"`
	Tracker          *TrackerSnapshot `json:"tracker,omitempty"`
}

// SystemSnapshot contains the state of every client a Manager knows about.
// Treat the contained snapshots as read-only; use SnapshotManager's deep
// copy when handing them outside the tick loop.
type SystemSnapshot struct {
	ManagerName  string                     `json:"managerName"`
	Clients      map[string]*ClientSnapshot `json:"clients"`
	SnapshotTime time.Time                  `json:"snapshotTime"`
}

// JSON encodes the snapshot for debug endpoints and tooling.
func (s *SystemSnapshot) JSON() ([]byte, error) {
	return json.Marshal(s)
}

// CreateSnapshot captures the current state of all clients managed by m.
func (m *Manager) CreateSnapshot() *SystemSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := &SystemSnapshot{
		ManagerName:  m.name,
		Clients:      make(map[string]*ClientSnapshot, len(m.registries)),
		SnapshotTime: time.Now(),
	}

	for id, registry := range m.registries {
		client := registry.client

		clientSnapshot := &ClientSnapshot{
			ID:               id.String(),
			Lifecycle:        registry.Lifecycle().Current(),
			RegisteredStates: registry.StateNames(),
		}

		if current := client.CurrentState(); current != nil {
			clientSnapshot.CurrentState = current.Name()
		}
		if previous := client.PreviousState(); previous != nil {
			clientSnapshot.PreviousState = previous.Name()
		}
		if override, pending := registry.pendingOverride(); pending {
			clientSnapshot.PendingOverride = string(override)
		}
		if tracker := client.Tracker(); tracker != nil {
			trackerSnapshot := tracker.Snapshot()
			clientSnapshot.Tracker = &trackerSnapshot
		}

		snapshot.Clients[id.String()] = clientSnapshot
	}

	return snapshot
}

// SnapshotManager manages thread-safe storage and retrieval of system snapshots.
type SnapshotManager struct {
	mu           sync.RWMutex
	lastSnapshot *SystemSnapshot
}

// NewSnapshotManager creates a new snapshot manager.
func NewSnapshotManager() *SnapshotManager {
	return &SnapshotManager{
		lastSnapshot: &SystemSnapshot{
			Clients:      make(map[string]*ClientSnapshot),
			SnapshotTime: time.Now(),
		},
	}
}

// UpdateSnapshot replaces the stored snapshot.
func (s *SnapshotManager) UpdateSnapshot(snapshot *SystemSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSnapshot = snapshot
}

// GetSnapshot returns the stored snapshot. Treat it as read-only; consumers
// outside the tick loop should use GetDeepCopySnapshot.
func (s *SnapshotManager) GetSnapshot() *SystemSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSnapshot
}

// GetDeepCopySnapshot returns an independent copy of the stored snapshot
// that a consumer may mutate freely.
func (s *SnapshotManager) GetDeepCopySnapshot() (SystemSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snapshotCopy SystemSnapshot
	if err := deepcopy.Copy(&snapshotCopy, s.lastSnapshot); err != nil {
		return SystemSnapshot{}, err
	}

	return snapshotCopy, nil
}
