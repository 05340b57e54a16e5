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

package standarderrors

import "errors"

// Validation rejections. The arguments of the call were unusable; nothing
// about the client's state was consulted.
var (
	// ErrNilClient is returned when an operation is invoked with a nil client.
	ErrNilClient = errors.New("client is nil")

	// ErrNilTarget is returned when a transition targets a nil state.
	ErrNilTarget = errors.New("target state is nil")

	// ErrSelfTransition is returned when a transition targets the current state.
	ErrSelfTransition = errors.New("target state equals current state")

	// ErrUnregisteredTarget is returned when a requested state id does not
	// resolve in the client's registry.
	ErrUnregisteredTarget = errors.New("target state is not registered")

	// ErrNoPreviousState is returned by TransitionToPrevious when the client
	// has no previous state recorded yet.
	ErrNoPreviousState = errors.New("no previous state recorded")
)

// Guard rejections. The transition was well-formed but a guard blocked it.
// The current state is left untouched.
var (
	// ErrLowerPriority is returned when the target's priority is strictly
	// lower than the current state's priority.
	ErrLowerPriority = errors.New("target priority is lower than current priority")

	// ErrExitBlocked is returned when the current state's CanExit guard refused.
	ErrExitBlocked = errors.New("current state refused to exit")

	// ErrEnterBlocked is returned when the target state's CanEnter guard refused.
	ErrEnterBlocked = errors.New("target state refused entry")

	// ErrInterruptBlocked is returned when a global override was discarded
	// because the current state does not allow interruption.
	ErrInterruptBlocked = errors.New("current state does not allow interruption")
)

// IsValidationRejection reports whether err belongs to the validation category.
func IsValidationRejection(err error) bool {
	return errors.Is(err, ErrNilClient) ||
		errors.Is(err, ErrNilTarget) ||
		errors.Is(err, ErrSelfTransition) ||
		errors.Is(err, ErrUnregisteredTarget) ||
		errors.Is(err, ErrNoPreviousState)
}

// IsGuardRejection reports whether err belongs to the guard category.
func IsGuardRejection(err error) bool {
	return errors.Is(err, ErrLowerPriority) ||
		errors.Is(err, ErrExitBlocked) ||
		errors.Is(err, ErrEnterBlocked) ||
		errors.Is(err, ErrInterruptBlocked)
}
