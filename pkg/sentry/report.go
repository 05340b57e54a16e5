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

package sentry

import (
	"fmt"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
)

// debounceInterval is the minimum time between two reports of the same level.
// Local logging is never debounced, only the upstream Sentry delivery.
const debounceInterval = time.Hour * 2

var (
	lastSentMutex sync.Mutex
	lastSent      = map[IssueType]time.Time{}
)

func shouldSend(issueType IssueType) bool {
	if !shouldDebounceErrors {
		return true
	}

	lastSentMutex.Lock()
	defer lastSentMutex.Unlock()

	if time.Since(lastSent[issueType]) < debounceInterval {
		return false
	}
	lastSent[issueType] = time.Now()

	return true
}

// ReportIssue logs the issue and forwards it to Sentry (subject to debouncing).
func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	ReportIssueWithContext(err, issueType, log, nil)
}

// ReportIssuef formats an error message and reports it.
func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithContext reports an issue with additional context data that
// will be attached to the Sentry event as tags and extra data.
func ReportIssueWithContext(err error, issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}) {
	if log == nil {
		// If logger initialization failed somehow, create a no-op logger to avoid nil panics
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeError:
		log.Error(err)
		if shouldSend(issueType) {
			sendSentryEvent(createSentryEventWithContext(sentry.LevelError, err, context))
		}
	case IssueTypeWarning:
		log.Warn(err)
		if shouldSend(issueType) {
			sendSentryEvent(createSentryEventWithContext(sentry.LevelWarning, err, context))
		}
	}
}

// ReportIssuefWithContext formats an error message and reports it with additional context data.
func ReportIssuefWithContext(issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}, template string, args ...interface{}) {
	ReportIssueWithContext(fmt.Errorf(template, args...), issueType, log, context)
}

// Helper functions for common error patterns

// ReportFSMError reports an FSM-related error with proper context.
func ReportFSMError(log *zap.SugaredLogger, clientID string, managerName string, operation string, err error) {
	context := map[string]interface{}{
		"client_id":    clientID,
		"manager_name": managerName,
		"operation":    operation,
	}
	ReportIssueWithContext(err, IssueTypeError, log, context)
}

// ReportFSMErrorf formats an FSM-related error message and reports it with proper context.
func ReportFSMErrorf(log *zap.SugaredLogger, clientID string, managerName string, operation string, template string, args ...interface{}) {
	context := map[string]interface{}{
		"client_id":    clientID,
		"manager_name": managerName,
		"operation":    operation,
	}
	ReportIssuefWithContext(IssueTypeError, log, context, template, args...)
}

// ReportFSMWarning reports an FSM-related rejection with proper context.
// Rejections are the expected failure mode of guarded transitions, so they
// go out at warning level rather than error level.
func ReportFSMWarning(log *zap.SugaredLogger, clientID string, managerName string, operation string, err error) {
	context := map[string]interface{}{
		"client_id":    clientID,
		"manager_name": managerName,
		"operation":    operation,
	}
	ReportIssueWithContext(err, IssueTypeWarning, log, context)
}

// ReportFSMWarningf formats an FSM-related rejection message and reports it with proper context.
func ReportFSMWarningf(log *zap.SugaredLogger, clientID string, managerName string, operation string, template string, args ...interface{}) {
	context := map[string]interface{}{
		"client_id":    clientID,
		"manager_name": managerName,
		"operation":    operation,
	}
	ReportIssuefWithContext(IssueTypeWarning, log, context, template, args...)
}
