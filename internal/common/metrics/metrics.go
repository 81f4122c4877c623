// The MIT License
//
// Copyright (c) 2020 Temporal Technologies Inc.  All rights reserved.
//
// Copyright (c) 2020 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

// Package metrics names the counters and timers the replay executor and its collaborators
// emit through an injected tally.Scope. The scope itself, and where it is reported to, are
// the worker's concern, not this package's.
package metrics

const (
	// Workflow task processing.
	WorkflowTaskExecutionFailureCounter = "workflow-task-execution-failed"
	WorkflowTaskExecutionLatency         = "workflow-task-execution-latency"
	WorkflowTaskNoCompletionCounter      = "workflow-task-no-completion"
	NonDeterministicErrorCounter         = "non-deterministic-error"
	CommandsTotalCounter                 = "commands-total"

	// History pagination.
	WorkflowGetHistoryCounter        = "workflow-get-history-total"
	WorkflowGetHistorySucceedCounter = "workflow-get-history-succeed"
	WorkflowGetHistoryFailedCounter  = "workflow-get-history-failed"
	WorkflowGetHistoryLatency        = "workflow-get-history-latency"

	// Local activities.
	LocalActivityTotalCounter           = "local-activity-total"
	LocalActivityFailedCounter          = "local-activity-failed"
	LocalActivityCanceledCounter        = "local-activity-canceled"
	LocalActivityTimeoutCounter         = "local-activity-timeout"
	LocalActivityPanicCounter           = "local-activity-panic"
	LocalActivityExecutionLatency       = "local-activity-execution-latency"
	LocalActivityForcedNewTaskCounter   = "local-activity-forced-new-task"

	// Query handling.
	WorkflowQuerySucceedCounter = "workflow-query-succeed"
	WorkflowQueryFailedCounter  = "workflow-query-failed"
)
