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

package internal

import (
	commonpb "go.temporal.io/api/common/v1"
	historypb "go.temporal.io/api/history/v1"
	querypb "go.temporal.io/api/query/v1"
)

// WorkflowExecutionEventHandler is the contract the replay executor drives the user's workflow
// program through. Its implementation -- the cooperative coroutine dispatcher and deterministic
// primitives (workflow.Context, selectors, futures) -- is the out-of-scope external collaborator
// named in §1/§6; the executor only ever talks to it through this narrow interface.
type WorkflowExecutionEventHandler interface {
	// ProcessEvent feeds one history event to the workflow program. isReplay and isLast let the
	// program's context expose IsReplaying() and know whether more events in this batch follow.
	ProcessEvent(event *historypb.HistoryEvent, isReplay bool, isLast bool) error

	// Eval runs the program's cooperative dispatcher until it blocks on every pending future,
	// or completes. Returns true once the workflow has produced a final result or failure.
	Eval() (completed bool, err error)

	// StackTrace returns a dump of every still-blocked coroutine, for diagnostics. The executor
	// does not call it: a state-machine failure reports only the machine's audit history.
	StackTrace() string

	// Cancel delivers WorkflowExecutionCancelRequested semantics into the program.
	Cancel()

	// Close releases any resources the program holds (coroutine goroutines, channels) once the
	// workflow run is known to be terminal.
	Close()

	// GetNextWakeUpTime reports the earliest time (millis since epoch) at which the program
	// could make further progress, or 0 if it has nothing left to wait for.
	GetNextWakeUpTime() int64

	// QueryWorkflow answers a query against the current, already-replayed state. Must not
	// mutate any state observable to future workflow tasks.
	QueryWorkflow(queryType string, queryArgs *commonpb.Payloads) (*commonpb.Payloads, error)

	// GetOutput returns the workflow's result payload once completed successfully.
	GetOutput() *commonpb.Payloads

	// GetFailure returns the workflow's failure, if it completed by failing.
	GetFailure() error

	// GetWorkflowImplementationOptions reports author-configured policy, e.g. how to handle a
	// detected non-determinism (§7).
	GetWorkflowImplementationOptions() WorkflowImplementationOptions

	// CollectPendingLocalActivities drains the local activities the program scheduled during the
	// Eval() call that just returned, handing each to the executor's local-activity runner (§4.6).
	// The program itself never runs them; it only supplies the function closure and learns the
	// outcome back through ResolveLocalActivity.
	CollectPendingLocalActivities() []*localActivityTask

	// ResolveLocalActivity delivers one local activity's outcome back into the program, unblocking
	// whatever coroutine is waiting on it. Called for both freshly-run and replay-resolved results.
	ResolveLocalActivity(result *localActivityResult)
}

// WorkflowImplementationOptions configures per-workflow-type error policy.
type WorkflowImplementationOptions struct {
	// NonDeterministicWorkflowPolicy controls what happens on a detected state-machine or
	// previousStartedEventID mismatch (§7): fail the workflow outright, or fail only the task
	// (leaving the server to retry it, e.g. after a worker rollback).
	NonDeterministicWorkflowPolicy NonDeterministicWorkflowPolicy
}

// NonDeterministicWorkflowPolicy is the WorkflowErrorPolicy of §7.
type NonDeterministicWorkflowPolicy int

const (
	// NonDeterministicWorkflowPolicyBlockWorkflow fails only the workflow task; the server
	// retries it, giving an operator a chance to roll back to compatible worker code.
	NonDeterministicWorkflowPolicyBlockWorkflow NonDeterministicWorkflowPolicy = iota
	// NonDeterministicWorkflowPolicyFailWorkflow fails the workflow execution itself.
	NonDeterministicWorkflowPolicyFailWorkflow
)

// queryResult is the per-query outcome§4.8 collects after the event loop quiesces.
type queryResult struct {
	answered bool
	payload  *commonpb.Payloads
	err      error
}

// resolvePendingQueries runs every query in a poll response against the already-replayed
// workflow program and returns ANSWERED/FAILED results. Handles both the legacy single-Query
// and the map-of-Queries poll-response shapes.
func resolvePendingQueries(handler WorkflowExecutionEventHandler, legacyQuery *querypb.WorkflowQuery, queries map[string]*querypb.WorkflowQuery) map[string]queryResult {
	results := make(map[string]queryResult)
	runOne := func(id string, q *querypb.WorkflowQuery) {
		payload, err := handler.QueryWorkflow(q.GetQueryType(), q.GetQueryArgs())
		results[id] = queryResult{answered: err == nil, payload: payload, err: err}
	}
	if legacyQuery != nil {
		runOne("legacy", legacyQuery)
	}
	for id, q := range queries {
		runOne(id, q)
	}
	return results
}
