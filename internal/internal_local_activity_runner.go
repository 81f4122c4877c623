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
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	commonpb "go.temporal.io/api/common/v1"

	"github.com/durableflow/go-sdk/internal/common/metrics"
)

type (
	// localActivityFn is the user function a local activity marker replays or a live dispatch
	// invokes. It is opaque to this package: the activity registry and argument (un)marshaling
	// are the workflow program's concern.
	localActivityFn func(ctx context.Context) (result *commonpb.Payloads, err error)

	// localActivityTask is one outstanding local-activity invocation, keyed by the marker ID
	// that will eventually record its outcome.
	localActivityTask struct {
		activityID string
		fn         localActivityFn
		attempt    int32
		startTime  time.Time
		expireTime time.Time

		mu         sync.Mutex
		canceled   bool
		cancelFunc context.CancelFunc
	}

	// localActivityResult is what a completed (or canceled/timed out/panicked) task produces.
	localActivityResult struct {
		activityID string
		result     *commonpb.Payloads
		err        error
	}

	// localActivityRunner drives local activities per §4.6: in replay mode it resolves every
	// still-pending task instantly from its recorded marker with no goroutines spawned; in live
	// mode it actually runs the function, bounded by a soft per-task time budget, and issues a
	// forced new workflow task as a heartbeat if that budget is exceeded before the activity
	// finishes.
	localActivityRunner struct {
		logger       *zap.Logger
		metricsScope tally.Scope

		isReplay           bool
		recordedResults    map[string]*localActivityResult // activityID -> marker-recorded outcome
		pending            map[string]*localActivityTask
		completed          chan *localActivityResult
		softBudget         time.Duration
		phaseDeadline      time.Time
		forceNewTaskCalled bool
	}
)

// newLocalActivityRunner constructs a runner and arms its soft budget for the first workflow task.
// workflowTaskTimeout is the task's own timeout; the live soft budget is 4/5 of it, per §4.6. The
// executor keeps the runner for the whole run and calls beginTask for every later task.
func newLocalActivityRunner(logger *zap.Logger, metricsScope tally.Scope, workflowTaskTimeout time.Duration, isReplay bool, recordedResults map[string]*localActivityResult) *localActivityRunner {
	if recordedResults == nil {
		recordedResults = make(map[string]*localActivityResult)
	}
	r := &localActivityRunner{
		logger:          logger,
		metricsScope:    metricsScope,
		isReplay:        isReplay,
		recordedResults: recordedResults,
		pending:         make(map[string]*localActivityTask),
		completed:       make(chan *localActivityResult, 16),
	}
	r.beginTask(workflowTaskTimeout)
	return r
}

// beginTask rearms the soft budget for a fresh workflow task: the executor caches one runner for
// the lifetime of a run (sticky replay across polls), so without this the budget computed for the
// first task would silently govern every later one. forceNewTaskCalled resets here too -- it is a
// per-task signal, not a per-run one, and the deadline it is read against (phaseDeadline) is
// recomputed from the task's own timeout rather than stacking more time onto a stale deadline.
func (r *localActivityRunner) beginTask(workflowTaskTimeout time.Duration) {
	r.forceNewTaskCalled = false
	r.softBudget = workflowTaskTimeout * 4 / 5
	r.phaseDeadline = time.Now().Add(r.softBudget)
}

// schedule starts (or, under replay, immediately resolves) one local activity invocation. In
// replay mode a task whose marker is staged in recordedResults resolves from it and its function
// never runs.
func (r *localActivityRunner) schedule(task *localActivityTask) {
	if r.isReplay {
		if recorded, ok := r.recordedResults[task.activityID]; ok {
			r.completed <- recorded
			return
		}
		// A local activity scheduled during replay with no recorded marker means the workflow
		// task never reached a WorkflowTaskCompleted boundary last time: treat it exactly as a
		// live task so forward progress is still possible.
	}

	r.metricsScope.Counter(metrics.LocalActivityTotalCounter).Inc(1)
	r.pending[task.activityID] = task
	task.startTime = time.Now()

	go func() {
		result := r.execute(task)
		r.completed <- result
	}()
}

// execute runs fn to completion, panic-safe, and applies the soft deadline.
func (r *localActivityRunner) execute(task *localActivityTask) (result *localActivityResult) {
	defer func() {
		if p := recover(); p != nil {
			st := getStackTraceRaw(fmt.Sprintf("local activity %s [panic]:", task.activityID), 7, 0)
			r.metricsScope.Counter(metrics.LocalActivityPanicCounter).Inc(1)
			result = &localActivityResult{activityID: task.activityID, err: newPanicError(p, st)}
		}
		if result.err != nil && result.err != ErrCanceled {
			r.metricsScope.Counter(metrics.LocalActivityFailedCounter).Inc(1)
		}
	}()

	deadline := task.startTime.Add(r.softBudget)
	if !task.expireTime.IsZero() && task.expireTime.Before(deadline) {
		deadline = task.expireTime
	}
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	task.mu.Lock()
	if task.canceled {
		task.mu.Unlock()
		cancel()
		return &localActivityResult{activityID: task.activityID, err: ErrCanceled}
	}
	task.cancelFunc = cancel
	task.mu.Unlock()
	defer cancel()

	doneCh := make(chan struct{})
	var raw *commonpb.Payloads
	var err error
	go func() {
		raw, err = task.fn(ctx)
		close(doneCh)
	}()

	select {
	case <-doneCh:
		r.metricsScope.Timer(metrics.LocalActivityExecutionLatency).Record(time.Since(task.startTime))
		return &localActivityResult{activityID: task.activityID, result: raw, err: err}
	case <-ctx.Done():
		select {
		case <-doneCh:
			return &localActivityResult{activityID: task.activityID, result: raw, err: err}
		default:
		}
		if ctx.Err() == context.Canceled {
			r.metricsScope.Counter(metrics.LocalActivityCanceledCounter).Inc(1)
			return &localActivityResult{activityID: task.activityID, err: ErrCanceled}
		}
		r.metricsScope.Counter(metrics.LocalActivityTimeoutCounter).Inc(1)
		return &localActivityResult{activityID: task.activityID, err: ErrDeadlineExceeded}
	}
}

// cancel marks a pending task canceled, unblocking its execute goroutine if it is still running.
func (r *localActivityRunner) cancel(activityID string) {
	task, ok := r.pending[activityID]
	if !ok {
		return
	}
	task.mu.Lock()
	task.canceled = true
	cancelFn := task.cancelFunc
	task.mu.Unlock()
	if cancelFn != nil {
		cancelFn()
	}
}

// hasPending reports whether any scheduled local activity has not yet completed.
func (r *localActivityRunner) hasPending() bool {
	return len(r.pending) > 0
}

// awaitNext blocks for the next completion, or until the soft budget runs out -- at which point
// it reports shouldForceNewTask so the caller can heartbeat via forceCreateNewWorkflowTask (§4.6)
// instead of letting the workflow task itself time out server-side. The budget is shared across
// every call made during one phase: each call arms off the time remaining until phaseDeadline, not
// a fresh softBudget, so a run of several short-lived activities can't add up to far more than the
// budget by each resetting the clock.
func (r *localActivityRunner) awaitNext(ctx context.Context) (result *localActivityResult, shouldForceNewTask bool) {
	var budgetTimer *time.Timer
	var budgetCh <-chan time.Time
	if !r.forceNewTaskCalled && r.softBudget > 0 {
		remaining := time.Until(r.phaseDeadline)
		if remaining <= 0 {
			r.forceNewTaskCalled = true
			r.metricsScope.Counter(metrics.LocalActivityForcedNewTaskCounter).Inc(1)
			return nil, true
		}
		budgetTimer = time.NewTimer(remaining)
		budgetCh = budgetTimer.C
		defer budgetTimer.Stop()
	}

	select {
	case result = <-r.completed:
		delete(r.pending, result.activityID)
		return result, false
	case <-budgetCh:
		r.forceNewTaskCalled = true
		r.metricsScope.Counter(metrics.LocalActivityForcedNewTaskCounter).Inc(1)
		return nil, true
	case <-ctx.Done():
		return nil, false
	}
}
