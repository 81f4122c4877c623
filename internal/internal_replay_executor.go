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

	"github.com/facebookgo/clock"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	commandpb "go.temporal.io/api/command/v1"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	querypb "go.temporal.io/api/query/v1"
	"go.temporal.io/api/workflowservice/v1"

	"github.com/durableflow/go-sdk/internal/common/metrics"
)

type (
	// WorkflowTaskResult is what one call to ProcessWorkflowTask produces: the commands to send
	// back to the service, any answered/failed queries, whether the local-activity runner needs
	// a forced follow-up task, and -- when the workflow just terminated -- its final command.
	WorkflowTaskResult struct {
		Commands                   []*commandpb.Command
		QueryResults               map[string]*querypb.WorkflowQueryResult
		ForceCreateNewWorkflowTask bool
		FinalCommand               *commandpb.Command
	}

	// nonDeterminismError is raised when the bookkeeper's lastStartedEventID disagrees with what
	// the next batch claims as its previousStartedEventID, or a state machine rejects a history
	// event it was never told to expect (§4.4's invariant, §7's error taxonomy).
	nonDeterminismError struct {
		message string
	}

	// ReplayExecutor is the top-level per-task orchestrator of §4.7: it owns the bookkeeper,
	// clock, local-activity runner, and the injected workflow program for the lifetime of one
	// cached workflow run, and serializes every entry point behind a single mutex (§5).
	ReplayExecutor struct {
		mu sync.Mutex

		namespace string
		execution *commonpb.WorkflowExecution
		service   WorkflowServiceClient
		logger    *zap.Logger
		metrics   tally.Scope
		wallClock clock.Clock

		bookkeeper *commandBookkeeper
		replayCk   *replayClock
		program    WorkflowExecutionEventHandler
		laRunner   *localActivityRunner

		lastStartedEventID int64
		cancelRequested    bool
		closed             bool

		workflowTaskTimeout time.Duration
	}
)

func (e *nonDeterminismError) Error() string { return e.message }

// NewReplayExecutor builds an executor for one workflow run. program is the external workflow
// dispatcher this executor drives; it must already be constructed (§6, out of scope here).
func NewReplayExecutor(
	namespace string,
	execution *commonpb.WorkflowExecution,
	service WorkflowServiceClient,
	logger *zap.Logger,
	metricsScope tally.Scope,
	program WorkflowExecutionEventHandler,
) *ReplayExecutor {
	wallClock := clock.New()
	return &ReplayExecutor{
		namespace:  namespace,
		execution:  execution,
		service:    service,
		logger:     logger,
		metrics:    metricsScope,
		wallClock:  wallClock,
		bookkeeper: newCommandBookkeeper(),
		replayCk:   newReplayClock(wallClock),
		program:    program,
	}
}

// ProcessWorkflowTask runs the full §4.7 pipeline for one poll response and returns the commands
// the service should be told about.
func (e *ReplayExecutor) ProcessWorkflowTask(ctx context.Context, poll *workflowservice.PollWorkflowTaskQueueResponse) (result *WorkflowTaskResult, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// A state machine rejecting an operation or event panics with stateMachineIllegalStatePanic;
	// that is handled here as non-determinism, under the workflow's policy.
	defer func() {
		if p := recover(); p != nil {
			illegal, ok := p.(stateMachineIllegalStatePanic)
			if !ok {
				panic(p)
			}
			result, err = e.handleNonDeterminism(&nonDeterminismError{message: illegal.message})
		}
	}()

	e.workflowTaskTimeout = time.Until(taskDeadlineFrom(poll))
	if e.laRunner == nil {
		e.laRunner = newLocalActivityRunner(e.logger, e.metrics, e.workflowTaskTimeout, true, nil)
	} else {
		// The runner is cached for the run's lifetime (sticky replay across polls), but its soft
		// budget belongs to one workflow task: rearm it here or a single heartbeat earlier in the
		// run would permanently disable the budget timer for every later task.
		e.laRunner.beginTask(e.workflowTaskTimeout)
	}

	iter := newHistoryIterator(
		ctx,
		e.execution,
		e.namespace,
		e.service,
		e.metrics,
		e.logger,
		poll.GetHistory().GetEvents(),
		poll.GetNextPageToken(),
		taskDeadlineFrom(poll),
	)

	var (
		commands     []*commandpb.Command
		finalCommand *commandpb.Command
		forceNewTask bool
	)

	for {
		batch, batchErr := iter.nextTaskBatch(e.lastStartedEventID, poll.GetPreviousStartedEventId())
		if batchErr == errIncompleteHistoryBatch {
			break
		}
		if batchErr != nil {
			return nil, batchErr
		}

		if e.lastStartedEventID != 0 && batch.previousStartedEventID != e.lastStartedEventID {
			nde := &nonDeterminismError{message: fmt.Sprintf(
				"non-determinism detected: batch previousStartedEventId=%d does not match executor lastStartedEventId=%d",
				batch.previousStartedEventID, e.lastStartedEventID)}
			return e.handleNonDeterminism(nde)
		}

		e.replayCk.isReplaying = batch.isReplay
		e.laRunner.isReplay = batch.isReplay
		if batch.isReplay {
			e.replayCk.advanceTo(batch.replayCurrentTimeMs)
		} else {
			e.replayCk.setLiveNow()
		}

		e.bookkeeper.handleWorkflowTaskStartedEvent(batch.currentStartedEventID)
		e.lastStartedEventID = batch.currentStartedEventID

		for _, marker := range batch.markers {
			if err := e.dispatchEvent(marker, batch.isReplay); err != nil {
				return e.handleNonDeterminism(err)
			}
		}
		for i, event := range batch.events {
			isLast := batch.isReplay == false && i == len(batch.events)-1
			if err := e.dispatchEvent(event, batch.isReplay); err != nil {
				return e.handleNonDeterminism(err)
			}
			if event.GetEventType() == enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_STARTED {
				if err := e.program.ProcessEvent(event, batch.isReplay, isLast); err != nil {
					return e.handleNonDeterminism(err)
				}
			}
		}

		completed, evalErr := e.evalWithLocalActivities(ctx, batch.isReplay)
		if evalErr != nil {
			return e.handleWorkflowError(evalErr)
		}
		if e.laRunner.forceNewTaskCalled {
			forceNewTask = true
		}

		if completed {
			finalCommand = e.completionCommand()
		} else {
			e.reconcileTimer()
		}

		if batch.isReplay {
			e.bookkeeper.notifyCommandSent()
		}

		for _, ce := range batch.commandEvents {
			if err := e.dispatchEvent(ce, batch.isReplay); err != nil {
				return e.handleNonDeterminism(err)
			}
		}

		e.bookkeeper.handleWorkflowTaskStartedEvent(batch.currentStartedEventID)

		if !iter.hasMoreEvents() {
			break
		}
	}

	commands = e.bookkeeper.getCommands(true)
	if finalCommand != nil {
		commands = append(commands, finalCommand)
	}

	queryResults := e.answerQueries(poll.GetQuery(), poll.GetQueries())

	if finalCommand != nil {
		e.closeLocked()
	}

	return &WorkflowTaskResult{
		Commands:                   commands,
		QueryResults:               queryResults,
		ForceCreateNewWorkflowTask: forceNewTask,
		FinalCommand:               finalCommand,
	}, nil
}

// QueryWorkflowTask answers a single out-of-band query against already-replayed state,
// without producing any new commands (§4.8's query-only poll case still replays history first
// via ProcessWorkflowTask; this entry point is for a query arriving once replay is already caught
// up and no new commands are desired).
func (e *ReplayExecutor) QueryWorkflowTask(q *querypb.WorkflowQuery) (*commonpb.Payloads, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.program.QueryWorkflow(q.GetQueryType(), q.GetQueryArgs())
}

// GetLocalActivityCompletionSink returns the entry point an out-of-band local-activity worker
// calls once a task it is running finishes: it takes the executor's mutex (the only lock this
// core needs, per §5) and dispatches the completion event exactly as an ordinary history event,
// so a MARKER_RECORDED local-activity marker delivered this way stages into the runner the same
// as one replayed from history. The synchronous path driven from ProcessWorkflowTask never calls
// this itself -- it drains localActivityRunner.completed directly while already holding the
// mutex -- but the sink is still the contract an asynchronous local-activity dispatcher (run on
// its own goroutine, independent of the workflow task that scheduled it) is required to have.
func (e *ReplayExecutor) GetLocalActivityCompletionSink() func(event *historypb.HistoryEvent) {
	return func(event *historypb.HistoryEvent) {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.closed {
			return
		}
		_ = e.dispatchEvent(event, false)
	}
}

// Close releases the workflow program. Safe to call multiple times.
func (e *ReplayExecutor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

func (e *ReplayExecutor) closeLocked() {
	if e.closed {
		return
	}
	e.replayCk.stopWakeUp()
	e.program.Close()
	e.closed = true
}

// dispatchEvent routes one history event by type, per the table in §4.7: state-machine-owned
// event classes go to the bookkeeper; workflow-level events go to the program directly.
func (e *ReplayExecutor) dispatchEvent(event *historypb.HistoryEvent, isReplay bool) error {
	switch event.GetEventType() {
	case enumspb.EVENT_TYPE_ACTIVITY_TASK_SCHEDULED:
		e.bookkeeper.handleActivityTaskScheduled(event)
	case enumspb.EVENT_TYPE_ACTIVITY_TASK_CANCEL_REQUESTED:
		e.bookkeeper.handleActivityTaskCancelRequested(event)
	case enumspb.EVENT_TYPE_ACTIVITY_TASK_STARTED:
		// No bookkeeper-visible transition: the activity remains INITIATED until it closes.
	case enumspb.EVENT_TYPE_ACTIVITY_TASK_COMPLETED,
		enumspb.EVENT_TYPE_ACTIVITY_TASK_FAILED,
		enumspb.EVENT_TYPE_ACTIVITY_TASK_TIMED_OUT:
		e.bookkeeper.handleActivityTaskClosed(event)
	case enumspb.EVENT_TYPE_ACTIVITY_TASK_CANCELED:
		e.bookkeeper.handleActivityTaskCanceled(event)
	case enumspb.EVENT_TYPE_TIMER_STARTED:
		e.bookkeeper.handleTimerStarted(event)
	case enumspb.EVENT_TYPE_TIMER_FIRED:
		if event.GetTimerFiredEventAttributes().GetTimerId() == forceWorkflowTaskTimerID {
			return nil
		}
		e.bookkeeper.handleTimerFired(event)
	case enumspb.EVENT_TYPE_TIMER_CANCELED:
		e.bookkeeper.handleTimerCanceled(event)
	case enumspb.EVENT_TYPE_START_CHILD_WORKFLOW_EXECUTION_INITIATED:
		e.bookkeeper.handleStartChildWorkflowExecutionInitiated(event)
	case enumspb.EVENT_TYPE_START_CHILD_WORKFLOW_EXECUTION_FAILED:
		e.bookkeeper.handleStartChildWorkflowExecutionFailed(event)
	case enumspb.EVENT_TYPE_CHILD_WORKFLOW_EXECUTION_STARTED:
		e.bookkeeper.handleChildWorkflowExecutionStarted(event)
	case enumspb.EVENT_TYPE_CHILD_WORKFLOW_EXECUTION_COMPLETED,
		enumspb.EVENT_TYPE_CHILD_WORKFLOW_EXECUTION_FAILED,
		enumspb.EVENT_TYPE_CHILD_WORKFLOW_EXECUTION_TIMED_OUT,
		enumspb.EVENT_TYPE_CHILD_WORKFLOW_EXECUTION_TERMINATED:
		e.bookkeeper.handleChildWorkflowExecutionClosed(event)
	case enumspb.EVENT_TYPE_CHILD_WORKFLOW_EXECUTION_CANCELED:
		e.bookkeeper.handleChildWorkflowExecutionCanceled(event)
	case enumspb.EVENT_TYPE_SIGNAL_EXTERNAL_WORKFLOW_EXECUTION_INITIATED:
		e.bookkeeper.handleSignalExternalWorkflowExecutionInitiated(event)
	case enumspb.EVENT_TYPE_SIGNAL_EXTERNAL_WORKFLOW_EXECUTION_FAILED:
		e.bookkeeper.handleSignalExternalWorkflowExecutionFailed(event)
	case enumspb.EVENT_TYPE_EXTERNAL_WORKFLOW_EXECUTION_SIGNALED:
		e.bookkeeper.handleSignalExternalWorkflowExecutionCompleted(event)
	case enumspb.EVENT_TYPE_REQUEST_CANCEL_EXTERNAL_WORKFLOW_EXECUTION_INITIATED:
		e.bookkeeper.handleRequestCancelExternalWorkflowExecutionInitiated(event)
	case enumspb.EVENT_TYPE_REQUEST_CANCEL_EXTERNAL_WORKFLOW_EXECUTION_FAILED:
		e.bookkeeper.handleRequestCancelExternalWorkflowExecutionFailed(event)
	case enumspb.EVENT_TYPE_EXTERNAL_WORKFLOW_EXECUTION_CANCEL_REQUESTED:
		e.bookkeeper.handleExternalWorkflowExecutionCancelRequested(event)
	case enumspb.EVENT_TYPE_UPSERT_WORKFLOW_SEARCH_ATTRIBUTES:
		// Single-shot: already resolved when the command was emitted; nothing further to do.
	case enumspb.EVENT_TYPE_MARKER_RECORDED:
		// Version/side-effect markers are read directly by the program's own deterministic
		// primitives; only local-activity markers need staging here so the replay phase can
		// resolve a pending task without re-running it.
		attrs := event.GetMarkerRecordedEventAttributes()
		if attrs.GetMarkerName() == localActivityMarkerName {
			e.stageReplayedLocalActivityMarker(attrs.GetDetails())
		}
	case enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_CANCEL_REQUESTED:
		e.cancelRequested = true
		e.program.Cancel()
	case enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_SIGNALED:
		return e.program.ProcessEvent(event, isReplay, false)
	case enumspb.EVENT_TYPE_WORKFLOW_EXECUTION_STARTED,
		enumspb.EVENT_TYPE_WORKFLOW_TASK_SCHEDULED,
		enumspb.EVENT_TYPE_WORKFLOW_TASK_COMPLETED,
		enumspb.EVENT_TYPE_WORKFLOW_TASK_FAILED,
		enumspb.EVENT_TYPE_WORKFLOW_TASK_TIMED_OUT:
		// WorkflowExecutionStarted is fed to the program by the caller (needs isLast); the
		// remaining workflow-task bookkeeping events carry no state-machine-visible transition.
	default:
		return e.program.ProcessEvent(event, isReplay, false)
	}
	return nil
}

// evalWithLocalActivities runs the program to quiescence, servicing local activities in between:
// each Eval pass may schedule new local activities, resolving one may unblock a coroutine that
// schedules another, so the two alternate until the program completes or genuinely has nothing
// left to do (no pending local activity, still not complete -- meaning it is waiting on a timer,
// signal, or remote activity that the next workflow task's history will carry in).
func (e *ReplayExecutor) evalWithLocalActivities(ctx context.Context, isReplay bool) (completed bool, err error) {
	for {
		completed, err = e.program.Eval()
		if err != nil || completed {
			return completed, err
		}
		forceNewTask, processedAny := e.runLocalActivityPhase(ctx, isReplay)
		if forceNewTask {
			return false, nil
		}
		if !processedAny {
			return false, nil
		}
	}
}

// stageReplayedLocalActivityMarker decodes a replayed LocalActivity marker's Details and makes
// the outcome available to the local-activity runner, so a still-pending task with the same
// activity ID resolves instantly instead of re-running.
func (e *ReplayExecutor) stageReplayedLocalActivityMarker(details map[string]*commonpb.Payloads) {
	var activityID string
	if err := decodeArgs(getDefaultDataConverter(), details["activityId"], &activityID); err != nil {
		return
	}
	e.laRunner.recordedResults[activityID] = &localActivityResult{
		activityID: activityID,
		result:     details["data"],
	}
}

// runLocalActivityPhase drives §4.6: it asks the program which local activities it scheduled
// this Eval, hands each to the runner (replay resolves instantly from a staged marker, live mode
// actually runs it), then drains every result the program is now able to consume. Returns true
// in forceNewTask when the soft budget ran out before a live activity finished, meaning the
// caller should force a new workflow task rather than let this one time out server-side; returns
// true in processedAny when at least one task was scheduled or resolved, so the caller knows
// whether re-running Eval is worth attempting.
func (e *ReplayExecutor) runLocalActivityPhase(ctx context.Context, isReplay bool) (forceNewTask bool, processedAny bool) {
	newTasks := e.program.CollectPendingLocalActivities()
	for _, task := range newTasks {
		e.laRunner.schedule(task)
		processedAny = true
	}

	for e.laRunner.hasPending() {
		result, shouldForceNewTask := e.laRunner.awaitNext(ctx)
		if shouldForceNewTask {
			return true, processedAny
		}
		if result == nil {
			return false, processedAny
		}
		processedAny = true
		if !isReplay && result.err == nil {
			e.bookkeeper.recordLocalActivityMarker(result.activityID, result.result)
		}
		e.program.ResolveLocalActivity(result)
	}
	return false, processedAny
}

// completionCommand builds the terminal command once the workflow program reports it is done.
func (e *ReplayExecutor) completionCommand() *commandpb.Command {
	output := e.program.GetOutput()
	if failure := e.program.GetFailure(); failure != nil {
		if e.cancelRequested {
			return createNewCommand(enumspb.COMMAND_TYPE_CANCEL_WORKFLOW_EXECUTION)
		}
		cmd := createNewCommand(enumspb.COMMAND_TYPE_FAIL_WORKFLOW_EXECUTION)
		cmd.Attributes = &commandpb.Command_FailWorkflowExecutionCommandAttributes{
			FailWorkflowExecutionCommandAttributes: &commandpb.FailWorkflowExecutionCommandAttributes{
				Failure: convertErrorToFailure(failure, getDefaultDataConverter()),
			},
		}
		return cmd
	}
	cmd := createNewCommand(enumspb.COMMAND_TYPE_COMPLETE_WORKFLOW_EXECUTION)
	cmd.Attributes = &commandpb.Command_CompleteWorkflowExecutionCommandAttributes{
		CompleteWorkflowExecutionCommandAttributes: &commandpb.CompleteWorkflowExecutionCommandAttributes{
			Result: output,
		},
	}
	return cmd
}

// reconcileTimer keeps the deterministic wake-up timer in sync with the program's reported next
// wake-up time (§4.2). The callback it passes is empty: the timer firing runs no code and emits
// no command.
func (e *ReplayExecutor) reconcileTimer() {
	next := e.program.GetNextWakeUpTime()
	e.replayCk.reconcileWakeUp(next, func() {})
}

// handleNonDeterminism applies §7's WorkflowErrorPolicy to a detected non-determinism: fail the
// workflow outright, or fail only the task and let the server retry it.
func (e *ReplayExecutor) handleNonDeterminism(cause error) (*WorkflowTaskResult, error) {
	e.metrics.Counter(metrics.NonDeterministicErrorCounter).Inc(1)
	policy := e.program.GetWorkflowImplementationOptions().NonDeterministicWorkflowPolicy
	if policy == NonDeterministicWorkflowPolicyFailWorkflow {
		cmd := createNewCommand(enumspb.COMMAND_TYPE_FAIL_WORKFLOW_EXECUTION)
		cmd.Attributes = &commandpb.Command_FailWorkflowExecutionCommandAttributes{
			FailWorkflowExecutionCommandAttributes: &commandpb.FailWorkflowExecutionCommandAttributes{
				Failure: convertErrorToFailure(cause, getDefaultDataConverter()),
			},
		}
		e.closeLocked()
		return &WorkflowTaskResult{FinalCommand: cmd, Commands: []*commandpb.Command{cmd}}, nil
	}
	e.metrics.Counter(metrics.WorkflowTaskNoCompletionCounter).Inc(1)
	return nil, cause
}

// handleWorkflowError applies §7's policy for an error surfaced out of the program's event loop:
// cancellation completes via a cancel command, everything else maps to a workflow failure.
func (e *ReplayExecutor) handleWorkflowError(cause error) (*WorkflowTaskResult, error) {
	if cause == ErrCanceled && e.cancelRequested {
		cmd := createNewCommand(enumspb.COMMAND_TYPE_CANCEL_WORKFLOW_EXECUTION)
		e.closeLocked()
		return &WorkflowTaskResult{FinalCommand: cmd, Commands: []*commandpb.Command{cmd}}, nil
	}
	cmd := createNewCommand(enumspb.COMMAND_TYPE_FAIL_WORKFLOW_EXECUTION)
	cmd.Attributes = &commandpb.Command_FailWorkflowExecutionCommandAttributes{
		FailWorkflowExecutionCommandAttributes: &commandpb.FailWorkflowExecutionCommandAttributes{
			Failure: convertErrorToFailure(cause, getDefaultDataConverter()),
		},
	}
	e.closeLocked()
	return &WorkflowTaskResult{FinalCommand: cmd, Commands: []*commandpb.Command{cmd}}, nil
}

// answerQueries runs every pending query against the now-fully-replayed program state (§4.8).
// Queries never produce commands and never fail the task; a query error becomes a FAILED result.
func (e *ReplayExecutor) answerQueries(legacyQuery *querypb.WorkflowQuery, queries map[string]*querypb.WorkflowQuery) map[string]*querypb.WorkflowQueryResult {
	if legacyQuery == nil && len(queries) == 0 {
		return nil
	}
	results := resolvePendingQueries(e.program, legacyQuery, queries)
	out := make(map[string]*querypb.WorkflowQueryResult, len(results))
	for id, r := range results {
		if r.answered {
			e.metrics.Counter(metrics.WorkflowQuerySucceedCounter).Inc(1)
			out[id] = &querypb.WorkflowQueryResult{
				ResultType: enumspb.QUERY_RESULT_TYPE_ANSWERED,
				Answer:     r.payload,
			}
		} else {
			e.metrics.Counter(metrics.WorkflowQueryFailedCounter).Inc(1)
			out[id] = &querypb.WorkflowQueryResult{
				ResultType:   enumspb.QUERY_RESULT_TYPE_FAILED,
				ErrorMessage: r.err.Error(),
			}
		}
	}
	return out
}

// taskDeadlineFrom derives the absolute deadline for this workflow task from its poll response:
// the response's StartedTime, or wall-clock now when it carries none (e.g. in unit tests building
// a response by hand), plus workflowTaskTimeoutFrom's fixed 10-second task timeout. The task
// queue's configured timeout is not read.
func taskDeadlineFrom(poll *workflowservice.PollWorkflowTaskQueueResponse) time.Time {
	if st := poll.GetStartedTime(); st != nil {
		return st.AsTime().Add(workflowTaskTimeoutFrom(poll))
	}
	return time.Now().Add(workflowTaskTimeoutFrom(poll))
}

func workflowTaskTimeoutFrom(poll *workflowservice.PollWorkflowTaskQueueResponse) time.Duration {
	if poll == nil {
		return 10 * time.Second
	}
	return 10 * time.Second
}

