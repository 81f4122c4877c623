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
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	"go.temporal.io/api/workflowservice/v1"

	"github.com/durableflow/go-sdk/internal/common/backoff"
	"github.com/durableflow/go-sdk/internal/common/metrics"
)

type (
	// workflowTaskEvents is one task-batch of history (§3), delimited by consecutive
	// WorkflowTaskStarted events.
	workflowTaskEvents struct {
		previousStartedEventID int64
		currentStartedEventID  int64
		events                 []*historypb.HistoryEvent
		commandEvents          []*historypb.HistoryEvent
		markers                []*historypb.HistoryEvent
		isReplay               bool
		replayCurrentTimeMs    int64
	}

	// historyIterator groups the flat history stream into task batches, paginating through
	// the service when the in-memory page is exhausted.
	historyIterator struct {
		ctx                  context.Context
		execution            *commonpb.WorkflowExecution
		namespace            string
		service              WorkflowServiceClient
		metricsScope         tally.Scope
		logger               *zap.Logger
		nextPageToken        []byte
		eventsBuffer         []*historypb.HistoryEvent
		nextBatchOnlyIfLive  bool // true on a query-only poll with no pending pagination
		workflowTaskDeadline time.Time
	}
)

func newHistoryIterator(
	ctx context.Context,
	execution *commonpb.WorkflowExecution,
	namespace string,
	service WorkflowServiceClient,
	metricsScope tally.Scope,
	logger *zap.Logger,
	firstPageEvents []*historypb.HistoryEvent,
	nextPageToken []byte,
	workflowTaskDeadline time.Time,
) *historyIterator {
	return &historyIterator{
		ctx:                  ctx,
		execution:            execution,
		namespace:            namespace,
		service:               service,
		metricsScope:         metricsScope,
		logger:               logger,
		eventsBuffer:         firstPageEvents,
		nextPageToken:        nextPageToken,
		workflowTaskDeadline: workflowTaskDeadline,
	}
}

// hasMoreEvents reports whether there are buffered events left, or a page still to fetch.
func (h *historyIterator) hasMoreEvents() bool {
	return len(h.eventsBuffer) > 0 || len(h.nextPageToken) > 0
}

// nextEvent pops the next event off the buffer, fetching a new page via GetWorkflowExecutionHistory
// when the buffer is empty but more history is known to exist. Pagination is retried per §4.5:
// initial 200ms, max 4s backoff, bounded by the remaining workflow task deadline.
func (h *historyIterator) nextEvent() (*historypb.HistoryEvent, error) {
	if len(h.eventsBuffer) == 0 {
		if len(h.nextPageToken) == 0 {
			return nil, fmt.Errorf("history iterator exhausted")
		}
		if err := h.fetchNextPage(); err != nil {
			return nil, err
		}
	}
	event := h.eventsBuffer[0]
	h.eventsBuffer = h.eventsBuffer[1:]
	return event, nil
}

func (h *historyIterator) fetchNextPage() error {
	remaining := time.Until(h.workflowTaskDeadline)
	if remaining <= 0 {
		return fmt.Errorf("history pagination deadline exceeded: workflow task timeout expired before fetching next page")
	}
	policy := backoff.NewExponentialRetryPolicy(200 * time.Millisecond)
	policy.SetMaximumInterval(4 * time.Second)
	policy.SetExpirationInterval(remaining)

	var resp *workflowservice.GetWorkflowExecutionHistoryResponse
	err := backoff.Retry(h.ctx, func() error {
		var err1 error
		resp, err1 = h.service.GetWorkflowExecutionHistory(h.ctx, &workflowservice.GetWorkflowExecutionHistoryRequest{
			Namespace:     h.namespace,
			Execution:     h.execution,
			NextPageToken: h.nextPageToken,
		})
		return err1
	}, policy, isServiceTransientError)
	if err != nil {
		if h.metricsScope != nil {
			h.metricsScope.Counter(metrics.WorkflowGetHistoryFailedCounter).Inc(1)
		}
		return fmt.Errorf("history pagination deadline exceeded: %w", err)
	}
	if h.metricsScope != nil {
		h.metricsScope.Counter(metrics.WorkflowGetHistorySucceedCounter).Inc(1)
	}
	h.eventsBuffer = append(h.eventsBuffer, resp.History.GetEvents()...)
	h.nextPageToken = resp.NextPageToken
	return nil
}

// nextTaskBatch assembles the next workflowTaskEvents by consuming events up to and including
// the next WorkflowTaskStarted event. previousStartedEventID is the id from the prior call (0
// for the first batch of a task); isReplay is true iff currentStartedEventID is at or before
// the poll response's own previousStartedEventID (the batch being decided live is always the
// last one produced).
func (h *historyIterator) nextTaskBatch(previousStartedEventID, pollResponsePreviousStartedEventID int64) (*workflowTaskEvents, error) {
	batch := &workflowTaskEvents{previousStartedEventID: previousStartedEventID}
	for {
		event, err := h.nextEvent()
		if err != nil {
			return nil, err
		}
		switch event.GetEventType() {
		case enumspb.EVENT_TYPE_MARKER_RECORDED:
			batch.markers = append(batch.markers, event)
		case enumspb.EVENT_TYPE_WORKFLOW_TASK_STARTED:
			batch.currentStartedEventID = event.GetEventId()
			batch.isReplay = batch.currentStartedEventID <= pollResponsePreviousStartedEventID
			batch.replayCurrentTimeMs = event.GetEventTime().AsTime().UnixNano() / int64(time.Millisecond)
			return batch, nil
		case enumspb.EVENT_TYPE_ACTIVITY_TASK_SCHEDULED,
			enumspb.EVENT_TYPE_ACTIVITY_TASK_CANCEL_REQUESTED,
			enumspb.EVENT_TYPE_TIMER_STARTED,
			enumspb.EVENT_TYPE_TIMER_CANCELED,
			enumspb.EVENT_TYPE_START_CHILD_WORKFLOW_EXECUTION_INITIATED,
			enumspb.EVENT_TYPE_START_CHILD_WORKFLOW_EXECUTION_FAILED,
			enumspb.EVENT_TYPE_SIGNAL_EXTERNAL_WORKFLOW_EXECUTION_INITIATED,
			enumspb.EVENT_TYPE_REQUEST_CANCEL_EXTERNAL_WORKFLOW_EXECUTION_INITIATED,
			enumspb.EVENT_TYPE_UPSERT_WORKFLOW_SEARCH_ATTRIBUTES:
			// Receipts materializing commands this workflow itself issued last task; these are
			// dispatched after the event loop runs (§5 ordering guarantees), not inline.
			batch.commandEvents = append(batch.commandEvents, event)
		default:
			batch.events = append(batch.events, event)
		}
		if !h.hasMoreEvents() && event.GetEventType() != enumspb.EVENT_TYPE_WORKFLOW_TASK_STARTED {
			// History page ended mid-batch without a closing WorkflowTaskStarted: the batch is
			// incomplete and the caller must treat this as "no more task batches yet".
			return batch, errIncompleteHistoryBatch
		}
	}
}

var errIncompleteHistoryBatch = fmt.Errorf("history ended without a closing WorkflowTaskStarted event")
