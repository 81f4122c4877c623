// Copyright (c) 2017 Uber Technologies, Inc.
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

// Package worker polls a task queue and drives each workflow task it receives through a
// ReplayExecutor, replying to the service with the resulting commands.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"

	commonpb "go.temporal.io/api/common/v1"
	taskqueuepb "go.temporal.io/api/taskqueue/v1"
	"go.temporal.io/api/workflowservice/v1"

	"github.com/durableflow/go-sdk/internal"
	"github.com/durableflow/go-sdk/internal/common/rpc"
)

type (
	// ProgramFactory builds (or looks up a cached) workflow program for one execution, given the
	// workflow type name the service reported starting it with. Constructing the cooperative
	// dispatcher behind WorkflowExecutionEventHandler is the out-of-scope external collaborator's
	// job (spec §1/§6); the worker only needs something satisfying the narrow contract.
	ProgramFactory func(execution *commonpb.WorkflowExecution, workflowType string) (internal.WorkflowExecutionEventHandler, error)

	// Options configures a Worker.
	Options struct {
		Namespace      string
		TaskQueue      string
		Identity       string
		Logger         *zap.Logger
		MetricsScope   tally.Scope
		ProgramFactory ProgramFactory
		// PollTimeout bounds each long-poll call; the service itself also enforces a server-side
		// long-poll timeout, this is a client-side backstop.
		PollTimeout time.Duration
		// WorkflowTaskTimeout bounds how long handleTask's own context stays alive while driving
		// one workflow task: the hard deadline backing the soft local-activity budget enforced
		// inside ReplayExecutor.ProcessWorkflowTask.
		WorkflowTaskTimeout time.Duration
	}

	// Worker polls one task queue and replays each workflow task it is handed. It keeps one
	// ReplayExecutor cached per running workflow execution so sticky replay (§4.7's lastStartedEventID
	// continuity) works across consecutive polls for the same run.
	Worker struct {
		service internal.WorkflowServiceClient
		options Options

		mu        sync.Mutex
		executors map[string]*internal.ReplayExecutor

		stopCh  chan struct{}
		stopped chan struct{}
	}
)

// New creates a Worker polling service on the given namespace/task queue.
func New(service internal.WorkflowServiceClient, options Options) *Worker {
	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}
	if options.MetricsScope == nil {
		options.MetricsScope = tally.NoopScope
	}
	if options.PollTimeout <= 0 {
		options.PollTimeout = 60 * time.Second
	}
	if options.WorkflowTaskTimeout <= 0 {
		options.WorkflowTaskTimeout = 10 * time.Second
	}
	return &Worker{
		service:   rpc.NewWorkflowServiceErrorWrapper(service),
		options:   options,
		executors: make(map[string]*internal.ReplayExecutor),
	}
}

// Start begins polling in a background goroutine.
func (w *Worker) Start() error {
	w.stopCh = make(chan struct{})
	w.stopped = make(chan struct{})
	go w.pollLoop()
	return nil
}

// Stop signals the poll loop to exit and waits for it to return.
func (w *Worker) Stop() {
	if w.stopCh == nil {
		return
	}
	close(w.stopCh)
	<-w.stopped
}

func (w *Worker) pollLoop() {
	defer close(w.stopped)
	for {
		select {
		case <-w.stopCh:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.options.PollTimeout)
		resp, err := w.service.PollWorkflowTaskQueue(ctx, &workflowservice.PollWorkflowTaskQueueRequest{
			Namespace: w.options.Namespace,
			TaskQueue: &taskqueuepb.TaskQueue{Name: w.options.TaskQueue},
			Identity:  w.options.Identity,
		})
		cancel()
		if err != nil {
			w.options.Logger.Error("poll workflow task queue failed", zap.Error(err))
			continue
		}
		if len(resp.GetTaskToken()) == 0 {
			// Empty poll: the long-poll timed out server-side with no task available.
			continue
		}

		w.handleTask(resp)
	}
}

func (w *Worker) handleTask(resp *workflowservice.PollWorkflowTaskQueueResponse) {
	execution := resp.GetWorkflowExecution()
	executor, err := w.executorFor(execution, resp.GetWorkflowType().GetName())
	if err != nil {
		w.options.Logger.Error("failed to build workflow program", zap.Error(err), zap.String("WorkflowID", execution.GetWorkflowId()))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.options.WorkflowTaskTimeout)
	defer cancel()
	result, err := executor.ProcessWorkflowTask(ctx, resp)
	if err != nil {
		w.respondFailed(ctx, resp.GetTaskToken(), err)
		return
	}

	w.respondCompleted(ctx, resp.GetTaskToken(), result)

	if result.FinalCommand != nil {
		w.forgetExecutor(execution)
	}
}

func (w *Worker) respondCompleted(ctx context.Context, taskToken []byte, result *internal.WorkflowTaskResult) {
	_, err := w.service.RespondWorkflowTaskCompleted(ctx, &workflowservice.RespondWorkflowTaskCompletedRequest{
		TaskToken:                  taskToken,
		Commands:                   result.Commands,
		Identity:                   w.options.Identity,
		QueryResults:               result.QueryResults,
		ForceCreateNewWorkflowTask: result.ForceCreateNewWorkflowTask,
	})
	if err != nil {
		w.options.Logger.Error("respond workflow task completed failed", zap.Error(err))
	}
}

func (w *Worker) respondFailed(ctx context.Context, taskToken []byte, cause error) {
	w.options.Logger.Error("workflow task failed", zap.Error(cause))
	_, err := w.service.RespondWorkflowTaskFailed(ctx, &workflowservice.RespondWorkflowTaskFailedRequest{
		TaskToken: taskToken,
		Failure:   internal.ConvertErrorToFailure(cause),
		Identity:  w.options.Identity,
	})
	if err != nil {
		w.options.Logger.Error("respond workflow task failed failed", zap.Error(err))
	}
}

func (w *Worker) executorFor(execution *commonpb.WorkflowExecution, workflowType string) (*internal.ReplayExecutor, error) {
	key := execution.GetWorkflowId() + "/" + execution.GetRunId()

	w.mu.Lock()
	defer w.mu.Unlock()
	if executor, ok := w.executors[key]; ok {
		return executor, nil
	}

	program, err := w.options.ProgramFactory(execution, workflowType)
	if err != nil {
		return nil, err
	}
	executor := internal.NewReplayExecutor(w.options.Namespace, execution, w.service, w.options.Logger, w.options.MetricsScope, program)
	w.executors[key] = executor
	return executor, nil
}

func (w *Worker) forgetExecutor(execution *commonpb.WorkflowExecution) {
	key := execution.GetWorkflowId() + "/" + execution.GetRunId()
	w.mu.Lock()
	defer w.mu.Unlock()
	if executor, ok := w.executors[key]; ok {
		executor.Close()
		delete(w.executors, key)
	}
}
