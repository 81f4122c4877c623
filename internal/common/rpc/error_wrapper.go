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

// Package rpc wraps a raw gRPC workflow service client so that every call returns typed
// serviceerror values instead of bare gRPC status errors, the way the rest of this module expects
// to see them.
package rpc

import (
	"context"

	"github.com/gogo/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	errordetailspb "go.temporal.io/api/errordetails/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
)

// WorkflowServiceClient is the full gRPC workflow service surface this module drives. It is
// declared locally, with the same method set as internal.WorkflowServiceClient, rather than
// imported from internal, so this package stays dependency-free of the rest of the module: any
// value satisfying internal.WorkflowServiceClient already satisfies this interface structurally,
// and the wrapper this package returns satisfies internal.WorkflowServiceClient the same way.
type WorkflowServiceClient interface {
	PollWorkflowTaskQueue(ctx context.Context, in *workflowservice.PollWorkflowTaskQueueRequest, opts ...grpc.CallOption) (*workflowservice.PollWorkflowTaskQueueResponse, error)
	GetWorkflowExecutionHistory(ctx context.Context, in *workflowservice.GetWorkflowExecutionHistoryRequest, opts ...grpc.CallOption) (*workflowservice.GetWorkflowExecutionHistoryResponse, error)
	RespondWorkflowTaskCompleted(ctx context.Context, in *workflowservice.RespondWorkflowTaskCompletedRequest, opts ...grpc.CallOption) (*workflowservice.RespondWorkflowTaskCompletedResponse, error)
	RespondWorkflowTaskFailed(ctx context.Context, in *workflowservice.RespondWorkflowTaskFailedRequest, opts ...grpc.CallOption) (*workflowservice.RespondWorkflowTaskFailedResponse, error)
	RespondQueryTaskCompleted(ctx context.Context, in *workflowservice.RespondQueryTaskCompletedRequest, opts ...grpc.CallOption) (*workflowservice.RespondQueryTaskCompletedResponse, error)
	RecordActivityTaskHeartbeat(ctx context.Context, in *workflowservice.RecordActivityTaskHeartbeatRequest, opts ...grpc.CallOption) (*workflowservice.RecordActivityTaskHeartbeatResponse, error)
}

type workflowServiceErrorWrapper struct {
	client WorkflowServiceClient
}

// NewWorkflowServiceErrorWrapper decorates client so that every returned gRPC status error is
// translated via convertError into a typed serviceerror before reaching callers.
func NewWorkflowServiceErrorWrapper(client WorkflowServiceClient) WorkflowServiceClient {
	return &workflowServiceErrorWrapper{client: client}
}

func (w *workflowServiceErrorWrapper) PollWorkflowTaskQueue(ctx context.Context, in *workflowservice.PollWorkflowTaskQueueRequest, opts ...grpc.CallOption) (*workflowservice.PollWorkflowTaskQueueResponse, error) {
	resp, err := w.client.PollWorkflowTaskQueue(ctx, in, opts...)
	return resp, w.convertError(err)
}

func (w *workflowServiceErrorWrapper) GetWorkflowExecutionHistory(ctx context.Context, in *workflowservice.GetWorkflowExecutionHistoryRequest, opts ...grpc.CallOption) (*workflowservice.GetWorkflowExecutionHistoryResponse, error) {
	resp, err := w.client.GetWorkflowExecutionHistory(ctx, in, opts...)
	return resp, w.convertError(err)
}

func (w *workflowServiceErrorWrapper) RespondWorkflowTaskCompleted(ctx context.Context, in *workflowservice.RespondWorkflowTaskCompletedRequest, opts ...grpc.CallOption) (*workflowservice.RespondWorkflowTaskCompletedResponse, error) {
	resp, err := w.client.RespondWorkflowTaskCompleted(ctx, in, opts...)
	return resp, w.convertError(err)
}

func (w *workflowServiceErrorWrapper) RespondWorkflowTaskFailed(ctx context.Context, in *workflowservice.RespondWorkflowTaskFailedRequest, opts ...grpc.CallOption) (*workflowservice.RespondWorkflowTaskFailedResponse, error) {
	resp, err := w.client.RespondWorkflowTaskFailed(ctx, in, opts...)
	return resp, w.convertError(err)
}

func (w *workflowServiceErrorWrapper) RespondQueryTaskCompleted(ctx context.Context, in *workflowservice.RespondQueryTaskCompletedRequest, opts ...grpc.CallOption) (*workflowservice.RespondQueryTaskCompletedResponse, error) {
	resp, err := w.client.RespondQueryTaskCompleted(ctx, in, opts...)
	return resp, w.convertError(err)
}

func (w *workflowServiceErrorWrapper) RecordActivityTaskHeartbeat(ctx context.Context, in *workflowservice.RecordActivityTaskHeartbeatRequest, opts ...grpc.CallOption) (*workflowservice.RecordActivityTaskHeartbeatResponse, error) {
	resp, err := w.client.RecordActivityTaskHeartbeat(ctx, in, opts...)
	return resp, w.convertError(err)
}

// convertError maps a gRPC status error to the typed serviceerror it represents. Status details
// carrying a structured failure (e.g. WorkflowExecutionAlreadyStarted) are unpacked into the
// matching serviceerror's fields; everything else falls back to the code's generic serviceerror.
func (w *workflowServiceErrorWrapper) convertError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	for _, detail := range st.Details() {
		if already, ok := detail.(*errordetailspb.WorkflowExecutionAlreadyStartedFailure); ok {
			return &serviceerror.WorkflowExecutionAlreadyStarted{
				Message:        st.Message(),
				StartRequestId: already.GetStartRequestId(),
				RunId:          already.GetRunId(),
			}
		}
	}

	switch st.Code() {
	case codes.NotFound:
		return serviceerror.NewNotFound(st.Message())
	case codes.AlreadyExists:
		return serviceerror.NewWorkflowExecutionAlreadyStarted(st.Message(), "", "")
	case codes.InvalidArgument:
		return serviceerror.NewInvalidArgument(st.Message())
	case codes.DeadlineExceeded:
		return serviceerror.NewDeadlineExceeded(st.Message())
	case codes.Canceled:
		return serviceerror.NewCanceled(st.Message())
	case codes.Unavailable:
		return serviceerror.NewUnavailable(st.Message())
	case codes.ResourceExhausted:
		return serviceerror.NewResourceExhausted(st.Message())
	default:
		return serviceerror.NewInternal(st.Message())
	}
}
