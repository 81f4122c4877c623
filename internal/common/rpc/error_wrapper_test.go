package rpc

import (
	"context"
	"testing"

	"github.com/gogo/status"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"

	errordetailspb "go.temporal.io/api/errordetails/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/api/workflowservice/v1"
)

// fakeClient stands in for a generated gRPC client in these tests: convertError never calls
// through to the client, it only translates the error a call already returned.
type fakeClient struct{}

func (*fakeClient) PollWorkflowTaskQueue(context.Context, *workflowservice.PollWorkflowTaskQueueRequest, ...grpc.CallOption) (*workflowservice.PollWorkflowTaskQueueResponse, error) {
	return nil, nil
}

func (*fakeClient) GetWorkflowExecutionHistory(context.Context, *workflowservice.GetWorkflowExecutionHistoryRequest, ...grpc.CallOption) (*workflowservice.GetWorkflowExecutionHistoryResponse, error) {
	return nil, nil
}

func (*fakeClient) RespondWorkflowTaskCompleted(context.Context, *workflowservice.RespondWorkflowTaskCompletedRequest, ...grpc.CallOption) (*workflowservice.RespondWorkflowTaskCompletedResponse, error) {
	return nil, nil
}

func (*fakeClient) RespondWorkflowTaskFailed(context.Context, *workflowservice.RespondWorkflowTaskFailedRequest, ...grpc.CallOption) (*workflowservice.RespondWorkflowTaskFailedResponse, error) {
	return nil, nil
}

func (*fakeClient) RespondQueryTaskCompleted(context.Context, *workflowservice.RespondQueryTaskCompletedRequest, ...grpc.CallOption) (*workflowservice.RespondQueryTaskCompletedResponse, error) {
	return nil, nil
}

func (*fakeClient) RecordActivityTaskHeartbeat(context.Context, *workflowservice.RecordActivityTaskHeartbeatRequest, ...grpc.CallOption) (*workflowservice.RecordActivityTaskHeartbeatResponse, error) {
	return nil, nil
}

func TestErrorWrapper_SimpleError(t *testing.T) {
	require := require.New(t)
	wrapper := NewWorkflowServiceErrorWrapper(&fakeClient{})

	st := status.Error(codes.NotFound, "Something not found")

	svcerr := wrapper.(*workflowServiceErrorWrapper).convertError(st)
	require.IsType(&serviceerror.NotFound{}, svcerr)
	require.Equal("Something not found", svcerr.Error())
}

func TestErrorWrapper_ErrorWithFailure(t *testing.T) {
	require := require.New(t)
	wrapper := NewWorkflowServiceErrorWrapper(&fakeClient{})

	st, _ := status.New(codes.AlreadyExists, "Something started").WithDetails(&errordetailspb.WorkflowExecutionAlreadyStartedFailure{
		StartRequestId: "srId",
		RunId:          "rId",
	})

	svcerr := wrapper.(*workflowServiceErrorWrapper).convertError(st.Err())
	require.IsType(&serviceerror.WorkflowExecutionAlreadyStarted{}, svcerr)
	require.Equal("Something started", svcerr.Error())
	weasErr := svcerr.(*serviceerror.WorkflowExecutionAlreadyStarted)
	require.Equal("rId", weasErr.RunId)
	require.Equal("srId", weasErr.StartRequestId)
}

func TestErrorWrapper_NilError(t *testing.T) {
	wrapper := NewWorkflowServiceErrorWrapper(&fakeClient{})
	require.NoError(t, wrapper.(*workflowServiceErrorWrapper).convertError(nil))
}
