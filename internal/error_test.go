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

package internal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	enumspb "go.temporal.io/api/enums/v1"
)

const (
	// assume this is some error reason defined by activity implementation.
	customErrReasonA = "CustomReasonA"
)

type testStruct struct {
	Name string
	Age  int
}

var (
	testErrorDetails1 = "my details"
	testErrorDetails2 = 123
	testErrorDetails3 = testStruct{"a string", 321}
)

func Test_ApplicationError_RoundTrip(t *testing.T) {
	dc := getDefaultDataConverter()
	applicationErr := NewApplicationError("my message", false, errors.New(customErrReasonA), testErrorDetails1, testErrorDetails2)
	require.Equal(t, "my message", applicationErr.Error())
	require.False(t, applicationErr.NonRetryable())
	require.True(t, applicationErr.HasDetails())

	failure := convertErrorToFailure(applicationErr, dc)
	require.NotNil(t, failure.GetApplicationFailureInfo())
	require.Equal(t, "my message", failure.GetMessage())

	roundTripped := convertFailureToError(failure, dc)
	var gotApplicationErr *ApplicationError
	require.True(t, errors.As(roundTripped, &gotApplicationErr))
	require.Equal(t, "my message", gotApplicationErr.Error())

	var d1 string
	var d2 int
	require.NoError(t, gotApplicationErr.Details(&d1, &d2))
	require.Equal(t, testErrorDetails1, d1)
	require.Equal(t, testErrorDetails2, d2)
}

func Test_ApplicationError_NonRetryable(t *testing.T) {
	applicationErr := NewApplicationError("boom", true, nil)
	require.True(t, applicationErr.NonRetryable())
	require.False(t, applicationErr.HasDetails())
}

func Test_TimeoutError(t *testing.T) {
	dc := getDefaultDataConverter()
	timeoutErr := NewTimeoutError(enumspb.TIMEOUT_TYPE_START_TO_CLOSE, nil, testErrorDetails3)
	require.Equal(t, enumspb.TIMEOUT_TYPE_START_TO_CLOSE, timeoutErr.TimeoutType())
	require.True(t, timeoutErr.HasLastHeartbeatDetails())

	failure := convertErrorToFailure(timeoutErr, dc)
	require.NotNil(t, failure.GetTimeoutFailureInfo())
	require.Equal(t, enumspb.TIMEOUT_TYPE_START_TO_CLOSE, failure.GetTimeoutFailureInfo().GetTimeoutType())

	roundTripped := convertFailureToError(failure, dc)
	var gotTimeoutErr *TimeoutError
	require.True(t, errors.As(roundTripped, &gotTimeoutErr))
	require.Equal(t, enumspb.TIMEOUT_TYPE_START_TO_CLOSE, gotTimeoutErr.TimeoutType())

	var gotDetails testStruct
	require.NoError(t, gotTimeoutErr.LastHeartbeatDetails(&gotDetails))
	require.Equal(t, testErrorDetails3, gotDetails)
}

func Test_HeartbeatTimeoutError(t *testing.T) {
	timeoutErr := NewHeartbeatTimeoutError(testErrorDetails1)
	require.Equal(t, enumspb.TIMEOUT_TYPE_HEARTBEAT, timeoutErr.TimeoutType())
	var got string
	require.NoError(t, timeoutErr.LastHeartbeatDetails(&got))
	require.Equal(t, testErrorDetails1, got)
}

func Test_CanceledError(t *testing.T) {
	dc := getDefaultDataConverter()
	canceledErr := NewCanceledError(testErrorDetails1, testErrorDetails2)
	require.True(t, canceledErr.HasDetails())

	failure := convertErrorToFailure(canceledErr, dc)
	require.NotNil(t, failure.GetCanceledFailureInfo())

	roundTripped := convertFailureToError(failure, dc)
	var gotCanceledErr *CanceledError
	require.True(t, errors.As(roundTripped, &gotCanceledErr))

	var d1 string
	var d2 int
	require.NoError(t, gotCanceledErr.Details(&d1, &d2))
	require.Equal(t, testErrorDetails1, d1)
	require.Equal(t, testErrorDetails2, d2)
}

func Test_IsCanceledError(t *testing.T) {
	require.True(t, IsCanceledError(NewCanceledError()))
	require.False(t, IsCanceledError(errors.New("not a cancellation")))
	require.False(t, IsCanceledError(nil))
}

func Test_PanicError(t *testing.T) {
	dc := getDefaultDataConverter()
	panicErr := newPanicError("something went wrong", "stack trace line 1\nstack trace line 2")
	require.Contains(t, panicErr.Error(), "something went wrong")
	require.Contains(t, panicErr.StackTrace(), "stack trace line 1")

	failure := convertErrorToFailure(panicErr, dc)
	require.Equal(t, "stack trace line 1\nstack trace line 2", failure.GetStackTrace())

	roundTripped := convertFailureToError(failure, dc)
	var gotPanicErr *PanicError
	require.True(t, errors.As(roundTripped, &gotPanicErr))
	require.Contains(t, gotPanicErr.Error(), "something went wrong")
}

func Test_ServerError(t *testing.T) {
	err := NewServerError("server exploded", true, nil)
	require.Equal(t, "server exploded", err.Error())
}

func Test_IsRetryable(t *testing.T) {
	require.True(t, IsRetryable(errors.New("transient"), nil))
	require.False(t, IsRetryable(NewApplicationError("m", true, nil), nil))
	require.True(t, IsRetryable(NewApplicationError("m", false, nil), nil))
	require.False(t, IsRetryable(NewTimeoutError(enumspb.TIMEOUT_TYPE_SCHEDULE_TO_START, nil), nil))
	require.True(t, IsRetryable(NewTimeoutError(enumspb.TIMEOUT_TYPE_START_TO_CLOSE, nil), nil))
	require.False(t, IsRetryable(NewApplicationError("m", false, nil), []string{"ApplicationError"}))
}

func Test_ContinueAsNewError(t *testing.T) {
	err := NewContinueAsNewError("continueAsNewWorkflow", "arg1", 2)
	require.Equal(t, "continueAsNewWorkflow", err.WorkflowType())
	require.Equal(t, []interface{}{"arg1", 2}, err.Args())
	require.Equal(t, "ContinueAsNew", err.Error())
}

func Test_ActivityError_Unwrap(t *testing.T) {
	cause := NewApplicationError("activity failed", false, nil)
	activityErr := NewActivityError(1, 2, "identity", nil, "activityID", enumspb.RETRY_STATUS_IN_PROGRESS, cause)
	require.Same(t, cause, errors.Unwrap(activityErr))
}

func Test_ChildWorkflowExecutionError_Unwrap(t *testing.T) {
	cause := NewApplicationError("child workflow failed", false, nil)
	childErr := NewChildWorkflowExecutionError("ns", "wid", "rid", "wftype", 1, 2, enumspb.RETRY_STATUS_IN_PROGRESS, cause)
	require.Same(t, cause, errors.Unwrap(childErr))
}

func Test_WorkflowExecutionError_Unwrap(t *testing.T) {
	cause := NewApplicationError("workflow failed", false, nil)
	wfErr := NewWorkflowExecutionError("wid", "rid", "wftype", cause)
	require.Same(t, cause, errors.Unwrap(wfErr))
	require.Contains(t, wfErr.Error(), "wid")
}
