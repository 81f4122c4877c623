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
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"

	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
)

// fakeWorkflowProgram is a bare-bones WorkflowExecutionEventHandler stub: every test in this
// file only needs the executor's own bookkeeping (dispatchEvent, the local-activity sink,
// Close), not the program's cooperative dispatcher.
type fakeWorkflowProgram struct {
	closed bool
}

func (f *fakeWorkflowProgram) ProcessEvent(event *historypb.HistoryEvent, isReplay bool, isLast bool) error {
	return nil
}
func (f *fakeWorkflowProgram) Eval() (bool, error)    { return false, nil }
func (f *fakeWorkflowProgram) StackTrace() string     { return "" }
func (f *fakeWorkflowProgram) Cancel()                {}
func (f *fakeWorkflowProgram) Close()                 { f.closed = true }
func (f *fakeWorkflowProgram) GetNextWakeUpTime() int64 { return 0 }
func (f *fakeWorkflowProgram) QueryWorkflow(queryType string, queryArgs *commonpb.Payloads) (*commonpb.Payloads, error) {
	return nil, nil
}
func (f *fakeWorkflowProgram) GetOutput() *commonpb.Payloads { return nil }
func (f *fakeWorkflowProgram) GetFailure() error             { return nil }
func (f *fakeWorkflowProgram) GetWorkflowImplementationOptions() WorkflowImplementationOptions {
	return WorkflowImplementationOptions{}
}
func (f *fakeWorkflowProgram) CollectPendingLocalActivities() []*localActivityTask { return nil }
func (f *fakeWorkflowProgram) ResolveLocalActivity(result *localActivityResult)    {}

func newTestReplayExecutor() (*ReplayExecutor, *fakeWorkflowProgram) {
	program := &fakeWorkflowProgram{}
	e := NewReplayExecutor(
		"test-namespace",
		&commonpb.WorkflowExecution{WorkflowId: "wf-1", RunId: "run-1"},
		nil,
		zap.NewNop(),
		tally.NoopScope,
		program,
	)
	e.laRunner = newLocalActivityRunner(zap.NewNop(), tally.NoopScope, time.Second, false, nil)
	return e, program
}

func localActivityMarkerEvent(t *testing.T, activityID string) *historypb.HistoryEvent {
	t.Helper()
	idPayload, err := encodeArgs(getDefaultDataConverter(), []interface{}{activityID})
	require.NoError(t, err)
	return &historypb.HistoryEvent{
		EventType: enumspb.EVENT_TYPE_MARKER_RECORDED,
		Attributes: &historypb.HistoryEvent_MarkerRecordedEventAttributes{
			MarkerRecordedEventAttributes: &historypb.MarkerRecordedEventAttributes{
				MarkerName: localActivityMarkerName,
				Details: map[string]*commonpb.Payloads{
					"activityId": idPayload,
				},
			},
		},
	}
}

// Test_ReplayExecutor_LocalActivityCompletionSink_StagesMarker is the regression test for the
// previously-missing public operation: an out-of-band dispatcher delivering a local-activity
// completion through the sink must stage it into the runner exactly as a replayed marker would.
func Test_ReplayExecutor_LocalActivityCompletionSink_StagesMarker(t *testing.T) {
	e, _ := newTestReplayExecutor()
	sink := e.GetLocalActivityCompletionSink()

	sink(localActivityMarkerEvent(t, "act-async-1"))

	e.mu.Lock()
	_, ok := e.laRunner.recordedResults["act-async-1"]
	e.mu.Unlock()
	require.True(t, ok, "sink must stage the local activity result for the runner to resolve")
}

// Test_ReplayExecutor_LocalActivityCompletionSink_NoopAfterClose confirms the sink stops
// mutating executor state once the run is known to be terminal.
func Test_ReplayExecutor_LocalActivityCompletionSink_NoopAfterClose(t *testing.T) {
	e, program := newTestReplayExecutor()
	sink := e.GetLocalActivityCompletionSink()
	e.Close()
	require.True(t, program.closed)

	sink(localActivityMarkerEvent(t, "act-async-2"))

	e.mu.Lock()
	_, ok := e.laRunner.recordedResults["act-async-2"]
	e.mu.Unlock()
	require.False(t, ok, "a closed executor's sink must not stage further results")
}

// Test_ReplayExecutor_DispatchEvent_IgnoresNonLocalActivityMarker confirms only the
// LocalActivity marker kind reaches stageReplayedLocalActivityMarker: Version/SideEffect
// markers are read directly by the program's own primitives and must not appear in
// recordedResults.
func Test_ReplayExecutor_DispatchEvent_IgnoresNonLocalActivityMarker(t *testing.T) {
	e, _ := newTestReplayExecutor()
	event := &historypb.HistoryEvent{
		EventType: enumspb.EVENT_TYPE_MARKER_RECORDED,
		Attributes: &historypb.HistoryEvent_MarkerRecordedEventAttributes{
			MarkerRecordedEventAttributes: &historypb.MarkerRecordedEventAttributes{
				MarkerName: versionMarkerName,
			},
		},
	}
	require.NoError(t, e.dispatchEvent(event, false))
	require.Empty(t, e.laRunner.recordedResults)
}
