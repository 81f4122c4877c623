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

	commandpb "go.temporal.io/api/command/v1"
	enumspb "go.temporal.io/api/enums/v1"

	"github.com/stretchr/testify/require"
)

// Test_Timer_FireLifecycle walks a timer from creation through a server-observed fire,
// exercising the CREATED -> COMMAND_SENT -> INITIATED -> COMPLETED path and the transition
// audit log that replaces the old free-text history.
func Test_Timer_FireLifecycle(t *testing.T) {
	h := newCommandBookkeeper()
	m := h.startTimer(&commandpb.StartTimerCommandAttributes{TimerId: "timer-1"})
	require.Equal(t, commandStateCreated, m.getState())

	cmd := m.getCommand()
	require.NotNil(t, cmd)
	require.Equal(t, enumspb.COMMAND_TYPE_START_TIMER, cmd.GetCommandType())

	m.handleCommandSent()
	require.Equal(t, commandStateCommandSent, m.getState())

	h.handleTimerStarted("timer-1")
	require.Equal(t, commandStateInitiated, m.getState())

	fired := h.handleTimerFired("timer-1")
	require.Equal(t, commandStateCompleted, fired.getState())
	require.True(t, fired.isDone())

	base := fired.(*timerCommandStateMachine).commandStateMachineBase
	require.Len(t, base.transitions, 3)
	require.Equal(t, commandStateCreated, base.transitions[0].from)
	require.Equal(t, commandStateCommandSent, base.transitions[0].to)
	require.Equal(t, commandStateCompleted, base.transitions[2].to)
}

// Test_Timer_CancelBeforeFire exercises a cancellation issued and acknowledged before the
// fire event ever arrives.
func Test_Timer_CancelBeforeFire(t *testing.T) {
	h := newCommandBookkeeper()
	m := h.startTimer(&commandpb.StartTimerCommandAttributes{TimerId: "timer-2"})
	m.handleCommandSent()
	h.handleTimerStarted("timer-2")
	require.Equal(t, commandStateInitiated, m.getState())

	cancelM := h.cancelTimer("timer-2")
	require.Equal(t, commandStateCanceledAfterInitiated, cancelM.getState())

	cmd := cancelM.getCommand()
	require.NotNil(t, cmd)
	require.Equal(t, enumspb.COMMAND_TYPE_CANCEL_TIMER, cmd.GetCommandType())

	cancelM.handleCommandSent()
	require.Equal(t, commandStateCancellationCommandSent, cancelM.getState())

	h.handleTimerCanceled("timer-2")
	require.Equal(t, commandStateCompleted, cancelM.getState())
}

// Test_Signal_DispatchLifecycle walks a signal-external command through server acknowledgement
// and completion, confirming naiveCommandStateMachine's completesOnSend=false path (the one
// Signal and CancelExternal share) still takes the full CREATED -> COMMAND_SENT -> INITIATED ->
// COMPLETED route rather than completing immediately on send.
func Test_Signal_DispatchLifecycle(t *testing.T) {
	h := newCommandBookkeeper()
	m := h.signalExternalWorkflowExecution("ns", "wf-1", "run-1", "my-signal", nil, "signal-1", false)
	require.Equal(t, commandStateCreated, m.getState())

	cmd := m.getCommand()
	require.NotNil(t, cmd)
	require.Equal(t, enumspb.COMMAND_TYPE_SIGNAL_EXTERNAL_WORKFLOW_EXECUTION, cmd.GetCommandType())

	m.handleCommandSent()
	require.Equal(t, commandStateCommandSent, m.getState(), "signal must not complete on send")

	h.handleSignalExternalWorkflowExecutionInitiated(42, "signal-1")
	require.Equal(t, commandStateInitiated, m.getState())

	completed := h.handleSignalExternalWorkflowExecutionCompleted(42)
	require.Equal(t, commandStateCompleted, completed.getState())
}

// Test_Signal_CancelBeforeInitiated exercises the race where a workflow cancels a signal
// before the server has acknowledged it: the later Initiated event must be a no-op rather than
// an illegal-transition panic.
func Test_Signal_CancelBeforeInitiated(t *testing.T) {
	h := newCommandBookkeeper()
	m := h.signalExternalWorkflowExecution("ns", "wf-1", "run-1", "my-signal", nil, "signal-2", false)
	m.handleCommandSent()
	require.Equal(t, commandStateCommandSent, m.getState())

	h.cancelSignalExternalWorkflowExecution("signal-2")
	require.Equal(t, commandStateCanceledBeforeInitiated, m.getState())
	require.True(t, m.(*signalCommandStateMachine).canceled)

	require.NotPanics(t, func() {
		h.handleSignalExternalWorkflowExecutionInitiated(7, "signal-2")
	})
	require.Equal(t, commandStateCanceledBeforeInitiated, m.getState(),
		"a late Initiated event must not move an already-canceled signal")
}

// Test_Marker_CompletesOnSend confirms the completesOnSend=true branch: a marker (and,
// identically, an UpsertSearchAttributes command) transitions straight to COMPLETED the
// instant it is sent, with no further history event expected to drive it.
func Test_Marker_CompletesOnSend(t *testing.T) {
	h := newCommandBookkeeper()
	m := h.recordMarker("marker-1", "Version", nil)
	require.Equal(t, commandStateCreated, m.getState())

	m.handleCommandSent()
	require.Equal(t, commandStateCompleted, m.getState())
	require.True(t, m.isDone())
}

// Test_CommandTransition_ObservedEvent confirms an observed, non-transitioning event (a
// started event received while a command sits in INITIATED) records from == to rather than
// being silently dropped from the audit trail.
func Test_CommandTransition_ObservedEvent(t *testing.T) {
	h := newCommandBookkeeper()
	m := h.scheduleActivityTask(1, &commandpb.ScheduleActivityTaskCommandAttributes{ActivityId: "act-1"})
	m.handleCommandSent()
	h.handleActivityTaskScheduled(1, "act-1")
	require.Equal(t, commandStateInitiated, m.getState())

	m.handleStartedEvent()
	require.Equal(t, commandStateInitiated, m.getState(), "a started event must not move an activity out of INITIATED")

	base := m.(*activityCommandStateMachine).commandStateMachineBase
	last := base.transitions[len(base.transitions)-1]
	require.Equal(t, eventStarted, last.trigger)
	require.Equal(t, last.from, last.to)
}

func Test_CommandTransition_String(t *testing.T) {
	moved := commandTransition{trigger: eventCommandSent, from: commandStateCreated, to: commandStateCommandSent}
	require.Contains(t, moved.String(), "->")

	observed := commandTransition{trigger: eventStarted, from: commandStateInitiated, to: commandStateInitiated}
	require.Contains(t, observed.String(), "observed in")
}
