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
	"container/list"
	"fmt"

	commandpb "go.temporal.io/api/command/v1"
	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
)

type (
	// commandBookkeeper (the "CommandHelper" of §4.4) owns the ordered set of live command
	// state machines, routes server-originated history events to them, and produces the
	// outbound command list in stable, insertion order.
	commandBookkeeper struct {
		orderedCommands *list.List
		commands        map[commandID]*list.Element

		scheduledEventIDToActivityID     map[int64]string
		scheduledEventIDToCancellationID map[int64]string
		scheduledEventIDToSignalID       map[int64]string

		lastStartedEventID int64
	}
)

func newCommandBookkeeper() *commandBookkeeper {
	return &commandBookkeeper{
		orderedCommands: list.New(),
		commands:        make(map[commandID]*list.Element),

		scheduledEventIDToActivityID:     make(map[int64]string),
		scheduledEventIDToCancellationID: make(map[int64]string),
		scheduledEventIDToSignalID:       make(map[int64]string),
	}
}

// ---- construction ----

func (h *commandBookkeeper) newActivityStateMachine(id string, attributes *commandpb.ScheduleActivityTaskCommandAttributes) *activityCommandStateMachine {
	return &activityCommandStateMachine{
		commandStateMachineBase: newCommandStateMachineBase(h, commandTargetActivity, id),
		attributes:              attributes,
	}
}

func (h *commandBookkeeper) newTimerStateMachine(id string, attributes *commandpb.StartTimerCommandAttributes) *timerCommandStateMachine {
	return &timerCommandStateMachine{
		commandStateMachineBase: newCommandStateMachineBase(h, commandTargetTimer, id),
		attributes:              attributes,
	}
}

func (h *commandBookkeeper) newChildWorkflowStateMachine(id string, attributes *commandpb.StartChildWorkflowExecutionCommandAttributes) *childWorkflowCommandStateMachine {
	return &childWorkflowCommandStateMachine{
		commandStateMachineBase: newCommandStateMachineBase(h, commandTargetChildWorkflow, id),
		attributes:              attributes,
	}
}

func (h *commandBookkeeper) newNaiveStateMachine(kind commandTargetKind, id string, command *commandpb.Command, completesOnSend bool) *naiveCommandStateMachine {
	return &naiveCommandStateMachine{
		commandStateMachineBase: newCommandStateMachineBase(h, kind, id),
		command:                 command,
		completesOnSend:         completesOnSend,
	}
}

func (h *commandBookkeeper) addCommand(m commandStateMachine) {
	if _, ok := h.commands[m.getID()]; ok {
		panicIllegalState(fmt.Sprintf("adding duplicate command %v", m))
	}
	elem := h.orderedCommands.PushBack(m)
	h.commands[m.getID()] = elem
}

// lookup finds the machine for id. It leaves the insertion order unchanged, so a machine's
// command is still emitted in the position its creation gave it.
func (h *commandBookkeeper) lookup(id commandID) commandStateMachine {
	elem, ok := h.commands[id]
	if !ok {
		panicIllegalState(fmt.Sprintf(
			"unknown command %v, possible causes are non-deterministic workflow code or an"+
				" incompatible change to the workflow definition", id))
	}
	return elem.Value.(commandStateMachine)
}

func (h *commandBookkeeper) forgetCompleted(id commandID) {
	if elem, ok := h.commands[id]; ok {
		h.orderedCommands.Remove(elem)
		delete(h.commands, id)
	}
}

// ---- Activity ----

func (h *commandBookkeeper) scheduleActivityTask(scheduledEventID int64, attributes *commandpb.ScheduleActivityTaskCommandAttributes) commandStateMachine {
	h.scheduledEventIDToActivityID[scheduledEventID] = attributes.GetActivityId()
	m := h.newActivityStateMachine(attributes.GetActivityId(), attributes)
	m.scheduledEventID = scheduledEventID
	h.addCommand(m)
	return m
}

func (h *commandBookkeeper) requestCancelActivityTask(activityID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetActivity, activityID))
	m.cancel()
	return m
}

func (h *commandBookkeeper) handleActivityTaskScheduled(scheduledEventID int64, activityID string) {
	if _, ok := h.scheduledEventIDToActivityID[scheduledEventID]; !ok {
		panicIllegalState(fmt.Sprintf(
			"lookup failed for scheduledEventID to activityID: scheduledEventID: %v, activityID: %v",
			scheduledEventID, activityID))
	}
	h.lookup(makeCommandID(commandTargetActivity, activityID)).handleInitiatedEvent()
}

func (h *commandBookkeeper) handleActivityTaskCancelRequested(scheduledEventID int64) {
	activityID, ok := h.scheduledEventIDToActivityID[scheduledEventID]
	if !ok {
		panicIllegalState(fmt.Sprintf("unable to find activity ID for scheduledEventID %v", scheduledEventID))
	}
	h.lookup(makeCommandID(commandTargetActivity, activityID)).handleCancelInitiatedEvent()
}

func (h *commandBookkeeper) handleActivityTaskClosed(activityID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetActivity, activityID))
	m.handleCompletionEvent()
	return m
}

func (h *commandBookkeeper) handleActivityTaskCanceled(activityID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetActivity, activityID))
	m.handleCanceledEvent()
	return m
}

// ---- Timer ----

func (h *commandBookkeeper) startTimer(attributes *commandpb.StartTimerCommandAttributes) commandStateMachine {
	m := h.newTimerStateMachine(attributes.GetTimerId(), attributes)
	h.addCommand(m)
	return m
}

func (h *commandBookkeeper) cancelTimer(timerID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetTimer, timerID))
	m.cancel()
	return m
}

func (h *commandBookkeeper) handleTimerStarted(timerID string) {
	h.lookup(makeCommandID(commandTargetTimer, timerID)).handleInitiatedEvent()
}

func (h *commandBookkeeper) handleTimerFired(timerID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetTimer, timerID))
	m.handleCompletionEvent()
	return m
}

func (h *commandBookkeeper) handleTimerCanceled(timerID string) {
	h.lookup(makeCommandID(commandTargetTimer, timerID)).handleCanceledEvent()
}

func (h *commandBookkeeper) handleCancelTimerFailed(timerID string) {
	h.lookup(makeCommandID(commandTargetTimer, timerID)).handleCancelFailedEvent()
}

// ---- ChildWorkflow ----

func (h *commandBookkeeper) startChildWorkflowExecution(attributes *commandpb.StartChildWorkflowExecutionCommandAttributes) commandStateMachine {
	m := h.newChildWorkflowStateMachine(attributes.GetWorkflowId(), attributes)
	h.addCommand(m)
	return m
}

func (h *commandBookkeeper) handleStartChildWorkflowExecutionInitiated(workflowID string) {
	h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID)).handleInitiatedEvent()
}

func (h *commandBookkeeper) handleStartChildWorkflowExecutionFailed(workflowID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
	m.handleInitiationFailedEvent()
	return m
}

func (h *commandBookkeeper) handleChildWorkflowExecutionStarted(workflowID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
	m.handleStartedEvent()
	return m
}

func (h *commandBookkeeper) handleChildWorkflowExecutionClosed(workflowID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
	m.handleCompletionEvent()
	return m
}

func (h *commandBookkeeper) handleChildWorkflowExecutionCanceled(workflowID string) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
	m.handleCanceledEvent()
	return m
}

// ---- Cancel external (and the child-workflow-only cancel path it shares with ChildWorkflow) ----

func (h *commandBookkeeper) requestCancelExternalWorkflowExecution(namespace, workflowID, runID, cancellationID string, childWorkflowOnly bool) commandStateMachine {
	if childWorkflowOnly {
		if len(cancellationID) != 0 {
			panic("cancellation of a child workflow must not carry a cancellation ID")
		}
		m := h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
		m.cancel()
		return m
	}
	if len(cancellationID) == 0 {
		panic("cancellation of an external workflow must carry a cancellation ID")
	}
	attributes := &commandpb.RequestCancelExternalWorkflowExecutionCommandAttributes{
		Namespace:         namespace,
		WorkflowId:        workflowID,
		RunId:             runID,
		Control:           cancellationID,
		ChildWorkflowOnly: false,
	}
	cmd := createNewCommand(enumspb.COMMAND_TYPE_REQUEST_CANCEL_EXTERNAL_WORKFLOW_EXECUTION)
	cmd.Attributes = &commandpb.Command_RequestCancelExternalWorkflowExecutionCommandAttributes{
		RequestCancelExternalWorkflowExecutionCommandAttributes: attributes,
	}
	m := &cancelExternalCommandStateMachine{naiveCommandStateMachine: h.newNaiveStateMachine(commandTargetCancelExternal, cancellationID, cmd, false)}
	h.addCommand(m)
	return m
}

func (h *commandBookkeeper) isCancelForChildWorkflow(cancellationID string) bool {
	// Control is empty on RequestCancelExternalWorkflowExecutionInitiated when the target is a
	// child workflow; cancellation of a true external workflow always carries a client-chosen
	// cancellation ID in Control.
	return len(cancellationID) == 0
}

func (h *commandBookkeeper) handleRequestCancelExternalWorkflowExecutionInitiated(initiatedEventID int64, workflowID, cancellationID string) {
	if h.isCancelForChildWorkflow(cancellationID) {
		h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID)).handleCancelInitiatedEvent()
		return
	}
	h.scheduledEventIDToCancellationID[initiatedEventID] = cancellationID
	h.lookup(makeCommandID(commandTargetCancelExternal, cancellationID)).handleInitiatedEvent()
}

func (h *commandBookkeeper) handleExternalWorkflowExecutionCancelRequested(initiatedEventID int64, workflowID string) commandStateMachine {
	cancellationID, isExternal := h.scheduledEventIDToCancellationID[initiatedEventID]
	if !isExternal {
		// Child workflow cancellation: no state change here, the child machine advances via
		// its own completion events.
		return h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
	}
	m := h.lookup(makeCommandID(commandTargetCancelExternal, cancellationID))
	m.handleCompletionEvent()
	return m
}

func (h *commandBookkeeper) handleRequestCancelExternalWorkflowExecutionFailed(initiatedEventID int64, workflowID string) commandStateMachine {
	cancellationID, isExternal := h.scheduledEventIDToCancellationID[initiatedEventID]
	if !isExternal {
		m := h.lookup(makeCommandID(commandTargetChildWorkflow, workflowID))
		m.handleCancelFailedEvent()
		return m
	}
	m := h.lookup(makeCommandID(commandTargetCancelExternal, cancellationID))
	m.handleCompletionEvent()
	return m
}

// ---- Signal ----

func (h *commandBookkeeper) signalExternalWorkflowExecution(namespace, workflowID, runID, signalName string, input *commonpb.Payloads, signalID string, childWorkflowOnly bool) commandStateMachine {
	attributes := &commandpb.SignalExternalWorkflowExecutionCommandAttributes{
		Namespace:         namespace,
		Execution:         &commonpb.WorkflowExecution{WorkflowId: workflowID, RunId: runID},
		SignalName:        signalName,
		Input:             input,
		Control:           signalID,
		ChildWorkflowOnly: childWorkflowOnly,
	}
	cmd := createNewCommand(enumspb.COMMAND_TYPE_SIGNAL_EXTERNAL_WORKFLOW_EXECUTION)
	cmd.Attributes = &commandpb.Command_SignalExternalWorkflowExecutionCommandAttributes{
		SignalExternalWorkflowExecutionCommandAttributes: attributes,
	}
	m := &signalCommandStateMachine{naiveCommandStateMachine: h.newNaiveStateMachine(commandTargetSignal, signalID, cmd, false)}
	h.addCommand(m)
	return m
}

func (h *commandBookkeeper) cancelSignalExternalWorkflowExecution(signalID string) {
	h.lookup(makeCommandID(commandTargetSignal, signalID)).cancel()
}

func (h *commandBookkeeper) handleSignalExternalWorkflowExecutionInitiated(initiatedEventID int64, signalID string) {
	h.scheduledEventIDToSignalID[initiatedEventID] = signalID
	h.lookup(makeCommandID(commandTargetSignal, signalID)).handleInitiatedEvent()
}

func (h *commandBookkeeper) getSignalID(initiatedEventID int64) string {
	signalID, ok := h.scheduledEventIDToSignalID[initiatedEventID]
	if !ok {
		panicIllegalState(fmt.Sprintf("unable to find signal ID for initiatedEventID %v", initiatedEventID))
	}
	return signalID
}

func (h *commandBookkeeper) handleSignalExternalWorkflowExecutionCompleted(initiatedEventID int64) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetSignal, h.getSignalID(initiatedEventID)))
	m.handleCompletionEvent()
	return m
}

func (h *commandBookkeeper) handleSignalExternalWorkflowExecutionFailed(initiatedEventID int64) commandStateMachine {
	m := h.lookup(makeCommandID(commandTargetSignal, h.getSignalID(initiatedEventID)))
	m.handleCompletionEvent()
	return m
}

// ---- Markers ----

func (h *commandBookkeeper) recordVersionMarker(changeID string, version Version, converter DataConverter) commandStateMachine {
	markerID := fmt.Sprintf("%v_%v", versionMarkerName, changeID)
	details, err := encodeArgs(converter, []interface{}{changeID, version})
	if err != nil {
		panic(err)
	}
	return h.recordMarker(markerID, versionMarkerName, details)
}

func (h *commandBookkeeper) recordSideEffectMarker(sideEffectID int64, data *commonpb.Payloads) commandStateMachine {
	markerID := fmt.Sprintf("%v_%v", sideEffectMarkerName, sideEffectID)
	return h.recordMarker(markerID, sideEffectMarkerName, data)
}

func (h *commandBookkeeper) recordLocalActivityMarker(activityID string, result *commonpb.Payloads) commandStateMachine {
	markerID := fmt.Sprintf("%v_%v", localActivityMarkerName, activityID)
	idPayload, err := encodeArgs(getDefaultDataConverter(), []interface{}{activityID})
	if err != nil {
		panic(err)
	}
	cmd := createNewCommand(enumspb.COMMAND_TYPE_RECORD_MARKER)
	cmd.Attributes = &commandpb.Command_RecordMarkerCommandAttributes{
		RecordMarkerCommandAttributes: &commandpb.RecordMarkerCommandAttributes{
			MarkerName: localActivityMarkerName,
			Details: map[string]*commonpb.Payloads{
				"data":       result,
				"activityId": idPayload,
			},
		},
	}
	m := &markerCommandStateMachine{naiveCommandStateMachine: h.newNaiveStateMachine(commandTargetMarker, markerID, cmd, true)}
	h.addCommand(m)
	return m
}

func (h *commandBookkeeper) recordMutableSideEffectMarker(mutableSideEffectID string, data *commonpb.Payloads) commandStateMachine {
	markerID := fmt.Sprintf("%v_%v", mutableSideEffectMarkerName, mutableSideEffectID)
	return h.recordMarker(markerID, mutableSideEffectMarkerName, data)
}

func (h *commandBookkeeper) recordMarker(markerID, markerName string, details *commonpb.Payloads) commandStateMachine {
	cmd := createNewCommand(enumspb.COMMAND_TYPE_RECORD_MARKER)
	cmd.Attributes = &commandpb.Command_RecordMarkerCommandAttributes{
		RecordMarkerCommandAttributes: &commandpb.RecordMarkerCommandAttributes{
			MarkerName: markerName,
			Details:    map[string]*commonpb.Payloads{"data": details},
		},
	}
	m := &markerCommandStateMachine{naiveCommandStateMachine: h.newNaiveStateMachine(commandTargetMarker, markerID, cmd, true)}
	h.addCommand(m)
	return m
}

// ---- UpsertSearchAttributes ----

func (h *commandBookkeeper) upsertSearchAttributes(upsertID string, searchAttributes *commonpb.SearchAttributes) commandStateMachine {
	cmd := createNewCommand(enumspb.COMMAND_TYPE_UPSERT_WORKFLOW_SEARCH_ATTRIBUTES)
	cmd.Attributes = &commandpb.Command_UpsertWorkflowSearchAttributesCommandAttributes{
		UpsertWorkflowSearchAttributesCommandAttributes: &commandpb.UpsertWorkflowSearchAttributesCommandAttributes{
			SearchAttributes: searchAttributes,
		},
	}
	m := &upsertSearchAttributesCommandStateMachine{naiveCommandStateMachine: h.newNaiveStateMachine(commandTargetUpsertSearchAttributes, upsertID, cmd, true)}
	h.addCommand(m)
	return m
}

// ---- task-started bookkeeping & determinism check ----

// handleWorkflowTaskStartedEvent records the id of the WorkflowTaskStarted event for this
// batch. Called by the executor which has already enforced the previousStartedEventID
// consistency invariant from §4.4.
func (h *commandBookkeeper) handleWorkflowTaskStartedEvent(currentStartedEventID int64) {
	h.lastStartedEventID = currentStartedEventID
}

// ---- outbound command production ----

// getCommands walks the live machines in insertion order, collecting whichever concrete
// command each one wants to emit in its current state. When markAsSent is true (a live,
// decided batch) every CREATED machine flips to COMMAND_SENT as a side effect, matching the
// commit point where the executor hands these commands to the server.
func (h *commandBookkeeper) getCommands(markAsSent bool) []*commandpb.Command {
	var result []*commandpb.Command
	for curr := h.orderedCommands.Front(); curr != nil; {
		next := curr.Next() // Capture before a possible removal below.
		m := curr.Value.(commandStateMachine)
		if cmd := m.getCommand(); cmd != nil {
			result = append(result, cmd)
		}
		if markAsSent {
			m.handleCommandSent()
		}
		if m.getState() == commandStateCompleted {
			h.orderedCommands.Remove(curr)
			delete(h.commands, m.getID())
		}
		curr = next
	}
	return result
}

// notifyCommandSent is the history-boundary hook of §4.4: commands already emitted last task
// and now reflected in history are committed (CREATED -> COMMAND_SENT) without re-emitting
// them, since getCommands(true) already advanced machines created through that boundary.
func (h *commandBookkeeper) notifyCommandSent() {
	h.getCommands(true)
}
