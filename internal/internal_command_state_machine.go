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
	"fmt"

	commandpb "go.temporal.io/api/command/v1"
	enumspb "go.temporal.io/api/enums/v1"
)

type (
	commandState int32

	// commandStateMachine is the common protocol every command kind implements. Operations
	// undefined for a given (state, kind) pair must fail loudly via failStateTransition,
	// carrying the full audit history, rather than silently no-op.
	commandStateMachine interface {
		getState() commandState
		getID() commandID
		isDone() bool
		getCommand() *commandpb.Command // nil when nothing should be emitted in the current state
		cancel()

		handleStartedEvent()
		handleCancelInitiatedEvent()
		handleCanceledEvent()
		handleCancelFailedEvent()
		handleCompletionEvent()
		handleInitiationFailedEvent()
		handleInitiatedEvent()

		handleCommandSent()

		setData(data interface{})
		getData() interface{}
	}

	// commandTransition is one entry in a machine's audit trail: the trigger that fired and the
	// state it moved from/to. from == to records an observed event that did not itself move the
	// machine (e.g. an ActivityTaskStarted event, which a command stays INITIATED through).
	commandTransition struct {
		trigger string
		from    commandState
		to      commandState
	}

	commandStateMachineBase struct {
		id          commandID
		state       commandState
		transitions []commandTransition
		data        interface{}
		helper      *commandBookkeeper
	}

	activityCommandStateMachine struct {
		*commandStateMachineBase
		scheduledEventID int64
		attributes       *commandpb.ScheduleActivityTaskCommandAttributes
	}

	timerCommandStateMachine struct {
		*commandStateMachineBase
		attributes *commandpb.StartTimerCommandAttributes
		canceled   bool
	}

	childWorkflowCommandStateMachine struct {
		*commandStateMachineBase
		attributes *commandpb.StartChildWorkflowExecutionCommandAttributes
	}

	// naiveCommandStateMachine backs every single-shot kind: Signal, CancelExternal, Marker,
	// UpsertSearchAttributes. It carries the ready-made command to emit and panics on any
	// operation it does not define a kind-specific override for. completesOnSend distinguishes
	// the two shapes these kinds come in without a per-kind method override: Marker and
	// UpsertSearchAttributes transition CREATED -> COMPLETED the instant the command is sent
	// (completesOnSend = true), while Signal and CancelExternal still expect a server
	// acknowledgement and take the ordinary CREATED -> COMMAND_SENT -> INITIATED -> COMPLETED path
	// (completesOnSend = false).
	naiveCommandStateMachine struct {
		*commandStateMachineBase
		command         *commandpb.Command
		completesOnSend bool
	}

	cancelExternalCommandStateMachine struct {
		*naiveCommandStateMachine
	}

	signalCommandStateMachine struct {
		*naiveCommandStateMachine
		canceled bool
	}

	markerCommandStateMachine struct {
		*naiveCommandStateMachine
	}

	upsertSearchAttributesCommandStateMachine struct {
		*naiveCommandStateMachine
	}

	// stateMachineIllegalStatePanic is raised for any undefined state transition: a
	// non-deterministic workflow, corrupt history, or a programmer error in the executor
	// itself. When raised through failStateTransition its message carries the full per-machine
	// audit log; a failure found by the bookkeeper or the replay clock carries only its own message.
	stateMachineIllegalStatePanic struct {
		message string
	}
)

const (
	commandStateCreated                    commandState = 0
	commandStateCommandSent                commandState = 1
	commandStateCanceledBeforeInitiated    commandState = 2
	commandStateInitiated                  commandState = 3
	commandStateStarted                    commandState = 4
	commandStateCanceledAfterInitiated     commandState = 5
	commandStateCanceledAfterStarted       commandState = 6
	commandStateCancellationCommandSent    commandState = 7
	commandStateCompletedAfterCancelSent   commandState = 8
	commandStateCompleted                  commandState = 9
)

const (
	eventCancel           = "cancel"
	eventCommandSent      = "handleCommandSent"
	eventInitiated        = "handleInitiatedEvent"
	eventInitiationFailed = "handleInitiationFailedEvent"
	eventStarted          = "handleStartedEvent"
	eventCompletion       = "handleCompletionEvent"
	eventCancelInitiated  = "handleCancelInitiatedEvent"
	eventCancelFailed     = "handleCancelFailedEvent"
	eventCanceled         = "handleCanceledEvent"
)

const (
	sideEffectMarkerName        = "SideEffect"
	versionMarkerName           = "Version"
	localActivityMarkerName     = "LocalActivity"
	mutableSideEffectMarkerName = "MutableSideEffect"
)

func (t commandTransition) String() string {
	if t.from == t.to {
		return fmt.Sprintf("%s(observed in %v)", t.trigger, t.from)
	}
	return fmt.Sprintf("%s(%v->%v)", t.trigger, t.from, t.to)
}

func (s commandState) String() string {
	switch s {
	case commandStateCreated:
		return "Created"
	case commandStateCommandSent:
		return "CommandSent"
	case commandStateCanceledBeforeInitiated:
		return "CanceledBeforeInitiated"
	case commandStateInitiated:
		return "Initiated"
	case commandStateStarted:
		return "Started"
	case commandStateCanceledAfterInitiated:
		return "CanceledAfterInitiated"
	case commandStateCanceledAfterStarted:
		return "CanceledAfterStarted"
	case commandStateCancellationCommandSent:
		return "CancellationCommandSent"
	case commandStateCompletedAfterCancelSent:
		return "CompletedAfterCancellationCommandSent"
	case commandStateCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

func createNewCommand(commandType enumspb.CommandType) *commandpb.Command {
	return &commandpb.Command{CommandType: commandType}
}

func newCommandStateMachineBase(helper *commandBookkeeper, kind commandTargetKind, id string) *commandStateMachineBase {
	return &commandStateMachineBase{
		id:     makeCommandID(kind, id),
		state:  commandStateCreated,
		helper: helper,
	}
}

func (d *commandStateMachineBase) getState() commandState { return d.state }
func (d *commandStateMachineBase) getID() commandID       { return d.id }

func (d *commandStateMachineBase) isDone() bool {
	return d.state == commandStateCompleted || d.state == commandStateCompletedAfterCancelSent
}

func (d *commandStateMachineBase) setData(data interface{}) { d.data = data }
func (d *commandStateMachineBase) getData() interface{}     { return d.data }

func (d *commandStateMachineBase) moveState(newState commandState, trigger string) {
	d.transitions = append(d.transitions, commandTransition{trigger: trigger, from: d.state, to: newState})
	d.state = newState

	if newState == commandStateCompleted {
		d.helper.forgetCompleted(d.getID())
	}
}

// observe appends a transition whose from and to are both the current state: a history event was
// applied but it did not move the machine (handleStartedEvent in the base case, and
// handleCancelInitiatedEvent before its own state check runs).
func (d *commandStateMachineBase) observe(trigger string) {
	d.transitions = append(d.transitions, commandTransition{trigger: trigger, from: d.state, to: d.state})
}

func (d stateMachineIllegalStatePanic) String() string { return d.message }

func panicIllegalState(message string) {
	panic(stateMachineIllegalStatePanic{message: message})
}

func (d *commandStateMachineBase) failStateTransition(event string) {
	panicIllegalState(fmt.Sprintf("invalid state transition: attempt to %v, %v", event, d))
}

func (d *commandStateMachineBase) handleCommandSent() {
	if d.state == commandStateCreated {
		d.moveState(commandStateCommandSent, eventCommandSent)
	}
}

func (d *commandStateMachineBase) cancel() {
	switch d.state {
	case commandStateCompleted, commandStateCompletedAfterCancelSent:
		// No-op: legitimate to cancel a context after the timer/activity already completed.
	case commandStateCreated:
		d.moveState(commandStateCompleted, eventCancel)
	case commandStateCommandSent:
		d.moveState(commandStateCanceledBeforeInitiated, eventCancel)
	case commandStateInitiated:
		d.moveState(commandStateCanceledAfterInitiated, eventCancel)
	default:
		d.failStateTransition(eventCancel)
	}
}

func (d *commandStateMachineBase) handleInitiatedEvent() {
	switch d.state {
	case commandStateCommandSent:
		d.moveState(commandStateInitiated, eventInitiated)
	case commandStateCanceledBeforeInitiated:
		d.moveState(commandStateCanceledAfterInitiated, eventInitiated)
	default:
		d.failStateTransition(eventInitiated)
	}
}

func (d *commandStateMachineBase) handleInitiationFailedEvent() {
	switch d.state {
	case commandStateInitiated, commandStateCommandSent, commandStateCanceledBeforeInitiated:
		d.moveState(commandStateCompleted, eventInitiationFailed)
	default:
		d.failStateTransition(eventInitiationFailed)
	}
}

func (d *commandStateMachineBase) handleStartedEvent() {
	d.observe(eventStarted)
}

func (d *commandStateMachineBase) handleCompletionEvent() {
	switch d.state {
	case commandStateCanceledAfterInitiated, commandStateInitiated:
		d.moveState(commandStateCompleted, eventCompletion)
	case commandStateCancellationCommandSent:
		d.moveState(commandStateCompletedAfterCancelSent, eventCompletion)
	default:
		d.failStateTransition(eventCompletion)
	}
}

func (d *commandStateMachineBase) handleCancelInitiatedEvent() {
	d.observe(eventCancelInitiated)
	switch d.state {
	case commandStateCancellationCommandSent:
		// No state change.
	default:
		d.failStateTransition(eventCancelInitiated)
	}
}

func (d *commandStateMachineBase) handleCancelFailedEvent() {
	switch d.state {
	case commandStateCompletedAfterCancelSent:
		d.moveState(commandStateCompleted, eventCancelFailed)
	default:
		d.failStateTransition(eventCancelFailed)
	}
}

func (d *commandStateMachineBase) handleCanceledEvent() {
	switch d.state {
	case commandStateCancellationCommandSent:
		d.moveState(commandStateCompleted, eventCanceled)
	default:
		d.failStateTransition(eventCanceled)
	}
}

func (d *commandStateMachineBase) String() string {
	return fmt.Sprintf("%v, state=%v, isDone()=%v, transitions=%v", d.id, d.state, d.isDone(), d.transitions)
}

// ---- Activity ----

func (d *activityCommandStateMachine) getCommand() *commandpb.Command {
	switch d.state {
	case commandStateCreated:
		cmd := createNewCommand(enumspb.COMMAND_TYPE_SCHEDULE_ACTIVITY_TASK)
		cmd.Attributes = &commandpb.Command_ScheduleActivityTaskCommandAttributes{
			ScheduleActivityTaskCommandAttributes: d.attributes,
		}
		return cmd
	case commandStateCanceledAfterInitiated:
		cmd := createNewCommand(enumspb.COMMAND_TYPE_REQUEST_CANCEL_ACTIVITY_TASK)
		cmd.Attributes = &commandpb.Command_RequestCancelActivityTaskCommandAttributes{
			RequestCancelActivityTaskCommandAttributes: &commandpb.RequestCancelActivityTaskCommandAttributes{
				ScheduledEventId: d.scheduledEventID,
			},
		}
		return cmd
	default:
		return nil
	}
}

func (d *activityCommandStateMachine) handleCommandSent() {
	switch d.state {
	case commandStateCanceledAfterInitiated:
		d.moveState(commandStateCancellationCommandSent, eventCommandSent)
	default:
		d.commandStateMachineBase.handleCommandSent()
	}
}

func (d *activityCommandStateMachine) handleCancelFailedEvent() {
	// A request to cancel an activity always resolves into a completion/failure/timeout/
	// cancellation event for the activity itself; it cannot independently fail.
	d.failStateTransition(eventCancelFailed)
}

// ---- Timer ----

func (d *timerCommandStateMachine) cancel() {
	d.canceled = true
	d.commandStateMachineBase.cancel()
}

func (d *timerCommandStateMachine) isDone() bool {
	return d.state == commandStateCompleted || d.canceled
}

func (d *timerCommandStateMachine) handleCommandSent() {
	switch d.state {
	case commandStateCanceledAfterInitiated:
		d.moveState(commandStateCancellationCommandSent, eventCommandSent)
	default:
		d.commandStateMachineBase.handleCommandSent()
	}
}

func (d *timerCommandStateMachine) handleCancelFailedEvent() {
	switch d.state {
	case commandStateCancellationCommandSent:
		d.moveState(commandStateInitiated, eventCancelFailed)
	default:
		d.commandStateMachineBase.handleCancelFailedEvent()
	}
}

func (d *timerCommandStateMachine) getCommand() *commandpb.Command {
	switch d.state {
	case commandStateCreated:
		cmd := createNewCommand(enumspb.COMMAND_TYPE_START_TIMER)
		cmd.Attributes = &commandpb.Command_StartTimerCommandAttributes{StartTimerCommandAttributes: d.attributes}
		return cmd
	case commandStateCanceledAfterInitiated:
		cmd := createNewCommand(enumspb.COMMAND_TYPE_CANCEL_TIMER)
		cmd.Attributes = &commandpb.Command_CancelTimerCommandAttributes{
			CancelTimerCommandAttributes: &commandpb.CancelTimerCommandAttributes{TimerId: d.attributes.TimerId},
		}
		return cmd
	default:
		return nil
	}
}

// ---- ChildWorkflow ----

func (d *childWorkflowCommandStateMachine) getCommand() *commandpb.Command {
	switch d.state {
	case commandStateCreated:
		cmd := createNewCommand(enumspb.COMMAND_TYPE_START_CHILD_WORKFLOW_EXECUTION)
		cmd.Attributes = &commandpb.Command_StartChildWorkflowExecutionCommandAttributes{
			StartChildWorkflowExecutionCommandAttributes: d.attributes,
		}
		return cmd
	case commandStateCanceledAfterStarted:
		cmd := createNewCommand(enumspb.COMMAND_TYPE_REQUEST_CANCEL_EXTERNAL_WORKFLOW_EXECUTION)
		cmd.Attributes = &commandpb.Command_RequestCancelExternalWorkflowExecutionCommandAttributes{
			RequestCancelExternalWorkflowExecutionCommandAttributes: &commandpb.RequestCancelExternalWorkflowExecutionCommandAttributes{
				Namespace:         d.attributes.Namespace,
				WorkflowId:        d.attributes.WorkflowId,
				ChildWorkflowOnly: true,
			},
		}
		return cmd
	default:
		return nil
	}
}

func (d *childWorkflowCommandStateMachine) handleCommandSent() {
	switch d.state {
	case commandStateCanceledAfterStarted:
		d.moveState(commandStateCancellationCommandSent, eventCommandSent)
	default:
		d.commandStateMachineBase.handleCommandSent()
	}
}

func (d *childWorkflowCommandStateMachine) handleStartedEvent() {
	switch d.state {
	case commandStateInitiated:
		d.moveState(commandStateStarted, eventStarted)
	case commandStateCanceledAfterInitiated:
		d.moveState(commandStateCanceledAfterStarted, eventStarted)
	default:
		d.commandStateMachineBase.handleStartedEvent()
	}
}

func (d *childWorkflowCommandStateMachine) handleCancelFailedEvent() {
	switch d.state {
	case commandStateCancellationCommandSent:
		d.moveState(commandStateStarted, eventCancelFailed)
	default:
		d.commandStateMachineBase.handleCancelFailedEvent()
	}
}

func (d *childWorkflowCommandStateMachine) cancel() {
	switch d.state {
	case commandStateStarted:
		d.moveState(commandStateCanceledAfterStarted, eventCancel)
	default:
		d.commandStateMachineBase.cancel()
	}
}

func (d *childWorkflowCommandStateMachine) handleCanceledEvent() {
	switch d.state {
	case commandStateStarted:
		d.moveState(commandStateCompleted, eventCanceled)
	default:
		d.commandStateMachineBase.handleCanceledEvent()
	}
}

func (d *childWorkflowCommandStateMachine) handleCompletionEvent() {
	switch d.state {
	case commandStateStarted, commandStateCanceledAfterStarted:
		d.moveState(commandStateCompleted, eventCompletion)
	default:
		d.commandStateMachineBase.handleCompletionEvent()
	}
}

// ---- naive (Marker, UpsertSearchAttributes, and the base Signal/CancelExternal shape) ----

func (d *naiveCommandStateMachine) getCommand() *commandpb.Command {
	if d.state == commandStateCreated {
		return d.command
	}
	return nil
}

func (d *naiveCommandStateMachine) cancel() {
	d.failStateTransition(eventCancel)
}

func (d *naiveCommandStateMachine) handleCompletionEvent()       { d.failStateTransition(eventCompletion) }
func (d *naiveCommandStateMachine) handleInitiatedEvent()        { d.failStateTransition(eventInitiated) }
func (d *naiveCommandStateMachine) handleInitiationFailedEvent() { d.failStateTransition(eventInitiationFailed) }
func (d *naiveCommandStateMachine) handleStartedEvent()          { d.failStateTransition(eventStarted) }
func (d *naiveCommandStateMachine) handleCanceledEvent()         { d.failStateTransition(eventCanceled) }
func (d *naiveCommandStateMachine) handleCancelFailedEvent()     { d.failStateTransition(eventCancelFailed) }
func (d *naiveCommandStateMachine) handleCancelInitiatedEvent()  { d.failStateTransition(eventCancelInitiated) }

// handleCommandSent dispatches on completesOnSend rather than needing a per-kind override: for
// SideEffect/Version markers the matching history event is consumed before this machine even
// exists (markers are preloaded ahead of ordinary events), and for local activity markers there
// is no further event expected to drive it, so both go CREATED -> COMPLETED directly. Signal and
// CancelExternal fall through to the base CREATED -> COMMAND_SENT transition and continue on to
// INITIATED once the server acknowledges them.
func (d *naiveCommandStateMachine) handleCommandSent() {
	if d.completesOnSend {
		if d.state == commandStateCreated {
			d.moveState(commandStateCompleted, eventCommandSent)
		}
		return
	}
	d.commandStateMachineBase.handleCommandSent()
}

// ---- CancelExternal ----

func (d *cancelExternalCommandStateMachine) handleInitiatedEvent() {
	switch d.state {
	case commandStateCommandSent:
		d.moveState(commandStateInitiated, eventInitiated)
	default:
		d.failStateTransition(eventInitiated)
	}
}

func (d *cancelExternalCommandStateMachine) handleCompletionEvent() {
	switch d.state {
	case commandStateInitiated:
		d.moveState(commandStateCompleted, eventCompletion)
	default:
		d.failStateTransition(eventCompletion)
	}
}

func (d *cancelExternalCommandStateMachine) cancel() {
	switch d.state {
	case commandStateCreated, commandStateInitiated:
		d.moveState(commandStateCompleted, eventCancel)
	case commandStateCommandSent:
		d.moveState(commandStateCanceledBeforeInitiated, eventCancel)
	default:
		// already completed or canceled: no-op
	}
}

// ---- Signal ----

func (d *signalCommandStateMachine) isDone() bool {
	return d.commandStateMachineBase.isDone() || d.canceled
}

func (d *signalCommandStateMachine) cancel() {
	switch d.state {
	case commandStateCreated, commandStateInitiated:
		d.canceled = true
		d.moveState(commandStateCompleted, eventCancel)
	case commandStateCommandSent:
		d.canceled = true
		d.moveState(commandStateCanceledBeforeInitiated, eventCancel)
	default:
		// already completed: no-op
	}
}

func (d *signalCommandStateMachine) handleInitiatedEvent() {
	switch d.state {
	case commandStateCommandSent:
		d.moveState(commandStateInitiated, eventInitiated)
	case commandStateCanceledBeforeInitiated:
		// Cancellation raced ahead of the server's acknowledgement: a later Initiated event
		// for an already-canceled signal is a no-op, not an error.
	default:
		d.failStateTransition(eventInitiated)
	}
}

func (d *signalCommandStateMachine) handleCompletionEvent() {
	switch d.state {
	case commandStateCommandSent, commandStateInitiated, commandStateCanceledBeforeInitiated:
		d.moveState(commandStateCompleted, eventCompletion)
	default:
		d.failStateTransition(eventCompletion)
	}
}

// ---- Marker / UpsertSearchAttributes ----
//
// Both kinds set completesOnSend on construction (see commandBookkeeper.newNaiveStateMachine) and
// need no method override of their own: naiveCommandStateMachine.handleCommandSent already
// dispatches on that flag.
