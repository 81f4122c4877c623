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

import "fmt"

type (
	// commandTargetKind identifies which per-command state machine family a commandID belongs to.
	commandTargetKind int32

	// commandID is the stable key routing a history event back to the state machine that
	// issued the command which elicited it. Equality is structural: (kind, id).
	//
	// id is the caller-assigned identifier the command is addressed by (activity ID, timer
	// ID, child workflow ID, signal/cancellation control ID, marker ID) rather than a server
	// event id: commands are created, and must be routable, before the server has assigned
	// any event id to their eventual initiation event. commandBookkeeper keeps the
	// scheduledEventID -> id translation tables that let a later event (which only carries
	// the server's event id) be mapped back to this key.
	commandID struct {
		kind commandTargetKind
		id   string
	}
)

const (
	commandTargetActivity commandTargetKind = iota
	commandTargetTimer
	commandTargetChildWorkflow
	commandTargetSignal
	commandTargetCancelExternal
	commandTargetSelfWorkflow
	commandTargetUpsertSearchAttributes
	commandTargetMarker
)

func (k commandTargetKind) String() string {
	switch k {
	case commandTargetActivity:
		return "Activity"
	case commandTargetTimer:
		return "Timer"
	case commandTargetChildWorkflow:
		return "ChildWorkflow"
	case commandTargetSignal:
		return "Signal"
	case commandTargetCancelExternal:
		return "CancelExternal"
	case commandTargetSelfWorkflow:
		return "SelfWorkflow"
	case commandTargetUpsertSearchAttributes:
		return "UpsertSearchAttributes"
	case commandTargetMarker:
		return "Marker"
	default:
		return "Unknown"
	}
}

func (id commandID) String() string {
	return fmt.Sprintf("TargetKind: %v, ID: %v", id.kind, id.id)
}

func makeCommandID(kind commandTargetKind, id string) commandID {
	return commandID{kind: kind, id: id}
}
