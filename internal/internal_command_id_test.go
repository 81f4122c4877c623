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

	"github.com/stretchr/testify/require"
)

func Test_CommandID_Equality(t *testing.T) {
	a := makeCommandID(commandTargetActivity, "act-1")
	b := makeCommandID(commandTargetActivity, "act-1")
	c := makeCommandID(commandTargetTimer, "act-1")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func Test_CommandID_String(t *testing.T) {
	id := makeCommandID(commandTargetChildWorkflow, "child-1")
	require.Equal(t, "TargetKind: ChildWorkflow, ID: child-1", id.String())
}

func Test_CommandTargetKind_String(t *testing.T) {
	cases := map[commandTargetKind]string{
		commandTargetActivity:               "Activity",
		commandTargetTimer:                  "Timer",
		commandTargetChildWorkflow:          "ChildWorkflow",
		commandTargetSignal:                 "Signal",
		commandTargetCancelExternal:         "CancelExternal",
		commandTargetSelfWorkflow:           "SelfWorkflow",
		commandTargetUpsertSearchAttributes: "UpsertSearchAttributes",
		commandTargetMarker:                 "Marker",
		commandTargetKind(99):               "Unknown",
	}
	for kind, want := range cases {
		require.Equal(t, want, kind.String())
	}
}
