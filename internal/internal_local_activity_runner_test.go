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
	"context"
	"testing"
	"time"

	commonpb "go.temporal.io/api/common/v1"

	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// Test_LocalActivityRunner_ForcedNewTaskOnBudgetExceeded exercises the soft-budget heartbeat:
// when nothing completes before the per-task budget runs out, awaitNext must report
// shouldForceNewTask and latch forceNewTaskCalled for the remainder of the phase.
func Test_LocalActivityRunner_ForcedNewTaskOnBudgetExceeded(t *testing.T) {
	r := newLocalActivityRunner(zap.NewNop(), tally.NoopScope, 10*time.Millisecond, false, nil)
	require.False(t, r.forceNewTaskCalled)

	result, forceNew := r.awaitNext(context.Background())
	require.Nil(t, result)
	require.True(t, forceNew)
	require.True(t, r.forceNewTaskCalled)

	// With the flag latched, a second call must not re-arm a budget timer: it blocks until
	// ctx is done rather than immediately reporting forceNewTask again.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	result, forceNew = r.awaitNext(ctx)
	require.Nil(t, result)
	require.False(t, forceNew)
}

// Test_LocalActivityRunner_BeginTask_ResetsPerTask is the direct regression test for the bug
// where a single heartbeat permanently disabled the budget timer for the rest of a cached run:
// beginTask must clear forceNewTaskCalled and recompute the deadline from the new task's own
// timeout rather than carrying the first task's exhausted budget forward.
func Test_LocalActivityRunner_BeginTask_ResetsPerTask(t *testing.T) {
	r := newLocalActivityRunner(zap.NewNop(), tally.NoopScope, 5*time.Millisecond, false, nil)
	_, forceNew := r.awaitNext(context.Background())
	require.True(t, forceNew)
	require.True(t, r.forceNewTaskCalled)

	r.beginTask(100 * time.Millisecond)
	require.False(t, r.forceNewTaskCalled)
	require.True(t, r.phaseDeadline.After(time.Now()))

	// The freshly-armed budget must outlast a short context: a ctx-done return, not a
	// budget-exceeded one, proves the new deadline (not the stale one) is in effect.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	result, forceNew := r.awaitNext(ctx)
	require.Nil(t, result)
	require.False(t, forceNew)
	require.False(t, r.forceNewTaskCalled)
}

// Test_LocalActivityRunner_ScheduleAndComplete exercises the live-mode happy path: a scheduled
// task runs to completion and awaitNext delivers its result before the soft budget matters.
func Test_LocalActivityRunner_ScheduleAndComplete(t *testing.T) {
	r := newLocalActivityRunner(zap.NewNop(), tally.NoopScope, time.Second, false, nil)
	r.schedule(&localActivityTask{
		activityID: "act-1",
		fn:         func(ctx context.Context) (*commonpb.Payloads, error) { return nil, nil },
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	result, forceNew := r.awaitNext(ctx)
	require.False(t, forceNew)
	require.NotNil(t, result)
	require.Equal(t, "act-1", result.activityID)
	require.False(t, r.hasPending())
}

// Test_LocalActivityRunner_Replay_ResolvesFromRecordedResult confirms a replay-mode schedule
// with a matching recorded marker resolves instantly with no goroutine spawned.
func Test_LocalActivityRunner_Replay_ResolvesFromRecordedResult(t *testing.T) {
	recorded := map[string]*localActivityResult{
		"act-2": {activityID: "act-2"},
	}
	r := newLocalActivityRunner(zap.NewNop(), tally.NoopScope, time.Second, true, recorded)
	called := false
	r.schedule(&localActivityTask{
		activityID: "act-2",
		fn:         func(ctx context.Context) (*commonpb.Payloads, error) { called = true; return nil, nil },
	})
	require.False(t, called, "a replay-resolved task must never invoke its function")

	result, forceNew := r.awaitNext(context.Background())
	require.False(t, forceNew)
	require.Equal(t, "act-2", result.activityID)
}
