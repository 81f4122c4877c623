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

	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/require"
)

func Test_ReplayClock_AdvanceTo(t *testing.T) {
	c := newReplayClock(clock.NewMock())
	require.Equal(t, int64(0), c.now())
	c.advanceTo(1000)
	require.Equal(t, int64(1000), c.now())
	c.advanceTo(1000) // equal timestamps are fine, time merely stands still
	require.Equal(t, int64(1000), c.now())
}

func Test_ReplayClock_AdvanceTo_PanicsOnBackwardTime(t *testing.T) {
	c := newReplayClock(clock.NewMock())
	c.advanceTo(1000)
	require.Panics(t, func() { c.advanceTo(999) })
}

func Test_ReplayClock_SetLiveNow(t *testing.T) {
	mock := clock.NewMock()
	c := newReplayClock(mock)
	mock.Add(5000 * 1e6) // 5000ms, in nanoseconds
	c.setLiveNow()
	require.Equal(t, mock.Now().UnixNano()/int64(1e6), c.now())
}

// Test_ReplayClock_ReconcileWakeUp_FiresTimer is the deterministic-timer half of the wake-up
// mechanism (§4.2): a pending wake-up time in the future must actually fire once the mock clock
// is advanced to it.
func Test_ReplayClock_ReconcileWakeUp_FiresTimer(t *testing.T) {
	mock := clock.NewMock()
	c := newReplayClock(mock)
	c.advanceTo(1000)

	fired := make(chan struct{}, 1)
	c.reconcileWakeUp(1500, func() { fired <- struct{}{} })
	require.NotNil(t, c.activeTimer)

	mock.Add(500 * 1e6)
	select {
	case <-fired:
	default:
		t.Fatal("wake-up timer did not fire after the mock clock reached the target time")
	}
}

func Test_ReplayClock_ReconcileWakeUp_ZeroCancelsTimer(t *testing.T) {
	mock := clock.NewMock()
	c := newReplayClock(mock)
	c.advanceTo(1000)
	c.reconcileWakeUp(2000, func() {})
	require.NotNil(t, c.activeTimer)

	c.reconcileWakeUp(0, func() {})
	require.Nil(t, c.activeTimer)
	require.Equal(t, int64(0), c.nextWakeUpTimeMs)
}

func Test_ReplayClock_ReconcileWakeUp_PanicsOnPastTarget(t *testing.T) {
	c := newReplayClock(clock.NewMock())
	c.advanceTo(1000)
	require.Panics(t, func() { c.reconcileWakeUp(500, func() {}) })
}

func Test_ReplayClock_StopWakeUp(t *testing.T) {
	mock := clock.NewMock()
	c := newReplayClock(mock)
	c.advanceTo(1000)
	c.reconcileWakeUp(2000, func() {})
	c.stopWakeUp()
	require.Nil(t, c.activeTimer)
	require.Equal(t, int64(0), c.nextWakeUpTimeMs)
}
