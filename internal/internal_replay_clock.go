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
	"time"

	"github.com/facebookgo/clock"
)

func timeDurationFromMillis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// forceWorkflowTaskTimerID is the distinguished timer id whose TimerFired event the executor
// drops on sight, since it carries no payload the workflow cares about. No code in this package
// starts a timer with this id.
const forceWorkflowTaskTimerID = "force-immediate-workflow-task"

type (
	// replayClock is the deterministic now() the workflow program reads through its context,
	// plus the single outstanding wake-up timer the executor reconciles after every batch.
	replayClock struct {
		wallClock        clock.Clock
		currentTimeMs    int64
		isReplaying      bool
		nextWakeUpTimeMs int64 // 0 == no pending wait
		activeTimer      clock.Timer
	}
)

func newReplayClock(wallClock clock.Clock) *replayClock {
	if wallClock == nil {
		wallClock = clock.New()
	}
	return &replayClock{wallClock: wallClock}
}

func (c *replayClock) now() int64 {
	return c.currentTimeMs
}

// advanceTo moves the deterministic clock forward to an event's recorded timestamp. Time
// never moves backward; a backward timestamp in history is a corrupt-history bug, not
// something this clock silently tolerates.
func (c *replayClock) advanceTo(eventTimeMs int64) {
	if eventTimeMs < c.currentTimeMs {
		panicIllegalState(fmt.Sprintf(
			"history event timestamp %v ms is before current replay time %v ms", eventTimeMs, c.currentTimeMs))
	}
	c.currentTimeMs = eventTimeMs
}

// setLiveNow pins the clock to wall-clock time for the batch being decided live.
func (c *replayClock) setLiveNow() {
	c.currentTimeMs = c.wallClock.Now().UnixNano() / int64(1e6)
}

// reconcileWakeUp cancels any previous deterministic timer and, if nextWakeUpTimeMs names a
// pending wait, schedules a new one for the remaining delay. A wake-up time of 0 means the
// workflow has nothing left to wait for, so any outstanding timer is simply cancelled.
func (c *replayClock) reconcileWakeUp(nextWakeUpTimeMs int64, onFire func()) {
	if c.activeTimer != nil {
		c.activeTimer.Stop()
		c.activeTimer = nil
	}
	c.nextWakeUpTimeMs = nextWakeUpTimeMs
	if nextWakeUpTimeMs == 0 {
		return
	}
	delayMs := nextWakeUpTimeMs - c.currentTimeMs
	if delayMs < 0 {
		panicIllegalState(fmt.Sprintf(
			"next wake up time %v ms precedes current replay time %v ms, this is a workflow program bug",
			nextWakeUpTimeMs, c.currentTimeMs))
	}
	delay := timeDurationFromMillis(delayMs)
	// The timer runs no workflow code: its callback only calls onFire, and the executor passes an
	// empty one. Firing does not by itself send anything to the service.
	c.activeTimer = c.wallClock.AfterFunc(delay, func() {
		if onFire != nil {
			onFire()
		}
	})
}

func (c *replayClock) stopWakeUp() {
	if c.activeTimer != nil {
		c.activeTimer.Stop()
		c.activeTimer = nil
	}
	c.nextWakeUpTimeMs = 0
}
