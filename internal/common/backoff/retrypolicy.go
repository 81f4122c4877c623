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

package backoff

import (
	"math"
	"math/rand"
	"time"
)

// done is returned by Retrier.NextBackOff to signal that no further retry should be attempted.
const done time.Duration = -1

type (
	// RetryPolicy is the pure backoff/stop math a Retrier is built from. ExponentialRetryPolicy
	// is the only implementation this package ships; it backs both the generic RPC retry helper
	// above and the history-pagination retry loop.
	RetryPolicy interface {
		ComputeNextDelay(elapsedTime time.Duration, numAttempts int) time.Duration
	}

	// Retrier tracks the running attempt count/elapsed time for one logical retry loop and
	// produces the delay before the next attempt, or done when retries are exhausted.
	Retrier interface {
		NextBackOff() time.Duration
		Reset()
	}

	// ExponentialRetryPolicy grows the delay geometrically from InitialInterval by
	// BackoffCoefficient, capped at MaximumInterval, stopping once MaximumAttempts or
	// ExpirationInterval is exceeded. Up to 20% random jitter is added after the cap, so a
	// returned delay can exceed MaximumInterval by that much.
	ExponentialRetryPolicy struct {
		initialInterval    time.Duration
		backoffCoefficient float64
		maximumInterval    time.Duration
		expirationInterval time.Duration
		maximumAttempts    int
	}

	retrierImpl struct {
		policy    RetryPolicy
		clock     Clock
		startTime time.Time
		attempts  int
	}

	// Clock abstracts wall time so tests can control elapsed-time-driven expiration.
	Clock interface {
		Now() time.Time
	}

	systemClock struct{}
)

// SystemClock is the real wall-clock Clock implementation.
var SystemClock Clock = systemClock{}

func (systemClock) Now() time.Time { return time.Now() }

// NewExponentialRetryPolicy creates a policy with the given initial interval and a default
// backoff coefficient of 2.0, a maximum interval of 100x the initial interval, and no
// attempt or expiration limit until set.
func NewExponentialRetryPolicy(initialInterval time.Duration) *ExponentialRetryPolicy {
	return &ExponentialRetryPolicy{
		initialInterval:    initialInterval,
		backoffCoefficient: 2.0,
	}
}

func (p *ExponentialRetryPolicy) SetBackoffCoefficient(c float64) { p.backoffCoefficient = c }
func (p *ExponentialRetryPolicy) SetMaximumInterval(d time.Duration) { p.maximumInterval = d }
func (p *ExponentialRetryPolicy) SetExpirationInterval(d time.Duration) { p.expirationInterval = d }
func (p *ExponentialRetryPolicy) SetMaximumAttempts(n int) { p.maximumAttempts = n }

// ComputeNextDelay returns the delay before the next attempt, or done (-1) once the policy's
// stop conditions are met.
func (p *ExponentialRetryPolicy) ComputeNextDelay(elapsedTime time.Duration, numAttempts int) time.Duration {
	if p.maximumAttempts > 0 && numAttempts >= p.maximumAttempts {
		return done
	}
	coefficient := p.backoffCoefficient
	if coefficient == 0 {
		coefficient = 2.0
	}
	nextInterval := float64(p.initialInterval) * math.Pow(coefficient, float64(numAttempts))
	maxInterval := p.maximumInterval
	if maxInterval == 0 {
		maxInterval = p.initialInterval * 100
	}
	if nextInterval > float64(maxInterval) {
		nextInterval = float64(maxInterval)
	}
	next := time.Duration(nextInterval)

	if p.expirationInterval > 0 && elapsedTime+next >= p.expirationInterval {
		return done
	}
	// Jitter by up to 20% to avoid synchronized retry storms across workers.
	jitter := time.Duration(rand.Int63n(int64(next)/5 + 1))
	return next + jitter
}

// NewRetrier builds a Retrier tracking wall time against clock for the given policy.
func NewRetrier(policy RetryPolicy, clock Clock) Retrier {
	return &retrierImpl{policy: policy, clock: clock, startTime: clock.Now()}
}

func (r *retrierImpl) NextBackOff() time.Duration {
	elapsed := r.clock.Now().Sub(r.startTime)
	next := r.policy.ComputeNextDelay(elapsed, r.attempts)
	if next != done {
		r.attempts++
	}
	return next
}

func (r *retrierImpl) Reset() {
	r.attempts = 0
	r.startTime = r.clock.Now()
}
