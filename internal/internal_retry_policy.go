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
	"math"
	"time"
)

type (
	// localActivityRetryPolicy is the pure retry-math companion to the public RetryPolicy: it
	// owns sleepTime/shouldStop. Only its tests call it; the local activity runner runs each
	// task once and does not retry it.
	localActivityRetryPolicy struct {
		initialInterval    time.Duration
		backoffCoefficient float64
		maximumInterval    time.Duration
		maximumAttempts    int32
		nonRetryableTypes  []string
	}
)

const defaultBackoffCoefficient = 2.0

// newLocalActivityRetryPolicy validates and normalizes a public *RetryPolicy into the form
// sleepTime/shouldStop consume. It applies the merge semantics of §4.1: explicit value wins
// over default; an empty (non-nil) NonRetryableTypes means "retry nothing", nil means
// "not configured" (no exclusions).
func newLocalActivityRetryPolicy(p *RetryPolicy) (*localActivityRetryPolicy, error) {
	if p == nil {
		return nil, nil
	}
	if p.InitialInterval <= 0 {
		return nil, fmt.Errorf("invalid retry policy: InitialInterval must be > 0, got %v", p.InitialInterval)
	}
	coefficient := p.BackoffCoefficient
	if coefficient == 0 {
		coefficient = defaultBackoffCoefficient
	}
	if coefficient < 1 {
		return nil, fmt.Errorf("invalid retry policy: BackoffCoefficient must be >= 1, got %v", coefficient)
	}
	if p.MaximumInterval != 0 && p.MaximumInterval < 0 {
		return nil, fmt.Errorf("invalid retry policy: MaximumInterval must be > 0 when set, got %v", p.MaximumInterval)
	}
	if p.MaximumAttempts != 0 && p.MaximumAttempts < 0 {
		return nil, fmt.Errorf("invalid retry policy: MaximumAttempts must be >= 1 when set, got %v", p.MaximumAttempts)
	}
	maxInterval := p.MaximumInterval
	if maxInterval == 0 {
		maxInterval = p.InitialInterval * 100
	}
	return &localActivityRetryPolicy{
		initialInterval:    p.InitialInterval,
		backoffCoefficient: coefficient,
		maximumInterval:    maxInterval,
		maximumAttempts:    p.MaximumAttempts,
		nonRetryableTypes:  p.NonRetryableErrorTypes,
	}, nil
}

// sleepTime returns the backoff before the given attempt (1-based). It is monotone
// non-decreasing in attempt until the maximumInterval cap is reached, then constant.
func (r *localActivityRetryPolicy) sleepTime(attempt int64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initialMs := float64(r.initialInterval / time.Millisecond)
	raw := initialMs * math.Pow(r.backoffCoefficient, float64(attempt-1))
	capMs := float64(r.maximumInterval / time.Millisecond)
	if raw > capMs {
		raw = capMs
	}
	return time.Duration(math.Floor(raw)) * time.Millisecond
}

// shouldStop reports whether retrying should cease given the last error's type, the attempt
// number about to be made, total elapsed duration, the sleep that would precede that attempt,
// and an optional overall expiration (0 = none).
func (r *localActivityRetryPolicy) shouldStop(errorType string, attempt int64, elapsed, sleep, expiration time.Duration) bool {
	if r.nonRetryableTypes != nil && len(r.nonRetryableTypes) == 0 {
		return true
	}
	for _, nonRetryable := range r.nonRetryableTypes {
		if nonRetryable == errorType {
			return true
		}
	}
	if r.maximumAttempts > 0 && attempt >= int64(r.maximumAttempts) {
		return true
	}
	if expiration > 0 && elapsed+sleep >= expiration {
		return true
	}
	return false
}
