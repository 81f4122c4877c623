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
	"time"

	"github.com/stretchr/testify/require"
)

func Test_NewLocalActivityRetryPolicy_Nil(t *testing.T) {
	p, err := newLocalActivityRetryPolicy(nil)
	require.NoError(t, err)
	require.Nil(t, p)
}

func Test_NewLocalActivityRetryPolicy_Defaults(t *testing.T) {
	p, err := newLocalActivityRetryPolicy(&RetryPolicy{InitialInterval: time.Second})
	require.NoError(t, err)
	require.Equal(t, defaultBackoffCoefficient, p.backoffCoefficient)
	require.Equal(t, 100*time.Second, p.maximumInterval)
}

func Test_NewLocalActivityRetryPolicy_InvalidInitialInterval(t *testing.T) {
	_, err := newLocalActivityRetryPolicy(&RetryPolicy{InitialInterval: 0})
	require.Error(t, err)
}

func Test_NewLocalActivityRetryPolicy_InvalidCoefficient(t *testing.T) {
	_, err := newLocalActivityRetryPolicy(&RetryPolicy{InitialInterval: time.Second, BackoffCoefficient: 0.5})
	require.Error(t, err)
}

func Test_SleepTime_ExponentialUntilCap(t *testing.T) {
	p, err := newLocalActivityRetryPolicy(&RetryPolicy{
		InitialInterval:    time.Second,
		BackoffCoefficient: 2.0,
		MaximumInterval:    10 * time.Second,
	})
	require.NoError(t, err)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, w := range want {
		attempt := int64(i + 1)
		require.Equal(t, w, p.sleepTime(attempt), "attempt %d", attempt)
	}
}

func Test_ShouldStop_NonRetryableErrorType(t *testing.T) {
	p, err := newLocalActivityRetryPolicy(&RetryPolicy{
		InitialInterval:        time.Second,
		NonRetryableErrorTypes: []string{"CustomReasonA"},
	})
	require.NoError(t, err)
	require.True(t, p.shouldStop("CustomReasonA", 1, 0, time.Second, 0))
	require.False(t, p.shouldStop("CustomReasonB", 1, 0, time.Second, 0))
}

func Test_ShouldStop_MaximumAttempts(t *testing.T) {
	p, err := newLocalActivityRetryPolicy(&RetryPolicy{
		InitialInterval: time.Second,
		MaximumAttempts: 3,
	})
	require.NoError(t, err)
	require.False(t, p.shouldStop("x", 2, 0, 0, 0))
	require.True(t, p.shouldStop("x", 3, 0, 0, 0))
	require.True(t, p.shouldStop("x", 4, 0, 0, 0))
}

func Test_ShouldStop_Expiration(t *testing.T) {
	p, err := newLocalActivityRetryPolicy(&RetryPolicy{InitialInterval: time.Second})
	require.NoError(t, err)
	require.False(t, p.shouldStop("x", 1, 4*time.Second, time.Second, 10*time.Second))
	require.True(t, p.shouldStop("x", 1, 9*time.Second, 2*time.Second, 10*time.Second))
}
