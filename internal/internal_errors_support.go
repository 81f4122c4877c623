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
	"runtime"
	"strings"
)

var (
	// ErrCanceled is returned by a local activity (or any blocking call) whose context was
	// canceled, either by an explicit cancellation request or because its owning task ended.
	ErrCanceled = fmt.Errorf("canceled")

	// ErrDeadlineExceeded is returned when a local activity's soft time budget runs out before
	// it completes.
	ErrDeadlineExceeded = fmt.Errorf("deadline exceeded")
)

// getStackTraceRaw captures the calling goroutine's stack, skipping the given number of its own
// frames, prefixed by topLine. Used for panic diagnostics attached to PanicError/workflowPanicError.
func getStackTraceRaw(topLine string, skip, depth int) string {
	buf := make([]byte, 4096)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	lines := strings.Split(string(buf), "\n")
	// Drop the "goroutine N [running]:" header plus skip*2 lines (func name + file:line per
	// frame) belonging to this helper and its immediate callers.
	start := 1 + skip*2
	if start > len(lines) {
		start = len(lines)
	}
	kept := lines[start:]
	if depth > 0 && depth < len(kept) {
		kept = kept[:depth]
	}
	var b strings.Builder
	b.WriteString(topLine)
	b.WriteByte('\n')
	for _, l := range kept {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
