// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package stackdepot stores deduplicated stack traces for poison reports.
//
// When a Mutex holder panics, the guard records where the panic unwound
// through the lock. The trace is stored once per unique stack and
// referenced by a 64-bit hash, so a Mutex only needs one atomic uint64 to
// remember its poisoning site.
//
// Design:
//   - Fixed-size stack traces (MaxFrames program counters)
//   - Hash-based deduplication (FNV-1a over the program counters)
//   - Global xsync.MapOf storage (thread-safe)
//
// Usage:
//
//	hash := stackdepot.CaptureStack(0)
//	fmt.Print(stackdepot.GetStack(hash).FormatStack())
package stackdepot

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"runtime"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// MaxFrames is the maximum number of stack frames to capture. A panicking
// unlock sits under several runtime frames, so this is larger than a plain
// call-site capture needs.
const MaxFrames = 16

// StackTrace is a captured stack trace with fixed size.
type StackTrace struct {
	PC [MaxFrames]uintptr
}

// depot maps FNV-1a hash → *StackTrace. It grows without bound; only
// poisoning sites are stored, so it stays small in practice.
var depot = xsync.NewMapOf[uint64, *StackTrace]()

// CaptureStack captures the caller's stack and returns its hash.
//
// skip is the number of additional frames to skip above the caller of
// CaptureStack. Returns 0 if no frames are available.
func CaptureStack(skip int) uint64 {
	var pcs [MaxFrames]uintptr
	// Skip runtime.Callers and CaptureStack itself.
	n := runtime.Callers(2+skip, pcs[:])
	if n == 0 {
		return 0
	}

	hash := hashStack(pcs[:n])
	depot.LoadOrCompute(hash, func() *StackTrace {
		return &StackTrace{PC: pcs}
	})
	return hash
}

// GetStack returns the stack stored under hash, or nil.
func GetStack(hash uint64) *StackTrace {
	if hash == 0 {
		return nil
	}
	st, _ := depot.Load(hash)
	return st
}

func hashStack(pcs []uintptr) uint64 {
	h := fnv.New64a()
	var b [8]byte
	for _, pc := range pcs {
		binary.LittleEndian.PutUint64(b[:], uint64(pc))
		_, _ = h.Write(b[:]) // hash.Hash never returns an error
	}
	return h.Sum64()
}

// FormatStack renders the trace, skipping runtime frames:
//
//	main.worker()
//	    /path/to/file.go:45
func (st *StackTrace) FormatStack() string {
	if st == nil {
		return "  <unknown>\n"
	}

	frames := runtime.CallersFrames(st.PC[:])

	var buf strings.Builder
	for {
		frame, more := frames.Next()
		if frame.PC == 0 {
			break
		}
		if !strings.HasPrefix(frame.Function, "runtime.") {
			fmt.Fprintf(&buf, "  %s()\n", frame.Function)
			fmt.Fprintf(&buf, "      %s:%d\n", frame.File, frame.Line)
		}
		if !more {
			break
		}
	}

	if buf.Len() == 0 {
		return "  <runtime internal>\n"
	}
	return buf.String()
}

// Reset clears the depot. Tests only; not safe with concurrent captures.
func Reset() {
	depot.Clear()
}

// Len returns the number of unique stacks stored.
func Len() int {
	return depot.Size()
}
