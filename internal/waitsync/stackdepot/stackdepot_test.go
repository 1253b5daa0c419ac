// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package stackdepot

import (
	"strings"
	"sync"
	"testing"
)

//go:noinline
func captureHere() uint64 {
	return CaptureStack(0)
}

// TestCaptureStack tests basic stack capture and retrieval.
func TestCaptureStack(t *testing.T) {
	Reset()

	hash := captureHere()
	if hash == 0 {
		t.Fatal("CaptureStack returned zero hash")
	}

	stack := GetStack(hash)
	if stack == nil {
		t.Fatal("GetStack returned nil for valid hash")
	}

	out := stack.FormatStack()
	if !strings.Contains(out, "captureHere") {
		t.Errorf("formatted stack missing caller frame:\n%s", out)
	}
	if strings.Contains(out, "runtime.Callers") {
		t.Errorf("formatted stack contains runtime frames:\n%s", out)
	}
}

// TestStackDeduplication tests that identical stacks produce the same hash.
func TestStackDeduplication(t *testing.T) {
	Reset()

	var hashes [2]uint64
	for i := range hashes {
		hashes[i] = captureHere()
	}

	if hashes[0] != hashes[1] {
		t.Errorf("same call site produced different hashes: %x vs %x", hashes[0], hashes[1])
	}
	if Len() != 1 {
		t.Errorf("Len = %d, want 1", Len())
	}
}

// TestSkip verifies skip drops frames above the caller.
func TestSkip(t *testing.T) {
	Reset()

	inner := func() uint64 { return CaptureStack(1) }
	out := GetStack(inner()).FormatStack()
	if !strings.Contains(out, "TestSkip") {
		t.Errorf("skip=1 should start at TestSkip:\n%s", out)
	}
}

// TestGetStackUnknown covers the zero and missing hash.
func TestGetStackUnknown(t *testing.T) {
	if GetStack(0) != nil {
		t.Error("GetStack(0) should be nil")
	}
	if GetStack(0xdeadbeef) != nil {
		t.Error("GetStack of unknown hash should be nil")
	}
	var st *StackTrace
	if st.FormatStack() != "  <unknown>\n" {
		t.Errorf("nil FormatStack = %q", st.FormatStack())
	}
}

// TestConcurrentCapture verifies captures from many goroutines are safe.
func TestConcurrentCapture(t *testing.T) {
	Reset()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if captureHere() == 0 {
				t.Error("zero hash")
			}
		}()
	}
	wg.Wait()

	if Len() == 0 {
		t.Error("no stacks stored")
	}
}
