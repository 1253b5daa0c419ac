// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package thread

import (
	"runtime"
	"strconv"
)

// ID identifies a goroutine for ownership comparison.
//
// IDs are comparable with == and safe to copy. The zero value is None.
type ID struct {
	token uint64
}

// None is the "no owner" identity.
var None ID

// FromToken rebuilds an ID from the value returned by Token.
// It exists so that owners can be kept in an atomic uint64 slot.
func FromToken(token uint64) ID {
	return ID{token: token}
}

// Token returns the raw comparison value of id. Token is 0 only for None.
func (id ID) Token() uint64 {
	return id.token
}

// IsNone reports whether id is the "no owner" identity.
func (id ID) IsNone() bool {
	return id.token == 0
}

// String implements fmt.Stringer.
func (id ID) String() string {
	if id.IsNone() {
		return "goroutine(none)"
	}
	return "goroutine(" + strconv.FormatUint(id.token, 10) + ")"
}

// Current returns the identity of the calling goroutine.
//
// It panics if the runtime stack header cannot be parsed, which would mean
// the runtime changed its traceback format.
func Current() ID {
	gid := goroutineID()
	if gid == 0 {
		panic("thread: cannot determine goroutine identity from runtime.Stack")
	}
	return ID{token: gid}
}

// goroutineID extracts the current goroutine ID by parsing runtime.Stack.
//
// Stack trace format: "goroutine 123 [running]:\n..."
// Only the first line is needed, so a 64 byte buffer is enough.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the goroutine ID from stack trace bytes.
//
// Returns the numeric ID, or 0 if buf does not start with "goroutine "
// followed by at least one digit.
func parseGID(buf []byte) uint64 {
	const prefix = "goroutine "

	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}

	var gid uint64
	for _, c := range buf[len(prefix):] {
		if c < '0' || c > '9' {
			// Non-digit terminates the ID (usually the space before "[running]").
			break
		}
		gid = gid*10 + uint64(c-'0')
	}
	return gid
}
