// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package thread provides the opaque identity token the waitsync primitives
// use to record lock ownership.
//
// Goroutines play the role of platform threads: an ID is derived from the
// runtime goroutine ID of the caller. IDs are only ever compared for
// equality. They carry no pointer and cannot be dereferenced, and the zero
// value None means "no owner".
//
// The goroutine ID is extracted by parsing the first line of runtime.Stack:
//
//	goroutine 123 [running]:
//
// This costs roughly a microsecond per call. There is no assembly fast path:
// the runtime.g layout is version specific and reading it would tie the
// module to a narrow range of toolchains.
package thread
