// Copyright 2025 The waitsync Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package logging holds the process-wide structured logger used by the
// parking platform and the waitsync CLI.
//
// The logger is a log/slog logger. Until Init is called, GetLogger returns a
// text logger on stderr at WARN level, so library users see nothing unless
// something goes wrong.
//
// Example:
//
//	if err := logging.Init(logging.Config{Level: logging.LevelDebug}); err != nil {
//	    return err
//	}
//	defer logging.Close()
//
//	log := logging.WithComponent("park")
//	log.Debug("wait timed out", "key", key)
package logging
