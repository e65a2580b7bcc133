/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */

// Package version exposes the build version of gopanelize.
package version

import "runtime"

// Version is overridden at build time:
//
//	go build -ldflags "-X gopanelize/internal/version.Version=1.2.3"
var Version = "0.1.0-dev"

// String returns a human-readable version string.
func String() string {
	return Version + " (" + runtime.Version() + ")"
}
