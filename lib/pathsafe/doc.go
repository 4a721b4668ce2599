// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package pathsafe validates that operator-named filesystem paths
// stay inside a run's root directory.
//
// Every inbound surface message that carries a path must pass
// IsInsideRoot before any I/O is attempted. A failing check is a
// security rejection, not a soft validation: the caller reports an
// error and touches nothing.
package pathsafe
