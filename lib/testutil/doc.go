// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers shared by tests: channel
// receives with timeout safety valves and run-root fixtures.
package testutil
