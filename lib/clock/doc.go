// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability.
//
// Production code injects Real(); tests inject Fake() and drive time
// with Advance. Any component that debounces, polls, or timestamps
// takes a clock.Clock instead of calling the time package directly.
package clock
