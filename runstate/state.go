// Copyright 2026 The Overlook Authors
// SPDX-License-Identifier: Apache-2.0

package runstate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// Issue records one problem encountered while reading engine state.
// Issues are informational: the snapshot stays otherwise complete.
type Issue struct {
	Message string `json:"message" cbor:"message"`
}

// ReadState reads and parses an engine state file. It never fails:
// missing, unreadable, or malformed state returns an empty (non-nil)
// map plus issues describing what went wrong. Engine-written state
// may carry comments or trailing commas, so JSONC is accepted.
func ReadState(path string) (map[string]any, []Issue) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, []Issue{{Message: fmt.Sprintf("state file missing: %s", path)}}
		}
		return map[string]any{}, []Issue{{Message: fmt.Sprintf("reading state file: %v", err)}}
	}

	var state map[string]any
	if err := json.Unmarshal(jsonc.ToJSON(raw), &state); err != nil {
		return map[string]any{}, []Issue{{Message: fmt.Sprintf("parsing state file: %v", err)}}
	}
	if state == nil {
		// A file containing literal null parses cleanly to nil.
		return map[string]any{}, []Issue{{Message: "state file contains no object"}}
	}
	return state, nil
}
