package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// identifierPayload tags an outgoing notification with the target module.
// It returns nil when there is no target.
func identifierPayload(targetModuleID string) json.RawMessage {
	if targetModuleID == "" {
		return nil
	}
	b, err := sjson.SetBytes([]byte(`{}`), "identifier", targetModuleID)
	if err != nil {
		return nil
	}
	return b
}

// valuePayload builds the payload of a range "set" notification.
func valuePayload(path string, value float64, targetModuleID string) (json.RawMessage, error) {
	b, err := sjson.SetBytes([]byte(`{}`), path, value)
	if err != nil {
		return nil, fmt.Errorf("set %q: %w", path, err)
	}
	if targetModuleID != "" {
		b, err = sjson.SetBytes(b, "identifier", targetModuleID)
		if err != nil {
			return nil, fmt.Errorf("set identifier: %w", err)
		}
	}
	return b, nil
}

// numberAt reads a numeric value at a gjson path. Numeric strings are accepted.
func numberAt(payload json.RawMessage, path string) (float64, bool) {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return 0, false
	}
	r := gjson.GetBytes(payload, path)
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Str), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	default:
		return 0, false
	}
}
