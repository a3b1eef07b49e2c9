// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"loxtr/console/internal/gateway"
)

// decodeList reads a list reply. Be liberal in what we accept: the data may be
// the array itself or an object holding it under one of keys.
func decodeList[T any](body []byte, keys ...string) ([]T, error) {
	var raw json.RawMessage
	if err := gateway.DecodeData(body, &raw); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if raw[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		raw = nil
		for _, k := range keys {
			if v, ok := obj[k]; ok {
				raw = v
				break
			}
		}
		if raw == nil {
			return []T{}, nil
		}
	}
	out := []T{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	return out, nil
}

// labels flattens suggestion items that are either strings or objects with a
// display field.
func labels(items []json.RawMessage) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		if err := json.Unmarshal(it, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal(it, &obj); err != nil {
			continue
		}
		for _, k := range []string{"name", "title", "label", "value", "country"} {
			if v, ok := obj[k].(string); ok && strings.TrimSpace(v) != "" {
				out = append(out, strings.TrimSpace(v))
				break
			}
		}
	}
	return out
}
