// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"
)

// envelope is the LOXTR API reply shape: {"success":true,"data":...} on
// success and {"error":"..."} on failure.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// Decode unmarshals the response payload into v, unwrapping the data envelope
// when present.
func (r *Response) Decode(v any) error {
	return DecodeData(r.Body, v)
}

// DecodeData unmarshals b into v, unwrapping {"data": ...} when present.
func DecodeData(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errors.New("empty response body")
	}
	if b[0] == '{' {
		var env envelope
		if err := json.Unmarshal(b, &env); err == nil && env.Success != nil && len(env.Data) > 0 {
			return json.Unmarshal(env.Data, v)
		}
	}
	return json.Unmarshal(b, v)
}

// serverMessage extracts a human message from an error body.
func serverMessage(b []byte) string {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ""
	}
	var env envelope
	if err := json.Unmarshal(b, &env); err == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return truncate(strings.TrimSpace(string(b)), maxMessageBytes)
}

const maxMessageBytes = 200

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
