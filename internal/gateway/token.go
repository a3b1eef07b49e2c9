// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// parseTokens reads a refresh reply. The access token is required; the refresh
// token is optional because the server may keep the old one.
func parseTokens(body []byte) (access, refresh string, err error) {
	var result map[string]any
	if err := json.Unmarshal(body, &result); err != nil {
		return "", "", fmt.Errorf("decode refresh reply: %w", err)
	}
	if data, ok := result["data"].(map[string]any); ok {
		result = data
	}
	access = extractAccessToken(result)
	if access == "" {
		return "", "", errors.New("no access token in refresh reply")
	}
	return access, extractRefreshToken(result), nil
}

// extractAccessToken tries the field names the API has used for the access token.
func extractAccessToken(result map[string]any) string {
	for _, k := range []string{"token", "accessToken", "access_token"} {
		if v, ok := result[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// extractRefreshToken returns the rotated refresh token, or "" when not rotated.
func extractRefreshToken(result map[string]any) string {
	for _, k := range []string{"refreshToken", "refresh_token"} {
		if v, ok := result[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
