package jwt

import (
	"encoding/json"
	"strings"
)

// bearerPrefix is stripped from tokens supplied with an HTTP-style prefix.
const bearerPrefix = "Bearer "

// ExtractToken normalizes the auth payload clients send with a client-auth
// frame. The payload may be a bare token string or an object carrying the
// token under one of the conventional keys.
func ExtractToken(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", ErrTokenMissing
	}

	var direct string
	if err := json.Unmarshal(raw, &direct); err == nil {
		return cleanToken(direct)
	}

	var payload struct {
		Token       string `json:"token"`
		AccessToken string `json:"access_token"`
		JWT         string `json:"jwt"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", ErrTokenMissing
	}

	for _, candidate := range []string{payload.Token, payload.AccessToken, payload.JWT} {
		if candidate != "" {
			return cleanToken(candidate)
		}
	}

	return "", ErrTokenMissing
}

// ExtractBearer strips the Bearer prefix from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	return cleanToken(header)
}

// cleanToken strips the Bearer prefix and surrounding whitespace.
func cleanToken(token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, bearerPrefix))
	if token == "" {
		return "", ErrTokenMissing
	}
	return token, nil
}
