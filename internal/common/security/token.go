package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
)

// TokenBytes is the amount of entropy in a session token; hex encoding
// doubles it, so keys are 40 characters long.
const TokenBytes = 20

// GenerateToken returns an opaque random key. It carries no payload.
func GenerateToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TokenFromHeader extracts the key from "Authorization: Token <key>" or
// "Authorization: Bearer <key>". It returns "" when the header is absent
// or malformed.
func TokenFromHeader(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, key, ok := strings.Cut(header, " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "token", "bearer":
		return strings.TrimSpace(key)
	}
	return ""
}
