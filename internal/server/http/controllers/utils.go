package controllers

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"unicode/utf8"
)

const (
	defaultLimit = 100
	maxLimit     = 10000
)

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON writes a JSON response with the given data.
func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

// parseLimit returns defaultLimit for empty or invalid values and caps the
// result at maxLimit.
func parseLimit(limitStr string) int {
	if limitStr == "" {
		return defaultLimit
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// renderPayload picks the most readable encoding for a payload: JSON values
// are embedded, other UTF-8 is returned as text, anything else as base64.
func renderPayload(p []byte) (string, any) {
	if len(p) > 0 && json.Valid(p) {
		return encodingJSON, json.RawMessage(append([]byte(nil), p...))
	}
	if utf8.Valid(p) {
		return encodingText, string(p)
	}
	return encodingBase64, base64.StdEncoding.EncodeToString(p)
}
