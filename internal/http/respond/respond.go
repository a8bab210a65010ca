package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Payload carries endpoint-specific fields merged into the response envelope.
type Payload map[string]any

// JSON writes a response using the shared `{message, success, ...payload}`
// envelope. Success is derived from the status code; an empty message is
// omitted.
func JSON(w http.ResponseWriter, status int, message string, payload Payload) {
	body := Payload{"success": status < http.StatusBadRequest}
	if message != "" {
		body["message"] = message
	}
	for key, value := range payload {
		body[key] = value
	}
	write(w, status, body)
}

// Error writes an error response with the shared envelope structure.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, message, nil)
}

func write(w http.ResponseWriter, status int, payload Payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("respond: encode payload failed", "error", err)
	}
}
