package dto

import "time"

// Response statuses.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
}

// Success builds a success envelope.
func Success(message string, data any, path string) APIResponse {
	return APIResponse{Status: StatusSuccess, Message: message, Data: data, Path: path, Timestamp: now()}
}

// Error builds an error envelope.
func Error(message string, data any, path string) APIResponse {
	return APIResponse{Status: StatusError, Message: message, Data: data, Path: path, Timestamp: now()}
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
