package models

import "time"

// APIResponse is the envelope every HTTP handler writes. Data carries
// the payload on success, Error a user-facing message on failure. List
// payloads keep their paging fields inline next to their data slice.
type APIResponse struct {
	Success   bool        `json:"success"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
