package domain

import "encoding/json"

// Envelope is the uniform wire response wrapper used by every remote
// operation: {"success": bool, "data": ..., "error": "..."}.
// Data stays raw so callers can decode it into the operation's type.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// MutationRequest is the body of every mark/delete call.
// IsAll lets the server apply the operation to the receiver's entire
// collection without the client enumerating ids.
type MutationRequest struct {
	NotificationIDs []int64 `json:"notificationIds"`
	IsAll           bool    `json:"isAll"`
}

// MutationResult carries the ids the server actually affected.
// An empty list on an isAll request means "all of them".
type MutationResult struct {
	NotificationIDs []int64 `json:"notificationIds"`
}
