package models

import "time"

// Message represents one stored turn of a thread.
type Message struct {
	ID        string    `json:"id"` // ULID
	ThreadID  string    `json:"-"`
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	ImageType string    `json:"imageType,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
