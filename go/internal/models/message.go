package models

import "time"

// Role identifies the author of a timeline message.
type Role string

const (
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleSystem Role = "system"
)

// Message is one entry in a session's chat timeline. IDs are generated
// locally for optimistic entries and server-issued for fetched ones; both
// only need to be unique within a session.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}
