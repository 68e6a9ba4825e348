// Package domain holds the Shelfwise entities persisted by the store and shaped by the services.
package domain

import "time"

// Timestamps carries the identifier and lifecycle times shared by every stored entity.
type Timestamps struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// InitTimestamps sets both CreatedAt and UpdatedAt to now.
// Call this when creating a new entity.
func (t *Timestamps) InitTimestamps() {
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
}

// Touch updates the UpdatedAt timestamp to the current time.
func (t *Timestamps) Touch() {
	t.UpdatedAt = time.Now().UTC()
}
