// Package models contains shared data models used across the survey portal.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner represents a moving company using the portal. Every upload, API key and
// manifest import belongs to a partner.
type Partner struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
