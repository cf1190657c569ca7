package models

import (
	"time"

	"github.com/google/uuid"
)

// ItemStatus is an inventory record in the MoveMgmt system of record. Imported
// items keep the identifier of the analysis item they were created from.
type ItemStatus struct {
	ID             string     `json:"id"`
	MoveRoomID     string     `json:"move_room_id"`
	IsPacked       bool       `json:"is_packed"`
	IsHighValue    bool       `json:"is_high_value"`
	IsFragile      bool       `json:"is_fragile"`
	PackedByUserID string     `json:"packed_by_user_id"`
	PackedAt       *time.Time `json:"packed_at,omitempty"`
}

// ManifestImport records one confirmed manifest review.
type ManifestImport struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	PartnerID uuid.UUID `db:"partner_id" json:"partner_id"`
	UploadID  string    `db:"upload_id"  json:"upload_id"`
	RoomID    string    `db:"room_id"    json:"room_id"`
	ItemCount int       `db:"item_count" json:"item_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
