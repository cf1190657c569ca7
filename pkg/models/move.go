package models

import "time"

// MoveStatus is the portal-facing move status. MoveMgmt spells these differently
// on the wire; translation happens in the movemgmt client.
type MoveStatus string

const (
	MoveStatusPending    MoveStatus = "pending"
	MoveStatusScheduled  MoveStatus = "scheduled"
	MoveStatusInProgress MoveStatus = "in_progress"
	MoveStatusCompleted  MoveStatus = "completed"
	MoveStatusCancelled  MoveStatus = "cancelled"
)

// Valid reports whether s is one of the known move statuses.
func (s MoveStatus) Valid() bool {
	switch s {
	case MoveStatusPending, MoveStatusScheduled, MoveStatusInProgress, MoveStatusCompleted, MoveStatusCancelled:
		return true
	}
	return false
}

type Move struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	OriginAddress string     `json:"origin_address"`
	DestAddress   string     `json:"destination_address"`
	MoveDate      *time.Time `json:"move_date,omitempty"`
	Status        MoveStatus `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type MoveHouse struct {
	ID      string `json:"id"`
	MoveID  string `json:"move_id"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type MoveRoom struct {
	ID          string `json:"id"`
	MoveHouseID string `json:"move_house_id"`
	Name        string `json:"name"`
	Floor       int    `json:"floor"`
}

type ItemQualityControl struct {
	ID           string    `json:"id"`
	ItemStatusID string    `json:"item_status_id"`
	CheckedBy    string    `json:"checked_by"`
	Passed       bool      `json:"passed"`
	Notes        string    `json:"notes,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

type ItemPhoto struct {
	ID           string    `json:"id"`
	ItemStatusID string    `json:"item_status_id"`
	URL          string    `json:"url"`
	Caption      string    `json:"caption,omitempty"`
	TakenAt      time.Time `json:"taken_at"`
}
