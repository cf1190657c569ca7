// Package manifest lets a partner review the items found in a completed survey
// and import the chosen ones as inventory records.
package manifest

import (
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// Review is an open manifest review session. It covers the items of exactly one
// Completed upload, in manifest order. Item ids are unique within a review, so
// Selected is keyed by id.
type Review struct {
	ID        uuid.UUID             `json:"id"`
	PartnerID uuid.UUID             `json:"partner_id"`
	UploadID  string                `json:"upload_id"`
	RoomID    string                `json:"room_id"`
	Items     []models.AnalysisItem `json:"items"`
	Selected  map[string]bool       `json:"selected"`
	CreatedAt time.Time             `json:"created_at"`
}

func newReview(partnerID uuid.UUID, uploadID, roomID string, items []models.AnalysisItem) *Review {
	r := &Review{
		ID:        uuid.New(),
		PartnerID: partnerID,
		UploadID:  uploadID,
		RoomID:    roomID,
		Items:     items,
		Selected:  make(map[string]bool, len(items)),
		CreatedAt: time.Now().UTC(),
	}
	r.selectAll(true)
	return r
}

func (r *Review) has(itemID string) bool {
	for _, it := range r.Items {
		if it.ID == itemID {
			return true
		}
	}
	return false
}

func (r *Review) toggle(itemID string) {
	r.Selected[itemID] = !r.Selected[itemID]
}

func (r *Review) selectAll(selected bool) {
	for _, it := range r.Items {
		r.Selected[it.ID] = selected
	}
}

// SelectedItems returns the selected items in manifest order.
func (r *Review) SelectedItems() []models.AnalysisItem {
	var out []models.AnalysisItem
	for _, it := range r.Items {
		if r.Selected[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// inventoryRecords builds one record per selected item with default flags.
func (r *Review) inventoryRecords() []models.ItemStatus {
	selected := r.SelectedItems()
	records := make([]models.ItemStatus, 0, len(selected))
	for _, it := range selected {
		records = append(records, models.ItemStatus{
			ID:             it.ID,
			MoveRoomID:     r.RoomID,
			IsPacked:       false,
			IsHighValue:    false,
			IsFragile:      false,
			PackedByUserID: "",
		})
	}
	return records
}
