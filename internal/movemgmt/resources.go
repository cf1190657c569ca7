package movemgmt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// wireCodec adapts a pair of conversion functions to codec.
type wireCodec[M, W any] struct {
	toModel func(W) (M, error)
	toWire  func(M) (W, error)
}

func (c wireCodec[M, W]) decode(raw json.RawMessage) (M, error) {
	var w W
	if err := json.Unmarshal(raw, &w); err != nil {
		var zero M
		return zero, err
	}
	return c.toModel(w)
}

func (c wireCodec[M, W]) encode(m M) (any, error) {
	return c.toWire(m)
}

// --- moves ---

// MoveService manages moves. Status values are translated at this boundary.
type MoveService struct {
	*Resource[models.Move]
}

// UpdateStatus sets a move's status, keeping every other field as MoveMgmt has it.
func (s *MoveService) UpdateStatus(ctx context.Context, id string, status models.MoveStatus) (*models.Move, error) {
	if _, err := StatusToWire(status); err != nil {
		return nil, err
	}
	m, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Status = status
	return s.Update(ctx, id, *m)
}

type moveWire struct {
	ID                 string     `json:"id"`
	CustomerName       string     `json:"customerName"`
	CustomerEmail      string     `json:"customerEmail,omitempty"`
	CustomerPhone      string     `json:"customerPhone,omitempty"`
	OriginAddress      string     `json:"originAddress"`
	DestinationAddress string     `json:"destinationAddress"`
	MoveDate           *time.Time `json:"moveDate,omitempty"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

var moveCodec = wireCodec[models.Move, moveWire]{
	toModel: func(w moveWire) (models.Move, error) {
		st, err := StatusFromWire(w.Status)
		if err != nil {
			return models.Move{}, fmt.Errorf("move %s: %w", w.ID, err)
		}
		return models.Move{
			ID:            w.ID,
			CustomerName:  w.CustomerName,
			CustomerEmail: w.CustomerEmail,
			CustomerPhone: w.CustomerPhone,
			OriginAddress: w.OriginAddress,
			DestAddress:   w.DestinationAddress,
			MoveDate:      w.MoveDate,
			Status:        st,
			CreatedAt:     w.CreatedAt,
			UpdatedAt:     w.UpdatedAt,
		}, nil
	},
	toWire: func(m models.Move) (moveWire, error) {
		st, err := StatusToWire(m.Status)
		if err != nil {
			return moveWire{}, err
		}
		return moveWire{
			ID:                 m.ID,
			CustomerName:       m.CustomerName,
			CustomerEmail:      m.CustomerEmail,
			CustomerPhone:      m.CustomerPhone,
			OriginAddress:      m.OriginAddress,
			DestinationAddress: m.DestAddress,
			MoveDate:           m.MoveDate,
			Status:             st,
			CreatedAt:          m.CreatedAt,
			UpdatedAt:          m.UpdatedAt,
		}, nil
	},
}

// --- houses and rooms ---

type houseWire struct {
	ID      string `json:"id"`
	MoveID  string `json:"moveId"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

var houseCodec = wireCodec[models.MoveHouse, houseWire]{
	toModel: func(w houseWire) (models.MoveHouse, error) {
		return models.MoveHouse(w), nil
	},
	toWire: func(m models.MoveHouse) (houseWire, error) {
		return houseWire(m), nil
	},
}

type roomWire struct {
	ID          string `json:"id"`
	MoveHouseID string `json:"moveHouseId"`
	Name        string `json:"name"`
	Floor       int    `json:"floor"`
}

var roomCodec = wireCodec[models.MoveRoom, roomWire]{
	toModel: func(w roomWire) (models.MoveRoom, error) {
		return models.MoveRoom(w), nil
	},
	toWire: func(m models.MoveRoom) (roomWire, error) {
		return roomWire(m), nil
	},
}

// --- item statuses ---

// ItemStatusService manages inventory records, including bulk import.
type ItemStatusService struct {
	*Resource[models.ItemStatus]
}

// BulkCreate creates all items in one call. MoveMgmt either accepts the whole
// batch or rejects it.
func (s *ItemStatusService) BulkCreate(ctx context.Context, items []models.ItemStatus) ([]models.ItemStatus, error) {
	req := bulkItemStatusRequest{ItemStatuses: make([]itemStatusWire, 0, len(items))}
	for _, it := range items {
		req.ItemStatuses = append(req.ItemStatuses, itemStatusWire(it))
	}

	var raw json.RawMessage
	if err := s.c.do(ctx, http.MethodPost, s.path+"/bulk", req, &raw); err != nil {
		return nil, err
	}

	if len(raw) == 0 {
		return items, nil
	}

	// MoveMgmt answers either the created array or an envelope around it.
	var created []itemStatusWire
	if err := json.Unmarshal(raw, &created); err != nil {
		var env bulkItemStatusRequest
		if err2 := json.Unmarshal(raw, &env); err2 != nil {
			return nil, fmt.Errorf("decoding bulk response: %w", err)
		}
		created = env.ItemStatuses
	}

	out := make([]models.ItemStatus, 0, len(created))
	for _, w := range created {
		out = append(out, models.ItemStatus(w))
	}
	return out, nil
}

type bulkItemStatusRequest struct {
	ItemStatuses []itemStatusWire `json:"itemStatuses"`
}

type itemStatusWire struct {
	ID             string     `json:"id"`
	MoveRoomID     string     `json:"moveRoomId"`
	IsPacked       bool       `json:"isPacked"`
	IsHighValue    bool       `json:"isHighValue"`
	IsFragile      bool       `json:"isFragile"`
	PackedByUserID string     `json:"packedByUserId"`
	PackedAt       *time.Time `json:"packedAt"`
}

var itemStatusCodec = wireCodec[models.ItemStatus, itemStatusWire]{
	toModel: func(w itemStatusWire) (models.ItemStatus, error) {
		return models.ItemStatus(w), nil
	},
	toWire: func(m models.ItemStatus) (itemStatusWire, error) {
		return itemStatusWire(m), nil
	},
}

// --- quality control and photos ---

type qcWire struct {
	ID           string    `json:"id"`
	ItemStatusID string    `json:"itemStatusId"`
	CheckedBy    string    `json:"checkedBy"`
	Passed       bool      `json:"passed"`
	Notes        string    `json:"notes,omitempty"`
	CheckedAt    time.Time `json:"checkedAt"`
}

var qcCodec = wireCodec[models.ItemQualityControl, qcWire]{
	toModel: func(w qcWire) (models.ItemQualityControl, error) {
		return models.ItemQualityControl(w), nil
	},
	toWire: func(m models.ItemQualityControl) (qcWire, error) {
		return qcWire(m), nil
	},
}

type photoWire struct {
	ID           string    `json:"id"`
	ItemStatusID string    `json:"itemStatusId"`
	URL          string    `json:"url"`
	Caption      string    `json:"caption,omitempty"`
	TakenAt      time.Time `json:"takenAt"`
}

var photoCodec = wireCodec[models.ItemPhoto, photoWire]{
	toModel: func(w photoWire) (models.ItemPhoto, error) {
		return models.ItemPhoto(w), nil
	},
	toWire: func(m models.ItemPhoto) (photoWire, error) {
		return photoWire(m), nil
	},
}
