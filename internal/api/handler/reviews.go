package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/internal/api/response"
	"github.com/kiranshivaraju/surveyportal/internal/manifest"
	"github.com/kiranshivaraju/surveyportal/internal/upload"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// Reviewer manages manifest review sessions.
type Reviewer interface {
	Open(ctx context.Context, partnerID uuid.UUID, uploadID, roomID string) (*manifest.Review, error)
	Get(ctx context.Context, partnerID, reviewID uuid.UUID) (*manifest.Review, error)
	Toggle(ctx context.Context, partnerID, reviewID uuid.UUID, itemID string) (*manifest.Review, error)
	SelectAll(ctx context.Context, partnerID, reviewID uuid.UUID) (*manifest.Review, error)
	DeselectAll(ctx context.Context, partnerID, reviewID uuid.UUID) (*manifest.Review, error)
	Confirm(ctx context.Context, partnerID, reviewID uuid.UUID) (*models.ManifestImport, error)
}

type reviewItem struct {
	models.AnalysisItem
	Selected bool `json:"selected"`
}

type reviewResponse struct {
	ID            uuid.UUID    `json:"id"`
	UploadID      string       `json:"upload_id"`
	RoomID        string       `json:"room_id"`
	Items         []reviewItem `json:"items"`
	SelectedCount int          `json:"selected_count"`
	CreatedAt     time.Time    `json:"created_at"`
}

func toReviewResponse(rv *manifest.Review) reviewResponse {
	resp := reviewResponse{
		ID:        rv.ID,
		UploadID:  rv.UploadID,
		RoomID:    rv.RoomID,
		Items:     make([]reviewItem, len(rv.Items)),
		CreatedAt: rv.CreatedAt,
	}
	for i, it := range rv.Items {
		selected := rv.Selected[it.ID]
		resp.Items[i] = reviewItem{AnalysisItem: it, Selected: selected}
		if selected {
			resp.SelectedCount++
		}
	}
	return resp
}

// NewOpenReviewHandler returns an http.HandlerFunc for POST /api/v1/uploads/{uploadID}/reviews.
func NewOpenReviewHandler(svc Reviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}

		var req struct {
			RoomID string `json:"room_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		review, err := svc.Open(r.Context(), partnerID, chi.URLParam(r, "uploadID"), req.RoomID)
		if err != nil {
			writeReviewError(w, err)
			return
		}
		response.Created(w, toReviewResponse(review))
	}
}

// NewGetReviewHandler returns an http.HandlerFunc for GET /api/v1/reviews/{reviewID}.
func NewGetReviewHandler(svc Reviewer) http.HandlerFunc {
	return reviewAction(func(r *http.Request, partnerID, reviewID uuid.UUID) (*manifest.Review, error) {
		return svc.Get(r.Context(), partnerID, reviewID)
	})
}

// NewToggleItemHandler returns an http.HandlerFunc for
// POST /api/v1/reviews/{reviewID}/items/{itemID}/toggle.
func NewToggleItemHandler(svc Reviewer) http.HandlerFunc {
	return reviewAction(func(r *http.Request, partnerID, reviewID uuid.UUID) (*manifest.Review, error) {
		return svc.Toggle(r.Context(), partnerID, reviewID, chi.URLParam(r, "itemID"))
	})
}

func NewSelectAllHandler(svc Reviewer) http.HandlerFunc {
	return reviewAction(func(r *http.Request, partnerID, reviewID uuid.UUID) (*manifest.Review, error) {
		return svc.SelectAll(r.Context(), partnerID, reviewID)
	})
}

func NewDeselectAllHandler(svc Reviewer) http.HandlerFunc {
	return reviewAction(func(r *http.Request, partnerID, reviewID uuid.UUID) (*manifest.Review, error) {
		return svc.DeselectAll(r.Context(), partnerID, reviewID)
	})
}

// NewConfirmReviewHandler returns an http.HandlerFunc for
// POST /api/v1/reviews/{reviewID}/confirm. A failed import leaves the review open.
func NewConfirmReviewHandler(svc Reviewer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}
		reviewID, ok := reviewIDFrom(w, r)
		if !ok {
			return
		}

		imp, err := svc.Confirm(r.Context(), partnerID, reviewID)
		if err != nil {
			writeReviewError(w, err)
			return
		}
		response.Created(w, imp)
	}
}

func reviewAction(fn func(r *http.Request, partnerID, reviewID uuid.UUID) (*manifest.Review, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}
		reviewID, ok := reviewIDFrom(w, r)
		if !ok {
			return
		}

		review, err := fn(r, partnerID, reviewID)
		if err != nil {
			writeReviewError(w, err)
			return
		}
		response.JSON(w, toReviewResponse(review))
	}
}

func reviewIDFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "reviewID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REVIEW_ID", "Invalid review ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeReviewError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, manifest.ErrReviewNotFound):
		response.Error(w, http.StatusNotFound, "REVIEW_NOT_FOUND", "Review not found", nil)
	case errors.Is(err, upload.ErrNotFound):
		response.Error(w, http.StatusNotFound, "UPLOAD_NOT_FOUND", "Upload not found", nil)
	case errors.Is(err, manifest.ErrItemNotFound):
		response.Error(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not in review", nil)
	case errors.Is(err, manifest.ErrNotCompleted):
		response.Error(w, http.StatusConflict, "ANALYSIS_NOT_COMPLETED", err.Error(), nil)
	case errors.Is(err, manifest.ErrNothingSelected):
		response.Error(w, http.StatusBadRequest, "NOTHING_SELECTED", "Select at least one item to import", nil)
	case errors.Is(err, manifest.ErrRoomRequired):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "room_id is required", nil)
	case errors.Is(err, manifest.ErrConfirmInProgress):
		response.Error(w, http.StatusConflict, "CONFIRM_IN_PROGRESS", "This review is already being imported", nil)
	case errors.Is(err, manifest.ErrDuplicateItem):
		response.Error(w, http.StatusBadGateway, "BAD_MANIFEST", err.Error(), nil)
	default:
		slog.Warn("review operation failed", "error", err)
		writeBackendError(w, err)
	}
}
