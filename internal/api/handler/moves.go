package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kiranshivaraju/surveyportal/internal/api/response"
	"github.com/kiranshivaraju/surveyportal/internal/movemgmt"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// MoveDirectory reads and updates moves held by the move management backend.
type MoveDirectory interface {
	List(ctx context.Context) ([]models.Move, error)
	Get(ctx context.Context, id string) (*models.Move, error)
	UpdateStatus(ctx context.Context, id string, status models.MoveStatus) (*models.Move, error)
}

// NewListMovesHandler returns an http.HandlerFunc for GET /api/v1/moves.
func NewListMovesHandler(moves MoveDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := partnerFrom(w, r); !ok {
			return
		}

		list, err := moves.List(r.Context())
		if err != nil {
			writeMoveError(w, err)
			return
		}
		if list == nil {
			list = []models.Move{}
		}
		response.JSON(w, list)
	}
}

// NewGetMoveHandler returns an http.HandlerFunc for GET /api/v1/moves/{moveID}.
func NewGetMoveHandler(moves MoveDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := partnerFrom(w, r); !ok {
			return
		}

		m, err := moves.Get(r.Context(), chi.URLParam(r, "moveID"))
		if err != nil {
			writeMoveError(w, err)
			return
		}
		response.JSON(w, m)
	}
}

// NewUpdateMoveStatusHandler returns an http.HandlerFunc for PUT /api/v1/moves/{moveID}/status.
func NewUpdateMoveStatusHandler(moves MoveDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := partnerFrom(w, r); !ok {
			return
		}

		var req struct {
			Status models.MoveStatus `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if !req.Status.Valid() {
			response.Error(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown move status", map[string]any{
				"status": req.Status,
			})
			return
		}

		m, err := moves.UpdateStatus(r.Context(), chi.URLParam(r, "moveID"), req.Status)
		if err != nil {
			writeMoveError(w, err)
			return
		}
		response.JSON(w, m)
	}
}

func writeMoveError(w http.ResponseWriter, err error) {
	if errors.Is(err, movemgmt.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "MOVE_NOT_FOUND", "Move not found", nil)
		return
	}
	slog.Warn("move request failed", "error", err)
	if errors.Is(err, movemgmt.ErrTimeout) || errors.Is(err, movemgmt.ErrUnreachable) || errors.Is(err, movemgmt.ErrBackend) {
		writeBackendError(w, err)
		return
	}
	// Decode failures, including unknown wire statuses, are bad gateway data.
	response.Error(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error(), nil)
}
