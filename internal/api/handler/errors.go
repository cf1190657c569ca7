// Package handler contains the HTTP handlers of the portal API. Each handler
// depends on a small interface declared next to it.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/surveyportal/internal/api/middleware"
	"github.com/kiranshivaraju/surveyportal/internal/api/response"
	"github.com/kiranshivaraju/surveyportal/internal/movemgmt"
	"github.com/kiranshivaraju/surveyportal/internal/survey"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// partnerFrom returns the authenticated partner, writing a 401 when absent.
func partnerFrom(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	partnerID, ok := mw.GetPartnerID(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing partner", nil)
	}
	return partnerID, ok
}

// pagination reads page and limit query parameters, clamped to sane bounds.
func pagination(r *http.Request) (page, limit int) {
	page, limit = 1, defaultPageLimit
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = min(v, maxPageLimit)
	}
	return page, limit
}

// writeBackendError maps failures of the two backends to gateway responses.
// A MoveMgmt 404 outside a direct lookup means the backend rejected a
// reference, such as an unknown room. Anything unrecognised is an internal
// error.
func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, survey.ErrTimeout), errors.Is(err, movemgmt.ErrTimeout):
		response.Error(w, http.StatusGatewayTimeout, "BACKEND_TIMEOUT", "Backend did not respond in time", nil)
	case errors.Is(err, survey.ErrUnreachable), errors.Is(err, movemgmt.ErrUnreachable):
		response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE", "Backend is unreachable", nil)
	case errors.Is(err, movemgmt.ErrNotFound):
		response.Error(w, http.StatusUnprocessableEntity, "BACKEND_REJECTED", err.Error(), nil)
	case errors.Is(err, survey.ErrBackend), errors.Is(err, survey.ErrBadResponse), errors.Is(err, movemgmt.ErrBackend):
		response.Error(w, http.StatusBadGateway, "BACKEND_ERROR", err.Error(), nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error", nil)
	}
}
