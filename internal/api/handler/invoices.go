package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kiranshivaraju/surveyportal/internal/api/response"
	"github.com/kiranshivaraju/surveyportal/internal/invoice"
)

type invoicePreview struct {
	invoice.Draft
	Subtotal int64 `json:"subtotal_cents"`
}

// NewInvoicePreviewHandler returns an http.HandlerFunc for POST /api/v1/invoices/preview.
// It recomputes the draft from whichever of discount and balance due was edited last.
func NewInvoicePreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := partnerFrom(w, r); !ok {
			return
		}

		var d invoice.Draft
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if err := d.Recalculate(); err != nil {
			if errors.Is(err, invoice.ErrInvalid) {
				response.Error(w, http.StatusBadRequest, "INVALID_INVOICE", err.Error(), nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to compute invoice", nil)
			return
		}

		response.JSON(w, invoicePreview{Draft: d, Subtotal: d.Subtotal()})
	}
}
