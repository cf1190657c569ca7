package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/internal/api/response"
	"github.com/kiranshivaraju/surveyportal/internal/store"
	"github.com/kiranshivaraju/surveyportal/internal/upload"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// Uploader runs the upload pipeline and answers live job status.
type Uploader interface {
	Start(ctx context.Context, partnerID uuid.UUID, f upload.File, progress func(int)) (*models.UploadJob, error)
	Get(partnerID uuid.UUID, uploadID string) (models.UploadJob, error)
	Retry(ctx context.Context, partnerID uuid.UUID, uploadID string) (*models.UploadJob, error)
}

// UploadLedger is the durable history of uploads and their imports.
type UploadLedger interface {
	GetUploadJob(ctx context.Context, uploadID string, partnerID uuid.UUID) (*models.UploadJob, error)
	ListUploadJobs(ctx context.Context, filter store.UploadFilter) ([]*models.UploadJob, int, error)
	ListManifestImports(ctx context.Context, uploadID string, partnerID uuid.UUID) ([]*models.ManifestImport, error)
}

// errFileTooLarge is returned by spool when the part exceeds the limit.
var errFileTooLarge = errors.New("file too large")

// NewCreateUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads.
// The multipart "file" part is spooled to spoolDir so the transfer can report
// progress against a known size.
func NewCreateUploadHandler(svc Uploader, maxBytes int64, spoolDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}

		mr, err := r.MultipartReader()
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Expected multipart/form-data body", nil)
			return
		}

		var f *upload.File
		for f == nil {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Malformed multipart body", nil)
				return
			}
			if part.FormName() != "file" {
				part.Close()
				continue
			}

			tmp, n, err := spool(part, spoolDir, maxBytes)
			part.Close()
			if errors.Is(err, errFileTooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE",
					fmt.Sprintf("File exceeds %d bytes", maxBytes), nil)
				return
			}
			if err != nil {
				slog.Error("failed to spool upload", "error", err)
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read upload", nil)
				return
			}
			defer func() {
				tmp.Close()
				os.Remove(tmp.Name())
			}()

			f = &upload.File{
				Name:        part.FileName(),
				ContentType: part.Header.Get("Content-Type"),
				Size:        n,
				Content:     tmp,
			}
		}
		if f == nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "file is required", nil)
			return
		}

		job, err := svc.Start(r.Context(), partnerID, *f, nil)
		if err != nil {
			if errors.Is(err, upload.ErrValidation) {
				response.Error(w, http.StatusBadRequest, "INVALID_FILE", err.Error(), nil)
				return
			}
			slog.Warn("upload failed", "partner_id", partnerID, "file_name", f.Name, "error", err)
			writeBackendError(w, err)
			return
		}

		response.Accepted(w, job)
	}
}

// spool copies at most maxBytes of src into a temp file rewound to its start.
func spool(src io.Reader, dir string, maxBytes int64) (*os.File, int64, error) {
	tmp, err := os.CreateTemp(dir, "survey-upload-*")
	if err != nil {
		return nil, 0, fmt.Errorf("create spool file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, io.LimitReader(src, maxBytes+1))
	if err != nil {
		cleanup()
		return nil, 0, fmt.Errorf("write spool file: %w", err)
	}
	if n > maxBytes {
		cleanup()
		return nil, 0, errFileTooLarge
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, fmt.Errorf("rewind spool file: %w", err)
	}
	return tmp, n, nil
}

// NewListUploadsHandler returns an http.HandlerFunc for GET /api/v1/uploads.
func NewListUploadsHandler(ledger UploadLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}

		filter := store.UploadFilter{PartnerID: partnerID}
		filter.Page, filter.Limit = pagination(r)
		if v := r.URL.Query().Get("status"); v != "" {
			status, err := models.ParseUploadStatus(v)
			if err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
				return
			}
			filter.Status = status
		}

		jobs, total, err := ledger.ListUploadJobs(r.Context(), filter)
		if err != nil {
			slog.Error("failed to list uploads", "partner_id", partnerID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list uploads", nil)
			return
		}
		if jobs == nil {
			jobs = []*models.UploadJob{}
		}

		response.Collection(w, jobs, response.NewPaginationMeta(filter.Page, filter.Limit, total))
	}
}

// NewGetUploadHandler returns an http.HandlerFunc for GET /api/v1/uploads/{uploadID}.
// Live tracker state wins; the ledger answers for jobs no longer tracked.
func NewGetUploadHandler(svc Uploader, ledger UploadLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}
		uploadID := chi.URLParam(r, "uploadID")

		job, err := svc.Get(partnerID, uploadID)
		if err == nil {
			response.JSON(w, job)
			return
		}

		stored, err := ledger.GetUploadJob(r.Context(), uploadID, partnerID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "UPLOAD_NOT_FOUND", "Upload not found", nil)
			return
		}
		if err != nil {
			slog.Error("failed to get upload", "upload_id", uploadID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get upload", nil)
			return
		}
		response.JSON(w, stored)
	}
}

// NewRetryUploadHandler returns an http.HandlerFunc for POST /api/v1/uploads/{uploadID}/retry.
func NewRetryUploadHandler(svc Uploader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}
		uploadID := chi.URLParam(r, "uploadID")

		job, err := svc.Retry(r.Context(), partnerID, uploadID)
		switch {
		case err == nil:
			response.Accepted(w, job)
		case errors.Is(err, upload.ErrNotFound):
			response.Error(w, http.StatusNotFound, "UPLOAD_NOT_FOUND", "Upload not found", nil)
		case errors.Is(err, upload.ErrNotRetryable):
			response.Error(w, http.StatusConflict, "NOT_RETRYABLE", "Only failed uploads can be retried", nil)
		default:
			slog.Warn("retry failed", "upload_id", uploadID, "error", err)
			writeBackendError(w, err)
		}
	}
}

// NewListImportsHandler returns an http.HandlerFunc for GET /api/v1/uploads/{uploadID}/imports.
func NewListImportsHandler(ledger UploadLedger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		partnerID, ok := partnerFrom(w, r)
		if !ok {
			return
		}
		uploadID := chi.URLParam(r, "uploadID")

		imports, err := ledger.ListManifestImports(r.Context(), uploadID, partnerID)
		if err != nil {
			slog.Error("failed to list imports", "upload_id", uploadID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list imports", nil)
			return
		}
		if imports == nil {
			imports = []*models.ManifestImport{}
		}
		response.JSON(w, imports)
	}
}
