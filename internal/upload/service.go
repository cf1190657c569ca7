package upload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/internal/survey"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

var (
	ErrNotFound     = errors.New("upload not found")
	ErrNotRetryable = errors.New("only failed uploads can be retried")
)

// Ledger persists upload jobs. The tracker stays the live source of truth; the
// ledger is the durable history.
type Ledger interface {
	CreateUploadJob(ctx context.Context, job *models.UploadJob) error
	UpdateUploadJobStatus(ctx context.Context, uploadID string, status models.UploadStatus, message string) error
	// UploadOwner reports the partner recorded for uploadID, if any.
	UploadOwner(ctx context.Context, uploadID string) (uuid.UUID, bool, error)
}

// Service orchestrates uploads and owns the job tracker.
type Service struct {
	client   survey.Client
	tracker  *Tracker
	ledger   Ledger
	notifier Notifier
	maxBytes int64
	logger   *slog.Logger
}

func NewService(client survey.Client, ledger Ledger, notifier Notifier, maxBytes int64) *Service {
	return &Service{
		client:   client,
		tracker:  NewTracker(),
		ledger:   ledger,
		notifier: notifier,
		maxBytes: maxBytes,
		logger:   slog.Default().With("component", "upload"),
	}
}

func (s *Service) Tracker() *Tracker { return s.tracker }

// Start validates f, transfers it through a signed URL, submits it for analysis
// and begins tracking the job. Nothing is tracked unless submission succeeds.
// progress may be nil.
func (s *Service) Start(ctx context.Context, partnerID uuid.UUID, f File, progress func(int)) (*models.UploadJob, error) {
	if err := Validate(f, s.maxBytes); err != nil {
		return nil, err
	}
	contentType := normalizeContentType(f.ContentType)

	signed, err := s.client.PresignUpload(ctx, f.Name, contentType)
	if err != nil {
		return nil, fmt.Errorf("requesting upload url: %w", err)
	}

	log := s.logger.With("upload_id", signed.UploadID, "file_name", signed.FileName)
	err = s.client.Upload(ctx, survey.UploadRequest{
		URL:         signed.URL,
		ContentType: contentType,
		Body:        f.Content,
		Size:        f.Size,
		Progress: func(pct int) {
			log.Debug("upload progress", "percent", pct)
			if progress != nil {
				progress(pct)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	submitted, err := s.client.ProcessUpload(ctx, signed.UploadID)
	if err != nil {
		return nil, fmt.Errorf("submitting upload: %w", err)
	}

	now := time.Now().UTC()
	job := models.UploadJob{
		UploadID:    submitted.UploadID,
		PartnerID:   partnerID,
		Status:      submitted.Status,
		Message:     submitted.Message,
		FileName:    signed.FileName,
		ContentType: contentType,
		SizeBytes:   f.Size,
		S3Key:       signed.S3Key,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tracker.Track(job)
	log.Info("upload submitted", "status", job.Status)

	if err := s.ledger.CreateUploadJob(ctx, &job); err != nil {
		log.Error("failed to record upload job", "error", err)
	}
	return &job, nil
}

// Resume tracks the jobs the backend already knows for this account, so that
// outstanding ones are polled again. Each job keeps the owner recorded in the
// ledger; fallbackPartner owns only jobs the ledger has never seen. A job
// whose owner cannot be looked up is skipped rather than reassigned.
func (s *Service) Resume(ctx context.Context, fallbackPartner uuid.UUID) (int, error) {
	jobs, err := s.client.ListUploads(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing uploads: %w", err)
	}
	tracked := 0
	for i := range jobs {
		job := jobs[i]
		log := s.logger.With("upload_id", job.UploadID)

		owner, known, err := s.ledger.UploadOwner(ctx, job.UploadID)
		if err != nil {
			log.Error("failed to look up upload owner, not resuming", "error", err)
			continue
		}
		if !known {
			owner = fallbackPartner
		}
		job.PartnerID = owner
		s.tracker.Track(job)
		tracked++

		if err := s.ledger.CreateUploadJob(ctx, &job); err != nil {
			log.Error("failed to record upload job", "error", err)
		}
	}
	s.logger.Info("resumed uploads", "count", tracked, "listed", len(jobs))
	return tracked, nil
}

// Get returns the live status of a partner's job.
func (s *Service) Get(partnerID uuid.UUID, uploadID string) (models.UploadJob, error) {
	job, ok := s.tracker.Get(uploadID)
	if !ok || job.PartnerID != partnerID {
		return models.UploadJob{}, ErrNotFound
	}
	return job, nil
}

// Retry resubmits a Failed job under its existing id. The job reads Pending
// while the call is in flight. If resubmission fails it reverts to Failed with
// the new error's message.
func (s *Service) Retry(ctx context.Context, partnerID uuid.UUID, uploadID string) (*models.UploadJob, error) {
	if _, err := s.Get(partnerID, uploadID); err != nil {
		return nil, err
	}

	tk, _, err := s.tracker.BeginRetry(uploadID)
	if err != nil {
		return nil, err
	}
	// The ledger must follow the tracker even if the caller goes away mid-call.
	bg := context.WithoutCancel(ctx)
	s.persist(bg, uploadID, models.UploadStatusPending, "")

	resp, err := s.client.ProcessUpload(ctx, uploadID)
	if err != nil {
		change, _ := s.tracker.FinishRetry(tk, models.UploadStatusFailed, err.Error())
		if change.Changed {
			s.persist(bg, uploadID, change.Job.Status, change.Job.Message)
		}
		return nil, fmt.Errorf("resubmitting upload: %w", err)
	}

	change, ok := s.tracker.FinishRetry(tk, resp.Status, resp.Message)
	if !ok {
		job, _ := s.tracker.Get(uploadID)
		return &job, nil
	}
	s.record(bg, change)
	return &change.Job, nil
}

// record persists an applied change and announces terminal transitions.
func (s *Service) record(ctx context.Context, c Change) {
	if !c.Changed {
		return
	}
	s.persist(ctx, c.Job.UploadID, c.Job.Status, c.Job.Message)
	if c.BecameTerminal() {
		if err := s.notifier.Notify(ctx, newNotification(c.Job)); err != nil {
			s.logger.Warn("notification failed", "upload_id", c.Job.UploadID, "error", err)
		}
	}
}

func (s *Service) persist(ctx context.Context, uploadID string, status models.UploadStatus, message string) {
	if err := s.ledger.UpdateUploadJobStatus(ctx, uploadID, status, message); err != nil {
		s.logger.Error("failed to update upload job", "upload_id", uploadID, "status", status, "error", err)
	}
}
