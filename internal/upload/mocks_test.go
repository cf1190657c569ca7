package upload

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/surveyportal/internal/survey"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// --- mock survey client ---

type mockSurvey struct {
	mu    sync.Mutex
	calls []string

	presignFn func(fileName, contentType string) (*survey.PresignedUpload, error)
	uploadFn  func(req survey.UploadRequest) error
	processFn func(uploadID string) (*survey.StatusResponse, error)
	statusFn  func(ctx context.Context, uploadID string) (*survey.StatusResponse, error)
	listFn    func() ([]models.UploadJob, error)
}

func (m *mockSurvey) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockSurvey) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockSurvey) PresignUpload(_ context.Context, fileName, contentType string) (*survey.PresignedUpload, error) {
	m.record("presign")
	if m.presignFn != nil {
		return m.presignFn(fileName, contentType)
	}
	return &survey.PresignedUpload{URL: "https://bucket.example/put", S3Key: "surveys/" + fileName, UploadID: "U1", FileName: fileName}, nil
}

func (m *mockSurvey) Upload(_ context.Context, req survey.UploadRequest) error {
	m.record("upload")
	if m.uploadFn != nil {
		return m.uploadFn(req)
	}
	if req.Progress != nil {
		req.Progress(100)
	}
	return nil
}

func (m *mockSurvey) ProcessUpload(_ context.Context, uploadID string) (*survey.StatusResponse, error) {
	m.record("process:" + uploadID)
	if m.processFn != nil {
		return m.processFn(uploadID)
	}
	return &survey.StatusResponse{UploadID: uploadID, Status: models.UploadStatusPending}, nil
}

func (m *mockSurvey) UploadStatus(ctx context.Context, uploadID string) (*survey.StatusResponse, error) {
	m.record("status:" + uploadID)
	return m.statusFn(ctx, uploadID)
}

func (m *mockSurvey) ListUploads(_ context.Context) ([]models.UploadJob, error) {
	m.record("list")
	return m.listFn()
}

func (m *mockSurvey) Analysis(_ context.Context, uploadID string) ([]models.AnalysisItem, error) {
	m.record("analysis:" + uploadID)
	return nil, nil
}

// --- mock ledger ---

type statusUpdate struct {
	UploadID string
	Status   models.UploadStatus
	Message  string
}

type mockLedger struct {
	mu      sync.Mutex
	created []models.UploadJob
	updates []statusUpdate

	owners   map[string]uuid.UUID
	ownerErr error
	// strictCtx makes writes fail on a done context, as a database would.
	strictCtx bool
}

func (l *mockLedger) CreateUploadJob(ctx context.Context, job *models.UploadJob) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.strictCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	l.created = append(l.created, *job)
	return nil
}

func (l *mockLedger) UpdateUploadJobStatus(ctx context.Context, uploadID string, status models.UploadStatus, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.strictCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	l.updates = append(l.updates, statusUpdate{uploadID, status, message})
	return nil
}

func (l *mockLedger) UploadOwner(_ context.Context, uploadID string) (uuid.UUID, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ownerErr != nil {
		return uuid.Nil, false, l.ownerErr
	}
	owner, ok := l.owners[uploadID]
	return owner, ok, nil
}

func (l *mockLedger) Created() []models.UploadJob {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.UploadJob(nil), l.created...)
}

func (l *mockLedger) Updates() []statusUpdate {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]statusUpdate(nil), l.updates...)
}

// --- recording notifier ---

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}
