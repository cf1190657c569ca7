package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error
	GetDefaultPartner(ctx context.Context) (*models.Partner, error)

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, partnerID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, partnerID uuid.UUID) error

	CreateUploadJob(ctx context.Context, job *models.UploadJob) error
	UpdateUploadJobStatus(ctx context.Context, uploadID string, status models.UploadStatus, message string) error
	GetUploadJob(ctx context.Context, uploadID string, partnerID uuid.UUID) (*models.UploadJob, error)
	UploadOwner(ctx context.Context, uploadID string) (uuid.UUID, bool, error)
	ListUploadJobs(ctx context.Context, filter UploadFilter) ([]*models.UploadJob, int, error)

	CreateManifestImport(ctx context.Context, imp *models.ManifestImport) error
	ListManifestImports(ctx context.Context, uploadID string, partnerID uuid.UUID) ([]*models.ManifestImport, error)
}

type UploadFilter struct {
	PartnerID uuid.UUID
	Status    models.UploadStatus
	Page      int
	Limit     int
}
