package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Partners ---

func (s *PostgresStore) GetDefaultPartner(ctx context.Context) (*models.Partner, error) {
	var p models.Partner
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_at, updated_at FROM partners WHERE name = 'default' LIMIT 1`,
	).Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get default partner: %w", err)
	}
	return &p, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, partner_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.PartnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, partner_id, name, key_hash, key_prefix, scopes, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		key.ID, key.PartnerID, key.Name, key.KeyHash, key.KeyPrefix, key.Scopes, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAPIKeys(ctx context.Context, partnerID uuid.UUID) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, partner_id, name, key_hash, key_prefix, scopes, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE partner_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.PartnerID, &k.Name, &k.KeyHash, &k.KeyPrefix, &k.Scopes,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) RevokeAPIKey(ctx context.Context, id uuid.UUID, partnerID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET deleted_at = NOW(), updated_at = NOW()
		 WHERE id = $1 AND partner_id = $2 AND deleted_at IS NULL`, id, partnerID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Upload Jobs ---

const uploadJobColumns = `upload_id, partner_id, file_name, content_type, size_bytes, s3_key, status, message, created_at, updated_at`

func scanUploadJob(row pgx.Row) (*models.UploadJob, error) {
	var j models.UploadJob
	err := row.Scan(&j.UploadID, &j.PartnerID, &j.FileName, &j.ContentType, &j.SizeBytes, &j.S3Key,
		&j.Status, &j.Message, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateUploadJob records a job. Recording a known upload id refreshes its
// status instead, so resuming is idempotent.
func (s *PostgresStore) CreateUploadJob(ctx context.Context, job *models.UploadJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO upload_jobs (`+uploadJobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (upload_id) DO UPDATE SET
		   status = EXCLUDED.status,
		   message = EXCLUDED.message,
		   updated_at = NOW()`,
		job.UploadID, job.PartnerID, job.FileName, job.ContentType, job.SizeBytes, job.S3Key,
		job.Status, job.Message, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create upload job: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateUploadJobStatus(ctx context.Context, uploadID string, status models.UploadStatus, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE upload_jobs SET status = $2, message = $3, updated_at = $4 WHERE upload_id = $1`,
		uploadID, status, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update upload job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetUploadJob(ctx context.Context, uploadID string, partnerID uuid.UUID) (*models.UploadJob, error) {
	j, err := scanUploadJob(s.pool.QueryRow(ctx,
		`SELECT `+uploadJobColumns+` FROM upload_jobs WHERE upload_id = $1 AND partner_id = $2`,
		uploadID, partnerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload job: %w", err)
	}
	return j, nil
}

// UploadOwner returns the partner a job was first recorded for. It is the one
// lookup not scoped by partner, used when resuming backend jobs.
func (s *PostgresStore) UploadOwner(ctx context.Context, uploadID string) (uuid.UUID, bool, error) {
	var owner uuid.UUID
	err := s.pool.QueryRow(ctx,
		`SELECT partner_id FROM upload_jobs WHERE upload_id = $1`, uploadID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("get upload owner: %w", err)
	}
	return owner, true, nil
}

func (s *PostgresStore) ListUploadJobs(ctx context.Context, filter UploadFilter) ([]*models.UploadJob, int, error) {
	// Build WHERE clause dynamically
	conditions := []string{"partner_id = $1"}
	args := []any{filter.PartnerID}
	argIdx := 2

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, filter.Status)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM upload_jobs WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count upload jobs: %w", err)
	}

	// Normalize pagination
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM upload_jobs WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		uploadJobColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list upload jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.UploadJob
	for rows.Next() {
		j, err := scanUploadJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan upload job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// --- Manifest Imports ---

func (s *PostgresStore) CreateManifestImport(ctx context.Context, imp *models.ManifestImport) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO manifest_imports (id, partner_id, upload_id, room_id, item_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		imp.ID, imp.PartnerID, imp.UploadID, imp.RoomID, imp.ItemCount, imp.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create manifest import: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListManifestImports(ctx context.Context, uploadID string, partnerID uuid.UUID) ([]*models.ManifestImport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, partner_id, upload_id, room_id, item_count, created_at
		 FROM manifest_imports WHERE upload_id = $1 AND partner_id = $2 ORDER BY created_at DESC`,
		uploadID, partnerID)
	if err != nil {
		return nil, fmt.Errorf("list manifest imports: %w", err)
	}
	defer rows.Close()

	imports := []*models.ManifestImport{}
	for rows.Next() {
		var m models.ManifestImport
		if err := rows.Scan(&m.ID, &m.PartnerID, &m.UploadID, &m.RoomID, &m.ItemCount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan manifest import: %w", err)
		}
		imports = append(imports, &m)
	}
	return imports, rows.Err()
}


// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
