package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/pkg/models"
)

var (
	ErrNotCompleted    = errors.New("upload analysis is not completed")
	ErrReviewNotFound  = errors.New("review not found")
	ErrItemNotFound    = errors.New("item not in review")
	ErrNothingSelected = errors.New("no items selected")
	ErrRoomRequired    = errors.New("room id is required")

	// ErrConfirmInProgress is returned while another import of the same review
	// is in flight.
	ErrConfirmInProgress = errors.New("review import already in progress")

	// ErrDuplicateItem rejects a manifest that lists one item id twice.
	ErrDuplicateItem = errors.New("manifest lists an item id more than once")
)

// Jobs looks up a partner's tracked upload job.
type Jobs interface {
	Get(partnerID uuid.UUID, uploadID string) (models.UploadJob, error)
}

// Fetcher retrieves the analysis manifest of an upload.
type Fetcher interface {
	Analysis(ctx context.Context, uploadID string) ([]models.AnalysisItem, error)
}

// Inventory is the system of record for imported items.
type Inventory interface {
	BulkCreate(ctx context.Context, items []models.ItemStatus) ([]models.ItemStatus, error)
}

// ImportLedger records confirmed imports.
type ImportLedger interface {
	CreateManifestImport(ctx context.Context, imp *models.ManifestImport) error
}

// Reconciler manages review sessions and commits selections to inventory.
type Reconciler struct {
	jobs      Jobs
	fetcher   Fetcher
	inventory Inventory
	ledger    ImportLedger
	sessions  SessionStore
	logger    *slog.Logger

	// mu serializes read-modify-write of sessions.
	mu sync.Mutex
}

func NewReconciler(jobs Jobs, fetcher Fetcher, inventory Inventory, ledger ImportLedger, sessions SessionStore) *Reconciler {
	return &Reconciler{
		jobs:      jobs,
		fetcher:   fetcher,
		inventory: inventory,
		ledger:    ledger,
		sessions:  sessions,
		logger:    slog.Default().With("component", "manifest"),
	}
}

// Open fetches the manifest of a Completed upload and starts a review with
// every item selected.
func (r *Reconciler) Open(ctx context.Context, partnerID uuid.UUID, uploadID, roomID string) (*Review, error) {
	if strings.TrimSpace(roomID) == "" {
		return nil, ErrRoomRequired
	}
	job, err := r.jobs.Get(partnerID, uploadID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.UploadStatusCompleted {
		return nil, fmt.Errorf("%w: upload %s is %s", ErrNotCompleted, uploadID, job.Status)
	}

	items, err := r.fetcher.Analysis(ctx, uploadID)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	if id, dup := firstDuplicate(items); dup {
		return nil, fmt.Errorf("%w: %q in upload %s", ErrDuplicateItem, id, uploadID)
	}

	review := newReview(partnerID, uploadID, roomID, items)
	if err := r.sessions.Save(ctx, review); err != nil {
		return nil, err
	}
	r.logger.Info("review opened", "review_id", review.ID, "upload_id", uploadID, "items", len(items))
	return review, nil
}

// Get returns a partner's open review.
func (r *Reconciler) Get(ctx context.Context, partnerID, reviewID uuid.UUID) (*Review, error) {
	review, err := r.sessions.Load(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if review.PartnerID != partnerID {
		return nil, ErrReviewNotFound
	}
	return review, nil
}

// Toggle flips the selection of one item.
func (r *Reconciler) Toggle(ctx context.Context, partnerID, reviewID uuid.UUID, itemID string) (*Review, error) {
	return r.update(ctx, partnerID, reviewID, func(review *Review) error {
		if !review.has(itemID) {
			return ErrItemNotFound
		}
		review.toggle(itemID)
		return nil
	})
}

func (r *Reconciler) SelectAll(ctx context.Context, partnerID, reviewID uuid.UUID) (*Review, error) {
	return r.update(ctx, partnerID, reviewID, func(review *Review) error {
		review.selectAll(true)
		return nil
	})
}

func (r *Reconciler) DeselectAll(ctx context.Context, partnerID, reviewID uuid.UUID) (*Review, error) {
	return r.update(ctx, partnerID, reviewID, func(review *Review) error {
		review.selectAll(false)
		return nil
	})
}

func (r *Reconciler) update(ctx context.Context, partnerID, reviewID uuid.UUID, fn func(*Review) error) (*Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	review, err := r.Get(ctx, partnerID, reviewID)
	if err != nil {
		return nil, err
	}
	if err := fn(review); err != nil {
		return nil, err
	}
	if err := r.sessions.Save(ctx, review); err != nil {
		return nil, err
	}
	return review, nil
}

// Confirm imports the selected items in one bulk call. If the call fails the
// review stays open with its selection unchanged. Only one import of a review
// runs at a time; a concurrent call gets ErrConfirmInProgress.
func (r *Reconciler) Confirm(ctx context.Context, partnerID, reviewID uuid.UUID) (*models.ManifestImport, error) {
	if _, err := r.Get(ctx, partnerID, reviewID); err != nil {
		return nil, err
	}
	claimed, err := r.sessions.Claim(ctx, reviewID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, ErrConfirmInProgress
	}
	// The bulk call may already be sent when ctx ends, so bookkeeping after it
	// must not be cut short.
	bg := context.WithoutCancel(ctx)
	defer func() {
		if err := r.sessions.Release(bg, reviewID); err != nil {
			r.logger.Warn("failed to release review", "review_id", reviewID, "error", err)
		}
	}()

	// Reload under the claim: an import that finished first has closed the session.
	review, err := r.Get(ctx, partnerID, reviewID)
	if err != nil {
		return nil, err
	}
	records := review.inventoryRecords()
	if len(records) == 0 {
		return nil, ErrNothingSelected
	}

	log := r.logger.With("review_id", review.ID, "upload_id", review.UploadID)
	if _, err := r.inventory.BulkCreate(ctx, records); err != nil {
		log.Warn("bulk import failed, review kept open", "items", len(records), "error", err)
		return nil, fmt.Errorf("importing items: %w", err)
	}

	imp := &models.ManifestImport{
		ID:        uuid.New(),
		PartnerID: partnerID,
		UploadID:  review.UploadID,
		RoomID:    review.RoomID,
		ItemCount: len(records),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.ledger.CreateManifestImport(bg, imp); err != nil {
		log.Error("failed to record manifest import", "error", err)
	}
	r.mu.Lock()
	err = r.sessions.Delete(bg, review.ID)
	r.mu.Unlock()
	if err != nil {
		log.Warn("failed to close review", "error", err)
	}
	log.Info("manifest imported", "items", len(records), "room_id", review.RoomID)
	return imp, nil
}

func firstDuplicate(items []models.AnalysisItem) (string, bool) {
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			return it.ID, true
		}
		seen[it.ID] = struct{}{}
	}
	return "", false
}
