package repositories

import (
	"context"
	"errors"
	"fmt"

	"dottpay/internal/models"

	"gorm.io/gorm"
)

var ErrTransferNotFound = errors.New("pending transfer not found")

// PendingTransferRepository is the durable queue storage. Entries are keyed
// by transfer id and survive process restarts; only the queue processor
// mutates them.
type PendingTransferRepository interface {
	Create(ctx context.Context, t *models.PendingTransfer) error
	Update(ctx context.Context, t *models.PendingTransfer) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.PendingTransfer, error)

	// NextQueued returns the oldest queued entry in global FIFO creation
	// order, or ErrTransferNotFound when the queue is drained.
	NextQueued(ctx context.Context) (*models.PendingTransfer, error)

	ListBySubject(ctx context.Context, subjectID string) ([]models.PendingTransfer, error)

	// ResetInFlight returns crashed in-flight entries to queued so a restart
	// replays them. Safe because every submission carries its idempotency
	// token.
	ResetInFlight(ctx context.Context) (int64, error)
}

type pendingTransferRepo struct {
	db *gorm.DB
}

// NewPendingTransferRepository creates the GORM-backed queue storage.
func NewPendingTransferRepository(db *gorm.DB) PendingTransferRepository {
	if db == nil {
		panic("db is required")
	}
	return &pendingTransferRepo{db: db}
}

func (r *pendingTransferRepo) Create(ctx context.Context, t *models.PendingTransfer) error {
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		return fmt.Errorf("failed to persist pending transfer: %w", err)
	}
	return nil
}

func (r *pendingTransferRepo) Update(ctx context.Context, t *models.PendingTransfer) error {
	if err := r.db.WithContext(ctx).Save(t).Error; err != nil {
		return fmt.Errorf("failed to update pending transfer: %w", err)
	}
	return nil
}

func (r *pendingTransferRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.PendingTransfer{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete pending transfer: %w", err)
	}
	return nil
}

func (r *pendingTransferRepo) GetByID(ctx context.Context, id string) (*models.PendingTransfer, error) {
	var t models.PendingTransfer
	if err := r.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to load pending transfer: %w", err)
	}
	return &t, nil
}

func (r *pendingTransferRepo) NextQueued(ctx context.Context) (*models.PendingTransfer, error) {
	var t models.PendingTransfer
	err := r.db.WithContext(ctx).
		Where("status = ?", models.TransferStatusQueued).
		Order("created_at ASC, id ASC").
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransferNotFound
		}
		return nil, fmt.Errorf("failed to fetch next queued transfer: %w", err)
	}
	return &t, nil
}

func (r *pendingTransferRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.PendingTransfer, error) {
	var list []models.PendingTransfer
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transfers: %w", err)
	}
	return list, nil
}

func (r *pendingTransferRepo) ResetInFlight(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PendingTransfer{}).
		Where("status = ?", models.TransferStatusInFlight).
		Update("status", models.TransferStatusQueued)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset in-flight transfers: %w", res.Error)
	}
	return res.RowsAffected, nil
}
