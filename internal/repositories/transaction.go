package repositories

import (
	"context"
	"errors"
	"fmt"

	"dottpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// TransactionRepository is the local archive of settled operations.
type TransactionRepository interface {
	// Record inserts the transaction, ignoring a duplicate ClientRequestID.
	// A retried submission that already archived its result is a no-op.
	Record(ctx context.Context, tx *models.Transaction) error

	GetByClientRequestID(ctx context.Context, id string) (*models.Transaction, error)
	ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]models.Transaction, error)
}

type transactionRepo struct {
	db *gorm.DB
}

// NewTransactionRepository creates the GORM-backed archive.
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	if db == nil {
		panic("db is required")
	}
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Record(ctx context.Context, tx *models.Transaction) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_request_id"}},
			DoNothing: true,
		}).
		Create(tx).Error
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

func (r *transactionRepo) GetByClientRequestID(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	if err := r.db.WithContext(ctx).Where("client_request_id = ?", id).First(&tx).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return &tx, nil
}

func (r *transactionRepo) ListBySubject(ctx context.Context, subjectID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var list []models.Transaction
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return list, nil
}
