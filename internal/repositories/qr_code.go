package repositories

import (
	"context"
	"errors"
	"fmt"

	"dottpay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrQRCodeNotFound = errors.New("QR code not found")

// QRCodeRepository stores issued codes.
type QRCodeRepository interface {
	Create(ctx context.Context, qr *models.QRCode) error
	Save(ctx context.Context, qr *models.QRCode) error
	GetByCode(ctx context.Context, code string) (*models.QRCode, error)

	// GetByCodeForUpdate takes a FOR UPDATE row lock on the code. Only
	// meaningful inside InTransaction; the lock is released on commit.
	GetByCodeForUpdate(ctx context.Context, code string) (*models.QRCode, error)

	GetActiveBySubjectRole(ctx context.Context, subjectID, role string) (*models.QRCode, error)
	ListBySubject(ctx context.Context, subjectID string) ([]models.QRCode, error)

	// InTransaction runs fn against a transactional copy of the repository,
	// so a locked read and the following save commit atomically. Concurrent
	// consumption of a single-use code serializes on the row lock.
	InTransaction(ctx context.Context, fn func(QRCodeRepository) error) error
}

type qrCodeRepo struct {
	db *gorm.DB
}

// NewQRCodeRepository creates the GORM-backed code storage.
func NewQRCodeRepository(db *gorm.DB) QRCodeRepository {
	if db == nil {
		panic("db is required")
	}
	return &qrCodeRepo{db: db}
}

func (r *qrCodeRepo) Create(ctx context.Context, qr *models.QRCode) error {
	if err := r.db.WithContext(ctx).Create(qr).Error; err != nil {
		return fmt.Errorf("failed to save QR code: %w", err)
	}
	return nil
}

func (r *qrCodeRepo) Save(ctx context.Context, qr *models.QRCode) error {
	if err := r.db.WithContext(ctx).Save(qr).Error; err != nil {
		return fmt.Errorf("failed to update QR code: %w", err)
	}
	return nil
}

func (r *qrCodeRepo) GetByCode(ctx context.Context, code string) (*models.QRCode, error) {
	var qr models.QRCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&qr).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to load QR code: %w", err)
	}
	return &qr, nil
}

func (r *qrCodeRepo) GetByCodeForUpdate(ctx context.Context, code string) (*models.QRCode, error) {
	var qr models.QRCode
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("code = ?", code).
		First(&qr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to lock QR code: %w", err)
	}
	return &qr, nil
}

func (r *qrCodeRepo) InTransaction(ctx context.Context, fn func(QRCodeRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&qrCodeRepo{db: tx})
	})
}

func (r *qrCodeRepo) GetActiveBySubjectRole(ctx context.Context, subjectID, role string) (*models.QRCode, error) {
	var qr models.QRCode
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND role = ? AND status = ?", subjectID, role, models.QRStatusActive).
		Order("created_at DESC").
		First(&qr).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQRCodeNotFound
		}
		return nil, fmt.Errorf("failed to query QR code: %w", err)
	}
	return &qr, nil
}

func (r *qrCodeRepo) ListBySubject(ctx context.Context, subjectID string) ([]models.QRCode, error) {
	var list []models.QRCode
	err := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list QR codes: %w", err)
	}
	return list, nil
}
