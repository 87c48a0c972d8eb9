package qrcode

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"dottpay/internal/models"
	"dottpay/internal/qr"
	"dottpay/internal/repositories"
	"dottpay/internal/utils"
)

type service struct {
	repo repositories.QRCodeRepository
	now  func() time.Time
}

// NewService creates the QR issuing service.
func NewService(repo repositories.QRCodeRepository) Service {
	if repo == nil {
		panic("QR code repository is required")
	}
	return &service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *service) ReceiveQR(ctx context.Context, subject Subject) (*models.QRCode, error) {
	return s.findOrIssue(ctx, subject, qr.RoleReceiveStatic)
}

func (s *service) PaymentQR(ctx context.Context, subject Subject) (*models.QRCode, error) {
	return s.findOrIssue(ctx, subject, qr.RolePay)
}

// findOrIssue returns the subject's active code for a reusable role, issuing
// one on first use.
func (s *service) findOrIssue(ctx context.Context, subject Subject, role qr.Role) (*models.QRCode, error) {
	if subject.ID == "" {
		return nil, fmt.Errorf("subject is required")
	}

	existing, err := s.repo.GetActiveBySubjectRole(ctx, subject.ID, string(role))
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repositories.ErrQRCodeNotFound) {
		return nil, err
	}

	code := utils.MustGenerateSecureCode()
	payload, err := qr.Encode(&qr.Payload{
		Role:        role,
		SubjectID:   subject.ID,
		DisplayName: subject.DisplayName,
		Reference:   code,
		IssuedAt:    s.now().UTC(),
		MerchantID:  subject.MerchantID,
	})
	if err != nil {
		return nil, err
	}

	record := &models.QRCode{
		Code:        code,
		SubjectID:   subject.ID,
		Role:        string(role),
		DisplayName: subject.DisplayName,
		Reference:   code,
		MerchantID:  subject.MerchantID,
		Payload:     payload,
		MaxUses:     0, // reusable
		Status:      models.QRStatusActive,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	log.Printf("issued %s code for subject %s", role, subject.ID)
	return record, nil
}

func (s *service) DynamicQR(ctx context.Context, subject Subject, amount float64) (*models.QRCode, error) {
	if subject.ID == "" {
		return nil, fmt.Errorf("subject is required")
	}

	code := utils.MustGenerateSecureCode()
	expires := s.now().UTC().Add(DynamicValidity)
	payload, err := qr.Encode(&qr.Payload{
		Role:        qr.RoleReceiveDynamic,
		SubjectID:   subject.ID,
		DisplayName: subject.DisplayName,
		Amount:      &amount,
		Reference:   code,
		IssuedAt:    s.now().UTC(),
		MerchantID:  subject.MerchantID,
		ExpiresAt:   &expires,
	})
	if err != nil {
		return nil, err
	}

	record := &models.QRCode{
		Code:        code,
		SubjectID:   subject.ID,
		Role:        string(qr.RoleReceiveDynamic),
		DisplayName: subject.DisplayName,
		Amount:      &amount,
		Reference:   code,
		MerchantID:  subject.MerchantID,
		Payload:     payload,
		ExpiresAt:   &expires,
		MaxUses:     1,
		Status:      models.QRStatusActive,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	log.Printf("issued dynamic code for subject %s (%.2f)", subject.ID, amount)
	return record, nil
}

func (s *service) List(ctx context.Context, subjectID string) ([]models.QRCode, error) {
	return s.repo.ListBySubject(ctx, subjectID)
}

func (s *service) Consume(ctx context.Context, code string) error {
	// The locked read and the usage write must commit atomically, and the
	// consumption outcomes are reported outside the transaction so marking a
	// code expired still commits.
	var outcome error
	err := s.repo.InTransaction(ctx, func(tx repositories.QRCodeRepository) error {
		record, err := tx.GetByCodeForUpdate(ctx, code)
		if err != nil {
			if errors.Is(err, repositories.ErrQRCodeNotFound) {
				outcome = ErrCodeNotFound
				return nil
			}
			return err
		}

		switch record.Status {
		case models.QRStatusConsumed:
			outcome = ErrCodeConsumed
			return nil
		case models.QRStatusExpired:
			outcome = ErrCodeExpired
			return nil
		}

		if record.ExpiresAt != nil && record.ExpiresAt.Before(s.now()) {
			record.Status = models.QRStatusExpired
			outcome = ErrCodeExpired
			return tx.Save(ctx, record)
		}

		record.UsageCount++
		if record.MaxUses > 0 && record.UsageCount >= record.MaxUses {
			record.Status = models.QRStatusConsumed
		}
		return tx.Save(ctx, record)
	})
	if err != nil {
		return err
	}
	return outcome
}
