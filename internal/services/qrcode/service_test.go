package qrcode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dottpay/internal/models"
	"dottpay/internal/qr"
	"dottpay/internal/repositories"
)

type fakeQRRepo struct {
	mu      sync.Mutex
	nextID  uint
	txDepth int
	records map[string]models.QRCode
}

func newFakeQRRepo() *fakeQRRepo {
	return &fakeQRRepo{records: make(map[string]models.QRCode)}
}

func (r *fakeQRRepo) Create(_ context.Context, q *models.QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	q.ID = r.nextID
	q.CreatedAt = time.Now()
	r.records[q.Code] = *q
	return nil
}

func (r *fakeQRRepo) Save(_ context.Context, q *models.QRCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[q.Code] = *q
	return nil
}

func (r *fakeQRRepo) GetByCode(_ context.Context, code string) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, ok := r.records[code]
	if !ok {
		return nil, repositories.ErrQRCodeNotFound
	}
	out := q
	return &out, nil
}

// GetByCodeForUpdate fails outside InTransaction: a row lock without a
// surrounding transaction releases immediately and protects nothing.
func (r *fakeQRRepo) GetByCodeForUpdate(ctx context.Context, code string) (*models.QRCode, error) {
	r.mu.Lock()
	depth := r.txDepth
	r.mu.Unlock()
	if depth == 0 {
		return nil, errors.New("locked read outside transaction")
	}
	return r.GetByCode(ctx, code)
}

func (r *fakeQRRepo) InTransaction(_ context.Context, fn func(repositories.QRCodeRepository) error) error {
	r.mu.Lock()
	r.txDepth++
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.txDepth--
		r.mu.Unlock()
	}()
	return fn(r)
}

func (r *fakeQRRepo) GetActiveBySubjectRole(_ context.Context, subjectID, role string) (*models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, q := range r.records {
		if q.SubjectID == subjectID && q.Role == role && q.Status == models.QRStatusActive {
			out := q
			return &out, nil
		}
	}
	return nil, repositories.ErrQRCodeNotFound
}

func (r *fakeQRRepo) ListBySubject(_ context.Context, subjectID string) ([]models.QRCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []models.QRCode
	for _, q := range r.records {
		if q.SubjectID == subjectID {
			list = append(list, q)
		}
	}
	return list, nil
}

var alice = Subject{ID: "u-alice", DisplayName: "Alice"}

func TestReceiveQR_IssuesOnceThenReturnsSame(t *testing.T) {
	svc := NewService(newFakeQRRepo())
	ctx := context.Background()

	first, err := svc.ReceiveQR(ctx, alice)
	assert.NoError(t, err)
	assert.Equal(t, string(qr.RoleReceiveStatic), first.Role)
	assert.Equal(t, 0, first.MaxUses, "static receive codes are reusable")

	second, err := svc.ReceiveQR(ctx, alice)
	assert.NoError(t, err)
	assert.Equal(t, first.Code, second.Code)
	assert.Equal(t, first.Payload, second.Payload, "re-fetch must render the identical image")
}

func TestIssuedPayloadRoundTrips(t *testing.T) {
	svc := NewService(newFakeQRRepo())
	ctx := context.Background()

	tests := []struct {
		name  string
		issue func() (*models.QRCode, error)
		role  qr.Role
	}{
		{"payment", func() (*models.QRCode, error) { return svc.PaymentQR(ctx, alice) }, qr.RolePay},
		{"static receive", func() (*models.QRCode, error) { return svc.ReceiveQR(ctx, alice) }, qr.RoleReceiveStatic},
		{"dynamic receive", func() (*models.QRCode, error) { return svc.DynamicQR(ctx, alice, 12.50) }, qr.RoleReceiveDynamic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record, err := tt.issue()
			assert.NoError(t, err)

			payload, err := qr.Decode(record.Payload)
			assert.NoError(t, err)
			assert.Equal(t, tt.role, payload.Role)
			assert.Equal(t, alice.ID, payload.SubjectID)
			assert.Equal(t, record.Code, payload.Reference)
		})
	}
}

func TestDynamicQR(t *testing.T) {
	repo := newFakeQRRepo()
	svc := NewService(repo).(*service)
	issuedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return issuedAt }
	ctx := context.Background()

	t.Run("carries amount and validity window", func(t *testing.T) {
		record, err := svc.DynamicQR(ctx, alice, 25.00)
		assert.NoError(t, err)
		assert.Equal(t, 1, record.MaxUses)
		assert.NotNil(t, record.ExpiresAt)
		assert.Equal(t, issuedAt.Add(DynamicValidity), *record.ExpiresAt)

		payload, err := qr.Decode(record.Payload)
		assert.NoError(t, err)
		assert.NotNil(t, payload.Amount)
		assert.Equal(t, 25.00, *payload.Amount)
	})

	t.Run("rejects invalid amounts", func(t *testing.T) {
		_, err := svc.DynamicQR(ctx, alice, -3)
		assert.ErrorIs(t, err, qr.ErrInvalidAmount)

		_, err = svc.DynamicQR(ctx, alice, 9.999)
		assert.ErrorIs(t, err, qr.ErrInvalidAmount)
	})

	t.Run("each issuance is a distinct code", func(t *testing.T) {
		a, err := svc.DynamicQR(ctx, alice, 5)
		assert.NoError(t, err)
		b, err := svc.DynamicQR(ctx, alice, 5)
		assert.NoError(t, err)
		assert.NotEqual(t, a.Code, b.Code)
	})
}

func TestConsume(t *testing.T) {
	repo := newFakeQRRepo()
	svc := NewService(repo).(*service)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	ctx := context.Background()

	t.Run("unknown code", func(t *testing.T) {
		assert.ErrorIs(t, svc.Consume(ctx, "missing"), ErrCodeNotFound)
	})

	t.Run("single-use code consumed exactly once", func(t *testing.T) {
		record, err := svc.DynamicQR(ctx, alice, 10)
		assert.NoError(t, err)

		assert.NoError(t, svc.Consume(ctx, record.Code))
		assert.ErrorIs(t, svc.Consume(ctx, record.Code), ErrCodeConsumed)

		stored, _ := repo.GetByCode(ctx, record.Code)
		assert.Equal(t, models.QRStatusConsumed, stored.Status)
		assert.Equal(t, 1, stored.UsageCount)
	})

	t.Run("reusable code never exhausts", func(t *testing.T) {
		record, err := svc.ReceiveQR(ctx, alice)
		assert.NoError(t, err)

		for i := 0; i < 5; i++ {
			assert.NoError(t, svc.Consume(ctx, record.Code))
		}
		stored, _ := repo.GetByCode(ctx, record.Code)
		assert.Equal(t, models.QRStatusActive, stored.Status)
		assert.Equal(t, 5, stored.UsageCount)
	})

	t.Run("expired code", func(t *testing.T) {
		record, err := svc.DynamicQR(ctx, alice, 10)
		assert.NoError(t, err)

		svc.now = func() time.Time { return now.Add(DynamicValidity + time.Second) }
		defer func() { svc.now = func() time.Time { return now } }()

		assert.ErrorIs(t, svc.Consume(ctx, record.Code), ErrCodeExpired)
		stored, _ := repo.GetByCode(ctx, record.Code)
		assert.Equal(t, models.QRStatusExpired, stored.Status)
	})
}
