package outbox

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dottpay/internal/connectivity"
	"dottpay/internal/feedback"
	"dottpay/internal/gateway"
	"dottpay/internal/models"
	"dottpay/internal/repositories"
)

// DefaultReplayInterval paces the periodic queue sweep. Connectivity events
// trigger an immediate replay; the sweep catches entries parked by a
// transient failure that never flipped the link state.
const DefaultReplayInterval = 30 * time.Second

type service struct {
	repo           repositories.PendingTransferRepository
	txRepo         repositories.TransactionRepository
	gw             gateway.Client
	observer       connectivity.Observer
	notifier       feedback.Notifier
	maxAttempts    int
	replayInterval time.Duration

	// processing serializes ProcessQueue: a run in progress suppresses a
	// second concurrent run instead of interleaving submissions.
	processing atomic.Bool
}

// NewService creates the transfer queue service.
func NewService(
	repo repositories.PendingTransferRepository,
	txRepo repositories.TransactionRepository,
	gw gateway.Client,
	observer connectivity.Observer,
	notifier feedback.Notifier,
) Service {
	if repo == nil {
		panic("pending transfer repository is required")
	}
	if txRepo == nil {
		panic("transaction repository is required")
	}
	if gw == nil {
		panic("gateway client is required")
	}
	if observer == nil {
		panic("connectivity observer is required")
	}
	if notifier == nil {
		notifier = feedback.LogNotifier{}
	}

	return &service{
		repo:           repo,
		txRepo:         txRepo,
		gw:             gw,
		observer:       observer,
		notifier:       notifier,
		maxAttempts:    models.MaxTransferAttempts,
		replayInterval: DefaultReplayInterval,
	}
}

func (s *service) Send(ctx context.Context, intent TransferIntent) (*SendResult, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}

	// The token is minted before the first submission and reused on every
	// retry so the server can deduplicate an attempt whose response was lost.
	requestID := uuid.NewString()

	if !s.observer.Online() {
		pending, err := s.enqueueWithID(ctx, requestID, intent)
		if err != nil {
			return nil, err
		}
		return &SendResult{Queued: true, Pending: pending}, nil
	}

	resp, err := s.gw.SubmitTransfer(ctx, gateway.TransferRequest{
		RecipientHandle: intent.RecipientHandle,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Description:     intent.Description,
		ClientRequestID: requestID,
	})
	if err != nil {
		if gateway.IsTransport(err) {
			// Retryable: park it under the same token the failed attempt
			// carried, so a submission that actually landed is deduplicated.
			pending, qerr := s.enqueueWithID(ctx, requestID, intent)
			if qerr != nil {
				return nil, qerr
			}
			return &SendResult{Queued: true, Pending: pending}, nil
		}
		return nil, err
	}

	tx, err := s.archive(ctx, requestID, intent, resp.SettlementReference, models.NewJSON(map[string]interface{}{
		"queued": false,
	}))
	if err != nil {
		return nil, err
	}
	return &SendResult{Transaction: tx}, nil
}

func (s *service) Enqueue(ctx context.Context, intent TransferIntent) (*models.PendingTransfer, error) {
	if err := validateIntent(intent); err != nil {
		return nil, err
	}
	return s.enqueueWithID(ctx, uuid.NewString(), intent)
}

func (s *service) enqueueWithID(ctx context.Context, id string, intent TransferIntent) (*models.PendingTransfer, error) {
	pending := &models.PendingTransfer{
		ID:              id,
		SubjectID:       intent.SubjectID,
		RecipientHandle: intent.RecipientHandle,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Description:     intent.Description,
		Status:          models.TransferStatusQueued,
		Attempts:        0,
	}
	if err := s.repo.Create(ctx, pending); err != nil {
		return nil, err
	}
	log.Printf("transfer %s queued for %s (%.2f %s)", pending.ID, intent.RecipientHandle, intent.Amount, intent.Currency)
	return pending, nil
}

func (s *service) ProcessQueue(ctx context.Context) error {
	if !s.processing.CompareAndSwap(false, true) {
		// A run is already draining the queue; this invocation is redundant.
		return nil
	}
	defer s.processing.Store(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		pending, err := s.repo.NextQueued(ctx)
		if err != nil {
			if errors.Is(err, repositories.ErrTransferNotFound) {
				return nil
			}
			return err
		}

		proceed, err := s.processOne(ctx, pending)
		if err != nil {
			return err
		}
		if !proceed {
			// Head-of-line transient failure: stop the run rather than skip
			// ahead, preserving global FIFO submission order.
			return nil
		}
	}
}

// processOne submits a single entry. It reports whether the run should
// continue with the next entry.
func (s *service) processOne(ctx context.Context, pending *models.PendingTransfer) (bool, error) {
	pending.Status = models.TransferStatusInFlight
	pending.Attempts++
	if err := s.repo.Update(ctx, pending); err != nil {
		return false, err
	}

	resp, err := s.gw.SubmitTransfer(ctx, gateway.TransferRequest{
		RecipientHandle: pending.RecipientHandle,
		Amount:          pending.Amount,
		Currency:        pending.Currency,
		Description:     pending.Description,
		ClientRequestID: pending.ID,
	})

	switch {
	case err == nil:
		intent := TransferIntent{
			SubjectID:       pending.SubjectID,
			RecipientHandle: pending.RecipientHandle,
			Amount:          pending.Amount,
			Currency:        pending.Currency,
			Description:     pending.Description,
		}
		meta := models.NewJSON(map[string]interface{}{
			"queued":   true,
			"attempts": pending.Attempts,
		})
		if _, aerr := s.archive(ctx, pending.ID, intent, resp.SettlementReference, meta); aerr != nil {
			return false, aerr
		}
		if derr := s.repo.Delete(ctx, pending.ID); derr != nil {
			return false, derr
		}
		log.Printf("transfer %s settled (%s)", pending.ID, resp.SettlementReference)
		s.notifier.Notify(feedback.SeveritySuccess, fmt.Sprintf("Sent %.2f %s to %s", pending.Amount, pending.Currency, pending.RecipientHandle))
		return true, nil

	case gateway.IsRejection(err):
		// Business-rule failure is permanent; retrying cannot fix it.
		rej := gateway.AsRejection(err)
		return s.deadLetter(ctx, pending, rej.Message)

	case gateway.IsTransport(err):
		if pending.Attempts >= s.maxAttempts {
			return s.deadLetter(ctx, pending, err.Error())
		}
		pending.Status = models.TransferStatusQueued
		pending.LastError = err.Error()
		if uerr := s.repo.Update(ctx, pending); uerr != nil {
			return false, uerr
		}
		return false, nil

	default:
		return false, err
	}
}

// deadLetter marks the entry failed and surfaces it to the user. It is never
// silently dropped; the user decides between manual retry and cancellation.
func (s *service) deadLetter(ctx context.Context, pending *models.PendingTransfer, reason string) (bool, error) {
	pending.Status = models.TransferStatusFailed
	pending.LastError = reason
	if err := s.repo.Update(ctx, pending); err != nil {
		return false, err
	}
	log.Printf("transfer %s failed after %d attempts: %s", pending.ID, pending.Attempts, reason)
	s.notifier.Notify(feedback.SeverityGenericError, fmt.Sprintf("Transfer to %s could not be sent: %s", pending.RecipientHandle, reason))
	return true, nil
}

func (s *service) GetQueue(ctx context.Context, subjectID string) ([]models.PendingTransfer, error) {
	return s.repo.ListBySubject(ctx, subjectID)
}

func (s *service) Cancel(ctx context.Context, subjectID, transferID string) error {
	pending, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransferNotFound) {
			return ErrNotFound
		}
		return err
	}
	if pending.SubjectID != subjectID {
		return ErrNotFound
	}
	if !pending.Cancellable() && pending.Status != models.TransferStatusFailed {
		return ErrNotCancellable
	}
	return s.repo.Delete(ctx, transferID)
}

func (s *service) RetryFailed(ctx context.Context, subjectID, transferID string) (*models.PendingTransfer, error) {
	pending, err := s.repo.GetByID(ctx, transferID)
	if err != nil {
		if errors.Is(err, repositories.ErrTransferNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pending.SubjectID != subjectID {
		return nil, ErrNotFound
	}
	if pending.Status != models.TransferStatusFailed {
		return nil, ErrNotRetryable
	}

	pending.Status = models.TransferStatusQueued
	pending.Attempts = 0
	pending.LastError = ""
	if err := s.repo.Update(ctx, pending); err != nil {
		return nil, err
	}
	return pending, nil
}

func (s *service) Run(ctx context.Context) {
	// Entries stranded in flight by a crash go back to queued; their tokens
	// make the replay safe.
	if n, err := s.repo.ResetInFlight(ctx); err != nil {
		log.Printf("failed to reset in-flight transfers: %v", err)
	} else if n > 0 {
		log.Printf("re-queued %d in-flight transfers from previous run", n)
	}

	events := s.observer.Subscribe()
	ticker := time.NewTicker(s.replayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.State != connectivity.StateOnline {
				continue
			}
			if err := s.ProcessQueue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("queue processing failed: %v", err)
			}
		case <-ticker.C:
			// A transport failure can park an entry without the link ever
			// going down, so a state transition alone is not enough.
			if !s.observer.Online() {
				continue
			}
			if err := s.ProcessQueue(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("queue processing failed: %v", err)
			}
		}
	}
}

func (s *service) archive(ctx context.Context, requestID string, intent TransferIntent, settlementRef string, meta models.JSON) (*models.Transaction, error) {
	tx := &models.Transaction{
		ClientRequestID:     requestID,
		Kind:                models.TransactionKindTransfer,
		SubjectID:           intent.SubjectID,
		RecipientHandle:     intent.RecipientHandle,
		Amount:              intent.Amount,
		Currency:            intent.Currency,
		Description:         intent.Description,
		SettlementReference: settlementRef,
		Status:              "completed",
		Metadata:            meta,
	}
	if err := s.txRepo.Record(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

func validateIntent(intent TransferIntent) error {
	if intent.SubjectID == "" || intent.RecipientHandle == "" {
		return fmt.Errorf("%w: missing subject or recipient", ErrInvalidIntent)
	}
	if intent.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidIntent)
	}
	cents := intent.Amount * 100
	if math.Abs(cents-math.Round(cents)) > 1e-6 {
		return fmt.Errorf("%w: amount has more than 2 decimal places", ErrInvalidIntent)
	}
	if intent.Currency == "" {
		return fmt.Errorf("%w: missing currency", ErrInvalidIntent)
	}
	return nil
}
