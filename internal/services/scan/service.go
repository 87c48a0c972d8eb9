package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"dottpay/internal/feedback"
	"dottpay/internal/gateway"
	"dottpay/internal/models"
	"dottpay/internal/qr"
	"dottpay/internal/repositories"
	"dottpay/internal/services/qrcode"
)

// DefaultCoolDown is how long the scanner stays disarmed after a local
// safety rejection before the same device may retry.
const DefaultCoolDown = 2 * time.Second

type service struct {
	gw       gateway.Client
	txRepo   repositories.TransactionRepository
	consumer CodeConsumer
	notifier feedback.Notifier

	coolDown time.Duration
	now      func() time.Time

	mu      sync.Mutex
	rearmAt map[string]time.Time
}

// NewService creates the scan orchestrator. The consumer may be nil when the
// deployment does not issue its own codes.
func NewService(
	gw gateway.Client,
	txRepo repositories.TransactionRepository,
	consumer CodeConsumer,
	notifier feedback.Notifier,
) Service {
	if gw == nil {
		panic("gateway client is required")
	}
	if txRepo == nil {
		panic("transaction repository is required")
	}
	if notifier == nil {
		notifier = feedback.LogNotifier{}
	}

	return &service{
		gw:       gw,
		txRepo:   txRepo,
		consumer: consumer,
		notifier: notifier,
		coolDown: DefaultCoolDown,
		now:      time.Now,
		rearmAt:  make(map[string]time.Time),
	}
}

func (s *service) Scan(ctx context.Context, input Input) (*Result, error) {
	if err := s.checkArmed(input.SubjectID); err != nil {
		return nil, err
	}

	myRole, err := qr.Classify(input.MyRole)
	if err != nil {
		return nil, err
	}

	// Decoding. Failure never reaches the network.
	payload, err := qr.Decode(input.ScannedRaw)
	if err != nil {
		s.notifier.Notify(feedback.SeverityGenericError, "Could not read this code. Ask the other party to refresh it.")
		return &Result{
			State:     StateRejectedLocal,
			ErrorKind: "decode_error",
			Message:   err.Error(),
		}, nil
	}

	scanned, err := qr.Classify(payload.Role)
	if err != nil {
		return nil, err
	}

	// Local pairing validation. A safety rejection disarms the scanner for a
	// short cool-down so the same device can retry with a corrected code.
	validation := qr.ValidatePairing(myRole.Role, scanned.Role)
	if !validation.Valid {
		s.arm(input.SubjectID)
		s.notifier.Notify(feedback.SeveritySafetyError, validation.Remediation)
		log.Printf("scan rejected locally for %s: %s", input.SubjectID, validation.ErrorKind)
		return &Result{
			State:      StateRejectedLocal,
			Scanned:    &scanned,
			Validation: &validation,
			ErrorKind:  string(validation.ErrorKind),
			Message:    validation.Remediation,
		}, nil
	}

	// A single-use dynamic code issued here is locked and consumed before
	// submission; the server re-validates regardless.
	if s.consumer != nil && scanned.Role == qr.RoleReceiveDynamic && payload.Reference != "" {
		if cerr := s.consumer.Consume(ctx, payload.Reference); cerr != nil {
			if !errors.Is(cerr, qrcode.ErrCodeNotFound) {
				s.notifier.Notify(feedback.SeverityGenericError, "This code has already been used or expired.")
				return &Result{
					State:      StateRejectedLocal,
					Scanned:    &scanned,
					Validation: &validation,
					ErrorKind:  "code_unusable",
					Message:    cerr.Error(),
				}, nil
			}
		}
	}

	// A fixed amount embedded in the code wins over user input.
	amount := input.Amount
	if payload.Amount != nil {
		amount = payload.Amount
	}

	requestID := uuid.NewString()
	resp, err := s.gw.SubmitScan(ctx, gateway.ScanRequest{
		MyRole:            myRole.Role,
		ScannedPayloadRaw: input.ScannedRaw,
		Amount:            amount,
		Currency:          input.Currency,
		Description:       input.Description,
		ClientRequestID:   requestID,
	})

	switch {
	case err == nil:
		// The money has moved; a failed local archive write must not turn a
		// settled payment into an error for the caller.
		if aerr := s.archive(ctx, requestID, input, payload, amount, resp.SettlementReference); aerr != nil {
			log.Printf("failed to archive settled scan %s (%s): %v", requestID, resp.SettlementReference, aerr)
		}
		s.notifier.Notify(feedback.SeveritySuccess, "Payment settled.")
		return &Result{
			State:               StateSettled,
			Scanned:             &scanned,
			Validation:          &validation,
			SettlementReference: resp.SettlementReference,
			ClientRequestID:     requestID,
		}, nil

	case gateway.IsRejection(err):
		rej := gateway.AsRejection(err)
		s.notifier.Notify(feedback.SeverityGenericError, rej.Message)
		return &Result{
			State:           StateRejectedServer,
			Scanned:         &scanned,
			Validation:      &validation,
			ErrorKind:       rej.Kind,
			Message:         rej.Message,
			ClientRequestID: requestID,
		}, nil

	case gateway.IsTransport(err):
		// No silent retry: the user must re-confirm a payment attempt.
		s.notifier.Notify(feedback.SeverityGenericError, "Connection problem. The payment was not confirmed; please try again.")
		return &Result{
			State:           StateNetworkError,
			Scanned:         &scanned,
			Validation:      &validation,
			ErrorKind:       "network_error",
			Message:         err.Error(),
			ClientRequestID: requestID,
		}, nil

	default:
		return nil, err
	}
}

// checkArmed fails while the subject's scanner is inside a cool-down window.
func (s *service) checkArmed(subjectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	until, ok := s.rearmAt[subjectID]
	if !ok {
		return nil
	}
	if s.now().Before(until) {
		return fmt.Errorf("%w: retry after %s", ErrCoolingDown, until.Format(time.RFC3339))
	}
	delete(s.rearmAt, subjectID)
	return nil
}

func (s *service) arm(subjectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rearmAt[subjectID] = s.now().Add(s.coolDown)
}

func (s *service) archive(ctx context.Context, requestID string, input Input, payload *qr.Payload, amount *float64, settlementRef string) error {
	var value float64
	if amount != nil {
		value = *amount
	}
	meta := map[string]interface{}{
		"my_role":      string(input.MyRole),
		"scanned_role": string(payload.Role),
	}
	if payload.Reference != "" {
		meta["reference"] = payload.Reference
	}
	tx := &models.Transaction{
		ClientRequestID:     requestID,
		Kind:                models.TransactionKindScanPayment,
		SubjectID:           input.SubjectID,
		CounterpartyID:      payload.SubjectID,
		Amount:              value,
		Currency:            input.Currency,
		Description:         input.Description,
		SettlementReference: settlementRef,
		Status:              "completed",
		Metadata:            models.NewJSON(meta),
	}
	if err := s.txRepo.Record(ctx, tx); err != nil {
		return err
	}
	return nil
}
