package outbox

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"dottpay/internal/connectivity"
	"dottpay/internal/feedback"
	"dottpay/internal/gateway"
	"dottpay/internal/models"
	"dottpay/internal/repositories"
)

// fakeTransferRepo is an in-memory PendingTransferRepository. It survives
// "restarts" of the service because tests reuse the same instance across
// service constructions.
type fakeTransferRepo struct {
	mu      sync.Mutex
	entries map[string]models.PendingTransfer
}

func newFakeTransferRepo() *fakeTransferRepo {
	return &fakeTransferRepo{entries: make(map[string]models.PendingTransfer)}
}

func (r *fakeTransferRepo) Create(_ context.Context, t *models.PendingTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	r.entries[t.ID] = *t
	return nil
}

func (r *fakeTransferRepo) Update(_ context.Context, t *models.PendingTransfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[t.ID] = *t
	return nil
}

func (r *fakeTransferRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

func (r *fakeTransferRepo) GetByID(_ context.Context, id string) (*models.PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.entries[id]
	if !ok {
		return nil, repositories.ErrTransferNotFound
	}
	out := t
	return &out, nil
}

func (r *fakeTransferRepo) NextQueued(_ context.Context) (*models.PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var queued []models.PendingTransfer
	for _, t := range r.entries {
		if t.Status == models.TransferStatusQueued {
			queued = append(queued, t)
		}
	}
	if len(queued) == 0 {
		return nil, repositories.ErrTransferNotFound
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].CreatedAt.Before(queued[j].CreatedAt) })
	out := queued[0]
	return &out, nil
}

func (r *fakeTransferRepo) ListBySubject(_ context.Context, subjectID string) ([]models.PendingTransfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []models.PendingTransfer
	for _, t := range r.entries {
		if t.SubjectID == subjectID {
			list = append(list, t)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (r *fakeTransferRepo) ResetInFlight(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.entries {
		if t.Status == models.TransferStatusInFlight {
			t.Status = models.TransferStatusQueued
			r.entries[id] = t
			n++
		}
	}
	return n, nil
}

type fakeTxRepo struct {
	mu       sync.Mutex
	recorded []models.Transaction
}

func (r *fakeTxRepo) Record(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.recorded {
		if existing.ClientRequestID == tx.ClientRequestID {
			return nil
		}
	}
	r.recorded = append(r.recorded, *tx)
	return nil
}

func (r *fakeTxRepo) GetByClientRequestID(_ context.Context, id string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.recorded {
		if tx.ClientRequestID == id {
			out := tx
			return &out, nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *fakeTxRepo) ListBySubject(_ context.Context, subjectID string, _, _ int) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []models.Transaction
	for _, tx := range r.recorded {
		if tx.SubjectID == subjectID {
			list = append(list, tx)
		}
	}
	return list, nil
}

// scriptedGateway returns canned outcomes per submission and records every
// request it sees.
type scriptedGateway struct {
	mu       sync.Mutex
	outcomes []error // consumed in order; nil means success
	requests []gateway.TransferRequest
	block    chan struct{} // when set, SubmitTransfer blocks until closed
}

func (g *scriptedGateway) SubmitTransfer(_ context.Context, req gateway.TransferRequest) (*gateway.TransferResponse, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	g.requests = append(g.requests, req)
	var out error
	if len(g.outcomes) > 0 {
		out = g.outcomes[0]
		g.outcomes = g.outcomes[1:]
	}
	g.mu.Unlock()
	if out != nil {
		return nil, out
	}
	return &gateway.TransferResponse{Success: true, SettlementReference: "STL-" + req.ClientRequestID}, nil
}

func (g *scriptedGateway) SubmitScan(context.Context, gateway.ScanRequest) (*gateway.ScanResponse, error) {
	return nil, errors.New("not implemented")
}

func (g *scriptedGateway) FetchWallet(context.Context, string) (*gateway.WalletResponse, error) {
	return nil, errors.New("not implemented")
}

func (g *scriptedGateway) Health(context.Context) error { return nil }

func (g *scriptedGateway) seen() []gateway.TransferRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]gateway.TransferRequest, len(g.requests))
	copy(out, g.requests)
	return out
}

// fakeObserver is a hand-driven connectivity source.
type fakeObserver struct {
	mu     sync.Mutex
	online bool
	subs   []chan connectivity.Event
}

func (o *fakeObserver) Online() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.online
}

func (o *fakeObserver) Subscribe() <-chan connectivity.Event {
	ch := make(chan connectivity.Event, 4)
	o.mu.Lock()
	o.subs = append(o.subs, ch)
	o.mu.Unlock()
	return ch
}

func (o *fakeObserver) set(online bool) {
	o.mu.Lock()
	o.online = online
	subs := o.subs
	o.mu.Unlock()
	state := connectivity.StateOffline
	if online {
		state = connectivity.StateOnline
	}
	for _, ch := range subs {
		ch <- connectivity.Event{State: state, At: time.Now()}
	}
}

func transferError(msg string) error {
	return &gateway.TransportError{Err: errors.New(msg)}
}

func intent(subject string) TransferIntent {
	return TransferIntent{
		SubjectID:       subject,
		RecipientHandle: "+15550001",
		Amount:          10.00,
		Currency:        "USD",
		Description:     "lunch",
	}
}

func TestSend_OnlineSettlesImmediately(t *testing.T) {
	repo := newFakeTransferRepo()
	txs := &fakeTxRepo{}
	gw := &scriptedGateway{}
	obs := &fakeObserver{online: true}
	svc := NewService(repo, txs, gw, obs, feedback.LogNotifier{})

	res, err := svc.Send(context.Background(), intent("u1"))
	assert.NoError(t, err)
	assert.False(t, res.Queued)
	assert.NotNil(t, res.Transaction)
	assert.NotEmpty(t, res.Transaction.SettlementReference)
	assert.Equal(t, false, res.Transaction.Metadata["queued"])
	assert.Empty(t, repo.entries)
}

func TestSend_OfflineEnqueuesDurably(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{}
	obs := &fakeObserver{online: false}
	svc := NewService(repo, &fakeTxRepo{}, gw, obs, feedback.LogNotifier{})

	res, err := svc.Send(context.Background(), intent("u1"))
	assert.NoError(t, err)
	assert.True(t, res.Queued)
	assert.Equal(t, models.TransferStatusQueued, res.Pending.Status)
	assert.Equal(t, 0, res.Pending.Attempts)
	assert.Empty(t, gw.seen(), "no submission may happen while offline")

	// Persisted before Send returned.
	stored, err := repo.GetByID(context.Background(), res.Pending.ID)
	assert.NoError(t, err)
	assert.Equal(t, res.Pending.ID, stored.ID)
}

func TestSend_TransportFailureReusesIdempotencyToken(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{outcomes: []error{transferError("timeout")}}
	obs := &fakeObserver{online: true}
	svc := NewService(repo, &fakeTxRepo{}, gw, obs, feedback.LogNotifier{})

	res, err := svc.Send(context.Background(), intent("u1"))
	assert.NoError(t, err)
	assert.True(t, res.Queued)

	// The queued entry carries the exact token the failed attempt used, so a
	// submission that actually landed server-side is deduplicated on replay.
	seen := gw.seen()
	assert.Len(t, seen, 1)
	assert.Equal(t, seen[0].ClientRequestID, res.Pending.ID)

	obs.set(true)
	assert.NoError(t, svc.ProcessQueue(context.Background()))
	seen = gw.seen()
	assert.Len(t, seen, 2)
	assert.Equal(t, seen[0].ClientRequestID, seen[1].ClientRequestID)
}

func TestSend_RejectionIsNotQueued(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{outcomes: []error{&gateway.RejectionError{Kind: "insufficient_funds", Message: "balance too low"}}}
	svc := NewService(repo, &fakeTxRepo{}, gw, &fakeObserver{online: true}, feedback.LogNotifier{})

	_, err := svc.Send(context.Background(), intent("u1"))
	assert.True(t, gateway.IsRejection(err))
	assert.Empty(t, repo.entries, "permanent failures must not enter the queue")
}

func TestProcessQueue_FIFOOrder(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{}
	svc := NewService(repo, &fakeTxRepo{}, gw, &fakeObserver{online: false}, feedback.LogNotifier{})
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)
	// Creation order must be preserved regardless of recipient.
	later := intent("u1")
	later.RecipientHandle = "+15550002"
	time.Sleep(2 * time.Millisecond)
	second, err := svc.Enqueue(ctx, later)
	assert.NoError(t, err)

	assert.NoError(t, svc.ProcessQueue(ctx))

	seen := gw.seen()
	assert.Len(t, seen, 2)
	assert.Equal(t, first.ID, seen[0].ClientRequestID)
	assert.Equal(t, second.ID, seen[1].ClientRequestID)
	assert.Empty(t, repo.entries)
}

func TestProcessQueue_ExactlyMaxAttemptsThenDeadLetter(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{outcomes: []error{
		transferError("timeout 1"),
		transferError("timeout 2"),
		transferError("timeout 3"),
	}}
	svc := NewService(repo, &fakeTxRepo{}, gw, &fakeObserver{}, feedback.LogNotifier{})
	ctx := context.Background()

	pending, err := svc.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.NoError(t, svc.ProcessQueue(ctx))
	}

	stored, err := repo.GetByID(ctx, pending.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusFailed, stored.Status)
	assert.Equal(t, 3, stored.Attempts, "exactly 3 attempts, never more")
	assert.Len(t, gw.seen(), 3)
	assert.Contains(t, stored.LastError, "timeout 3")
}

func TestProcessQueue_ServerRejectionDeadLettersImmediately(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{outcomes: []error{&gateway.RejectionError{Kind: "blocked", Message: "recipient cannot receive"}}}
	svc := NewService(repo, &fakeTxRepo{}, gw, &fakeObserver{}, feedback.LogNotifier{})
	ctx := context.Background()

	pending, err := svc.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)
	assert.NoError(t, svc.ProcessQueue(ctx))

	stored, err := repo.GetByID(ctx, pending.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TransferStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "recipient cannot receive", stored.LastError)
}

func TestProcessQueue_ConcurrentRunSuppressed(t *testing.T) {
	repo := newFakeTransferRepo()
	gw := &scriptedGateway{block: make(chan struct{})}
	svc := NewService(repo, &fakeTxRepo{}, gw, &fakeObserver{}, feedback.LogNotifier{})
	ctx := context.Background()

	_, err := svc.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.ProcessQueue(ctx) }()

	// Wait until the first run is inside the gateway call.
	assert.Eventually(t, func() bool {
		impl := svc.(*service)
		return impl.processing.Load()
	}, time.Second, 5*time.Millisecond)

	// A second invocation while a run is in progress is suppressed.
	assert.NoError(t, svc.ProcessQueue(ctx))
	assert.Empty(t, gw.seen())

	close(gw.block)
	assert.NoError(t, <-done)
	assert.Len(t, gw.seen(), 1)
}

func TestQueue_DurabilityAcrossRestart(t *testing.T) {
	repo := newFakeTransferRepo()
	txs := &fakeTxRepo{}
	ctx := context.Background()

	// First process enqueues while offline, then "crashes" with the entry
	// stranded in flight.
	first := NewService(repo, txs, &scriptedGateway{}, &fakeObserver{}, feedback.LogNotifier{})
	pending, err := first.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)

	stranded, err := repo.GetByID(ctx, pending.ID)
	assert.NoError(t, err)
	stranded.Status = models.TransferStatusInFlight
	assert.NoError(t, repo.Update(ctx, stranded))

	// A fresh service over the same storage replays it to completion.
	gw := &scriptedGateway{}
	obs := &fakeObserver{}
	second := NewService(repo, txs, gw, obs, feedback.LogNotifier{})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go second.Run(runCtx)
	obs.set(true)

	assert.Eventually(t, func() bool {
		_, err := repo.GetByID(ctx, pending.ID)
		return errors.Is(err, repositories.ErrTransferNotFound)
	}, 2*time.Second, 10*time.Millisecond, "entry must reach a terminal state, never be lost")

	tx, err := txs.GetByClientRequestID(ctx, pending.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.TransactionKindTransfer, tx.Kind)
	assert.Equal(t, true, tx.Metadata["queued"])
}

func TestRun_SweepsQueueWhileLinkStaysUp(t *testing.T) {
	repo := newFakeTransferRepo()
	txs := &fakeTxRepo{}
	// First submission fails transiently without the probe ever reporting
	// offline; the second succeeds.
	gw := &scriptedGateway{outcomes: []error{transferError("bad gateway")}}
	obs := &fakeObserver{online: true}
	svc := NewService(repo, txs, gw, obs, feedback.LogNotifier{})
	svc.(*service).replayInterval = 20 * time.Millisecond
	ctx := context.Background()

	res, err := svc.Send(ctx, intent("u1"))
	assert.NoError(t, err)
	assert.True(t, res.Queued, "transient failure parks the transfer")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go svc.Run(runCtx)

	// No connectivity transition ever fires; the periodic sweep alone must
	// drain the queue.
	assert.Eventually(t, func() bool {
		_, err := repo.GetByID(ctx, res.Pending.ID)
		return errors.Is(err, repositories.ErrTransferNotFound)
	}, 2*time.Second, 10*time.Millisecond)

	tx, err := txs.GetByClientRequestID(ctx, res.Pending.ID)
	assert.NoError(t, err)
	assert.NotEmpty(t, tx.SettlementReference)
}

func TestCancel(t *testing.T) {
	repo := newFakeTransferRepo()
	svc := NewService(repo, &fakeTxRepo{}, &scriptedGateway{}, &fakeObserver{}, feedback.LogNotifier{})
	ctx := context.Background()

	pending, err := svc.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)

	t.Run("wrong subject cannot cancel", func(t *testing.T) {
		assert.ErrorIs(t, svc.Cancel(ctx, "intruder", pending.ID), ErrNotFound)
	})

	t.Run("in-flight cannot be cancelled", func(t *testing.T) {
		stored, _ := repo.GetByID(ctx, pending.ID)
		stored.Status = models.TransferStatusInFlight
		assert.NoError(t, repo.Update(ctx, stored))

		assert.ErrorIs(t, svc.Cancel(ctx, "u1", pending.ID), ErrNotCancellable)

		stored.Status = models.TransferStatusQueued
		assert.NoError(t, repo.Update(ctx, stored))
	})

	t.Run("queued cancels cleanly", func(t *testing.T) {
		assert.NoError(t, svc.Cancel(ctx, "u1", pending.ID))
		_, err := repo.GetByID(ctx, pending.ID)
		assert.ErrorIs(t, err, repositories.ErrTransferNotFound)
	})
}

func TestRetryFailed(t *testing.T) {
	repo := newFakeTransferRepo()
	svc := NewService(repo, &fakeTxRepo{}, &scriptedGateway{}, &fakeObserver{}, feedback.LogNotifier{})
	ctx := context.Background()

	pending, err := svc.Enqueue(ctx, intent("u1"))
	assert.NoError(t, err)

	t.Run("queued entries are not retryable", func(t *testing.T) {
		_, err := svc.RetryFailed(ctx, "u1", pending.ID)
		assert.ErrorIs(t, err, ErrNotRetryable)
	})

	t.Run("failed entry re-queues with fresh budget and same token", func(t *testing.T) {
		stored, _ := repo.GetByID(ctx, pending.ID)
		stored.Status = models.TransferStatusFailed
		stored.Attempts = 3
		stored.LastError = "timeout"
		assert.NoError(t, repo.Update(ctx, stored))

		requeued, err := svc.RetryFailed(ctx, "u1", pending.ID)
		assert.NoError(t, err)
		assert.Equal(t, pending.ID, requeued.ID)
		assert.Equal(t, models.TransferStatusQueued, requeued.Status)
		assert.Equal(t, 0, requeued.Attempts)
		assert.Empty(t, requeued.LastError)
	})
}

func TestValidateIntent(t *testing.T) {
	svc := NewService(newFakeTransferRepo(), &fakeTxRepo{}, &scriptedGateway{}, &fakeObserver{}, feedback.LogNotifier{})
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*TransferIntent)
	}{
		{"missing recipient", func(i *TransferIntent) { i.RecipientHandle = "" }},
		{"zero amount", func(i *TransferIntent) { i.Amount = 0 }},
		{"negative amount", func(i *TransferIntent) { i.Amount = -5 }},
		{"sub-cent precision", func(i *TransferIntent) { i.Amount = 9.999 }},
		{"missing currency", func(i *TransferIntent) { i.Currency = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := intent("u1")
			tt.mutate(&in)
			_, err := svc.Enqueue(ctx, in)
			assert.ErrorIs(t, err, ErrInvalidIntent)
		})
	}
}
