package ap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bigblink-erp/bigblink-erp/internal/finance/aging"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type memoryRepo struct {
	transactions map[int64]Transaction
	payments     []Payment
	seqs         map[string]int64
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		transactions: map[int64]Transaction{},
		seqs:         map[string]int64{},
		nextID:       1,
	}
}

func (m *memoryRepo) Get(_ context.Context, id int64) (Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return t, nil
}

func (m *memoryRepo) List(_ context.Context, filter ListFilter) ([]Transaction, int, error) {
	var out []Transaction
	for _, t := range m.transactions {
		if filter.Status != nil && t.Status != *filter.Status {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (m *memoryRepo) ListOutstanding(_ context.Context) ([]Transaction, error) {
	var out []Transaction
	for _, t := range m.transactions {
		if t.Status != StatusPaid {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListPayments(_ context.Context, transactionID int64) ([]Payment, error) {
	var out []Payment
	for _, p := range m.payments {
		if p.TransactionID == transactionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxPort) error) error {
	return fn(ctx, &memoryTx{repo: m})
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetTransactionForUpdate(ctx context.Context, id int64) (Transaction, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) NextSequence(_ context.Context, docType, period string) (int64, error) {
	key := docType + ":" + period
	t.repo.seqs[key]++
	return t.repo.seqs[key], nil
}

func (t *memoryTx) InsertPayment(_ context.Context, p Payment) (int64, error) {
	p.ID = t.repo.nextID
	t.repo.nextID++
	t.repo.payments = append(t.repo.payments, p)
	return p.ID, nil
}

func (t *memoryTx) UpdateTransactionPaid(_ context.Context, id int64, paid float64, status TransactionStatus) error {
	txn, ok := t.repo.transactions[id]
	if !ok {
		return ErrNotFound
	}
	txn.PaidAmount = paid
	txn.Status = status
	t.repo.transactions[id] = txn
	return nil
}

type recordedHooks struct {
	events []PaymentRecordedEvent
	err    error
}

func (h *recordedHooks) HandleAPPaymentRecorded(_ context.Context, evt PaymentRecordedEvent) error {
	h.events = append(h.events, evt)
	return h.err
}

type recordedPOSync struct {
	calls map[int64]float64
	err   error
}

func (s *recordedPOSync) SyncPaid(_ context.Context, poID int64, paid float64) error {
	if s.calls == nil {
		s.calls = map[int64]float64{}
	}
	s.calls[poID] = paid
	return s.err
}

func openTransaction(repo *memoryRepo, original, paid float64, due time.Time) Transaction {
	id := repo.nextID
	repo.nextID++
	txn := Transaction{
		ID:              id,
		Number:          fmt.Sprintf("AP-2026-%06d", id),
		PurchaseOrderID: id + 500,
		SupplierID:      11,
		OriginalAmount:  original,
		PaidAmount:      paid,
		DueAt:           due,
		Status:          DeriveStatus(paid, original),
	}
	repo.transactions[id] = txn
	return txn
}

func testService(repo *memoryRepo, poSync PurchaseOrderSyncer, hooks IntegrationHandler) *Service {
	svc := NewService(repo, poSync, nil, hooks, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC) })
	return svc
}

func paymentInput(id int64, amount float64) PaymentInput {
	return PaymentInput{
		TransactionID: id,
		Amount:        amount,
		PaidAt:        time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
		Method:        "BANK_TRANSFER",
	}
}

func TestRecordPaymentUpdatesPayable(t *testing.T) {
	repo := newMemoryRepo()
	hooks := &recordedHooks{}
	poSync := &recordedPOSync{}
	txn := openTransaction(repo, 1400000, 0, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, poSync, hooks)

	payment, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 400000), shared.Actor{ID: 5})
	require.NoError(t, err)
	require.Equal(t, "PAY-OUT-2026-000001", payment.Number)

	updated := repo.transactions[txn.ID]
	require.Equal(t, StatusPartial, updated.Status)
	require.Equal(t, 1000000.0, updated.Outstanding())

	require.Equal(t, 400000.0, poSync.calls[txn.PurchaseOrderID])
	require.Len(t, hooks.events, 1)
	require.Equal(t, txn.PurchaseOrderID, hooks.events[0].PurchaseOrderID)
	require.Equal(t, txn.SupplierID, hooks.events[0].SupplierID)
}

func TestRecordPaymentSettlesExactly(t *testing.T) {
	repo := newMemoryRepo()
	txn := openTransaction(repo, 700000, 300000, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, nil, &recordedHooks{})

	_, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 400000), shared.Actor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, repo.transactions[txn.ID].Status)
	require.Equal(t, 0.0, repo.transactions[txn.ID].Outstanding())
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryRepo()
	txn := openTransaction(repo, 700000, 650000, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, nil, &recordedHooks{})

	_, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 50001), shared.Actor{ID: 1})
	require.ErrorIs(t, err, ErrExceedsOutstanding)
	require.Empty(t, repo.payments)
	require.Equal(t, 650000.0, repo.transactions[txn.ID].PaidAmount)
}

func TestGetViewDerivesOverdueAtReadTime(t *testing.T) {
	repo := newMemoryRepo()
	// Due 99 days before the service clock, nothing paid.
	txn := openTransaction(repo, 1400000, 0, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, nil, &recordedHooks{})

	view, err := svc.GetView(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, view.Status)
	require.Equal(t, aging.StatusOverdue, view.AgingStatus)
	require.Equal(t, aging.Bucket90Plus, view.AgingBucket)
	require.Equal(t, 1400000.0, view.Outstanding)
}

func TestListViewsDeriveAgingPerRow(t *testing.T) {
	repo := newMemoryRepo()
	overdue := openTransaction(repo, 700000, 100000, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC))
	current := openTransaction(repo, 300000, 0, time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, nil, &recordedHooks{})

	views, total, err := svc.ListViews(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, total)

	byID := map[int64]TransactionView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	require.Equal(t, aging.StatusPartial, byID[overdue.ID].AgingStatus)
	require.Equal(t, aging.Bucket31to60, byID[overdue.ID].AgingBucket)
	require.Equal(t, 600000.0, byID[overdue.ID].Outstanding)
	require.Equal(t, aging.StatusCurrent, byID[current.ID].AgingStatus)
	require.Equal(t, aging.Bucket0to30, byID[current.ID].AgingBucket)
}

func TestPurchaseOrderSyncFailureDoesNotFailPayment(t *testing.T) {
	repo := newMemoryRepo()
	poSync := &recordedPOSync{err: fmt.Errorf("po row gone")}
	txn := openTransaction(repo, 500000, 0, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, poSync, &recordedHooks{})

	_, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 500000), shared.Actor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, repo.transactions[txn.ID].Status)
}
