package ar

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
	invoicePaid  map[int64]float64
	seqs         map[string]int64
	nextID       int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		transactions: map[int64]Transaction{},
		invoicePaid:  map[int64]float64{},
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

func (t *memoryTx) SyncInvoicePaid(_ context.Context, invoiceID int64, paid float64) error {
	t.repo.invoicePaid[invoiceID] = paid
	return nil
}

type recordedHooks struct {
	events []PaymentRecordedEvent
	err    error
}

func (h *recordedHooks) HandleARPaymentRecorded(_ context.Context, evt PaymentRecordedEvent) error {
	h.events = append(h.events, evt)
	return h.err
}

func openTransaction(repo *memoryRepo, original, paid float64, due time.Time) Transaction {
	id := repo.nextID
	repo.nextID++
	txn := Transaction{
		ID:             id,
		Number:         fmt.Sprintf("AR-2026-%06d", id),
		InvoiceID:      id + 100,
		CustomerID:     7,
		OriginalAmount: original,
		PaidAmount:     paid,
		DueAt:          due,
		Status:         DeriveStatus(paid, original),
	}
	repo.transactions[id] = txn
	return txn
}

func testService(repo *memoryRepo, hooks IntegrationHandler) *Service {
	svc := NewService(repo, nil, hooks, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC) })
	return svc
}

func paymentInput(id int64, amount float64) PaymentInput {
	return PaymentInput{
		TransactionID: id,
		Amount:        amount,
		PaidAt:        time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Method:        "BANK_TRANSFER",
	}
}

func TestDeriveStatusTable(t *testing.T) {
	cases := []struct {
		paid, original float64
		want           TransactionStatus
	}{
		{0, 1000, StatusUnpaid},
		{400, 1000, StatusPartial},
		{1000, 1000, StatusPaid},
		{1000.01, 1000, StatusPaid},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DeriveStatus(tc.paid, tc.original))
	}
}

func TestRecordPaymentPartial(t *testing.T) {
	repo := newMemoryRepo()
	hooks := &recordedHooks{}
	txn := openTransaction(repo, 2220000, 0, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, hooks)

	payment, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 1000000), shared.Actor{ID: 3})
	require.NoError(t, err)
	require.Equal(t, "PMT-2026-000001", payment.Number)
	require.Equal(t, int64(3), payment.CreatedBy)

	updated := repo.transactions[txn.ID]
	require.Equal(t, StatusPartial, updated.Status)
	require.Equal(t, 1000000.0, updated.PaidAmount)
	require.Equal(t, 1220000.0, updated.Outstanding())
	require.Equal(t, 1000000.0, repo.invoicePaid[txn.InvoiceID])

	require.Len(t, hooks.events, 1)
	require.Equal(t, payment.ID, hooks.events[0].PaymentID)
	require.Equal(t, txn.InvoiceID, hooks.events[0].InvoiceID)
}

func TestRecordPaymentSettlesExactly(t *testing.T) {
	repo := newMemoryRepo()
	txn := openTransaction(repo, 500000, 200000, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, &recordedHooks{})

	_, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 300000), shared.Actor{ID: 1})
	require.NoError(t, err)

	updated := repo.transactions[txn.ID]
	require.Equal(t, StatusPaid, updated.Status)
	require.Equal(t, 0.0, updated.Outstanding())
}

func TestRecordPaymentRejectsOverpayment(t *testing.T) {
	repo := newMemoryRepo()
	txn := openTransaction(repo, 500000, 400000, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, &recordedHooks{})

	_, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 100000.01), shared.Actor{ID: 1})
	require.ErrorIs(t, err, ErrExceedsOutstanding)

	// nothing written
	require.Empty(t, repo.payments)
	require.Equal(t, 400000.0, repo.transactions[txn.ID].PaidAmount)
	require.Empty(t, repo.invoicePaid)
}

func TestRecordPaymentRejectsInvalidInput(t *testing.T) {
	repo := newMemoryRepo()
	txn := openTransaction(repo, 500000, 0, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, &recordedHooks{})

	in := paymentInput(txn.ID, 0)
	_, err := svc.RecordPayment(context.Background(), in, shared.Actor{ID: 1})
	require.Error(t, err)

	in = paymentInput(txn.ID, 100)
	in.Method = ""
	_, err = svc.RecordPayment(context.Background(), in, shared.Actor{ID: 1})
	require.Error(t, err)
	require.Empty(t, repo.payments)
}

func TestRecordPaymentUnknownTransaction(t *testing.T) {
	repo := newMemoryRepo()
	svc := testService(repo, &recordedHooks{})

	_, err := svc.RecordPayment(context.Background(), paymentInput(99, 100), shared.Actor{ID: 1})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPaymentNumbersIncrementPerYear(t *testing.T) {
	repo := newMemoryRepo()
	txn := openTransaction(repo, 900000, 0, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, &recordedHooks{})

	first, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 100000), shared.Actor{ID: 1})
	require.NoError(t, err)
	second, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 100000), shared.Actor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, "PMT-2026-000001", first.Number)
	require.Equal(t, "PMT-2026-000002", second.Number)
}

func TestHookFailureDoesNotFailPayment(t *testing.T) {
	repo := newMemoryRepo()
	hooks := &recordedHooks{err: fmt.Errorf("ledger down")}
	txn := openTransaction(repo, 500000, 0, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, hooks)

	_, err := svc.RecordPayment(context.Background(), paymentInput(txn.ID, 500000), shared.Actor{ID: 1})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, repo.transactions[txn.ID].Status)
}

func TestGetViewDerivesOverdueAtReadTime(t *testing.T) {
	repo := newMemoryRepo()
	// Due 45 days before the service clock, nothing paid.
	txn := openTransaction(repo, 2220000, 0, time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, &recordedHooks{})

	view, err := svc.GetView(context.Background(), txn.ID)
	require.NoError(t, err)
	require.Equal(t, StatusUnpaid, view.Status)
	require.Equal(t, aging.StatusOverdue, view.AgingStatus)
	require.Equal(t, aging.Bucket31to60, view.AgingBucket)
	require.Equal(t, 2220000.0, view.Outstanding)
}

func TestListViewsDeriveAgingPerRow(t *testing.T) {
	repo := newMemoryRepo()
	overdue := openTransaction(repo, 500000, 0, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	current := openTransaction(repo, 300000, 0, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	settled := openTransaction(repo, 100000, 100000, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := testService(repo, &recordedHooks{})

	views, total, err := svc.ListViews(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, total)

	byID := map[int64]TransactionView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	require.Equal(t, aging.StatusOverdue, byID[overdue.ID].AgingStatus)
	require.Equal(t, aging.Bucket0to30, byID[overdue.ID].AgingBucket)
	require.Equal(t, aging.StatusCurrent, byID[current.ID].AgingStatus)
	require.Equal(t, aging.StatusPaid, byID[settled.ID].AgingStatus)
	require.Equal(t, 0.0, byID[settled.ID].Outstanding)
}

func TestAgingSummaryBuckets(t *testing.T) {
	repo := newMemoryRepo()
	asOf := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	openTransaction(repo, 100, 0, asOf.AddDate(0, 0, -10)) // 0-30
	openTransaction(repo, 200, 50, asOf.AddDate(0, 0, -45))
	openTransaction(repo, 400, 0, asOf.AddDate(0, 0, -70))
	openTransaction(repo, 800, 0, asOf.AddDate(0, 0, -120))
	openTransaction(repo, 999, 999, asOf.AddDate(0, 0, -120)) // settled, excluded

	svc := NewAgingService(repo, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.WithNow(func() time.Time { return asOf })

	summary, err := svc.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, aging.Summary{
		Bucket0to30:  100,
		Bucket31to60: 150,
		Bucket61to90: 400,
		Bucket90Plus: 800,
		Total:        1450,
	}, summary)
}
