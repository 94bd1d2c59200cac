package quotations

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bigblink-erp/bigblink-erp/internal/billing/invoices"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/customers"
	"github.com/bigblink-erp/bigblink-erp/internal/shared"
)

type arRow struct {
	ID         int64
	Number     string
	InvoiceID  int64
	CustomerID int64
	Original   float64
	Paid       float64
	DueAt      time.Time
	Status     string
}

type costRow struct {
	ID          int64
	Number      string
	QuotationID int64
	Description string
	Amount      float64
	Status      string
}

type memoryRepo struct {
	quotations map[int64]Quotation
	lines      map[int64][]QuotationLine
	invoices   map[int64]invoices.Invoice
	invLines   map[int64][]invoices.InvoiceLine
	costs      []costRow
	ar         map[int64]arRow
	seqs       map[string]int64
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		quotations: make(map[int64]Quotation),
		lines:      make(map[int64][]QuotationLine),
		invoices:   make(map[int64]invoices.Invoice),
		invLines:   make(map[int64][]invoices.InvoiceLine),
		ar:         make(map[int64]arRow),
		seqs:       make(map[string]int64),
	}
}

func (r *memoryRepo) id() int64 {
	r.nextID++
	return r.nextID
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, ok := r.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	q.Lines = append([]QuotationLine(nil), r.lines[id]...)
	return &q, nil
}

func (r *memoryRepo) GetByNumber(ctx context.Context, number string) (*Quotation, error) {
	for id, q := range r.quotations {
		if q.Number == number {
			return r.Get(ctx, id)
		}
	}
	return nil, ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, req ListQuotationsRequest) ([]Quotation, int, error) {
	var out []Quotation
	for _, q := range r.quotations {
		out = append(out, q)
	}
	return out, len(out), nil
}

func (r *memoryRepo) ExpireSent(ctx context.Context, asOf time.Time) (int64, error) {
	var n int64
	for id, q := range r.quotations {
		if q.Status == QuotationStatusSent && q.ValidUntil.Before(asOf) {
			q.Status = QuotationStatusExpired
			r.quotations[id] = q
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// The fake applies writes directly; rollback is not simulated because the
	// tests only assert committed outcomes or errors raised before any write.
	return fn(ctx, &memoryTx{repo: r})
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) GetQuotationForUpdate(ctx context.Context, id int64) (Quotation, error) {
	q, ok := tx.repo.quotations[id]
	if !ok {
		return Quotation{}, ErrNotFound
	}
	return q, nil
}

func (tx *memoryTx) GetLines(ctx context.Context, quotationID int64) ([]QuotationLine, error) {
	return append([]QuotationLine(nil), tx.repo.lines[quotationID]...), nil
}

func (tx *memoryTx) InsertQuotation(ctx context.Context, q Quotation) (int64, error) {
	q.ID = tx.repo.id()
	tx.repo.quotations[q.ID] = q
	return q.ID, nil
}

func (tx *memoryTx) InsertLine(ctx context.Context, line QuotationLine) (int64, error) {
	line.ID = tx.repo.id()
	tx.repo.lines[line.QuotationID] = append(tx.repo.lines[line.QuotationID], line)
	return line.ID, nil
}

func (tx *memoryTx) DeleteLines(ctx context.Context, quotationID int64) error {
	delete(tx.repo.lines, quotationID)
	return nil
}

func (tx *memoryTx) UpdateHeader(ctx context.Context, id int64, q Quotation) error {
	current, ok := tx.repo.quotations[id]
	if !ok {
		return ErrNotFound
	}
	current.QuoteDate = q.QuoteDate
	current.ValidUntil = q.ValidUntil
	current.Currency = q.Currency
	current.Subtotal = q.Subtotal
	current.TaxRate = q.TaxRate
	current.TaxAmount = q.TaxAmount
	current.TotalAmount = q.TotalAmount
	current.Notes = q.Notes
	tx.repo.quotations[id] = current
	return nil
}

func (tx *memoryTx) UpdateStatus(ctx context.Context, id int64, status QuotationStatus, revision int) error {
	q, ok := tx.repo.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	q.Revision = revision
	tx.repo.quotations[id] = q
	return nil
}

func (tx *memoryTx) NextSequence(ctx context.Context, docType, period string) (int64, error) {
	key := docType + ":" + period
	tx.repo.seqs[key]++
	return tx.repo.seqs[key], nil
}

func (tx *memoryTx) InsertInvoice(ctx context.Context, inv invoices.Invoice) (int64, error) {
	inv.ID = tx.repo.id()
	tx.repo.invoices[inv.ID] = inv
	return inv.ID, nil
}

func (tx *memoryTx) InsertInvoiceLine(ctx context.Context, line invoices.InvoiceLine) error {
	line.ID = tx.repo.id()
	tx.repo.invLines[line.InvoiceID] = append(tx.repo.invLines[line.InvoiceID], line)
	return nil
}

func (tx *memoryTx) GetInvoiceByQuotation(ctx context.Context, quotationID int64) (invoices.Invoice, error) {
	for _, inv := range tx.repo.invoices {
		if inv.QuotationID != nil && *inv.QuotationID == quotationID {
			return inv, nil
		}
	}
	return invoices.Invoice{}, ErrNotFound
}

func (tx *memoryTx) UpdateInvoiceTotals(ctx context.Context, invoiceID int64, subtotal, taxRate, taxAmount, total float64) error {
	inv, ok := tx.repo.invoices[invoiceID]
	if !ok {
		return ErrNotFound
	}
	inv.Subtotal = subtotal
	inv.TaxRate = taxRate
	inv.TaxAmount = taxAmount
	inv.TotalAmount = total
	tx.repo.invoices[invoiceID] = inv
	return nil
}

func (tx *memoryTx) DeleteInvoiceLines(ctx context.Context, invoiceID int64) error {
	delete(tx.repo.invLines, invoiceID)
	return nil
}

func (tx *memoryTx) InsertCost(ctx context.Context, quotationID int64, number, description string, amount float64) error {
	tx.repo.costs = append(tx.repo.costs, costRow{
		ID:          tx.repo.id(),
		Number:      number,
		QuotationID: quotationID,
		Description: description,
		Amount:      amount,
		Status:      "PENDING",
	})
	return nil
}

func (tx *memoryTx) DeleteCosts(ctx context.Context, quotationID int64) error {
	var kept []costRow
	for _, c := range tx.repo.costs {
		if c.QuotationID != quotationID {
			kept = append(kept, c)
		}
	}
	tx.repo.costs = kept
	return nil
}

func (tx *memoryTx) SumCosts(ctx context.Context, quotationID int64) (float64, error) {
	var total float64
	for _, c := range tx.repo.costs {
		if c.QuotationID == quotationID {
			total += c.Amount
		}
	}
	return total, nil
}

func (tx *memoryTx) InsertARTransaction(ctx context.Context, invoiceID, customerID int64, number string, original float64, dueAt time.Time) (int64, error) {
	id := tx.repo.id()
	tx.repo.ar[id] = arRow{
		ID:         id,
		Number:     number,
		InvoiceID:  invoiceID,
		CustomerID: customerID,
		Original:   original,
		DueAt:      dueAt,
		Status:     "UNPAID",
	}
	return id, nil
}

func (tx *memoryTx) UpdateARTransactionOriginal(ctx context.Context, invoiceID int64, original float64) error {
	for id, row := range tx.repo.ar {
		if row.InvoiceID == invoiceID {
			row.Original = original
			switch {
			case row.Paid >= original:
				row.Status = "PAID"
			case row.Paid > 0:
				row.Status = "PARTIAL"
			default:
				row.Status = "UNPAID"
			}
			tx.repo.ar[id] = row
			return nil
		}
	}
	return ErrNotFound
}

type memoryCustomers struct {
	customers map[int64]customers.Customer
}

func (r *memoryCustomers) Get(ctx context.Context, id int64) (*customers.Customer, error) {
	c, ok := r.customers[id]
	if !ok {
		return nil, customers.ErrNotFound
	}
	return &c, nil
}

func (r *memoryCustomers) List(ctx context.Context, req customers.ListCustomersRequest) ([]customers.Customer, int, error) {
	return nil, 0, nil
}

func (r *memoryCustomers) Create(ctx context.Context, c customers.Customer) (int64, error) {
	return 0, nil
}

func (r *memoryCustomers) Update(ctx context.Context, id int64, c customers.Customer) error {
	return nil
}

func (r *memoryCustomers) SetActive(ctx context.Context, id int64, active bool) error {
	return nil
}

type recordedApprovals struct {
	logs []shared.ApprovalLog
}

func (r *recordedApprovals) Record(ctx context.Context, log shared.ApprovalLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordedApprovals) List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	return r.logs, nil
}

type recordedHooks struct {
	events []QuotationApprovedEvent
}

func (h *recordedHooks) HandleQuotationApproved(ctx context.Context, evt QuotationApprovedEvent) error {
	h.events = append(h.events, evt)
	return nil
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func newTestService(repo *memoryRepo) (*Service, *recordedApprovals, *recordedHooks) {
	custRepo := &memoryCustomers{customers: map[int64]customers.Customer{
		1: {ID: 1, Code: "ACME", Name: "Acme Logistics", PaymentTermsDays: 30, Country: "ID", IsActive: true},
	}}
	approvals := &recordedApprovals{}
	hooks := &recordedHooks{}
	svc := NewService(repo, custRepo, approvals, nil, hooks, testLogger())
	return svc, approvals, hooks
}

func sampleRequest() CreateQuotationRequest {
	quoteDate := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return CreateQuotationRequest{
		CustomerID: 1,
		QuoteDate:  quoteDate,
		ValidUntil: quoteDate.AddDate(0, 1, 0),
		Currency:   "IDR",
		TaxRate:    0.11,
		Lines: []CreateQuotationLineReq{
			{Description: "Item A", Quantity: 2, UnitPrice: 500000},
			{Description: "Item B", Quantity: 1, UnitPrice: 1000000},
		},
	}
}

func TestCanTransitionTable(t *testing.T) {
	cases := []struct {
		from, to QuotationStatus
		ok       bool
	}{
		{QuotationStatusDraft, QuotationStatusSent, true},
		{QuotationStatusDraft, QuotationStatusApproved, true},
		{QuotationStatusDraft, QuotationStatusRejected, true},
		{QuotationStatusDraft, QuotationStatusExpired, false},
		{QuotationStatusSent, QuotationStatusApproved, true},
		{QuotationStatusSent, QuotationStatusExpired, true},
		{QuotationStatusApproved, QuotationStatusPendingReview, true},
		{QuotationStatusApproved, QuotationStatusSent, false},
		{QuotationStatusPendingReview, QuotationStatusApproved, true},
		{QuotationStatusPendingReview, QuotationStatusRejected, true},
		{QuotationStatusRejected, QuotationStatusApproved, false},
		{QuotationStatusExpired, QuotationStatusApproved, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.ok, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestCreateComputesAmountsAndNumber(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	q, err := svc.Create(context.Background(), sampleRequest(), shared.Actor{ID: 7})
	require.NoError(t, err)
	require.Equal(t, "BIG-26-03-0001", q.Number)
	require.Equal(t, QuotationStatusDraft, q.Status)
	require.Equal(t, 2000000.0, q.Subtotal)
	require.InDelta(t, 220000.0, q.TaxAmount, 0.0001)
	require.InDelta(t, 2220000.0, q.TotalAmount, 0.0001)
	require.Equal(t, 1, q.Revision)
	require.Len(t, q.Lines, 2)
	require.Equal(t, 1000000.0, q.Lines[0].Amount)
	require.Equal(t, 1000000.0, q.Lines[1].Amount)

	q2, err := svc.Create(context.Background(), sampleRequest(), shared.Actor{ID: 7})
	require.NoError(t, err)
	require.Equal(t, "BIG-26-03-0002", q2.Number)
}

func TestCreateRejectsUnknownCustomer(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	req := sampleRequest()
	req.CustomerID = 99
	_, err := svc.Create(context.Background(), req, shared.Actor{ID: 7})
	require.Error(t, err)
	require.Empty(t, repo.quotations)
}

func TestFirstApprovalSpawnsDocuments(t *testing.T) {
	repo := newMemoryRepo()
	svc, approvals, hooks := newTestService(repo)
	actor := shared.Actor{ID: 7}

	q, err := svc.Create(context.Background(), sampleRequest(), actor)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), q.ID, actor)
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), q.ID, actor)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusApproved, approved.Status)

	// One invoice copying the totals, with both lines.
	require.Len(t, repo.invoices, 1)
	var inv invoices.Invoice
	for _, v := range repo.invoices {
		inv = v
	}
	require.Equal(t, "INV-"+q.Number, inv.Number)
	require.InDelta(t, 2220000.0, inv.TotalAmount, 0.0001)
	require.Equal(t, invoices.InvoiceStatusUnpaid, inv.Status)
	require.Len(t, repo.invLines[inv.ID], 2)

	// Cost rows: exactly 0.7 x line amount, applied per line, not to the
	// tax-inclusive total.
	require.Len(t, repo.costs, 2)
	require.Equal(t, 700000.0, repo.costs[0].Amount)
	require.Equal(t, 700000.0, repo.costs[1].Amount)
	require.Equal(t, fmt.Sprintf("COST-%s-01", q.Number), repo.costs[0].Number)
	require.Equal(t, fmt.Sprintf("COST-%s-02", q.Number), repo.costs[1].Number)

	// AR transaction mirrors the invoice total.
	require.Len(t, repo.ar, 1)
	for _, row := range repo.ar {
		require.Equal(t, 2220000.0, row.Original)
		require.Equal(t, 0.0, row.Paid)
		require.Equal(t, "UNPAID", row.Status)
		require.Contains(t, row.Number, "AR-2026-")
	}

	// Approval history and ledger event.
	require.Len(t, approvals.logs, 2) // SUBMIT + APPROVE
	require.Equal(t, shared.ApprovalApprove, approvals.logs[1].Action)
	require.Len(t, hooks.events, 1)
	require.Equal(t, 1, hooks.events[0].Revision)
	require.InDelta(t, 2220000.0, hooks.events[0].InvoiceTotal, 0.0001)
	require.InDelta(t, 1400000.0, hooks.events[0].CostTotal, 0.0001)
}

func TestApproveGuardsStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	actor := shared.Actor{ID: 7}

	q, err := svc.Create(context.Background(), sampleRequest(), actor)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), q.ID, actor)
	require.NoError(t, err)

	// Second approve must fail the guard: APPROVED is not approvable.
	_, err = svc.Approve(context.Background(), q.ID, actor)
	require.Error(t, err)
	require.Len(t, repo.invoices, 1)
	require.Len(t, repo.costs, 2)
}

func TestApproveRejectsEmptyLines(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	repo.nextID = 10
	repo.quotations[10] = Quotation{ID: 10, Number: "BIG-26-03-0009", CustomerID: 1, Status: QuotationStatusDraft, Revision: 1}
	_, err := svc.Approve(context.Background(), 10, shared.Actor{ID: 7})
	require.Error(t, err)
	require.Empty(t, repo.invoices)
}

func TestEditApprovedMovesToPendingReview(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	actor := shared.Actor{ID: 7}

	q, err := svc.Create(context.Background(), sampleRequest(), actor)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), q.ID, actor)
	require.NoError(t, err)

	newLines := []CreateQuotationLineReq{
		{Description: "Item A", Quantity: 2, UnitPrice: 500000},
		{Description: "Item B", Quantity: 1, UnitPrice: 1000000},
		{Description: "Item C", Quantity: 1, UnitPrice: 500000},
	}
	updated, err := svc.Update(context.Background(), q.ID, UpdateQuotationRequest{Lines: &newLines}, actor)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusPendingReview, updated.Status)
	require.Equal(t, 2500000.0, updated.Subtotal)
}

func TestReApprovalRegeneratesDocuments(t *testing.T) {
	repo := newMemoryRepo()
	svc, approvals, hooks := newTestService(repo)
	actor := shared.Actor{ID: 7}

	q, err := svc.Create(context.Background(), sampleRequest(), actor)
	require.NoError(t, err)
	_, err = svc.Approve(context.Background(), q.ID, actor)
	require.NoError(t, err)

	firstCostIDs := []int64{repo.costs[0].ID, repo.costs[1].ID}

	newLines := []CreateQuotationLineReq{
		{Description: "Item A", Quantity: 2, UnitPrice: 500000},
		{Description: "Item B", Quantity: 1, UnitPrice: 1000000},
		{Description: "Item C", Quantity: 1, UnitPrice: 500000},
	}
	_, err = svc.Update(context.Background(), q.ID, UpdateQuotationRequest{Lines: &newLines}, actor)
	require.NoError(t, err)

	reapproved, err := svc.Approve(context.Background(), q.ID, actor)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusApproved, reapproved.Status)
	require.Equal(t, 2, reapproved.Revision)

	// Still one invoice, totals overwritten, lines regenerated.
	require.Len(t, repo.invoices, 1)
	var inv invoices.Invoice
	for _, v := range repo.invoices {
		inv = v
	}
	require.InDelta(t, 2775000.0, inv.TotalAmount, 0.0001) // 2.5M * 1.11
	require.Len(t, repo.invLines[inv.ID], 3)

	// AR original adjusted.
	for _, row := range repo.ar {
		require.InDelta(t, 2775000.0, row.Original, 0.0001)
	}

	// Cost rows regenerated with fresh identity: totals are reproducible,
	// row IDs are not.
	require.Len(t, repo.costs, 3)
	for _, c := range repo.costs {
		require.NotContains(t, firstCostIDs, c.ID)
	}
	require.Equal(t, 350000.0, repo.costs[2].Amount)

	// Distinct approval action and a second, revision-tagged ledger event.
	last := approvals.logs[len(approvals.logs)-1]
	require.Equal(t, shared.ApprovalReapprove, last.Action)
	require.Len(t, hooks.events, 2)
	require.Equal(t, 2, hooks.events[0].Revision+1)
	require.Equal(t, 2, hooks.events[1].Revision)

	// The re-approval event carries what revision 1 already posted, so the
	// ledger hook books only the difference.
	require.Equal(t, 0.0, hooks.events[0].PrevInvoiceTotal)
	require.Equal(t, 0.0, hooks.events[0].PrevCostTotal)
	require.InDelta(t, 2220000.0, hooks.events[1].PrevInvoiceTotal, 0.0001)
	require.InDelta(t, 1400000.0, hooks.events[1].PrevCostTotal, 0.0001)
	require.InDelta(t, 2775000.0, hooks.events[1].InvoiceTotal, 0.0001)
	require.InDelta(t, 1750000.0, hooks.events[1].CostTotal, 0.0001)
}

func TestReApprovalWithoutInvoiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	repo.nextID = 20
	repo.quotations[20] = Quotation{ID: 20, Number: "BIG-26-03-0020", CustomerID: 1, Status: QuotationStatusPendingReview, Revision: 1, TotalAmount: 100}
	repo.lines[20] = []QuotationLine{{ID: 21, QuotationID: 20, Description: "X", Quantity: 1, UnitPrice: 100, Amount: 100, LineOrder: 1}}

	_, err := svc.Approve(context.Background(), 20, shared.Actor{ID: 7})
	require.ErrorIs(t, err, ErrNoInvoice)
}

func TestExpireSentSweep(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)
	actor := shared.Actor{ID: 7}

	q, err := svc.Create(context.Background(), sampleRequest(), actor)
	require.NoError(t, err)
	_, err = svc.Send(context.Background(), q.ID, actor)
	require.NoError(t, err)

	n, err := repo.ExpireSent(context.Background(), q.ValidUntil.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	got, err := svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	require.Equal(t, QuotationStatusExpired, got.Status)
}
