package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/journals"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/mappings"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/periods"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	"github.com/bigblink-erp/bigblink-erp/internal/ap"
	"github.com/bigblink-erp/bigblink-erp/internal/ar"
	"github.com/bigblink-erp/bigblink-erp/internal/procurement"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/quotations"
)

type fakeLedger struct {
	posted  []journals.PostingInput
	sources map[uuid.UUID]bool
}

func (l *fakeLedger) PostJournal(_ context.Context, input journals.PostingInput) (journals.JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	if l.sources == nil {
		l.sources = map[uuid.UUID]bool{}
	}
	if l.sources[input.SourceID] {
		return journals.JournalEntry{}, shared.ErrSourceAlreadyLinked
	}
	l.sources[input.SourceID] = true
	l.posted = append(l.posted, input)
	return journals.JournalEntry{ID: int64(len(l.posted))}, nil
}

type fakePeriods struct{}

func (fakePeriods) EnsureOpenPeriod(_ context.Context, date time.Time) (periods.Period, error) {
	return periods.Period{ID: 3, Status: periods.PeriodStatusOpen}, nil
}

type fakeMappings struct{ missing map[string]bool }

var accountIDs = map[string]int64{
	mappings.ModuleBilling + "/" + mappings.KeyAccountsReceivable: 1100,
	mappings.ModuleBilling + "/" + mappings.KeySalesRevenue:       4100,
	mappings.ModuleBilling + "/" + mappings.KeyCOGS:               5100,
	mappings.ModuleBilling + "/" + mappings.KeyAccruedCosts:       2150,
	mappings.ModuleAR + "/" + mappings.KeyCashBank:                1000,
	mappings.ModuleAR + "/" + mappings.KeyAccountsReceivable:      1100,
	mappings.ModuleAP + "/" + mappings.KeyAccountsPayable:         2100,
	mappings.ModuleAP + "/" + mappings.KeyCashBank:                1000,
	mappings.ModuleAP + "/" + mappings.KeyExpense:                 5200,
}

func (m fakeMappings) Get(_ context.Context, module, key string) (mappings.AccountMapping, error) {
	lookup := module + "/" + key
	if m.missing[lookup] {
		return mappings.AccountMapping{}, shared.ErrMappingNotFound
	}
	id, ok := accountIDs[lookup]
	if !ok {
		return mappings.AccountMapping{}, shared.ErrMappingNotFound
	}
	return mappings.AccountMapping{Module: module, Key: key, AccountID: id}, nil
}

func fixture() (*fakeLedger, *Hooks) {
	ledger := &fakeLedger{}
	return ledger, NewHooks(ledger, fakePeriods{}, fakeMappings{})
}

func approvalEvent(revision int) quotations.QuotationApprovedEvent {
	return quotations.QuotationApprovedEvent{
		QuotationID:   12,
		Number:        "BIG-26-03-0012",
		Revision:      revision,
		CustomerID:    7,
		ApprovedAt:    time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC),
		InvoiceID:     55,
		InvoiceNumber: "INV-BIG-26-03-0012",
		InvoiceTotal:  2220000,
		CostTotal:     1400000.0000000002,
	}
}

func TestQuotationApprovalPostsBalancedBatch(t *testing.T) {
	ledger, hooks := fixture()

	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), approvalEvent(1)))
	require.Len(t, ledger.posted, 1)

	input := ledger.posted[0]
	require.Equal(t, int64(3), input.PeriodID)
	require.Equal(t, "BILLING.APPROVAL", input.SourceModule)
	require.Len(t, input.Lines, 4)
	require.Equal(t, journals.PostingLineInput{AccountID: 1100, Debit: 2220000}, input.Lines[0])
	require.Equal(t, journals.PostingLineInput{AccountID: 4100, Credit: 2220000}, input.Lines[1])
	require.Equal(t, journals.PostingLineInput{AccountID: 5100, Debit: 1400000}, input.Lines[2])
	require.Equal(t, journals.PostingLineInput{AccountID: 2150, Credit: 1400000}, input.Lines[3])
}

func TestQuotationApprovalIdempotentPerRevision(t *testing.T) {
	ledger, hooks := fixture()

	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), approvalEvent(1)))
	// replay of the same revision is swallowed
	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), approvalEvent(1)))
	require.Len(t, ledger.posted, 1)

	// a re-approval with changed totals carries a new revision and posts again
	evt := approvalEvent(2)
	evt.PrevInvoiceTotal = evt.InvoiceTotal
	evt.PrevCostTotal = evt.CostTotal
	evt.InvoiceTotal += 555000
	evt.CostTotal += 350000
	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), evt))
	require.Len(t, ledger.posted, 2)
	require.NotEqual(t, ledger.posted[0].SourceID, ledger.posted[1].SourceID)
}

// receivableDebits nets the posted movement on the receivable account.
func receivableDebits(posted []journals.PostingInput) float64 {
	var total float64
	for _, input := range posted {
		for _, line := range input.Lines {
			if line.AccountID == 1100 {
				total += line.Debit - line.Credit
			}
		}
	}
	return total
}

func TestReapprovalUnchangedTotalsPostsNothing(t *testing.T) {
	ledger, hooks := fixture()

	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), approvalEvent(1)))

	evt := approvalEvent(2)
	evt.PrevInvoiceTotal = evt.InvoiceTotal
	evt.PrevCostTotal = evt.CostTotal
	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), evt))

	require.Len(t, ledger.posted, 1)
	require.Equal(t, 2220000.0, receivableDebits(ledger.posted))
}

func TestReapprovalPostsOnlyTheDelta(t *testing.T) {
	ledger, hooks := fixture()

	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), approvalEvent(1)))

	evt := approvalEvent(2)
	evt.PrevInvoiceTotal = 2220000
	evt.PrevCostTotal = 1400000
	evt.InvoiceTotal = 3330000
	evt.CostTotal = 2100000
	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), evt))

	require.Len(t, ledger.posted, 2)
	delta := ledger.posted[1]
	require.Len(t, delta.Lines, 4)
	require.Equal(t, journals.PostingLineInput{AccountID: 1100, Debit: 1110000}, delta.Lines[0])
	require.Equal(t, journals.PostingLineInput{AccountID: 4100, Credit: 1110000}, delta.Lines[1])
	require.Equal(t, journals.PostingLineInput{AccountID: 5100, Debit: 700000}, delta.Lines[2])
	require.Equal(t, journals.PostingLineInput{AccountID: 2150, Credit: 700000}, delta.Lines[3])
	// Ledger receivable equals the current invoice total, not the sum of revisions.
	require.Equal(t, 3330000.0, receivableDebits(ledger.posted))
}

func TestReapprovalDecreaseBooksReversalPair(t *testing.T) {
	ledger, hooks := fixture()

	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), approvalEvent(1)))

	evt := approvalEvent(2)
	evt.PrevInvoiceTotal = 2220000
	evt.PrevCostTotal = 1400000
	evt.InvoiceTotal = 1110000
	evt.CostTotal = 700000
	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), evt))

	require.Len(t, ledger.posted, 2)
	delta := ledger.posted[1]
	require.Equal(t, journals.PostingLineInput{AccountID: 4100, Debit: 1110000}, delta.Lines[0])
	require.Equal(t, journals.PostingLineInput{AccountID: 1100, Credit: 1110000}, delta.Lines[1])
	require.Equal(t, journals.PostingLineInput{AccountID: 2150, Debit: 700000}, delta.Lines[2])
	require.Equal(t, journals.PostingLineInput{AccountID: 5100, Credit: 700000}, delta.Lines[3])
	require.Equal(t, 1110000.0, receivableDebits(ledger.posted))
}

func TestQuotationApprovalMissingMappingFails(t *testing.T) {
	ledger := &fakeLedger{}
	hooks := NewHooks(ledger, fakePeriods{}, fakeMappings{missing: map[string]bool{
		mappings.ModuleBilling + "/" + mappings.KeySalesRevenue: true,
	}})

	err := hooks.HandleQuotationApproved(context.Background(), approvalEvent(1))
	require.ErrorIs(t, err, shared.ErrMappingNotFound)
	require.Empty(t, ledger.posted)
}

func TestPOApprovalPostsExpenseAgainstPayable(t *testing.T) {
	ledger, hooks := fixture()

	evt := procurement.ApprovedEvent{
		PurchaseOrderID: 8,
		Number:          "PO-2026-0008",
		APNumber:        "AP-2026-000008",
		Total:           1000000,
		ApprovedAt:      time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC),
	}
	require.NoError(t, hooks.HandlePOApproved(context.Background(), evt))
	require.Len(t, ledger.posted, 1)
	require.Equal(t, journals.PostingLineInput{AccountID: 5200, Debit: 1000000}, ledger.posted[0].Lines[0])
	require.Equal(t, journals.PostingLineInput{AccountID: 2100, Credit: 1000000}, ledger.posted[0].Lines[1])
}

func TestARPaymentPostsCashAgainstReceivable(t *testing.T) {
	ledger, hooks := fixture()

	evt := ar.PaymentRecordedEvent{
		TransactionID: 4,
		PaymentID:     21,
		PaymentNumber: "PMT-2026-000021",
		Amount:        500000,
		PaidAt:        time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, hooks.HandleARPaymentRecorded(context.Background(), evt))
	require.Len(t, ledger.posted, 1)
	require.Equal(t, "AR.PAYMENT", ledger.posted[0].SourceModule)
	require.Equal(t, journals.PostingLineInput{AccountID: 1000, Debit: 500000}, ledger.posted[0].Lines[0])
	require.Equal(t, journals.PostingLineInput{AccountID: 1100, Credit: 500000}, ledger.posted[0].Lines[1])
}

func TestAPPaymentPostsPayableAgainstCash(t *testing.T) {
	ledger, hooks := fixture()

	evt := ap.PaymentRecordedEvent{
		TransactionID: 9,
		PaymentID:     33,
		PaymentNumber: "PAY-OUT-2026-000033",
		Amount:        250000,
		PaidAt:        time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, hooks.HandleAPPaymentRecorded(context.Background(), evt))
	require.Len(t, ledger.posted, 1)
	require.Equal(t, journals.PostingLineInput{AccountID: 2100, Debit: 250000}, ledger.posted[0].Lines[0])
	require.Equal(t, journals.PostingLineInput{AccountID: 1000, Credit: 250000}, ledger.posted[0].Lines[1])
}

func TestZeroAmountEventsAreSkipped(t *testing.T) {
	ledger, hooks := fixture()

	evt := approvalEvent(1)
	evt.InvoiceTotal = 0
	evt.CostTotal = 0
	require.NoError(t, hooks.HandleQuotationApproved(context.Background(), evt))
	require.NoError(t, hooks.HandleARPaymentRecorded(context.Background(), ar.PaymentRecordedEvent{
		PaymentID: 1, Amount: 0, PaidAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.Empty(t, ledger.posted)
}
