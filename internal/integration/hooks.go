package integration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bigblink-erp/bigblink-erp/internal/accounting/journals"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/mappings"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/periods"
	"github.com/bigblink-erp/bigblink-erp/internal/accounting/shared"
	"github.com/bigblink-erp/bigblink-erp/internal/ap"
	"github.com/bigblink-erp/bigblink-erp/internal/ar"
	"github.com/bigblink-erp/bigblink-erp/internal/procurement"
	"github.com/bigblink-erp/bigblink-erp/internal/sales/quotations"
)

// Ledger exposes journal posting operations required by integrations.
type Ledger interface {
	PostJournal(ctx context.Context, input journals.PostingInput) (journals.JournalEntry, error)
}

// PeriodRepository provides period lookups. EnsureOpenPeriod creates the
// calendar-month period on first use so a posting never fails just because
// nobody opened the month yet.
type PeriodRepository interface {
	EnsureOpenPeriod(ctx context.Context, date time.Time) (periods.Period, error)
}

// AccountMappingRepository provides mapping lookups.
type AccountMappingRepository interface {
	Get(ctx context.Context, module, key string) (mappings.AccountMapping, error)
}

// Hooks wires domain events from operational modules into the general ledger.
// Every handler posts one balanced batch keyed by a deterministic source id,
// so replays after a crash collapse into no-ops.
type Hooks struct {
	ledger      Ledger
	periodRepo  PeriodRepository
	mappingRepo AccountMappingRepository
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, periodRepo PeriodRepository, mappingRepo AccountMappingRepository) *Hooks {
	return &Hooks{ledger: ledger, periodRepo: periodRepo, mappingRepo: mappingRepo}
}

func (h *Hooks) resolveAccount(ctx context.Context, module, key string) (int64, error) {
	mapping, err := h.mappingRepo.Get(ctx, module, key)
	if err != nil {
		return 0, err
	}
	return mapping.AccountID, nil
}

func (h *Hooks) post(ctx context.Context, input journals.PostingInput) error {
	if input.SourceID == uuid.Nil {
		return errors.New("integration: source id required")
	}
	_, err := h.ledger.PostJournal(ctx, input)
	if err != nil {
		if errors.Is(err, shared.ErrSourceAlreadyLinked) {
			return nil
		}
	}
	return err
}

func (h *Hooks) disabled() bool {
	return h == nil || h.ledger == nil || h.periodRepo == nil || h.mappingRepo == nil
}

// debitCreditPair books amount between a debit and a credit account. A
// negative amount swaps the sides, so a decrease books as a reversal pair.
func debitCreditPair(debitAccount, creditAccount int64, amount float64) []journals.PostingLineInput {
	if amount < 0 {
		debitAccount, creditAccount = creditAccount, debitAccount
		amount = -amount
	}
	return []journals.PostingLineInput{
		{AccountID: debitAccount, Debit: amount},
		{AccountID: creditAccount, Credit: amount},
	}
}

// HandleQuotationApproved posts the accrual batch for an approved quotation:
// the receivable against revenue and the expected costs against the accrual
// account. Each revision books only the difference against what the previous
// revision already posted, so after any number of re-approvals the ledger
// carries exactly the current invoice and cost totals; a re-approval with
// unchanged amounts posts nothing. The source id carries the revision, so
// replaying one revision's batch still collapses into a no-op.
func (h *Hooks) HandleQuotationApproved(ctx context.Context, evt quotations.QuotationApprovedEvent) error {
	if h.disabled() {
		return nil
	}
	if evt.ApprovedAt.IsZero() {
		return errors.New("integration: quotation approval date required")
	}

	revenue := round2(evt.InvoiceTotal - evt.PrevInvoiceTotal)
	cost := round2(evt.CostTotal - evt.PrevCostTotal)
	if revenue == 0 && cost == 0 {
		return nil
	}

	period, err := h.periodRepo.EnsureOpenPeriod(ctx, evt.ApprovedAt)
	if err != nil {
		return err
	}

	var lines []journals.PostingLineInput
	if revenue != 0 {
		arAccount, err := h.resolveAccount(ctx, mappings.ModuleBilling, mappings.KeyAccountsReceivable)
		if err != nil {
			return err
		}
		revenueAccount, err := h.resolveAccount(ctx, mappings.ModuleBilling, mappings.KeySalesRevenue)
		if err != nil {
			return err
		}
		lines = append(lines, debitCreditPair(arAccount, revenueAccount, revenue)...)
	}
	if cost != 0 {
		cogsAccount, err := h.resolveAccount(ctx, mappings.ModuleBilling, mappings.KeyCOGS)
		if err != nil {
			return err
		}
		accrualAccount, err := h.resolveAccount(ctx, mappings.ModuleBilling, mappings.KeyAccruedCosts)
		if err != nil {
			return err
		}
		lines = append(lines, debitCreditPair(cogsAccount, accrualAccount, cost)...)
	}

	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("QUOTE:%d:REV:%d", evt.QuotationID, evt.Revision)))
	input := journals.PostingInput{
		PeriodID:     period.ID,
		Date:         evt.ApprovedAt,
		SourceModule: "BILLING.APPROVAL",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("Quotation %s approval (rev %d), invoice %s", evt.Number, evt.Revision, evt.InvoiceNumber),
		Lines:        lines,
	}
	return h.post(ctx, input)
}

// HandlePOApproved posts the accrual for an approved purchase order.
func (h *Hooks) HandlePOApproved(ctx context.Context, evt procurement.ApprovedEvent) error {
	if h.disabled() {
		return nil
	}
	if evt.ApprovedAt.IsZero() {
		return errors.New("integration: purchase order approval date required")
	}
	amount := round2(evt.Total)
	if amount == 0 {
		return nil
	}
	period, err := h.periodRepo.EnsureOpenPeriod(ctx, evt.ApprovedAt)
	if err != nil {
		return err
	}
	expenseAccount, err := h.resolveAccount(ctx, mappings.ModuleAP, mappings.KeyExpense)
	if err != nil {
		return err
	}
	apAccount, err := h.resolveAccount(ctx, mappings.ModuleAP, mappings.KeyAccountsPayable)
	if err != nil {
		return err
	}
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PO:%d", evt.PurchaseOrderID)))
	input := journals.PostingInput{
		PeriodID:     period.ID,
		Date:         evt.ApprovedAt,
		SourceModule: "PROCUREMENT.APPROVAL",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("Purchase order %s approval, payable %s", evt.Number, evt.APNumber),
		Lines: []journals.PostingLineInput{
			{AccountID: expenseAccount, Debit: amount},
			{AccountID: apAccount, Credit: amount},
		},
	}
	return h.post(ctx, input)
}

// HandleARPaymentRecorded posts the cash receipt against the receivable.
func (h *Hooks) HandleARPaymentRecorded(ctx context.Context, evt ar.PaymentRecordedEvent) error {
	if h.disabled() {
		return nil
	}
	if evt.PaidAt.IsZero() {
		return errors.New("integration: ar payment date required")
	}
	amount := round2(evt.Amount)
	if amount == 0 {
		return nil
	}
	period, err := h.periodRepo.EnsureOpenPeriod(ctx, evt.PaidAt)
	if err != nil {
		return err
	}
	cashAccount, err := h.resolveAccount(ctx, mappings.ModuleAR, mappings.KeyCashBank)
	if err != nil {
		return err
	}
	arAccount, err := h.resolveAccount(ctx, mappings.ModuleAR, mappings.KeyAccountsReceivable)
	if err != nil {
		return err
	}
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("ARPAY:%d", evt.PaymentID)))
	input := journals.PostingInput{
		PeriodID:     period.ID,
		Date:         evt.PaidAt,
		SourceModule: "AR.PAYMENT",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("AR payment %s", evt.PaymentNumber),
		Lines: []journals.PostingLineInput{
			{AccountID: cashAccount, Debit: amount},
			{AccountID: arAccount, Credit: amount},
		},
	}
	return h.post(ctx, input)
}

// HandleAPPaymentRecorded posts the cash disbursement against the payable.
func (h *Hooks) HandleAPPaymentRecorded(ctx context.Context, evt ap.PaymentRecordedEvent) error {
	if h.disabled() {
		return nil
	}
	if evt.PaidAt.IsZero() {
		return errors.New("integration: ap payment date required")
	}
	amount := round2(evt.Amount)
	if amount == 0 {
		return nil
	}
	period, err := h.periodRepo.EnsureOpenPeriod(ctx, evt.PaidAt)
	if err != nil {
		return err
	}
	apAccount, err := h.resolveAccount(ctx, mappings.ModuleAP, mappings.KeyAccountsPayable)
	if err != nil {
		return err
	}
	cashAccount, err := h.resolveAccount(ctx, mappings.ModuleAP, mappings.KeyCashBank)
	if err != nil {
		return err
	}
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("APPAY:%d", evt.PaymentID)))
	input := journals.PostingInput{
		PeriodID:     period.ID,
		Date:         evt.PaidAt,
		SourceModule: "AP.PAYMENT",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("AP payment %s", evt.PaymentNumber),
		Lines: []journals.PostingLineInput{
			{AccountID: apAccount, Debit: amount},
			{AccountID: cashAccount, Credit: amount},
		},
	}
	return h.post(ctx, input)
}

var _ quotations.IntegrationHandler = (*Hooks)(nil)
var _ procurement.IntegrationHandler = (*Hooks)(nil)
var _ ar.IntegrationHandler = (*Hooks)(nil)
var _ ap.IntegrationHandler = (*Hooks)(nil)
