package mappings

import "time"

// AccountMapping links integration keys to ledger accounts. Posting code never
// searches the chart by account name; every integration leg resolves through a
// (module, key) row so renaming an account cannot silently reroute postings.
type AccountMapping struct {
	Module    string    `json:"module"`
	Key       string    `json:"key"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mapping keys used by the integration hooks.
const (
	ModuleBilling = "BILLING"
	ModuleAR      = "AR"
	ModuleAP      = "AP"

	KeyAccountsReceivable = "ACCOUNTS_RECEIVABLE"
	KeySalesRevenue       = "SALES_REVENUE"
	KeyCOGS               = "COGS"
	KeyAccruedCosts       = "ACCRUED_COSTS"
	KeyAccountsPayable    = "ACCOUNTS_PAYABLE"
	KeyCashBank           = "CASH_BANK"
	KeyExpense            = "EXPENSE"
)

// Required enumerates every mapping the posting hooks dereference. Startup
// validation refuses to boot when any is absent.
func Required() []struct{ Module, Key string } {
	return []struct{ Module, Key string }{
		{ModuleBilling, KeyAccountsReceivable},
		{ModuleBilling, KeySalesRevenue},
		{ModuleBilling, KeyCOGS},
		{ModuleBilling, KeyAccruedCosts},
		{ModuleAR, KeyCashBank},
		{ModuleAR, KeyAccountsReceivable},
		{ModuleAP, KeyAccountsPayable},
		{ModuleAP, KeyCashBank},
		{ModuleAP, KeyExpense},
	}
}
