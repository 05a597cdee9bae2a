package model

import "time"

// LedgerReason tags why a balance changed.
type LedgerReason string

const (
	LedgerReasonInvoiceCharge LedgerReason = "invoice_charge"
	LedgerReasonOCRRefund     LedgerReason = "ocr_refund"
	LedgerReasonPaymentGrant  LedgerReason = "payment_grant"
	LedgerReasonAdjustment    LedgerReason = "adjustment"
)

// LedgerEntry records a single committed balance mutation.
type LedgerEntry struct {
	ID           int64
	UserID       string
	Delta        int64
	Reason       LedgerReason
	BalanceAfter int64
	CreatedAt    time.Time
}

// CreditPackage is a purchasable bundle of credits.
type CreditPackage struct {
	Amount  int64
	Credits int64
}

// CreditPackages lists the bundles offered for a given credit price.
func CreditPackages(price int64) []CreditPackage {
	amounts := []int64{50, 200, 500}
	packages := make([]CreditPackage, 0, len(amounts))
	for _, amount := range amounts {
		packages = append(packages, CreditPackage{Amount: amount, Credits: CreditsFor(amount, price)})
	}
	return packages
}

// CreditsFor converts a paid amount into whole credits.
func CreditsFor(amount, price int64) int64 {
	if price <= 0 || amount <= 0 {
		return 0
	}
	return amount / price
}
