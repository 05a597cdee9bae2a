package dto

import "time"

// BalanceResponse represents the caller's credits.
type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

// PackageResponse is a purchasable bundle.
type PackageResponse struct {
	Amount  int64 `json:"amount"`
	Credits int64 `json:"credits"`
}

// PackagesResponse lists the bundles on offer.
type PackagesResponse struct {
	CreditPrice int64             `json:"creditPrice"`
	Packages    []PackageResponse `json:"packages"`
}

// LedgerEntryResponse describes a committed balance change.
type LedgerEntryResponse struct {
	ID           int64     `json:"id"`
	Delta        int64     `json:"delta"`
	Reason       string    `json:"reason"`
	BalanceAfter int64     `json:"balanceAfter"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ErrorLogEntryResponse describes one diagnostic record.
type ErrorLogEntryResponse struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Context   string    `json:"context"`
	Severity  string    `json:"severity"`
}
