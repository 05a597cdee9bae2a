package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Ledger() LedgerRepository
	Payments() PaymentRepository
}
