package domain

// BankAccount holds the account the customer pays into. It is rendered into
// the fixed payment-details reply at startup.
type BankAccount struct {
	Bank   string
	Type   string
	Number string
	Holder string
}
