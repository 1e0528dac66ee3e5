package model

import "github.com/shopspring/decimal"

func init() {
	// Report amounts are written as JSON numbers, matching the upstream payloads.
	decimal.MarshalJSONWithoutQuotes = true
}

// Account is a bank account as listed by GET /accounts.
type Account struct {
	AccNumber string          `json:"acc_number"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
}

// Transaction is a single movement listed by GET /accounts/{acc_number}/transactions.
type Transaction struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Sign     string          `json:"sign,omitempty"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// AccountKey is the dedup key of an account.
func AccountKey(a Account) string { return a.AccNumber }

// TransactionKey is the dedup key of a transaction.
func TransactionKey(t Transaction) string { return t.ID }
