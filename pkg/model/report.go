package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Report is the flattened output document, one entry per account in listing order.
type Report []AccountReport

// AccountReport is one account with its simplified transactions.
type AccountReport struct {
	AccNumber    string              `json:"acc_number"`
	Amount       decimal.Decimal     `json:"amount"`
	Transactions []TransactionRecord `json:"transactions"`
}

// TransactionRecord keeps only the label, amount and currency of a transaction.
type TransactionRecord struct {
	Label    string          `json:"label"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewTransactionRecord projects a provider transaction onto the report shape.
func NewTransactionRecord(t Transaction) TransactionRecord {
	return TransactionRecord{
		Label:    t.Label,
		Amount:   t.Amount,
		Currency: t.Currency,
	}
}

// NewAccountReport builds a report entry. A nil transaction list becomes empty.
func NewAccountReport(a Account, txs []Transaction) AccountReport {
	records := make([]TransactionRecord, 0, len(txs))
	for _, tx := range txs {
		records = append(records, NewTransactionRecord(tx))
	}
	return AccountReport{
		AccNumber:    a.AccNumber,
		Amount:       a.Amount,
		Transactions: records,
	}
}

// TransactionCount returns the number of transactions across all accounts.
func (r Report) TransactionCount() int {
	n := 0
	for _, a := range r {
		n += len(a.Transactions)
	}
	return n
}

// RunSummary describes one collection run.
type RunSummary struct {
	RunID          uuid.UUID     `json:"run_id"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration_ns"`
	Accounts       int           `json:"accounts"`
	Transactions   int           `json:"transactions"`
	Pages          int           `json:"pages"`
	Duplicates     int           `json:"duplicates"`
	FailedAccounts []string      `json:"failed_accounts"`
}

// RunResult is what a successful run produces.
type RunResult struct {
	Report  Report     `json:"report"`
	Summary RunSummary `json:"summary"`
}
