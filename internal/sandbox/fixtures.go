package sandbox

import (
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

// Fixtures is the data a sandbox server hands out.
type Fixtures struct {
	ClientID     string
	ClientSecret string
	User         string
	Password     string
	RefreshToken string
	AccessToken  string

	// AccountPages are served in order as /accounts?page=1..n.
	AccountPages [][]model.Account
	// TransactionPages holds each account's transaction pages, keyed by the
	// account number used in the request path.
	TransactionPages map[string][][]model.Transaction
}

func amount(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// DefaultFixtures mirrors the upstream test server: the last accounts page
// repeats the one before it, transactions pages overlap, and account
// 0000000013 has its transactions filed under 000000013, so its feed 404s.
func DefaultFixtures() Fixtures {
	return Fixtures{
		ClientID:     "BankinClientId",
		ClientSecret: "secret",
		User:         "BankinUser",
		Password:     "12345678",
		RefreshToken: "sandbox-refresh-token",
		AccessToken:  "sandbox-access-token",
		AccountPages: [][]model.Account{
			{
				{AccNumber: "000000001", Amount: amount("3000"), Currency: "EUR"},
				{AccNumber: "000000002", Amount: amount("30"), Currency: "EUR"},
			},
			{
				{AccNumber: "000000003", Amount: amount("500.5"), Currency: "EUR"},
				{AccNumber: "0000000013", Amount: amount("12.34"), Currency: "EUR"},
			},
			{
				{AccNumber: "000000003", Amount: amount("500.5"), Currency: "EUR"},
				{AccNumber: "0000000013", Amount: amount("12.34"), Currency: "EUR"},
			},
		},
		TransactionPages: map[string][][]model.Transaction{
			"000000001": {
				{
					{ID: "1", Label: "label 1", Sign: "DBT", Amount: amount("30"), Currency: "EUR"},
					{ID: "2", Label: "label 2", Sign: "DBT", Amount: amount("15.2"), Currency: "EUR"},
				},
				{
					{ID: "2", Label: "label 2", Sign: "DBT", Amount: amount("15.2"), Currency: "EUR"},
					{ID: "3", Label: "label 3", Sign: "CDT", Amount: amount("2500"), Currency: "EUR"},
				},
			},
			"000000002": {
				{},
			},
			"000000003": {
				{
					{ID: "4", Label: "label 4", Sign: "DBT", Amount: amount("2.99"), Currency: "USD"},
				},
			},
			"000000013": {
				{
					{ID: "5", Label: "label 5", Sign: "CDT", Amount: amount("100"), Currency: "EUR"},
				},
			},
		},
	}
}
