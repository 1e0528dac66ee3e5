package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/bankin-collector/pkg/model"
)

func sampleReport() model.Report {
	return model.Report{
		{
			AccNumber: "A1",
			Amount:    decimal.NewFromInt(100),
			Transactions: []model.TransactionRecord{
				{Label: "Coffee", Amount: decimal.RequireFromString("-3.5"), Currency: "EUR"},
			},
		},
		{AccNumber: "A2", Amount: decimal.NewFromInt(50), Transactions: []model.TransactionRecord{}},
	}
}

func TestMarshal_IndentsWithTwoSpaces(t *testing.T) {
	data, err := Marshal(sampleReport())
	require.NoError(t, err)

	want := `[
  {
    "acc_number": "A1",
    "amount": 100,
    "transactions": [
      {
        "label": "Coffee",
        "amount": -3.5,
        "currency": "EUR"
      }
    ]
  },
  {
    "acc_number": "A2",
    "amount": 50,
    "transactions": []
  }
]`
	assert.Equal(t, want, string(data))
}

func TestMarshal_NilReportIsEmptyArray(t *testing.T) {
	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteFile_WritesAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	require.NoError(t, WriteFile(path, sampleReport()))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want, _ := Marshal(sampleReport())
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file is cleaned up")
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "data.json")

	err := WriteFile(path, sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create temp file")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
