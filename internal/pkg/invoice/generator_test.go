package invoice

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soutienweb/cagnotte/app/models"
)

func testIssuer() Issuer {
	return Issuer{
		Name:    "Association Cagnotte",
		Street:  "1 rue des Lilas",
		City:    "75011 Paris",
		Country: "France",
	}
}

func TestGenerateWritesPDF(t *testing.T) {
	completedAt := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	payment := &models.Payment{
		ID:            1,
		Type:          models.PaymentTypeSubscription,
		Amount:        2400,
		Quantity:      3,
		Cadence:       models.CadenceYear,
		IsPaid:        true,
		InvoiceNumber: "2025-03-0001",
		CompletedAt:   &completedAt,
	}
	account := &models.Account{
		ID:     1,
		Email:  "membre@example.org",
		Street: "5 avenue du Parc",
		Zip:    "69003",
		City:   "Lyon",
	}

	path := filepath.Join(t.TempDir(), "2025", "2025-03-0001.pdf")
	require.NoError(t, NewGenerator(testIssuer()).Generate(payment, account, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(500), "a rendered page is never this small")
}

func TestGenerateRefusesUninvoicedPayment(t *testing.T) {
	payment := &models.Payment{ID: 2, Type: models.PaymentTypeCommonPot, Amount: 500}
	account := &models.Account{ID: 1, Email: "membre@example.org"}

	err := NewGenerator(testIssuer()).Generate(payment, account, filepath.Join(t.TempDir(), "x.pdf"))
	assert.Error(t, err)
}

func TestEurosFormatting(t *testing.T) {
	assert.Equal(t, "24,00 EUR", euros(2400))
	assert.Equal(t, "0,05 EUR", euros(5))
	assert.Equal(t, "-3,50 EUR", euros(-350))
}
