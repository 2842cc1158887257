package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soutienweb/cagnotte/app/models"
)

func TestValidateNewCheckout(t *testing.T) {
	tests := []struct {
		name        string
		paymentType string
		cadence     string
		amount      int64
		want        map[string]string
	}{
		{
			name:        "valid yearly subscription",
			paymentType: models.PaymentTypeSubscription,
			cadence:     models.CadenceYear,
			amount:      2400,
		},
		{
			name:        "valid pot contribution without cadence",
			paymentType: models.PaymentTypeCommonPot,
			amount:      500,
		},
		{
			name:        "amount at lower bound",
			paymentType: models.PaymentTypeCommonPot,
			amount:      models.MinPaymentAmount,
		},
		{
			name:        "amount at upper bound",
			paymentType: models.PaymentTypeCommonPot,
			amount:      models.MaxPaymentAmount,
		},
		{
			name:        "amount below bound",
			paymentType: models.PaymentTypeCommonPot,
			amount:      models.MinPaymentAmount - 1,
			want:        map[string]string{"amount": KindOutOfRange},
		},
		{
			name:        "amount above bound",
			paymentType: models.PaymentTypeCommonPot,
			amount:      models.MaxPaymentAmount + 1,
			want:        map[string]string{"amount": KindOutOfRange},
		},
		{
			name:        "subscription without cadence",
			paymentType: models.PaymentTypeSubscription,
			amount:      2400,
			want:        map[string]string{"cadence": KindRequired},
		},
		{
			name:        "unknown cadence",
			paymentType: models.PaymentTypeSubscription,
			cadence:     "fortnight",
			amount:      2400,
			want:        map[string]string{"cadence": KindInvalid},
		},
		{
			name:        "credit is not a checkout type",
			paymentType: models.PaymentTypeCredit,
			amount:      500,
			want:        map[string]string{"type": KindInvalid},
		},
		{
			name:        "every field wrong at once",
			paymentType: "gift",
			cadence:     "decade",
			amount:      0,
			want: map[string]string{
				"type":    KindInvalid,
				"amount":  KindOutOfRange,
				"cadence": KindInvalid,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNewCheckout(tc.paymentType, tc.cadence, tc.amount)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.want, verr.FieldMap())
		})
	}
}
