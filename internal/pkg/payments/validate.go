package payments

import "github.com/soutienweb/cagnotte/app/models"

// Named validators returning explicit (field, kind) pairs. No reflection,
// no string-dispatched callbacks.

func validateAmount(amount int64) []FieldError {
	if amount < models.MinPaymentAmount || amount > models.MaxPaymentAmount {
		return []FieldError{{Field: "amount", Kind: KindOutOfRange}}
	}
	return nil
}

func validateCheckoutType(paymentType string) []FieldError {
	switch paymentType {
	case models.PaymentTypeSubscription, models.PaymentTypeCommonPot:
		return nil
	}
	// Credits are admin-issued, never checked out.
	return []FieldError{{Field: "type", Kind: KindInvalid}}
}

func validateCadence(cadence string, required bool) []FieldError {
	if cadence == "" {
		if required {
			return []FieldError{{Field: "cadence", Kind: KindRequired}}
		}
		return nil
	}
	switch cadence {
	case models.CadenceMonth, models.CadenceYear:
		return nil
	}
	return []FieldError{{Field: "cadence", Kind: KindInvalid}}
}

// ValidateNewCheckout checks a checkout request before anything is persisted
// or sent to the gateway.
func ValidateNewCheckout(paymentType, cadence string, amount int64) error {
	var fields []FieldError
	fields = append(fields, validateCheckoutType(paymentType)...)
	fields = append(fields, validateAmount(amount)...)
	fields = append(fields, validateCadence(cadence, paymentType == models.PaymentTypeSubscription)...)
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
