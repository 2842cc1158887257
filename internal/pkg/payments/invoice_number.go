package payments

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Invoice numbers are YYYY-MM-NNNN. The month reflects issuance time; the
// 4-digit sequence is scoped to the calendar year and keeps counting across
// months, resetting to 0001 each January.

func invoiceYearPrefix(year int) string {
	return fmt.Sprintf("%04d-", year)
}

// nextInvoiceNumber computes the next number from the last one issued this
// year. Callers must invoke it on a transaction-bound repository: the
// underlying read locks the latest invoice row so two concurrent
// completions cannot draw the same sequence.
func nextInvoiceNumber(repo Repository, now time.Time) (string, error) {
	year := now.Year()
	seq := 1

	last, err := repo.LastInvoiceNumberForYear(year)
	switch {
	case err == nil:
		lastSeq, perr := parseInvoiceSequence(last)
		if perr != nil {
			return "", fmt.Errorf("stored invoice number %q is malformed: %w", last, perr)
		}
		seq = lastSeq + 1
	case errors.Is(err, gorm.ErrRecordNotFound):
		// First invoice of the year.
	default:
		return "", err
	}

	return fmt.Sprintf("%04d-%02d-%04d", year, int(now.Month()), seq), nil
}

func parseInvoiceSequence(number string) (int, error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || len(parts[2]) != 4 {
		return 0, errors.New("expected YYYY-MM-NNNN")
	}
	return strconv.Atoi(parts[2])
}
