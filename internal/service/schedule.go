package service

import (
	"github.com/iliyamo/stall-rental/internal/model"
)

// MaxBatchPeriods bounds the size of one payment batch.
const MaxBatchPeriods = 3660

// Schedule splits amountCents into whole payments of costCents each. The
// first payment is dated existing days after the rental start (every stored
// payment covers one day) and the rest follow on consecutive days. Any
// remainder below one period is dropped. The result is never empty.
func Schedule(rental model.Rental, existing int, amountCents, costCents int64, payerID uint64, orNumber string) ([]model.Payment, error) {
	n, err := PeriodsFor(amountCents, costCents)
	if err != nil {
		return nil, err
	}

	offset := rental.StartDate.AddDate(0, 0, existing)
	out := make([]model.Payment, 0, n)
	for i := 0; i < int(n); i++ {
		out = append(out, model.Payment{
			RentalID:    rental.ID,
			UserID:      payerID,
			CostCents:   costCents,
			AmountCents: costCents,
			PaidFor:     offset.AddDate(0, 0, i),
			ORNumber:    orNumber,
		})
	}
	return out, nil
}

// PeriodsFor returns how many whole periods amountCents buys. Callers use
// it to reject a batch before reserving an OR number.
func PeriodsFor(amountCents, costCents int64) (int64, error) {
	if costCents <= 0 {
		return 0, invalidf("cost must be positive")
	}
	if amountCents <= 0 {
		return 0, invalidf("amount must be positive")
	}
	n := amountCents / costCents
	if n == 0 {
		return 0, invalidf("amount is less than one period")
	}
	if n > MaxBatchPeriods {
		return 0, invalidf("amount covers more than %d periods", MaxBatchPeriods)
	}
	return n, nil
}
