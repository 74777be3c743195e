package service

import (
	"math"
	"time"

	"github.com/iliyamo/stall-rental/internal/model"
)

// DueInfo is the read-side projection shown on rental listings.
type DueInfo struct {
	DaysPaid float64
	DueDate  time.Time
}

// DeriveDueInfo sums amount/cost over the payments and moves the start date
// forward by the whole days covered. Payments with a non-positive cost
// contribute nothing.
func DeriveDueInfo(rental model.Rental, payments []model.Payment) DueInfo {
	var days float64
	for _, p := range payments {
		if p.CostCents <= 0 {
			continue
		}
		days += float64(p.AmountCents) / float64(p.CostCents)
	}
	return DueInfo{
		DaysPaid: days,
		DueDate:  rental.StartDate.AddDate(0, 0, int(math.Floor(days))),
	}
}
