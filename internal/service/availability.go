package service

import (
	"time"

	"github.com/iliyamo/stall-rental/internal/model"
)

// Availability of one stall, derived from its active rentals.
type Availability struct {
	Available bool
	Reserved  bool
}

// StallAvailability computes availability for every stall referenced by
// the active rentals. Stalls absent from the map are available. Rentals
// that already ended are ignored.
func StallAvailability(active []model.Rental, now time.Time) map[uint64]Availability {
	out := make(map[uint64]Availability, len(active))
	for _, r := range active {
		if !r.Active() {
			continue
		}
		a := out[r.StallID]
		a.Available = false
		if r.StartDate.After(now) {
			a.Reserved = true
		}
		out[r.StallID] = a
	}
	return out
}

// ApplyAvailability fills Available and Reserved on the stall views.
func ApplyAvailability(stalls []model.StallView, active []model.Rental, now time.Time) {
	avail := StallAvailability(active, now)
	for i := range stalls {
		a, ok := avail[stalls[i].ID]
		if !ok {
			a = Availability{Available: true}
		}
		stalls[i].Available = a.Available
		stalls[i].Reserved = a.Reserved
	}
}
