package model

import "time"

// Rental is the occupancy of one stall by one vendor. A rental without an
// end date is active. 0 <= BanPaidCents <= BanAmountCents always holds.
//
// Fields:
//
//	ID             – primary key identifier.
//	VendorID       – renting vendor.
//	StallID        – rented stall.
//	StartDate      – first day of occupancy; may lie in the future.
//	EndDate        – set when the rental is vacated.
//	BanAmountCents – deposit owed, copied from the stall at creation.
//	BanPaidCents   – deposit paid so far.
//	Version        – optimistic concurrency counter.
type Rental struct {
	ID             uint64     `json:"id"`               // rentals.id
	VendorID       uint64     `json:"vendor_id"`        // rentals.vendor_id
	StallID        uint64     `json:"stall_id"`         // rentals.stall_id
	StartDate      time.Time  `json:"start_date"`       // rentals.start_date
	EndDate        *time.Time `json:"end_date"`         // rentals.end_date (nullable)
	BanAmountCents int64      `json:"ban_amount_cents"` // rentals.ban_amount_cents
	BanPaidCents   int64      `json:"ban_paid_cents"`   // rentals.ban_paid_cents
	Version        uint32     `json:"version"`          // rentals.version
	CreatedAt      time.Time  `json:"created_at"`       // rentals.created_at
	UpdatedAt      time.Time  `json:"updated_at"`       // rentals.updated_at
}

// Active reports whether the rental still occupies its stall.
func (r Rental) Active() bool { return r.EndDate == nil }

// BanRemainingCents is the deposit still owed.
func (r Rental) BanRemainingCents() int64 { return r.BanAmountCents - r.BanPaidCents }

// RentalView is a rental listing row with the derived due information.
type RentalView struct {
	Rental
	VendorName  string    `json:"vendor_name"`
	StallNumber int       `json:"stall_number"`
	DaysPaid    float64   `json:"days_paid"`
	DueDate     time.Time `json:"due_date"`
}
