package model

import "time"

// Stall is a rentable unit. Number is unique inside the section's group
// and numbers form the contiguous sequence 1..N.
//
// Fields:
//
//	ID              – primary key identifier.
//	SectionID       – section the stall belongs to.
//	GroupKey        – normalized group of that section.
//	Number          – position in the group's numbering.
//	CostCents       – rent per period.
//	BanDepositCents – default ban deposit snapshotted by new rentals.
//	Notes           – free text.
type Stall struct {
	ID              uint64    `json:"id"`                // stalls.id
	SectionID       uint64    `json:"section_id"`        // stalls.section_id
	GroupKey        string    `json:"-"`                 // stalls.group_key
	Number          int       `json:"number"`            // stalls.number
	CostCents       int64     `json:"cost_cents"`        // stalls.cost_cents
	BanDepositCents int64     `json:"ban_deposit_cents"` // stalls.ban_deposit_cents
	Notes           string    `json:"notes"`             // stalls.notes
	CreatedAt       time.Time `json:"created_at"`        // stalls.created_at
	UpdatedAt       time.Time `json:"updated_at"`        // stalls.updated_at
}

// StallView is a stall listing row. Available and Reserved are computed
// from active rentals on every read.
type StallView struct {
	Stall
	SectionName string `json:"section_name"`
	Group       string `json:"group"`
	Available   bool   `json:"available"`
	Reserved    bool   `json:"reserved"`
}
