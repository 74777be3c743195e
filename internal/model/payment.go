package model

import "time"

// Payment is one dated charge against a rental. Payments recorded together
// share an OR number.
type Payment struct {
	ID          uint64    `json:"id"`           // payments.id
	RentalID    uint64    `json:"rental_id"`    // payments.rental_id
	UserID      uint64    `json:"user_id"`      // payments.user_id
	CostCents   int64     `json:"cost_cents"`   // payments.cost_cents
	AmountCents int64     `json:"amount_cents"` // payments.amount_cents
	PaidFor     time.Time `json:"paid_for"`     // payments.paid_for
	ORNumber    string    `json:"or_number"`    // payments.or_number
	CreatedAt   time.Time `json:"created_at"`   // payments.created_at
	UpdatedAt   time.Time `json:"updated_at"`   // payments.updated_at
}

// Receipt reserves an OR number for one payment batch.
type Receipt struct {
	ORNumber  string    `json:"or_number"`  // receipts.or_number
	RentalID  uint64    `json:"rental_id"`  // receipts.rental_id
	UserID    uint64    `json:"user_id"`    // receipts.user_id
	CreatedAt time.Time `json:"created_at"` // receipts.created_at
}

// PaymentBatch is the result of recording a batch of payments.
type PaymentBatch struct {
	ORNumber   string    `json:"or_number"`
	Count      int       `json:"count"`
	TotalCents int64     `json:"total_cents"`
	Payments   []Payment `json:"payments"`
}
