// Package queue defines the ledger events exchanged over the message broker
// together with their publisher and consumer.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types.
const (
	TypePaymentsRecorded = "payments.recorded"
	TypeBanPaid          = "ban.paid"
	TypeRentalVacated    = "rental.vacated"
)

// Payment sources carried by PaymentsRecordedEvent.
const (
	SourcePayment         = "payment"
	SourceBanCompensation = "ban_compensation"
)

// Event is implemented by every payload published on the ledger queue.
type Event interface {
	EventType() string
}

// PaymentsRecordedEvent is published after a payment batch commits. It
// carries enough information for downstream consumers to audit the batch
// without querying the primary database.
type PaymentsRecordedEvent struct {
	ORNumber   string `json:"or_number"`
	RentalID   uint64 `json:"rental_id"`
	UserID     uint64 `json:"user_id"`
	Count      int    `json:"count"`
	TotalCents int64  `json:"total_cents"`
	Source     string `json:"source"`
}

func (PaymentsRecordedEvent) EventType() string { return TypePaymentsRecorded }

// BanPaidEvent is published after a ban deposit payment commits.
type BanPaidEvent struct {
	RentalID       uint64 `json:"rental_id"`
	AmountCents    int64  `json:"amount_cents"`
	BanPaidCents   int64  `json:"ban_paid_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}

func (BanPaidEvent) EventType() string { return TypeBanPaid }

// RentalVacatedEvent is published when a rental gets its end date.
type RentalVacatedEvent struct {
	RentalID uint64    `json:"rental_id"`
	StallID  uint64    `json:"stall_id"`
	EndDate  time.Time `json:"end_date"`
}

func (RentalVacatedEvent) EventType() string { return TypeRentalVacated }

// Envelope is the wire format: the event type, when it happened and the
// JSON payload.
type Envelope struct {
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Encode wraps ev in an Envelope and marshals it.
func Encode(ev Event, at time.Time) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", ev.EventType(), err)
	}
	return json.Marshal(Envelope{Type: ev.EventType(), OccurredAt: at.UTC(), Data: data})
}

// Decode unmarshals an envelope and its payload into the concrete event.
func Decode(body []byte) (Envelope, Event, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	var ev Event
	switch env.Type {
	case TypePaymentsRecorded:
		var p PaymentsRecordedEvent
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return env, nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		ev = p
	case TypeBanPaid:
		var p BanPaidEvent
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return env, nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		ev = p
	case TypeRentalVacated:
		var p RentalVacatedEvent
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return env, nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
		}
		ev = p
	default:
		return env, nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	return env, ev, nil
}
