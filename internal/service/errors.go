// Package service holds the rental ledger rules and the thin catalog
// operations around them.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/iliyamo/stall-rental/internal/queue"
	"github.com/iliyamo/stall-rental/internal/repository"
)

// Error kinds. Specific errors wrap one or more of these with %w.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInconsistent    = errors.New("inconsistent")
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// balanceError rejects an amount that would break 0 <= ban_paid <= ban_amount.
func balanceError(msg string) error {
	return fmt.Errorf("%w: %w: %s", ErrInvalidArgument, ErrInconsistent, msg)
}

// storeErr maps repository sentinels to the service kinds. what names the
// entity involved.
func storeErr(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	case errors.Is(err, repository.ErrDuplicate):
		return fmt.Errorf("%w: %s already exists", ErrConflict, what)
	case errors.Is(err, repository.ErrStale):
		return fmt.Errorf("%w: %s was modified concurrently", ErrConflict, what)
	default:
		return err
	}
}

// TxRunner runs fn inside one database transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes committed ledger changes.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.Event) error
}

// LedgerObserver receives counts of committed ledger changes.
type LedgerObserver interface {
	PaymentsRecorded(source string, count int, totalCents int64)
	BanDepositChanged(operation string)
	ReceiptCollision()
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, queue.Event) error { return nil }

type nopObserver struct{}

func (nopObserver) PaymentsRecorded(string, int, int64) {}
func (nopObserver) BanDepositChanged(string)            {}
func (nopObserver) ReceiptCollision()                   {}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}
