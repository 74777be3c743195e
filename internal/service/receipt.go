package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/repository"
)

const (
	receiptMin         = 1000000
	receiptMax         = 9999999
	maxReceiptAttempts = 16
)

// ErrReceiptsExhausted is returned when no free OR number was found.
var ErrReceiptsExhausted = fmt.Errorf("%w: receipt numbers exhausted", ErrConflict)

// ReceiptStore checks and reserves OR numbers.
type ReceiptStore interface {
	Exists(ctx context.Context, orNumber string) (bool, error)
	Reserve(ctx context.Context, rc model.Receipt) error
}

// ReceiptGenerator draws 7-digit OR numbers. A number is only final once
// its receipt row is inserted; the unique key on that row settles races
// between concurrent batches.
type ReceiptGenerator struct {
	store    ReceiptStore
	draw     func() (int64, error)
	observer LedgerObserver
}

func NewReceiptGenerator(store ReceiptStore, observer LedgerObserver) *ReceiptGenerator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ReceiptGenerator{store: store, draw: drawReceipt, observer: observer}
}

func drawReceipt() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(receiptMax-receiptMin+1))
	if err != nil {
		return 0, err
	}
	return receiptMin + n.Int64(), nil
}

// Generate returns a number in [1000000, 9999999] that no receipt or
// payment uses yet.
func (g *ReceiptGenerator) Generate(ctx context.Context) (string, error) {
	for i := 0; i < maxReceiptAttempts; i++ {
		v, err := g.draw()
		if err != nil {
			return "", err
		}
		or := strconv.FormatInt(v, 10)
		taken, err := g.store.Exists(ctx, or)
		if err != nil {
			return "", err
		}
		if !taken {
			return or, nil
		}
		g.observer.ReceiptCollision()
	}
	return "", ErrReceiptsExhausted
}

// Issue generates a number and reserves it for one payment batch of the
// rental. Run it inside the transaction that inserts the batch.
func (g *ReceiptGenerator) Issue(ctx context.Context, rentalID, userID uint64) (string, error) {
	for i := 0; i < maxReceiptAttempts; i++ {
		or, err := g.Generate(ctx)
		if err != nil {
			return "", err
		}
		err = g.store.Reserve(ctx, model.Receipt{ORNumber: or, RentalID: rentalID, UserID: userID})
		if errors.Is(err, repository.ErrDuplicate) {
			g.observer.ReceiptCollision()
			continue
		}
		if err != nil {
			return "", err
		}
		return or, nil
	}
	return "", ErrReceiptsExhausted
}
