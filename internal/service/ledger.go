package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/queue"
)

// RentalStore is the rental storage used by the ledger.
type RentalStore interface {
	Create(ctx context.Context, rt *model.Rental) error
	GetByID(ctx context.Context, id uint64) (model.Rental, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Rental, error)
	List(ctx context.Context) ([]model.RentalView, error)
	ListActive(ctx context.Context) ([]model.Rental, error)
	HasActiveForStall(ctx context.Context, stallID, exceptID uint64) (bool, error)
	Update(ctx context.Context, rt *model.Rental) error
	UpdateBanPaid(ctx context.Context, id uint64, banPaid int64, version uint32) error
	SetEndDate(ctx context.Context, id uint64, end time.Time) error
	Delete(ctx context.Context, id uint64) error
}

// PaymentStore is the payment storage used by the ledger.
type PaymentStore interface {
	CountByRental(ctx context.Context, rentalID uint64) (int, error)
	InsertBatch(ctx context.Context, payments []model.Payment) error
	GetByID(ctx context.Context, id uint64) (model.Payment, error)
	List(ctx context.Context, rentalID uint64) ([]model.Payment, error)
	ListByORNumber(ctx context.Context, orNumber string) ([]model.Payment, error)
	Update(ctx context.Context, p *model.Payment) error
	Delete(ctx context.Context, id uint64) error
}

type VendorReader interface {
	GetByID(ctx context.Context, id uint64) (model.Vendor, error)
}

type StallLocker interface {
	GetByID(ctx context.Context, id uint64) (model.Stall, error)
	GetForUpdate(ctx context.Context, id uint64) (model.Stall, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

type ReceiptReader interface {
	Get(ctx context.Context, orNumber string) (model.Receipt, error)
}

// LedgerDeps wires a RentalLedger. Events, Observer, Log and Now are
// optional.
type LedgerDeps struct {
	Rentals      RentalStore
	Payments     PaymentStore
	Vendors      VendorReader
	Stalls       StallLocker
	Users        UserReader
	ReceiptBook  ReceiptReader
	Receipts     *ReceiptGenerator
	Tx           TxRunner
	Events       EventPublisher
	Observer     LedgerObserver
	Log          *zap.Logger
	Now          func() time.Time
	PublishAfter time.Duration
}

// RentalLedger owns rental lifecycle, the ban deposit balance and payment
// batches. Every read-modify-write of ban_paid locks the rental row and
// checks its version.
type RentalLedger struct {
	rentals     RentalStore
	payments    PaymentStore
	vendors     VendorReader
	stalls      StallLocker
	users       UserReader
	receiptBook ReceiptReader
	receipts    *ReceiptGenerator
	tx          TxRunner
	events      EventPublisher
	observer    LedgerObserver
	log         *zap.Logger
	now         func() time.Time
	publishWait time.Duration
}

func NewRentalLedger(d LedgerDeps) *RentalLedger {
	l := &RentalLedger{
		rentals:     d.Rentals,
		payments:    d.Payments,
		vendors:     d.Vendors,
		stalls:      d.Stalls,
		users:       d.Users,
		receiptBook: d.ReceiptBook,
		receipts:    d.Receipts,
		tx:          d.Tx,
		events:      d.Events,
		observer:    d.Observer,
		log:         d.Log,
		now:         d.Now,
		publishWait: d.PublishAfter,
	}
	if l.events == nil {
		l.events = nopPublisher{}
	}
	if l.observer == nil {
		l.observer = nopObserver{}
	}
	if l.log == nil {
		l.log = zap.NewNop()
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.publishWait <= 0 {
		l.publishWait = 2 * time.Second
	}
	return l
}

// BanBalance reports a rental's deposit after a change.
type BanBalance struct {
	Rental         model.Rental `json:"rental"`
	BanAmountCents int64        `json:"ban_amount_cents"`
	BanPaidCents   int64        `json:"ban_paid_cents"`
	RemainingCents int64        `json:"remaining_cents"`
}

func balanceOf(rt model.Rental) BanBalance {
	return BanBalance{
		Rental:         rt,
		BanAmountCents: rt.BanAmountCents,
		BanPaidCents:   rt.BanPaidCents,
		RemainingCents: rt.BanRemainingCents(),
	}
}

// Compensation is the result of moving deposit money into rent payments.
type Compensation struct {
	BanBalance
	Batch model.PaymentBatch `json:"batch"`
}

// ReceiptDetail is everything printed on a receipt.
type ReceiptDetail struct {
	Receipt    model.Receipt   `json:"receipt"`
	Rental     model.Rental    `json:"rental"`
	Vendor     model.Vendor    `json:"vendor"`
	Stall      model.Stall     `json:"stall"`
	Payer      model.User      `json:"payer"`
	Payments   []model.Payment `json:"payments"`
	TotalCents int64           `json:"total_cents"`
}

// Create starts a rental of stallID by vendorID. The stall's ban deposit
// default is copied into the rental and nothing of it is paid yet. A stall
// with an active rental cannot be rented again.
func (l *RentalLedger) Create(ctx context.Context, vendorID, stallID uint64, start time.Time) (model.Rental, error) {
	if vendorID == 0 || stallID == 0 {
		return model.Rental{}, invalidf("vendor_id and stall_id are required")
	}
	if start.IsZero() {
		return model.Rental{}, invalidf("start_date is required")
	}

	var rt model.Rental
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := l.vendors.GetByID(ctx, vendorID); err != nil {
			return storeErr(err, "vendor")
		}
		stall, err := l.stalls.GetForUpdate(ctx, stallID)
		if err != nil {
			return storeErr(err, "stall")
		}
		busy, err := l.rentals.HasActiveForStall(ctx, stallID, 0)
		if err != nil {
			return err
		}
		if busy {
			return conflictf("stall %d already has an active rental", stall.Number)
		}
		rt = model.Rental{
			VendorID:       vendorID,
			StallID:        stallID,
			StartDate:      start,
			BanAmountCents: stall.BanDepositCents,
			BanPaidCents:   0,
		}
		return storeErr(l.rentals.Create(ctx, &rt), "rental")
	})
	if err != nil {
		return model.Rental{}, err
	}
	l.log.Info("rental created",
		zap.Uint64("rental_id", rt.ID), zap.Uint64("vendor_id", vendorID), zap.Uint64("stall_id", stallID),
		zap.Int64("ban_amount_cents", rt.BanAmountCents))
	return rt, nil
}

// Update changes vendor, stall and start date. The ban amount is not
// snapshotted again. Moving an active rental requires the target stall to
// be free.
func (l *RentalLedger) Update(ctx context.Context, id, vendorID, stallID uint64, start time.Time) (model.Rental, error) {
	if vendorID == 0 || stallID == 0 {
		return model.Rental{}, invalidf("vendor_id and stall_id are required")
	}
	if start.IsZero() {
		return model.Rental{}, invalidf("start_date is required")
	}

	var rt model.Rental
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rt, err = l.rentals.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "rental")
		}
		if _, err := l.vendors.GetByID(ctx, vendorID); err != nil {
			return storeErr(err, "vendor")
		}
		stall, err := l.stalls.GetForUpdate(ctx, stallID)
		if err != nil {
			return storeErr(err, "stall")
		}
		if stallID != rt.StallID && rt.Active() {
			busy, err := l.rentals.HasActiveForStall(ctx, stallID, id)
			if err != nil {
				return err
			}
			if busy {
				return conflictf("stall %d already has an active rental", stall.Number)
			}
		}
		rt.VendorID, rt.StallID, rt.StartDate = vendorID, stallID, start
		return storeErr(l.rentals.Update(ctx, &rt), "rental")
	})
	if err != nil {
		return model.Rental{}, err
	}
	return rt, nil
}

// Vacate sets the end date to now. Vacating an already vacated rental
// changes nothing and returns the existing end date.
func (l *RentalLedger) Vacate(ctx context.Context, id uint64) (model.Rental, error) {
	var (
		rt      model.Rental
		vacated bool
	)
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rt, err = l.rentals.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "rental")
		}
		if !rt.Active() {
			return nil
		}
		end := l.now().UTC()
		if err := l.rentals.SetEndDate(ctx, id, end); err != nil {
			return storeErr(err, "rental")
		}
		rt.EndDate = &end
		rt.Version++
		vacated = true
		return nil
	})
	if err != nil {
		return model.Rental{}, err
	}
	if vacated {
		l.log.Info("rental vacated", zap.Uint64("rental_id", id), zap.Time("end_date", *rt.EndDate))
		l.publish(ctx, queue.RentalVacatedEvent{RentalID: rt.ID, StallID: rt.StallID, EndDate: *rt.EndDate})
	}
	return rt, nil
}

// PayBanDeposit adds amountCents to the paid deposit. The sum may reach
// but never exceed the ban amount.
func (l *RentalLedger) PayBanDeposit(ctx context.Context, id uint64, amountCents int64) (BanBalance, error) {
	if amountCents <= 0 {
		return BanBalance{}, invalidf("amount must be positive")
	}

	var rt model.Rental
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rt, err = l.rentals.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "rental")
		}
		if amountCents > rt.BanRemainingCents() {
			return balanceError("exceeds remaining balance")
		}
		paid := rt.BanPaidCents + amountCents
		if err := l.rentals.UpdateBanPaid(ctx, id, paid, rt.Version); err != nil {
			return storeErr(err, "rental")
		}
		rt.BanPaidCents = paid
		rt.Version++
		return nil
	})
	if err != nil {
		return BanBalance{}, err
	}

	bal := balanceOf(rt)
	l.observer.BanDepositChanged("pay")
	l.log.Info("ban deposit paid",
		zap.Uint64("rental_id", id), zap.Int64("amount_cents", amountCents),
		zap.Int64("ban_paid_cents", bal.BanPaidCents), zap.Int64("remaining_cents", bal.RemainingCents))
	l.publish(ctx, queue.BanPaidEvent{
		RentalID: id, AmountCents: amountCents, BanPaidCents: bal.BanPaidCents, RemainingCents: bal.RemainingCents,
	})
	return bal, nil
}

// CompensateBanDeposit withdraws amountCents from the paid deposit and
// records it as rent paid by payerID at costCents per period. The deposit
// decrement and the payment batch commit together.
func (l *RentalLedger) CompensateBanDeposit(ctx context.Context, id uint64, amountCents int64, payerID uint64, costCents int64) (Compensation, error) {
	if _, err := PeriodsFor(amountCents, costCents); err != nil {
		return Compensation{}, err
	}

	var (
		rt    model.Rental
		batch model.PaymentBatch
	)
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		rt, err = l.rentals.GetForUpdate(ctx, id)
		if err != nil {
			return storeErr(err, "rental")
		}
		if amountCents > rt.BanPaidCents {
			return balanceError("insufficient ban deposit paid")
		}
		if _, err := l.users.GetByID(ctx, payerID); err != nil {
			return storeErr(err, "user")
		}
		paid := rt.BanPaidCents - amountCents
		if err := l.rentals.UpdateBanPaid(ctx, id, paid, rt.Version); err != nil {
			return storeErr(err, "rental")
		}
		rt.BanPaidCents = paid
		rt.Version++

		batch, err = l.recordBatch(ctx, rt, payerID, amountCents, costCents)
		return err
	})
	if err != nil {
		return Compensation{}, err
	}

	l.observer.BanDepositChanged("compensate")
	l.committedBatch(ctx, rt.ID, payerID, batch, queue.SourceBanCompensation)
	return Compensation{BanBalance: balanceOf(rt), Batch: batch}, nil
}

// CreatePayment records rent paid by userID at costCents per period
// without touching the deposit.
func (l *RentalLedger) CreatePayment(ctx context.Context, rentalID, userID uint64, costCents, amountCents int64) (model.PaymentBatch, error) {
	if _, err := PeriodsFor(amountCents, costCents); err != nil {
		return model.PaymentBatch{}, err
	}

	var batch model.PaymentBatch
	err := l.tx.WithinTx(ctx, func(ctx context.Context) error {
		// The row lock serializes batches of one rental, which keeps the
		// schedule offset consistent.
		rt, err := l.rentals.GetForUpdate(ctx, rentalID)
		if err != nil {
			return storeErr(err, "rental")
		}
		if _, err := l.users.GetByID(ctx, userID); err != nil {
			return storeErr(err, "user")
		}
		batch, err = l.recordBatch(ctx, rt, userID, amountCents, costCents)
		return err
	})
	if err != nil {
		return model.PaymentBatch{}, err
	}

	l.committedBatch(ctx, rentalID, userID, batch, queue.SourcePayment)
	return batch, nil
}

// recordBatch reserves an OR number and inserts the scheduled payments.
// It must run inside the caller's transaction.
func (l *RentalLedger) recordBatch(ctx context.Context, rt model.Rental, payerID uint64, amountCents, costCents int64) (model.PaymentBatch, error) {
	existing, err := l.payments.CountByRental(ctx, rt.ID)
	if err != nil {
		return model.PaymentBatch{}, err
	}
	or, err := l.receipts.Issue(ctx, rt.ID, payerID)
	if err != nil {
		return model.PaymentBatch{}, err
	}
	drafts, err := Schedule(rt, existing, amountCents, costCents, payerID, or)
	if err != nil {
		return model.PaymentBatch{}, err
	}
	if err := l.payments.InsertBatch(ctx, drafts); err != nil {
		return model.PaymentBatch{}, storeErr(err, "payment")
	}
	return model.PaymentBatch{
		ORNumber:   or,
		Count:      len(drafts),
		TotalCents: costCents * int64(len(drafts)),
		Payments:   drafts,
	}, nil
}

func (l *RentalLedger) committedBatch(ctx context.Context, rentalID, userID uint64, b model.PaymentBatch, source string) {
	l.observer.PaymentsRecorded(source, b.Count, b.TotalCents)
	l.log.Info("payments recorded",
		zap.Uint64("rental_id", rentalID), zap.String("or_number", b.ORNumber),
		zap.Int("count", b.Count), zap.Int64("total_cents", b.TotalCents), zap.String("source", source))
	l.publish(ctx, queue.PaymentsRecordedEvent{
		ORNumber: b.ORNumber, RentalID: rentalID, UserID: userID,
		Count: b.Count, TotalCents: b.TotalCents, Source: source,
	})
}

// publish sends ev after commit. Failures are logged and never reach the
// caller.
func (l *RentalLedger) publish(ctx context.Context, ev queue.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.publishWait)
	defer cancel()
	if err := l.events.Publish(ctx, ev); err != nil {
		l.log.Warn("event publish failed", zap.String("type", ev.EventType()), zap.Error(err))
	}
}

// Delete removes a rental. Its payments are kept.
func (l *RentalLedger) Delete(ctx context.Context, id uint64) error {
	return storeErr(l.rentals.Delete(ctx, id), "rental")
}

// Get returns one rental.
func (l *RentalLedger) Get(ctx context.Context, id uint64) (model.Rental, error) {
	rt, err := l.rentals.GetByID(ctx, id)
	return rt, storeErr(err, "rental")
}

// List returns every rental with days paid and due date derived from its
// payments.
func (l *RentalLedger) List(ctx context.Context) ([]model.RentalView, error) {
	views, err := l.rentals.List(ctx)
	if err != nil {
		return nil, err
	}
	payments, err := l.payments.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	byRental := make(map[uint64][]model.Payment)
	for _, p := range payments {
		byRental[p.RentalID] = append(byRental[p.RentalID], p)
	}
	for i := range views {
		due := DeriveDueInfo(views[i].Rental, byRental[views[i].ID])
		views[i].DaysPaid = due.DaysPaid
		views[i].DueDate = due.DueDate
	}
	return views, nil
}

// Payments lists payments, optionally restricted to one rental.
func (l *RentalLedger) Payments(ctx context.Context, rentalID uint64) ([]model.Payment, error) {
	if rentalID != 0 {
		if _, err := l.rentals.GetByID(ctx, rentalID); err != nil {
			return nil, storeErr(err, "rental")
		}
	}
	return l.payments.List(ctx, rentalID)
}

// UpdatePayment corrects a single payment. Cost must stay positive.
func (l *RentalLedger) UpdatePayment(ctx context.Context, id uint64, costCents, amountCents int64, paidFor time.Time) (model.Payment, error) {
	if costCents <= 0 {
		return model.Payment{}, invalidf("cost must be positive")
	}
	if amountCents < 0 {
		return model.Payment{}, invalidf("amount must not be negative")
	}
	p, err := l.payments.GetByID(ctx, id)
	if err != nil {
		return model.Payment{}, storeErr(err, "payment")
	}
	p.CostCents, p.AmountCents = costCents, amountCents
	if !paidFor.IsZero() {
		p.PaidFor = paidFor
	}
	if err := l.payments.Update(ctx, &p); err != nil {
		return model.Payment{}, storeErr(err, "payment")
	}
	return p, nil
}

// DeletePayment removes a single payment.
func (l *RentalLedger) DeletePayment(ctx context.Context, id uint64) error {
	return storeErr(l.payments.Delete(ctx, id), "payment")
}

// Receipt collects the data printed on an OR.
func (l *RentalLedger) Receipt(ctx context.Context, orNumber string) (ReceiptDetail, error) {
	rc, err := l.receiptBook.Get(ctx, orNumber)
	if err != nil {
		return ReceiptDetail{}, storeErr(err, "receipt")
	}
	d := ReceiptDetail{Receipt: rc}
	if d.Payments, err = l.payments.ListByORNumber(ctx, orNumber); err != nil {
		return ReceiptDetail{}, err
	}
	for _, p := range d.Payments {
		d.TotalCents += p.AmountCents
	}
	// The rental, vendor, stall or payer may have been deleted since; the
	// receipt still prints with what is left.
	if rt, err := l.rentals.GetByID(ctx, rc.RentalID); err == nil {
		d.Rental = rt
		if v, err := l.vendors.GetByID(ctx, rt.VendorID); err == nil {
			d.Vendor = v
		}
		if st, err := l.stalls.GetByID(ctx, rt.StallID); err == nil {
			d.Stall = st
		}
	}
	if u, err := l.users.GetByID(ctx, rc.UserID); err == nil {
		d.Payer = u
	}
	return d, nil
}
