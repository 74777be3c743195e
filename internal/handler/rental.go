package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/service"
)

// LedgerService is the rental, deposit and payment surface.
type LedgerService interface {
	List(ctx context.Context) ([]model.RentalView, error)
	Create(ctx context.Context, vendorID, stallID uint64, start time.Time) (model.Rental, error)
	Update(ctx context.Context, id, vendorID, stallID uint64, start time.Time) (model.Rental, error)
	Delete(ctx context.Context, id uint64) error
	Vacate(ctx context.Context, id uint64) (model.Rental, error)
	PayBanDeposit(ctx context.Context, id uint64, amountCents int64) (service.BanBalance, error)
	CompensateBanDeposit(ctx context.Context, id uint64, amountCents int64, payerID uint64, costCents int64) (service.Compensation, error)

	Payments(ctx context.Context, rentalID uint64) ([]model.Payment, error)
	CreatePayment(ctx context.Context, rentalID, userID uint64, costCents, amountCents int64) (model.PaymentBatch, error)
	UpdatePayment(ctx context.Context, id uint64, costCents, amountCents int64, paidFor time.Time) (model.Payment, error)
	DeletePayment(ctx context.Context, id uint64) error
	Receipt(ctx context.Context, orNumber string) (service.ReceiptDetail, error)
}

// LedgerHandler serves rentals, payments and receipts.
type LedgerHandler struct {
	base
	svc LedgerService
	now func() time.Time
}

func NewLedgerHandler(svc LedgerService, log *zap.Logger, timeout time.Duration) *LedgerHandler {
	return &LedgerHandler{base: newBase(log, timeout), svc: svc, now: time.Now}
}

type rentalReq struct {
	VendorID  uint64 `json:"vendor_id" validate:"required"`
	StallID   uint64 `json:"stall_id" validate:"required"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type banDepositReq struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
}

type compensateReq struct {
	AmountCents int64 `json:"amount_cents" validate:"required,gt=0"`
	CostCents   int64 `json:"cost_cents" validate:"required,gt=0"`
}

// ListRentals includes days_paid and due_date derived from each rental's
// payments.
func (h *LedgerHandler) ListRentals(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	rentals, err := h.svc.List(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, orEmpty(rentals))
}

func (h *LedgerHandler) CreateRental(c echo.Context) error {
	var req rentalReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	rt, err := h.svc.Create(ctx, req.VendorID, req.StallID, start)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, rt)
}

func (h *LedgerHandler) UpdateRental(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req rentalReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_date"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	rt, err := h.svc.Update(ctx, id, req.VendorID, req.StallID, start)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

// DeleteRental removes the rental; its payments stay on record.
func (h *LedgerHandler) DeleteRental(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.Delete(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Vacate ends the rental today. Repeating it returns the same end date.
func (h *LedgerHandler) Vacate(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	rt, err := h.svc.Vacate(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rt)
}

func (h *LedgerHandler) PayBanDeposit(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req banDepositReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	bal, err := h.svc.PayBanDeposit(ctx, id, req.AmountCents)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, bal)
}

// CompensateBanDeposit moves deposit money into rent payments received by
// the caller.
func (h *LedgerHandler) CompensateBanDeposit(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	payer, err := callerID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req compensateReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	comp, err := h.svc.CompensateBanDeposit(ctx, id, req.AmountCents, payer, req.CostCents)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, comp)
}
