package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stall-rental/internal/receipt"
)

var orPattern = regexp.MustCompile(`^[0-9]{7}$`)

type createPaymentReq struct {
	RentalID    uint64 `json:"rental_id" validate:"required"`
	CostCents   int64  `json:"cost_cents" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"required,gt=0"`
}

type updatePaymentReq struct {
	CostCents   int64  `json:"cost_cents" validate:"required,gt=0"`
	AmountCents int64  `json:"amount_cents" validate:"gte=0"`
	PaidFor     string `json:"paid_for" validate:"omitempty,datetime=2006-01-02"`
}

// ListPayments handles GET /v1/payments with an optional rental_id filter.
func (h *LedgerHandler) ListPayments(c echo.Context) error {
	rentalID, ok, err := queryID(c, "rental_id")
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	payments, err := h.svc.Payments(ctx, rentalID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, orEmpty(payments))
}

// CreatePayment records a batch received by the caller and answers with
// the batch's count and OR number.
func (h *LedgerHandler) CreatePayment(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return h.fail(c, err)
	}
	var req createPaymentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	batch, err := h.svc.CreatePayment(ctx, req.RentalID, uid, req.CostCents, req.AmountCents)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, batch)
}

func (h *LedgerHandler) UpdatePayment(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req updatePaymentReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	var paidFor time.Time
	if req.PaidFor != "" {
		if paidFor, err = parseDate(req.PaidFor); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid paid_for"})
		}
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	p, err := h.svc.UpdatePayment(ctx, id, req.CostCents, req.AmountCents, paidFor)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *LedgerHandler) DeletePayment(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.DeletePayment(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Receipt returns the batch behind an OR number.
func (h *LedgerHandler) Receipt(c echo.Context) error {
	or := c.Param("or_number")
	if !orPattern.MatchString(or) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or_number"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	d, err := h.svc.Receipt(ctx, or)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// ReceiptPDF renders the OR as a printable PDF.
func (h *LedgerHandler) ReceiptPDF(c echo.Context) error {
	or := c.Param("or_number")
	if !orPattern.MatchString(or) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or_number"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	d, err := h.svc.Receipt(ctx, or)
	if err != nil {
		return h.fail(c, err)
	}
	out, err := receipt.PDF(d, h.now())
	if err != nil {
		return h.fail(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="OR-%s.pdf"`, or))
	return c.Blob(http.StatusOK, "application/pdf", out)
}
