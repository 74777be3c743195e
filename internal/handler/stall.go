package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stall-rental/internal/service"
)

type createStallReq struct {
	SectionID       uint64 `json:"section_id" validate:"required"`
	Number          int    `json:"number" validate:"gte=0"` // 0 appends
	CostCents       int64  `json:"cost_cents" validate:"required,gt=0"`
	BanDepositCents int64  `json:"ban_deposit_cents" validate:"gte=0"`
	Notes           string `json:"notes" validate:"max=255"`
}

type updateStallReq struct {
	CostCents       int64  `json:"cost_cents" validate:"required,gt=0"`
	BanDepositCents int64  `json:"ban_deposit_cents" validate:"gte=0"`
	Notes           string `json:"notes" validate:"max=255"`
}

// ListStalls handles GET /v1/stalls?section_id=. Availability is computed
// per request, so this route is never served from the response cache.
func (h *CatalogHandler) ListStalls(c echo.Context) error {
	sectionID, ok, err := queryID(c, "section_id")
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	stalls, err := h.svc.ListStalls(ctx, sectionID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, orEmpty(stalls))
}

func (h *CatalogHandler) CreateStall(c echo.Context) error {
	var req createStallReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	st, err := h.svc.CreateStall(ctx, service.StallInput{
		SectionID:       req.SectionID,
		Number:          req.Number,
		CostCents:       req.CostCents,
		BanDepositCents: req.BanDepositCents,
		Notes:           req.Notes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *CatalogHandler) UpdateStall(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req updateStallReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	st, err := h.svc.UpdateStall(ctx, id, service.StallInput{
		CostCents:       req.CostCents,
		BanDepositCents: req.BanDepositCents,
		Notes:           req.Notes,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// DeleteStall reports whether the stall's section was removed because it
// became empty.
func (h *CatalogHandler) DeleteStall(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	sectionDeleted, err := h.svc.DeleteStall(ctx, id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true, "section_deleted": sectionDeleted})
}
