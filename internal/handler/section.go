package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stall-rental/internal/service"
)

type createSectionReq struct {
	Group           string `json:"group" validate:"required,max=60"`
	Name            string `json:"name" validate:"required,max=60"`
	StallsPerRow    int    `json:"stalls_per_row" validate:"required,min=1"`
	StallCount      int    `json:"stall_count" validate:"required,min=1"`
	CostCents       int64  `json:"cost_cents" validate:"required,gt=0"`
	BanDepositCents int64  `json:"ban_deposit_cents" validate:"gte=0"`
}

type updateSectionReq struct {
	Group        string `json:"group" validate:"required,max=60"`
	Name         string `json:"name" validate:"required,max=60"`
	StallsPerRow int    `json:"stalls_per_row" validate:"required,min=1"`
}

func (h *CatalogHandler) ListSections(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	sections, err := h.svc.ListSections(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, orEmpty(sections))
}

// CreateSection creates the section and its initial stalls, numbered after
// the last stall of the group.
func (h *CatalogHandler) CreateSection(c echo.Context) error {
	var req createSectionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	sec, stalls, err := h.svc.CreateSection(ctx, service.SectionInput{
		Group:           req.Group,
		Name:            req.Name,
		StallsPerRow:    req.StallsPerRow,
		StallCount:      req.StallCount,
		CostCents:       req.CostCents,
		BanDepositCents: req.BanDepositCents,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"section": sec, "stalls": stalls})
}

func (h *CatalogHandler) UpdateSection(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req updateSectionReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	sec, err := h.svc.UpdateSection(ctx, id, service.SectionInput{
		Group:        req.Group,
		Name:         req.Name,
		StallsPerRow: req.StallsPerRow,
	})
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, sec)
}

func (h *CatalogHandler) DeleteSection(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.DeleteSection(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
