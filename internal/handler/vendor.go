package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/stall-rental/internal/service"
)

type vendorReq struct {
	Name      string `json:"name" validate:"required,max=120"`
	Owner     string `json:"owner" validate:"required,max=120"`
	Birthdate string `json:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	Type      string `json:"type" validate:"max=60"`
	Address   string `json:"address" validate:"max=255"`
	Contact   string `json:"contact" validate:"max=60"`
}

func (r vendorReq) input() (service.VendorInput, error) {
	in := service.VendorInput{Name: r.Name, Owner: r.Owner, Type: r.Type, Address: r.Address, Contact: r.Contact}
	if r.Birthdate != "" {
		d, err := parseDate(r.Birthdate)
		if err != nil {
			return in, err
		}
		in.Birthdate = &d
	}
	return in, nil
}

// ListVendors handles GET /v1/vendors. Each row says whether the vendor
// currently rents a stall.
func (h *CatalogHandler) ListVendors(c echo.Context) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	vendors, err := h.svc.ListVendors(ctx)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, orEmpty(vendors))
}

// CreateVendor handles POST /v1/vendors.
func (h *CatalogHandler) CreateVendor(c echo.Context) error {
	var req vendorReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	in, err := req.input()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid birthdate"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	v, err := h.svc.CreateVendor(ctx, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, v)
}

// UpdateVendor handles PATCH /v1/vendors/:id. The body replaces every
// writable field.
func (h *CatalogHandler) UpdateVendor(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	var req vendorReq
	if ok, err := bind(c, &req); !ok {
		return err
	}
	in, err := req.input()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid birthdate"})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	v, err := h.svc.UpdateVendor(ctx, id, in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, v)
}

// DeleteVendor handles DELETE /v1/vendors/:id. The vendor's rentals go
// with it.
func (h *CatalogHandler) DeleteVendor(c echo.Context) error {
	id, ok, err := pathID(c)
	if !ok {
		return err
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	if err := h.svc.DeleteVendor(ctx, id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
