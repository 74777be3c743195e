package handler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/service"
)

// CatalogService is the vendor, section and stall surface.
type CatalogService interface {
	ListVendors(ctx context.Context) ([]model.VendorView, error)
	CreateVendor(ctx context.Context, in service.VendorInput) (model.Vendor, error)
	UpdateVendor(ctx context.Context, id uint64, in service.VendorInput) (model.Vendor, error)
	DeleteVendor(ctx context.Context, id uint64) error

	ListSections(ctx context.Context) ([]model.SectionView, error)
	CreateSection(ctx context.Context, in service.SectionInput) (model.Section, []model.Stall, error)
	UpdateSection(ctx context.Context, id uint64, in service.SectionInput) (model.Section, error)
	DeleteSection(ctx context.Context, id uint64) error

	ListStalls(ctx context.Context, sectionID uint64) ([]model.StallView, error)
	CreateStall(ctx context.Context, in service.StallInput) (model.Stall, error)
	UpdateStall(ctx context.Context, id uint64, in service.StallInput) (model.Stall, error)
	DeleteStall(ctx context.Context, id uint64) (bool, error)
}

// CatalogHandler serves vendors, sections and stalls.
type CatalogHandler struct {
	base
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService, log *zap.Logger, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{base: newBase(log, timeout), svc: svc}
}

// orEmpty makes empty listings encode as [] rather than null.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
