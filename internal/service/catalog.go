package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/model"
)

type VendorStore interface {
	Create(ctx context.Context, v *model.Vendor) error
	GetByID(ctx context.Context, id uint64) (model.Vendor, error)
	List(ctx context.Context) ([]model.VendorView, error)
	Update(ctx context.Context, v *model.Vendor) error
	Delete(ctx context.Context, id uint64) error
}

type SectionStore interface {
	Create(ctx context.Context, s *model.Section) error
	GetByID(ctx context.Context, id uint64) (model.Section, error)
	List(ctx context.Context) ([]model.SectionView, error)
	Update(ctx context.Context, s *model.Section) error
	Delete(ctx context.Context, id uint64) error
}

type StallStore interface {
	Create(ctx context.Context, st *model.Stall) error
	CreateBulk(ctx context.Context, stalls []model.Stall) error
	GetByID(ctx context.Context, id uint64) (model.Stall, error)
	List(ctx context.Context, sectionID uint64) ([]model.StallView, error)
	Update(ctx context.Context, st *model.Stall) error
	Delete(ctx context.Context, id uint64) error
	DeleteBySection(ctx context.Context, sectionID uint64) (int64, error)
	CountBySection(ctx context.Context, sectionID uint64) (int, error)
}

// CatalogRentals is the rental access the catalog needs. Deleting a
// vendor, section or stall removes its rentals through these calls first.
type CatalogRentals interface {
	ListActive(ctx context.Context) ([]model.Rental, error)
	DeleteByVendor(ctx context.Context, vendorID uint64) (int64, error)
	DeleteByStall(ctx context.Context, stallID uint64) (int64, error)
	DeleteBySection(ctx context.Context, sectionID uint64) (int64, error)
}

// MinVendorAge is the minimum age of a vendor's owner in years.
const MinVendorAge = 18

// MaxSectionStalls bounds the initial stall batch of a section.
const MaxSectionStalls = 500

// Catalog is the create/read/update/delete surface for vendors, sections
// and stalls.
type Catalog struct {
	vendors   VendorStore
	sections  SectionStore
	stalls    StallStore
	rentals   CatalogRentals
	numbering *StallNumbering
	tx        TxRunner
	log       *zap.Logger
	now       func() time.Time
}

func NewCatalog(vendors VendorStore, sections SectionStore, stalls StallStore, rentals CatalogRentals,
	numbering *StallNumbering, tx TxRunner, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		vendors:   vendors,
		sections:  sections,
		stalls:    stalls,
		rentals:   rentals,
		numbering: numbering,
		tx:        tx,
		log:       log,
		now:       time.Now,
	}
}

// ----- vendors -----

// VendorInput carries the writable vendor fields.
type VendorInput struct {
	Name      string
	Owner     string
	Birthdate *time.Time
	Type      string
	Address   string
	Contact   string
}

func (c *Catalog) validateVendor(in *VendorInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Owner = strings.TrimSpace(in.Owner)
	if in.Name == "" || in.Owner == "" {
		return invalidf("name and owner are required")
	}
	if in.Birthdate != nil {
		adult := in.Birthdate.AddDate(MinVendorAge, 0, 0)
		if adult.After(c.now()) {
			return invalidf("owner must be at least %d years old", MinVendorAge)
		}
	}
	return nil
}

func (c *Catalog) ListVendors(ctx context.Context) ([]model.VendorView, error) {
	return c.vendors.List(ctx)
}

func (c *Catalog) CreateVendor(ctx context.Context, in VendorInput) (model.Vendor, error) {
	if err := c.validateVendor(&in); err != nil {
		return model.Vendor{}, err
	}
	v := model.Vendor{Name: in.Name, Owner: in.Owner, Birthdate: in.Birthdate, Type: in.Type, Address: in.Address, Contact: in.Contact}
	if err := c.vendors.Create(ctx, &v); err != nil {
		return model.Vendor{}, storeErr(err, "vendor name")
	}
	return v, nil
}

func (c *Catalog) UpdateVendor(ctx context.Context, id uint64, in VendorInput) (model.Vendor, error) {
	if err := c.validateVendor(&in); err != nil {
		return model.Vendor{}, err
	}
	v, err := c.vendors.GetByID(ctx, id)
	if err != nil {
		return model.Vendor{}, storeErr(err, "vendor")
	}
	v.Name, v.Owner, v.Birthdate, v.Type, v.Address, v.Contact = in.Name, in.Owner, in.Birthdate, in.Type, in.Address, in.Contact
	if err := c.vendors.Update(ctx, &v); err != nil {
		return model.Vendor{}, storeErr(err, "vendor name")
	}
	return v, nil
}

// DeleteVendor deletes the vendor's rentals and then the vendor in one
// transaction.
func (c *Catalog) DeleteVendor(ctx context.Context, id uint64) error {
	var removed int64
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := c.vendors.GetByID(ctx, id); err != nil {
			return storeErr(err, "vendor")
		}
		var err error
		if removed, err = c.rentals.DeleteByVendor(ctx, id); err != nil {
			return err
		}
		return storeErr(c.vendors.Delete(ctx, id), "vendor")
	})
	if err != nil {
		return err
	}
	c.log.Info("vendor deleted", zap.Uint64("vendor_id", id), zap.Int64("rentals_deleted", removed))
	return nil
}

// ----- sections -----

// SectionInput carries the writable section fields. StallCount, CostCents
// and BanDepositCents describe the initial stall batch and are only used on
// create.
type SectionInput struct {
	Group           string
	Name            string
	StallsPerRow    int
	StallCount      int
	CostCents       int64
	BanDepositCents int64
}

func validateSection(in *SectionInput) error {
	in.Group = strings.TrimSpace(in.Group)
	in.Name = strings.TrimSpace(in.Name)
	if in.Group == "" || in.Name == "" {
		return invalidf("group and name are required")
	}
	if in.StallsPerRow < 1 {
		return invalidf("stalls_per_row must be positive")
	}
	return nil
}

func (c *Catalog) ListSections(ctx context.Context) ([]model.SectionView, error) {
	return c.sections.List(ctx)
}

// CreateSection creates a section together with its initial stalls, which
// are appended to the end of the group's numbering.
func (c *Catalog) CreateSection(ctx context.Context, in SectionInput) (model.Section, []model.Stall, error) {
	if err := validateSection(&in); err != nil {
		return model.Section{}, nil, err
	}
	if in.StallCount < 1 || in.StallCount > MaxSectionStalls {
		return model.Section{}, nil, invalidf("stall_count must be between 1 and %d", MaxSectionStalls)
	}
	if err := validateStallMoney(in.CostCents, in.BanDepositCents); err != nil {
		return model.Section{}, nil, err
	}

	sec := model.Section{Group: in.Group, Name: in.Name, StallsPerRow: in.StallsPerRow}
	var stalls []model.Stall
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.sections.Create(ctx, &sec); err != nil {
			return storeErr(err, "section name in group")
		}
		group, first, err := c.numbering.AppendSlots(ctx, sec.ID, in.StallCount)
		if err != nil {
			return err
		}
		stalls = make([]model.Stall, in.StallCount)
		for i := range stalls {
			stalls[i] = model.Stall{
				SectionID:       sec.ID,
				GroupKey:        group,
				Number:          first + i,
				CostCents:       in.CostCents,
				BanDepositCents: in.BanDepositCents,
			}
		}
		return storeErr(c.stalls.CreateBulk(ctx, stalls), "stall number")
	})
	if err != nil {
		return model.Section{}, nil, err
	}
	c.log.Info("section created", zap.Uint64("section_id", sec.ID), zap.String("group", sec.Group), zap.Int("stalls", len(stalls)))
	return sec, stalls, nil
}

// UpdateSection renames a section. Moving it to another group appends its
// stalls to the new group and closes the gap in the old one.
func (c *Catalog) UpdateSection(ctx context.Context, id uint64, in SectionInput) (model.Section, error) {
	if err := validateSection(&in); err != nil {
		return model.Section{}, err
	}
	var sec model.Section
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		sec, err = c.sections.GetByID(ctx, id)
		if err != nil {
			return storeErr(err, "section")
		}
		oldGroup, newGroup := model.NormalizeKey(sec.Group), model.NormalizeKey(in.Group)
		sec.Group, sec.Name, sec.StallsPerRow = in.Group, in.Name, in.StallsPerRow
		if err := c.sections.Update(ctx, &sec); err != nil {
			return storeErr(err, "section name in group")
		}
		if oldGroup == newGroup {
			return nil
		}
		views, err := c.stalls.List(ctx, id)
		if err != nil {
			return err
		}
		moving := make([]model.Stall, len(views))
		for i, v := range views {
			moving[i] = v.Stall
		}
		if err := c.numbering.MoveStalls(ctx, moving, newGroup); err != nil {
			return err
		}
		return c.numbering.Resequence(ctx, oldGroup)
	})
	if err != nil {
		return model.Section{}, err
	}
	return sec, nil
}

// DeleteSection deletes the rentals of the section's stalls, the stalls
// and then the section in one transaction, and renumbers the rest of the
// group.
func (c *Catalog) DeleteSection(ctx context.Context, id uint64) error {
	var rentals, stalls int64
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		sec, err := c.sections.GetByID(ctx, id)
		if err != nil {
			return storeErr(err, "section")
		}
		if rentals, err = c.rentals.DeleteBySection(ctx, id); err != nil {
			return err
		}
		if stalls, err = c.stalls.DeleteBySection(ctx, id); err != nil {
			return err
		}
		if err := c.sections.Delete(ctx, id); err != nil {
			return storeErr(err, "section")
		}
		return c.numbering.Resequence(ctx, model.NormalizeKey(sec.Group))
	})
	if err != nil {
		return err
	}
	c.log.Info("section deleted", zap.Uint64("section_id", id),
		zap.Int64("stalls_deleted", stalls), zap.Int64("rentals_deleted", rentals))
	return nil
}

// ----- stalls -----

// StallInput carries the writable stall fields. Number 0 appends the stall
// at the end of the group; any other number inserts it there and shifts
// the following stalls up.
type StallInput struct {
	SectionID       uint64
	Number          int
	CostCents       int64
	BanDepositCents int64
	Notes           string
}

func validateStallMoney(cost, ban int64) error {
	if cost <= 0 {
		return invalidf("cost must be positive")
	}
	if ban < 0 {
		return invalidf("ban deposit must not be negative")
	}
	return nil
}

// ListStalls lists stalls with availability computed from active rentals.
func (c *Catalog) ListStalls(ctx context.Context, sectionID uint64) ([]model.StallView, error) {
	views, err := c.stalls.List(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	active, err := c.rentals.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	ApplyAvailability(views, active, c.now())
	return views, nil
}

func (c *Catalog) CreateStall(ctx context.Context, in StallInput) (model.Stall, error) {
	if in.SectionID == 0 {
		return model.Stall{}, invalidf("section_id is required")
	}
	if in.Number < 0 {
		return model.Stall{}, invalidf("number must not be negative")
	}
	if err := validateStallMoney(in.CostCents, in.BanDepositCents); err != nil {
		return model.Stall{}, err
	}

	st := model.Stall{SectionID: in.SectionID, CostCents: in.CostCents, BanDepositCents: in.BanDepositCents, Notes: in.Notes}
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		if in.Number == 0 {
			st.GroupKey, st.Number, err = c.numbering.AppendSlots(ctx, in.SectionID, 1)
		} else {
			st.Number = in.Number
			st.GroupKey, err = c.numbering.InsertAt(ctx, in.SectionID, in.Number)
		}
		if err != nil {
			return err
		}
		return storeErr(c.stalls.Create(ctx, &st), "stall number")
	})
	if err != nil {
		return model.Stall{}, err
	}
	c.log.Info("stall created", zap.Uint64("stall_id", st.ID), zap.String("group", st.GroupKey), zap.Int("number", st.Number))
	return st, nil
}

// UpdateStall changes cost, ban deposit default and notes. Existing
// rentals keep their snapshotted ban amount.
func (c *Catalog) UpdateStall(ctx context.Context, id uint64, in StallInput) (model.Stall, error) {
	if err := validateStallMoney(in.CostCents, in.BanDepositCents); err != nil {
		return model.Stall{}, err
	}
	st, err := c.stalls.GetByID(ctx, id)
	if err != nil {
		return model.Stall{}, storeErr(err, "stall")
	}
	st.CostCents, st.BanDepositCents, st.Notes = in.CostCents, in.BanDepositCents, in.Notes
	if err := c.stalls.Update(ctx, &st); err != nil {
		return model.Stall{}, storeErr(err, "stall")
	}
	return st, nil
}

// DeleteStall deletes a stall's rentals and then the stall, renumbers the
// group and deletes the section when this was its last stall. It reports
// whether the section went too.
func (c *Catalog) DeleteStall(ctx context.Context, id uint64) (bool, error) {
	sectionDeleted := false
	var removed int64
	err := c.tx.WithinTx(ctx, func(ctx context.Context) error {
		st, err := c.stalls.GetByID(ctx, id)
		if err != nil {
			return storeErr(err, "stall")
		}
		if removed, err = c.rentals.DeleteByStall(ctx, id); err != nil {
			return err
		}
		if err := c.stalls.Delete(ctx, id); err != nil {
			return storeErr(err, "stall")
		}
		if err := c.numbering.Resequence(ctx, st.GroupKey); err != nil {
			return err
		}
		left, err := c.stalls.CountBySection(ctx, st.SectionID)
		if err != nil {
			return err
		}
		if left > 0 {
			return nil
		}
		sectionDeleted = true
		return storeErr(c.sections.Delete(ctx, st.SectionID), "section")
	})
	if err != nil {
		return false, err
	}
	c.log.Info("stall deleted", zap.Uint64("stall_id", id),
		zap.Int64("rentals_deleted", removed), zap.Bool("section_deleted", sectionDeleted))
	return sectionDeleted, nil
}
