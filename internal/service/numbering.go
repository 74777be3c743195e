package service

import (
	"context"

	"github.com/iliyamo/stall-rental/internal/model"
)

// StallNumberStore is the storage used by StallNumbering.
type StallNumberStore interface {
	MaxNumber(ctx context.Context, groupKey string) (int, error)
	LockGroup(ctx context.Context, groupKey string) ([]model.Stall, error)
	ShiftUp(ctx context.Context, groupKey string, from int) (int64, error)
	Renumber(ctx context.Context, id uint64, groupKey string, number int) error
}

// SectionReader resolves sections.
type SectionReader interface {
	GetByID(ctx context.Context, id uint64) (model.Section, error)
}

// StallNumbering keeps stall numbers contiguous and increasing inside a
// group. Every mutation locks the group's rows first.
type StallNumbering struct {
	stalls   StallNumberStore
	sections SectionReader
	tx       TxRunner
}

func NewStallNumbering(stalls StallNumberStore, sections SectionReader, tx TxRunner) *StallNumbering {
	return &StallNumbering{stalls: stalls, sections: sections, tx: tx}
}

// GroupOf returns the normalized group of a section.
func (n *StallNumbering) GroupOf(ctx context.Context, sectionID uint64) (string, error) {
	sec, err := n.sections.GetByID(ctx, sectionID)
	if err != nil {
		return "", storeErr(err, "section")
	}
	return model.NormalizeKey(sec.Group), nil
}

// NextNumber returns max+1 over every stall in the section's group, or 1.
func (n *StallNumbering) NextNumber(ctx context.Context, sectionID uint64) (int, error) {
	group, err := n.GroupOf(ctx, sectionID)
	if err != nil {
		return 0, err
	}
	last, err := n.stalls.MaxNumber(ctx, group)
	if err != nil {
		return 0, err
	}
	return last + 1, nil
}

// InsertAt makes room for a new stall numbered number in the section's
// group by shifting every stall with number >= number up by one. number
// must lie in 1..max+1; max+1 shifts nothing. It returns the group key the
// new stall must carry. Call it inside the transaction that inserts the
// stall.
func (n *StallNumbering) InsertAt(ctx context.Context, sectionID uint64, number int) (string, error) {
	group, err := n.GroupOf(ctx, sectionID)
	if err != nil {
		return "", err
	}
	err = n.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := n.stalls.LockGroup(ctx, group)
		if err != nil {
			return err
		}
		last := 0
		if len(locked) > 0 {
			last = locked[len(locked)-1].Number
		}
		if number < 1 || number > last+1 {
			return invalidf("stall number must be between 1 and %d", last+1)
		}
		if number == last+1 {
			return nil
		}
		_, err = n.stalls.ShiftUp(ctx, group, number)
		return err
	})
	if err != nil {
		return "", err
	}
	return group, nil
}

// Resequence renumbers the group to 1..N keeping the current order. It
// closes the gaps left by deleted stalls or by a section leaving the group.
func (n *StallNumbering) Resequence(ctx context.Context, groupKey string) error {
	return n.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := n.stalls.LockGroup(ctx, groupKey)
		if err != nil {
			return err
		}
		// Ascending order only ever moves a stall down into a slot already
		// vacated by its predecessors.
		for i, st := range locked {
			if st.Number == i+1 {
				continue
			}
			if err := n.stalls.Renumber(ctx, st.ID, groupKey, i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

// MoveStalls appends the given stalls, in order, to the end of the target
// group.
func (n *StallNumbering) MoveStalls(ctx context.Context, stalls []model.Stall, toGroup string) error {
	return n.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := n.stalls.LockGroup(ctx, toGroup)
		if err != nil {
			return err
		}
		next := 1
		if len(locked) > 0 {
			next = locked[len(locked)-1].Number + 1
		}
		for _, st := range stalls {
			if err := n.stalls.Renumber(ctx, st.ID, toGroup, next); err != nil {
				return err
			}
			next++
		}
		return nil
	})
}

// AppendSlots locks the section's group and returns the group key and the
// first of count free numbers at its end. Call it inside the transaction
// that inserts the stalls.
func (n *StallNumbering) AppendSlots(ctx context.Context, sectionID uint64, count int) (string, int, error) {
	if count < 1 {
		return "", 0, invalidf("stall count must be positive")
	}
	group, err := n.GroupOf(ctx, sectionID)
	if err != nil {
		return "", 0, err
	}
	first := 1
	err = n.tx.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := n.stalls.LockGroup(ctx, group)
		if err != nil {
			return err
		}
		if len(locked) > 0 {
			first = locked[len(locked)-1].Number + 1
		}
		return nil
	})
	if err != nil {
		return "", 0, err
	}
	return group, first, nil
}
