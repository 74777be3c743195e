package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/stall-rental/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSchedule_ConsecutiveDaysAfterExisting(t *testing.T) {
	rt := model.Rental{ID: 7, StartDate: day(2024, 1, 1)}

	got, err := Schedule(rt, 3, 65, 20, 9, "1234567")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.Equal(t, day(2024, 1, 4+i), p.PaidFor)
		assert.Equal(t, int64(20), p.CostCents)
		assert.Equal(t, int64(20), p.AmountCents)
		assert.Equal(t, uint64(7), p.RentalID)
		assert.Equal(t, uint64(9), p.UserID)
		assert.Equal(t, "1234567", p.ORNumber)
	}
}

func TestSchedule_Rejects(t *testing.T) {
	rt := model.Rental{ID: 1, StartDate: day(2024, 1, 1)}
	cases := map[string][2]int64{
		"zero cost":        {100, 0},
		"negative cost":    {100, -5},
		"zero amount":      {0, 20},
		"below one period": {19, 20},
		"too many periods": {(MaxBatchPeriods + 1) * 10, 10},
		"negative amount":  {-40, 20},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Schedule(rt, 0, c[0], c[1], 1, "1000000")
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestPeriodsFor_MaxBatch(t *testing.T) {
	n, err := PeriodsFor(MaxBatchPeriods*10, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(MaxBatchPeriods), n)
}

func TestDeriveDueInfo(t *testing.T) {
	rt := model.Rental{StartDate: day(2024, 1, 1)}
	payments := []model.Payment{
		{CostCents: 20, AmountCents: 20},
		{CostCents: 20, AmountCents: 20},
	}

	due := DeriveDueInfo(rt, payments)
	assert.Equal(t, 2.0, due.DaysPaid)
	assert.Equal(t, day(2024, 1, 3), due.DueDate)
}

func TestDeriveDueInfo_FractionalAndZeroCost(t *testing.T) {
	rt := model.Rental{StartDate: day(2024, 1, 1)}
	payments := []model.Payment{
		{CostCents: 20, AmountCents: 30},
		{CostCents: 0, AmountCents: 50},
	}

	due := DeriveDueInfo(rt, payments)
	assert.Equal(t, 1.5, due.DaysPaid)
	assert.Equal(t, day(2024, 1, 2), due.DueDate)

	none := DeriveDueInfo(rt, nil)
	assert.Zero(t, none.DaysPaid)
	assert.Equal(t, rt.StartDate, none.DueDate)
}

func TestStallAvailability(t *testing.T) {
	now := day(2024, 6, 10)
	ended := now.AddDate(0, 0, -1)
	active := []model.Rental{
		{StallID: 1, StartDate: now.AddDate(0, 0, -5)},
		{StallID: 2, StartDate: now.AddDate(0, 0, 3)},
		{StallID: 3, StartDate: now.AddDate(0, 0, -30), EndDate: &ended},
	}
	stalls := []model.StallView{
		{Stall: model.Stall{ID: 1}},
		{Stall: model.Stall{ID: 2}},
		{Stall: model.Stall{ID: 3}},
		{Stall: model.Stall{ID: 4}},
	}

	ApplyAvailability(stalls, active, now)

	assert.False(t, stalls[0].Available)
	assert.False(t, stalls[0].Reserved)
	assert.False(t, stalls[1].Available)
	assert.True(t, stalls[1].Reserved)
	assert.True(t, stalls[2].Available)
	assert.False(t, stalls[2].Reserved)
	assert.True(t, stalls[3].Available)
}
