package receipt

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/stall-rental/internal/model"
	"github.com/iliyamo/stall-rental/internal/service"
)

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "0.00", FormatCents(0))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "20.00", FormatCents(2000))
	assert.Equal(t, "1234.56", FormatCents(123456))
	assert.Equal(t, "-1.50", FormatCents(-150))
}

func TestPDF(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	d := service.ReceiptDetail{
		Receipt: model.Receipt{ORNumber: "1234567", CreatedAt: day},
		Vendor:  model.Vendor{Name: "Acme", Owner: "Ann"},
		Stall:   model.Stall{ID: 3, Number: 12},
		Payer:   model.User{Fullname: "Clerk"},
		Payments: []model.Payment{
			{CostCents: 2000, AmountCents: 2000, PaidFor: day},
			{CostCents: 2000, AmountCents: 2000, PaidFor: day.AddDate(0, 0, 1)},
		},
		TotalCents: 4000,
	}

	out, err := PDF(d, day)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	// A receipt whose rental was deleted still renders.
	_, err = PDF(service.ReceiptDetail{Receipt: model.Receipt{ORNumber: "7654321"}}, day)
	assert.NoError(t, err)
}
