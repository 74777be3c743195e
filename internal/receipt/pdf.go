// Package receipt renders official receipts (ORs) for payment batches.
package receipt

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf/v2"

	"github.com/iliyamo/stall-rental/internal/service"
)

// FormatCents renders cents as a decimal amount with two places.
func FormatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// PDF renders d as an A4 receipt. Parties deleted since the batch was
// recorded print as "-".
func PDF(d service.ReceiptDetail, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle("Official Receipt "+d.Receipt.ORNumber, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "Official Receipt", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, "OR No. "+d.Receipt.ORNumber, "", 1, "C", false, 0, "")
	pdf.CellFormat(190, 6, "Issued "+d.Receipt.CreatedAt.Format("02-Jan-2006 03:04 PM"), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Rental", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 11)
	stall := "-"
	if d.Stall.ID != 0 {
		stall = fmt.Sprintf("%d", d.Stall.Number)
	}
	pdf.CellFormat(95, 7, "Vendor: "+orDash(d.Vendor.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Owner: "+orDash(d.Vendor.Owner), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Stall: "+stall, "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, "Received by: "+orDash(d.Payer.Fullname), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(20, 7, "#", "1", 0, "C", true, 0, "")
	pdf.CellFormat(70, 7, "Paid for", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Rate", "1", 0, "C", true, 0, "")
	pdf.CellFormat(50, 7, "Amount", "1", 1, "C", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	for i, p := range d.Payments {
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 6, p.PaidFor.Format("02-Jan-2006"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(50, 6, FormatCents(p.CostCents), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, FormatCents(p.AmountCents), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(140, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(50, 8, FormatCents(d.TotalCents), "1", 1, "R", false, 0, "")
	pdf.Ln(5)
	pdf.SetFont("Arial", "I", 8)
	pdf.CellFormat(190, 5, "Generated "+generated.Format("02-Jan-2006 03:04 PM"), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
