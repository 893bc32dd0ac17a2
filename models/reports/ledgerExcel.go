package reports

import (
	"fmt"
	"io"
	"time"

	"github.com/mmdatafocus/textile_ledger/models"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ledgerSheet      = "Ledger"
	trialSheet       = "Trial Balance"
	dateFormat       = "2006-01-02"
)

// WriteLedgerStatement renders one account statement as an xlsx workbook.
func WriteLedgerStatement(w io.Writer, s *models.LedgerStatement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ledgerSheet); err != nil {
		return err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return err
	}

	f.SetCellValue(ledgerSheet, "A1", fmt.Sprintf("%s %s", s.Account.Code, s.Account.Name))
	f.SetCellValue(ledgerSheet, "A2", "Type")
	f.SetCellValue(ledgerSheet, "B2", string(s.Account.Type))
	period := "all dates"
	if s.From != nil || s.To != nil {
		period = fmt.Sprintf("%s to %s", formatOptionalDate(s.From), formatOptionalDate(s.To))
	}
	f.SetCellValue(ledgerSheet, "A3", "Period")
	f.SetCellValue(ledgerSheet, "B3", period)

	headers := []string{"Date", "Voucher", "Type", "Narration", "Debit", "Credit", "Balance"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 5)
		f.SetCellValue(ledgerSheet, cell, h)
	}

	row := 6
	f.SetCellValue(ledgerSheet, cellName(4, row), "Opening balance")
	f.SetCellValue(ledgerSheet, cellName(7, row), money(s.OpeningBalance))
	for _, line := range s.Lines {
		row++
		f.SetCellValue(ledgerSheet, cellName(1, row), line.Date.Format(dateFormat))
		f.SetCellValue(ledgerSheet, cellName(2, row), line.VoucherNumber)
		f.SetCellValue(ledgerSheet, cellName(3, row), string(line.VoucherType))
		f.SetCellValue(ledgerSheet, cellName(4, row), line.Narration)
		f.SetCellValue(ledgerSheet, cellName(5, row), money(line.Debit))
		f.SetCellValue(ledgerSheet, cellName(6, row), money(line.Credit))
		f.SetCellValue(ledgerSheet, cellName(7, row), money(line.RunningBalance))
	}
	row++
	f.SetCellValue(ledgerSheet, cellName(4, row), "Closing balance")
	f.SetCellValue(ledgerSheet, cellName(5, row), money(s.TotalDebit))
	f.SetCellValue(ledgerSheet, cellName(6, row), money(s.TotalCredit))
	f.SetCellValue(ledgerSheet, cellName(7, row), money(s.ClosingBalance))

	if err := f.SetCellStyle(ledgerSheet, "E6", cellName(7, row), moneyStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(ledgerSheet, "D", "D", 40); err != nil {
		return err
	}
	return f.Write(w)
}

// WriteTrialBalance renders trial balance rows with a totals line.
func WriteTrialBalance(w io.Writer, rows []models.TrialBalanceRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", trialSheet); err != nil {
		return err
	}
	for i, h := range []string{"Code", "Account", "Type", "Debit", "Credit"} {
		f.SetCellValue(trialSheet, cellName(i+1, 1), h)
	}

	totalDebit, totalCredit := decimal.Zero, decimal.Zero
	for i, r := range rows {
		n := i + 2
		f.SetCellValue(trialSheet, cellName(1, n), r.Code)
		f.SetCellValue(trialSheet, cellName(2, n), r.Name)
		f.SetCellValue(trialSheet, cellName(3, n), string(r.Type))
		f.SetCellValue(trialSheet, cellName(4, n), money(r.Debit))
		f.SetCellValue(trialSheet, cellName(5, n), money(r.Credit))
		totalDebit = totalDebit.Add(r.Debit)
		totalCredit = totalCredit.Add(r.Credit)
	}
	n := len(rows) + 2
	f.SetCellValue(trialSheet, cellName(2, n), "Total")
	f.SetCellValue(trialSheet, cellName(4, n), money(totalDebit))
	f.SetCellValue(trialSheet, cellName(5, n), money(totalCredit))
	return f.Write(w)
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateFormat)
}
