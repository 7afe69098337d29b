package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelReporter writes the trade journal workbook.
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

type excelStyles struct {
	header   int
	currency int
	loss     int
}

// WriteJournal writes the day's trades and summary to an xlsx workbook.
func (r *ExcelReporter) WriteJournal(trades []TradeRecord, sum Summary, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(summarySheet); err != nil {
		return err
	}

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeTradesSheet(fx, tradesSheet, trades, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, sum, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (excelStyles, error) {
	var styles excelStyles
	var err error

	styles.header, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.currency, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.loss, err = fx.NewStyle(&excelize.Style{
		NumFmt: 7,
		Font: &excelize.Font{
			Color: "FF0000",
		},
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	return styles, err
}

func (r *ExcelReporter) writeTradesSheet(fx *excelize.File, sheet string, trades []TradeRecord, styles excelStyles) error {
	headers := []string{
		"Symbol", "Strategy", "Side", "Shares",
		"Entry", "Exit", "P&L", "Exit Reason", "Opened", "Closed",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
		fx.SetCellStyle(sheet, cell, cell, styles.header)
	}

	for row, tr := range trades {
		values := []any{
			tr.Symbol,
			tr.Strategy,
			tr.Side,
			tr.Shares,
			tr.EntryPrice.InexactFloat64(),
			tr.ExitPrice.InexactFloat64(),
			tr.PnL.InexactFloat64(),
			tr.ExitReason,
			tr.OpenedAt.Format(time.DateTime),
			tr.ClosedAt.Format(time.DateTime),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}

		pnlCell, _ := excelize.CoordinatesToCellName(7, row+2)
		style := styles.currency
		if tr.PnL.IsNegative() {
			style = styles.loss
		}
		fx.SetCellStyle(sheet, pnlCell, pnlCell, style)
	}

	return fx.SetColWidth(sheet, "A", "J", 16)
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, sum Summary, styles excelStyles) error {
	rows := [][]any{
		{"Total Trades", sum.TotalTrades},
		{"Winning Trades", sum.WinningTrades},
		{"Losing Trades", sum.LosingTrades},
		{"Win Rate %", sum.WinRate()},
		{"Total P&L", sum.TotalPnL.InexactFloat64()},
		{"Best Trade", sum.BestTrade.InexactFloat64()},
		{"Worst Trade", sum.WorstTrade.InexactFloat64()},
	}

	for i, row := range rows {
		label, _ := excelize.CoordinatesToCellName(1, i+1)
		value, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := fx.SetCellValue(sheet, label, row[0]); err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, value, row[1]); err != nil {
			return err
		}
	}

	return fx.SetColWidth(sheet, "A", "B", 18)
}
