package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// AuditEntry pairs a request with its validation result for export.
type AuditEntry struct {
	Request types.TradeRequest
	Result  gate.ValidationResult
}

// DefaultExcelReporter implements Excel audit output
type DefaultExcelReporter struct{}

// NewDefaultExcelReporter creates a new Excel reporter
func NewDefaultExcelReporter() *DefaultExcelReporter {
	return &DefaultExcelReporter{}
}

// WriteAuditXLSX writes a batch of validation results to an Excel workbook
// for post-mortem review: one summary sheet, one per-check detail sheet.
func (r *DefaultExcelReporter) WriteAuditXLSX(entries []AuditEntry, path string) error {
	// Ensure directory exists before creating file
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const validationsSheet = "Validations"
	const checksSheet = "Checks"

	fx.SetSheetName(fx.GetSheetName(0), validationsSheet)
	if _, err := fx.NewSheet(checksSheet); err != nil {
		return err
	}

	headerStyle, err := r.headerStyle(fx)
	if err != nil {
		return err
	}

	if err := r.writeValidationsSheet(fx, validationsSheet, entries, headerStyle); err != nil {
		return err
	}
	if err := r.writeChecksSheet(fx, checksSheet, entries, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

// headerStyle creates the shared header style
func (r *DefaultExcelReporter) headerStyle(fx *excelize.File) (int, error) {
	return fx.NewStyle(&excelize.Style{
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
}

// writeValidationsSheet writes one row per validation
func (r *DefaultExcelReporter) writeValidationsSheet(fx *excelize.File, sheet string, entries []AuditEntry, headerStyle int) error {
	headers := []string{"Evaluated At", "Symbol", "Side", "Notional", "Risk Score", "Decision", "Safe To Trade", "Circuit Breached", "Recommendation"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", headerEnd, headerStyle); err != nil {
		return err
	}

	for row, entry := range entries {
		values := []interface{}{
			entry.Result.EvaluatedAt.Format("2006-01-02 15:04:05"),
			entry.Request.Symbol,
			string(entry.Request.Side),
			entry.Request.Notional,
			entry.Result.RiskScore,
			string(entry.Result.Decision),
			entry.Result.SafeToTrade,
			entry.Result.CircuitBreached,
			entry.Result.Recommendation,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := fx.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	return fx.SetColWidth(sheet, "A", "I", 18)
}

// writeChecksSheet writes one row per check result per validation
func (r *DefaultExcelReporter) writeChecksSheet(fx *excelize.File, sheet string, entries []AuditEntry, headerStyle int) error {
	headers := []string{"Symbol", "Check", "Score", "Passed", "Warnings", "Recommendation"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := fx.SetCellStyle(sheet, "A1", headerEnd, headerStyle); err != nil {
		return err
	}

	row := 2
	for _, entry := range entries {
		for _, check := range entry.Result.Checks {
			values := []interface{}{
				entry.Request.Symbol,
				check.Name,
				check.Score,
				check.Passed,
				strings.Join(check.Warnings, "; "),
				check.Recommendation,
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := fx.SetCellValue(sheet, cell, v); err != nil {
					return err
				}
			}
			row++
		}
	}

	return fx.SetColWidth(sheet, "A", "F", 22)
}
