package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"toda-backend/internal/models"
	"toda-backend/internal/repositories"
	"toda-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// DriverStatementData holds all data for one driver's billing statement
type DriverStatementData struct {
	Driver  *models.Driver
	Entries []*models.LedgerEntry
}

// BillingSummaryData holds data for the period billing summary report
type BillingSummaryData struct {
	Start          time.Time
	End            time.Time
	Summaries      []*models.LedgerSummary
	TotalCharged   int64
	TotalRecharged int64
}

// ReportService generates the PDF and CSV exports served by the admin
// dashboard.
type ReportService struct {
	DriverRepo *repositories.DriverRepository
	LedgerRepo *repositories.LedgerRepository
}

func NewReportService(driverRepo *repositories.DriverRepository, ledgerRepo *repositories.LedgerRepository) *ReportService {
	return &ReportService{
		DriverRepo: driverRepo,
		LedgerRepo: ledgerRepo,
	}
}

// pesos renders centavos for display.
func pesos(centavos int64) string {
	sign := ""
	if centavos < 0 {
		sign = "-"
		centavos = -centavos
	}
	return fmt.Sprintf("%sP %d.%02d", sign, centavos/100, centavos%100)
}

// GetDriverStatementData fetches a driver and their full ledger.
func (s *ReportService) GetDriverStatementData(ctx context.Context, driverID string) (*DriverStatementData, error) {
	driver, err := s.DriverRepo.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	entries, err := s.LedgerRepo.ForDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return &DriverStatementData{Driver: driver, Entries: entries}, nil
}

// GenerateDriverStatementPDF renders one driver's billing statement.
func (s *ReportService) GenerateDriverStatementPDF(data *DriverStatementData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, "TODA Terminal - Driver Statement", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("Generated: %s", timeutil.Now().Format("02-Jan-2006 03:04 PM")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	// Driver Info Box
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Driver Information", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(95, 7, fmt.Sprintf("Name: %s", data.Driver.Name), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Operator: %s", data.Driver.OperatorName), "RB", 1, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Plate: %s", data.Driver.PlateNumberText), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(95, 7, fmt.Sprintf("Barangay: %s", data.Driver.BarangayID), "RB", 1, "L", false, 0, "")
	pdf.Ln(5)

	// Ledger table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(190, 8, "Ledger", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(15, 7, "Seq", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 7, "Date", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Kind", "1", 0, "C", true, 0, "")
	pdf.CellFormat(35, 7, "Amount", "1", 0, "C", true, 0, "")
	pdf.CellFormat(65, 7, "Description", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, e := range data.Entries {
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", e.Seq), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, timeutil.ToManila(e.CreatedAt).Format("02-Jan-2006 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, e.Kind, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, pesos(e.Amount), "1", 0, "R", false, 0, "")
		desc := e.Description
		if len(desc) > 32 {
			desc = desc[:29] + "..."
		}
		pdf.CellFormat(65, 6, desc, "1", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	// Balance - highlight if negative
	if data.Driver.Balance < 0 {
		pdf.SetFillColor(255, 200, 200)
	} else {
		pdf.SetFillColor(200, 255, 200)
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(190, 10, fmt.Sprintf("Current Balance: %s", pesos(data.Driver.Balance)), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetBillingSummaryData aggregates per-driver billing for a period.
func (s *ReportService) GetBillingSummaryData(ctx context.Context, start, end time.Time) (*BillingSummaryData, error) {
	summaries, err := s.LedgerRepo.SummaryByDriver(ctx, start, end)
	if err != nil {
		return nil, err
	}
	charged, recharged, err := s.LedgerRepo.TotalsForRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &BillingSummaryData{
		Start:          start,
		End:            end,
		Summaries:      summaries,
		TotalCharged:   charged,
		TotalRecharged: recharged,
	}, nil
}

// GenerateBillingSummaryPDF renders the period billing report, landscape
// for the wider table.
func (s *ReportService) GenerateBillingSummaryPDF(data *BillingSummaryData) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(277, 10, "TODA Terminal - Billing Summary", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(277, 6, fmt.Sprintf("Period: %s to %s",
		data.Start.Format("02-Jan-2006"), data.End.Format("02-Jan-2006")), "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(200, 200, 200)
	pdf.CellFormat(97, 7, "Driver", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Fees Charged", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Recharged", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Balance", "1", 0, "C", true, 0, "")
	pdf.CellFormat(45, 7, "Entries", "1", 1, "C", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, row := range data.Summaries {
		name := row.DriverName
		if len(name) > 45 {
			name = name[:42] + "..."
		}
		pdf.CellFormat(97, 6, name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, pesos(row.TotalCharged), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, pesos(row.TotalRecharged), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, pesos(row.Balance), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 6, fmt.Sprintf("%d", row.EntryCount), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(5)

	pdf.SetFont("Arial", "B", 12)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(138, 9, fmt.Sprintf("Total fees collected: %s", pesos(data.TotalCharged)), "1", 0, "C", true, 0, "")
	pdf.CellFormat(139, 9, fmt.Sprintf("Total recharged: %s", pesos(data.TotalRecharged)), "1", 1, "C", true, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateDriversCSV exports the driver roster for spreadsheets.
func (s *ReportService) GenerateDriversCSV(ctx context.Context, filter models.DriverFilter) ([]byte, error) {
	drivers, err := s.DriverRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"ID", "Name", "Operator", "Barangay", "Tricycle No", "Plate", "Phone", "Balance (centavos)", "In Queue", "Registered"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, d := range drivers {
		row := []string{
			d.ID,
			d.Name,
			d.OperatorName,
			d.BarangayID,
			d.TricycleNumber,
			d.PlateNumberText,
			d.PhoneNumber,
			fmt.Sprintf("%d", d.Balance),
			fmt.Sprintf("%t", d.InQueue),
			timeutil.ToManila(d.CreatedAt).Format(timeutil.DateLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

// GenerateLedgerCSV exports ledger entries matching a filter.
func (s *ReportService) GenerateLedgerCSV(ctx context.Context, filter models.LedgerFilter) ([]byte, error) {
	entries, err := s.LedgerRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Driver ID", "Seq", "Kind", "Amount (centavos)", "Description", "Barangay", "Created At"}); err != nil {
		return nil, err
	}
	for _, e := range entries {
		row := []string{
			e.DriverID,
			fmt.Sprintf("%d", e.Seq),
			e.Kind,
			fmt.Sprintf("%d", e.Amount),
			e.Description,
			e.BarangayID,
			timeutil.ToManila(e.CreatedAt).Format(timeutil.DateTimeLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
