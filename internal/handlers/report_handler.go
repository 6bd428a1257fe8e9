package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"toda-backend/internal/models"
	"toda-backend/internal/services"
	"toda-backend/internal/timeutil"
)

type ReportHandler struct {
	Service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{Service: service}
}

// parsePeriod reads start/end query params (YYYY-MM-DD), defaulting to
// the current month.
func parsePeriod(r *http.Request) (time.Time, time.Time, error) {
	now := timeutil.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, timeutil.Manila)
	end := timeutil.EndOfDay(now)

	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.ParseInLocation(timeutil.DateLayout, v, timeutil.Manila)
		if err != nil {
			return start, end, fmt.Errorf("invalid start date: %s", v)
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.ParseInLocation(timeutil.DateLayout, v, timeutil.Manila)
		if err != nil {
			return start, end, fmt.Errorf("invalid end date: %s", v)
		}
		end = timeutil.EndOfDay(t)
	}
	return start, end, nil
}

// DriverStatementPDF streams one driver's billing statement.
func (h *ReportHandler) DriverStatementPDF(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["id"]

	data, err := h.Service.GetDriverStatementData(r.Context(), driverID)
	if err != nil {
		http.Error(w, "Driver not found", http.StatusNotFound)
		return
	}

	pdf, err := h.Service.GenerateDriverStatementPDF(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="statement-%s.pdf"`, driverID))
	w.Write(pdf)
}

// BillingSummaryPDF streams the per-driver billing report for a period.
func (h *ReportHandler) BillingSummaryPDF(w http.ResponseWriter, r *http.Request) {
	start, end, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := h.Service.GetBillingSummaryData(r.Context(), start, end)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	pdf, err := h.Service.GenerateBillingSummaryPDF(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="billing-summary.pdf"`)
	w.Write(pdf)
}

// DriversCSV exports the driver roster.
func (h *ReportHandler) DriversCSV(w http.ResponseWriter, r *http.Request) {
	filter := models.DriverFilter{
		BarangayID: r.URL.Query().Get("barangay"),
	}

	data, err := h.Service.GenerateDriversCSV(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="drivers.csv"`)
	w.Write(data)
}

// LedgerCSV exports queueing and billing history for a period.
func (h *ReportHandler) LedgerCSV(w http.ResponseWriter, r *http.Request) {
	start, end, err := parsePeriod(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filter := models.LedgerFilter{
		BarangayID: r.URL.Query().Get("barangay"),
		Kind:       r.URL.Query().Get("kind"),
		StartDate:  &start,
		EndDate:    &end,
		Limit:      10000,
	}

	data, err := h.Service.GenerateLedgerCSV(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="ledger.csv"`)
	w.Write(data)
}
