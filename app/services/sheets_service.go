package services

import (
	"context"
	"fmt"
	"os"

	"PosLedger/app/ledger"
	"PosLedger/app/timeutil"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var sheetsHeaders = []interface{}{
	"date", "revenue", "paid", "balance", "invoices", "vendor_bills", "net_profit",
}

// SheetsService exports daily ledger summaries to a Google spreadsheet using
// a service account. One row per day, keyed by date: re-exporting a day
// updates its row instead of appending a duplicate.
type SheetsService struct {
	reports *ReportsService

	credentialsFile string
	spreadsheetID   string
	sheetName       string
}

// NewSheetsService creates a sheets exporter. Configuration comes from the
// environment; Enabled reports whether it is usable.
func NewSheetsService(reports *ReportsService, credentialsFile, spreadsheetID, sheetName string) *SheetsService {
	if sheetName == "" {
		sheetName = "Reports"
	}
	return &SheetsService{
		reports:         reports,
		credentialsFile: credentialsFile,
		spreadsheetID:   spreadsheetID,
		sheetName:       sheetName,
	}
}

// Enabled reports whether credentials and a spreadsheet are configured
func (s *SheetsService) Enabled() bool {
	return s.credentialsFile != "" && s.spreadsheetID != ""
}

func (s *SheetsService) newClient(ctx context.Context) (*sheets.Service, error) {
	key, err := os.ReadFile(s.credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, key, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("invalid service account credentials: %w", err)
	}
	srv, err := sheets.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// TestConnection verifies the spreadsheet is reachable with the configured
// credentials.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	if !s.Enabled() {
		return NewValidationError("sheets export is not configured")
	}
	srv, err := s.newClient(ctx)
	if err != nil {
		return err
	}
	if _, err := srv.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("unable to access spreadsheet: %w", err)
	}
	return nil
}

// ExportDay writes one day's summary row to the spreadsheet
func (s *SheetsService) ExportDay(ctx context.Context, day string) error {
	if !s.Enabled() {
		return NewValidationError("sheets export is not configured")
	}
	day = timeutil.NormalizeDay(day)
	if day == "" {
		day = timeutil.Today()
	}

	report, err := s.reports.DailyReport(day)
	if err != nil {
		return err
	}

	srv, err := s.newClient(ctx)
	if err != nil {
		return err
	}
	if err := s.ensureHeaders(ctx, srv); err != nil {
		return fmt.Errorf("failed to ensure headers: %w", err)
	}

	row := s.reportRow(day, report)
	valueRange := &sheets.ValueRange{Values: [][]interface{}{row}}

	rowIndex, err := s.findDayRow(ctx, srv, day)
	if err != nil {
		return fmt.Errorf("failed to check existing row: %w", err)
	}

	if rowIndex > 0 {
		sheetRange := fmt.Sprintf("%s!A%d:G%d", s.sheetName, rowIndex, rowIndex)
		_, err = srv.Spreadsheets.Values.Update(s.spreadsheetID, sheetRange, valueRange).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("unable to update report row: %w", err)
		}
		return nil
	}

	sheetRange := fmt.Sprintf("%s!A:G", s.sheetName)
	_, err = srv.Spreadsheets.Values.Append(s.spreadsheetID, sheetRange, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("unable to append report row: %w", err)
	}
	return nil
}

func (s *SheetsService) reportRow(day string, report *ledger.PeriodReport) []interface{} {
	bills := 0.0
	profit := 0.0
	for _, d := range report.Daily {
		if d.Date == day {
			bills = d.VendorBills
			profit = d.NetProfit
		}
	}
	return []interface{}{
		day,
		report.Summary.Revenue,
		report.Summary.Paid,
		report.Summary.Balance,
		report.Summary.Count,
		bills,
		profit,
	}
}

// findDayRow returns the 1-indexed sheet row holding the day, or -1
func (s *SheetsService) findDayRow(ctx context.Context, srv *sheets.Service, day string) (int, error) {
	sheetRange := fmt.Sprintf("%s!A:A", s.sheetName)
	resp, err := srv.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return -1, err
	}
	for i, row := range resp.Values {
		if len(row) > 0 {
			if date, ok := row[0].(string); ok && date == day {
				return i + 1, nil
			}
		}
	}
	return -1, nil
}

func (s *SheetsService) ensureHeaders(ctx context.Context, srv *sheets.Service) error {
	sheetRange := fmt.Sprintf("%s!A1:G1", s.sheetName)
	resp, err := srv.Spreadsheets.Values.Get(s.spreadsheetID, sheetRange).Context(ctx).Do()
	if err != nil {
		return err
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) >= len(sheetsHeaders) {
		return nil
	}

	valueRange := &sheets.ValueRange{Values: [][]interface{}{sheetsHeaders}}
	_, err = srv.Spreadsheets.Values.Update(s.spreadsheetID, sheetRange, valueRange).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}
