package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"PosLedger/app/timeutil"
)

// ReportSchedulerService runs the Google Sheets export automatically once a
// day at the configured wall-clock time, exporting today's summary so the
// spreadsheet tracks the day as it closes.
type ReportSchedulerService struct {
	sheets     *SheetsService
	exportTime string

	stopChan chan bool
	running  bool
}

// NewReportSchedulerService creates the scheduler. exportTime is "HH:MM" in
// the business timezone.
func NewReportSchedulerService(sheets *SheetsService, exportTime string) *ReportSchedulerService {
	if exportTime == "" {
		exportTime = "23:00"
	}
	return &ReportSchedulerService{
		sheets:     sheets,
		exportTime: exportTime,
		stopChan:   make(chan bool),
	}
}

// Start begins the scheduler. A no-op when the sheets export is not
// configured.
func (s *ReportSchedulerService) Start() error {
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if !s.sheets.Enabled() {
		log.Println("Sheets export not configured, scheduler idle")
		return nil
	}

	s.running = true
	go s.run()

	log.Printf("Report scheduler started, daily export at %s", s.exportTime)
	return nil
}

// Stop stops the scheduler
func (s *ReportSchedulerService) Stop() {
	if !s.running {
		return
	}
	s.stopChan <- true
	s.running = false
	log.Println("Report scheduler stopped")
}

// run is the main scheduler loop
func (s *ReportSchedulerService) run() {
	for {
		duration := s.untilNextExport()
		log.Printf("Next sheets export scheduled in %v", duration)

		timer := time.NewTimer(duration)
		select {
		case <-timer.C:
			if err := s.exportToday(); err != nil {
				log.Printf("Scheduled sheets export failed: %v", err)
			} else {
				log.Println("Scheduled sheets export completed")
			}

		case <-s.stopChan:
			timer.Stop()
			return
		}
	}
}

// untilNextExport returns the duration until the configured time next occurs,
// evaluated in the business timezone.
func (s *ReportSchedulerService) untilNextExport() time.Duration {
	now := time.Now().In(timeutil.Location())

	target, err := time.Parse("15:04", s.exportTime)
	if err != nil {
		log.Printf("Invalid export time %q, using 23:00", s.exportTime)
		target, _ = time.Parse("15:04", "23:00")
	}

	next := time.Date(now.Year(), now.Month(), now.Day(),
		target.Hour(), target.Minute(), 0, 0, now.Location())
	if !now.Before(next) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

func (s *ReportSchedulerService) exportToday() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	return s.sheets.ExportDay(ctx, timeutil.Today())
}
