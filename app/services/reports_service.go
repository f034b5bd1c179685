package services

import (
	"PosLedger/app/database"
	"PosLedger/app/ledger"
	"PosLedger/app/models"
	"PosLedger/app/timeutil"
)

// ReportsService builds aggregated views over the ledger. It loads full
// snapshots and hands them to the pure aggregation functions; nothing here
// mutates data.
type ReportsService struct {
	local *database.LocalDB
}

// NewReportsService creates a new reports service
func NewReportsService(local *database.LocalDB) *ReportsService {
	return &ReportsService{local: local}
}

func (s *ReportsService) loadSnapshots() ([]models.Sale, []models.VendorBill, []models.Product, []models.Customer, error) {
	sales, err := s.local.AllSales()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	bills, err := s.local.AllVendorBills()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	products, err := s.local.AllProducts()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	customers, err := s.local.AllCustomers()
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return sales, bills, products, customers, nil
}

// PeriodReport aggregates sales, vendor bills and daily profit for a date
// range. Empty bounds are open.
func (s *ReportsService) PeriodReport(start, end string) (*ledger.PeriodReport, error) {
	sales, bills, products, customers, err := s.loadSnapshots()
	if err != nil {
		return nil, err
	}
	return ledger.PeriodAggregate(start, end, sales, bills, products, customers), nil
}

// DailyReport is the period report collapsed to a single day
func (s *ReportsService) DailyReport(day string) (*ledger.PeriodReport, error) {
	key := timeutil.NormalizeDay(day)
	return s.PeriodReport(key, key)
}

// DashboardStats is the landing-page snapshot: headline figures for today,
// the last 7 days and the last 30 days, in the business timezone.
type DashboardStats struct {
	Today ledger.PeriodSummary `json:"today"`
	Week  ledger.PeriodSummary `json:"week"`
	Month ledger.PeriodSummary `json:"month"`

	TodayNetProfit float64 `json:"todayNetProfit"`
	Customers      int     `json:"customers"`
	Products       int     `json:"products"`
}

// Dashboard computes the dashboard snapshot
func (s *ReportsService) Dashboard() (*DashboardStats, error) {
	sales, bills, products, customers, err := s.loadSnapshots()
	if err != nil {
		return nil, err
	}

	today := timeutil.Today()
	weekStart := timeutil.AddDays(today, -6)
	monthStart := timeutil.AddDays(today, -29)

	stats := &DashboardStats{
		Today:          ledger.PeriodAggregate(today, today, sales, bills, products, customers).Summary,
		Week:           ledger.PeriodAggregate(weekStart, today, sales, bills, products, customers).Summary,
		Month:          ledger.PeriodAggregate(monthStart, today, sales, bills, products, customers).Summary,
		TodayNetProfit: ledger.DailyNetProfit(today, sales, bills),
		Customers:      len(customers),
		Products:       len(products),
	}
	return stats, nil
}
