package ledger

import (
	"testing"

	"PosLedger/app/models"

	"github.com/stretchr/testify/assert"
)

func sale(id models.ID, customer models.ID, date string, subtotal, prevBalance, paid float64) models.Sale {
	return models.Sale{
		ID:          id,
		CustomerID:  customer,
		Date:        date,
		Subtotal:    models.Number(subtotal),
		PrevBalance: models.Number(prevBalance),
		PaidAmount:  models.Number(paid),
		GrandTotal:  models.Number(subtotal + prevBalance),
	}
}

func TestSaleTotals(t *testing.T) {
	s := sale(1, 1, "2025-03-14", 100, 20, 50)
	assert.Equal(t, 100.0, SaleSubtotal(s))
	assert.Equal(t, 120.0, SaleGrandTotal(s))
	assert.Equal(t, 70.0, BalanceDue(s))
}

func TestSaleSubtotalFallsBackToItems(t *testing.T) {
	s := models.Sale{
		ID:         2,
		CustomerID: 1,
		Date:       "2025-03-14",
		Items: models.SaleItems{
			{ProductID: 1, Qty: 3, Price: 10},
			{ProductID: 2, Qty: 1, Price: 25, Discount: 5},
		},
	}
	assert.Equal(t, 50.0, SaleSubtotal(s))
}

func TestSaleSubtotalDerivedFromGrandTotal(t *testing.T) {
	// Partially synced record: no subtotal, no items, only totals
	s := models.Sale{ID: 3, GrandTotal: 130, PrevBalance: 30}
	assert.Equal(t, 100.0, SaleSubtotal(s))
	assert.Equal(t, 130.0, SaleGrandTotal(s))
}

func TestOutstandingBalanceNoHistory(t *testing.T) {
	assert.Equal(t, 0.0, OutstandingBalance(9, nil, nil))
}

func TestOutstandingBalanceSingleSaleAndPayment(t *testing.T) {
	sales := []models.Sale{sale(1, 1, "2025-03-10", 100, 0, 0)}
	payments := []models.Payment{{ID: 1, CustomerID: 1, Date: "2025-03-12", Amount: 30}}
	assert.Equal(t, 70.0, OutstandingBalance(1, sales, payments))
}

func TestOutstandingBalanceUsesEarliestPrevBalance(t *testing.T) {
	// The opening balance comes from the earliest sale only; later
	// prevBalance values restate debt already counted.
	sales := []models.Sale{
		sale(2, 1, "2025-03-12", 60, 120, 0),
		sale(1, 1, "2025-03-10", 100, 20, 0),
	}
	// 20 + 100 + 60 = 180
	assert.Equal(t, 180.0, OutstandingBalance(1, sales, nil))
}

func TestOutstandingBalanceOrderIndependent(t *testing.T) {
	a := sale(1, 1, "2025-03-10", 100, 20, 0)
	b := sale(2, 1, "2025-03-12", 60, 0, 0)
	p := models.Payment{ID: 1, CustomerID: 1, Amount: 40}

	forward := OutstandingBalance(1, []models.Sale{a, b}, []models.Payment{p})
	reversed := OutstandingBalance(1, []models.Sale{b, a}, []models.Payment{p})
	assert.Equal(t, forward, reversed)
	assert.Equal(t, 140.0, forward)
}

func TestOutstandingBalanceIgnoresOtherCustomers(t *testing.T) {
	sales := []models.Sale{
		sale(1, 1, "2025-03-10", 100, 0, 0),
		sale(2, 2, "2025-03-10", 999, 50, 0),
	}
	payments := []models.Payment{
		{ID: 1, CustomerID: 2, Amount: 500},
	}
	assert.Equal(t, 100.0, OutstandingBalance(1, sales, payments))
}

func TestDailyNetProfit(t *testing.T) {
	sales := []models.Sale{
		sale(1, 1, "2025-03-14", 40, 0, 0),
		sale(2, 2, "2025-03-14", 60, 0, 0),
		sale(3, 1, "2025-03-15", 500, 0, 0),
	}
	bills := []models.VendorBill{
		{ID: 1, VendorID: 1, Date: "2025-03-14", Total: 35},
	}
	assert.Equal(t, 65.0, DailyNetProfit("2025-03-14", sales, bills))
	assert.Equal(t, 500.0, DailyNetProfit("2025-03-15", sales, bills))
	assert.Equal(t, 0.0, DailyNetProfit("2025-03-16", sales, bills))
}

func TestInRange(t *testing.T) {
	assert.True(t, InRange("2025-03-14", "2025-03-01", "2025-03-31"))
	assert.True(t, InRange("2025-03-14", "", ""))
	assert.True(t, InRange("2025-03-14", "2025-03-14", "2025-03-14"))
	assert.False(t, InRange("2025-04-01", "2025-03-01", "2025-03-31"))
	assert.False(t, InRange("2025-02-28", "2025-03-01", ""))
}

func TestPeriodAggregate(t *testing.T) {
	products := []models.Product{
		{ID: 1, Name: "Rice", Unit: "Kg"},
		{ID: 2, Name: "Oil", Unit: "L"},
	}
	customers := []models.Customer{
		{ID: 1, Name: "Alice"},
		{ID: 2, Name: "Bob"},
	}
	sales := []models.Sale{
		{
			ID: 1, CustomerID: 1, Date: "2025-03-14",
			Items: models.SaleItems{
				{ProductID: 1, Qty: 2, Unit: "Kg", Price: 10},
				{ProductID: 2, Qty: 1, Unit: "L", Price: 30},
			},
			Subtotal: 50, PrevBalance: 10, PaidAmount: 20, GrandTotal: 60,
		},
		{
			ID: 2, CustomerID: 2, Date: "2025-03-15",
			Items: models.SaleItems{
				{ProductID: 1, Qty: 4, Unit: "Kg", Price: 10},
			},
			Subtotal: 40, PaidAmount: 40, GrandTotal: 40,
		},
		// outside the range
		{ID: 3, CustomerID: 1, Date: "2025-04-01", Subtotal: 999, GrandTotal: 999},
	}
	bills := []models.VendorBill{
		{ID: 1, VendorID: 1, Date: "2025-03-14", Total: 15},
	}

	report := PeriodAggregate("2025-03-01", "2025-03-31", sales, bills, products, customers)

	assert.Equal(t, 90.0, report.Summary.Revenue)
	assert.Equal(t, 60.0, report.Summary.Paid)
	// (60-20) + (40-40)
	assert.Equal(t, 40.0, report.Summary.Balance)
	assert.Equal(t, 2, report.Summary.Count)

	// Rice revenue 60 beats Oil's 30
	assert.Equal(t, "Rice", report.Products[0].Name)
	assert.Equal(t, 6.0, report.Products[0].Qty)
	assert.Equal(t, 60.0, report.Products[0].Revenue)
	assert.Equal(t, "Oil", report.Products[1].Name)

	// Alice's subtotal 50 beats Bob's 40
	assert.Equal(t, "Alice", report.Customers[0].Name)
	assert.Equal(t, 50.0, report.Customers[0].Total)
	assert.Equal(t, 1, report.Customers[0].Count)

	// Daily rows date-descending
	assert.Len(t, report.Daily, 2)
	assert.Equal(t, "2025-03-15", report.Daily[0].Date)
	assert.Equal(t, 40.0, report.Daily[0].NetProfit)
	assert.Equal(t, "2025-03-14", report.Daily[1].Date)
	assert.Equal(t, 35.0, report.Daily[1].NetProfit)
}

func TestTransactionHistory(t *testing.T) {
	sales := []models.Sale{
		sale(1, 1, "2025-03-10", 100, 20, 0),
		sale(2, 1, "2025-03-14", 60, 0, 0),
		sale(3, 2, "2025-03-14", 999, 0, 0),
	}
	payments := []models.Payment{
		{ID: 1, CustomerID: 1, Date: "2025-03-12", Amount: 30, Memo: "cash"},
	}

	entries := TransactionHistory(1, sales, payments, "", "")
	assert.Len(t, entries, 3)

	assert.Equal(t, EntrySale, entries[0].Type)
	assert.Equal(t, "2025-03-14", entries[0].Date)
	assert.Equal(t, 60.0, entries[0].Amount)

	assert.Equal(t, EntryPayment, entries[1].Type)
	assert.Equal(t, 30.0, entries[1].Amount)
	assert.Equal(t, "cash", entries[1].Reference)

	// Sale amounts are grand totals, carried balance included
	assert.Equal(t, EntrySale, entries[2].Type)
	assert.Equal(t, 120.0, entries[2].Amount)
}

func TestTransactionHistoryRangeFilter(t *testing.T) {
	sales := []models.Sale{
		sale(1, 1, "2025-03-10", 100, 0, 0),
		sale(2, 1, "2025-03-20", 60, 0, 0),
	}
	entries := TransactionHistory(1, sales, nil, "2025-03-15", "2025-03-31")
	assert.Len(t, entries, 1)
	assert.Equal(t, models.ID(2), entries[0].RecordID)
}
