// Package ledger computes derived financial views from snapshots of sales,
// payments and vendor bills. Everything here is a pure function: snapshots in,
// derived values out, no I/O. Malformed records degrade to zero contributions
// instead of being rejected.
package ledger

import (
	"sort"

	"PosLedger/app/models"
	"PosLedger/app/timeutil"

	"github.com/shopspring/decimal"
)

// SaleSubtotal returns the invoice subtotal. The stored value is treated as a
// cache: when absent the subtotal is recomputed from the line items, and when
// the items are missing too it is derived from grandTotal - prevBalance so a
// partially synced record still contributes the right amount.
func SaleSubtotal(s models.Sale) float64 {
	if s.Subtotal != 0 {
		return float64(s.Subtotal)
	}
	if len(s.Items) > 0 {
		total := decimal.Zero
		for _, item := range s.Items {
			total = total.Add(decimal.NewFromFloat(item.LineTotal()))
		}
		return total.InexactFloat64()
	}
	return float64(s.GrandTotal) - float64(s.PrevBalance)
}

// SaleGrandTotal returns subtotal plus the carried-forward balance. Recomputed
// at read time; the stored value only backstops records with no items and no
// subtotal.
func SaleGrandTotal(s models.Sale) float64 {
	sub := SaleSubtotal(s)
	if sub == 0 && s.GrandTotal != 0 {
		return float64(s.GrandTotal)
	}
	return decimal.NewFromFloat(sub).
		Add(decimal.NewFromFloat(float64(s.PrevBalance))).
		InexactFloat64()
}

// BalanceDue returns what remains owed on a single invoice
func BalanceDue(s models.Sale) float64 {
	return decimal.NewFromFloat(SaleGrandTotal(s)).
		Sub(decimal.NewFromFloat(float64(s.PaidAmount))).
		InexactFloat64()
}

// OutstandingBalance computes what a customer currently owes:
//
//	initialBalance + sum(per-sale subtotal) - sum(payments)
//
// where initialBalance is the prevBalance carried on the customer's earliest
// sale (date ascending, ID ascending tie-break). Later prevBalance values are
// ignored; they restate debt already counted through earlier invoices. The
// result does not depend on the order of the input slices.
func OutstandingBalance(customerID models.ID, sales []models.Sale, payments []models.Payment) float64 {
	var customerSales []models.Sale
	for _, s := range sales {
		if s.CustomerID == customerID {
			customerSales = append(customerSales, s)
		}
	}

	total := decimal.Zero
	if len(customerSales) > 0 {
		sort.Slice(customerSales, func(i, j int) bool {
			di := timeutil.NormalizeDay(customerSales[i].Date)
			dj := timeutil.NormalizeDay(customerSales[j].Date)
			if di != dj {
				return di < dj
			}
			return customerSales[i].ID < customerSales[j].ID
		})
		total = total.Add(decimal.NewFromFloat(float64(customerSales[0].PrevBalance)))
		for _, s := range customerSales {
			total = total.Add(decimal.NewFromFloat(SaleSubtotal(s)))
		}
	}

	for _, p := range payments {
		if p.CustomerID == customerID {
			total = total.Sub(decimal.NewFromFloat(float64(p.Amount)))
		}
	}

	return total.InexactFloat64()
}

// DailyNetProfit returns sales revenue minus vendor bills for one calendar
// day. Day equality is string equality on normalized day keys in the business
// timezone.
func DailyNetProfit(day string, sales []models.Sale, bills []models.VendorBill) float64 {
	key := timeutil.NormalizeDay(day)
	total := decimal.Zero
	for _, s := range sales {
		if timeutil.NormalizeDay(s.Date) == key {
			total = total.Add(decimal.NewFromFloat(SaleSubtotal(s)))
		}
	}
	for _, b := range bills {
		if timeutil.NormalizeDay(b.Date) == key {
			total = total.Sub(decimal.NewFromFloat(float64(b.Total)))
		}
	}
	return total.InexactFloat64()
}

// PeriodSummary holds the headline figures for a date range
type PeriodSummary struct {
	Revenue float64 `json:"revenue"`
	Paid    float64 `json:"paid"`
	Balance float64 `json:"balance"`
	Count   int     `json:"count"`
}

// ProductStat aggregates one product's movement within a period
type ProductStat struct {
	ProductID models.ID `json:"productId"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Qty       float64   `json:"qty"`
	Revenue   float64   `json:"revenue"`
}

// CustomerStat aggregates one customer's purchases within a period
type CustomerStat struct {
	CustomerID models.ID `json:"customerId"`
	Name       string    `json:"name"`
	Count      int       `json:"count"`
	Total      float64   `json:"total"`
}

// DailyStat is one row of the daily profit summary
type DailyStat struct {
	Date        string  `json:"date"`
	Sales       float64 `json:"sales"`
	VendorBills float64 `json:"vendorBills"`
	NetProfit   float64 `json:"netProfit"`
}

// PeriodReport is the full aggregation for a date range
type PeriodReport struct {
	Start     string         `json:"start"`
	End       string         `json:"end"`
	Summary   PeriodSummary  `json:"summary"`
	Products  []ProductStat  `json:"products"`
	Customers []CustomerStat `json:"customers"`
	Daily     []DailyStat    `json:"daily"`
}

// InRange reports whether a stored date falls inside [start, end] inclusive.
// Empty bounds are open.
func InRange(date, start, end string) bool {
	key := timeutil.NormalizeDay(date)
	if start != "" && key < timeutil.NormalizeDay(start) {
		return false
	}
	if end != "" && key > timeutil.NormalizeDay(end) {
		return false
	}
	return true
}

// PeriodAggregate computes the period report over the supplied snapshots.
// Revenue sums subtotals (carried balances excluded), paid sums paidAmount,
// balance sums grandTotal - paidAmount. Product and customer groups are
// sorted descending by revenue/total with ties kept in first-seen order.
func PeriodAggregate(start, end string, sales []models.Sale, bills []models.VendorBill,
	products []models.Product, customers []models.Customer) *PeriodReport {

	productNames := make(map[models.ID]string, len(products))
	for _, p := range products {
		productNames[p.ID] = p.Name
	}
	customerNames := make(map[models.ID]string, len(customers))
	for _, c := range customers {
		customerNames[c.ID] = c.Name
	}

	report := &PeriodReport{Start: start, End: end}
	revenue, paid, balance := decimal.Zero, decimal.Zero, decimal.Zero

	productIdx := make(map[models.ID]int)
	customerIdx := make(map[models.ID]int)
	productSums := []decimal.Decimal{}
	customerSums := []decimal.Decimal{}
	dailySales := make(map[string]decimal.Decimal)
	dailyBills := make(map[string]decimal.Decimal)

	for _, s := range sales {
		if !InRange(s.Date, start, end) {
			continue
		}
		report.Summary.Count++
		sub := SaleSubtotal(s)
		revenue = revenue.Add(decimal.NewFromFloat(sub))
		paid = paid.Add(decimal.NewFromFloat(float64(s.PaidAmount)))
		balance = balance.Add(decimal.NewFromFloat(BalanceDue(s)))

		day := timeutil.NormalizeDay(s.Date)
		dailySales[day] = dailySales[day].Add(decimal.NewFromFloat(sub))

		for _, item := range s.Items {
			idx, ok := productIdx[item.ProductID]
			if !ok {
				idx = len(report.Products)
				productIdx[item.ProductID] = idx
				name := productNames[item.ProductID]
				if name == "" {
					name = "Unknown"
				}
				report.Products = append(report.Products, ProductStat{
					ProductID: item.ProductID,
					Name:      name,
					Unit:      item.Unit,
				})
				productSums = append(productSums, decimal.Zero)
			}
			report.Products[idx].Qty += float64(item.Qty)
			productSums[idx] = productSums[idx].Add(decimal.NewFromFloat(item.LineTotal()))
		}

		idx, ok := customerIdx[s.CustomerID]
		if !ok {
			idx = len(report.Customers)
			customerIdx[s.CustomerID] = idx
			name := customerNames[s.CustomerID]
			if name == "" {
				name = "Unknown"
			}
			report.Customers = append(report.Customers, CustomerStat{
				CustomerID: s.CustomerID,
				Name:       name,
			})
			customerSums = append(customerSums, decimal.Zero)
		}
		report.Customers[idx].Count++
		customerSums[idx] = customerSums[idx].Add(decimal.NewFromFloat(sub))
	}

	for _, b := range bills {
		if !InRange(b.Date, start, end) {
			continue
		}
		day := timeutil.NormalizeDay(b.Date)
		dailyBills[day] = dailyBills[day].Add(decimal.NewFromFloat(float64(b.Total)))
	}

	for i := range report.Products {
		report.Products[i].Revenue = productSums[i].InexactFloat64()
	}
	for i := range report.Customers {
		report.Customers[i].Total = customerSums[i].InexactFloat64()
	}

	sort.SliceStable(report.Products, func(i, j int) bool {
		return report.Products[i].Revenue > report.Products[j].Revenue
	})
	sort.SliceStable(report.Customers, func(i, j int) bool {
		return report.Customers[i].Total > report.Customers[j].Total
	})

	days := make([]string, 0, len(dailySales))
	seen := make(map[string]bool)
	for day := range dailySales {
		days = append(days, day)
		seen[day] = true
	}
	for day := range dailyBills {
		if !seen[day] {
			days = append(days, day)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	for _, day := range days {
		s := dailySales[day]
		b := dailyBills[day]
		report.Daily = append(report.Daily, DailyStat{
			Date:        day,
			Sales:       s.InexactFloat64(),
			VendorBills: b.InexactFloat64(),
			NetProfit:   s.Sub(b).InexactFloat64(),
		})
	}

	report.Summary.Revenue = revenue.InexactFloat64()
	report.Summary.Paid = paid.InexactFloat64()
	report.Summary.Balance = balance.InexactFloat64()
	return report
}

// EntryType distinguishes ledger entry kinds
type EntryType string

const (
	EntrySale    EntryType = "SALE"
	EntryPayment EntryType = "PAYMENT"
)

// Entry is one row of a customer's transaction history. Sale entries carry
// the invoice grandTotal (the true debit including carried balance); revenue
// reporting uses subtotals, but a customer-facing ledger must not.
type Entry struct {
	Type      EntryType `json:"type"`
	Date      string    `json:"date"`
	Amount    float64   `json:"amount"`
	Reference string    `json:"reference"`
	RecordID  models.ID `json:"recordId"`
}

// TransactionHistory merges a customer's sales and payments into one
// date-descending list, optionally filtered to [start, end].
func TransactionHistory(customerID models.ID, sales []models.Sale, payments []models.Payment, start, end string) []Entry {
	entries := []Entry{}
	for _, s := range sales {
		if s.CustomerID != customerID || !InRange(s.Date, start, end) {
			continue
		}
		entries = append(entries, Entry{
			Type:      EntrySale,
			Date:      timeutil.NormalizeDay(s.Date),
			Amount:    SaleGrandTotal(s),
			Reference: s.Memo,
			RecordID:  s.ID,
		})
	}
	for _, p := range payments {
		if p.CustomerID != customerID || !InRange(p.Date, start, end) {
			continue
		}
		entries = append(entries, Entry{
			Type:      EntryPayment,
			Date:      timeutil.NormalizeDay(p.Date),
			Amount:    float64(p.Amount),
			Reference: p.Memo,
			RecordID:  p.ID,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Date != entries[j].Date {
			return entries[i].Date > entries[j].Date
		}
		return entries[i].RecordID > entries[j].RecordID
	})
	return entries
}
