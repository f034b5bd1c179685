package services

import (
	"testing"
	"time"

	"PosLedger/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type salesFixture struct {
	customers *CustomerService
	payments  *PaymentService
	sales     *SalesService
	customer  *models.Customer
}

func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()
	local := openTestLocal(t)
	syncService := NewSyncService(local, nil, time.Second)
	settings := NewSettingsService(local, syncService)

	f := &salesFixture{
		customers: NewCustomerService(local, syncService),
		payments:  NewPaymentService(local, syncService),
		sales:     NewSalesService(local, syncService, settings),
		customer:  &models.Customer{Name: "Alice", Contact: "111"},
	}
	require.NoError(t, f.customers.CreateCustomer(f.customer))
	return f
}

func TestCreateSaleRecomputesTotals(t *testing.T) {
	f := newSalesFixture(t)

	sale := &models.Sale{
		CustomerID: f.customer.ID,
		Date:       "2025-03-14",
		Items: models.SaleItems{
			{ProductID: 1, Qty: 2, Price: 40},
			{ProductID: 2, Qty: 1, Price: 25, Discount: 5},
		},
		// Caller-supplied totals are ignored
		Subtotal:   999,
		GrandTotal: 999,
		PaidAmount: 50,
	}
	require.NoError(t, f.sales.CreateSale(sale))

	assert.Equal(t, models.Number(100), sale.Subtotal)
	assert.Equal(t, models.Number(0), sale.PrevBalance)
	assert.Equal(t, models.Number(100), sale.GrandTotal)
}

func TestCreateSaleFreezesCarriedBalance(t *testing.T) {
	f := newSalesFixture(t)

	first := &models.Sale{
		CustomerID: f.customer.ID,
		Date:       "2025-03-10",
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 100}},
		PaidAmount: 30,
	}
	require.NoError(t, f.sales.CreateSale(first))

	require.NoError(t, f.payments.CreatePayment(&models.Payment{
		CustomerID: f.customer.ID, Date: "2025-03-12", Amount: 30,
	}))

	second := &models.Sale{
		CustomerID: f.customer.ID,
		Date:       "2025-03-14",
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 50}},
	}
	require.NoError(t, f.sales.CreateSale(second))

	// 100 sold minus 30 paid is carried onto the new invoice
	assert.Equal(t, models.Number(70), second.PrevBalance)
	assert.Equal(t, models.Number(120), second.GrandTotal)
}

func TestCreateSaleValidation(t *testing.T) {
	f := newSalesFixture(t)

	err := f.sales.CreateSale(&models.Sale{CustomerID: f.customer.ID})
	assert.True(t, IsValidationError(err), "no items")

	err = f.sales.CreateSale(&models.Sale{
		CustomerID: 999,
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 10}},
	})
	assert.True(t, IsValidationError(err), "unknown customer")

	err = f.sales.CreateSale(&models.Sale{
		CustomerID: f.customer.ID,
		Items:      models.SaleItems{{ProductID: 1, Qty: 0, Price: 10}},
	})
	assert.True(t, IsValidationError(err), "zero quantity")
}

func TestCreateSaleDefaultsDateToToday(t *testing.T) {
	f := newSalesFixture(t)

	sale := &models.Sale{
		CustomerID: f.customer.ID,
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 10}},
	}
	require.NoError(t, f.sales.CreateSale(sale))
	assert.Len(t, sale.Date, 10)
}

func TestInvoiceNumber(t *testing.T) {
	f := newSalesFixture(t)

	sale := &models.Sale{
		CustomerID: f.customer.ID,
		Date:       "2025-03-14",
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 10}},
	}
	require.NoError(t, f.sales.CreateSale(sale))

	number, err := f.sales.InvoiceNumber(sale)
	require.NoError(t, err)
	// Seeded invoiceStart is 10000, first sale gets it
	assert.Equal(t, int64(10000)+int64(sale.ID)-1, number)
}

func TestInvoiceQR(t *testing.T) {
	f := newSalesFixture(t)

	sale := &models.Sale{
		CustomerID: f.customer.ID,
		Date:       "2025-03-14",
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 10}},
	}
	require.NoError(t, f.sales.CreateSale(sale))

	png, err := f.sales.InvoiceQR(sale.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), png[:4])
}

func TestCustomerStatement(t *testing.T) {
	f := newSalesFixture(t)

	require.NoError(t, f.sales.CreateSale(&models.Sale{
		CustomerID: f.customer.ID,
		Date:       "2025-03-10",
		Items:      models.SaleItems{{ProductID: 1, Qty: 1, Price: 100}},
	}))
	require.NoError(t, f.payments.CreatePayment(&models.Payment{
		CustomerID: f.customer.ID, Date: "2025-03-12", Amount: 30,
	}))

	statement, err := f.customers.Statement(f.customer.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, 70.0, statement.Outstanding)
	require.Len(t, statement.Entries, 2)
	assert.Equal(t, "2025-03-12", statement.Entries[0].Date)
	assert.Equal(t, "2025-03-10", statement.Entries[1].Date)
}
