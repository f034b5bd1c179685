package services

import (
	"testing"
	"time"

	"PosLedger/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRoundTrip(t *testing.T) {
	source := openTestLocal(t)
	syncService := NewSyncService(source, nil, time.Second)
	backup := NewBackupService(source, syncService, t.TempDir())

	customers := NewCustomerService(source, syncService)
	products := NewProductService(source, syncService)
	vendors := NewVendorService(source, syncService)
	payments := NewPaymentService(source, syncService)

	customer := &models.Customer{Name: "Alice", Contact: "111"}
	require.NoError(t, customers.CreateCustomer(customer))
	require.NoError(t, products.CreateProduct(&models.Product{Name: "Rice", Price: 10, Unit: "Kg"}))
	vendor := &models.Vendor{Name: "Supplier"}
	require.NoError(t, vendors.CreateVendor(vendor))
	require.NoError(t, vendors.CreateVendorBill(&models.VendorBill{
		VendorID: vendor.ID, Date: "2025-03-14", Total: 35,
	}))
	require.NoError(t, payments.CreatePayment(&models.Payment{
		CustomerID: customer.ID, Date: "2025-03-14", Amount: 20,
	}))

	data, err := backup.Export()
	require.NoError(t, err)

	target := openTestLocal(t)
	targetSync := NewSyncService(target, nil, time.Second)
	targetBackup := NewBackupService(target, targetSync, t.TempDir())

	result, err := targetBackup.Import(data)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)
	assert.Equal(t, 6, result.Rows) // customer, product, vendor, bill, payment, settings

	var restored models.Customer
	require.NoError(t, target.DB().First(&restored, customer.ID).Error)
	assert.Equal(t, "Alice", restored.Name)

	var billCount int64
	target.DB().Model(&models.VendorBill{}).Count(&billCount)
	assert.Equal(t, int64(1), billCount)
}

func TestBackupImportVersion1(t *testing.T) {
	local := openTestLocal(t)
	backup := NewBackupService(local, NewSyncService(local, nil, time.Second), t.TempDir())

	// Old export: no version field, no vendor or payment collections
	v1 := `{
		"timestamp": "2024-01-01T00:00:00Z",
		"customers": [{"id": 1, "name": "Old Customer", "contact": "999"}],
		"products": [],
		"sales": [],
		"settings": []
	}`
	result, err := backup.Import([]byte(v1))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Version)
	assert.Equal(t, 1, result.Rows)

	var customer models.Customer
	require.NoError(t, local.DB().First(&customer, 1).Error)
	assert.Equal(t, "Old Customer", customer.Name)
}

func TestBackupImportRejectsGarbage(t *testing.T) {
	local := openTestLocal(t)
	backup := NewBackupService(local, NewSyncService(local, nil, time.Second), t.TempDir())

	_, err := backup.Import([]byte("not json"))
	assert.True(t, IsValidationError(err))

	_, err = backup.Import([]byte(`{"version": 99}`))
	assert.True(t, IsValidationError(err))
}

func TestBackupEncryptedRoundTrip(t *testing.T) {
	local := openTestLocal(t)
	syncService := NewSyncService(local, nil, time.Second)
	keyDir := t.TempDir()
	backup := NewBackupService(local, syncService, keyDir)

	customers := NewCustomerService(local, syncService)
	require.NoError(t, customers.CreateCustomer(&models.Customer{Name: "Alice", Contact: "111"}))

	sealed, err := backup.ExportEncrypted()
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "Alice")

	// Same key directory decrypts
	result, err := backup.Import(sealed)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Version)

	// A different device (different key) cannot
	other := NewBackupService(openTestLocal(t), NewSyncService(local, nil, time.Second), t.TempDir())
	_, err = other.Import(sealed)
	assert.True(t, IsValidationError(err))
}
