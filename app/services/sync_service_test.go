package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"PosLedger/app/database"
	"PosLedger/app/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestLocal(t *testing.T) *database.LocalDB {
	t.Helper()
	local, err := database.OpenLocal(filepath.Join(t.TempDir(), "local.db"), "admin", "secret123")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	return local
}

func openTestRemote(t *testing.T) database.Remote {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "remote.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	remote, err := database.NewRemoteDB(db)
	require.NoError(t, err)
	return remote
}

// Two devices sharing one remote store: a write on device A reaches device B
// through the change feed.
func TestSyncPropagatesBetweenDevices(t *testing.T) {
	remote := openTestRemote(t)

	localA := openTestLocal(t)
	syncA := NewSyncService(localA, remote, time.Second)
	customersA := NewCustomerService(localA, syncA)

	localB := openTestLocal(t)
	syncB := NewSyncService(localB, remote, time.Second)

	customer := &models.Customer{Name: "Alice", Contact: "111"}
	require.NoError(t, customersA.CreateCustomer(customer))
	syncA.WaitForPushes()

	syncB.pullOnce(context.Background(), database.CollectionCustomers)

	var got models.Customer
	require.NoError(t, localB.DB().First(&got, customer.ID).Error)
	assert.Equal(t, "Alice", got.Name)
}

// Applying remote changes must not push back out: the feed stays exactly as
// the originating device left it.
func TestSyncDoesNotEcho(t *testing.T) {
	remote := openTestRemote(t)

	localA := openTestLocal(t)
	syncA := NewSyncService(localA, remote, time.Second)
	customersA := NewCustomerService(localA, syncA)

	localB := openTestLocal(t)
	syncB := NewSyncService(localB, remote, time.Second)

	require.NoError(t, customersA.CreateCustomer(&models.Customer{Name: "Alice", Contact: "111"}))
	syncA.WaitForPushes()

	ctx := context.Background()
	syncB.pullOnce(ctx, database.CollectionCustomers)
	syncB.pullOnce(ctx, database.CollectionCustomers)

	changes, err := remote.Changes(ctx, database.CollectionCustomers, 0, 100)
	require.NoError(t, err)
	assert.Len(t, changes, 1)
}

func TestSyncDeletePropagates(t *testing.T) {
	remote := openTestRemote(t)

	localA := openTestLocal(t)
	syncA := NewSyncService(localA, remote, time.Second)
	productsA := NewProductService(localA, syncA)

	localB := openTestLocal(t)
	syncB := NewSyncService(localB, remote, time.Second)

	product := &models.Product{Name: "Rice", Price: 10, Unit: "Kg"}
	require.NoError(t, productsA.CreateProduct(product))
	syncA.WaitForPushes()

	ctx := context.Background()
	syncB.pullOnce(ctx, database.CollectionProducts)

	var count int64
	localB.DB().Model(&models.Product{}).Count(&count)
	require.Equal(t, int64(1), count)

	require.NoError(t, productsA.DeleteProduct(product.ID))
	syncA.WaitForPushes()
	syncB.pullOnce(ctx, database.CollectionProducts)

	localB.DB().Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

// With no remote configured the app still works; writes just stay local.
func TestLocalOnlyMode(t *testing.T) {
	local := openTestLocal(t)
	syncService := NewSyncService(local, nil, time.Second)
	customers := NewCustomerService(local, syncService)

	assert.False(t, syncService.Enabled())
	syncService.Start()
	assert.False(t, syncService.Running())

	require.NoError(t, customers.CreateCustomer(&models.Customer{Name: "Alice", Contact: "111"}))

	all, err := customers.GetAllCustomers()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSyncStartStopSessionLifecycle(t *testing.T) {
	remote := openTestRemote(t)
	local := openTestLocal(t)
	syncService := NewSyncService(local, remote, 50*time.Millisecond)
	users := NewUserService(local, syncService)

	session, err := users.Login("admin", "secret123")
	require.NoError(t, err)
	assert.True(t, syncService.Running())

	second, err := users.Login("admin", "secret123")
	require.NoError(t, err)

	users.Logout(session.Token)
	assert.True(t, syncService.Running(), "listeners stay up while a session remains")

	users.Logout(second.Token)
	assert.False(t, syncService.Running())
}
