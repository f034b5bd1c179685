package database

import (
	"path/filepath"
	"testing"

	"PosLedger/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLocal(t *testing.T) *LocalDB {
	t.Helper()
	local, err := OpenLocal(filepath.Join(t.TempDir(), "local.db"), "admin", "secret123")
	require.NoError(t, err)
	t.Cleanup(func() { local.Close() })
	return local
}

func TestOpenLocalSeedsDefaults(t *testing.T) {
	local := openTestLocal(t)

	var settings models.Settings
	require.NoError(t, local.DB().First(&settings).Error)
	assert.Equal(t, "My Business", settings.CompanyName)
	assert.Equal(t, int64(10000), settings.InvoiceStart)

	var user models.User
	require.NoError(t, local.DB().First(&user).Error)
	assert.Equal(t, "admin", user.Username)
	assert.NotEqual(t, "secret123", user.Password)
}

func TestSubscribePublish(t *testing.T) {
	local := openTestLocal(t)

	var got []Event
	unsub := local.Subscribe(CollectionCustomers, func(e Event) {
		got = append(got, e)
	})

	local.Publish(Event{Table: CollectionCustomers, Action: "created", ID: 1})
	local.Publish(Event{Table: CollectionProducts, Action: "created", ID: 2})
	require.Len(t, got, 1)
	assert.Equal(t, models.ID(1), got[0].ID)

	unsub()
	local.Publish(Event{Table: CollectionCustomers, Action: "deleted", ID: 1})
	assert.Len(t, got, 1)
}

func TestApplyRemoteChanges(t *testing.T) {
	local := openTestLocal(t)

	changes := []RemoteChange{
		{Seq: 1, Collection: CollectionCustomers, DocID: "5", ChangeType: ChangeAdded,
			Body: `{"id":5,"name":"Alice","contact":"111"}`},
		{Seq: 2, Collection: CollectionCustomers, DocID: "5", ChangeType: ChangeModified,
			Body: `{"id":5,"name":"Alice B","contact":"222"}`},
	}
	events, err := local.ApplyRemoteChanges(CollectionCustomers, changes)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "created", events[0].Action)
	assert.Equal(t, "updated", events[1].Action)

	var customer models.Customer
	require.NoError(t, local.DB().First(&customer, 5).Error)
	assert.Equal(t, "Alice B", customer.Name)
	assert.Equal(t, "222", customer.Contact)

	seq, err := local.LastSeq(CollectionCustomers)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestApplyRemoteChangesDelete(t *testing.T) {
	local := openTestLocal(t)

	_, err := local.ApplyRemoteChanges(CollectionProducts, []RemoteChange{
		{Seq: 1, Collection: CollectionProducts, DocID: "3", ChangeType: ChangeAdded,
			Body: `{"id":3,"name":"Rice","price":10}`},
	})
	require.NoError(t, err)

	events, err := local.ApplyRemoteChanges(CollectionProducts, []RemoteChange{
		{Seq: 2, Collection: CollectionProducts, DocID: "3", ChangeType: ChangeRemoved},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "deleted", events[0].Action)

	var count int64
	local.DB().Model(&models.Product{}).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestApplyRemoteChangesIdempotent(t *testing.T) {
	local := openTestLocal(t)

	batch := []RemoteChange{
		{Seq: 1, Collection: CollectionCustomers, DocID: "7", ChangeType: ChangeAdded,
			Body: `{"id":7,"name":"Carol","contact":"333"}`},
	}
	_, err := local.ApplyRemoteChanges(CollectionCustomers, batch)
	require.NoError(t, err)
	_, err = local.ApplyRemoteChanges(CollectionCustomers, batch)
	require.NoError(t, err)

	var count int64
	local.DB().Model(&models.Customer{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestApplyRemoteChangesSkipsNonNumericKeys(t *testing.T) {
	local := openTestLocal(t)

	events, err := local.ApplyRemoteChanges(CollectionCustomers, []RemoteChange{
		{Seq: 1, Collection: CollectionCustomers, DocID: "legacy-doc", ChangeType: ChangeAdded,
			Body: `{"name":"Ghost"}`},
		{Seq: 2, Collection: CollectionCustomers, DocID: "8", ChangeType: ChangeAdded,
			Body: `{"id":8,"name":"Dave","contact":"444"}`},
	})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ID(8), events[0].ID)

	// The cursor still advances past the skipped entry
	seq, err := local.LastSeq(CollectionCustomers)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestApplyRemoteChangesCoercesStringIDs(t *testing.T) {
	local := openTestLocal(t)

	_, err := local.ApplyRemoteChanges(CollectionPayments, []RemoteChange{
		{Seq: 1, Collection: CollectionPayments, DocID: "9", ChangeType: ChangeAdded,
			Body: `{"id":"9","customerId":"4","date":"2025-03-14","amount":"25.5"}`},
	})
	require.NoError(t, err)

	var payment models.Payment
	require.NoError(t, local.DB().First(&payment, 9).Error)
	assert.Equal(t, models.ID(4), payment.CustomerID)
	assert.Equal(t, models.Number(25.5), payment.Amount)
}
