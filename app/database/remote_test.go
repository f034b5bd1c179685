package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestRemote(t *testing.T) *RemoteDB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "remote.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	remote, err := NewRemoteDB(db)
	require.NoError(t, err)
	return remote
}

func TestRemotePutAppendsChanges(t *testing.T) {
	remote := openTestRemote(t)
	ctx := context.Background()

	require.NoError(t, remote.Put(ctx, CollectionCustomers, "1", []byte(`{"id":1,"name":"A"}`)))
	require.NoError(t, remote.Put(ctx, CollectionCustomers, "1", []byte(`{"id":1,"name":"B"}`)))

	changes, err := remote.Changes(ctx, CollectionCustomers, 0, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, ChangeAdded, changes[0].ChangeType)
	assert.Equal(t, ChangeModified, changes[1].ChangeType)
	assert.Less(t, changes[0].Seq, changes[1].Seq)

	// The document holds the latest body
	var doc RemoteDocument
	require.NoError(t, remote.db.Where("collection = ? AND doc_id = ?", CollectionCustomers, "1").
		First(&doc).Error)
	assert.Contains(t, doc.Body, `"B"`)
}

func TestRemoteDeleteTombstone(t *testing.T) {
	remote := openTestRemote(t)
	ctx := context.Background()

	require.NoError(t, remote.Put(ctx, CollectionProducts, "2", []byte(`{"id":2}`)))
	require.NoError(t, remote.Delete(ctx, CollectionProducts, "2"))

	changes, err := remote.Changes(ctx, CollectionProducts, 0, 10)
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, ChangeRemoved, changes[1].ChangeType)

	// Deleting a missing document produces no feed entry
	require.NoError(t, remote.Delete(ctx, CollectionProducts, "2"))
	changes, err = remote.Changes(ctx, CollectionProducts, 0, 10)
	require.NoError(t, err)
	assert.Len(t, changes, 2)
}

func TestRemoteChangesCursorAndLimit(t *testing.T) {
	remote := openTestRemote(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, remote.Put(ctx, CollectionSales, id, []byte(`{}`)))
	}
	// Another collection's changes stay out of this feed
	require.NoError(t, remote.Put(ctx, CollectionPayments, "9", []byte(`{}`)))

	first, err := remote.Changes(ctx, CollectionSales, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	rest, err := remote.Changes(ctx, CollectionSales, first[1].Seq, 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "3", rest[0].DocID)
}
