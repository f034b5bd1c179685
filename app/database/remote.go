package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Change types reported by the remote change feed
const (
	ChangeAdded    = "added"
	ChangeModified = "modified"
	ChangeRemoved  = "removed"
)

// RemoteDocument is one mirrored entity: the full JSON object keyed by
// collection and the stringified local identifier. Writes always replace the
// whole body; the remote store never holds a partial document.
type RemoteDocument struct {
	Collection string    `gorm:"primaryKey;size:64" json:"collection"`
	DocID      string    `gorm:"primaryKey;size:64" json:"doc_id"`
	Body       string    `gorm:"type:text" json:"body"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RemoteChange is one entry of the append-only change feed. Seq is assigned
// by the database, so readers see each collection's changes in a single
// well-defined delivery order.
type RemoteChange struct {
	Seq        int64     `gorm:"primaryKey;autoIncrement" json:"seq"`
	Collection string    `gorm:"index:idx_remote_changes_feed,priority:1;size:64" json:"collection"`
	DocID      string    `gorm:"size:64" json:"doc_id"`
	ChangeType string    `gorm:"size:16" json:"change_type"`
	Body       string    `gorm:"type:text" json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Remote is the cloud document store the local database mirrors to.
type Remote interface {
	// Put overwrites the document at collection/docID with the full body.
	Put(ctx context.Context, collection, docID string, body []byte) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, docID string) error
	// Changes returns up to limit feed entries for the collection with
	// Seq > afterSeq, in ascending Seq order.
	Changes(ctx context.Context, collection string, afterSeq int64, limit int) ([]RemoteChange, error)
	Close() error
}

// RemoteDB implements Remote on a shared Postgres database.
type RemoteDB struct {
	db *gorm.DB
}

// OpenRemote connects to the remote Postgres store and ensures its schema.
func OpenRemote(dsn string) (*RemoteDB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to remote database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get remote database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	remote := &RemoteDB{db: db}
	if err := remote.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run remote migrations: %w", err)
	}

	log.Println("Connected to remote mirror store")
	return remote, nil
}

// NewRemoteDB wraps an existing gorm connection. Used by tests to run the
// remote store on SQLite.
func NewRemoteDB(db *gorm.DB) (*RemoteDB, error) {
	remote := &RemoteDB{db: db}
	if err := remote.runMigrations(); err != nil {
		return nil, err
	}
	return remote, nil
}

func (r *RemoteDB) runMigrations() error {
	return r.db.AutoMigrate(&RemoteDocument{}, &RemoteChange{})
}

// Put overwrites the full document and appends a feed entry, in one
// transaction so no reader can see a document without its change.
func (r *RemoteDB) Put(ctx context.Context, collection, docID string, body []byte) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&RemoteDocument{}).
			Where("collection = ? AND doc_id = ?", collection, docID).
			Count(&existing).Error; err != nil {
			return err
		}

		doc := RemoteDocument{
			Collection: collection,
			DocID:      docID,
			Body:       string(body),
			UpdatedAt:  time.Now(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "collection"}, {Name: "doc_id"}},
			UpdateAll: true,
		}).Create(&doc).Error; err != nil {
			return err
		}

		changeType := ChangeAdded
		if existing > 0 {
			changeType = ChangeModified
		}
		change := RemoteChange{
			Collection: collection,
			DocID:      docID,
			ChangeType: changeType,
			Body:       string(body),
		}
		return tx.Create(&change).Error
	})
}

// Delete removes the document and appends a removal to the feed. A missing
// document produces no feed entry.
func (r *RemoteDB) Delete(ctx context.Context, collection, docID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("collection = ? AND doc_id = ?", collection, docID).
			Delete(&RemoteDocument{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		change := RemoteChange{
			Collection: collection,
			DocID:      docID,
			ChangeType: ChangeRemoved,
		}
		return tx.Create(&change).Error
	})
}

// Changes returns the collection's feed entries after the cursor
func (r *RemoteDB) Changes(ctx context.Context, collection string, afterSeq int64, limit int) ([]RemoteChange, error) {
	var changes []RemoteChange
	err := r.db.WithContext(ctx).
		Where("collection = ? AND seq > ?", collection, afterSeq).
		Order("seq ASC").
		Limit(limit).
		Find(&changes).Error
	return changes, err
}

// Close closes the remote connection
func (r *RemoteDB) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
