package database

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"PosLedger/app/models"

	"github.com/glebarez/sqlite"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Collection names, one per mirrored local table. Users stay local-only:
// credentials have no business in the shared cloud store.
const (
	CollectionCustomers   = "customers"
	CollectionProducts    = "products"
	CollectionSales       = "sales"
	CollectionSettings    = "settings"
	CollectionVendors     = "vendors"
	CollectionVendorBills = "vendorBills"
	CollectionPayments    = "payments"
)

// SyncedCollections lists every collection mirrored to the remote store, in
// the order their listeners start.
var SyncedCollections = []string{
	CollectionCustomers,
	CollectionProducts,
	CollectionSales,
	CollectionSettings,
	CollectionVendors,
	CollectionVendorBills,
	CollectionPayments,
}

// Event describes one committed local mutation, delivered to observers after
// the transaction that produced it.
type Event struct {
	Table  string    `json:"table"`
	Action string    `json:"action"` // "created", "updated", "deleted"
	ID     models.ID `json:"id"`
}

// Observer receives change events for a subscribed table
type Observer func(Event)

// SyncState tracks the last applied remote change sequence per collection
type SyncState struct {
	Collection string    `gorm:"primaryKey"`
	LastSeq    int64     `json:"last_seq"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SyncLog records individual push/pull outcomes for troubleshooting
type SyncLog struct {
	ID         uint      `gorm:"primaryKey"`
	Collection string    `json:"collection"`
	DocID      string    `json:"doc_id"`
	Direction  string    `json:"direction"` // "push", "pull"
	Action     string    `json:"action"`    // "upsert", "delete"
	Status     string    `json:"status"`    // "success", "failed"
	Error      string    `json:"error"`
	SyncedAt   time.Time `json:"synced_at"`
}

// LocalDB is the authoritative store for this device: a SQLite database plus
// an observer bus fired after committed transactions. One instance is
// constructed at startup and passed to everything that needs it.
type LocalDB struct {
	db     *gorm.DB
	dbPath string

	mu        sync.RWMutex
	observers map[string]map[int]Observer
	nextObsID int
}

// OpenLocal opens (creating if needed) the local SQLite database, runs
// migrations and seeds the default settings row and admin user.
func OpenLocal(dbPath, adminUser, adminPassword string) (*LocalDB, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to local database: %w", err)
	}

	local := &LocalDB{
		db:        db,
		dbPath:    dbPath,
		observers: make(map[string]map[int]Observer),
	}

	if err := local.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run local migrations: %w", err)
	}
	if err := local.seed(adminUser, adminPassword); err != nil {
		log.Printf("Warning: failed to seed local database: %v", err)
	}

	return local, nil
}

func (l *LocalDB) runMigrations() error {
	return l.db.AutoMigrate(
		&models.Customer{},
		&models.Product{},
		&models.Sale{},
		&models.Settings{},
		&models.User{},
		&models.Vendor{},
		&models.VendorBill{},
		&models.Payment{},

		&SyncState{},
		&SyncLog{},
	)
}

// seed creates the singleton settings row and the default login on first run
func (l *LocalDB) seed(adminUser, adminPassword string) error {
	var settingsCount int64
	l.db.Model(&models.Settings{}).Count(&settingsCount)
	if settingsCount == 0 {
		settings := models.Settings{
			ID:           1,
			CompanyName:  "My Business",
			InvoiceStart: 10000,
		}
		if err := l.db.Create(&settings).Error; err != nil {
			return err
		}
	}

	var userCount int64
	l.db.Model(&models.User{}).Count(&userCount)
	if userCount == 0 {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user := models.User{Username: adminUser, Password: string(hash)}
		if err := l.db.Create(&user).Error; err != nil {
			return err
		}
	}

	return nil
}

// DB returns the underlying connection
func (l *LocalDB) DB() *gorm.DB {
	return l.db
}

// Transaction executes fn within a database transaction
func (l *LocalDB) Transaction(fn func(tx *gorm.DB) error) error {
	return l.db.Transaction(fn)
}

// Subscribe registers an observer for a table. The returned function removes
// it; callers must unsubscribe when their view goes away so listeners do not
// leak across sessions.
func (l *LocalDB) Subscribe(table string, fn Observer) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.observers[table] == nil {
		l.observers[table] = make(map[int]Observer)
	}
	id := l.nextObsID
	l.nextObsID++
	l.observers[table][id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.observers[table], id)
	}
}

// Publish delivers an event to the table's observers. Call it after the
// transaction that made the change has committed, never inside it.
func (l *LocalDB) Publish(events ...Event) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, event := range events {
		for _, fn := range l.observers[event.Table] {
			fn(event)
		}
	}
}

// Typed snapshot readers. The ledger engine works on full in-memory
// snapshots; these are the one way services take them.

// AllCustomers returns every customer
func (l *LocalDB) AllCustomers() ([]models.Customer, error) {
	var rows []models.Customer
	err := l.db.Find(&rows).Error
	return rows, err
}

// AllProducts returns every product
func (l *LocalDB) AllProducts() ([]models.Product, error) {
	var rows []models.Product
	err := l.db.Find(&rows).Error
	return rows, err
}

// AllSales returns every sale
func (l *LocalDB) AllSales() ([]models.Sale, error) {
	var rows []models.Sale
	err := l.db.Find(&rows).Error
	return rows, err
}

// AllPayments returns every payment
func (l *LocalDB) AllPayments() ([]models.Payment, error) {
	var rows []models.Payment
	err := l.db.Find(&rows).Error
	return rows, err
}

// AllVendors returns every vendor
func (l *LocalDB) AllVendors() ([]models.Vendor, error) {
	var rows []models.Vendor
	err := l.db.Find(&rows).Error
	return rows, err
}

// AllVendorBills returns every vendor bill
func (l *LocalDB) AllVendorBills() ([]models.VendorBill, error) {
	var rows []models.VendorBill
	err := l.db.Find(&rows).Error
	return rows, err
}

// LogSync records a sync outcome. Best-effort; a failed log write is not an
// error anyone can act on.
func (l *LocalDB) LogSync(collection, docID, direction, action, status, errMsg string) {
	entry := SyncLog{
		Collection: collection,
		DocID:      docID,
		Direction:  direction,
		Action:     action,
		Status:     status,
		Error:      errMsg,
		SyncedAt:   time.Now(),
	}
	l.db.Create(&entry)
}

// SyncLogs returns the most recent sync log entries
func (l *LocalDB) SyncLogs(limit int) ([]SyncLog, error) {
	var logs []SyncLog
	err := l.db.Order("synced_at DESC").Limit(limit).Find(&logs).Error
	return logs, err
}

// LastSeq returns the change-feed cursor for a collection
func (l *LocalDB) LastSeq(collection string) (int64, error) {
	var state SyncState
	err := l.db.Where("collection = ?", collection).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return state.LastSeq, nil
}

// ApplyRemoteChanges applies one remote change batch to the local store
// inside a single transaction and advances the collection's cursor. This is
// the remote-origin write path: it never pushes back to the remote store, so
// a change arriving from the cloud cannot echo out again. Returns the events
// to publish once the transaction has committed.
func (l *LocalDB) ApplyRemoteChanges(collection string, changes []RemoteChange) ([]Event, error) {
	if len(changes) == 0 {
		return nil, nil
	}

	var events []Event
	err := l.db.Transaction(func(tx *gorm.DB) error {
		lastSeq := int64(0)
		for _, change := range changes {
			id, ok := models.ParseID(change.DocID)
			if !ok {
				// Integer-keyed tables cannot address a non-numeric document
				// key; skip it rather than fail the batch.
				log.Printf("Skipping remote change with non-numeric key %s/%s", collection, change.DocID)
				lastSeq = change.Seq
				continue
			}

			switch change.ChangeType {
			case ChangeAdded, ChangeModified:
				if err := upsertDocument(tx, collection, id, []byte(change.Body)); err != nil {
					return err
				}
				action := "updated"
				if change.ChangeType == ChangeAdded {
					action = "created"
				}
				events = append(events, Event{Table: collection, Action: action, ID: id})
			case ChangeRemoved:
				if err := deleteRow(tx, collection, id); err != nil {
					return err
				}
				events = append(events, Event{Table: collection, Action: "deleted", ID: id})
			default:
				return fmt.Errorf("unknown remote change type %q", change.ChangeType)
			}
			lastSeq = change.Seq
		}

		state := SyncState{Collection: collection, LastSeq: lastSeq, UpdatedAt: time.Now()}
		return tx.Save(&state).Error
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// upsertDocument decodes a remote document body into the collection's model
// and saves it under the document's identifier.
func upsertDocument(tx *gorm.DB, collection string, id models.ID, body []byte) error {
	switch collection {
	case CollectionCustomers:
		var row models.Customer
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	case CollectionProducts:
		var row models.Product
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	case CollectionSales:
		var row models.Sale
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	case CollectionSettings:
		var row models.Settings
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	case CollectionVendors:
		var row models.Vendor
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	case CollectionVendorBills:
		var row models.VendorBill
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	case CollectionPayments:
		var row models.Payment
		if err := json.Unmarshal(body, &row); err != nil {
			return err
		}
		row.ID = id
		return tx.Save(&row).Error
	}
	return fmt.Errorf("unknown collection %q", collection)
}

func deleteRow(tx *gorm.DB, collection string, id models.ID) error {
	switch collection {
	case CollectionCustomers:
		return tx.Delete(&models.Customer{}, id).Error
	case CollectionProducts:
		return tx.Delete(&models.Product{}, id).Error
	case CollectionSales:
		return tx.Delete(&models.Sale{}, id).Error
	case CollectionSettings:
		return tx.Delete(&models.Settings{}, id).Error
	case CollectionVendors:
		return tx.Delete(&models.Vendor{}, id).Error
	case CollectionVendorBills:
		return tx.Delete(&models.VendorBill{}, id).Error
	case CollectionPayments:
		return tx.Delete(&models.Payment{}, id).Error
	}
	return fmt.Errorf("unknown collection %q", collection)
}

// Close closes the local database connection
func (l *LocalDB) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
