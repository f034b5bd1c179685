package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"PosLedger/app/database"
	"PosLedger/app/models"
)

// SyncService keeps the local store and the remote document store convergent.
// The two directions are independent:
//
//   - Local->Remote: repository methods call PushUpsert/PushDelete after
//     their local transaction commits. Pushes are fire-and-forget; a failure
//     is logged and the local write stands. The remote heals on the next
//     successful push of the same document.
//   - Remote->Local: Start launches one listener goroutine per collection
//     that polls the remote change feed and applies each batch through
//     LocalDB.ApplyRemoteChanges. That path writes rows directly and never
//     calls back into PushUpsert, so remote-origin changes cannot echo.
//
// A nil remote disables both directions; the app then runs local-only.
type SyncService struct {
	local    *database.LocalDB
	remote   database.Remote
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	// pushes in flight, so tests and shutdown can wait for them
	pushWG sync.WaitGroup
}

// NewSyncService creates a sync service. remote may be nil.
func NewSyncService(local *database.LocalDB, remote database.Remote, interval time.Duration) *SyncService {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &SyncService{
		local:    local,
		remote:   remote,
		interval: interval,
	}
}

// Enabled reports whether a remote store is configured
func (s *SyncService) Enabled() bool {
	return s.remote != nil
}

// PushUpsert mirrors the full object to the remote store under the
// stringified identifier. The body is marshaled before the goroutine starts
// so the caller can keep mutating its copy. Never blocks the caller on the
// network and never returns an error: remote divergence is logged only.
func (s *SyncService) PushUpsert(collection string, id models.ID, doc interface{}) {
	if s.remote == nil {
		return
	}
	body, err := json.Marshal(doc)
	if err != nil {
		log.Printf("Failed to marshal %s/%s for push: %v", collection, id, err)
		s.local.LogSync(collection, id.String(), "push", "upsert", "failed", err.Error())
		return
	}

	s.pushWG.Add(1)
	go func() {
		defer s.pushWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.remote.Put(ctx, collection, id.String(), body); err != nil {
			log.Printf("Failed to push %s/%s to remote: %v", collection, id, err)
			s.local.LogSync(collection, id.String(), "push", "upsert", "failed", err.Error())
			return
		}
		s.local.LogSync(collection, id.String(), "push", "upsert", "success", "")
	}()
}

// PushDelete removes the remote document for a locally deleted row
func (s *SyncService) PushDelete(collection string, id models.ID) {
	if s.remote == nil {
		return
	}

	s.pushWG.Add(1)
	go func() {
		defer s.pushWG.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := s.remote.Delete(ctx, collection, id.String()); err != nil {
			log.Printf("Failed to delete %s/%s from remote: %v", collection, id, err)
			s.local.LogSync(collection, id.String(), "push", "delete", "failed", err.Error())
			return
		}
		s.local.LogSync(collection, id.String(), "push", "delete", "success", "")
	}()
}

// WaitForPushes blocks until every in-flight push has finished
func (s *SyncService) WaitForPushes() {
	s.pushWG.Wait()
}

// Start opens the remote->local channel: one listener per synced collection.
// Called when an authenticated session becomes active. Idempotent.
func (s *SyncService) Start() {
	if s.remote == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	for _, collection := range database.SyncedCollections {
		s.wg.Add(1)
		go s.runListener(ctx, collection)
	}

	log.Printf("Sync listeners started for %d collections (interval %v)",
		len(database.SyncedCollections), s.interval)
}

// Stop tears down every listener and waits for them to exit. Called on
// logout and shutdown so subscriptions never leak across sessions.
func (s *SyncService) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("Sync listeners stopped")
}

// Running reports whether the remote->local channel is active
func (s *SyncService) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *SyncService) runListener(ctx context.Context, collection string) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// initial pull so a fresh login converges without waiting a full tick
	s.pullOnce(ctx, collection)

	for {
		select {
		case <-ticker.C:
			s.pullOnce(ctx, collection)
		case <-ctx.Done():
			return
		}
	}
}

// pullOnce drains the collection's change feed from the saved cursor. Each
// batch is applied in delivery order inside one local transaction; observers
// are notified only after the transaction commits.
func (s *SyncService) pullOnce(ctx context.Context, collection string) {
	const batchSize = 200

	for {
		lastSeq, err := s.local.LastSeq(collection)
		if err != nil {
			log.Printf("Failed to read sync cursor for %s: %v", collection, err)
			return
		}

		changes, err := s.remote.Changes(ctx, collection, lastSeq, batchSize)
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("Failed to fetch remote changes for %s: %v", collection, err)
			}
			return
		}
		if len(changes) == 0 {
			return
		}

		events, err := s.local.ApplyRemoteChanges(collection, changes)
		if err != nil {
			log.Printf("Failed to apply %d remote changes to %s: %v", len(changes), collection, err)
			s.local.LogSync(collection, "", "pull", "upsert", "failed", err.Error())
			return
		}
		s.local.Publish(events...)
		s.local.LogSync(collection, "", "pull", "upsert", "success", "")

		if len(changes) < batchSize {
			return
		}
	}
}
