package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"acervo/internal/auth"
	"acervo/internal/drive"
)

// Lister is the slice of the drive client the synchronizer consumes.
type Lister interface {
	ListChildren(ctx context.Context, credential string, parentIDs []string) ([]drive.FileRecord, error)
}

// Synchronizer rebuilds the catalog from the remote store. Each cycle
// replaces the previous snapshot wholesale; consumers only ever see a
// complete catalog or the previous one.
type Synchronizer struct {
	lister    Lister
	auth      *auth.Manager
	roots     []RootCollection
	batchSize int
	workers   int
	logger    zerolog.Logger

	syncMu sync.Mutex // serializes whole sync cycles

	mu      sync.RWMutex // guards the published snapshot
	catalog Catalog
}

func NewSynchronizer(lister Lister, authMgr *auth.Manager, roots []RootCollection, batchSize, workers int, logger zerolog.Logger) *Synchronizer {
	if batchSize <= 0 {
		batchSize = 20
	}
	if workers <= 0 {
		workers = 4
	}
	return &Synchronizer{
		lister:    lister,
		auth:      authMgr,
		roots:     roots,
		batchSize: batchSize,
		workers:   workers,
		logger:    logger,
		catalog:   Catalog{Status: StatusIdle},
	}
}

// Catalog returns the current snapshot. The item slice is copied so callers
// can never observe a cycle in progress.
func (s *Synchronizer) Catalog() Catalog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.catalog
	snap.Items = append([]Item(nil), s.catalog.Items...)
	return snap
}

// Item looks an item up by id in the current snapshot.
func (s *Synchronizer) Item(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.catalog.Items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Sync runs one full cycle: list every configured root collection, expand
// discovered subfolders one level deep in bounded batches, then group and
// classify the merged records. Concurrent callers serialize; each runs a
// full cycle in arrival order.
//
// A 401 from the remote store invalidates the credential and clears the
// catalog. Any other failure keeps the previous items displayable and waits
// for an explicit retry.
func (s *Synchronizer) Sync(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	credential := s.auth.Credential()
	if credential == "" {
		s.setStatus(StatusError, "not signed in")
		return drive.ErrNoCredential
	}

	s.setStatus(StatusLoading, "")
	started := time.Now()

	records, err := s.fetchAllRecords(ctx, credential)
	if err != nil {
		if drive.IsAuthExpired(err) {
			s.logger.Warn().Msg("credential rejected mid-sync")
			s.auth.Invalidate()
			s.publish(Catalog{Status: StatusError, Err: "authentication expired"})
		} else {
			s.logger.Error().Err(err).Msg("sync failed")
			s.setStatus(StatusError, err.Error())
		}
		return err
	}

	rootIDs := make(map[string]bool, len(s.roots))
	for _, r := range s.roots {
		rootIDs[r.ID] = true
	}
	items := BuildItems(records, rootIDs, s.rootResolver(records))

	s.publish(Catalog{
		Items:    items,
		SyncedAt: time.Now(),
		Status:   StatusReady,
	})

	s.logger.Info().
		Int("records", len(records)).
		Int("items", len(items)).
		Dur("duration", time.Since(started)).
		Msg("catalog synced")

	return nil
}

// fetchAllRecords is the two-phase listing: root collections in parallel,
// then their subfolders in bounded batches through a small worker pool.
func (s *Synchronizer) fetchAllRecords(ctx context.Context, credential string) ([]drive.FileRecord, error) {
	var (
		mu       sync.Mutex
		records  []drive.FileRecord
		firstErr error
		wg       sync.WaitGroup
	)

	collect := func(batch []drive.FileRecord, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			// Auth expiry wins over transport errors so the credential
			// is always cleared when any request saw a 401.
			if firstErr == nil || drive.IsAuthExpired(err) && !drive.IsAuthExpired(firstErr) {
				firstErr = err
			}
			return
		}
		records = append(records, batch...)
	}

	for _, root := range s.roots {
		wg.Add(1)
		go func(root RootCollection) {
			defer wg.Done()
			batch, err := s.lister.ListChildren(ctx, credential, []string{root.ID})
			collect(batch, err)
		}(root)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	// Phase 2: expand discovered subfolders, one level deep.
	var folderIDs []string
	for _, r := range records {
		if r.IsFolder() {
			folderIDs = append(folderIDs, r.ID)
		}
	}
	if len(folderIDs) == 0 {
		return records, nil
	}

	batches := make(chan []string)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ids := range batches {
				batch, err := s.lister.ListChildren(ctx, credential, ids)
				collect(batch, err)
			}
		}()
	}
	for start := 0; start < len(folderIDs); start += s.batchSize {
		end := start + s.batchSize
		if end > len(folderIDs) {
			end = len(folderIDs)
		}
		batches <- folderIDs[start:end]
	}
	close(batches)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return records, nil
}

// rootResolver maps any record id to the root collection its ancestry
// belongs to, walking folder parents up to a configured root.
func (s *Synchronizer) rootResolver(records []drive.FileRecord) func(id string) CollectionKind {
	rootKind := make(map[string]CollectionKind, len(s.roots))
	for _, r := range s.roots {
		rootKind[r.ID] = r.Kind
	}
	parents := make(map[string]string)
	for _, r := range records {
		if r.IsFolder() {
			parents[r.ID] = r.PrimaryParent()
		}
	}

	return func(id string) CollectionKind {
		seen := make(map[string]bool)
		for id != "" && !seen[id] {
			if kind, ok := rootKind[id]; ok {
				return kind
			}
			seen[id] = true
			id = parents[id]
		}
		return ""
	}
}

func (s *Synchronizer) setStatus(status Status, errMsg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog.Status = status
	s.catalog.Err = errMsg
}

func (s *Synchronizer) publish(c Catalog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = c
}
