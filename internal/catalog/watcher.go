package catalog

import (
	"context"
	"log"
	"time"
)

// ListingStore persists the last-known file listing between checks
type ListingStore interface {
	KnownFiles() ([]string, error)
	ReplaceFiles(names []string) error
}

// Watcher periodically re-lists the data directory and reports newly
// appeared files. New data is handled as a full rebuild by the owner, not
// as an incremental merge.
type Watcher struct {
	catalog  *Catalog
	store    ListingStore
	interval time.Duration
	onNew    func(added []string)
}

// NewWatcher creates a watcher; onNew runs on the watcher goroutine
func NewWatcher(c *Catalog, store ListingStore, interval time.Duration, onNew func(added []string)) *Watcher {
	return &Watcher{
		catalog:  c,
		store:    store,
		interval: interval,
		onNew:    onNew,
	}
}

// Run polls until the context is cancelled
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

// check performs one listing diff
func (w *Watcher) check(ctx context.Context) {
	entries, err := w.catalog.ListBoundaries(ctx)
	if err != nil {
		// Transient listing failures wait for the next scheduled check
		log.Printf("New-file check failed: %v", err)
		return
	}

	known, err := w.store.KnownFiles()
	if err != nil {
		log.Printf("Failed to read known file listing: %v", err)
		return
	}
	knownSet := make(map[string]bool, len(known))
	for _, name := range known {
		knownSet[name] = true
	}

	var added []string
	for _, e := range entries {
		if !knownSet[e.Name] {
			added = append(added, e.Name)
		}
	}
	if len(added) == 0 {
		return
	}

	log.Printf("Detected %d new boundary files", len(added))
	// The stored baseline advances only once the owner's rebuild succeeds;
	// a failed rebuild leaves it untouched so the same files are reported
	// again on the next check
	w.onNew(added)
}
