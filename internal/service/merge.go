package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

const defaultFlushSize = 25

// MergeResult reports what a single merge did.
type MergeResult struct {
	Created bool
	Updated bool
}

// MergeEngine applies the status-priority upsert rules and batches writes.
// One engine is created per sync job; Flush must be called before the job
// finishes. Writes for the same message are serialized by a per-key mutex
// so concurrent duplicates cannot interleave a read-modify-write.
type MergeEngine struct {
	apps      ApplicationStore
	flushSize int

	mu      sync.Mutex
	keyMus  map[string]*sync.Mutex
	pending map[string]*models.Application
	order   []string

	failed int
}

func NewMergeEngine(apps ApplicationStore) *MergeEngine {
	return &MergeEngine{
		apps:      apps,
		flushSize: defaultFlushSize,
		keyMus:    make(map[string]*sync.Mutex),
		pending:   make(map[string]*models.Application),
	}
}

func (m *MergeEngine) keyMu(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	mu, ok := m.keyMus[key]
	if !ok {
		mu = &sync.Mutex{}
		m.keyMus[key] = mu
	}
	return mu
}

// Merge upserts one classified message. A new message creates a row; a
// re-seen message only moves the stored status forward, never backward,
// with one exception: any fresh signal clears a ghosted status because
// the company is demonstrably still responding.
func (m *MergeEngine) Merge(ctx context.Context, incoming *models.Application) (MergeResult, error) {
	if incoming.GmailMessageID == "" {
		return MergeResult{}, fmt.Errorf("merge: missing gmail message id")
	}

	mu := m.keyMu(incoming.GmailMessageID)
	mu.Lock()
	defer mu.Unlock()

	existing, err := m.lookup(ctx, incoming.GmailMessageID)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge: lookup %s: %w", incoming.GmailMessageID, err)
	}

	if existing == nil {
		if incoming.LastUpdatedAt.IsZero() {
			incoming.LastUpdatedAt = incoming.ReceivedAt
		}
		if err := m.enqueue(ctx, incoming); err != nil {
			return MergeResult{}, err
		}
		return MergeResult{Created: true}, nil
	}

	changed := apply(existing, incoming)
	if !changed {
		return MergeResult{}, nil
	}
	if err := m.enqueue(ctx, existing); err != nil {
		return MergeResult{}, err
	}
	return MergeResult{Updated: true}, nil
}

// apply folds incoming into existing in place and reports whether
// anything changed.
func apply(existing, incoming *models.Application) bool {
	changed := false

	switch {
	case existing.Status == models.StatusGhosted:
		// Un-ghost on any signal, even a same-rank one.
		existing.Status = incoming.Status
		changed = true
	case models.MergeRank[incoming.Status] > models.MergeRank[existing.Status]:
		existing.Status = incoming.Status
		changed = true
	}

	if incoming.ReceivedAt.After(existing.LastUpdatedAt) {
		existing.LastUpdatedAt = incoming.ReceivedAt
		changed = true
	}

	// A confident company name replaces an earlier Unknown.
	if existing.Company == models.CompanyUnknown && incoming.Company != models.CompanyUnknown {
		existing.Company = incoming.Company
		existing.CompanyConfidence = incoming.CompanyConfidence
		existing.CompanySource = incoming.CompanySource
		changed = true
	}
	if existing.Role == "" && incoming.Role != "" {
		existing.Role = incoming.Role
		changed = true
	}

	return changed
}

// lookup consults the unflushed batch before the store so that duplicates
// within one batch still merge instead of clobbering each other.
func (m *MergeEngine) lookup(ctx context.Context, gmailMessageID string) (*models.Application, error) {
	m.mu.Lock()
	buffered, ok := m.pending[gmailMessageID]
	m.mu.Unlock()
	if ok {
		return buffered, nil
	}
	return m.apps.GetByMessageID(ctx, gmailMessageID)
}

func (m *MergeEngine) enqueue(ctx context.Context, app *models.Application) error {
	m.mu.Lock()
	if _, ok := m.pending[app.GmailMessageID]; !ok {
		m.order = append(m.order, app.GmailMessageID)
	}
	m.pending[app.GmailMessageID] = app
	full := len(m.pending) >= m.flushSize
	m.mu.Unlock()

	if full {
		return m.Flush(ctx)
	}
	return nil
}

// Flush writes the buffered batch. On a batch failure it degrades to
// per-row writes so one poison row costs one message, not the batch.
func (m *MergeEngine) Flush(ctx context.Context) error {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return nil
	}
	batch := make([]models.Application, 0, len(m.order))
	for _, key := range m.order {
		batch = append(batch, *m.pending[key])
	}
	m.pending = make(map[string]*models.Application)
	m.order = nil
	m.mu.Unlock()

	if err := m.apps.BulkUpsert(ctx, batch); err == nil {
		return nil
	} else {
		log.Printf("batch upsert of %d applications failed, retrying per row: %v", len(batch), err)
	}

	for i := range batch {
		if err := m.apps.Upsert(ctx, &batch[i]); err != nil {
			m.mu.Lock()
			m.failed++
			m.mu.Unlock()
			log.Printf("failed to upsert application for message %s: %v", batch[i].GmailMessageID, err)
		}
	}
	return nil
}

// FailedWrites returns how many rows were dropped after the per-row
// fallback also failed.
func (m *MergeEngine) FailedWrites() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failed
}
