// Package registry owns the ordered batch of items and their lifecycle state.
package registry

import (
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

// Registry holds exactly one batch at a time. Items leave the registry only
// as value copies; the only mutation paths are Ingest, UpdateItem and the
// preview handle setters. Content slices are shared with callers and must be
// treated as read-only.
type Registry struct {
	mu        sync.RWMutex
	batchID   string
	createdAt time.Time
	order     []string
	items     map[string]domain.BatchItem

	now func() time.Time
}

func New() *Registry {
	return &Registry{
		items: make(map[string]domain.BatchItem),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Ingest replaces the current batch. It returns the new batch and the preview
// handles of the replaced batch, which the caller is expected to release.
func (r *Registry) Ingest(files []domain.RawFile) (domain.Batch, []domain.PreviewHandle) {
	batchID := uuid.NewString()
	now := r.now()

	order := make([]string, 0, len(files))
	items := make(map[string]domain.BatchItem, len(files))
	for idx, f := range files {
		id := fmt.Sprintf("%s-%d", batchID[:8], idx)
		content := make([]byte, len(f.Content))
		copy(content, f.Content)
		items[id] = domain.BatchItem{
			ID:           id,
			OriginalName: f.Name,
			MimeType:     f.MimeType,
			Size:         len(content),
			Status:       domain.StatusPending,
			Content:      content,
			UpdatedAt:    now,
		}
		order = append(order, id)
	}

	r.mu.Lock()
	var released []domain.PreviewHandle
	for _, id := range r.order {
		if h := r.items[id].PreviewHandle; !h.IsZero() {
			released = append(released, h)
		}
	}
	r.batchID = batchID
	r.createdAt = now
	r.order = order
	r.items = items
	batch := r.snapshotLocked()
	r.mu.Unlock()

	return batch, released
}

func (r *Registry) BatchID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.batchID
}

func (r *Registry) Snapshot() domain.Batch {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Registry) snapshotLocked() domain.Batch {
	items := make([]domain.BatchItem, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.items[id])
	}
	return domain.Batch{ID: r.batchID, CreatedAt: r.createdAt, Items: items}
}

// Items returns every item of the current batch in batch order.
func (r *Registry) Items() []domain.BatchItem {
	return r.Snapshot().Items
}

func (r *Registry) Get(id string) (domain.BatchItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return domain.BatchItem{}, fmt.Errorf("%w: %s", domain.ErrUnknownID, id)
	}
	return item, nil
}

// UpdateItem moves one item along the lifecycle, replacing it wholesale.
// detail becomes the final name for ready and the failure reason for error.
func (r *Registry) UpdateItem(id string, status domain.ItemStatus, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownID, id)
	}
	if err := domain.CheckTransition(item.Status, status); err != nil {
		return fmt.Errorf("item %s: %w", id, err)
	}

	next := item
	next.Status = status
	next.FinalName = ""
	next.Error = ""
	switch status {
	case domain.StatusReady:
		next.FinalName = detail
	case domain.StatusError:
		next.Error = detail
	}
	next.UpdatedAt = r.now()
	r.items[id] = next
	return nil
}

func (r *Registry) SetPreview(id string, handle domain.PreviewHandle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownID, id)
	}
	item.PreviewHandle = handle
	r.items[id] = item
	return nil
}

// ClearPreview drops the item's handle and returns the one that was set.
func (r *Registry) ClearPreview(id string) (domain.PreviewHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return domain.PreviewHandle{}, fmt.Errorf("%w: %s", domain.ErrUnknownID, id)
	}
	old := item.PreviewHandle
	item.PreviewHandle = domain.PreviewHandle{}
	r.items[id] = item
	return old, nil
}

// PendingItems lazily yields pending items in batch order.
func (r *Registry) PendingItems() iter.Seq[domain.BatchItem] {
	return r.withStatus(domain.StatusPending)
}

// ReadyItems lazily yields ready items in batch order.
func (r *Registry) ReadyItems() iter.Seq[domain.BatchItem] {
	return r.withStatus(domain.StatusReady)
}

// withStatus reads one position at a time so consumers may call UpdateItem
// between steps. The walk ends early when the batch is replaced.
func (r *Registry) withStatus(status domain.ItemStatus) iter.Seq[domain.BatchItem] {
	return func(yield func(domain.BatchItem) bool) {
		batchID := r.BatchID()
		for idx := 0; ; idx++ {
			item, ok := r.at(batchID, idx)
			if !ok {
				return
			}
			if item.Status != status {
				continue
			}
			if !yield(item) {
				return
			}
		}
	}
}

func (r *Registry) at(batchID string, idx int) (domain.BatchItem, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.batchID != batchID || idx >= len(r.order) {
		return domain.BatchItem{}, false
	}
	return r.items[r.order[idx]], true
}

// Summary counts items per status.
func (r *Registry) Summary() domain.BatchSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	summary := domain.BatchSummary{BatchID: r.batchID, Total: len(r.order)}
	for _, id := range r.order {
		switch r.items[id].Status {
		case domain.StatusPending:
			summary.Pending++
		case domain.StatusAnalyzing:
			summary.Analyzing++
		case domain.StatusReady:
			summary.Ready++
		case domain.StatusError:
			summary.Failed++
		}
	}
	return summary
}
