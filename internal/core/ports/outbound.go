package ports

import (
	"context"
	"io"
	"iter"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

// NameService asks the remote naming endpoint for a raw description of one image.
type NameService interface {
	RequestName(ctx context.Context, req domain.NameRequest) (string, error)
}

// ItemRegistry is the narrow view of the batch the orchestrator mutates.
type ItemRegistry interface {
	BatchID() string
	PendingItems() iter.Seq[domain.BatchItem]
	ReadyItems() iter.Seq[domain.BatchItem]
	// UpdateItem replaces one item's status. detail is the final name for ready
	// and the failure reason for error; it is ignored for other statuses.
	UpdateItem(id string, status domain.ItemStatus, detail string) error
}

// BatchRegistry is the full registry contract used by the batch service.
type BatchRegistry interface {
	ItemRegistry
	Ingest(files []domain.RawFile) (domain.Batch, []domain.PreviewHandle)
	Get(id string) (domain.BatchItem, error)
	Items() []domain.BatchItem
	Summary() domain.BatchSummary
	SetPreview(id string, handle domain.PreviewHandle) error
	ClearPreview(id string) (domain.PreviewHandle, error)
}

// ImageCaptioner turns an image plus a prompt into raw model text.
type ImageCaptioner interface {
	Caption(ctx context.Context, req domain.CaptionRequest) (string, error)
}

// NameRecordStore persists generated name pairs.
type NameRecordStore interface {
	SaveNameRecord(ctx context.Context, record *domain.NameRecord) error
	ListNameRecords(ctx context.Context, limit int) ([]domain.NameRecord, error)
}

// ObjectStorage stores preview renditions.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// ContentSource fetches the bytes that go into an archive entry.
type ContentSource interface {
	Fetch(ctx context.Context, item domain.BatchItem) ([]byte, error)
}

// EventPublisher announces batch lifecycle events.
type EventPublisher interface {
	PublishBatchEvent(ctx context.Context, event domain.BatchEvent) error
}

// RunRecorder observes orchestrator outcomes.
type RunRecorder interface {
	ObserveItem(status domain.ItemStatus, duration time.Duration)
	ObserveRun(report domain.RunReport)
}
