package ports

import (
	"context"
	"io"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

// BatchIngestor is the inbound contract for replacing the current batch.
type BatchIngestor interface {
	Ingest(ctx context.Context, files []domain.RawFile) (*domain.Batch, error)
}

// BatchReader is the inbound read model for batch progress.
type BatchReader interface {
	Items() []domain.BatchItem
	Summary() domain.BatchSummary
}

// BatchProcessor drives pending items through the naming service.
type BatchProcessor interface {
	ProcessAll(ctx context.Context, style string) (domain.RunReport, error)
	Start(ctx context.Context, style string) (<-chan domain.RunReport, error)
	Running() bool
}

// ArchiveExporter packages the ready items of the current batch.
type ArchiveExporter interface {
	ExportArchive(ctx context.Context) (*domain.Archive, error)
	ItemContent(ctx context.Context, id string) (name string, content []byte, err error)
}

// PreviewProvider serves and releases stored renditions of item content.
type PreviewProvider interface {
	Preview(ctx context.Context, id string) (io.ReadCloser, string, error)
	ReleasePreview(ctx context.Context, id string) error
}

// ImageRenamer is the inbound contract of the naming endpoint.
type ImageRenamer interface {
	Rename(ctx context.Context, originalName, mimeType string, content []byte, style string) (*domain.RenameResult, error)
}

// NameHistoryReader lists recorded name pairs.
type NameHistoryReader interface {
	History(ctx context.Context, limit int) ([]domain.NameRecord, error)
}
