package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
)

// BatchService is the host-facing side of the engine: it replaces the batch,
// serves previews and single items, and exports the archive.
type BatchService struct {
	registry      ports.BatchRegistry
	storage       ports.ObjectStorage
	source        ports.ContentSource
	archiver      *ArchiveBuilder
	requireImages bool
}

func NewBatchService(
	registry ports.BatchRegistry,
	storage ports.ObjectStorage,
	source ports.ContentSource,
	archiver *ArchiveBuilder,
	requireImages bool,
) *BatchService {
	return &BatchService{
		registry:      registry,
		storage:       storage,
		source:        source,
		archiver:      archiver,
		requireImages: requireImages,
	}
}

// Ingest validates the raw files and replaces the current batch with them.
// On a validation error the current batch is left untouched.
func (s *BatchService) Ingest(ctx context.Context, files []domain.RawFile) (*domain.Batch, error) {
	prepared := make([]domain.RawFile, 0, len(files))
	for idx, f := range files {
		name := strings.TrimSpace(filepath.Base(f.Name))
		if name == "" || name == "." || name == string(filepath.Separator) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", fmt.Errorf("file #%d has no name", idx))
		}
		mt := resolveMIME(f.MimeType, f.Content)
		if s.requireImages && !isImageMIME(mt) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "ingest", fmt.Errorf("%s is %s, not an image", name, mt))
		}
		prepared = append(prepared, domain.RawFile{Name: name, MimeType: mt, Content: f.Content})
	}

	batch, released := s.registry.Ingest(prepared)
	for _, h := range released {
		s.deleteRendition(ctx, h)
	}
	slog.Info("batch_ingested", "batch_id", batch.ID, "items", len(batch.Items), "released_previews", len(released))
	return &batch, nil
}

func (s *BatchService) Items() []domain.BatchItem {
	return s.registry.Items()
}

func (s *BatchService) Summary() domain.BatchSummary {
	return s.registry.Summary()
}

// ExportArchive builds the archive from the items that are ready right now.
func (s *BatchService) ExportArchive(ctx context.Context) (*domain.Archive, error) {
	archive, err := s.archiver.Build(ctx, s.registry.ReadyItems())
	if err != nil {
		return nil, err
	}
	slog.Info("archive_built", "batch_id", s.registry.BatchID(), "entries", len(archive.Entries), "bytes", len(archive.Data))
	return archive, nil
}

// ItemContent returns one ready item's bytes under its final name.
func (s *BatchService) ItemContent(ctx context.Context, id string) (string, []byte, error) {
	item, err := s.registry.Get(id)
	if err != nil {
		return "", nil, err
	}
	if item.Status != domain.StatusReady {
		return "", nil, domain.WrapError(domain.ErrInvalidInput, "item content", fmt.Errorf("item %s is %s", id, item.Status))
	}
	data, err := s.source.Fetch(ctx, item)
	if err != nil {
		return "", nil, domain.WrapError(domain.ErrArchiveIO, "item content", err)
	}
	return item.FinalName, data, nil
}

// Preview lazily stores a rendition of the item's content and opens it.
func (s *BatchService) Preview(ctx context.Context, id string) (io.ReadCloser, string, error) {
	item, err := s.registry.Get(id)
	if err != nil {
		return nil, "", err
	}
	if s.storage == nil {
		return io.NopCloser(bytes.NewReader(item.Content)), item.MimeType, nil
	}

	handle := item.PreviewHandle
	if handle.IsZero() {
		handle = domain.PreviewHandle{Key: fmt.Sprintf("%s_%s", item.ID, sanitizeFilename(item.OriginalName))}
		if err := s.storage.Save(ctx, handle.Key, bytes.NewReader(item.Content)); err != nil {
			return nil, "", fmt.Errorf("save preview: %w", err)
		}
		if err := s.registry.SetPreview(item.ID, handle); err != nil {
			s.deleteRendition(ctx, handle)
			return nil, "", err
		}
	}

	reader, err := s.storage.Open(ctx, handle.Key)
	if err != nil {
		return nil, "", fmt.Errorf("open preview: %w", err)
	}
	return reader, item.MimeType, nil
}

// ReleasePreview revokes the item's rendition. Releasing twice is a no-op.
func (s *BatchService) ReleasePreview(ctx context.Context, id string) error {
	handle, err := s.registry.ClearPreview(id)
	if err != nil {
		return err
	}
	if handle.IsZero() || s.storage == nil {
		return nil
	}
	if err := s.storage.Delete(ctx, handle.Key); err != nil {
		return fmt.Errorf("delete preview: %w", err)
	}
	return nil
}

func (s *BatchService) deleteRendition(ctx context.Context, handle domain.PreviewHandle) {
	if s.storage == nil || handle.IsZero() {
		return
	}
	if err := s.storage.Delete(ctx, handle.Key); err != nil {
		slog.Warn("preview_release_failed", "key", handle.Key, "error", err)
	}
}

// StorageContentSource reads an item through its preview rendition when one
// exists and falls back to the in-memory content otherwise.
type StorageContentSource struct {
	storage ports.ObjectStorage
}

func NewStorageContentSource(storage ports.ObjectStorage) *StorageContentSource {
	return &StorageContentSource{storage: storage}
}

func (s *StorageContentSource) Fetch(ctx context.Context, item domain.BatchItem) ([]byte, error) {
	if item.PreviewHandle.IsZero() || s.storage == nil {
		if item.Content == nil {
			return nil, errors.New("item has no content")
		}
		return item.Content, nil
	}

	reader, err := s.storage.Open(ctx, item.PreviewHandle.Key)
	if err != nil {
		return nil, fmt.Errorf("open rendition: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read rendition: %w", err)
	}
	return raw, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "image.bin"
	}
	return base
}
