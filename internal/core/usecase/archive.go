package usecase

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/naming"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
)

type CollisionPolicy string

const (
	// CollisionLastWriteWins keeps one entry per name holding the content of
	// the last item that resolved to it.
	CollisionLastWriteWins CollisionPolicy = "last-write-wins"
	// CollisionSuffix keeps every item, renaming duplicates to name-2.ext, name-3.ext...
	CollisionSuffix CollisionPolicy = "suffix"
)

func ParseCollisionPolicy(raw string) CollisionPolicy {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case CollisionSuffix:
		return CollisionSuffix
	default:
		return CollisionLastWriteWins
	}
}

type ArchiveBuilder struct {
	source      ports.ContentSource
	policy      CollisionPolicy
	concurrency int
	now         func() time.Time
}

func NewArchiveBuilder(source ports.ContentSource, policy CollisionPolicy, concurrency int) *ArchiveBuilder {
	if concurrency <= 0 {
		concurrency = 4
	}
	if policy == "" {
		policy = CollisionLastWriteWins
	}
	return &ArchiveBuilder{
		source:      source,
		policy:      policy,
		concurrency: concurrency,
		now:         time.Now,
	}
}

type archiveEntry struct {
	name    string
	content []byte
}

// Build zips the content of every ready item under its final name. Items in
// any other status are skipped. Content fetches run concurrently; the first
// failure aborts the whole build and no archive is returned.
func (b *ArchiveBuilder) Build(ctx context.Context, items iter.Seq[domain.BatchItem]) (*domain.Archive, error) {
	var ready []domain.BatchItem
	for item := range items {
		if item.Status == domain.StatusReady && item.FinalName != "" {
			ready = append(ready, item)
		}
	}
	if len(ready) == 0 {
		return nil, domain.WrapError(domain.ErrNothingToArchive, "build archive", errors.New("batch has no ready items"))
	}

	contents, err := b.fetchAll(ctx, ready)
	if err != nil {
		return nil, err
	}

	entries := b.assignNames(ready, contents)
	data, err := b.writeZip(entries)
	if err != nil {
		return nil, domain.WrapError(domain.ErrArchiveIO, "write archive", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.name)
	}
	return &domain.Archive{
		Filename: domain.ArchiveFilename,
		Entries:  names,
		Data:     data,
	}, nil
}

func (b *ArchiveBuilder) fetchAll(ctx context.Context, items []domain.BatchItem) ([][]byte, error) {
	contents := make([][]byte, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	for i := range items {
		item := items[i]
		g.Go(func() error {
			data, err := b.source.Fetch(gctx, item)
			if err != nil {
				return domain.WrapError(domain.ErrArchiveIO, "fetch content", fmt.Errorf("item %s: %w", item.ID, err))
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

func (b *ArchiveBuilder) assignNames(items []domain.BatchItem, contents [][]byte) []archiveEntry {
	entries := make([]archiveEntry, 0, len(items))

	if b.policy == CollisionSuffix {
		resolver := naming.NewCollisionResolver()
		for i, item := range items {
			entries = append(entries, archiveEntry{name: resolver.Resolve(item.FinalName), content: contents[i]})
		}
		return entries
	}

	position := make(map[string]int, len(items))
	for i, item := range items {
		if idx, ok := position[item.FinalName]; ok {
			entries[idx].content = contents[i]
			continue
		}
		position[item.FinalName] = len(entries)
		entries = append(entries, archiveEntry{name: item.FinalName, content: contents[i]})
	}
	return entries
}

func (b *ArchiveBuilder) writeZip(entries []archiveEntry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	modified := b.now()

	for _, e := range entries {
		// images are already compressed
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.name,
			Method:   zip.Store,
			Modified: modified,
		})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", e.name, err)
		}
		if _, err := w.Write(e.content); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}
