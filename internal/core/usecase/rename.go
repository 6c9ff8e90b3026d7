package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/naming"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
)

const namingPrompt = `Look at this image and produce a concise, descriptive file name for it in kebab-case.
Reply with the file name only, without an extension, quotes or any other text.`

const maxStyleRunes = 500

// BuildNamingPrompt appends the optional user style hint to the base instruction.
func BuildNamingPrompt(style string) string {
	style = strings.TrimSpace(style)
	if style == "" {
		return namingPrompt
	}
	if runes := []rune(style); len(runes) > maxStyleRunes {
		style = string(runes[:maxStyleRunes])
	}
	return namingPrompt + "\nFollow this naming style from the user: " + style
}

// RenameUseCase backs the naming endpoint: one image in, one normalized name out.
type RenameUseCase struct {
	captioner     ports.ImageCaptioner
	records       ports.NameRecordStore
	recordTimeout time.Duration

	pending sync.WaitGroup
}

// NewRenameUseCase wires the endpoint. records may be nil.
func NewRenameUseCase(captioner ports.ImageCaptioner, records ports.NameRecordStore, recordTimeout time.Duration) *RenameUseCase {
	if recordTimeout <= 0 {
		recordTimeout = 5 * time.Second
	}
	return &RenameUseCase{
		captioner:     captioner,
		records:       records,
		recordTimeout: recordTimeout,
	}
}

func (uc *RenameUseCase) Rename(
	ctx context.Context,
	originalName, mimeType string,
	content []byte,
	style string,
) (*domain.RenameResult, error) {
	if len(content) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "rename", errors.New("empty image"))
	}

	raw, err := uc.captioner.Caption(ctx, domain.CaptionRequest{
		Content:  content,
		MimeType: resolveMIME(mimeType, content),
		Prompt:   BuildNamingPrompt(style),
	})
	if err != nil {
		return nil, fmt.Errorf("caption image: %w", err)
	}

	newName := naming.Normalize(raw)
	if newName == "" {
		return nil, domain.WrapError(domain.ErrUpstream, "rename", fmt.Errorf("model reply %q has no usable characters", raw))
	}

	uc.recordAsync(originalName, newName)
	return &domain.RenameResult{OriginalName: originalName, NewName: newName}, nil
}

// recordAsync stores the name pair without holding up the response.
// Failures are logged and never reach the caller.
func (uc *RenameUseCase) recordAsync(originalName, newName string) {
	if uc.records == nil {
		return
	}
	record := &domain.NameRecord{
		ID:           uuid.NewString(),
		OriginalName: originalName,
		NewName:      newName,
		CreatedAt:    time.Now().UTC(),
	}

	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), uc.recordTimeout)
		defer cancel()
		if err := uc.records.SaveNameRecord(ctx, record); err != nil {
			slog.Error("name_record_failed", "original_name", originalName, "new_name", newName, "error", err)
		}
	}()
}

// History lists the most recent name pairs.
func (uc *RenameUseCase) History(ctx context.Context, limit int) ([]domain.NameRecord, error) {
	if uc.records == nil {
		return []domain.NameRecord{}, nil
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	records, err := uc.records.ListNameRecords(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list name records: %w", err)
	}
	return records, nil
}

// Wait blocks until in-flight record writes have finished.
func (uc *RenameUseCase) Wait() {
	uc.pending.Wait()
}

// LocalNameService lets the orchestrator call the naming use case in-process
// instead of over HTTP.
type LocalNameService struct {
	renamer ports.ImageRenamer
}

func NewLocalNameService(renamer ports.ImageRenamer) *LocalNameService {
	return &LocalNameService{renamer: renamer}
}

func (s *LocalNameService) RequestName(ctx context.Context, req domain.NameRequest) (string, error) {
	result, err := s.renamer.Rename(ctx, req.OriginalName, req.MimeType, req.Content, req.Style)
	if err != nil {
		return "", err
	}
	return result.NewName, nil
}
