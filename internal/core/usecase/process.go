package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/naming"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
)

// RenameOrchestrator walks the pending items of the current batch and asks
// the naming service for each one, strictly one request at a time.
type RenameOrchestrator struct {
	registry ports.ItemRegistry
	service  ports.NameService
	events   ports.EventPublisher
	recorder ports.RunRecorder

	running atomic.Bool
	now     func() time.Time
}

// NewRenameOrchestrator wires the orchestrator. events and recorder may be nil.
func NewRenameOrchestrator(
	registry ports.ItemRegistry,
	service ports.NameService,
	events ports.EventPublisher,
	recorder ports.RunRecorder,
) *RenameOrchestrator {
	return &RenameOrchestrator{
		registry: registry,
		service:  service,
		events:   events,
		recorder: recorder,
		now:      time.Now,
	}
}

func (uc *RenameOrchestrator) Running() bool {
	return uc.running.Load()
}

// ProcessAll runs to completion and returns the run report. A second caller
// gets ErrAlreadyRunning while a run is active.
func (uc *RenameOrchestrator) ProcessAll(ctx context.Context, style string) (domain.RunReport, error) {
	if err := uc.acquire(); err != nil {
		return domain.RunReport{}, err
	}
	defer uc.running.Store(false)
	return uc.run(ctx, style), nil
}

// Start claims the run guard synchronously and processes in the background.
// The returned channel yields the report once and is then closed.
func (uc *RenameOrchestrator) Start(ctx context.Context, style string) (<-chan domain.RunReport, error) {
	if err := uc.acquire(); err != nil {
		return nil, err
	}
	done := make(chan domain.RunReport, 1)
	go func() {
		defer close(done)
		defer uc.running.Store(false)
		done <- uc.run(ctx, style)
	}()
	return done, nil
}

func (uc *RenameOrchestrator) acquire() error {
	if !uc.running.CompareAndSwap(false, true) {
		return domain.WrapError(domain.ErrAlreadyRunning, "process all", fmt.Errorf("batch %s", uc.registry.BatchID()))
	}
	return nil
}

func (uc *RenameOrchestrator) run(ctx context.Context, style string) domain.RunReport {
	// A started run always finishes its scan; only transport timeouts bound it.
	runCtx := context.WithoutCancel(ctx)
	start := uc.now()
	report := domain.RunReport{BatchID: uc.registry.BatchID()}

	slog.Info("rename_run_started", "batch_id", report.BatchID, "style", style)
	uc.publish(runCtx, domain.BatchEvent{Type: domain.EventRunStarted, BatchID: report.BatchID})

	for item := range uc.registry.PendingItems() {
		status, settled := uc.processItem(runCtx, item, style)
		if !settled {
			continue
		}
		report.Processed++
		switch status {
		case domain.StatusReady:
			report.Ready++
		case domain.StatusError:
			report.Failed++
		}
	}

	report.Duration = uc.now().Sub(start)
	if uc.recorder != nil {
		uc.recorder.ObserveRun(report)
	}
	slog.Info("rename_run_completed",
		"batch_id", report.BatchID,
		"processed", report.Processed,
		"ready", report.Ready,
		"failed", report.Failed,
		"duration_ms", float64(report.Duration.Microseconds())/1000.0,
	)
	uc.publish(runCtx, domain.BatchEvent{Type: domain.EventRunCompleted, BatchID: report.BatchID, Report: &report})
	return report
}

// processItem settles one item. settled is false when the item could not be
// claimed, e.g. because the batch was replaced underneath the run.
func (uc *RenameOrchestrator) processItem(ctx context.Context, item domain.BatchItem, style string) (domain.ItemStatus, bool) {
	if err := uc.registry.UpdateItem(item.ID, domain.StatusAnalyzing, ""); err != nil {
		slog.Warn("rename_item_skipped", "item_id", item.ID, "error", err)
		return "", false
	}

	start := uc.now()
	finalName, err := uc.requestFinalName(ctx, item, style)
	status := domain.StatusReady
	detail := finalName
	if err != nil {
		status = domain.StatusError
		detail = err.Error()
	}

	if err := uc.registry.UpdateItem(item.ID, status, detail); err != nil {
		slog.Warn("rename_item_update_failed", "item_id", item.ID, "status", status, "error", err)
		return "", false
	}

	elapsed := uc.now().Sub(start)
	if uc.recorder != nil {
		uc.recorder.ObserveItem(status, elapsed)
	}
	logAttrs := []any{
		"item_id", item.ID,
		"original_name", item.OriginalName,
		"status", status,
		"duration_ms", float64(elapsed.Microseconds()) / 1000.0,
	}
	if err != nil {
		slog.Warn("rename_item_settled", append(logAttrs, "error", err)...)
	} else {
		slog.Info("rename_item_settled", append(logAttrs, "final_name", finalName)...)
	}

	uc.publish(ctx, domain.BatchEvent{
		Type:      domain.EventItemSettled,
		BatchID:   uc.registry.BatchID(),
		ItemID:    item.ID,
		Status:    status,
		FinalName: finalName,
	})
	return status, true
}

func (uc *RenameOrchestrator) requestFinalName(ctx context.Context, item domain.BatchItem, style string) (string, error) {
	raw, err := uc.service.RequestName(ctx, domain.NameRequest{
		Content:      item.Content,
		MimeType:     item.MimeType,
		Style:        style,
		OriginalName: item.OriginalName,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrUpstream, "request name", err)
	}

	normalized := naming.Normalize(raw)
	if normalized == "" {
		return "", domain.WrapError(domain.ErrUpstream, "normalize name", errors.New("service returned no usable name"))
	}
	return naming.FinalName(normalized, item.OriginalName), nil
}

func (uc *RenameOrchestrator) publish(ctx context.Context, event domain.BatchEvent) {
	if uc.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = uc.now().UTC()
	}
	if err := uc.events.PublishBatchEvent(ctx, event); err != nil {
		slog.Warn("batch_event_publish_failed", "type", event.Type, "batch_id", event.BatchID, "error", err)
	}
}
