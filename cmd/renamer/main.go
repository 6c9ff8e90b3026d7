// Command renamer names every image in a directory with the AI naming
// service and writes the renamed copies into one zip archive.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/bootstrap"
	"github.com/kirillkom/ai-image-renamer/internal/config"
	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
	"github.com/kirillkom/ai-image-renamer/internal/core/registry"
	"github.com/kirillkom/ai-image-renamer/internal/core/usecase"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/renameapi"
	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/resilience"
	"github.com/kirillkom/ai-image-renamer/internal/observability/logging"
)

func main() {
	opts, err := parseOptions(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logging.New(os.Stderr, "renamer", opts.LogLevel, "text"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	service, err := newNameService(opts, cfg)
	if err != nil {
		slog.Error("renamer_init_failed", "error", err)
		os.Exit(1)
	}

	if err := run(ctx, opts, service, os.Stdout); err != nil {
		slog.Error("renamer_failed", "error", err)
		os.Exit(1)
	}
}

func newNameService(opts options, cfg config.Config) (ports.NameService, error) {
	executor := resilience.NewExecutor(bootstrap.AIResilienceConfig(cfg))
	timeout := time.Duration(cfg.NamingTimeoutSeconds) * time.Second
	if strings.TrimSpace(opts.Endpoint) != "" {
		return renameapi.New(opts.Endpoint, timeout, executor), nil
	}
	captioner, err := bootstrap.NewCaptioner(cfg, executor)
	if err != nil {
		return nil, err
	}
	return usecase.NewLocalNameService(usecase.NewRenameUseCase(captioner, nil, 0)), nil
}

// run ingests the directory as one batch, names every item and writes the archive.
func run(ctx context.Context, opts options, service ports.NameService, stdout io.Writer) error {
	files, err := readDir(opts.Dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files in %s", opts.Dir)
	}

	reg := registry.New()
	source := usecase.NewStorageContentSource(nil)
	archiver := usecase.NewArchiveBuilder(source, usecase.ParseCollisionPolicy(opts.Collision), opts.Concurrency)
	batch := usecase.NewBatchService(reg, nil, source, archiver, !opts.AnyType)
	if _, err := batch.Ingest(ctx, files); err != nil {
		return err
	}

	orchestrator := usecase.NewRenameOrchestrator(reg, service, nil, nil)
	report, err := orchestrator.ProcessAll(ctx, opts.Style)
	if err != nil {
		return err
	}

	for _, item := range batch.Items() {
		if item.Status == domain.StatusReady {
			fmt.Fprintf(stdout, "%s -> %s\n", item.OriginalName, item.FinalName)
		} else {
			fmt.Fprintf(stdout, "%s !! %s\n", item.OriginalName, item.Error)
		}
	}

	archive, err := batch.ExportArchive(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.Out, archive.Data, 0o644); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	fmt.Fprintf(stdout, "%d of %d renamed, archive %s (%d entries)\n", report.Ready, report.Processed, opts.Out, len(archive.Entries))
	return nil
}

// readDir loads the regular, non-hidden files directly inside dir.
func readDir(dir string) ([]domain.RawFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	files := make([]domain.RawFile, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		files = append(files, domain.RawFile{Name: e.Name(), Content: raw})
	}
	return files, nil
}
