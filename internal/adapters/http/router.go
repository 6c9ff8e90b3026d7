package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/config"
	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/ports"
)

const serviceName = "api"

// BatchService is everything the batch routes need from the engine host.
type BatchService interface {
	ports.BatchIngestor
	ports.BatchReader
	ports.ArchiveExporter
	ports.PreviewProvider
}

type HTTPMetrics interface {
	Middleware(service string, next http.Handler) http.Handler
	Handler() http.Handler
	RecordRename(service, provider string, duration time.Duration, err error)
}

type ArchiveObserver interface {
	ObserveArchive(archive *domain.Archive, err error)
}

// Dependencies groups the router collaborators. Batch, Processor and Renamer
// are required; the rest may be nil.
type Dependencies struct {
	Batch     BatchService
	Processor ports.BatchProcessor
	Renamer   ports.ImageRenamer
	History   ports.NameHistoryReader
	Metrics   HTTPMetrics
	Archives  ArchiveObserver
}

type Router struct {
	cfg  config.Config
	deps Dependencies
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /api/rename", rt.rename)
	api.HandleFunc("GET /api/renames", rt.renameHistory)
	api.HandleFunc("POST /v1/batch", rt.ingestBatch)
	api.HandleFunc("GET /v1/batch", rt.getBatch)
	api.HandleFunc("POST /v1/batch/process", rt.processBatch)
	api.HandleFunc("GET /v1/batch/archive", rt.downloadArchive)
	api.HandleFunc("GET /v1/batch/items/{id}/content", rt.downloadItem)
	api.HandleFunc("GET /v1/batch/items/{id}/preview", rt.getPreview)
	api.HandleFunc("DELETE /v1/batch/items/{id}/preview", rt.releasePreview)

	var guarded http.Handler = api
	guarded = backpressureMiddleware(guarded, rt.cfg.APIBackpressureMax, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	guarded = rateLimitMiddleware(guarded, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		root.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	root.Handle("/", guarded)

	var handler http.Handler = root
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) rename(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes())
	if err := r.ParseMultipartForm(rt.maxUploadBytes()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'image' is required"})
		return
	}
	defer cleanupMultipart(r)

	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'image' is required"})
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read image: " + err.Error()})
		return
	}

	start := time.Now()
	result, err := rt.deps.Renamer.Rename(r.Context(), header.Filename, header.Header.Get("Content-Type"), content, r.FormValue("style"))
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRename(serviceName, rt.cfg.AIProvider, time.Since(start), err)
	}
	if err != nil {
		slog.Error("rename_failed", "request_id", requestIDFromContext(r.Context()), "original_name", header.Filename, "error", err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) renameHistory(w http.ResponseWriter, r *http.Request) {
	if rt.deps.History == nil {
		writeJSON(w, http.StatusOK, map[string]any{"items": []domain.NameRecord{}})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	records, err := rt.deps.History.History(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

func (rt *Router) ingestBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes())
	if err := r.ParseMultipartForm(rt.maxUploadBytes()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}
	defer cleanupMultipart(r)

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	files := make([]domain.RawFile, 0, len(headers))
	for _, fh := range headers {
		raw, err := readPart(fh)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		files = append(files, domain.RawFile{
			Name:     fh.Filename,
			MimeType: fh.Header.Get("Content-Type"),
			Content:  raw,
		})
	}

	batch, err := rt.deps.Batch.Ingest(r.Context(), files)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, batch)
}

func (rt *Router) getBatch(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"summary": rt.summary(),
		"items":   rt.deps.Batch.Items(),
	})
}

func (rt *Router) processBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Style string `json:"style"`
		Wait  bool   `json:"wait"`
	}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	if req.Wait {
		report, err := rt.deps.Processor.ProcessAll(r.Context(), req.Style)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
		return
	}

	if _, err := rt.deps.Processor.Start(r.Context(), req.Style); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rt.summary())
}

func (rt *Router) downloadArchive(w http.ResponseWriter, r *http.Request) {
	archive, err := rt.deps.Batch.ExportArchive(r.Context())
	if rt.deps.Archives != nil {
		rt.deps.Archives.ObserveArchive(archive, err)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", attachment(archive.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(archive.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)
}

func (rt *Router) downloadItem(w http.ResponseWriter, r *http.Request) {
	name, content, err := rt.deps.Batch.ItemContent(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(content))
	w.Header().Set("Content-Disposition", attachment(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

func (rt *Router) getPreview(w http.ResponseWriter, r *http.Request) {
	reader, mimeType, err := rt.deps.Batch.Preview(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	defer reader.Close()

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		slog.Warn("preview_stream_failed", "request_id", requestIDFromContext(r.Context()), "error", err)
	}
}

func (rt *Router) releasePreview(w http.ResponseWriter, r *http.Request) {
	if err := rt.deps.Batch.ReleasePreview(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) summary() domain.BatchSummary {
	summary := rt.deps.Batch.Summary()
	summary.Running = rt.deps.Processor.Running()
	return summary
}

func (rt *Router) maxUploadBytes() int64 {
	mb := rt.cfg.MaxUploadMB
	if mb <= 0 {
		mb = 64
	}
	return int64(mb) << 20
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return raw, nil
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", filename)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
