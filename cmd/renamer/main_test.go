package main

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/ai-image-renamer/internal/infrastructure/renameapi"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func namingServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("image")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "multipart field 'image' is required"})
			return
		}
		base := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
		if base == "broken" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "cannot describe image"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"originalName": header.Filename,
			"newName":      r.FormValue("style") + " " + base,
		})
	}))
}

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestRunWritesRenamedArchive(t *testing.T) {
	server := namingServer(t)
	defer server.Close()

	dir := t.TempDir()
	writeFile(t, dir, "IMG_001.PNG", pngHeader)
	writeFile(t, dir, "broken.png", pngHeader)
	writeFile(t, dir, ".DS_Store", []byte("junk"))
	out := filepath.Join(t.TempDir(), "out.zip")

	var stdout bytes.Buffer
	opts := defaultOptions()
	opts.Dir, opts.Out, opts.Style = dir, out, "Holiday"
	if err := run(context.Background(), opts, renameapi.New(server.URL, 0, nil), &stdout); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	zr, err := zip.OpenReader(out)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "holiday-img001.PNG" {
		names := make([]string, 0, len(zr.File))
		for _, f := range zr.File {
			names = append(names, f.Name)
		}
		t.Fatalf("unexpected archive entries: %v", names)
	}
	if !strings.Contains(stdout.String(), "IMG_001.PNG -> holiday-img001.PNG") {
		t.Fatalf("unexpected report output: %q", stdout.String())
	}
	if !strings.Contains(stdout.String(), "broken.png !!") {
		t.Fatalf("failed item missing from output: %q", stdout.String())
	}
}

func TestRunRejectsNonImages(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", []byte("plain text"))

	opts := defaultOptions()
	opts.Dir, opts.Out = dir, filepath.Join(t.TempDir(), "out.zip")
	err := run(context.Background(), opts, renameapi.New("http://127.0.0.1:1", 0, nil), &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "not an image") {
		t.Fatalf("expected non-image rejection, got %v", err)
	}
}

func TestRunEmptyDirectory(t *testing.T) {
	opts := defaultOptions()
	opts.Dir = t.TempDir()
	if err := run(context.Background(), opts, renameapi.New("http://127.0.0.1:1", 0, nil), &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for empty directory")
	}
}
