package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseOptionsDefaults(t *testing.T) {
	opts, err := parseOptions([]string{"-dir", "photos"}, io.Discard)
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}
	if opts.Dir != "photos" || opts.Out != "renamed-images.zip" || opts.Collision != "last-write-wins" || opts.Concurrency != 4 {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestParseOptionsRequiresDir(t *testing.T) {
	if _, err := parseOptions(nil, io.Discard); err == nil {
		t.Fatalf("expected error without -dir")
	}
}

func TestParseOptionsFlagsOverrideConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renamer.yaml")
	body := "dir: /srv/photos\nstyle: product shots\ncollision: suffix\nconcurrency: 8\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	opts, err := parseOptions([]string{"-config", path, "-concurrency", "2"}, io.Discard)
	if err != nil {
		t.Fatalf("parseOptions() error = %v", err)
	}
	if opts.Dir != "/srv/photos" || opts.Style != "product shots" || opts.Collision != "suffix" {
		t.Fatalf("config file values not applied: %+v", opts)
	}
	if opts.Concurrency != 2 {
		t.Fatalf("explicit flag must win, got concurrency %d", opts.Concurrency)
	}
	if opts.Out != "renamed-images.zip" {
		t.Fatalf("unset values keep defaults, got out %q", opts.Out)
	}
}

func TestParseOptionsRejectsBadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("dir: [unclosed"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := parseOptions([]string{"-config", path}, io.Discard); err == nil {
		t.Fatalf("expected parse error")
	}
}
