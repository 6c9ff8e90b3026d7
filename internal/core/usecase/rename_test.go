package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
)

type captionerFake struct {
	reply string
	err   error
	last  domain.CaptionRequest
}

func (f *captionerFake) Caption(_ context.Context, req domain.CaptionRequest) (string, error) {
	f.last = req
	return f.reply, f.err
}

type recordStoreFake struct {
	mu      sync.Mutex
	saved   []domain.NameRecord
	err     error
	listed  int
	history []domain.NameRecord
}

func (s *recordStoreFake) SaveNameRecord(_ context.Context, record *domain.NameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, *record)
	return nil
}

func (s *recordStoreFake) ListNameRecords(_ context.Context, limit int) ([]domain.NameRecord, error) {
	s.listed = limit
	return s.history, nil
}

func TestBuildNamingPromptAppendsStyle(t *testing.T) {
	if BuildNamingPrompt("  ") != namingPrompt {
		t.Fatalf("blank style must leave the base prompt unchanged")
	}
	prompt := BuildNamingPrompt("product-shot, brand first")
	if !strings.HasPrefix(prompt, namingPrompt) || !strings.HasSuffix(prompt, "product-shot, brand first") {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	long := BuildNamingPrompt(strings.Repeat("ж", maxStyleRunes+20))
	if got := strings.Count(long, "ж"); got != maxStyleRunes {
		t.Fatalf("expected style truncated to %d runes, got %d", maxStyleRunes, got)
	}
}

func TestRenameNormalizesReplyAndRecordsPair(t *testing.T) {
	captioner := &captionerFake{reply: "  Golden Retriever on the Beach!\n"}
	store := &recordStoreFake{}
	uc := NewRenameUseCase(captioner, store, 0)

	result, err := uc.Rename(context.Background(), "IMG_0001.jpg", "", pngHeader, "animals")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	uc.Wait()

	if result.NewName != "golden-retriever-on-the-beach" || result.OriginalName != "IMG_0001.jpg" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if captioner.last.MimeType != "image/png" {
		t.Fatalf("expected sniffed mime type, got %q", captioner.last.MimeType)
	}
	if !strings.Contains(captioner.last.Prompt, "animals") {
		t.Fatalf("style missing from prompt: %q", captioner.last.Prompt)
	}
	if len(store.saved) != 1 || store.saved[0].NewName != result.NewName || store.saved[0].ID == "" {
		t.Fatalf("unexpected saved records: %+v", store.saved)
	}
}

func TestRenameRejectsEmptyContent(t *testing.T) {
	uc := NewRenameUseCase(&captionerFake{reply: "x"}, nil, 0)
	if _, err := uc.Rename(context.Background(), "a.png", "image/png", nil, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRenameFailsWhenReplyHasNoUsableCharacters(t *testing.T) {
	store := &recordStoreFake{}
	uc := NewRenameUseCase(&captionerFake{reply: "???"}, store, 0)

	_, err := uc.Rename(context.Background(), "a.png", "image/png", pngHeader, "")
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	uc.Wait()
	if len(store.saved) != 0 {
		t.Fatalf("failed rename must not be recorded")
	}
}

func TestRenamePropagatesCaptionerError(t *testing.T) {
	cause := domain.WrapError(domain.ErrTemporary, "caption", errors.New("503"))
	uc := NewRenameUseCase(&captionerFake{err: cause}, nil, 0)

	_, err := uc.Rename(context.Background(), "a.png", "image/png", pngHeader, "")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestRenameSwallowsRecordFailure(t *testing.T) {
	store := &recordStoreFake{err: errors.New("db down")}
	uc := NewRenameUseCase(&captionerFake{reply: "sunset"}, store, 0)

	result, err := uc.Rename(context.Background(), "a.png", "image/png", pngHeader, "")
	uc.Wait()
	if err != nil || result.NewName != "sunset" {
		t.Fatalf("record failure leaked into response: %+v, %v", result, err)
	}
}

func TestHistoryClampsLimit(t *testing.T) {
	store := &recordStoreFake{history: []domain.NameRecord{{ID: "1"}}}
	uc := NewRenameUseCase(&captionerFake{}, store, 0)

	records, err := uc.History(context.Background(), 10_000)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if store.listed != 50 || len(records) != 1 {
		t.Fatalf("unexpected history call: limit=%d records=%d", store.listed, len(records))
	}

	empty, err := NewRenameUseCase(&captionerFake{}, nil, 0).History(context.Background(), 5)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty history without store, got %v, %v", empty, err)
	}
}

func TestLocalNameServiceReturnsNormalizedName(t *testing.T) {
	uc := NewRenameUseCase(&captionerFake{reply: "Red Car"}, nil, 0)
	svc := NewLocalNameService(uc)

	name, err := svc.RequestName(context.Background(), domain.NameRequest{
		Content:      pngHeader,
		MimeType:     "image/png",
		OriginalName: "car.png",
	})
	if err != nil || name != "red-car" {
		t.Fatalf("RequestName() = %q, %v", name, err)
	}
}
