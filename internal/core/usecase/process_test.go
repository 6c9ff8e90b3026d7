package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/ai-image-renamer/internal/core/domain"
	"github.com/kirillkom/ai-image-renamer/internal/core/registry"
)

type nameServiceFake struct {
	mu       sync.Mutex
	replies  map[string]string
	failures map[string]error
	calls    []string
	events   []string
	inFlight atomic.Int32
	overlap  bool
	styles   []string
	delay    time.Duration
	block    chan struct{}
}

func (f *nameServiceFake) RequestName(_ context.Context, req domain.NameRequest) (string, error) {
	if f.inFlight.Add(1) > 1 {
		f.overlap = true
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.calls = append(f.calls, req.OriginalName)
	f.styles = append(f.styles, req.Style)
	f.events = append(f.events, "start:"+req.OriginalName)
	f.mu.Unlock()

	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	f.events = append(f.events, "end:"+req.OriginalName)
	f.mu.Unlock()

	if err := f.failures[req.OriginalName]; err != nil {
		return "", err
	}
	return f.replies[req.OriginalName], nil
}

type eventSinkFake struct {
	mu     sync.Mutex
	events []domain.BatchEvent
	err    error
}

func (f *eventSinkFake) PublishBatchEvent(_ context.Context, event domain.BatchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return f.err
}

type recorderFake struct {
	items []domain.ItemStatus
	runs  []domain.RunReport
}

func (f *recorderFake) ObserveItem(status domain.ItemStatus, _ time.Duration) {
	f.items = append(f.items, status)
}

func (f *recorderFake) ObserveRun(report domain.RunReport) { f.runs = append(f.runs, report) }

func newRegistryWith(names ...string) *registry.Registry {
	r := registry.New()
	files := make([]domain.RawFile, 0, len(names))
	for _, name := range names {
		files = append(files, domain.RawFile{Name: name, MimeType: "image/png", Content: []byte("img:" + name)})
	}
	r.Ingest(files)
	return r
}

func TestProcessAllBuildsFinalNameWithOriginalExtension(t *testing.T) {
	reg := newRegistryWith("cat.PNG")
	svc := &nameServiceFake{replies: map[string]string{"cat.PNG": "orange tabby cat"}}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	report, err := uc.ProcessAll(context.Background(), "")
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	items := reg.Items()
	if items[0].Status != domain.StatusReady || items[0].FinalName != "orange-tabby-cat.PNG" {
		t.Fatalf("unexpected item: %+v", items[0])
	}
	if report.Processed != 1 || report.Ready != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestProcessAllLeavesEveryItemTerminal(t *testing.T) {
	reg := newRegistryWith("a.jpg", "b.jpg", "c.jpg", "d")
	svc := &nameServiceFake{
		replies:  map[string]string{"a.jpg": "Beach", "c.jpg": "!!!", "d": "Document Scan"},
		failures: map[string]error{"b.jpg": errors.New("502 bad gateway")},
	}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	if _, err := uc.ProcessAll(context.Background(), ""); err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	for _, item := range reg.Items() {
		if !item.Status.Terminal() {
			t.Fatalf("item %s left in %s", item.OriginalName, item.Status)
		}
		if (item.Status == domain.StatusReady) != (item.FinalName != "") {
			t.Fatalf("final name must be present iff ready: %+v", item)
		}
	}
	items := reg.Items()
	if items[2].Status != domain.StatusError {
		t.Fatalf("expected empty normalized name to fail item, got %+v", items[2])
	}
	if items[3].FinalName != "document-scan" {
		t.Fatalf("expected no extension for dotless name, got %q", items[3].FinalName)
	}
}

func TestProcessAllIssuesCallsStrictlyInOrder(t *testing.T) {
	reg := newRegistryWith("1.png", "2.png", "3.png")
	svc := &nameServiceFake{
		replies: map[string]string{"1.png": "one", "2.png": "two", "3.png": "three"},
		delay:   2 * time.Millisecond,
	}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	if _, err := uc.ProcessAll(context.Background(), ""); err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	want := []string{"start:1.png", "end:1.png", "start:2.png", "end:2.png", "start:3.png", "end:3.png"}
	if len(svc.events) != len(want) {
		t.Fatalf("unexpected call events: %v", svc.events)
	}
	for i := range want {
		if svc.events[i] != want[i] {
			t.Fatalf("call order mismatch at %d: %v", i, svc.events)
		}
	}
	if svc.overlap {
		t.Fatalf("naming calls overlapped")
	}
}

func TestProcessAllSecondRunMakesNoCalls(t *testing.T) {
	reg := newRegistryWith("a.png", "b.png")
	svc := &nameServiceFake{
		replies:  map[string]string{"a.png": "first"},
		failures: map[string]error{"b.png": errors.New("down")},
	}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	if _, err := uc.ProcessAll(context.Background(), ""); err != nil {
		t.Fatalf("first ProcessAll() error = %v", err)
	}
	calls := len(svc.calls)

	report, err := uc.ProcessAll(context.Background(), "")
	if err != nil {
		t.Fatalf("second ProcessAll() error = %v", err)
	}
	if len(svc.calls) != calls {
		t.Fatalf("expected no additional calls, got %d more", len(svc.calls)-calls)
	}
	if report.Processed != 0 {
		t.Fatalf("expected empty second report, got %+v", report)
	}
}

func TestProcessAllContainsFailureToSingleItem(t *testing.T) {
	reg := newRegistryWith("1.png", "2.png", "3.png")
	svc := &nameServiceFake{
		replies:  map[string]string{"1.png": "first", "3.png": "third"},
		failures: map[string]error{"2.png": errors.New("timeout")},
	}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	report, err := uc.ProcessAll(context.Background(), "")
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	items := reg.Items()
	if items[0].FinalName != "first.png" || items[2].FinalName != "third.png" {
		t.Fatalf("neighbours of failed item not processed: %+v", items)
	}
	if items[1].Status != domain.StatusError || items[1].Error == "" {
		t.Fatalf("expected item 2 in error with reason, got %+v", items[1])
	}
	if report.Ready != 2 || report.Failed != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
}

func TestProcessAllRejectsConcurrentRun(t *testing.T) {
	reg := newRegistryWith("a.png")
	svc := &nameServiceFake{replies: map[string]string{"a.png": "slow"}, block: make(chan struct{})}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	done, err := uc.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !uc.Running() {
		t.Fatalf("expected running flag")
	}

	_, err = uc.ProcessAll(context.Background(), "")
	if !domain.IsKind(err, domain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if _, err := uc.Start(context.Background(), ""); !domain.IsKind(err, domain.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning from Start, got %v", err)
	}

	close(svc.block)
	select {
	case report := <-done:
		if report.Ready != 1 {
			t.Fatalf("unexpected report: %+v", report)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for run")
	}
	if len(svc.calls) != 1 {
		t.Fatalf("rejected runs must not call the service, got %d calls", len(svc.calls))
	}
}

func TestProcessAllIgnoresCallerCancellation(t *testing.T) {
	reg := newRegistryWith("a.png", "b.png")
	svc := &nameServiceFake{replies: map[string]string{"a.png": "a", "b.png": "b"}}
	uc := NewRenameOrchestrator(reg, svc, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := uc.ProcessAll(ctx, "")
	if err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	if report.Ready != 2 {
		t.Fatalf("expected run to complete despite canceled caller, got %+v", report)
	}
}

func TestProcessAllThreadsStyleAndReportsEvents(t *testing.T) {
	reg := newRegistryWith("a.png", "b.png")
	svc := &nameServiceFake{
		replies:  map[string]string{"a.png": "a"},
		failures: map[string]error{"b.png": errors.New("nope")},
	}
	events := &eventSinkFake{err: errors.New("nats down")}
	recorder := &recorderFake{}
	uc := NewRenameOrchestrator(reg, svc, events, recorder)

	if _, err := uc.ProcessAll(context.Background(), "invoice-prefix"); err != nil {
		t.Fatalf("ProcessAll() error = %v", err)
	}
	for _, style := range svc.styles {
		if style != "invoice-prefix" {
			t.Fatalf("style not threaded to every call: %v", svc.styles)
		}
	}
	if len(events.events) != 4 {
		t.Fatalf("expected started + 2 settled + completed events, got %d", len(events.events))
	}
	if events.events[0].Type != domain.EventRunStarted || events.events[3].Type != domain.EventRunCompleted {
		t.Fatalf("unexpected event sequence: %+v", events.events)
	}
	if len(recorder.items) != 2 || len(recorder.runs) != 1 {
		t.Fatalf("unexpected recorder observations: %+v", recorder)
	}
}
