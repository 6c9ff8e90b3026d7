package domain

import (
	"fmt"
	"time"
)

type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusAnalyzing ItemStatus = "analyzing"
	StatusReady     ItemStatus = "ready"
	StatusError     ItemStatus = "error"
)

// Valid reports whether s is one of the four lifecycle states.
func (s ItemStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAnalyzing, StatusReady, StatusError:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition may leave s within a batch.
func (s ItemStatus) Terminal() bool {
	switch s {
	case StatusReady, StatusError:
		return true
	default:
		return false
	}
}

// CanTransition accepts only pending->analyzing and analyzing->ready|error.
func CanTransition(from, to ItemStatus) bool {
	switch from {
	case StatusPending:
		return to == StatusAnalyzing
	case StatusAnalyzing:
		return to == StatusReady || to == StatusError
	case StatusReady, StatusError:
		return false
	default:
		return false
	}
}

// CheckTransition returns ErrInvalidTransition for any move outside the lifecycle.
func CheckTransition(from, to ItemStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// PreviewHandle is a revocable reference to a stored rendition of an item's content.
// The zero value means no rendition exists.
type PreviewHandle struct {
	Key string `json:"key"`
}

func (h PreviewHandle) IsZero() bool { return h.Key == "" }

// RawFile is one entry handed over by the ingestion source.
type RawFile struct {
	Name     string
	MimeType string
	Content  []byte
}

type BatchItem struct {
	ID            string        `json:"id"`
	OriginalName  string        `json:"original_name"`
	MimeType      string        `json:"mime_type"`
	Size          int           `json:"size"`
	Status        ItemStatus    `json:"status"`
	FinalName     string        `json:"final_name,omitempty"`
	Error         string        `json:"error,omitempty"`
	PreviewHandle PreviewHandle `json:"-"`
	Content       []byte        `json:"-"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Batch struct {
	ID        string      `json:"id"`
	CreatedAt time.Time   `json:"created_at"`
	Items     []BatchItem `json:"items"`
}

type BatchSummary struct {
	BatchID   string `json:"batch_id"`
	Total     int    `json:"total"`
	Pending   int    `json:"pending"`
	Analyzing int    `json:"analyzing"`
	Ready     int    `json:"ready"`
	Failed    int    `json:"failed"`
	Running   bool   `json:"running"`
}

type RunReport struct {
	BatchID   string        `json:"batch_id"`
	Processed int           `json:"processed"`
	Ready     int           `json:"ready"`
	Failed    int           `json:"failed"`
	Duration  time.Duration `json:"duration"`
}

// ArchiveFilename is the fixed download name of every archive.
const ArchiveFilename = "renamed-images.zip"

type Archive struct {
	Filename string   `json:"filename"`
	Entries  []string `json:"entries"`
	Data     []byte   `json:"-"`
}
