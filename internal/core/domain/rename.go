package domain

import "time"

// NameRecord is the (original, generated) filename pair kept for auditing.
type NameRecord struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	NewName      string    `json:"new_name"`
	CreatedAt    time.Time `json:"created_at"`
}

type RenameResult struct {
	OriginalName string `json:"originalName"`
	NewName      string `json:"newName"`
}

// NameRequest is one call to the naming service. OriginalName is passed
// along for the service's own record keeping only.
type NameRequest struct {
	Content      []byte
	MimeType     string
	Style        string
	OriginalName string
}

// CaptionRequest carries one image to the AI model.
type CaptionRequest struct {
	Content  []byte
	MimeType string
	Prompt   string
}

type BatchEventType string

const (
	EventRunStarted   BatchEventType = "run.started"
	EventItemSettled  BatchEventType = "item.settled"
	EventRunCompleted BatchEventType = "run.completed"
)

type BatchEvent struct {
	Type       BatchEventType `json:"type"`
	BatchID    string         `json:"batch_id"`
	ItemID     string         `json:"item_id,omitempty"`
	Status     ItemStatus     `json:"status,omitempty"`
	FinalName  string         `json:"final_name,omitempty"`
	Report     *RunReport     `json:"report,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
