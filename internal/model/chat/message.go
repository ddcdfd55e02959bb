package chat

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Status tracks a message through its turn.
type Status string

const (
	StatusPending   Status = "pending"
	StatusStreaming Status = "streaming"
	StatusComplete  Status = "complete"
	StatusErrored   Status = "errored"
)

// Final reports whether the message can no longer change.
func (s Status) Final() bool {
	return s == StatusComplete || s == StatusErrored
}

// Message is one entry of the conversation log.
type Message struct {
	ID             string    `json:"id"`
	Sender         Sender    `json:"sender"`
	RawText        string    `json:"rawText"`
	RenderedMarkup string    `json:"renderedMarkup"`
	Status         Status    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Patch carries the fields an update may replace. Nil fields are left alone.
type Patch struct {
	RawText        *string
	RenderedMarkup *string
	Status         *Status
}

// StatusPatch builds a patch that only moves the status.
func StatusPatch(status Status) Patch {
	return Patch{Status: &status}
}

// ContentPatch builds a patch replacing text, markup and status together.
func ContentPatch(rawText, markup string, status Status) Patch {
	return Patch{RawText: &rawText, RenderedMarkup: &markup, Status: &status}
}
