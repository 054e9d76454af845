package domain

import "time"

// Status enumerates item lifecycle states.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Runnable reports whether a batch run may select an item in this status.
func (s Status) Runnable() bool {
	return s == StatusIdle || s == StatusError
}

// Editable reports whether the description may change in this status.
func (s Status) Editable() bool {
	return s == StatusIdle || s == StatusError
}

// Item is one uploaded product photo and its processing state.
type Item struct {
	ID            string
	Filename      string
	Source        Image
	PreviewHandle string
	Status        Status
	Result        *Image
	Error         string
	SceneUsed     SceneID
	Description   string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a copy that shares no mutable memory with the receiver.
func (it Item) Clone() Item {
	out := it
	out.Source = it.Source.Clone()
	if it.Result != nil {
		res := it.Result.Clone()
		out.Result = &res
	}
	return out
}

// Payload carries the data attached to a status transition.
type Payload struct {
	Result *Image
	Scene  SceneID
	Error  string
}
