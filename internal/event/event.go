package event

type Type string

const (
	TypeListingCreated Type = "listing.created"
	TypeListingUpdated Type = "listing.updated"
	TypeListingDeleted Type = "listing.deleted"
	TypeImageProgress  Type = "image.progress"
	TypeUploadFinished Type = "upload.finished"
)

// Event is delivered only to websocket clients of the browser session that
// triggered it.
type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	SessionID string `json:"-"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
