package controllers

// Payload encodings reported by eventJSON.Encoding.
const (
	encodingJSON   = "json"
	encodingText   = "text"
	encodingBase64 = "base64"
)

// listStreamsResp lists stream names.
type listStreamsResp struct {
	Streams []string `json:"streams"`
}

// headResp reports the head of a stream; the nil id for an empty stream.
type headResp struct {
	Stream string `json:"stream"`
	Head   string `json:"head"`
}

// eventJSON is one event of a read. Payload holds the decoded JSON value,
// the text, or the base64 form depending on Encoding.
type eventJSON struct {
	ID       string `json:"id"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Payload  any    `json:"payload"`
}

// listEventsResp is a page of events. NextCursor is the id of the last event
// returned, usable as the next request's cursor.
type listEventsResp struct {
	Stream     string      `json:"stream"`
	Cursor     string      `json:"cursor"`
	Events     []eventJSON `json:"events"`
	NextCursor string      `json:"next_cursor,omitempty"`
}
