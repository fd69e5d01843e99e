package watch

import "strconv"

// EventType is one of the event kinds the Kubernetes watch wire format
// defines.
type EventType string

// Event type tokens.
const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
	Bookmark EventType = "BOOKMARK"
	ErrorType EventType = "ERROR"
)

// Event is one decoded frame delivered to a caller. Object is nil when
// Config.DecodeResponse is false; Raw then carries the original frame
// bytes, without their terminating newline, instead.
type Event struct {
	Type   EventType
	Object map[string]interface{}
	Raw    []byte
}

// resourceVersion extracts object.metadata.resourceVersion, or "" if
// absent.
func (e Event) resourceVersion() string {
	if e.Object == nil {
		return ""
	}
	metadata, _ := e.Object["metadata"].(map[string]interface{})
	if metadata == nil {
		return ""
	}
	rv, _ := metadata["resourceVersion"].(string)
	return rv
}

// rvGreater reports whether a denotes a strictly newer resourceVersion
// than b. Kubernetes resourceVersions are opaque strings that are, in
// every server implementation this library targets, decimal integers;
// fall back to a string compare if either side fails to parse so a
// non-numeric scheme still degrades to "never suppress" rather than
// panicking.
func rvGreater(a, b string) bool {
	if a == "" {
		return false
	}
	if b == "" {
		return true
	}
	an, aerr := strconv.ParseUint(a, 10, 64)
	bn, berr := strconv.ParseUint(b, 10, 64)
	if aerr == nil && berr == nil {
		return an > bn
	}
	return a > b
}
