package types

// Event represents a typed event emitted during state transitions. Engines set
// Type and Attributes; the runtime stamps the remaining fields once the
// enclosing transaction commits.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
	Program    string            `json:"program,omitempty"`
	TxHash     string            `json:"txHash,omitempty"`
	Timestamp  int64             `json:"timestamp,omitempty"`
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	clone := *e
	if e.Attributes != nil {
		clone.Attributes = make(map[string]string, len(e.Attributes))
		for k, v := range e.Attributes {
			clone.Attributes[k] = v
		}
	}
	return &clone
}
