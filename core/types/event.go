package types

// Event is the flattened, attribute-map form of a domain event as it is
// recorded by the processor and persisted by the event journal.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
