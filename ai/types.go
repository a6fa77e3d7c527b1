package ai

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a chat completion request.
type Message struct {
	Role    Role
	Content string
}

// NodeRef names a node-scoped chat endpoint. The zero value selects the
// default endpoint.
type NodeRef string

// CompletionOptions controls a single chat completion.
type CompletionOptions struct {
	// Target routes the request to a node-scoped endpoint when non-empty.
	Target NodeRef

	// Stream requests incremental output. The pipeline always sends false.
	Stream bool

	// Temperature is the sampling temperature. The pipeline always sends 0.
	Temperature float64
}

// Deterministic returns the options the pipeline uses for every completion:
// no streaming and zero temperature, routed to target.
func Deterministic(target NodeRef) CompletionOptions {
	return CompletionOptions{Target: target, Stream: false, Temperature: 0}
}
