package assistants

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
)

var (
	// ErrMalformedResponse is returned when the model response has no content.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrRecursionLimitExceeded is returned when the model keeps requesting
	// tools past the configured bound.
	ErrRecursionLimitExceeded = errors.New("recursion limit exceeded")
	// ErrCancelled is returned when the run is cancelled by the caller.
	ErrCancelled = errors.New("cancelled")
	// ErrInvalidMaxRecursions is returned for an invalid recursion bound.
	ErrInvalidMaxRecursions = errors.New("invalid max recursions")
	// ErrNilRegistry is returned when no tool registry is provided.
	ErrNilRegistry = errors.New("tool registry is required")
	// ErrAgentNotFound is returned by the orchestrator for an unknown agent.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrDuplicateAgent is returned when two agents are configured with the same name.
	ErrDuplicateAgent = errors.New("duplicate agent")
)

// UnknownToolContent is the content of the tool result for a tool
// that is not registered.
const UnknownToolContent = "unknown tool"

// RecursionLimitError carries the history of the run
// that exceeded the recursion limit.
type RecursionLimitError struct {
	Agent         string
	MaxRecursions int
	// History is the conversation up to and including
	// the assistant message that requested the tools.
	History []llms.Message
}

func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("agent %s: %s: %d", e.Agent, ErrRecursionLimitExceeded.Error(), e.MaxRecursions)
}

// Is returns true for ErrRecursionLimitExceeded.
func (e *RecursionLimitError) Is(target error) bool {
	return target == ErrRecursionLimitExceeded
}

func cancelled(err error) error {
	return errors.Mark(errors.Wrap(err, "run cancelled"), ErrCancelled)
}

// IsCancelled returns true if the error is a result of a cancelled run.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
