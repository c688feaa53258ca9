package assistants

import (
	"github.com/effective-security/toolloop/pkg/llms"
)

// LoopState is the state of a single run.
// It is owned by one run and is not safe for concurrent use.
type LoopState struct {
	// History is the conversation, append only.
	History []llms.Message `json:"history"`
	// RecursionCount is the number of completed dispatch rounds.
	RecursionCount int `json:"recursion_count"`
	// MaxRecursions is the bound of dispatch rounds.
	MaxRecursions int `json:"max_recursions"`
}

// NewLoopState returns a state seeded with the prior messages.
func NewLoopState(maxRecursions int, prior ...llms.Message) *LoopState {
	return &LoopState{
		History:       llms.CloneMessages(prior),
		MaxRecursions: maxRecursions,
	}
}

// Append adds a copy of the message to the history.
func (s *LoopState) Append(m llms.Message) {
	s.History = append(s.History, m.Clone())
}

// Last returns the last message of the history.
func (s *LoopState) Last() (llms.Message, bool) {
	if len(s.History) == 0 {
		return llms.Message{}, false
	}
	return s.History[len(s.History)-1], true
}

// LimitReached returns true if no more dispatch rounds are permitted.
func (s *LoopState) LimitReached() bool {
	return s.RecursionCount >= s.MaxRecursions
}

// Snapshot returns a deep copy of the state.
func (s *LoopState) Snapshot() LoopState {
	return LoopState{
		History:        llms.CloneMessages(s.History),
		RecursionCount: s.RecursionCount,
		MaxRecursions:  s.MaxRecursions,
	}
}
