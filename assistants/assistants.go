package assistants

import (
	"context"
	"fmt"
	"strings"

	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolloop", "assistants")

// IAssistant is an agent instance.
type IAssistant interface {
	// Name returns the name of the Assistant.
	Name() string
	// Description returns the description of the Assistant, to be used in the prompt of other Assistants or LLMs.
	// Should not exceed LLM model limit.
	Description() string
	// Run executes one conversational turn and returns the final assistant message.
	Run(ctx context.Context, input string) (*llms.Message, error)
}

// GetDescriptions returns a markdown list of the assistants.
func GetDescriptions(list ...IAssistant) string {
	var ts strings.Builder
	for _, item := range list {
		ts.WriteString(fmt.Sprintf("- `%s`: %s\n", item.Name(), item.Description()))
	}
	return ts.String()
}
