package assistants

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolloop/pkg/llms"
	"github.com/effective-security/xlog"
)

// OrchestratorConfig is the set of agents handled by an Orchestrator.
type OrchestratorConfig struct {
	// Agents is the list of agents, names must be unique.
	Agents []IAssistant
	// Default is the name of the agent used when none is requested,
	// the first agent is used if empty.
	Default string
}

// Orchestrator hands a request to exactly one agent.
// It is immutable after construction.
type Orchestrator struct {
	agents  map[string]IAssistant
	names   []string
	defName string
}

// NewOrchestrator returns an orchestrator for the configured agents.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if len(cfg.Agents) == 0 {
		return nil, errors.New("at least one agent is required")
	}

	o := &Orchestrator{
		agents: make(map[string]IAssistant, len(cfg.Agents)),
	}
	for _, a := range cfg.Agents {
		if a == nil {
			return nil, errors.New("agent is nil")
		}
		name := a.Name()
		if _, ok := o.agents[name]; ok {
			return nil, errors.WithMessagef(ErrDuplicateAgent, "%q", name)
		}
		o.agents[name] = a
		o.names = append(o.names, name)
	}

	o.defName = cfg.Default
	if o.defName == "" {
		o.defName = o.names[0]
	}
	if _, ok := o.agents[o.defName]; !ok {
		return nil, errors.WithMessagef(ErrAgentNotFound, "default %q", o.defName)
	}
	return o, nil
}

// Agent returns the agent by name, or the default agent if name is empty.
func (o *Orchestrator) Agent(name string) (IAssistant, error) {
	if name == "" {
		name = o.defName
	}
	a, ok := o.agents[name]
	if !ok {
		return nil, errors.WithMessagef(ErrAgentNotFound, "%q", name)
	}
	return a, nil
}

// Names returns the names of the agents.
func (o *Orchestrator) Names() []string {
	return append([]string(nil), o.names...)
}

// Descriptions returns the descriptions of the agents.
func (o *Orchestrator) Descriptions() string {
	list := make([]IAssistant, 0, len(o.names))
	for _, name := range o.names {
		list = append(list, o.agents[name])
	}
	return GetDescriptions(list...)
}

// Dispatch runs the request with the named agent.
func (o *Orchestrator) Dispatch(ctx context.Context, agentName, input string) (*llms.Message, error) {
	a, err := o.Agent(agentName)
	if err != nil {
		return nil, err
	}
	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "dispatch",
		"agent", a.Name(),
	)
	return a.Run(ctx, input)
}
