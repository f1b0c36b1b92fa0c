package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// AgentTag enumerates the agent atom catalog.
type AgentTag string

const (
	AgentFullName AgentTag = "FullName"
	AgentOrcid    AgentTag = "Orcid"
)

var agentTags = atomSet(string(AgentFullName), string(AgentOrcid))

// AgentAtom is one field of an agent.
type AgentAtom struct {
	Kind  AgentTag
	Value string
}

func (a AgentAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a AgentAtom) IsEmpty() bool   { return a.Kind == "" }
func (a AgentAtom) Payload() string { return a.Value }

func decodeAgentAtom(tag, value string) (AgentAtom, error) {
	if tag == "Empty" {
		return AgentAtom{}, nil
	}
	if _, ok := agentTags[tag]; !ok {
		return AgentAtom{}, fmt.Errorf("loggers: %w: agent %q", ErrUnknownAtom, tag)
	}
	return AgentAtom{Kind: AgentTag(tag), Value: value}, nil
}

// AgentRecord is one row of an agents.csv export.
type AgentRecord struct {
	EntityID string `csv:"entity_id"`
	FullName string `csv:"full_name"`
	Orcid    string `csv:"orcid"`
}

func (r AgentRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r AgentRecord) Decompose(frame *crdt.Frame[AgentAtom]) error {
	frame.PushOpt(AgentAtom{Kind: AgentFullName, Value: r.FullName}, r.FullName != "")
	frame.PushOpt(AgentAtom{Kind: AgentOrcid, Value: r.Orcid}, r.Orcid != "")
	return nil
}

// Agent is the reduced snapshot row of the agents table.
type Agent struct {
	EntityID string
	FullName string
	Orcid    *string
}

func reduceAgent(entityID string, atoms []AgentAtom) (Agent, error) {
	agent := Agent{EntityID: entityID}

	for _, atom := range atoms {
		switch atom.Kind {
		case AgentFullName:
			agent.FullName = atom.Value
		case AgentOrcid:
			agent.Orcid = optString(atom.Value)
		default:
			return Agent{}, fmt.Errorf("loggers: %w: agent %q", ErrUnknownAtom, atom.Kind)
		}
	}

	if agent.FullName == "" {
		return Agent{}, missingAtom(entityID, string(AgentFullName))
	}
	return agent, nil
}

// AgentsImporter returns the archive importer for agents.csv.br
// entries.
func AgentsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[AgentRecord, AgentAtom](st, cfg, store.KindAgent, decodeAgentAtom)
}

var agentColumns = []string{"entity_id", "full_name", "orcid"}

// UpdateAgents reduces the agent logs into the agents table.
func UpdateAgents(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[AgentAtom, Agent]{
		kind:   store.KindAgent,
		decode: decodeAgentAtom,
		reduce: reduceAgent,
		upsert: func(ctx context.Context, agents []Agent) error {
			rows := make([][]any, len(agents))
			for i, a := range agents {
				rows[i] = []any{a.EntityID, a.FullName, derefOrNil(a.Orcid)}
			}
			return bulkUpsert(ctx, st.DB(), "agents", agentColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
