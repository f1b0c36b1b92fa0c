package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// ProjectTag enumerates the project atom catalog.
type ProjectTag string

const (
	ProjectID              ProjectTag = "ProjectId"
	ProjectTargetSpecies   ProjectTag = "TargetSpecies"
	ProjectInitiative      ProjectTag = "Initiative"
	ProjectInitiativeTheme ProjectTag = "InitiativeTheme"
	ProjectTitle           ProjectTag = "Title"
	ProjectDescription     ProjectTag = "Description"
	ProjectDataContext     ProjectTag = "DataContext"
	ProjectDataTypes       ProjectTag = "DataTypes"
	ProjectDataAssayTypes  ProjectTag = "DataAssayTypes"
	ProjectPartners        ProjectTag = "Partners"
)

var projectTags = atomSet(
	string(ProjectID), string(ProjectTargetSpecies), string(ProjectInitiative),
	string(ProjectInitiativeTheme), string(ProjectTitle), string(ProjectDescription),
	string(ProjectDataContext), string(ProjectDataTypes),
	string(ProjectDataAssayTypes), string(ProjectPartners),
)

// ProjectAtom is one field of a project.
type ProjectAtom struct {
	Kind  ProjectTag
	Value string
}

func (a ProjectAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a ProjectAtom) IsEmpty() bool   { return a.Kind == "" }
func (a ProjectAtom) Payload() string { return a.Value }

func decodeProjectAtom(tag, value string) (ProjectAtom, error) {
	if tag == "Empty" {
		return ProjectAtom{}, nil
	}
	if _, ok := projectTags[tag]; !ok {
		return ProjectAtom{}, fmt.Errorf("loggers: %w: project %q", ErrUnknownAtom, tag)
	}
	return ProjectAtom{Kind: ProjectTag(tag), Value: value}, nil
}

// ProjectRecord is one row of a projects.csv export.
type ProjectRecord struct {
	EntityID        string `csv:"entity_id"`
	ProjectID       string `csv:"project_id"`
	TargetSpecies   string `csv:"target_species"`
	Initiative      string `csv:"initiative"`
	InitiativeTheme string `csv:"initiative_theme"`
	Title           string `csv:"title"`
	Description     string `csv:"description"`
	DataContext     string `csv:"data_context"`
	DataTypes       string `csv:"data_types"`
	DataAssayTypes  string `csv:"data_assay_types"`
	Partners        string `csv:"partners"`
}

func (r ProjectRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r ProjectRecord) Decompose(frame *crdt.Frame[ProjectAtom]) error {
	push := func(tag ProjectTag, value string) {
		frame.PushOpt(ProjectAtom{Kind: tag, Value: value}, value != "")
	}

	push(ProjectID, r.ProjectID)
	push(ProjectTargetSpecies, r.TargetSpecies)
	push(ProjectInitiative, r.Initiative)
	push(ProjectInitiativeTheme, r.InitiativeTheme)
	push(ProjectTitle, r.Title)
	push(ProjectDescription, r.Description)
	push(ProjectDataContext, r.DataContext)
	push(ProjectDataTypes, r.DataTypes)
	push(ProjectDataAssayTypes, r.DataAssayTypes)
	push(ProjectPartners, r.Partners)
	return nil
}

// Project is the reduced snapshot row of the projects table.
type Project struct {
	EntityID string

	ProjectID string
	fields    map[ProjectTag]string
}

func (p Project) opt(tag ProjectTag) any { return derefOrNil(optString(p.fields[tag])) }

func reduceProject(entityID string, atoms []ProjectAtom) (Project, error) {
	project := Project{EntityID: entityID, fields: make(map[ProjectTag]string)}

	for _, atom := range atoms {
		if _, ok := projectTags[string(atom.Kind)]; !ok {
			return Project{}, fmt.Errorf("loggers: %w: project %q", ErrUnknownAtom, atom.Kind)
		}
		if atom.Kind == ProjectID {
			project.ProjectID = atom.Value
			continue
		}
		project.fields[atom.Kind] = atom.Value
	}

	if project.ProjectID == "" {
		return Project{}, missingAtom(entityID, string(ProjectID))
	}
	return project, nil
}

// ProjectsImporter returns the archive importer for projects.csv.br
// entries.
func ProjectsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[ProjectRecord, ProjectAtom](st, cfg, store.KindProject, decodeProjectAtom)
}

var projectColumns = []string{
	"entity_id", "project_id", "target_species", "initiative",
	"initiative_theme", "title", "description", "data_context",
	"data_types", "data_assay_types", "partners",
}

// UpdateProjects reduces the project logs into the projects table.
func UpdateProjects(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[ProjectAtom, Project]{
		kind:   store.KindProject,
		decode: decodeProjectAtom,
		reduce: reduceProject,
		upsert: func(ctx context.Context, projects []Project) error {
			rows := make([][]any, len(projects))
			for i, p := range projects {
				rows[i] = []any{
					p.EntityID, p.ProjectID, p.opt(ProjectTargetSpecies),
					p.opt(ProjectInitiative), p.opt(ProjectInitiativeTheme),
					p.opt(ProjectTitle), p.opt(ProjectDescription),
					p.opt(ProjectDataContext), p.opt(ProjectDataTypes),
					p.opt(ProjectDataAssayTypes), p.opt(ProjectPartners),
				}
			}
			return bulkUpsert(ctx, st.DB(), "projects", projectColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
