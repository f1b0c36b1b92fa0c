package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// OrganismTag enumerates the organism atom catalog.
type OrganismTag string

const (
	OrganismID                    OrganismTag = "OrganismId"
	OrganismScientificName        OrganismTag = "ScientificName"
	OrganismSex                   OrganismTag = "Sex"
	OrganismGenotypicSex          OrganismTag = "GenotypicSex"
	OrganismPhenotypicSex         OrganismTag = "PhenotypicSex"
	OrganismLifeStage             OrganismTag = "LifeStage"
	OrganismReproductiveCondition OrganismTag = "ReproductiveCondition"
	OrganismBehavior              OrganismTag = "Behavior"
)

var organismTags = atomSet(
	string(OrganismID), string(OrganismScientificName), string(OrganismSex),
	string(OrganismGenotypicSex), string(OrganismPhenotypicSex),
	string(OrganismLifeStage), string(OrganismReproductiveCondition),
	string(OrganismBehavior),
)

// OrganismAtom is one field of an organism.
type OrganismAtom struct {
	Kind  OrganismTag
	Value string
}

func (a OrganismAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a OrganismAtom) IsEmpty() bool   { return a.Kind == "" }
func (a OrganismAtom) Payload() string { return a.Value }

func decodeOrganismAtom(tag, value string) (OrganismAtom, error) {
	if tag == "Empty" {
		return OrganismAtom{}, nil
	}
	if _, ok := organismTags[tag]; !ok {
		return OrganismAtom{}, fmt.Errorf("loggers: %w: organism %q", ErrUnknownAtom, tag)
	}
	return OrganismAtom{Kind: OrganismTag(tag), Value: value}, nil
}

// OrganismRecord is one row of an organisms.csv export.
type OrganismRecord struct {
	EntityID       string `csv:"entity_id"`
	ScientificName string `csv:"scientific_name"`
	OrganismID     string `csv:"organism_id"`

	Sex                   string `csv:"sex"`
	GenotypicSex          string `csv:"genotypic_sex"`
	PhenotypicSex         string `csv:"phenotypic_sex"`
	LifeStage             string `csv:"life_stage"`
	ReproductiveCondition string `csv:"reproductive_condition"`
	Behavior              string `csv:"behavior"`
}

func (r OrganismRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r OrganismRecord) Decompose(frame *crdt.Frame[OrganismAtom]) error {
	push := func(tag OrganismTag, value string) {
		frame.PushOpt(OrganismAtom{Kind: tag, Value: value}, value != "")
	}

	push(OrganismID, r.OrganismID)
	push(OrganismScientificName, r.ScientificName)
	push(OrganismSex, r.Sex)
	push(OrganismGenotypicSex, r.GenotypicSex)
	push(OrganismPhenotypicSex, r.PhenotypicSex)
	push(OrganismLifeStage, r.LifeStage)
	push(OrganismReproductiveCondition, r.ReproductiveCondition)
	push(OrganismBehavior, r.Behavior)
	return nil
}

// Organism is the reduced snapshot row of the organisms table.
type Organism struct {
	EntityID string
	NameID   string

	OrganismID            string
	Sex                   *string
	GenotypicSex          *string
	PhenotypicSex         *string
	LifeStage             *string
	ReproductiveCondition *string
	Behavior              *string
}

func reduceOrganism(entityID string, atoms []OrganismAtom, names NameLookup) (Organism, error) {
	organism := Organism{EntityID: entityID}

	var organismID, scientificName string
	for _, atom := range atoms {
		switch atom.Kind {
		case OrganismID:
			organismID = atom.Value
		case OrganismScientificName:
			scientificName = atom.Value
		case OrganismSex:
			organism.Sex = optString(atom.Value)
		case OrganismGenotypicSex:
			organism.GenotypicSex = optString(atom.Value)
		case OrganismPhenotypicSex:
			organism.PhenotypicSex = optString(atom.Value)
		case OrganismLifeStage:
			organism.LifeStage = optString(atom.Value)
		case OrganismReproductiveCondition:
			organism.ReproductiveCondition = optString(atom.Value)
		case OrganismBehavior:
			organism.Behavior = optString(atom.Value)
		default:
			return Organism{}, fmt.Errorf("loggers: %w: organism %q", ErrUnknownAtom, atom.Kind)
		}
	}

	if organismID == "" {
		return Organism{}, missingAtom(entityID, string(OrganismID))
	}
	if scientificName == "" {
		return Organism{}, missingAtom(entityID, string(OrganismScientificName))
	}

	// all data hangs off a name; a miss here means the taxa for this
	// dataset were never imported
	nameID, ok := names[scientificName]
	if !ok {
		return Organism{}, fmt.Errorf("loggers: %w: name %q", ErrLookup, scientificName)
	}

	organism.NameID = nameID
	organism.OrganismID = organismID
	return organism, nil
}

// OrganismsImporter returns the archive importer for organisms.csv.br
// entries.
func OrganismsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[OrganismRecord, OrganismAtom](st, cfg, store.KindOrganism, decodeOrganismAtom)
}

var organismColumns = []string{
	"entity_id", "name_id", "organism_id", "sex", "genotypic_sex",
	"phenotypic_sex", "life_stage", "reproductive_condition", "behavior",
}

// UpdateOrganisms reduces the organism logs into the organisms table.
func UpdateOrganisms(ctx context.Context, st *store.Store, cfg config.Config) error {
	names, err := LoadNameLookup(ctx, st.DB())
	if err != nil {
		return err
	}

	return projection[OrganismAtom, Organism]{
		kind:   store.KindOrganism,
		decode: decodeOrganismAtom,
		reduce: func(entityID string, atoms []OrganismAtom) (Organism, error) {
			return reduceOrganism(entityID, atoms, names)
		},
		upsert: func(ctx context.Context, organisms []Organism) error {
			rows := make([][]any, len(organisms))
			for i, o := range organisms {
				rows[i] = []any{
					o.EntityID, o.NameID, o.OrganismID, derefOrNil(o.Sex),
					derefOrNil(o.GenotypicSex), derefOrNil(o.PhenotypicSex),
					derefOrNil(o.LifeStage), derefOrNil(o.ReproductiveCondition),
					derefOrNil(o.Behavior),
				}
			}
			return bulkUpsert(ctx, st.DB(), "organisms", organismColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
