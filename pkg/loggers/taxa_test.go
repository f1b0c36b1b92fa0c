package loggers

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/taxonomy"
)

func decomposeTaxon(t *testing.T, rec TaxonRecord) []crdt.Operation[TaxonAtom] {
	t.Helper()
	frame := crdt.NewFrame[TaxonAtom]("e1", uuid.New(), crdt.Version{})
	require.NoError(t, rec.Decompose(frame))
	return frame.Collect()
}

func validRecord() TaxonRecord {
	return TaxonRecord{
		EntityID:          "e1",
		TaxonID:           "t1",
		ScientificName:    "aus bus",
		CanonicalName:     "aus bus",
		TaxonRank:         "species",
		TaxonomicStatus:   "valid",
		NomenclaturalCode: "ICZN",
	}
}

func TestTaxonDecomposeShape(t *testing.T) {
	ops := decomposeTaxon(t, validRecord())

	// one Create plus one Update per present field: taxon_id,
	// scientific_name, canonical_name, rank, status, code
	require.Len(t, ops, 7)
	assert.Equal(t, crdt.ActionCreate, ops[0].Action)
	for _, op := range ops[1:] {
		assert.Equal(t, crdt.ActionUpdate, op.Action)
	}
}

func TestTaxonDecomposeNormalizesNames(t *testing.T) {
	rec := validRecord()
	rec.ScientificName = "aus  BUS"

	ops := decomposeTaxon(t, rec)
	var name string
	for _, op := range ops {
		if op.Atom.Kind == TaxonScientificName {
			name = op.Atom.Value
		}
	}
	assert.Equal(t, "Aus BUS", name)
}

func TestTaxonDecomposeRejectsUnknownVocabulary(t *testing.T) {
	rec := validRecord()
	rec.TaxonRank = "emperor"

	frame := crdt.NewFrame[TaxonAtom]("e1", uuid.New(), crdt.Version{})
	err := rec.Decompose(frame)
	assert.ErrorIs(t, err, taxonomy.ErrInvalidValue)
}

func TestTaxonRoundTrip(t *testing.T) {
	rec := validRecord()
	rec.Authorship = "(Smith, 1901)"
	rec.Citation = "Smith 1901"

	ops := decomposeTaxon(t, rec)

	m := crdt.NewMap[TaxonAtom]("e1")
	m.Reduce(ops)

	taxon, err := reduceTaxon("e1", m.Atoms())
	require.NoError(t, err)

	assert.Equal(t, "t1", taxon.TaxonID)
	assert.Equal(t, "Aus bus", taxon.ScientificName)
	assert.Equal(t, "Aus bus", taxon.CanonicalName)
	assert.Equal(t, taxonomy.RankSpecies, taxon.Rank)
	assert.Equal(t, taxonomy.StatusAccepted, taxon.Status)
	assert.Equal(t, "ICZN", taxon.NomenclaturalCode)
	require.NotNil(t, taxon.Authorship)
	assert.Equal(t, "(Smith, 1901)", *taxon.Authorship)
	require.NotNil(t, taxon.Citation)
	assert.Equal(t, "Smith 1901", *taxon.Citation)
	assert.Nil(t, taxon.ParentTaxon)
}

func TestTaxonReduceMissingMandatoryAtom(t *testing.T) {
	rec := validRecord()
	rec.ScientificName = ""

	ops := decomposeTaxon(t, rec)

	// the rest of the row is preserved in the log
	require.Len(t, ops, 6)

	m := crdt.NewMap[TaxonAtom]("e1")
	m.Reduce(ops)

	_, err := reduceTaxon("e1", m.Atoms())
	require.ErrorIs(t, err, ErrMissingAtom)
	assert.ErrorContains(t, err, "ScientificName")
}

func TestDecodeTaxonAtomRejectsForeignTags(t *testing.T) {
	atom, err := decodeTaxonAtom("ScientificName", "Aus bus")
	require.NoError(t, err)
	assert.Equal(t, TaxonScientificName, atom.Kind)

	empty, err := decodeTaxonAtom("Empty", "")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())

	_, err = decodeTaxonAtom("OrganismId", "o1")
	assert.ErrorIs(t, err, ErrUnknownAtom)
}

func TestReduceOrganismLookups(t *testing.T) {
	names := NameLookup{"Aus bus": "name-1"}

	atoms := []OrganismAtom{
		{Kind: OrganismID, Value: "o1"},
		{Kind: OrganismScientificName, Value: "Aus bus"},
		{Kind: OrganismSex, Value: "female"},
	}

	organism, err := reduceOrganism("e1", atoms, names)
	require.NoError(t, err)
	assert.Equal(t, "name-1", organism.NameID)
	assert.Equal(t, "o1", organism.OrganismID)
	require.NotNil(t, organism.Sex)
	assert.Equal(t, "female", *organism.Sex)

	// the name registry is authoritative; an unknown name is a lookup
	// failure that skips the entity
	atoms[1].Value = "Nessie maritima"
	_, err = reduceOrganism("e1", atoms, names)
	assert.ErrorIs(t, err, ErrLookup)
}

func TestReduceTaxonomicActDerivation(t *testing.T) {
	rec := TaxonomicActRecord{
		EntityID:        "a1",
		ScientificName:  "Aus bus",
		TaxonomicStatus: "junior synonym",
	}

	frame := crdt.NewFrame[TaxonomicActAtom]("a1", uuid.New(), crdt.Version{})
	require.NoError(t, rec.Decompose(frame))

	m := crdt.NewMap[TaxonomicActAtom]("a1")
	m.Reduce(frame.Collect())

	act, err := reduceTaxonomicAct("a1", m.Atoms())
	require.NoError(t, err)
	require.NotNil(t, act.Act)
	assert.Equal(t, string(taxonomy.ActSynonym), *act.Act)
}
