package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase binomial", "aus bus", "Aus bus"},
		{"second word untouched", "aus  BUS", "Aus BUS"},
		{"already canonical", "Aus bus", "Aus bus"},
		{"surrounding whitespace", "  aus bus  ", "Aus bus"},
		{"unicode whitespace", "aus bus", "Aus bus"},
		{"tabs collapsed", "aus\tbus\tvar. cus", "Aus bus var. cus"},
		{"single word", "animalia", "Animalia"},
		{"empty", "", ""},
		{"only whitespace", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.input))
		})
	}
}

func TestParseRank(t *testing.T) {
	tests := []struct {
		input    string
		expected Rank
	}{
		{"species", RankSpecies},
		{"SPECIES", RankSpecies},
		{"Phylum (Division)", RankDivision},
		{"forma specialis", RankSpecialForm},
		{"species aggregate", RankAggregateSpecies},
		{"other", RankUnranked},
		{"", RankUnranked},
		{"varietas", RankVarietas},
		{"nothovariety", RankNothovarietas},
	}

	for _, tt := range tests {
		rank, err := ParseRank(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, rank, "input %q", tt.input)
	}

	_, err := ParseRank("archduke")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected Status
	}{
		{"valid", StatusAccepted},
		{"Accepted Name", StatusAccepted},
		{"junior objective synonym", StatusSynonym},
		{"unreplaced junior homonym", StatusHomonym},
		{"invalid", StatusUnaccepted},
		{"temporary name", StatusPlaceholder},
		{"incorrect original spelling", StatusMisspelled},
		{"unsourced pro parte misapplied", StatusProParteMisapplied},
		{"nomen dubium", StatusNomenDubium},
	}

	for _, tt := range tests {
		status, err := ParseStatus(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.expected, status, "input %q", tt.input)
	}

	_, err := ParseStatus("definitely a plant")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestActFromStatus(t *testing.T) {
	act, ok := ActFromStatus(StatusAccepted)
	require.True(t, ok)
	assert.Equal(t, ActAccepted, act)

	act, ok = ActFromStatus(StatusReplacedSynonym)
	require.True(t, ok)
	assert.Equal(t, ActReplacedSynonym, act)

	_, ok = ActFromStatus(StatusNomenDubium)
	assert.False(t, ok)
}

func TestParseNomenclaturalAct(t *testing.T) {
	act, err := ParseNomenclaturalAct("new_species")
	require.NoError(t, err)
	assert.Equal(t, NomenclaturalActSpeciesNova, act)

	act, err = ParseNomenclaturalAct("genus_transfer")
	require.NoError(t, err)
	assert.Equal(t, NomenclaturalActCombinatioNova, act)

	_, err = ParseNomenclaturalAct("demotion")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestParseDateTime(t *testing.T) {
	for _, input := range []string{
		"2024-01-01T00:00:00Z",
		"2024-01-01 10:30:00+10:00",
		"2024-01-01T10:30:00.123+10:00",
	} {
		ts, err := ParseDateTime(input)
		require.NoError(t, err, "input %q", input)
		assert.Equal(t, 2024, ts.Year())
	}

	_, err := ParseDateTime("yesterday")
	assert.Error(t, err)
}
