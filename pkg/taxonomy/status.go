package taxonomy

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidValue marks a vocabulary value no parser table recognises.
var ErrInvalidValue = errors.New("invalid value")

// Status is the canonical taxonomic status of a name.
type Status string

const (
	StatusAccepted                         Status = "accepted"
	StatusUndescribed                      Status = "undescribed"
	StatusSpeciesInquirenda                Status = "species inquirenda"
	StatusTaxonInquirendum                 Status = "taxon inquirendum"
	StatusManuscriptName                   Status = "manuscript name"
	StatusHybrid                           Status = "hybrid"
	StatusUnassessed                       Status = "unassessed"
	StatusUnavailable                      Status = "unavailable"
	StatusUncertain                        Status = "uncertain"
	StatusUnjustifiedEmendation            Status = "unjustified emendation"
	StatusSynonym                          Status = "synonym"
	StatusHomonym                          Status = "homonym"
	StatusUnaccepted                       Status = "unaccepted"
	StatusInformal                         Status = "informal"
	StatusPlaceholder                      Status = "placeholder"
	StatusBasionym                         Status = "basionym"
	StatusNomenclaturalSynonym             Status = "nomenclatural synonym"
	StatusTaxonomicSynonym                 Status = "taxonomic synonym"
	StatusReplacedSynonym                  Status = "replaced synonym"
	StatusMisspelled                       Status = "misspelled"
	StatusOrthographicVariant              Status = "orthographic variant"
	StatusExcluded                         Status = "excluded"
	StatusMisapplied                       Status = "misapplied"
	StatusAlternativeName                  Status = "alternative name"
	StatusProParteMisapplied               Status = "pro parte misapplied"
	StatusProParteTaxonomicSynonym         Status = "pro parte taxonomic synonym"
	StatusDoubtfulMisapplied               Status = "doubtful misapplied"
	StatusDoubtfulTaxonomicSynonym         Status = "doubtful taxonomic synonym"
	StatusDoubtfulProParteMisapplied       Status = "doubtful pro parte misapplied"
	StatusDoubtfulProParteTaxonomicSynonym Status = "doubtful pro parte taxonomic synonym"
	StatusNomenDubium                      Status = "nomen dubium"
	StatusNomenNudum                       Status = "nomen nudum"
	StatusNomenOblitum                     Status = "nomen oblitum"
	StatusInterimUnpublished               Status = "interim unpublished"
	StatusSupersededCombination            Status = "superseded combination"
	StatusSupersededRank                   Status = "superseded rank"
	StatusIncorrectGrammaticalAgreement    Status = "incorrect grammatical agreement of specific epithet"
)

var statusAliases = map[string]Status{
	"valid":                  StatusAccepted,
	"valid name":             StatusAccepted,
	"accepted":               StatusAccepted,
	"accepted name":          StatusAccepted,
	"provisionally accepted": StatusAccepted,

	"undescribed":            StatusUndescribed,
	"species inquirenda":     StatusSpeciesInquirenda,
	"taxon inquirendum":      StatusTaxonInquirendum,
	"manuscript name":        StatusManuscriptName,
	"hybrid":                 StatusHybrid,
	"unassessed":             StatusUnassessed,
	"unavailable name":       StatusUnavailable,
	"uncertain":              StatusUncertain,
	"unjustified emendation": StatusUnjustifiedEmendation,

	"synonym":                   StatusSynonym,
	"junior synonym":            StatusSynonym,
	"junior objective synonym":  StatusSynonym,
	"junior subjective synonym": StatusSynonym,
	"later synonym":             StatusSynonym,
	"ambiguous synonym":         StatusSynonym,

	"homonym":                   StatusHomonym,
	"junior homonym":            StatusHomonym,
	"unreplaced junior homonym": StatusHomonym,

	"invalid":         StatusUnaccepted,
	"invalid name":    StatusUnaccepted,
	"unaccepted":      StatusUnaccepted,
	"unaccepted name": StatusUnaccepted,
	"informal":        StatusInformal,
	"informal name":   StatusInformal,

	"placeholder":    StatusPlaceholder,
	"temporary name": StatusPlaceholder,

	"basionym":              StatusBasionym,
	"nomenclatural synonym": StatusNomenclaturalSynonym,
	"taxonomic synonym":     StatusTaxonomicSynonym,
	"replaced synonym":      StatusReplacedSynonym,

	"incorrect original spelling": StatusMisspelled,
	"misspelling":                 StatusMisspelled,

	"orthographic variant": StatusOrthographicVariant,
	"excluded":             StatusExcluded,

	"misapplied":           StatusMisapplied,
	"misapplication":       StatusMisapplied,
	"unsourced misapplied": StatusMisapplied,

	"alternative name":           StatusAlternativeName,
	"alternative representation": StatusAlternativeName,

	"pro parte misapplied":           StatusProParteMisapplied,
	"unsourced pro parte misapplied": StatusProParteMisapplied,
	"pro parte taxonomic synonym":    StatusProParteTaxonomicSynonym,

	"doubtful misapplied":                  StatusDoubtfulMisapplied,
	"unsourced doubtful misapplied":        StatusDoubtfulMisapplied,
	"doubtful taxonomic synonym":           StatusDoubtfulTaxonomicSynonym,
	"doubtful pro parte misapplied":        StatusDoubtfulProParteMisapplied,
	"doubtful pro parte taxonomic synonym": StatusDoubtfulProParteTaxonomicSynonym,

	"nomen dubium":  StatusNomenDubium,
	"nomen nudum":   StatusNomenNudum,
	"nomen oblitum": StatusNomenOblitum,

	"interim unpublished":    StatusInterimUnpublished,
	"superseded combination": StatusSupersededCombination,
	"superseded rank":        StatusSupersededRank,
	"incorrect grammatical agreement of specific epithet": StatusIncorrectGrammaticalAgreement,
}

// ParseStatus folds a provider status spelling onto its canonical
// Status.
func ParseStatus(value string) (Status, error) {
	key := strings.ToLower(strings.TrimSpace(value))
	if status, ok := statusAliases[key]; ok {
		return status, nil
	}
	return "", fmt.Errorf("taxonomy: %w: status %q", ErrInvalidValue, value)
}

func (s Status) String() string { return string(s) }
