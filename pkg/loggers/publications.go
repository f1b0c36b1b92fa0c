package loggers

import (
	"context"
	"fmt"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// PublicationTag enumerates the publication atom catalog.
type PublicationTag string

const (
	PublicationTitle           PublicationTag = "Title"
	PublicationAuthors         PublicationTag = "Authors"
	PublicationPublishedYear   PublicationTag = "PublishedYear"
	PublicationSourceURL       PublicationTag = "SourceUrl"
	PublicationPublishedDate   PublicationTag = "PublishedDate"
	PublicationLanguage        PublicationTag = "Language"
	PublicationPublisher       PublicationTag = "Publisher"
	PublicationDoi             PublicationTag = "Doi"
	PublicationType            PublicationTag = "Type"
	PublicationCitation        PublicationTag = "Citation"
	PublicationRecordCreatedAt PublicationTag = "RecordCreatedAt"
	PublicationRecordUpdatedAt PublicationTag = "RecordUpdatedAt"
)

var publicationTags = atomSet(
	string(PublicationTitle), string(PublicationAuthors),
	string(PublicationPublishedYear), string(PublicationSourceURL),
	string(PublicationPublishedDate), string(PublicationLanguage),
	string(PublicationPublisher), string(PublicationDoi), string(PublicationType),
	string(PublicationCitation), string(PublicationRecordCreatedAt),
	string(PublicationRecordUpdatedAt),
)

// PublicationAtom is one field of a publication.
type PublicationAtom struct {
	Kind  PublicationTag
	Value string
}

func (a PublicationAtom) Tag() string {
	if a.Kind == "" {
		return "Empty"
	}
	return string(a.Kind)
}

func (a PublicationAtom) IsEmpty() bool   { return a.Kind == "" }
func (a PublicationAtom) Payload() string { return a.Value }

func decodePublicationAtom(tag, value string) (PublicationAtom, error) {
	if tag == "Empty" {
		return PublicationAtom{}, nil
	}
	if _, ok := publicationTags[tag]; !ok {
		return PublicationAtom{}, fmt.Errorf("loggers: %w: publication %q", ErrUnknownAtom, tag)
	}
	return PublicationAtom{Kind: PublicationTag(tag), Value: value}, nil
}

// PublicationRecord is one row of a publications.csv export.
type PublicationRecord struct {
	EntityID        string `csv:"entity_id"`
	Title           string `csv:"title"`
	Authors         string `csv:"authors"`
	PublishedYear   string `csv:"published_year"`
	SourceURL       string `csv:"source_url"`
	PublishedDate   string `csv:"published_date"`
	Language        string `csv:"language"`
	Publisher       string `csv:"publisher"`
	Doi             string `csv:"doi"`
	Type            string `csv:"type"`
	Citation        string `csv:"citation"`
	RecordCreatedAt string `csv:"record_created_at"`
	RecordUpdatedAt string `csv:"record_updated_at"`
}

func (r PublicationRecord) EntityKey() []byte { return []byte(r.EntityID) }

func (r PublicationRecord) Decompose(frame *crdt.Frame[PublicationAtom]) error {
	push := func(tag PublicationTag, value string) {
		frame.PushOpt(PublicationAtom{Kind: tag, Value: value}, value != "")
	}

	push(PublicationTitle, r.Title)
	push(PublicationAuthors, r.Authors)
	push(PublicationPublishedYear, canonicalInt(r.PublishedYear))
	push(PublicationSourceURL, r.SourceURL)
	push(PublicationPublishedDate, r.PublishedDate)
	push(PublicationLanguage, r.Language)
	push(PublicationPublisher, r.Publisher)
	push(PublicationDoi, r.Doi)
	push(PublicationType, r.Type)
	push(PublicationCitation, r.Citation)
	push(PublicationRecordCreatedAt, formatDateTime(r.RecordCreatedAt))
	push(PublicationRecordUpdatedAt, formatDateTime(r.RecordUpdatedAt))
	return nil
}

// Publication is the reduced snapshot row of the publications table.
type Publication struct {
	EntityID string
	fields   map[PublicationTag]string
}

func (p Publication) opt(tag PublicationTag) any    { return derefOrNil(optString(p.fields[tag])) }
func (p Publication) optInt(tag PublicationTag) any { return derefOrNil(tryParseInt(p.fields[tag])) }

func reducePublication(entityID string, atoms []PublicationAtom) (Publication, error) {
	publication := Publication{EntityID: entityID, fields: make(map[PublicationTag]string)}

	for _, atom := range atoms {
		if _, ok := publicationTags[string(atom.Kind)]; !ok {
			return Publication{}, fmt.Errorf("loggers: %w: publication %q", ErrUnknownAtom, atom.Kind)
		}
		publication.fields[atom.Kind] = atom.Value
	}

	if publication.fields[PublicationTitle] == "" {
		return Publication{}, missingAtom(entityID, string(PublicationTitle))
	}
	return publication, nil
}

// PublicationsImporter returns the archive importer for
// publications.csv.br entries.
func PublicationsImporter(st *store.Store, cfg config.Config) archive.Importer {
	return importKind[PublicationRecord, PublicationAtom](st, cfg, store.KindPublication, decodePublicationAtom)
}

var publicationColumns = []string{
	"entity_id", "title", "authors", "published_year", "source_url",
	"published_date", "language", "publisher", "doi", "type", "citation",
	"record_created_at", "record_updated_at",
}

// UpdatePublications reduces the publication logs into the publications
// table.
func UpdatePublications(ctx context.Context, st *store.Store, cfg config.Config) error {
	return projection[PublicationAtom, Publication]{
		kind:   store.KindPublication,
		decode: decodePublicationAtom,
		reduce: reducePublication,
		upsert: func(ctx context.Context, publications []Publication) error {
			rows := make([][]any, len(publications))
			for i, p := range publications {
				rows[i] = []any{
					p.EntityID, p.opt(PublicationTitle), p.opt(PublicationAuthors),
					p.optInt(PublicationPublishedYear), p.opt(PublicationSourceURL),
					p.opt(PublicationPublishedDate), p.opt(PublicationLanguage),
					p.opt(PublicationPublisher), p.opt(PublicationDoi),
					p.opt(PublicationType), p.opt(PublicationCitation),
					p.opt(PublicationRecordCreatedAt), p.opt(PublicationRecordUpdatedAt),
				}
			}
			return bulkUpsert(ctx, st.DB(), "publications", publicationColumns, rows)
		},
		pageSize: cfg.PageSize,
		workers:  cfg.Workers,
	}.run(ctx, st)
}
