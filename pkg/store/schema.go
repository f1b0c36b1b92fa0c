package store

import (
	"fmt"
	"strings"
)

// registryDDL creates the dataset registry. Timestamps are unix
// nanoseconds so range predicates never depend on text formats.
const registryDDL = `
CREATE TABLE IF NOT EXISTS sources (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL UNIQUE,
    author         TEXT,
    rights_holder  TEXT,
    access_rights  TEXT,
    license        TEXT
);

CREATE TABLE IF NOT EXISTS datasets (
    id             TEXT PRIMARY KEY,
    source_id      TEXT NOT NULL REFERENCES sources(id),
    global_id      TEXT NOT NULL UNIQUE,
    name           TEXT NOT NULL,
    short_name     TEXT,
    url            TEXT,
    citation       TEXT,
    license        TEXT,
    rights_holder  TEXT,
    created_at     INTEGER NOT NULL,
    updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS dataset_versions (
    id           TEXT PRIMARY KEY,
    dataset_id   TEXT NOT NULL REFERENCES datasets(id),
    version      TEXT NOT NULL,
    created_at   INTEGER NOT NULL,
    imported_at  INTEGER NOT NULL,
    UNIQUE (dataset_id, version)
);
`

// logTableDDL is instantiated once per entity kind. The operation id is
// the fixed-width decimal clock rendering, so the primary key enforces
// global uniqueness and ORDER BY is version order.
const logTableDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
    operation_id        TEXT PRIMARY KEY,
    parent_id           TEXT NOT NULL,
    entity_id           TEXT NOT NULL,
    dataset_version_id  TEXT NOT NULL REFERENCES dataset_versions(id),
    action              TEXT NOT NULL CHECK (action IN ('create', 'update')),
    atom_type           TEXT NOT NULL,
    atom_value          TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_entity  ON %[1]s(entity_id);
CREATE INDEX IF NOT EXISTS idx_%[1]s_version ON %[1]s(dataset_version_id);
`

// entityDDL creates the materialized entity tables. Every column is
// derivable from the logs; dropping any of these tables loses nothing.
const entityDDL = `
CREATE TABLE IF NOT EXISTS names (
    id               TEXT PRIMARY KEY,
    scientific_name  TEXT NOT NULL UNIQUE,
    canonical_name   TEXT,
    authorship       TEXT
);

CREATE TABLE IF NOT EXISTS taxa (
    entity_id           TEXT PRIMARY KEY,
    dataset_id          TEXT NOT NULL,
    name_id             TEXT,
    parent_id           TEXT,
    taxon_id            TEXT NOT NULL,
    scientific_name     TEXT NOT NULL,
    canonical_name      TEXT NOT NULL,
    authorship          TEXT,
    taxon_rank          TEXT NOT NULL,
    taxonomic_status    TEXT NOT NULL,
    nomenclatural_code  TEXT NOT NULL,
    citation            TEXT,
    "references"        TEXT,
    last_updated        TEXT,
    parent_taxon        TEXT
);
CREATE INDEX IF NOT EXISTS idx_taxa_name ON taxa(dataset_id, scientific_name);

CREATE TABLE IF NOT EXISTS taxonomic_acts (
    entity_id        TEXT PRIMARY KEY,
    taxon            TEXT NOT NULL,
    accepted_taxon   TEXT,
    act              TEXT,
    source_url       TEXT,
    data_created_at  TEXT,
    data_updated_at  TEXT
);

CREATE TABLE IF NOT EXISTS nomenclatural_acts (
    entity_id         TEXT PRIMARY KEY,
    name_id           TEXT,
    acted_on          TEXT,
    act               TEXT NOT NULL,
    publication       TEXT,
    publication_date  TEXT,
    source_url        TEXT
);

CREATE TABLE IF NOT EXISTS specimens (
    entity_id        TEXT PRIMARY KEY,
    record_id        TEXT NOT NULL,
    name_id          TEXT,
    scientific_name  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS organisms (
    entity_id               TEXT PRIMARY KEY,
    name_id                 TEXT,
    organism_id             TEXT NOT NULL,
    sex                     TEXT,
    genotypic_sex           TEXT,
    phenotypic_sex          TEXT,
    life_stage              TEXT,
    reproductive_condition  TEXT,
    behavior                TEXT
);

CREATE TABLE IF NOT EXISTS subsamples (
    entity_id                 TEXT PRIMARY KEY,
    name_id                   TEXT,
    specimen_id               TEXT NOT NULL,
    subsample_id              TEXT NOT NULL,
    publication_id            TEXT,
    event_date                TEXT,
    event_time                TEXT,
    institution_name          TEXT,
    institution_code          TEXT,
    sample_type               TEXT,
    name                      TEXT,
    custodian                 TEXT,
    description               TEXT,
    notes                     TEXT,
    culture_method            TEXT,
    culture_media             TEXT,
    weight_or_volume          TEXT,
    preservation_method       TEXT,
    preservation_temperature  TEXT,
    preservation_duration     TEXT,
    quality                   TEXT,
    cell_type                 TEXT,
    cell_line                 TEXT,
    clone_name                TEXT,
    lab_host                  TEXT,
    sample_processing         TEXT,
    sample_pooling            TEXT
);

CREATE TABLE IF NOT EXISTS tissues (
    entity_id                TEXT PRIMARY KEY,
    name_id                  TEXT,
    tissue_id                TEXT NOT NULL,
    material_sample_id       TEXT NOT NULL,
    organism_id              TEXT NOT NULL,
    identification_verified  INTEGER,
    reference_material       INTEGER,
    custodian                TEXT,
    institution              TEXT,
    institution_code         TEXT,
    sampling_protocol        TEXT,
    tissue_type              TEXT,
    disposition              TEXT,
    fixation                 TEXT,
    storage                  TEXT
);

CREATE TABLE IF NOT EXISTS extractions (
    entity_id                  TEXT PRIMARY KEY,
    name_id                    TEXT,
    subsample_id               TEXT NOT NULL,
    extract_id                 TEXT NOT NULL,
    publication_id             TEXT,
    event_date                 TEXT,
    event_time                 TEXT,
    extracted_by               TEXT,
    material_extracted_by      TEXT,
    nucleic_acid_type          TEXT,
    preparation_type           TEXT,
    preservation_type          TEXT,
    preservation_method        TEXT,
    extraction_method          TEXT,
    concentration_method       TEXT,
    conformation               TEXT,
    concentration              REAL,
    concentration_unit         TEXT,
    quantification             TEXT,
    absorbance_260_230         REAL,
    absorbance_260_280         REAL,
    cell_lysis_method          TEXT,
    action_extracted           TEXT,
    number_of_extracts_pooled  TEXT
);

CREATE TABLE IF NOT EXISTS libraries (
    entity_id                   TEXT PRIMARY KEY,
    name_id                     TEXT,
    extract_id                  TEXT NOT NULL,
    library_id                  TEXT NOT NULL,
    publication_id              TEXT,
    event_date                  TEXT,
    event_time                  TEXT,
    prepared_by                 TEXT,
    concentration               REAL,
    concentration_unit          TEXT,
    pcr_cycles                  INTEGER,
    layout                      TEXT,
    selection                   TEXT,
    bait_set_name               TEXT,
    bait_set_reference          TEXT,
    construction_protocol       TEXT,
    source                      TEXT,
    insert_size                 TEXT,
    design_description          TEXT,
    strategy                    TEXT,
    index_tag                   TEXT,
    index_dual_tag              TEXT,
    index_oligo                 TEXT,
    index_dual_oligo            TEXT,
    location                    TEXT,
    remarks                     TEXT,
    dna_treatment               TEXT,
    number_of_libraries_pooled  TEXT,
    pcr_replicates              TEXT
);

CREATE TABLE IF NOT EXISTS sequence_runs (
    entity_id                  TEXT PRIMARY KEY,
    name_id                    TEXT,
    library_id                 TEXT NOT NULL,
    sequence_run_id            TEXT NOT NULL,
    publication_id             TEXT,
    event_date                 TEXT,
    event_time                 TEXT,
    facility                   TEXT,
    instrument_or_method       TEXT,
    platform                   TEXT,
    kit_chemistry              TEXT,
    flowcell_type              TEXT,
    cell_movie_length          TEXT,
    base_caller_model          TEXT,
    fast5_compression          TEXT,
    analysis_software          TEXT,
    analysis_software_version  TEXT,
    target_gene                TEXT,
    sra_run_accession          TEXT
);

CREATE TABLE IF NOT EXISTS assemblies (
    entity_id                       TEXT PRIMARY KEY,
    name_id                         TEXT,
    library_id                      TEXT NOT NULL,
    assembly_id                     TEXT NOT NULL,
    publication_id                  TEXT,
    event_date                      TEXT,
    event_time                      TEXT,
    name                            TEXT,
    type                            TEXT,
    method                          TEXT,
    method_version                  TEXT,
    method_link                     TEXT,
    size                            INTEGER,
    minimum_gap_length              TEXT,
    completeness                    TEXT,
    completeness_method             TEXT,
    source_molecule                 TEXT,
    reference_genome_used           TEXT,
    reference_genome_link           TEXT,
    number_of_scaffolds             INTEGER,
    genome_coverage                 TEXT,
    hybrid                          TEXT,
    hybrid_information              TEXT,
    polishing_or_scaffolding_method TEXT,
    polishing_or_scaffolding_data   TEXT,
    computational_infrastructure    TEXT,
    system_used                     TEXT,
    assembly_n50                    INTEGER
);

CREATE TABLE IF NOT EXISTS annotations (
    entity_id           TEXT PRIMARY KEY,
    assembly_id         TEXT NOT NULL,
    name                TEXT,
    provider            TEXT,
    event_date          TEXT,
    number_of_genes     INTEGER,
    number_of_proteins  INTEGER
);

CREATE TABLE IF NOT EXISTS depositions (
    entity_id    TEXT PRIMARY KEY,
    assembly_id  TEXT NOT NULL,
    event_date   TEXT,
    url          TEXT,
    institution  TEXT
);

CREATE TABLE IF NOT EXISTS accessions (
    entity_id                   TEXT PRIMARY KEY,
    name_id                     TEXT,
    specimen_id                 TEXT NOT NULL,
    scientific_name             TEXT NOT NULL,
    type_status                 TEXT,
    event_date                  TEXT,
    event_time                  TEXT,
    collection_repository_id    TEXT,
    collection_repository_code  TEXT,
    institution_name            TEXT,
    institution_code            TEXT,
    disposition                 TEXT,
    preparation                 TEXT,
    accessioned_by              TEXT,
    prepared_by                 TEXT,
    identified_by               TEXT,
    identified_date             TEXT,
    identification_remarks      TEXT,
    other_catalog_numbers       TEXT
);

CREATE TABLE IF NOT EXISTS publications (
    entity_id          TEXT PRIMARY KEY,
    title              TEXT,
    authors            TEXT,
    published_year     INTEGER,
    source_url         TEXT,
    published_date     TEXT,
    language           TEXT,
    publisher          TEXT,
    doi                TEXT,
    type               TEXT,
    citation           TEXT,
    record_created_at  TEXT,
    record_updated_at  TEXT
);

CREATE TABLE IF NOT EXISTS projects (
    entity_id         TEXT PRIMARY KEY,
    project_id        TEXT NOT NULL,
    target_species    TEXT,
    initiative        TEXT,
    initiative_theme  TEXT,
    title             TEXT,
    description       TEXT,
    data_context      TEXT,
    data_types        TEXT,
    data_assay_types  TEXT,
    partners          TEXT
);

CREATE TABLE IF NOT EXISTS data_products (
    entity_id             TEXT PRIMARY KEY,
    organism_id           TEXT,
    extract_id            TEXT,
    sequence_run_id       TEXT,
    publication_id        TEXT,
    custodian             TEXT,
    sequence_sample_id    TEXT,
    sequence_analysis_id  TEXT,
    notes                 TEXT,
    context               TEXT,
    type                  TEXT,
    file_type             TEXT,
    url                   TEXT,
    licence               TEXT,
    access                TEXT
);

CREATE TABLE IF NOT EXISTS agents (
    entity_id  TEXT PRIMARY KEY,
    full_name  TEXT NOT NULL,
    orcid      TEXT
);

CREATE TABLE IF NOT EXISTS sequences (
    entity_id           TEXT PRIMARY KEY,
    name_id             TEXT,
    sequence_id         TEXT NOT NULL,
    dna_extract_id      TEXT NOT NULL,
    event_date          TEXT,
    event_time          TEXT,
    sequenced_by        TEXT,
    material_sample_id  TEXT,
    concentration       REAL,
    amplicon_size       INTEGER,
    estimated_size      TEXT,
    bait_set_name       TEXT,
    bait_set_reference  TEXT,
    target_gene         TEXT,
    dna_sequence        TEXT
);
`

// Schema assembles the full DDL: registry, one log table per kind, and
// the entity tables.
func Schema() string {
	var b strings.Builder
	b.WriteString(registryDDL)
	for _, kind := range Kinds {
		fmt.Fprintf(&b, logTableDDL, kind.LogTable())
	}
	b.WriteString(entityDDL)
	return b.String()
}
