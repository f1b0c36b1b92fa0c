package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/andybalholm/brotli"

	"github.com/ecotone-bio/ecotone/pkg/log"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

const metaFilename = "meta.toml"

// Importer consumes one decompressed CSV stream under the registered
// dataset version. Each entity kind's logger provides one.
type Importer func(ctx context.Context, stream io.Reader, version store.DatasetVersion) error

// Archive is a provider dataset snapshot: a tar file carrying meta.toml
// and one or more brotli-compressed CSV entries named by entity kind.
type Archive struct {
	path string
}

// New wraps the archive at path. Nothing is read until Meta or Import.
func New(path string) *Archive {
	return &Archive{path: path}
}

// Meta scans the archive for its manifest.
func (a *Archive) Meta() (*Meta, error) {
	file, err := os.Open(a.path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", a.path, err)
	}
	defer file.Close()

	reader := tar.NewReader(file)
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("archive: %s has no %s entry", a.path, metaFilename)
		}
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", a.path, err)
		}

		if header.Name != metaFilename {
			continue
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("archive: read %s: %w", metaFilename, err)
		}
		return ParseMeta(data)
	}
}

// Import registers the dataset version described by the manifest and
// streams every recognized entry through its importer. Entries are
// processed sequentially in archive order; unknown entry names are
// skipped with a warning.
func (a *Archive) Import(ctx context.Context, st *store.Store, importers map[string]Importer) error {
	meta, err := a.Meta()
	if err != nil {
		return err
	}

	logger := log.WithDataset(meta.Dataset.ID, meta.Dataset.Version)
	logger.Info().Str("name", meta.Dataset.ShortName).Msg("registering dataset")

	version, err := registerDataset(ctx, st, meta)
	if err != nil {
		return err
	}

	file, err := os.Open(a.path)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", a.path, err)
	}
	defer file.Close()

	reader := tar.NewReader(file)
	for {
		header, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("archive: read %s: %w", a.path, err)
		}
		if header.Name == metaFilename || header.Typeflag == tar.TypeDir {
			continue
		}

		importer, ok := importers[header.Name]
		if !ok {
			logger.Warn().Str("entry", header.Name).Msg("unknown entry, skipping")
			continue
		}

		logger.Info().Str("entry", header.Name).Int64("size", header.Size).Msg("importing entry")
		stream := brotli.NewReader(reader)
		if err := importer(ctx, stream, version); err != nil {
			return fmt.Errorf("archive: import %s: %w", header.Name, err)
		}
	}
}

// registerDataset upserts the source and dataset registry rows and
// creates the dataset version the archive's operations are stamped
// with.
func registerDataset(ctx context.Context, st *store.Store, meta *Meta) (store.DatasetVersion, error) {
	sourceID, err := st.UpsertSource(ctx, store.Source{
		Name:         meta.Collection.Name,
		Author:       meta.Collection.Author,
		RightsHolder: meta.Collection.RightsHolder,
		AccessRights: meta.Collection.AccessRights,
		License:      meta.Collection.License,
	})
	if err != nil {
		return store.DatasetVersion{}, err
	}

	if _, err := st.UpsertDataset(ctx, store.Dataset{
		SourceID:     sourceID,
		GlobalID:     meta.Dataset.ID,
		Name:         meta.Dataset.Name,
		ShortName:    meta.Dataset.ShortName,
		URL:          meta.Dataset.URL,
		Citation:     meta.Attribution.Citation,
		License:      meta.Attribution.License,
		RightsHolder: meta.Attribution.RightsHolder,
	}); err != nil {
		return store.DatasetVersion{}, err
	}

	return st.CreateDatasetVersion(ctx, meta.Dataset.ID, meta.Dataset.Version, meta.Dataset.PublishedAt)
}
