package archive

import (
	"archive/tar"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecotone-bio/ecotone/pkg/store"
)

const testMeta = `
[dataset]
id = "ds1"
name = "Test Dataset"
short_name = "test"
version = "v1"
published_at = 2024-01-01T00:00:00Z
url = "https://example.org/ds1"

[changelog]
notes = ["initial release"]

[attribution]
citation = "Test et al. 2024"
source_url = "https://example.org"
license = "CC0"
rights_holder = "Test Org"

[collection]
name = "Test Collection"
author = "Tester"
license = "CC0"
access_rights = "open"
rights_holder = "Test Org"
`

func compress(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := brotli.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func writeArchive(t *testing.T, entries map[string][]byte) string {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	// meta.toml goes first by convention.
	writeEntry := func(name string, data []byte) {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name: name,
			Mode: 0o644,
			Size: int64(len(data)),
		}))
		_, err := tw.Write(data)
		require.NoError(t, err)
	}
	if meta, ok := entries[metaFilename]; ok {
		writeEntry(metaFilename, meta)
	}
	for name, data := range entries {
		if name == metaFilename {
			continue
		}
		writeEntry(name, data)
	}
	require.NoError(t, tw.Close())

	path := filepath.Join(t.TempDir(), "dataset.tar")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParseMeta(t *testing.T) {
	meta, err := ParseMeta([]byte(testMeta))
	require.NoError(t, err)

	assert.Equal(t, "ds1", meta.Dataset.ID)
	assert.Equal(t, "v1", meta.Dataset.Version)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), meta.Dataset.PublishedAt)
	assert.Equal(t, []string{"initial release"}, meta.Changelog.Notes)
	assert.Equal(t, "Test Collection", meta.Collection.Name)
}

func TestParseMetaRejectsIncomplete(t *testing.T) {
	_, err := ParseMeta([]byte(`[dataset]` + "\n" + `name = "no id"`))
	assert.ErrorContains(t, err, "dataset.id")
}

func TestArchiveMeta(t *testing.T) {
	path := writeArchive(t, map[string][]byte{
		metaFilename: []byte(testMeta),
	})

	meta, err := New(path).Meta()
	require.NoError(t, err)
	assert.Equal(t, "ds1", meta.Dataset.ID)
}

func TestArchiveMissingManifest(t *testing.T) {
	path := writeArchive(t, map[string][]byte{
		"taxa.csv.br": compress(t, "entity_id\n"),
	})

	_, err := New(path).Meta()
	assert.ErrorContains(t, err, "meta.toml")
}

func TestImportDispatchesKnownEntries(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ecotone.db"), 2)
	require.NoError(t, err)
	defer st.Close()

	csvData := "entity_id,name\ne1,hello\n"
	path := writeArchive(t, map[string][]byte{
		metaFilename:     []byte(testMeta),
		"taxa.csv.br":    compress(t, csvData),
		"unknown.csv.br": compress(t, "x\n1\n"),
	})

	var got []byte
	var gotVersion store.DatasetVersion
	importers := map[string]Importer{
		"taxa.csv.br": func(_ context.Context, stream io.Reader, version store.DatasetVersion) error {
			data, err := io.ReadAll(stream)
			got = data
			gotVersion = version
			return err
		},
	}

	require.NoError(t, New(path).Import(context.Background(), st, importers))

	// The stream arrives decompressed and the version is registered.
	assert.Equal(t, csvData, string(got))
	assert.Equal(t, "v1", gotVersion.Version)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), gotVersion.CreatedAt)
}

func TestImportVersionConflict(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "ecotone.db"), 2)
	require.NoError(t, err)
	defer st.Close()

	path := writeArchive(t, map[string][]byte{metaFilename: []byte(testMeta)})
	require.NoError(t, New(path).Import(context.Background(), st, nil))

	// Same dataset version with a different published_at is a client
	// mistake and aborts.
	conflicting := bytes.Replace([]byte(testMeta),
		[]byte("published_at = 2024-01-01T00:00:00Z"),
		[]byte("published_at = 2025-06-06T00:00:00Z"), 1)
	path = writeArchive(t, map[string][]byte{metaFilename: conflicting})

	err = New(path).Import(context.Background(), st, nil)
	assert.ErrorIs(t, err, store.ErrVersionConflict)
}
