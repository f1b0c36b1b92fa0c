package loggers

import (
	"context"
	"io"

	"github.com/ecotone-bio/ecotone/pkg/archive"
	"github.com/ecotone-bio/ecotone/pkg/config"
	"github.com/ecotone-bio/ecotone/pkg/importer"
	"github.com/ecotone-bio/ecotone/pkg/metrics"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// importKind wires one entity kind's record and atom types into the
// generic import pipeline and returns the archive importer for it.
func importKind[R importer.Record[A], A payloadAtom](
	st *store.Store,
	cfg config.Config,
	kind store.Kind,
	decode func(tag, value string) (A, error),
) archive.Importer {
	return func(ctx context.Context, stream io.Reader, version store.DatasetVersion) error {
		progress := metrics.NewProgress(kind.String())
		progress.Start(progressInterval)
		defer progress.Stop()

		source, err := importer.NewCSVSource[R](metrics.NewCountingReader(stream, progress))
		if err != nil {
			return err
		}

		loader := newLoader(st, kind, version, decode)
		return importer.Run[R, A](ctx, source, loader, version.ID, importer.Config{
			ChunkSize: cfg.ChunkSize,
			BatchSize: cfg.InsertBatchSize,
			Workers:   cfg.Workers,
		}, progress)
	}
}
