package importer

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/metrics"
)

// Config tunes the pipeline. Zero values fall back to the defaults the
// store is indexed for.
type Config struct {
	// ChunkSize is the number of rows framed per chunk.
	ChunkSize int
	// BatchSize is the number of operations per dedup/insert dispatch.
	BatchSize int
	// Workers bounds concurrent dedup/insert dispatches.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 20_000
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10_000
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	return c
}

// Run imports one CSV stream as operation logs: frame, deduplicate,
// bulk insert. Framing is sequential; dedup and insert fan out over the
// worker pool per batch. On context cancellation no new chunks are
// pulled; in-flight batches finish and are persisted.
func Run[R Record[A], A crdt.Atom](
	ctx context.Context,
	source RowSource[R],
	loader OperationLoader[A],
	datasetVersionID uuid.UUID,
	cfg Config,
	progress *metrics.Progress,
) error {
	cfg = cfg.withDefaults()
	framer := NewFramer[R, A](source, datasetVersionID, progress)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		ops, done, err := framer.NextChunk(cfg.ChunkSize)
		if err != nil {
			return err
		}

		if len(ops) > 0 {
			if err := importChunk(ctx, ops, loader, cfg, progress); err != nil {
				return err
			}
		}
		if done {
			return nil
		}
	}
}

// importChunk fans the chunk's operations out to the dedup/insert
// workers in batches. The batches are disjoint by construction and the
// LWW reducer downstream is order-insensitive modulo operation id, so
// batch completion order does not matter.
func importChunk[A crdt.Atom](
	ctx context.Context,
	ops []crdt.Operation[A],
	loader OperationLoader[A],
	cfg Config,
	progress *metrics.Progress,
) error {
	// cancellation takes effect at chunk boundaries; batches already
	// dispatched run to completion so the store is left consistent
	opCtx := context.WithoutCancel(ctx)

	var group errgroup.Group
	group.SetLimit(cfg.Workers)

	for start := 0; start < len(ops); start += cfg.BatchSize {
		end := min(start+cfg.BatchSize, len(ops))
		batch := ops[start:end]

		group.Go(func() error {
			changes, err := DistinctChanges(opCtx, batch, loader)
			if err != nil {
				return err
			}

			inserted, err := loader.UpsertOperations(opCtx, changes)
			if err != nil {
				return err
			}

			progress.AddOperations(len(batch))
			progress.AddInserted(inserted)
			return nil
		})
	}

	return group.Wait()
}
