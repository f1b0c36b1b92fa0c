package loggers

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/log"
	"github.com/ecotone-bio/ecotone/pkg/metrics"
	"github.com/ecotone-bio/ecotone/pkg/store"
)

// projection describes one kind's reduce-and-upsert pass. The projector
// pages the log by entity id, reduces each entity through an LWW map,
// and bulk-upserts the resulting rows. Reduce failures skip the entity
// and the page continues; re-running the projector is the recovery
// path.
type projection[A payloadAtom, R any] struct {
	kind     store.Kind
	decode   func(tag, value string) (A, error)
	reduce   func(entityID string, atoms []A) (R, error)
	upsert   func(ctx context.Context, rows []R) error
	pageSize int
	workers  int
}

func (p projection[A, R]) run(ctx context.Context, st *store.Store) error {
	logger := log.WithKind(p.kind.String())

	total, err := st.CountEntities(ctx, p.kind)
	if err != nil {
		return err
	}
	if total == 0 {
		logger.Debug().Msg("no entities to project")
		return nil
	}

	pageSize := p.pageSize
	if pageSize <= 0 {
		pageSize = 1_000
	}
	workers := p.workers
	if workers <= 0 {
		workers = 1
	}
	pages := int((total + int64(pageSize) - 1) / int64(pageSize))

	progress := metrics.NewProgress(p.kind.String())
	logger.Info().Int64("entities", total).Int("pages", pages).Msg("projecting")

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	for page := 0; page < pages; page++ {
		page := page
		group.Go(func() error {
			return p.projectPage(ctx, st, page, pageSize, progress)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	progress.Stop()
	return nil
}

func (p projection[A, R]) projectPage(ctx context.Context, st *store.Store, page, pageSize int, progress *metrics.Progress) error {
	logger := log.WithKind(p.kind.String())

	ids, err := st.PageEntityIDs(ctx, p.kind, page, pageSize)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	raw, err := st.LoadEntityOperations(ctx, p.kind, ids)
	if err != nil {
		return err
	}
	ops, err := decodeOps(raw, p.decode)
	if err != nil {
		return err
	}

	grouped := GroupOps(ops)

	rows := make([]R, 0, len(grouped))
	for entityID, entityOps := range grouped {
		m := crdt.NewMap[A](entityID)
		m.Reduce(entityOps)

		row, err := p.reduce(entityID, m.Atoms())
		if err != nil {
			logger.Error().Str("entity_id", entityID).Err(err).Msg("skipping entity")
			progress.AddSkipped(1)
			continue
		}
		rows = append(rows, row)
	}

	if err := p.upsert(ctx, rows); err != nil {
		return err
	}
	progress.AddReduced(len(rows))
	return nil
}

// GroupOps groups typed operations by entity id, preserving the input's
// operation-id order within each group.
func GroupOps[A crdt.Atom](ops []crdt.Operation[A]) map[string][]crdt.Operation[A] {
	grouped := make(map[string][]crdt.Operation[A])
	for _, op := range ops {
		grouped[op.EntityID] = append(grouped[op.EntityID], op)
	}
	return grouped
}
