package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jszwec/csvutil"

	"github.com/ecotone-bio/ecotone/pkg/crdt"
	"github.com/ecotone-bio/ecotone/pkg/log"
	"github.com/ecotone-bio/ecotone/pkg/metrics"
)

// Record is a deserialized input row that knows how to decompose
// itself. Decomposition pushes mandatory atoms for every present value
// and optional atoms only when present; it fails only on values no
// vocabulary recognises.
type Record[A crdt.Atom] interface {
	// EntityKey returns the stable natural key bytes hashed into the
	// operation entity id.
	EntityKey() []byte
	// Decompose pushes the row's atoms into the frame.
	Decompose(frame *crdt.Frame[A]) error
}

// RowSource yields parsed rows until io.EOF. A row-level parse error is
// returned as *RowError and does not end the stream.
type RowSource[R any] interface {
	Next() (R, error)
}

// RowError wraps a row-level parse failure so the framer can recover
// locally instead of aborting the stream.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// CSVSource decodes comma-delimited UTF-8 rows with a header into R
// using its csv struct tags.
type CSVSource[R any] struct {
	dec *csvutil.Decoder
	row int
}

// NewCSVSource builds a source from a raw CSV stream. Reading the
// header eagerly surfaces empty or malformed files before framing
// starts.
func NewCSVSource[R any](r io.Reader) (*CSVSource[R], error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(reader)
	if err != nil {
		return nil, fmt.Errorf("importer: read csv header: %w", err)
	}
	return &CSVSource[R]{dec: dec}, nil
}

func (s *CSVSource[R]) Next() (R, error) {
	var rec R
	s.row++
	if err := s.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return rec, io.EOF
		}
		return rec, &RowError{Row: s.row, Err: err}
	}
	return rec, nil
}

// Framer decomposes rows into frames, threading the last version across
// frames so every operation id emitted from one stream is strictly
// increasing. It must stay single-threaded; parallelism begins after
// framing.
type Framer[R Record[A], A crdt.Atom] struct {
	source           RowSource[R]
	datasetVersionID uuid.UUID
	last             crdt.Version
	progress         *metrics.Progress
}

// NewFramer wraps source for the given dataset version.
func NewFramer[R Record[A], A crdt.Atom](source RowSource[R], datasetVersionID uuid.UUID, progress *metrics.Progress) *Framer[R, A] {
	return &Framer[R, A]{
		source:           source,
		datasetVersionID: datasetVersionID,
		progress:         progress,
	}
}

// NextChunk frames up to chunkSize rows and returns their operations
// flattened. done is true once the source is exhausted; the final chunk
// may be non-empty and done at once. Row-level failures are logged,
// counted, and skipped.
func (f *Framer[R, A]) NextChunk(chunkSize int) (ops []crdt.Operation[A], done bool, err error) {
	logger := log.WithComponent("framer")

	for n := 0; n < chunkSize; n++ {
		rec, err := f.source.Next()
		if err == io.EOF {
			return ops, true, nil
		}

		var rowErr *RowError
		if errors.As(err, &rowErr) {
			logger.Warn().Int("row", rowErr.Row).Err(rowErr.Err).Msg("dropping unparseable row")
			f.progress.AddRowError()
			continue
		}
		if err != nil {
			return ops, false, err
		}
		f.progress.AddRows(1)

		entityID := crdt.HashIdentity(rec.EntityKey())
		frame := crdt.NewFrame[A](entityID, f.datasetVersionID, f.last)
		if err := rec.Decompose(frame); err != nil {
			logger.Warn().Str("entity_id", entityID).Err(err).Msg("dropping undecomposable row")
			f.progress.AddRowError()
			continue
		}

		f.last = frame.LastVersion()
		ops = append(ops, frame.Collect()...)
		f.progress.AddFrames(1)
	}

	return ops, false, nil
}

// LastVersion exposes the high-water mark, mainly for tests.
func (f *Framer[R, A]) LastVersion() crdt.Version { return f.last }
