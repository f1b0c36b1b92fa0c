package metrics

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/ecotone-bio/ecotone/pkg/log"
)

// Progress tracks one import or projection phase: bytes consumed,
// frames produced, operations inserted. It mirrors the counters into
// prometheus and emits a periodic progress line.
type Progress struct {
	kind string

	bytes      atomic.Int64
	rows       atomic.Int64
	rowErrors  atomic.Int64
	frames     atomic.Int64
	operations atomic.Int64
	inserted   atomic.Int64
	reduced    atomic.Int64
	skipped    atomic.Int64

	stopCh chan struct{}
}

// NewProgress creates a tracker for the given entity kind.
func NewProgress(kind string) *Progress {
	return &Progress{
		kind:   kind,
		stopCh: make(chan struct{}),
	}
}

// Start begins emitting a progress log line on the given interval.
func (p *Progress) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ticker.C:
				p.emit()
			case <-p.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop halts the ticker and emits the final summary line.
func (p *Progress) Stop() {
	close(p.stopCh)
	p.summary()
}

func (p *Progress) emit() {
	logger := log.WithKind(p.kind)
	logger.Info().
		Int64("bytes", p.bytes.Load()).
		Int64("rows", p.rows.Load()).
		Int64("frames", p.frames.Load()).
		Int64("operations", p.operations.Load()).
		Int64("inserted", p.inserted.Load()).
		Msg("progress")
}

func (p *Progress) summary() {
	logger := log.WithKind(p.kind)
	logger.Info().
		Int64("bytes", p.bytes.Load()).
		Int64("rows", p.rows.Load()).
		Int64("row_errors", p.rowErrors.Load()).
		Int64("frames", p.frames.Load()).
		Int64("operations", p.operations.Load()).
		Int64("inserted", p.inserted.Load()).
		Int64("reduced", p.reduced.Load()).
		Int64("skipped", p.skipped.Load()).
		Msg("phase finished")
}

// AddBytes records decompressed CSV bytes consumed from an archive entry.
func (p *Progress) AddBytes(n int64) {
	p.bytes.Add(n)
	BytesRead.WithLabelValues(p.kind).Add(float64(n))
}

// AddRows records parsed CSV rows.
func (p *Progress) AddRows(n int) {
	p.rows.Add(int64(n))
	RowsRead.WithLabelValues(p.kind).Add(float64(n))
}

// AddRowError records a dropped row.
func (p *Progress) AddRowError() {
	p.rowErrors.Add(1)
	RowsFailed.WithLabelValues(p.kind).Inc()
}

// AddFrames records decomposed frames.
func (p *Progress) AddFrames(n int) {
	p.frames.Add(int64(n))
	FramesProduced.WithLabelValues(p.kind).Add(float64(n))
}

// AddOperations records candidate operations before deduplication.
func (p *Progress) AddOperations(n int) {
	p.operations.Add(int64(n))
	OperationsProduced.WithLabelValues(p.kind).Add(float64(n))
}

// AddInserted records operations that survived deduplication.
func (p *Progress) AddInserted(n int) {
	p.inserted.Add(int64(n))
	OperationsInserted.WithLabelValues(p.kind).Add(float64(n))
}

// AddReduced records entities reduced during projection.
func (p *Progress) AddReduced(n int) {
	p.reduced.Add(int64(n))
	EntitiesReduced.WithLabelValues(p.kind).Add(float64(n))
}

// AddSkipped records entities skipped during projection.
func (p *Progress) AddSkipped(n int) {
	p.skipped.Add(int64(n))
	EntitiesSkipped.WithLabelValues(p.kind).Add(float64(n))
}

// Inserted returns the operations inserted so far.
func (p *Progress) Inserted() int64 { return p.inserted.Load() }

// Rows returns the rows read so far.
func (p *Progress) Rows() int64 { return p.rows.Load() }

// CountingReader wraps a stream and reports consumed bytes into a
// Progress tracker.
type CountingReader struct {
	r        io.Reader
	progress *Progress
}

// NewCountingReader wraps r so every read is accounted against p.
func NewCountingReader(r io.Reader, p *Progress) *CountingReader {
	return &CountingReader{r: r, progress: p}
}

func (c *CountingReader) Read(buf []byte) (int, error) {
	n, err := c.r.Read(buf)
	if n > 0 {
		c.progress.AddBytes(int64(n))
	}
	return n, err
}
