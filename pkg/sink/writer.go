package sink

import (
	"context"
	"strconv"

	"github.com/cuemby/persistsink/pkg/log"
	"github.com/cuemby/persistsink/pkg/metrics"
	"github.com/cuemby/persistsink/pkg/shard"
	"github.com/cuemby/persistsink/pkg/types"
	"github.com/rs/zerolog"
)

// workerLabel renders a worker index as a Prometheus label value.
func workerLabel(i int) string {
	return strconv.Itoa(i)
}

// writerOperator is the per-worker correction-maintaining, batch-producing
// half of the sink. Every worker runs exactly one, regardless
// of leadership — unlike the minter and appender, correction accounting
// has no single leader.
type writerOperator struct {
	sinkID      string
	workerIndex int
	handle      *shard.Writer

	correction *types.CorrectionBuffer

	desiredCh  chan types.Update
	persistCh  chan types.Update
	descCh     chan types.Description
	artifactCh chan<- artifactMsg

	desiredFrontier *frontierCell
	persistFrontier *frontierCell

	pending map[pendingKey]types.Description
	logger  zerolog.Logger
}

// pendingKey identifies an in-flight description by its lower bound;
// no two descriptions minted for the same sink ever share a lower, so
// this is sufficient.
type pendingKey struct {
	lower types.Frontier
}

// artifactMsg is what a writer hands to the appender: a hollow batch plus
// the description it was produced for, so the appender can group
// artifacts without rehydrating them first.
type artifactMsg struct {
	desc   types.Description
	hollow types.HollowBatch
}

func newWriterOperator(sinkID string, workerIndex int, handle *shard.Writer, descCh chan types.Description, artifactCh chan<- artifactMsg, desiredFrontier, persistFrontier *frontierCell) *writerOperator {
	return &writerOperator{
		sinkID:          sinkID,
		workerIndex:     workerIndex,
		handle:          handle,
		correction:      types.NewCorrectionBuffer(),
		desiredCh:       make(chan types.Update, 256),
		persistCh:       make(chan types.Update, 256),
		descCh:          descCh,
		artifactCh:      artifactCh,
		desiredFrontier: desiredFrontier,
		persistFrontier: persistFrontier,
		pending:         make(map[pendingKey]types.Description),
	}
}

// submitDesired queues a desired-side update for this writer. Blocks if
// the writer's inbound buffer is full, providing natural backpressure.
func (w *writerOperator) submitDesired(ctx context.Context, u types.Update) error {
	select {
	case w.desiredCh <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submitPersist queues a persist-readback update for this writer.
func (w *writerOperator) submitPersist(ctx context.Context, u types.Update) error {
	select {
	case w.persistCh <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writerOperator) run(ctx context.Context) error {
	w.logger = log.WithWorker("writer", w.workerIndex)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case u, ok := <-w.desiredCh:
			if !ok {
				w.desiredCh = nil
				continue
			}
			w.correction.Append(u)

		case u, ok := <-w.persistCh:
			if !ok {
				w.persistCh = nil
				continue
			}
			u.Diff = -u.Diff
			w.correction.Append(u)

		case d, ok := <-w.descCh:
			if !ok {
				w.descCh = nil
				continue
			}
			w.pending[pendingKey{lower: d.Lower}] = d

		case <-w.desiredFrontier.Wait():
		case <-w.persistFrontier.Wait():
		}

		if err := w.tryEmit(ctx); err != nil {
			return err
		}
	}
}

// tryEmit evaluates readiness for every pending description and uploads
// an artifact for each one that is ready: the desired frontier must have
// passed the description's upper and the persist frontier must have
// passed its lower. Descriptions arrive over an order-preserving
// broadcast channel with strictly increasing lowers, so "no earlier
// description still to come" always holds for anything already in
// w.pending — it is enforced by construction, not re-checked here.
func (w *writerOperator) tryEmit(ctx context.Context) error {
	desired := w.desiredFrontier.Get()
	persist := w.persistFrontier.Get()

	w.correction.AdvanceBy(persist)

	for key, d := range w.pending {
		if desired.Less(d.Upper) {
			continue
		}
		if persist.Less(d.Lower) {
			continue
		}

		w.correction.Consolidate()
		updates := w.correction.Slice(d)

		if len(updates) > 0 {
			batch, err := w.handle.Batch(updates, d.Lower, d.Upper)
			if err != nil {
				return err
			}
			select {
			case w.artifactCh <- artifactMsg{desc: d, hollow: batch.Hollow()}:
			case <-ctx.Done():
				return ctx.Err()
			}
			metrics.BatchesWritten.WithLabelValues(w.sinkID, workerLabel(w.workerIndex)).Inc()
			w.logger.Trace().Str("description", d.String()).Msg("wrote batch artifact")
		} else {
			select {
			case w.artifactCh <- artifactMsg{desc: d}:
			case <-ctx.Done():
				return ctx.Err()
			}
			w.logger.Trace().Str("description", d.String()).Msg("empty correction window, no artifact")
		}

		metrics.CorrectionBufferLen.WithLabelValues(w.sinkID, workerLabel(w.workerIndex)).Set(float64(w.correction.Len()))
		delete(w.pending, key)
	}
	return nil
}
