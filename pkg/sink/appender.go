package sink

import (
	"context"
	"errors"
	"sort"

	"github.com/cuemby/persistsink/pkg/log"
	"github.com/cuemby/persistsink/pkg/metrics"
	"github.com/cuemby/persistsink/pkg/shard"
	"github.com/cuemby/persistsink/pkg/types"
	"github.com/rs/zerolog"
)

// appenderOperator is the single-leader commit half of the sink.
// Exactly one runs per Sink: this Go emulation collapses the P-worker
// group into one process per Sink (see the package doc), so the Sink
// that constructs an appender always plays the leader's role rather
// than conditionally skipping construction on non-leader instances.
type appenderOperator struct {
	sinkID      string
	workerCount int
	handle      *shard.Writer
	logger      zerolog.Logger

	descCh     chan types.Description
	artifactCh chan artifactMsg

	appenderOutput *frontierCell

	pending map[pendingKey]*pendingDescription
}

type pendingDescription struct {
	desc      types.Description
	artifacts []artifactMsg
}

func newAppenderOperator(sinkID string, workerCount int, handle *shard.Writer, descCh chan types.Description, artifactCh chan artifactMsg, appenderOutput *frontierCell) *appenderOperator {
	return &appenderOperator{
		sinkID:         sinkID,
		workerCount:    workerCount,
		handle:         handle,
		logger:         log.WithComponent("appender"),
		descCh:         descCh,
		artifactCh:     artifactCh,
		appenderOutput: appenderOutput,
		pending:        make(map[pendingKey]*pendingDescription),
	}
}

func (a *appenderOperator) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case d, ok := <-a.descCh:
			if !ok {
				a.descCh = nil
				continue
			}
			a.pending[pendingKey{lower: d.Lower}] = &pendingDescription{desc: d}

		case msg, ok := <-a.artifactCh:
			if !ok {
				a.artifactCh = nil
				continue
			}
			key := pendingKey{lower: msg.desc.Lower}
			pd, exists := a.pending[key]
			if !exists {
				pd = &pendingDescription{desc: msg.desc}
				a.pending[key] = pd
			}
			pd.artifacts = append(pd.artifacts, msg)
		}

		if err := a.commitReady(ctx); err != nil {
			return err
		}
	}
}

// commitReady finds every description that has heard from all P writers.
// Each writer emits exactly one artifactMsg per description, so counting
// artifacts stands in for a literal frontier-join completion check.
// Ready descriptions commit in strictly increasing lower order.
func (a *appenderOperator) commitReady(ctx context.Context) error {
	var ready []*pendingDescription
	for key, pd := range a.pending {
		if len(pd.artifacts) >= a.workerCount {
			ready = append(ready, pd)
			delete(a.pending, key)
		}
	}
	if len(ready) == 0 {
		return nil
	}

	sort.Slice(ready, func(i, j int) bool {
		return ready[i].desc.Lower.Less(ready[j].desc.Lower)
	})

	for _, pd := range ready {
		if err := a.commitOne(ctx, pd); err != nil {
			return err
		}
	}
	return nil
}

func (a *appenderOperator) commitOne(ctx context.Context, pd *pendingDescription) error {
	var batches []*shard.Batch
	for _, msg := range pd.artifacts {
		if len(msg.hollow.PartIDs) == 0 {
			continue
		}
		b, err := a.handle.RehydrateBatch(msg.hollow)
		if err != nil {
			return err
		}
		batches = append(batches, b)
	}

	timer := metrics.NewTimer()
	err := a.handle.CompareAndAppendBatch(ctx, batches, pd.desc.Lower, pd.desc.Upper)
	timer.ObserveDurationVec(metrics.CommitDuration, a.sinkID)

	var conflict *shard.ConflictError
	switch {
	case err == nil:
		metrics.CommitsTotal.WithLabelValues(a.sinkID, "committed").Inc()
		a.appenderOutput.Advance(pd.desc.Upper)
		return nil

	case errors.As(err, &conflict):
		a.logger.Trace().Str("description", pd.desc.String()).Str("actual_upper", conflict.Actual.String()).Msg("commit lost race, deleting artifacts")
		metrics.CommitsTotal.WithLabelValues(a.sinkID, "conflict").Inc()
		for _, b := range batches {
			if delErr := b.Delete(ctx); delErr != nil {
				return delErr
			}
		}
		a.appenderOutput.Advance(conflict.Actual)
		return nil

	default:
		a.logger.Error().Err(err).Str("description", pd.desc.String()).Msg("commit indeterminate, failing sink")
		metrics.CommitsTotal.WithLabelValues(a.sinkID, "indeterminate").Inc()
		return err
	}
}
