package sink

import (
	"context"
	"errors"

	"github.com/cuemby/persistsink/pkg/log"
	"github.com/cuemby/persistsink/pkg/metrics"
	"github.com/cuemby/persistsink/pkg/shard"
	"github.com/cuemby/persistsink/pkg/types"
	"github.com/rs/zerolog"
)

// minterOperator is the single-leader description-proposing half of the
// sink. Exactly one runs per Sink, which plays the leader's role for
// the whole worker group (see the package doc).
type minterOperator struct {
	sinkID string
	asOf   types.Frontier
	handle *shard.Writer
	logger zerolog.Logger

	broker        *descriptionBroker
	leaderDescCh  chan<- types.Description
	desiredInput  *frontierCell
	persistOutput *frontierCell // fed by the appender's feedback loop
	sharedOutput  *frontierCell // externally visible "shared write frontier"
}

func newMinterOperator(sinkID string, asOf types.Frontier, handle *shard.Writer, broker *descriptionBroker, leaderDescCh chan<- types.Description, desiredInput, persistOutput, sharedOutput *frontierCell) *minterOperator {
	return &minterOperator{
		sinkID:        sinkID,
		asOf:          asOf,
		handle:        handle,
		logger:        log.WithComponent("minter"),
		broker:        broker,
		leaderDescCh:  leaderDescCh,
		desiredInput:  desiredInput,
		persistOutput: persistOutput,
		sharedOutput:  sharedOutput,
	}
}

// ensureAsOf performs the bootstrap empty append: if the shard's
// current upper is below asOf, advance it there. A conflict from a
// concurrent writer is benign — the observed upper is re-read and
// treated as ground truth, looping until it reaches asOf or the loop is
// cancelled. This is the "idempotent bootstrap retried across re-reads"
// behavior restored from the original persist sink: a blind retry of
// the same append would re-conflict forever once another sink has
// already advanced the shard past asOf.
func (m *minterOperator) ensureAsOf(ctx context.Context) (types.Frontier, error) {
	for {
		if err := ctx.Err(); err != nil {
			return types.Frontier{}, err
		}
		current := m.handle.Upper()
		if !current.Less(m.asOf) {
			return current, nil
		}

		err := m.handle.Append(ctx, current, m.asOf)
		if err == nil {
			return m.asOf, nil
		}

		var conflict *shard.ConflictError
		if errors.As(err, &conflict) {
			m.logger.Trace().Str("actual_upper", conflict.Actual.String()).Msg("bootstrap append lost race, re-reading upper")
			if !conflict.Actual.Less(m.asOf) {
				return conflict.Actual, nil
			}
			continue
		}

		m.logger.Error().Err(err).Msg("bootstrap append failed fatally")
		return types.Frontier{}, err
	}
}

func (m *minterOperator) run(ctx context.Context) error {
	observedPersistUpper, err := m.ensureAsOf(ctx)
	if err != nil {
		return err
	}

	m.persistOutput.Advance(observedPersistUpper)
	m.sharedOutput.Advance(observedPersistUpper)

	lastProposedLower := observedPersistUpper
	proposed := false

	var persistWake, desiredWake <-chan struct{}
	for first := true; ; first = false {
		if !first {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-persistWake:
			case <-desiredWake:
			}
		}
		// Take both wake channels before reading the cells, so an Advance
		// that lands after the reads below still wakes the next wait.
		persistWake, desiredWake = m.persistOutput.Wait(), m.desiredInput.Wait()

		persistUpper := m.persistOutput.Get()
		m.sharedOutput.Advance(persistUpper)

		// The very first proposal is bound only by bootstrap; every
		// proposal after that requires the persist frontier to have
		// actually moved past the previous proposal's lower.
		if proposed && !lastProposedLower.Less(persistUpper) {
			continue
		}

		desired := m.desiredInput.Get()
		lower := persistUpper
		upper := desired

		// No description to propose until the desired frontier has
		// advanced strictly past the persist frontier.
		if !lower.Less(upper) {
			continue
		}

		desc := types.Description{Lower: lower, Upper: upper}
		if err := desc.Validate(); err != nil {
			m.logger.Error().Err(err).Msg("minted an invalid description, programming invariant violated")
			return err
		}

		if err := m.broker.publish(ctx, desc); err != nil {
			return err
		}
		select {
		case m.leaderDescCh <- desc:
		case <-ctx.Done():
			return ctx.Err()
		}

		metrics.DescriptionsMinted.WithLabelValues(m.sinkID).Inc()
		m.logger.Trace().Str("description", desc.String()).Msg("minted description")
		lastProposedLower = lower
		proposed = true
	}
}
