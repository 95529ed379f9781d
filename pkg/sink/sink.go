package sink

import (
	"context"
	"fmt"

	"github.com/cuemby/persistsink/pkg/log"
	"github.com/cuemby/persistsink/pkg/metrics"
	"github.com/cuemby/persistsink/pkg/shard"
	"github.com/cuemby/persistsink/pkg/types"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Sink drives one shard toward a continuously-changing desired relation.
// It owns P writer operators, one minter, and one appender. Construct
// with NewSink, feed it via SubmitDesired/SubmitPersistReadback and the
// Advance* methods, then call Run.
type Sink struct {
	cfg    Config
	client *shard.Client
	logger zerolog.Logger

	writers  []*writerOperator
	minter   *minterOperator
	appender *appenderOperator

	desiredFrontier *frontierCell
	persistFrontier *frontierCell
	appenderOutput  *frontierCell
	sharedFrontier  *frontierCell

	broker *descriptionBroker
}

// NewSink constructs a sink over an already-open shard client. The
// caller is responsible for opening the client via shard.Open — the
// pooled client cache is shared across every sink targeting the
// same shard, not owned by any one Sink.
func NewSink(cfg Config, client *shard.Client) (*Sink, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Sink{
		cfg:             cfg,
		client:          client,
		logger:          log.WithSinkID(cfg.SinkID),
		desiredFrontier: newFrontierCell(types.MinFrontier()),
		persistFrontier: newFrontierCell(types.MinFrontier()),
		appenderOutput:  newFrontierCell(types.MinFrontier()),
		sharedFrontier:  newFrontierCell(types.MinFrontier()),
		broker:          newDescriptionBroker(),
	}

	leader := leaderWorker(cfg.SinkID, cfg.WorkerCount)
	artifactCh := make(chan artifactMsg, 256)
	leaderDescCh := make(chan types.Description, 16)

	s.writers = make([]*writerOperator, cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		handle := client.OpenWriter(fmt.Sprintf("writer-%d", i))
		descCh := s.broker.subscribe()
		s.writers[i] = newWriterOperator(cfg.SinkID, i, handle, descCh, artifactCh, s.desiredFrontier, s.persistFrontier)
	}

	s.minter = newMinterOperator(cfg.SinkID, cfg.AsOf, client.OpenWriter("minter"), s.broker, leaderDescCh, s.desiredFrontier, s.appenderOutput, s.sharedFrontier)
	s.appender = newAppenderOperator(cfg.SinkID, cfg.WorkerCount, client.OpenWriter("appender"), leaderDescCh, artifactCh, s.appenderOutput)

	s.logger.Debug().Int("leader_worker", leader).Int("worker_count", cfg.WorkerCount).Msg("sink constructed")
	return s, nil
}

// SubmitDesired routes a desired-side update to the writer responsible
// for its payload (hash(payload) mod P).
func (s *Sink) SubmitDesired(ctx context.Context, u types.Update) error {
	idx := workerFor(u.Payload.Key(), s.cfg.WorkerCount)
	return s.writers[idx].submitDesired(ctx, u)
}

// SubmitPersistReadback routes a persist-readback update to the same
// writer that handles the payload's desired-side updates.
func (s *Sink) SubmitPersistReadback(ctx context.Context, u types.Update) error {
	idx := workerFor(u.Payload.Key(), s.cfg.WorkerCount)
	return s.writers[idx].submitPersist(ctx, u)
}

// AdvanceDesired reports that no more desired updates will arrive below
// f. Feeds the minter's upper proposal and the writers' readiness check.
func (s *Sink) AdvanceDesired(f types.Frontier) {
	s.desiredFrontier.Advance(f)
}

// AdvancePersistReadback reports that no more persist-readback updates
// will arrive below f. Feeds the writers' readiness check; it is
// intentionally disconnected from the writers' output frontier —
// advancing it never blocks artifact emission, it only unblocks it.
func (s *Sink) AdvancePersistReadback(f types.Frontier) {
	s.persistFrontier.Advance(f)
}

// Frontier returns the sink's current shared write frontier: the
// controller-visible claim "all data below this frontier is durably
// stored".
func (s *Sink) Frontier() types.Frontier {
	return s.sharedFrontier.Get()
}

// Run starts every operator and blocks until ctx is cancelled or one of
// them returns a fatal error. This is the compound shutdown token:
// cancelling ctx tears down every operator together, and the first
// non-context-cancellation error is returned.
func (s *Sink) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, w := range s.writers {
		w := w
		g.Go(func() error {
			return swallowCancellation(gctx, w.run(gctx))
		})
	}

	g.Go(func() error {
		return swallowCancellation(gctx, s.minter.run(gctx))
	})
	g.Go(func() error {
		return swallowCancellation(gctx, s.appender.run(gctx))
	})
	g.Go(func() error {
		return s.watchSharedFrontier(gctx)
	})

	err := g.Wait()
	s.broker.closeAll()
	s.sharedFrontier.Advance(types.EmptyFrontier())
	metrics.SharedFrontier.WithLabelValues(s.cfg.SinkID).Set(-1)
	if err != nil {
		s.logger.Error().Err(err).Msg("sink terminated with a fatal error")
		return err
	}
	return nil
}

// watchSharedFrontier mirrors the shared write frontier into a gauge so
// an embedding controller can scrape progress without polling Frontier.
func (s *Sink) watchSharedFrontier(ctx context.Context) error {
	for {
		f := s.sharedFrontier.Get()
		if f.IsEmpty() {
			metrics.SharedFrontier.WithLabelValues(s.cfg.SinkID).Set(-1)
		} else {
			metrics.SharedFrontier.WithLabelValues(s.cfg.SinkID).Set(float64(f.Timestamp()))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-s.sharedFrontier.Wait():
		}
	}
}

// swallowCancellation turns a context-cancellation error from a clean
// shutdown into nil, while letting every other error (including
// deadline-exceeded on an operator's own timeout, which never shares
// ctx's cause) propagate as fatal.
func swallowCancellation(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil && err == ctx.Err() {
		return nil
	}
	return err
}
