package sink

import (
	"context"

	"github.com/cuemby/persistsink/pkg/events"
	"github.com/cuemby/persistsink/pkg/types"
)

// descriptionBroker fans out minted descriptions to every writer
// instance. Every writer must see the same sequence of descriptions in
// the same order: this is the broadcast half of the broadcast
// vs. exchange split, as opposed to the appender's exchange-by-hash
// fan-in of artifacts. Built on events.Broker, whose blocking Publish
// is exactly what's needed here: a dropped description would silently
// desynchronize a writer's view of in-flight descriptions.
type descriptionBroker struct {
	broker *events.Broker[types.Description]
}

func newDescriptionBroker() *descriptionBroker {
	return &descriptionBroker{broker: events.NewBroker[types.Description]()}
}

// subscribe returns a new channel that receives every description
// published from this point on. The channel is buffered (64 deep) so a
// writer that falls behind by fewer descriptions than that does not
// stall the minter; a full buffer blocks publish. Writers drain it
// promptly since descriptions drive their whole readiness evaluation.
func (b *descriptionBroker) subscribe() chan types.Description {
	return b.broker.Subscribe(64)
}

// unsubscribe removes and closes a subscriber channel. Safe to call more
// than once.
func (b *descriptionBroker) unsubscribe(ch chan types.Description) {
	b.broker.Unsubscribe(ch)
}

// publish broadcasts a description to every current subscriber, giving
// up if ctx is cancelled before every subscriber has accepted it.
func (b *descriptionBroker) publish(ctx context.Context, d types.Description) error {
	return b.broker.Publish(ctx, d)
}

// closeAll closes every subscriber channel, signalling writers that no
// further descriptions will arrive.
func (b *descriptionBroker) closeAll() {
	b.broker.CloseAll()
}
