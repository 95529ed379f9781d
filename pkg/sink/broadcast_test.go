package sink

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/persistsink/pkg/types"
)

func TestDescriptionBrokerFanOutToAllSubscribers(t *testing.T) {
	b := newDescriptionBroker()
	sub1 := b.subscribe()
	sub2 := b.subscribe()

	desc := types.Description{Lower: types.MinFrontier(), Upper: types.At(2)}
	go b.publish(context.Background(), desc)

	for _, sub := range []chan types.Description{sub1, sub2} {
		select {
		case got := <-sub:
			if got != desc {
				t.Fatalf("subscriber got %v, want %v", got, desc)
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive the published description")
		}
	}
}

func TestDescriptionBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := newDescriptionBroker()
	sub := b.subscribe()
	b.unsubscribe(sub)

	_, ok := <-sub
	if ok {
		t.Fatal("expected subscriber channel to be closed")
	}
}

func TestDescriptionBrokerCloseAllClosesEverySubscriber(t *testing.T) {
	b := newDescriptionBroker()
	subs := []chan types.Description{b.subscribe(), b.subscribe(), b.subscribe()}

	b.closeAll()

	for _, sub := range subs {
		_, ok := <-sub
		if ok {
			t.Fatal("expected every subscriber channel to be closed")
		}
	}
}
