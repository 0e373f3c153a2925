package protocol

import (
	"context"
	"sync"
	"time"

	"github.com/editaylors7/Dungeon-Gen-FHE/crypto"
	"github.com/editaylors7/Dungeon-Gen-FHE/fhe"
)

// EventKind labels a lifecycle notification.
type EventKind string

const (
	EventBatchOpened              EventKind = "BatchOpened"
	EventBatchClosed              EventKind = "BatchClosed"
	EventPartyAttributesSubmitted EventKind = "PartyAttributesSubmitted"
	EventDungeonSeedGenerated     EventKind = "DungeonSeedGenerated"
	EventDecryptionRequested      EventKind = "DecryptionRequested"
	EventDecryptionCompleted      EventKind = "DecryptionCompleted"
)

// Event is a lifecycle notification delivered to subscribers. Submission
// events carry the provider identity but never contribution values; only
// EventDecryptionCompleted carries plaintext, and only after verification.
type Event struct {
	Kind      EventKind       `json:"kind"`
	BatchID   uint64          `json:"batch_id"`
	Provider  crypto.Address  `json:"provider,omitempty"`
	RequestID fhe.RequestID   `json:"request_id,omitempty"`
	Values    *RevealedValues `json:"values,omitempty"`
	Time      time.Time       `json:"time"`
}

// RevealedValues are the decrypted aggregates delivered by a finalized
// decryption callback.
type RevealedValues struct {
	Strength  uint64 `json:"strength"`
	Agility   uint64 `json:"agility"`
	Intellect uint64 `json:"intellect"`
	Seed      uint64 `json:"seed"`
}

type eventSubscriber struct {
	ctx context.Context
	ch  chan Event
}

// eventFeed fans lifecycle events out to context-scoped subscribers.
// Delivery is best effort: a subscriber that stops draining its channel
// loses events rather than blocking the state machine.
type eventFeed struct {
	mu          sync.Mutex
	subscribers []eventSubscriber
}

func newEventFeed() *eventFeed {
	return &eventFeed{subscribers: make([]eventSubscriber, 0)}
}

// subscribe registers a channel that receives events until ctx is done.
func (f *eventFeed) subscribe(ctx context.Context) <-chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, 64)
	f.subscribers = append(f.subscribers, eventSubscriber{ctx, ch})
	return ch
}

// publish delivers an event to all live subscribers and drops the dead ones.
func (f *eventFeed) publish(ev Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	live := f.subscribers[:0]
	for _, sub := range f.subscribers {
		select {
		case <-sub.ctx.Done():
			close(sub.ch)
			continue
		default:
		}

		select {
		case sub.ch <- ev:
		default:
			// Subscriber is not keeping up; drop the event.
		}
		live = append(live, sub)
	}
	f.subscribers = live
}
