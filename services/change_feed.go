package services

import (
	"sync"
	"time"

	"github.com/cafein/cafein-backend/utils"
	"github.com/sirupsen/logrus"
)

const Wildcard = "*"

// ChangeEvent reports a committed row change. Origin is empty for changes
// observed by this instance and carries the peer id for relayed ones.
type ChangeEvent struct {
	Schema      string    `json:"schema"`
	Table       string    `json:"table"`
	Type        string    `json:"type"`
	RecordID    int64     `json:"record_id"`
	CommittedAt time.Time `json:"committed_at"`
	Origin      string    `json:"origin,omitempty"`
}

// ChangeFilter selects events. An empty field or "*" matches anything.
type ChangeFilter struct {
	Schema string
	Table  string
	Event  string
}

// OrdersFilter is the subscription used by live order views.
var OrdersFilter = ChangeFilter{Schema: "public", Table: "orders", Event: Wildcard}

func (f ChangeFilter) Matches(ev ChangeEvent) bool {
	return matchPart(f.Schema, ev.Schema) && matchPart(f.Table, ev.Table) && matchPart(f.Event, ev.Type)
}

func matchPart(want, got string) bool {
	return want == "" || want == Wildcard || want == got
}

// ChangeFeed fans committed changes out to in-process subscribers.
type ChangeFeed struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	nextID  uint64
	bufSize int
	log     logrus.FieldLogger
}

func NewChangeFeed(log logrus.FieldLogger) *ChangeFeed {
	return &ChangeFeed{
		subs:    make(map[uint64]*Subscription),
		bufSize: 64,
		log:     utils.LoggerOrDefault(log),
	}
}

type Subscription struct {
	id     uint64
	filter ChangeFilter
	ch     chan ChangeEvent
	feed   *ChangeFeed
	once   sync.Once
}

func (f *ChangeFeed) Subscribe(filter ChangeFilter) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	sub := &Subscription{
		id:     f.nextID,
		filter: filter,
		ch:     make(chan ChangeEvent, f.bufSize),
		feed:   f,
	}
	f.subs[sub.id] = sub
	return sub
}

// Publish never blocks. When a subscriber's buffer is full the event is
// dropped for that subscriber: the queued events already guarantee a
// refetch that observes this commit.
func (f *ChangeFeed) Publish(ev ChangeEvent) {
	if ev.CommittedAt.IsZero() {
		ev.CommittedAt = time.Now()
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subs {
		if !sub.filter.Matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			f.log.WithFields(logrus.Fields{
				"table":     ev.Table,
				"record_id": ev.RecordID,
			}).Debug("Subscriber buffer full, event coalesced")
		}
	}
}

func (f *ChangeFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (s *Subscription) Events() <-chan ChangeEvent {
	return s.ch
}

// Close unsubscribes and closes the event channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.feed.mu.Lock()
		delete(s.feed.subs, s.id)
		s.feed.mu.Unlock()
		close(s.ch)
	})
}
