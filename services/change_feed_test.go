package services

import (
	"context"
	"testing"
	"time"

	"github.com/cafein/cafein-backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeFilterMatches(t *testing.T) {
	ev := ChangeEvent{Schema: "public", Table: "orders", Type: models.ChangeUpdate}

	assert.True(t, OrdersFilter.Matches(ev))
	assert.True(t, ChangeFilter{}.Matches(ev))
	assert.True(t, ChangeFilter{Table: "orders", Event: models.ChangeUpdate}.Matches(ev))
	assert.False(t, ChangeFilter{Table: "tables"}.Matches(ev))
	assert.False(t, ChangeFilter{Table: "orders", Event: models.ChangeDelete}.Matches(ev))
	assert.False(t, ChangeFilter{Schema: "audit", Table: Wildcard}.Matches(ev))
}

func TestChangeFeedDeliversMatchingEvents(t *testing.T) {
	feed := NewChangeFeed(quietLogger())
	orders := feed.Subscribe(OrdersFilter)
	defer orders.Close()
	tables := feed.Subscribe(ChangeFilter{Table: "tables"})
	defer tables.Close()

	feed.Publish(ChangeEvent{Schema: "public", Table: "orders", Type: models.ChangeInsert, RecordID: 1})
	feed.Publish(ChangeEvent{Schema: "public", Table: "tables", Type: models.ChangeUpdate, RecordID: 2})

	select {
	case ev := <-orders.Events():
		assert.Equal(t, int64(1), ev.RecordID)
		assert.False(t, ev.CommittedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("orders subscriber got nothing")
	}
	select {
	case ev := <-tables.Events():
		assert.Equal(t, int64(2), ev.RecordID)
	case <-time.After(time.Second):
		t.Fatal("tables subscriber got nothing")
	}
	assert.Len(t, orders.Events(), 0)
}

func TestChangeFeedCloseUnsubscribes(t *testing.T) {
	feed := NewChangeFeed(quietLogger())
	sub := feed.Subscribe(OrdersFilter)
	assert.Equal(t, 1, feed.SubscriberCount())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, feed.SubscriberCount())

	_, open := <-sub.Events()
	assert.False(t, open)

	assert.NotPanics(t, func() {
		feed.Publish(ChangeEvent{Schema: "public", Table: "orders", Type: models.ChangeInsert})
	})
}

func TestChangeFeedPublishNeverBlocks(t *testing.T) {
	feed := NewChangeFeed(quietLogger())
	sub := feed.Subscribe(OrdersFilter)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 500; i++ {
			feed.Publish(ChangeEvent{Schema: "public", Table: "orders", Type: models.ChangeUpdate, RecordID: int64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Equal(t, cap(sub.ch), len(sub.Events()))
}

func TestChangeMonitorPublishesOutboxInOrder(t *testing.T) {
	db := newTestDB(t)
	feed := NewChangeFeed(quietLogger())
	sub := feed.Subscribe(ChangeFilter{})
	defer sub.Close()

	m := newLifecycle(db)
	table := seedTable(t, db, "T1", models.TableStatusAvailable)
	order, err := m.CreateDineInOrder(context.Background(), "Alice", table.ID)
	require.NoError(t, err)

	monitor := NewChangeMonitor(db, feed, time.Hour, quietLogger())
	n, err := monitor.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first := <-sub.Events()
	second := <-sub.Events()
	assert.Equal(t, "orders", first.Table)
	assert.Equal(t, int64(order.ID), first.RecordID)
	assert.Equal(t, "public", first.Schema)
	assert.Equal(t, "tables", second.Table)

	assert.Empty(t, pendingChanges(t, db))

	n, err = monitor.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChangeMonitorStartStop(t *testing.T) {
	db := newTestDB(t)
	feed := NewChangeFeed(quietLogger())
	sub := feed.Subscribe(OrdersFilter)
	defer sub.Close()

	monitor := NewChangeMonitor(db, feed, 20*time.Millisecond, quietLogger())
	monitor.Start(context.Background())
	defer monitor.Stop()

	_, err := newLifecycle(db).CreateTakeawayOrder(context.Background(), "Bob")
	require.NoError(t, err)

	select {
	case ev := <-sub.Events():
		assert.Equal(t, models.ChangeInsert, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("monitor did not publish the change")
	}
}
