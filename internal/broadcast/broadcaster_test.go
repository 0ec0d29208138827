package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToGroupSubscriber(t *testing.T) {
	b := New(NewMemoryBus(nil))
	defer b.Close()

	received := make(chan *Event, 1)
	sub, err := b.Subscribe("group-1", func(e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(EventAgentMessage, "group-1", map[string]interface{}{"content": "hi"}))

	select {
	case e := <-received:
		assert.Equal(t, EventAgentMessage, e.Type)
		assert.Equal(t, "group-1", e.GroupID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcasterDoesNotLeakAcrossGroups(t *testing.T) {
	b := New(NewMemoryBus(nil))
	defer b.Close()

	received := make(chan *Event, 1)
	sub, err := b.Subscribe("group-1", func(e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(EventUserMessage, "group-2", nil))

	select {
	case <-received:
		t.Fatal("subscriber to group-1 should not receive group-2 events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcasterSubscribeAllSeesEveryGroup(t *testing.T) {
	b := New(NewMemoryBus(nil))
	defer b.Close()

	received := make(chan *Event, 2)
	sub, err := b.SubscribeAll(func(e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(EventUserMessage, "group-1", nil))
	require.NoError(t, b.Publish(EventUserMessage, "group-2", nil))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case e := <-received:
			seen[e.GroupID] = true
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for events")
		}
	}
	assert.True(t, seen["group-1"])
	assert.True(t, seen["group-2"])
}

func TestBroadcasterUnsubscribeStopsDelivery(t *testing.T) {
	b := New(NewMemoryBus(nil))
	defer b.Close()

	received := make(chan *Event, 1)
	sub, err := b.Subscribe("group-1", func(e *Event) error {
		received <- e
		return nil
	})
	require.NoError(t, err)
	require.True(t, sub.IsValid())

	require.NoError(t, sub.Unsubscribe())
	assert.False(t, sub.IsValid())

	require.NoError(t, b.Publish(EventUserMessage, "group-1", nil))

	select {
	case <-received:
		t.Fatal("unsubscribed handler should not receive events")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBroadcasterFailingHandlerIsRemoved(t *testing.T) {
	bus := NewMemoryBus(nil)
	b := New(bus)
	defer b.Close()

	calls := make(chan struct{}, 3)
	sub, err := b.Subscribe("group-1", func(e *Event) error {
		calls <- struct{}{}
		return assert.AnError
	})
	require.NoError(t, err)

	require.NoError(t, b.Publish(EventUserMessage, "group-1", nil))
	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("handler never invoked")
	}

	// give the failure-triggered unsubscribe goroutine a moment to run
	time.Sleep(50 * time.Millisecond)
	assert.False(t, sub.IsValid())
}

func TestPublishOnClosedBusErrors(t *testing.T) {
	b := New(NewMemoryBus(nil))
	b.Close()
	err := b.Publish(EventUserMessage, "group-1", nil)
	assert.Error(t, err)
}
