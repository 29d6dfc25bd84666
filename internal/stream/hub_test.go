package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubBroadcast(t *testing.T) {
	h := NewHub()

	ch1, cancel1 := h.Subscribe()
	ch2, cancel2 := h.Subscribe()
	defer cancel1()
	defer cancel2()

	h.Publish(Event{Type: "new_moment", MomentID: 7})

	ev := <-ch1
	assert.Equal(t, "new_moment", ev.Type)
	assert.Equal(t, uint64(7), ev.MomentID)

	ev = <-ch2
	assert.Equal(t, uint64(7), ev.MomentID)
}

func TestHubNoHistoryForLateSubscriber(t *testing.T) {
	h := NewHub()

	h.Publish(Event{Type: "new_moment", MomentID: 1})

	ch, cancel := h.Subscribe()
	defer cancel()

	select {
	case ev := <-ch:
		t.Fatalf("late subscriber received historical event: %+v", ev)
	default:
	}
}

func TestHubDropsSlowSubscriber(t *testing.T) {
	h := NewHub()

	slow, cancelSlow := h.Subscribe()
	defer cancelSlow()
	healthy, cancelHealthy := h.Subscribe()
	defer cancelHealthy()

	// overrun the slow subscriber's buffer without draining it
	for i := 0; i < subscriberBuffer+1; i++ {
		h.Publish(Event{Type: "new_moment", MomentID: uint64(i)})
		// keep the healthy one drained
		<-healthy
	}

	// the slow subscriber was dropped: its channel is closed after the
	// buffered events
	assert.Equal(t, 1, h.Subscribers())

	drained := 0
	for range slow {
		drained++
	}
	assert.Equal(t, subscriberBuffer, drained)

	// the healthy subscriber still receives new events
	h.Publish(Event{Type: "new_moment", MomentID: 99})
	ev := <-healthy
	require.Equal(t, uint64(99), ev.MomentID)
}

func TestHubCancelIdempotent(t *testing.T) {
	h := NewHub()

	_, cancel := h.Subscribe()
	cancel()
	cancel()

	assert.Equal(t, 0, h.Subscribers())
}
