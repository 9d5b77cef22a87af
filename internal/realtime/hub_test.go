package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/domain"
	"github.com/spec-kit/fault-service/internal/events"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), nil)
}

func TestHubBroadcastFansOutToAllSubscribers(t *testing.T) {
	hub := newTestHub()
	first := hub.Subscribe()
	second := hub.Subscribe()

	hub.Broadcast(Message{Event: WireNewFault, Data: "payload"})

	msg := <-first.C()
	assert.Equal(t, WireNewFault, msg.Event)
	msg = <-second.C()
	assert.Equal(t, WireNewFault, msg.Event)
}

func TestHubSlowSubscriberDoesNotBlockBroadcast(t *testing.T) {
	hub := newTestHub()
	slow := hub.Subscribe()
	fast := hub.Subscribe()

	// Overfill the slow subscriber's buffer; Broadcast must not block.
	for i := 0; i < subscriberBuffer+5; i++ {
		hub.Broadcast(Message{Event: WireFaultUpdated})
	}

	assert.Len(t, slow.ch, subscriberBuffer)
	assert.Len(t, fast.ch, subscriberBuffer)
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	hub := newTestHub()
	sub := hub.Subscribe()

	hub.Unsubscribe(sub)
	_, open := <-sub.C()
	assert.False(t, open)

	// Second unsubscribe is a no-op.
	hub.Unsubscribe(sub)
}

func TestHubBroadcastToleratesConcurrentDisconnects(t *testing.T) {
	hub := newTestHub()
	stop := make(chan struct{})

	var broadcasters sync.WaitGroup
	for i := 0; i < 4; i++ {
		broadcasters.Add(1)
		go func() {
			defer broadcasters.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Broadcast(Message{Event: WireFaultUpdated})
				}
			}
		}()
	}

	// Clients connecting and dropping while broadcasts are in flight must
	// never see a send hit a freshly closed channel.
	var churners sync.WaitGroup
	for i := 0; i < 8; i++ {
		churners.Add(1)
		go func() {
			defer churners.Done()
			for j := 0; j < 500; j++ {
				sub := hub.Subscribe()
				hub.Unsubscribe(sub)
			}
		}()
	}

	churners.Wait()
	close(stop)
	broadcasters.Wait()

	sub := hub.Subscribe()
	hub.Broadcast(Message{Event: WireNewFault})
	msg := <-sub.C()
	assert.Equal(t, WireNewFault, msg.Event)
}

func TestHubMapsLifecycleEventsToWireNames(t *testing.T) {
	hub := newTestHub()
	sub := hub.Subscribe()

	fault := domain.FaultDetail{Fault: domain.Fault{ID: "fault-1", Status: domain.FaultStatusSubmitted}}
	comment := domain.CommentDetail{Comment: domain.Comment{ID: "comment-1", FaultID: "fault-1", Body: "hi"}}

	cases := []struct {
		payload any
		wire    string
	}{
		{events.FaultCreatedPayload{Fault: fault}, WireNewFault},
		{events.FaultAssignedPayload{Fault: fault, AssigneeID: "employee-1"}, WireFaultUpdated},
		{events.FaultStatusChangedPayload{Fault: fault, OldStatus: domain.FaultStatusSubmitted, NewStatus: domain.FaultStatusResolved}, WireFaultUpdated},
		{events.CommentAddedPayload{FaultID: "fault-1", Comment: comment}, WireNewComment},
	}

	for _, tc := range cases {
		err := hub.handleEvent(context.Background(), events.Event{Payload: tc.payload})
		require.NoError(t, err)
		msg := <-sub.C()
		assert.Equal(t, tc.wire, msg.Event)
	}
}
