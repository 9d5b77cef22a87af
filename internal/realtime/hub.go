package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/fault-service/internal/api/dto"
	"github.com/spec-kit/fault-service/internal/events"
	"github.com/spec-kit/fault-service/internal/observability"
)

// Wire event names delivered to connected clients. Assignment and status
// changes share one name; clients receive the full joined record either way.
const (
	WireNewFault     = "new_fault"
	WireFaultUpdated = "fault_updated"
	WireNewComment   = "new_comment"
)

// Message is the envelope written to every subscriber.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const subscriberBuffer = 16

// Subscriber is one connected client's receive queue.
type Subscriber struct {
	ch chan Message
}

// C exposes the subscriber's message channel.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

// Hub owns the registry of live subscribers and fans lifecycle events out
// to all of them. There is no per-client filtering, no acknowledgment and
// no replay; a client disconnected at emission time reconciles via its next
// full-list fetch.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscriber]struct{}
	logger      *zap.Logger
	metrics     *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]struct{}),
		logger:      logger,
		metrics:     metrics,
	}
}

// Register subscribes the hub to all lifecycle events on the dispatcher.
// The hub and the services publishing events share nothing beyond this
// event contract.
func (h *Hub) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventFaultCreated, h.handleEvent)
	dispatcher.Subscribe(events.EventFaultAssigned, h.handleEvent)
	dispatcher.Subscribe(events.EventFaultStatusChanged, h.handleEvent)
	dispatcher.Subscribe(events.EventCommentAdded, h.handleEvent)
}

// Subscribe adds a connected client and returns its queue.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{ch: make(chan Message, subscriberBuffer)}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes a client and closes its queue.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
	h.mu.Unlock()
}

// Broadcast delivers a message to every current subscriber. A subscriber
// whose buffer is full is skipped rather than blocked on. The read lock is
// held across the sends: they cannot block, and Unsubscribe closes channels
// under the write lock, so a concurrent disconnect can never close a
// channel mid-send.
func (h *Hub) Broadcast(msg Message) {
	h.metrics.RecordBroadcast(msg.Event)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub.ch <- msg:
		default:
			h.logger.Debug("dropping realtime message for slow subscriber",
				zap.String("event", msg.Event))
		}
	}
}

func (h *Hub) handleEvent(_ context.Context, event events.Event) error {
	switch payload := event.Payload.(type) {
	case events.FaultCreatedPayload:
		h.Broadcast(Message{Event: WireNewFault, Data: dto.FaultDetailResponseFrom(&payload.Fault)})
	case events.FaultAssignedPayload:
		h.Broadcast(Message{Event: WireFaultUpdated, Data: dto.FaultDetailResponseFrom(&payload.Fault)})
	case events.FaultStatusChangedPayload:
		h.Broadcast(Message{Event: WireFaultUpdated, Data: dto.FaultDetailResponseFrom(&payload.Fault)})
	case events.CommentAddedPayload:
		h.Broadcast(Message{Event: WireNewComment, Data: dto.NewCommentEvent{
			FaultID: payload.FaultID,
			Comment: dto.CommentResponseFrom(&payload.Comment),
		}})
	default:
		h.logger.Warn("unknown event payload", zap.String("type", string(event.Type)))
	}
	return nil
}
