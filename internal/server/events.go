package server

import (
	"io"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quietfall/quietfall/internal/app/engine"
)

// StateEvent is one state-stream entry.
type StateEvent struct {
	State   string                  `json:"state"`
	Players []engine.PlayerSnapshot `json:"players"`
}

// EventStream fans manager notifications out to SSE subscribers.
type EventStream struct {
	mu          sync.Mutex
	subscribers map[string]chan StateEvent

	manager    *engine.Manager
	listenerID string
}

// NewEventStream registers itself as a manager listener.
func NewEventStream(manager *engine.Manager) *EventStream {
	es := &EventStream{
		subscribers: make(map[string]chan StateEvent),
		manager:     manager,
	}
	es.listenerID = manager.Register(es.broadcast)
	return es
}

// Close detaches the stream from the manager.
func (es *EventStream) Close() {
	es.manager.Unregister(es.listenerID)
}

// broadcast forwards one manager notification to every subscriber.
// Slow subscribers drop events rather than blocking the fan-out.
func (es *EventStream) broadcast(state engine.State, players []engine.PlayerSnapshot) {
	ev := StateEvent{State: state.String(), Players: players}

	es.mu.Lock()
	defer es.mu.Unlock()
	for _, ch := range es.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (es *EventStream) subscribe() (string, chan StateEvent) {
	es.mu.Lock()
	defer es.mu.Unlock()

	id := uuid.New().String()
	ch := make(chan StateEvent, 8)
	es.subscribers[id] = ch
	return id, ch
}

func (es *EventStream) unsubscribe(id string) {
	es.mu.Lock()
	defer es.mu.Unlock()
	delete(es.subscribers, id)
}

// Serve streams state events to one client as server-sent events.
func (es *EventStream) Serve(c *gin.Context) {
	id, ch := es.subscribe()
	defer es.unsubscribe(id)

	// Initial snapshot so clients render without waiting for a change.
	c.SSEvent("state", StateEvent{
		State:   es.manager.State().String(),
		Players: es.manager.Players(),
	})
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev := <-ch:
			c.SSEvent("state", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
