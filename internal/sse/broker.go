// Package sse implements a Server-Sent Events broker for resource change events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/starford/raido/internal/models"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Broker fans resource change events out to SSE clients.
//
// A single goroutine owns the client set, the per-kind throttle clock and
// the event sequence; public methods talk to it over channels.
type Broker struct {
	changedMin time.Duration

	subscribeCh   chan subscription
	unsubscribeCh chan chan []byte
	broadcastCh   chan Event
	resourceCh    chan models.Event
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// subscription is a client channel plus the kinds it wants. No kinds
// means every kind.
type subscription struct {
	ch    chan []byte
	kinds map[models.Kind]struct{}
}

func (s subscription) wants(kind models.Kind) bool {
	if len(s.kinds) == 0 || kind == "" {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// NewBroker creates a new SSE broker. At most one "<kind>.changed" event is
// sent per kind within each throttle interval.
func NewBroker(throttle time.Duration) *Broker {
	if throttle <= 0 {
		throttle = 2 * time.Second
	}

	b := &Broker{
		changedMin:    throttle,
		subscribeCh:   make(chan subscription),
		unsubscribeCh: make(chan chan []byte),
		broadcastCh:   make(chan Event, 256),
		resourceCh:    make(chan models.Event, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]subscription)
	lastChanged := make(map[models.Kind]time.Time)
	var seq uint64

	// send frames event for every client subscribed to kind. An empty kind
	// reaches everyone.
	send := func(kind models.Kind, event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			return
		}
		seq++
		raw := []byte(fmt.Sprintf("id: %d\nevent: %s\ndata: %s\n\n", seq, event.Type, payload))

		for ch, sub := range clients {
			if !sub.wants(kind) {
				continue
			}
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than stall the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case sub := <-b.subscribeCh:
			clients[sub.ch] = sub

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.broadcastCh:
			send("", event)

		case ev := <-b.resourceCh:
			send(ev.Kind, Event{Type: "resource." + ev.Op, Data: ev})

			now := time.Now()
			if now.Sub(lastChanged[ev.Kind]) >= b.changedMin {
				lastChanged[ev.Kind] = now
				send(ev.Kind, Event{Type: string(ev.Kind) + ".changed", Data: map[string]string{"kind": string(ev.Kind)}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a client interested in kinds (all kinds when none are
// given) and returns its channel. Broadcast events reach every client.
func (b *Broker) Subscribe(kinds ...models.Kind) chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	sub := subscription{ch: ch}
	if len(kinds) > 0 {
		sub.kinds = make(map[models.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	select {
	case b.subscribeCh <- sub:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Broadcast sends an arbitrary event to all connected clients.
func (b *Broker) Broadcast(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.broadcastCh <- event:
	case <-b.stopped:
	}
}

// Publish sends a "resource.<op>" event for ev and a throttled
// "<kind>.changed" event.
func (b *Broker) Publish(ev models.Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.resourceCh <- ev:
	case <-b.stopped:
	}
}

// ServeHTTP is the SSE endpoint handler (GET /api/events). An optional
// comma-separated "kind" query parameter restricts the stream to those
// kinds.
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe(kindsParam(r.URL.Query().Get("kind"))...)
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}

func kindsParam(raw string) []models.Kind {
	var kinds []models.Kind
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			kinds = append(kinds, models.Kind(part))
		}
	}
	return kinds
}
