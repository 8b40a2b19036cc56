package ws

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notifier/internal/logger"
	"github.com/notifier/internal/push"
)

// Лимиты на клиента: топиков на соединение.
const maxTopicsPerClient = 64

// Hub держит WebSocket-клиентов, подписанных на топики, и рассылает им уведомления.
// Реализует push.Provider.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*Client]struct{}
	clients    map[*Client]struct{}
	maxConns   int
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		topics:     make(map[string]map[*Client]struct{}),
		clients:    make(map[*Client]struct{}),
		maxConns:   maxConns,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	all := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		all = append(all, c)
	}
	h.clients = make(map[*Client]struct{})
	h.topics = make(map[string]map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

// Connections — число подключённых клиентов.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if len(h.clients) >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting %s", h.maxConns, c.remote)
		c.Close()
		return
	}
	h.clients[c] = struct{}{}
	topics := h.subscribeLocked(c, c.initial)
	h.mu.Unlock()

	h.sendToClient(c, OutgoingMessage{Type: EventSubscribed, Payload: SubscribedPayload{Topics: topics}})
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for t := range c.topics {
		if set, ok := h.topics[t]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.topics, t)
			}
		}
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()
}

// subscribeLocked добавляет топики клиенту и возвращает его итоговый набор.
func (h *Hub) subscribeLocked(c *Client, topics []string) []string {
	for _, t := range topics {
		if t == "" || len(c.topics) >= maxTopicsPerClient {
			continue
		}
		if _, ok := c.topics[t]; ok {
			continue
		}
		c.topics[t] = struct{}{}
		set, ok := h.topics[t]
		if !ok {
			set = make(map[*Client]struct{})
			h.topics[t] = set
		}
		set[c] = struct{}{}
	}
	return c.topicList()
}

func (h *Hub) unsubscribeLocked(c *Client, topics []string) []string {
	for _, t := range topics {
		delete(c.topics, t)
		if set, ok := h.topics[t]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.topics, t)
			}
		}
	}
	return c.topicList()
}

// HandleMessage dispatches incoming WebSocket messages.
func (h *Hub) HandleMessage(c *Client, msg IncomingMessage) {
	var topics []string
	switch msg.Type {
	case EventSubscribe:
		h.mu.Lock()
		if _, ok := h.clients[c]; !ok {
			h.mu.Unlock()
			return
		}
		topics = h.subscribeLocked(c, msg.Topics)
		h.mu.Unlock()
	case EventUnsubscribe:
		h.mu.Lock()
		topics = h.unsubscribeLocked(c, msg.Topics)
		h.mu.Unlock()
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
		return
	}
	h.sendToClient(c, OutgoingMessage{Type: EventSubscribed, Payload: SubscribedPayload{Topics: topics}})
}

func (h *Hub) Name() string { return "ws" }

// Send рассылает уведомление всем клиентам топика. Нет клиентов — не ошибка.
func (h *Hub) Send(_ context.Context, m *push.Message) (string, error) {
	defer logger.DeferLogDuration("ws.Send", time.Now())()
	id := uuid.NewString()
	out := OutgoingMessage{Type: EventNotification, ID: id, Payload: m.WebPayload()}

	h.mu.RLock()
	set := h.topics[m.Topic]
	targets := make([]*Client, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, out)
	}
	logger.Debugf("ws topic=%s delivered to %d clients", m.Topic, len(targets))
	return id, nil
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client %s", c.remote)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (c *Client) topicList() []string {
	out := make([]string, 0, len(c.topics))
	for t := range c.topics {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
