package stream

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"solana-sandwich-watch/internal/domain"
	"solana-sandwich-watch/internal/observability"
)

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second

	// sendBufferSize bounds the per-client outbound queue. A client that
	// falls this far behind is dropped rather than blocking the hub.
	sendBufferSize = 64
)

// SnapshotFunc builds the data for the init message sent to a client on
// connect. It runs under the hub lock, so the snapshot and the
// registration are atomic with respect to broadcasts: no message published
// after the snapshot can be missed by the new client.
type SnapshotFunc func() any

// Hub manages WebSocket subscribers. Delivery is at most once per
// subscriber per publish; slow or broken clients are detected lazily on
// the next write and disconnected.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	snapshot SnapshotFunc
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
	logger   *log.Logger
}

// NewHub creates a hub. snapshot may be nil, in which case the init
// message carries no data.
func NewHub(snapshot SnapshotFunc, metrics *observability.Metrics, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Cross-origin dashboards are expected consumers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		metrics: metrics,
		logger:  logger,
	}
}

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu      sync.Mutex
	wallets map[string]struct{}

	closeOnce sync.Once
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *client) subscribed(wallet string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.wallets[wallet]
	return ok
}

// ServeHTTP upgrades the request and attaches the client to the hub.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn:    conn,
		send:    make(chan []byte, sendBufferSize),
		wallets: make(map[string]struct{}),
	}

	// Snapshot and registration happen under one lock so the client sees
	// every message published after its snapshot.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	var initData any
	if h.snapshot != nil {
		initData = h.snapshot()
	}
	payload, err := Marshal(MessageInit, initData)
	if err != nil {
		h.mu.Unlock()
		h.logger.Printf("marshal init snapshot: %v", err)
		conn.Close()
		return
	}
	c.send <- payload
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ConnectedClients.Inc()
	}

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast sends one message to every connected client, at most once
// each. A client whose queue is full is dropped.
func (h *Hub) Broadcast(msgType string, data any) {
	payload, err := Marshal(msgType, data)
	if err != nil {
		h.logger.Printf("marshal %s broadcast: %v", msgType, err)
		return
	}
	h.deliver(msgType, payload, nil)
}

// PublishTransaction implements mempool.Broadcaster.
func (h *Hub) PublishTransaction(event *domain.TransactionEvent) {
	h.Broadcast(MessageNewTransaction, event)
}

// PublishAlert implements mempool.Broadcaster.
func (h *Hub) PublishAlert(pattern *domain.SuspiciousPattern) {
	h.Broadcast(MessageAlert, pattern)
}

// PublishWalletActivity implements mempool.Broadcaster. Delivery is
// restricted to clients subscribed to the wallet.
func (h *Hub) PublishWalletActivity(wallet string, activity any) {
	payload, err := Marshal(MessageWalletActivity, WalletActivityPayload{
		Wallet:   wallet,
		Activity: activity,
	})
	if err != nil {
		h.logger.Printf("marshal wallet activity: %v", err)
		return
	}
	h.deliver(MessageWalletActivity, payload, func(c *client) bool {
		return c.subscribed(wallet)
	})
}

// deliver fans payload out to matching clients. filter nil means all.
func (h *Hub) deliver(msgType string, payload []byte, filter func(*client) bool) {
	var dropped []*client

	h.mu.Lock()
	for c := range h.clients {
		if filter != nil && !filter(c) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// Queue full: the client is not keeping up. Drop it here
			// rather than block every other subscriber.
			delete(h.clients, c)
			dropped = append(dropped, c)
		}
	}
	h.mu.Unlock()

	for _, c := range dropped {
		c.close()
	}
	if h.metrics != nil {
		h.metrics.MessagesPublished.WithLabelValues(msgType).Inc()
		if n := len(dropped); n > 0 {
			h.metrics.DroppedClients.Add(float64(n))
			h.metrics.ConnectedClients.Sub(float64(n))
		}
	}
}

// ClientCount returns the number of attached clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new connections.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

// trySend queues a payload for one client. A client's send channel is
// closed only after it has left h.clients, and removal always happens
// under h.mu, so the membership check makes the send race-free. A full
// queue drops the payload, not the client.
func (h *Hub) trySend(c *client, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// detach removes a client after a write or read failure.
func (h *Hub) detach(c *client) {
	h.mu.Lock()
	_, present := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
	if present && h.metrics != nil {
		h.metrics.ConnectedClients.Dec()
	}
}

// writePump drains the client queue onto the connection and keeps the
// connection alive with pings. The first failed write ends the client.
func (h *Hub) writePump(c *client) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.detach(c)
				return
			}
		case <-ping.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.detach(c)
				return
			}
		}
	}
}

// readPump consumes inbound control messages until the connection drops.
func (h *Hub) readPump(c *client) {
	defer h.detach(c)

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
		return nil
	})

	for {
		var msg InboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case MessageSubscribe:
			if msg.Wallet != "" {
				c.mu.Lock()
				c.wallets[msg.Wallet] = struct{}{}
				c.mu.Unlock()
				if ack, err := Marshal(MessageSubscribed, map[string]string{"wallet": msg.Wallet}); err == nil {
					h.trySend(c, ack)
				}
			}
		case MessageUnsubscribe:
			c.mu.Lock()
			delete(c.wallets, msg.Wallet)
			c.mu.Unlock()
		}
	}
}
