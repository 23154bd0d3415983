package stream

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"solana-sandwich-watch/internal/domain"
)

// NATS subjects carrying monitoring output.
const (
	SubjectTransactions   = "mempool.transactions"
	SubjectAlerts         = "mempool.alerts"
	SubjectWalletActivity = "mempool.wallet_activity"
)

// NATSPublisher mirrors monitoring output onto NATS subjects so detached
// consumers can follow the stream without a WebSocket connection.
// Publish failures are logged, never propagated: the bus is an optional
// mirror of the primary stream.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *log.Logger
}

// NewNATSPublisher connects to natsURL with retrying reconnect behavior.
func NewNATSPublisher(natsURL string, logger *log.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	logger.Printf("connected to NATS at %s", natsURL)
	return &NATSPublisher{conn: conn, logger: logger}, nil
}

// PublishTransaction implements mempool.Broadcaster.
func (p *NATSPublisher) PublishTransaction(event *domain.TransactionEvent) {
	p.publish(SubjectTransactions, MessageNewTransaction, event)
}

// PublishAlert implements mempool.Broadcaster.
func (p *NATSPublisher) PublishAlert(pattern *domain.SuspiciousPattern) {
	p.publish(SubjectAlerts, MessageAlert, pattern)
}

// PublishWalletActivity implements mempool.Broadcaster.
func (p *NATSPublisher) PublishWalletActivity(wallet string, activity any) {
	p.publish(SubjectWalletActivity, MessageWalletActivity, WalletActivityPayload{
		Wallet:   wallet,
		Activity: activity,
	})
}

func (p *NATSPublisher) publish(subject, msgType string, data any) {
	payload, err := Marshal(msgType, data)
	if err != nil {
		p.logger.Printf("marshal %s for %s: %v", msgType, subject, err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Printf("publish to %s failed: %v", subject, err)
	}
}

// IsConnected reports whether the NATS connection is up.
func (p *NATSPublisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// Close drains the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// Fanout broadcasts to several sinks in order. It lets the monitor treat
// the WebSocket hub and the NATS mirror as one broadcaster.
type Fanout []interface {
	PublishTransaction(event *domain.TransactionEvent)
	PublishAlert(pattern *domain.SuspiciousPattern)
	PublishWalletActivity(wallet string, activity any)
}

func (f Fanout) PublishTransaction(event *domain.TransactionEvent) {
	for _, b := range f {
		b.PublishTransaction(event)
	}
}

func (f Fanout) PublishAlert(pattern *domain.SuspiciousPattern) {
	for _, b := range f {
		b.PublishAlert(pattern)
	}
}

func (f Fanout) PublishWalletActivity(wallet string, activity any) {
	for _, b := range f {
		b.PublishWalletActivity(wallet, activity)
	}
}
