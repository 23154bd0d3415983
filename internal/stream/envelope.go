// Package stream fans out monitoring output to WebSocket subscribers and,
// optionally, to a NATS subject for downstream consumers.
package stream

import "encoding/json"

// Outbound message types.
const (
	MessageInit           = "init"
	MessageNewTransaction = "new_transaction"
	MessageAlert          = "alert"
	MessageWalletActivity = "wallet_activity"
	MessageSubscribed     = "subscribed"
)

// Inbound message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
)

// Envelope wraps every message crossing the stream in a uniform
// {type, data} shape so clients can dispatch on type alone.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Marshal encodes an envelope once so a broadcast reuses the same bytes
// for every subscriber.
func Marshal(msgType string, data any) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Data: data})
}

// InboundMessage is a client-to-server control message. Only wallet
// subscription management is supported; anything else is ignored.
type InboundMessage struct {
	Type   string `json:"type"`
	Wallet string `json:"wallet,omitempty"`
}

// WalletActivityPayload is the data carried by a wallet_activity message.
type WalletActivityPayload struct {
	Wallet   string `json:"wallet"`
	Activity any    `json:"activity"`
}
