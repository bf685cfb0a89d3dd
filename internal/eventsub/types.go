// Package eventsub maintains the two parallel event subscriptions that
// capture our own transactions and maker-side fills we did not initiate,
// types each raw on-chain event by an explicit discriminator table keyed
// on the trailing type name (no brittle suffix string matching), and routes
// the result to the order cache, the websocket hub, and (optionally) the
// Kafka event-mirror bus.
//
// Grounded on datasync/chaindatafetcher/chaindata_fetcher.go's
// subscribe-and-dispatch loop and kafka/repository.go's typed-dispatch
// shape (see DESIGN.md).
package eventsub

// Channel is the websocket notification channel a domain event belongs to.
type Channel string

const (
	ChannelOrder Channel = "ORDER"
	ChannelTrade Channel = "TRADE"
)

// EventType is the typed name carried in a websocket notification's
// "type" field.
type EventType string

const (
	TypeOrderPlaced    EventType = "order_placed"
	TypeOrderCancelled EventType = "order_cancelled"
	TypeOrderFilled    EventType = "order_filled"
)

// DomainEvent is a fully typed, routable event derived from one raw
// on-chain event.
type DomainEvent struct {
	Channel Channel
	Type    EventType
	Data    interface{}
}

// OrderPlacedData is the payload of a TypeOrderPlaced event.
type OrderPlacedData struct {
	ClientOrderID   string `json:"client_order_id,omitempty"`
	ExchangeOrderID string `json:"exchange_order_id"`
	PoolID          string `json:"pool_id"`
	Remaining       uint64 `json:"remaining"`
	Executed        uint64 `json:"executed"`
}

// OrderCancelledData is the payload of a TypeOrderCancelled event.
type OrderCancelledData struct {
	ExchangeOrderID string `json:"exchange_order_id"`
	PoolID          string `json:"pool_id"`
}

// OrderFilledData is the payload of a TypeOrderFilled event.
type OrderFilledData struct {
	ExchangeOrderID string `json:"exchange_order_id"`
	PoolID          string `json:"pool_id"`
	Remaining       uint64 `json:"remaining"`
	Executed        uint64 `json:"executed"`
	FillQuantity    uint64 `json:"fill_quantity"`
	Maker           bool   `json:"maker"`
	Side            string `json:"side"`
	TxDigest        string `json:"tx_digest"`
}
