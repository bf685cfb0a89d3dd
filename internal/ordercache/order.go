package ordercache

import "github.com/suidex/dex-proxy/internal/sui"

// Order is the local record for one client-assigned order.
// ExchangeOrderID is empty until the placement transaction's response
// (or a later OrderPlaced event) assigns one.
type Order struct {
	ClientOrderID   string
	PoolID          string
	Side            sui.Side
	Type            sui.OrderType
	Quantity        uint64
	Remaining       uint64
	Executed        uint64
	Price           uint64
	ExpirationTS    uint64
	Status          Status
	ExchangeOrderID string
	TxDigests       []string
}

func (o *Order) clone() *Order {
	cp := *o
	cp.TxDigests = append([]string(nil), o.TxDigests...)
	return &cp
}
