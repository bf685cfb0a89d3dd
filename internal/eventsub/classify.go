package eventsub

import (
	"strings"

	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/sui"
)

// eventNameTail extracts the trailing type-name component of a Move event
// type string, e.g. "0xabc::clob_v2::OrderPlaced" -> "OrderPlaced".
func eventNameTail(moveType string) string {
	parts := strings.Split(moveType, "::")
	return parts[len(parts)-1]
}

// classification is keyed by the exact trailing type name (see
// eventNameTail) rather than by suffix/substring matching against the full
// type string. The module component is not consulted.
type classification struct {
	channel Channel
	etype   EventType
	expand  bool // AllOrdersCanceled expands to a list of order_cancelled
}

var discriminatorTable = map[string]classification{
	"OrderPlaced":       {channel: ChannelOrder, etype: TypeOrderPlaced},
	"OrderInfo":         {channel: ChannelOrder, etype: TypeOrderPlaced},
	"OrderCanceled":     {channel: ChannelOrder, etype: TypeOrderCancelled},
	"AllOrdersCanceled": {channel: ChannelOrder, etype: TypeOrderCancelled, expand: true},
	"OrderFilled":       {channel: ChannelTrade, etype: TypeOrderFilled},
}

// toField reads a string field out of an untyped parsed-JSON map, the
// shape RawEvent.Fields carries.
func toField(fields map[string]interface{}, key string) string {
	if v, ok := fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func toUintField(fields map[string]interface{}, key string) uint64 {
	if v, ok := fields[key]; ok {
		switch t := v.(type) {
		case float64:
			return uint64(t)
		case string:
			var out uint64
			for _, r := range t {
				if r < '0' || r > '9' {
					break
				}
				out = out*10 + uint64(r-'0')
			}
			return out
		}
	}
	return 0
}

// Classify types one raw event into zero or more DomainEvents.
// AllOrdersCanceled expands into one order_cancelled DomainEvent per
// affected order id. version selects which field name identifies the
// maker for liquidity classification of fills.
func Classify(raw chain.RawEvent, version sui.ExchangeVersion, ourIdentity string) []DomainEvent {
	cls, ok := discriminatorTable[eventNameTail(raw.Type)]
	if !ok {
		return nil
	}

	switch cls.etype {
	case TypeOrderPlaced:
		return []DomainEvent{{
			Channel: cls.channel,
			Type:    cls.etype,
			Data: OrderPlacedData{
				ExchangeOrderID: toField(raw.Fields, "order_id"),
				PoolID:          toField(raw.Fields, "pool_id"),
				Remaining:       toUintField(raw.Fields, "remaining_quantity"),
				Executed:        toUintField(raw.Fields, "executed_quantity"),
			},
		}}
	case TypeOrderCancelled:
		if cls.expand {
			ids := raw.Fields["order_ids"]
			list, _ := ids.([]interface{})
			events := make([]DomainEvent, 0, len(list))
			for _, idAny := range list {
				id, _ := idAny.(string)
				events = append(events, DomainEvent{
					Channel: cls.channel,
					Type:    cls.etype,
					Data:    OrderCancelledData{ExchangeOrderID: id, PoolID: toField(raw.Fields, "pool_id")},
				})
			}
			return events
		}
		return []DomainEvent{{
			Channel: cls.channel,
			Type:    cls.etype,
			Data: OrderCancelledData{
				ExchangeOrderID: toField(raw.Fields, "order_id"),
				PoolID:          toField(raw.Fields, "pool_id"),
			},
		}}
	case TypeOrderFilled:
		maker := isMaker(raw.Fields, version, ourIdentity)
		side := toField(raw.Fields, "taker_side")
		if !maker {
			// The exchange reports the resting (book/maker) side; a taker
			// fill is on the opposite side of whatever it matched against.
			side = invertSide(side)
		}
		return []DomainEvent{{
			Channel: cls.channel,
			Type:    cls.etype,
			Data: OrderFilledData{
				ExchangeOrderID: toField(raw.Fields, "order_id"),
				PoolID:          toField(raw.Fields, "pool_id"),
				Remaining:       toUintField(raw.Fields, "remaining_quantity"),
				Executed:        toUintField(raw.Fields, "executed_quantity"),
				FillQuantity:    toUintField(raw.Fields, "fill_quantity"),
				Maker:           maker,
				Side:            side,
				TxDigest:        raw.TxDigest,
			},
		}}
	}
	return nil
}

func isMaker(fields map[string]interface{}, version sui.ExchangeVersion, ourIdentity string) bool {
	if version == sui.V3 {
		return toField(fields, "maker_balance_manager_id") == ourIdentity
	}
	return toField(fields, "maker_address") == ourIdentity
}

func invertSide(side string) string {
	switch side {
	case "BUY":
		return "SELL"
	case "SELL":
		return "BUY"
	default:
		return side
	}
}
