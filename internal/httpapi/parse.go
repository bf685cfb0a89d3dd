package httpapi

import (
	"fmt"
	"strconv"

	"github.com/suidex/dex-proxy/internal/sui"
)

func parseUint64(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseUint(s, 10, 64)
}

func parseSide(s string) (sui.Side, error) {
	switch s {
	case "BUY":
		return sui.Buy, nil
	case "SELL":
		return sui.Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

func parseOrderType(s string) (sui.OrderType, bool, error) {
	switch s {
	case "GTC":
		return sui.GTC, false, nil
	case "IOC":
		return sui.IOC, true, nil
	case "POST_ONLY", "GPO":
		return sui.PostOnly, false, nil
	default:
		return 0, false, fmt.Errorf("invalid order_type %q", s)
	}
}
