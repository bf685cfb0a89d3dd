package gaspool

import "github.com/suidex/dex-proxy/internal/sui"

// trackedCoin is the manager's internal record for one owned coin object.
// Callers never see this type directly; they receive a Handle (see
// handle.go) that pins the coin's identity across reconciler ticks.
type trackedCoin struct {
	ref     sui.ObjectRef
	balance uint64
	status  Status
}

func (c *trackedCoin) outOfBand(min, max uint64) bool {
	return c.balance < min || c.balance > max
}
