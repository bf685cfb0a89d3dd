package gaspool

import "time"

// Config mirrors the dex.gas_manager.* TOML keys.
type Config struct {
	MaxBalancePerInstanceMist uint64
	MinBalancePerInstanceMist uint64
	SyncInterval              time.Duration
	GasBudgetMist             uint64
	ExpectedChildCount        int

	CoinType     string // e.g. "0x2::sui::SUI"
	WalletAddress string
}

// sanitize fills in unreasonable/unset values with safe defaults, following
// the teacher's BridgeTxPoolConfig.sanitize() convention
// (node/sc/bridge_tx_pool.go) of logging a correction rather than failing
// construction outright.
func (c Config) sanitize() Config {
	out := c
	if out.SyncInterval <= 0 {
		logger.Warn("sanitizing invalid gas pool sync interval", "provided", out.SyncInterval, "updated", time.Minute)
		out.SyncInterval = time.Minute
	}
	if out.ExpectedChildCount <= 0 {
		logger.Warn("sanitizing invalid gas pool child count", "provided", out.ExpectedChildCount, "updated", 4)
		out.ExpectedChildCount = 4
	}
	if out.MaxBalancePerInstanceMist <= out.MinBalancePerInstanceMist {
		logger.Warn("sanitizing invalid gas pool balance band",
			"min", out.MinBalancePerInstanceMist, "max", out.MaxBalancePerInstanceMist)
		out.MaxBalancePerInstanceMist = out.MinBalancePerInstanceMist + 1
	}
	return out
}
