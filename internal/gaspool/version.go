package gaspool

import (
	"context"
	"errors"
	"time"

	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/sui"
)

// rereadPause is the gap between the up-to-two fallback object-reads in the
// version-update protocol.
const rereadPause = 500 * time.Millisecond

// isCurrent reports whether a freshly observed version can be trusted as
// current: true iff it did not regress relative to the locally tracked
// one. It returns false only when the read itself failed (ok == false) --
// a strictly-advanced version and an unchanged-but-already-current version
// are both "true".
func isCurrent(ok bool, observed, local uint64) bool {
	if !ok {
		return false
	}
	return observed >= local
}

// Release is called exactly once per acquired handle, in every exit path
// of a transaction that used it. effects is nil for a pure transport
// failure; txErr carries the raw error in that case. It always leaves the
// coin in Free, NeedsVersionUpdate, or SkipForRemainderOfEpoch -- never
// InUse.
func (m *Manager) Release(ctx context.Context, h Handle, effects *chain.TxEffects, txErr error) {
	if effects != nil && (sui.IsFinalityTimeout(effects.Error) || isFinalityTimeoutErr(txErr)) {
		m.mu.Lock()
		coin := m.coin(h)
		coin.status = SkipForRemainderOfEpoch
		m.mu.Unlock()
		skipEpochCounter.Inc(1)
		logger.Warn("gas coin poisoned by finality timeout", "coin", coin.ref.ID)
		return
	}

	if effects != nil && effects.GasObject.Version > 0 {
		m.mu.Lock()
		coin := m.coin(h)
		oldVersion := coin.ref.Version
		m.mu.Unlock()

		if isCurrent(true, effects.GasObject.Version, oldVersion) {
			m.mu.Lock()
			coin := m.coin(h)
			coin.ref = effects.GasObject
			coin.balance = effects.NewGasBalance(coin.balance)
			coin.status = Free
			m.mu.Unlock()
			return
		}
	}

	// Response-based update unavailable or stale: fall back to up to two
	// object-reads with a pause between them.
	m.mu.Lock()
	coin := m.coin(h)
	id := coin.ref.ID
	oldVersion := coin.ref.Version
	m.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			time.Sleep(rereadPause)
		}
		ref, balance, err := m.chain.ReadObject(ctx, id)
		ok := err == nil
		if isCurrent(ok, ref.Version, oldVersion) {
			m.mu.Lock()
			coin := m.coin(h)
			coin.ref = ref
			coin.balance = balance
			coin.status = Free
			m.mu.Unlock()
			return
		}
	}

	m.mu.Lock()
	coin = m.coin(h)
	coin.status = NeedsVersionUpdate
	m.mu.Unlock()
	versionStaleGauge.Update(1)
	logger.Warn("gas coin parked for version refresh", "coin", id)
}

func isFinalityTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	return sui.IsFinalityTimeout(err.Error())
}

// refreshOne attempts a single version refresh for a coin currently parked
// in NeedsVersionUpdate, used both by GetMainGasCoin's on-demand refresh
// and by the periodic reconciler.
func (m *Manager) refreshOne(ctx context.Context, c *trackedCoin) {
	ref, balance, err := m.chain.ReadObject(ctx, c.ref.ID)
	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		if errors.Is(err, chain.ErrObjectNotFound) {
			logger.Warn("tracked coin disappeared on chain", "coin", c.ref.ID)
		}
		return
	}
	if isCurrent(true, ref.Version, c.ref.Version) {
		c.ref = ref
		c.balance = balance
		c.status = Free
	}
}
