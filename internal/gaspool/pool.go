// Package gaspool implements the gas-coin manager: a pool of fee-payment
// coin objects that starts, splits, merges and re-versions itself to
// maintain a target child count and per-child balance band, serving one
// coin per concurrent transaction.
//
// Grounded on node/sc/bridge_tx_pool.go's mutex-guarded map-of-entries
// pool discipline and work/worker.go's agent register/release convention
// (see DESIGN.md).
package gaspool

import (
	"context"
	"sync"

	"github.com/rcrowley/go-metrics"

	"github.com/suidex/dex-proxy/internal/chain"
	dexlog "github.com/suidex/dex-proxy/internal/log"
	"github.com/suidex/dex-proxy/internal/sui"
)

var logger = dexlog.NewModuleLogger(dexlog.GasPool)

var (
	exhaustedCounter = metrics.NewRegisteredCounter("gaspool/exhausted", nil)
	skipEpochCounter = metrics.NewRegisteredCounter("gaspool/skipepoch", nil)
	versionStaleGauge = metrics.NewRegisteredGauge("gaspool/needsversionupdate", nil)
)

// Manager owns the full set of tracked gas coins: one "main" coin plus an
// ordered set of children held at a configured target cardinality.
type Manager struct {
	mu sync.Mutex

	cfg   Config
	chain chain.Client

	main     *trackedCoin
	children []*trackedCoin
	rrCursor int

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Manager. Call Start to perform the initial on-chain
// observation and launch the periodic reconciler.
func New(cfg Config, c chain.Client) *Manager {
	return &Manager{
		cfg:    cfg.sanitize(),
		chain:  c,
		stopCh: make(chan struct{}),
	}
}

// Start observes all wallet-owned coins of the configured SUI type,
// designates the highest-balance one as main, consolidates out-of-band
// children into main, splits main to replenish the child count, and
// schedules the periodic reconciler. Returns ErrStartup if no coin is
// found or main cannot be established.
func (m *Manager) Start(ctx context.Context) error {
	coins, err := m.chain.ListOwnedCoins(ctx, m.cfg.WalletAddress, m.cfg.CoinType)
	if err != nil {
		return wrapStartup(err)
	}
	if len(coins) == 0 {
		return ErrStartup
	}

	mainIdx := 0
	for i, c := range coins {
		if c.Balance > coins[mainIdx].Balance {
			mainIdx = i
		}
	}

	m.mu.Lock()
	m.main = &trackedCoin{ref: coins[mainIdx].Ref, balance: coins[mainIdx].Balance, status: Free}

	var toMerge []*trackedCoin
	var keep []*trackedCoin
	for i, c := range coins {
		if i == mainIdx {
			continue
		}
		tc := &trackedCoin{ref: c.Ref, balance: c.Balance, status: Free}
		if tc.outOfBand(m.cfg.MinBalancePerInstanceMist, m.cfg.MaxBalancePerInstanceMist) {
			toMerge = append(toMerge, tc)
		} else {
			keep = append(keep, tc)
		}
	}
	m.children = keep
	m.mu.Unlock()

	if len(toMerge) > 0 {
		if err := m.mergeIntoMain(ctx, toMerge); err != nil {
			return wrapStartup(err)
		}
	}

	m.mu.Lock()
	short := m.cfg.ExpectedChildCount - len(m.children)
	m.mu.Unlock()
	if short > 0 {
		if err := m.splitMain(ctx, short); err != nil {
			return wrapStartup(err)
		}
	}

	logger.Info("gas pool started", "main", m.main.ref.ID, "children", len(m.children))

	m.wg.Add(1)
	go m.reconcileLoop()
	return nil
}

// Stop terminates the periodic reconciler.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
}

func wrapStartup(err error) error {
	if err == nil {
		return ErrStartup
	}
	return &startupError{cause: err}
}

type startupError struct{ cause error }

func (e *startupError) Error() string { return "gaspool: startup failed: " + e.cause.Error() }
func (e *startupError) Unwrap() error { return e.cause }
func (e *startupError) Is(target error) bool { return target == ErrStartup }

// GetFreeGasCoin returns one Free child, flipping it to InUse using
// round-robin order. It is non-blocking: if no child is Free it returns
// ErrExhausted immediately.
func (m *Manager) GetFreeGasCoin() (Handle, sui.ObjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.children)
	for i := 0; i < n; i++ {
		idx := (m.rrCursor + i) % n
		if m.children[idx].status == Free {
			c := m.children[idx]
			c.status = InUse
			m.rrCursor = (idx + 1) % n
			return Handle{coin: c}, c.ref, nil
		}
	}
	exhaustedCounter.Inc(1)
	return Handle{}, sui.ObjectRef{}, ErrExhausted
}

// GetMainGasCoin returns the main coin if Free, flipping it to InUse. If
// main's status is NeedsVersionUpdate, one version refresh is attempted
// first. Returns (Handle{}, zero ObjectRef, ErrMainInUse) -- not a hard
// failure -- if main is InUse or still not Free after that refresh, so
// callers can retry at the request level.
func (m *Manager) GetMainGasCoin(ctx context.Context) (Handle, sui.ObjectRef, error) {
	m.mu.Lock()
	if m.main.status == NeedsVersionUpdate {
		m.mu.Unlock()
		m.refreshOne(ctx, m.main)
		m.mu.Lock()
	}
	defer m.mu.Unlock()

	switch m.main.status {
	case Free:
		m.main.status = InUse
		return Handle{isMain: true}, m.main.ref, nil
	case InUse:
		return Handle{}, sui.ObjectRef{}, ErrMainInUse
	default:
		return Handle{}, sui.ObjectRef{}, ErrMainInUse
	}
}

// ChildCount reports the current number of tracked child coins.
func (m *Manager) ChildCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.children)
}

// StatusCounts reports how many coins are in each status, for metrics and
// tests.
func (m *Manager) StatusCounts() map[Status]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[Status]int{}
	counts[m.main.status]++
	for _, c := range m.children {
		counts[c.status]++
	}
	return counts
}
