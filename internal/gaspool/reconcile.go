package gaspool

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/suidex/dex-proxy/internal/sui"
)

// mergeIntoMain submits one transaction merging every coin in toMerge into
// main, then updates main's tracked version/balance/digest from the
// response.
func (m *Manager) mergeIntoMain(ctx context.Context, toMerge []*trackedCoin) error {
	if len(toMerge) == 0 {
		return nil
	}
	m.mu.Lock()
	mainRef := m.main.ref
	m.mu.Unlock()

	refs := make([]sui.ObjectRef, len(toMerge))
	var mergedBalance uint64
	for i, c := range toMerge {
		refs[i] = c.ref
		mergedBalance += c.balance
	}

	txBytes, err := m.chain.BuildMergeCoinsTx(ctx, mainRef, refs)
	if err != nil {
		return err
	}
	effects, err := m.chain.SubmitTransaction(ctx, txBytes, mainRef, m.cfg.GasBudgetMist)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if isCurrent(true, effects.GasObject.Version, m.main.ref.Version) {
		m.main.ref = effects.GasObject
		m.main.balance = effects.NewGasBalance(m.main.balance + mergedBalance)
	} else {
		m.main.status = NeedsVersionUpdate
	}
	logger.Info("merged coins into main", "count", len(toMerge), "main_balance", m.main.balance)
	return nil
}

// splitMain splits main into n new coins of exactly max balance each,
// transferred back to the wallet as new children.
func (m *Manager) splitMain(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	m.mu.Lock()
	mainRef := m.main.ref
	max := m.cfg.MaxBalancePerInstanceMist
	m.mu.Unlock()

	amounts := make([]uint64, n)
	for i := range amounts {
		amounts[i] = max
	}

	txBytes, err := m.chain.BuildSplitCoinsTx(ctx, mainRef, amounts)
	if err != nil {
		return err
	}
	effects, err := m.chain.SubmitTransaction(ctx, txBytes, mainRef, m.cfg.GasBudgetMist)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if isCurrent(true, effects.GasObject.Version, m.main.ref.Version) {
		m.main.ref = effects.GasObject
		m.main.balance = effects.NewGasBalance(m.main.balance)
	} else {
		m.main.status = NeedsVersionUpdate
	}
	m.mu.Unlock()

	// BuildSplitCoinsTx/TxEffects only report the post-transaction gas
	// object, not the ids of the coins the split created, so resolve them
	// with a follow-up wallet scan and register them as tracked children.
	// Skipping this step would leave len(m.children) unchanged forever: the
	// next tick's untracked-coin scan would find these same coins, merge
	// them straight back into main, and the reconciler would re-split
	// immediately after -- an unbounded merge/split oscillation that never
	// converges to the target child count.
	if err := m.registerNewChildren(ctx, n, max); err != nil {
		logger.Warn("failed to resolve newly split children", "err", err)
	}

	logger.Info("split main to replenish children", "new_children", n)
	return nil
}

// registerNewChildren resolves the coins a just-completed split created by
// diffing a fresh wallet scan against the currently tracked ids, then adds
// up to want of the matching (untracked, balance == atBalance) coins to
// m.children as Free.
func (m *Manager) registerNewChildren(ctx context.Context, want int, atBalance uint64) error {
	coins, err := m.chain.ListOwnedCoins(ctx, m.cfg.WalletAddress, m.cfg.CoinType)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	known := map[string]bool{m.main.ref.ID: true}
	for _, c := range m.children {
		known[c.ref.ID] = true
	}

	added := 0
	for _, c := range coins {
		if added >= want {
			break
		}
		if known[c.Ref.ID] || c.Balance != atBalance {
			continue
		}
		m.children = append(m.children, &trackedCoin{ref: c.Ref, balance: c.Balance, status: Free})
		known[c.Ref.ID] = true
		added++
	}
	if added < want {
		logger.Warn("split registered fewer children than requested", "want", want, "added", added)
	}
	return nil
}

// MergeUntrackedInto scans the wallet for coins the manager has never
// registered and merges them into the given (already-tracked) coin -- a
// recovery path for funds that arrived out of band.
func (m *Manager) MergeUntrackedInto(ctx context.Context, into Handle) error {
	coins, err := m.chain.ListOwnedCoins(ctx, m.cfg.WalletAddress, m.cfg.CoinType)
	if err != nil {
		return err
	}

	m.mu.Lock()
	known := map[string]bool{m.main.ref.ID: true}
	for _, c := range m.children {
		known[c.ref.ID] = true
	}
	target := m.coin(into)
	targetRef := target.ref
	m.mu.Unlock()

	var untracked []sui.ObjectRef
	var untrackedBalance uint64
	for _, c := range coins {
		if c.Ref.ID == targetRef.ID || known[c.Ref.ID] {
			continue
		}
		untracked = append(untracked, c.Ref)
		untrackedBalance += c.Balance
	}
	if len(untracked) == 0 {
		return nil
	}

	txBytes, err := m.chain.BuildMergeCoinsTx(ctx, targetRef, untracked)
	if err != nil {
		return err
	}
	effects, err := m.chain.SubmitTransaction(ctx, txBytes, targetRef, m.cfg.GasBudgetMist)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	target = m.coin(into)
	if isCurrent(true, effects.GasObject.Version, target.ref.Version) {
		target.ref = effects.GasObject
		target.balance = effects.NewGasBalance(target.balance + untrackedBalance)
	} else {
		target.status = NeedsVersionUpdate
	}
	logger.Info("merged untracked coins", "count", len(untracked))
	return nil
}

// reconcileLoop runs the periodic reconciler: every sync_interval,
// (1) retry NeedsVersionUpdate refreshes, (2) if main is Free, merge
// untracked/out-of-band coins into it, (3) replenish children if short
// of target. Ticks are driven by an unconditional trailing-edge ticker
// rather than rescheduling from within the tick itself.
func (m *Manager) reconcileLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SyncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reconcileTick()
		}
	}
}

func (m *Manager) reconcileTick() {
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.SyncInterval)
	defer cancel()

	m.mu.Lock()
	stale := []*trackedCoin{}
	if m.main.status == NeedsVersionUpdate {
		stale = append(stale, m.main)
	}
	for _, c := range m.children {
		if c.status == NeedsVersionUpdate {
			stale = append(stale, c)
		}
	}
	m.mu.Unlock()
	// Each stale coin's ReadObject is independent, so refresh the whole
	// batch concurrently instead of paying N round trips serially.
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range stale {
		c := c
		g.Go(func() error {
			m.refreshOne(gctx, c)
			return nil
		})
	}
	_ = g.Wait()

	m.mu.Lock()
	mainFree := m.main.status == Free
	var outOfBand []*trackedCoin
	var keep []*trackedCoin
	for _, c := range m.children {
		if c.status == Free && c.outOfBand(m.cfg.MinBalancePerInstanceMist, m.cfg.MaxBalancePerInstanceMist) {
			outOfBand = append(outOfBand, c)
		} else {
			keep = append(keep, c)
		}
	}
	m.mu.Unlock()

	if mainFree {
		toMerge := outOfBand
		if h, _, err := m.GetMainGasCoin(ctx); err == nil {
			if err := m.MergeUntrackedInto(ctx, h); err != nil {
				logger.Warn("reconciler untracked merge failed", "err", err)
			}
			if len(toMerge) > 0 {
				if err := m.mergeIntoMain(ctx, toMerge); err != nil {
					logger.Warn("reconciler band merge failed", "err", err)
				} else {
					m.mu.Lock()
					m.children = keep
					m.mu.Unlock()
				}
			}
			m.mu.Lock()
			if m.main.status == InUse {
				m.main.status = Free
			}
			m.mu.Unlock()
		}
	}

	m.mu.Lock()
	short := m.cfg.ExpectedChildCount - len(m.children)
	m.mu.Unlock()
	if short > 0 {
		if err := m.splitMain(ctx, short); err != nil {
			logger.Warn("reconciler split failed", "err", err)
		}
	}
}

// OnEpochChange re-reads every coin parked in SkipForRemainderOfEpoch,
// moving it to Free on success or NeedsVersionUpdate otherwise. Called
// by the background epoch tracker on each detected epoch boundary.
func (m *Manager) OnEpochChange(ctx context.Context) {
	m.mu.Lock()
	var skipped []*trackedCoin
	if m.main.status == SkipForRemainderOfEpoch {
		skipped = append(skipped, m.main)
	}
	for _, c := range m.children {
		if c.status == SkipForRemainderOfEpoch {
			skipped = append(skipped, c)
		}
	}
	m.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range skipped {
		c := c
		g.Go(func() error {
			ref, balance, err := m.chain.ReadObject(gctx, c.ref.ID)
			m.mu.Lock()
			if err == nil {
				c.ref = ref
				c.balance = balance
				c.status = Free
			} else {
				c.status = NeedsVersionUpdate
			}
			m.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
}
