package gaspool

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/sui"
)

// fakeChain is a minimal in-memory chain.Client double exercising only
// what internal/gaspool's tests need; it never dials anything.
type fakeChain struct {
	mu    sync.Mutex
	coins []sui.Coin
	// objects maps object id -> (ref, balance) for ReadObject.
	objects map[string]objectState

	nextVersion uint64
	nextCoinID  int
	pendingSplit []uint64
}

type objectState struct {
	ref     sui.ObjectRef
	balance uint64
}

func newFakeChain(coins []sui.Coin) *fakeChain {
	f := &fakeChain{coins: coins, objects: map[string]objectState{}, nextVersion: 100}
	for _, c := range coins {
		f.objects[c.Ref.ID] = objectState{ref: c.Ref, balance: c.Balance}
	}
	return f
}

func (f *fakeChain) ListOwnedCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sui.Coin, len(f.coins))
	copy(out, f.coins)
	return out, nil
}

func (f *fakeChain) ReadObject(ctx context.Context, id string) (sui.ObjectRef, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[id]
	if !ok {
		return sui.ObjectRef{}, 0, chain.ErrObjectNotFound
	}
	return o.ref, o.balance, nil
}

func (f *fakeChain) SubmitTransaction(ctx context.Context, txBytes []byte, gasPayment sui.ObjectRef, budget uint64) (*chain.TxEffects, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextVersion++
	newRef := sui.ObjectRef{ID: gasPayment.ID, Version: f.nextVersion, Digest: "d"}
	f.objects[gasPayment.ID] = objectState{ref: newRef, balance: f.objects[gasPayment.ID].balance}

	// Mimic the chain materialising the coins a split transaction creates,
	// so the reconciler's follow-up wallet scan (ListOwnedCoins) finds them.
	if len(txBytes) > 0 && string(txBytes) == "split" && len(f.pendingSplit) > 0 {
		for _, amount := range f.pendingSplit {
			f.nextCoinID++
			id := sui.ObjectRef{ID: "split-child-" + strconv.Itoa(f.nextCoinID), Version: 1, Digest: "d0"}
			f.coins = append(f.coins, sui.Coin{Ref: id, Balance: amount})
			f.objects[id.ID] = objectState{ref: id, balance: amount}
		}
		f.pendingSplit = nil
	}

	return &chain.TxEffects{Digest: "tx1", GasObject: newRef, Success: true}, nil
}

func (f *fakeChain) QueryEvents(ctx context.Context, filter chain.EventFilter, cursor string) ([]chain.RawEvent, string, error) {
	return nil, "", nil
}
func (f *fakeChain) CurrentEpoch(ctx context.Context) (uint64, error) { return 1, nil }
func (f *fakeChain) BuildMergeCoinsTx(ctx context.Context, primary sui.ObjectRef, toMerge []sui.ObjectRef) ([]byte, error) {
	return []byte("merge"), nil
}
func (f *fakeChain) BuildSplitCoinsTx(ctx context.Context, coin sui.ObjectRef, amounts []uint64) ([]byte, error) {
	f.mu.Lock()
	f.pendingSplit = append([]uint64{}, amounts...)
	f.mu.Unlock()
	return []byte("split"), nil
}
func (f *fakeChain) BuildPlaceOrdersTx(ctx context.Context, accountCap sui.ObjectRef, orders []chain.OrderParams) ([]byte, error) {
	return []byte("place"), nil
}
func (f *fakeChain) BuildCancelOrderTx(ctx context.Context, accountCap sui.ObjectRef, poolID, exchangeOrderID string) ([]byte, error) {
	return []byte("cancel"), nil
}
func (f *fakeChain) BuildCancelAllOrdersTx(ctx context.Context, accountCap sui.ObjectRef, poolID string) ([]byte, error) {
	return []byte("cancelall"), nil
}
func (f *fakeChain) BuildDepositTx(ctx context.Context, accountCap sui.ObjectRef, poolID, coinType string, amount uint64) ([]byte, error) {
	return []byte("deposit"), nil
}
func (f *fakeChain) BuildWithdrawTx(ctx context.Context, accountCap sui.ObjectRef, poolID, coinType, recipient string, amount uint64) ([]byte, error) {
	return []byte("withdraw"), nil
}
func (f *fakeChain) BuildMintAccountCapTx(ctx context.Context) ([]byte, error) {
	return []byte("mint"), nil
}
func (f *fakeChain) BuildCreateBalanceManagerTx(ctx context.Context) ([]byte, error) {
	return []byte("createbm"), nil
}

var _ chain.Client = (*fakeChain)(nil)

func testCfg() Config {
	return Config{
		MaxBalancePerInstanceMist: 1000,
		MinBalancePerInstanceMist: 100,
		SyncInterval:              time.Hour,
		GasBudgetMist:             10,
		ExpectedChildCount:        2,
		CoinType:                  "0x2::sui::SUI",
		WalletAddress:             "0xwallet",
	}
}

func coin(id string, balance uint64) sui.Coin {
	return sui.Coin{Ref: sui.ObjectRef{ID: id, Version: 1, Digest: "d0"}, Balance: balance}
}

func TestStartDesignatesHighestBalanceAsMain(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500), coin("c2", 500)})
	m := New(testCfg(), fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.Equal(t, "main", m.main.ref.ID)
	assert.Equal(t, 2, m.ChildCount())
}

func TestStartFailsWithNoCoins(t *testing.T) {
	fc := newFakeChain(nil)
	m := New(testCfg(), fc)
	err := m.Start(context.Background())
	assert.ErrorIs(t, err, ErrStartup)
}

func TestGetFreeGasCoinRoundRobinAndExhaustion(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500), coin("c2", 500)})
	m := New(testCfg(), fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	h1, ref1, err := m.GetFreeGasCoin()
	require.NoError(t, err)
	h2, ref2, err := m.GetFreeGasCoin()
	require.NoError(t, err)
	assert.NotEqual(t, ref1.ID, ref2.ID)

	_, _, err = m.GetFreeGasCoin()
	assert.ErrorIs(t, err, ErrExhausted)

	m.Release(context.Background(), h1, &chain.TxEffects{Success: true, GasObject: ref1}, nil)
	_, _, err = m.GetFreeGasCoin()
	assert.NoError(t, err)

	m.Release(context.Background(), h2, &chain.TxEffects{Success: true, GasObject: ref2}, nil)
}

func TestReleaseFinalityTimeoutParksCoin(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500)})
	m := New(testCfg(), fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	h, ref, err := m.GetFreeGasCoin()
	require.NoError(t, err)

	m.Release(context.Background(), h, &chain.TxEffects{Error: "Transaction timed out before reaching finality", GasObject: ref}, nil)

	counts := m.StatusCounts()
	assert.Equal(t, 1, counts[SkipForRemainderOfEpoch])
}

func TestReleaseWithResponseVersionReturnsCoinToFree(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500)})
	m := New(testCfg(), fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	h, ref, err := m.GetFreeGasCoin()
	require.NoError(t, err)

	advanced := ref
	advanced.Version++
	m.Release(context.Background(), h, &chain.TxEffects{Success: true, GasObject: advanced}, nil)

	// main, c1 and the child Start split off to reach the target of 2.
	assert.Equal(t, 3, m.StatusCounts()[Free])
}

func TestReleaseFallsBackToRereadOnMissingResponseVersion(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500)})
	m := New(testCfg(), fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	h, _, err := m.GetFreeGasCoin()
	require.NoError(t, err)

	// No GasObject version in effects: Release must fall back to
	// ReadObject, which fakeChain answers from its tracked object state.
	m.Release(context.Background(), h, &chain.TxEffects{Success: true}, nil)

	// main, c1 and the child Start split off to reach the target of 2.
	assert.Equal(t, 3, m.StatusCounts()[Free])
}

func TestOnEpochChangeRecoversSkippedCoins(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500)})
	m := New(testCfg(), fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	h, ref, err := m.GetFreeGasCoin()
	require.NoError(t, err)
	m.Release(context.Background(), h, &chain.TxEffects{Error: "Transaction timed out before reaching finality", GasObject: ref}, nil)
	require.Equal(t, 1, m.StatusCounts()[SkipForRemainderOfEpoch])

	m.OnEpochChange(context.Background())
	assert.Equal(t, 0, m.StatusCounts()[SkipForRemainderOfEpoch])
}

func TestStartSplitsMainToReplenishChildCount(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000)})
	cfg := testCfg()
	cfg.ExpectedChildCount = 3
	m := New(cfg, fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	assert.Equal(t, 3, m.ChildCount())
	for _, c := range m.children {
		assert.Equal(t, cfg.MaxBalancePerInstanceMist, c.balance)
	}
}

// TestReconcileTickBandCorrectionConvergesChildCount drives the literal
// band-correction scenario: a tracked child drifts below min, the tick
// merges it into main, and the subsequent split replenishes exactly the
// shortfall -- without the merge/split pair oscillating forever.
func TestReconcileTickBandCorrectionConvergesChildCount(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000)})
	cfg := testCfg()
	cfg.ExpectedChildCount = 3
	m := New(cfg, fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()
	require.Equal(t, 3, m.ChildCount())

	// A child drifts below min (an owned coin observed at half the
	// configured floor).
	drifted := sui.ObjectRef{ID: "drifted", Version: 1, Digest: "d0"}
	m.mu.Lock()
	m.children = append(m.children, &trackedCoin{ref: drifted, balance: 50, status: Free})
	m.mu.Unlock()
	fc.mu.Lock()
	fc.coins = append(fc.coins, sui.Coin{Ref: drifted, Balance: 50})
	fc.objects[drifted.ID] = objectState{ref: drifted, balance: 50}
	fc.mu.Unlock()
	require.Equal(t, 4, m.ChildCount())

	m.reconcileTick()

	assert.Equal(t, 3, m.ChildCount())
	for _, c := range m.children {
		assert.NotEqual(t, "drifted", c.ref.ID)
		assert.Equal(t, Free, c.status)
	}
}

// TestGetFreeGasCoinHandleSurvivesReconcilerReslice exercises the bug this
// pool guarded against: a handle acquired before a reconciler tick that
// reorders/reslices m.children must still refer to the same coin afterward.
func TestGetFreeGasCoinHandleSurvivesReconcilerReslice(t *testing.T) {
	fc := newFakeChain([]sui.Coin{coin("main", 5000), coin("c1", 500), coin("c2", 500)})
	cfg := testCfg()
	cfg.ExpectedChildCount = 2
	m := New(cfg, fc)
	require.NoError(t, m.Start(context.Background()))
	defer m.Stop()

	// Acquire c1 (or c2, whichever round-robin serves first) so it is
	// InUse when the tick below reslices m.children.
	h, ref, err := m.GetFreeGasCoin()
	require.NoError(t, err)

	// Inject a Free, out-of-band coin ahead of the in-use one so the
	// reconciler's filter removes an earlier slice element and shifts the
	// in-use coin's position.
	outOfBand := sui.ObjectRef{ID: "outofband", Version: 1, Digest: "d0"}
	m.mu.Lock()
	m.children = append([]*trackedCoin{{ref: outOfBand, balance: 10, status: Free}}, m.children...)
	m.mu.Unlock()
	fc.mu.Lock()
	fc.coins = append(fc.coins, sui.Coin{Ref: outOfBand, Balance: 10})
	fc.objects[outOfBand.ID] = objectState{ref: outOfBand, balance: 10}
	fc.mu.Unlock()

	m.reconcileTick()

	// The handle acquired before the tick must still resolve to the same
	// coin, not whatever now occupies its old slice position.
	m.Release(context.Background(), h, &chain.TxEffects{Success: true, GasObject: ref}, nil)
	assert.Equal(t, ref.ID, h.coin.ref.ID)
}
