package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suidex/dex-proxy/internal/accountpool"
	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/executor"
	"github.com/suidex/dex-proxy/internal/gaspool"
	"github.com/suidex/dex-proxy/internal/ordercache"
	"github.com/suidex/dex-proxy/internal/sui"
	"github.com/suidex/dex-proxy/internal/whitelist"
)

// fakeChain is a minimal chain.Client double exercising only what the
// httpapi tests need.
type fakeChain struct {
	events    []chain.RawEvent
	submitErr error
}

func (f *fakeChain) ListOwnedCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error) {
	return []sui.Coin{
		{Ref: sui.ObjectRef{ID: "main", Version: 1}, Balance: 5000},
		{Ref: sui.ObjectRef{ID: "child1", Version: 1}, Balance: 500},
	}, nil
}
func (f *fakeChain) ReadObject(ctx context.Context, id string) (sui.ObjectRef, uint64, error) {
	return sui.ObjectRef{ID: id, Version: 2}, 100, nil
}
func (f *fakeChain) SubmitTransaction(ctx context.Context, txBytes []byte, gasPayment sui.ObjectRef, budget uint64) (*chain.TxEffects, error) {
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &chain.TxEffects{
		Digest:    "tx1",
		Success:   true,
		GasObject: sui.ObjectRef{ID: gasPayment.ID, Version: gasPayment.Version + 1, Digest: "d"},
		Events:    []chain.RawEvent{{Type: "0x1::clob_v2::OrderPlaced", Fields: map[string]interface{}{"order_id": "exch-1"}}},
	}, nil
}
func (f *fakeChain) QueryEvents(ctx context.Context, filter chain.EventFilter, cursor string) ([]chain.RawEvent, string, error) {
	return f.events, "", nil
}
func (f *fakeChain) CurrentEpoch(ctx context.Context) (uint64, error) { return 1, nil }
func (f *fakeChain) BuildMergeCoinsTx(ctx context.Context, primary sui.ObjectRef, toMerge []sui.ObjectRef) ([]byte, error) {
	return nil, nil
}
func (f *fakeChain) BuildSplitCoinsTx(ctx context.Context, coin sui.ObjectRef, amounts []uint64) ([]byte, error) {
	return nil, nil
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
func (f *fakeChain) BuildMintAccountCapTx(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakeChain) BuildCreateBalanceManagerTx(ctx context.Context) ([]byte, error) {
	return nil, nil
}

var _ chain.Client = (*fakeChain)(nil)

func newTestServer(t *testing.T) (*Server, *fakeChain) {
	t.Helper()
	fc := &fakeChain{}

	gp := gaspool.New(gaspool.Config{
		MaxBalancePerInstanceMist: 10000,
		MinBalancePerInstanceMist: 100,
		SyncInterval:              time.Hour,
		GasBudgetMist:             10,
		ExpectedChildCount:        1,
		CoinType:                  "0x2::sui::SUI",
		WalletAddress:             "0xwallet",
	}, fc)
	require.NoError(t, gp.Start(context.Background()))
	t.Cleanup(gp.Stop)

	ap := accountpool.New([]string{"cap1"})
	ex := executor.New(gp, ap, fc, 10, sui.V2)

	wl, err := writeTempWhitelist(t)
	require.NoError(t, err)

	s := NewServer(Deps{
		Cache:        ordercache.New(100),
		GasPool:      gp,
		AccountPool:  ap,
		Executor:     ex,
		ChainClient:  fc,
		Whitelist:    wl,
		Version:      sui.V2,
		WalletAddr:   "0xwallet",
		BalanceMgrID: "0xbm",
		ChainName:    "sui",
		GasBudget:    10,
		Pools:        map[string]PoolInfo{"DEEP_SUI": {ID: "DEEP_SUI"}},
	})
	return s, fc
}

func writeTempWhitelist(t *testing.T) (*whitelist.List, error) {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/wl.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"sui": ["0xfriend"]}`), 0o600))
	return whitelist.Load(path)
}

func insertOrderBody(clientID string) []byte {
	b, _ := json.Marshal(insertOrderRequest{
		ClientOrderID: clientID,
		Pool:          "DEEP_SUI",
		OrderType:     "GTC",
		Side:          "BUY",
		Quantity:      "10",
		Price:         "100",
	})
	return b
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestInsertOrderCancelOrderThenNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/order", insertOrderBody("c1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "tx1", resp.TxDigest)

	rec = doRequest(s, http.MethodGet, "/order?client_order_id=c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodDelete, "/order?pool=DEEP_SUI&client_order_id=c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/order?client_order_id=c1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "cancelled order must be evicted from the cache")
}

func TestInsertOrdersRejectsEmptyList(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(bulkInsertRequest{Pool: "DEEP_SUI", Orders: nil})

	rec := doRequest(s, http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "EMPTY_ORDERS", errResp.Type)
}

func TestWithdrawRejectsNonWhitelistedRecipient(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(withdrawRequest{
		Pool: "DEEP_SUI", CoinType: "0x2::sui::SUI", Amount: "1", Recipient: "0xstranger",
	})

	rec := doRequest(s, http.MethodPost, "/withdraw", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "UNAUTHORISED", errResp.Type)
}

func TestWithdrawSucceedsForWhitelistedRecipient(t *testing.T) {
	s, _ := newTestServer(t)
	body, _ := json.Marshal(withdrawRequest{
		Pool: "DEEP_SUI", CoinType: "0x2::sui::SUI", Amount: "1", Recipient: "0xfriend",
	})

	rec := doRequest(s, http.MethodPost, "/withdraw", body)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTradesRejectsLookbackBeyond40Minutes(t *testing.T) {
	s, _ := newTestServer(t)
	tooOld := strconv.FormatInt(time.Now().Add(-41*time.Minute).UnixMilli(), 10)

	rec := doRequest(s, http.MethodGet, "/trades?start_ts="+tooOld, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "LOOKBACK_TOO_FAR", errResp.Type)
}

func TestTradesAcceptsLookbackWithin40Minutes(t *testing.T) {
	s, _ := newTestServer(t)
	recent := strconv.FormatInt(time.Now().Add(-39*time.Minute).UnixMilli(), 10)

	rec := doRequest(s, http.MethodGet, "/trades?start_ts="+recent, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteReturns404(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/nonexistent", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInsertOrderRejectsUnknownFields(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/order", []byte(`{"client_order_id":"c1","bogus_field":1}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPoolKnownAndUnknown(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/pool?id=DEEP_SUI", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(s, http.MethodGet, "/pool?id=NOPE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletBalanceInfoSumsOwnedCoins(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(s, http.MethodGet, "/wallet-balance-info", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, float64(5500), out["total_balance"])
}
