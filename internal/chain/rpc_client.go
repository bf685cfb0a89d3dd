package chain

import (
	"context"

	"github.com/suidex/dex-proxy/internal/rpcpool"
	"github.com/suidex/dex-proxy/internal/sui"
)

// rpcClient is the production Client, backed by a pool of JSON-RPC
// endpoints. Each method is a thin CallContext-style wrapper, mirroring
// client/bridge_client.go's one-call-per-method shape in the teacher repo.
type rpcClient struct {
	pool *rpcpool.Pool
}

// NewRPCClient adapts an rpcpool.Pool into a chain.Client.
func NewRPCClient(pool *rpcpool.Pool) Client {
	return &rpcClient{pool: pool}
}

type ownedObjectsPage struct {
	Data       []coinObject `json:"data"`
	NextCursor string       `json:"nextCursor"`
	HasMore    bool         `json:"hasNextPage"`
}

type coinObject struct {
	CoinObjectID string `json:"coinObjectId"`
	Version      uint64 `json:"version"`
	Digest       string `json:"digest"`
	Balance      string `json:"balance"`
}

func (c *rpcClient) ListOwnedCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error) {
	var coins []sui.Coin
	cursor := ""
	for {
		var page ownedObjectsPage
		if err := c.pool.Current().Call(ctx, &page, "suix_getCoins", owner, coinType, cursor, 50); err != nil {
			return nil, err
		}
		for _, o := range page.Data {
			coins = append(coins, sui.Coin{
				Ref: sui.ObjectRef{
					ID:      o.CoinObjectID,
					Version: o.Version,
					Digest:  o.Digest,
				},
				Balance: parseUint(o.Balance),
			})
		}
		if !page.HasMore {
			break
		}
		cursor = page.NextCursor
	}
	return coins, nil
}

type objectResponse struct {
	Data *struct {
		ObjectID string `json:"objectId"`
		Version  uint64 `json:"version"`
		Digest   string `json:"digest"`
		Content  struct {
			Fields struct {
				Balance string `json:"balance"`
			} `json:"fields"`
		} `json:"content"`
	} `json:"data"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (c *rpcClient) ReadObject(ctx context.Context, id string) (sui.ObjectRef, uint64, error) {
	var resp objectResponse
	if err := c.pool.Current().Call(ctx, &resp, "sui_getObject", id); err != nil {
		return sui.ObjectRef{}, 0, err
	}
	if resp.Data == nil {
		return sui.ObjectRef{}, 0, ErrObjectNotFound
	}
	return sui.ObjectRef{
		ID:      resp.Data.ObjectID,
		Version: resp.Data.Version,
		Digest:  resp.Data.Digest,
	}, parseUint(resp.Data.Content.Fields.Balance), nil
}

type txResponse struct {
	Digest  string `json:"digest"`
	Effects struct {
		Status struct {
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"status"`
		GasUsed struct {
			ComputationCost uint64 `json:"computationCost"`
			StorageCost     uint64 `json:"storageCost"`
			StorageRebate   uint64 `json:"storageRebate"`
		} `json:"gasUsed"`
		GasObject struct {
			Reference sui.ObjectRef `json:"reference"`
		} `json:"gasObject"`
	} `json:"effects"`
	Events []struct {
		Type     string                 `json:"type"`
		Fields   map[string]interface{} `json:"parsedJson"`
	} `json:"events"`
}

func (c *rpcClient) SubmitTransaction(ctx context.Context, txBytes []byte, gasPayment sui.ObjectRef, budget uint64) (*TxEffects, error) {
	var resp txResponse
	err := c.pool.Current().Call(ctx, &resp, "sui_executeTransactionBlock", txBytes, gasPayment, budget)
	if err != nil {
		return nil, err
	}

	effects := &TxEffects{
		Digest:          resp.Digest,
		GasObject:       resp.Effects.GasObject.Reference,
		ComputationCost: resp.Effects.GasUsed.ComputationCost,
		StorageCost:     resp.Effects.GasUsed.StorageCost,
		StorageRebate:   resp.Effects.GasUsed.StorageRebate,
		Success:         resp.Effects.Status.Status == "success",
		Error:           resp.Effects.Status.Error,
	}
	for _, e := range resp.Events {
		effects.Events = append(effects.Events, RawEvent{Type: e.Type, Fields: e.Fields, TxDigest: resp.Digest})
	}
	return effects, nil
}

func (c *rpcClient) QueryEvents(ctx context.Context, filter EventFilter, cursor string) ([]RawEvent, string, error) {
	var resp struct {
		Data []struct {
			Type     string                 `json:"type"`
			Fields   map[string]interface{} `json:"parsedJson"`
			TxDigest string                 `json:"id.txDigest"`
		} `json:"data"`
		NextCursor string `json:"nextCursor"`
	}
	if err := c.pool.Current().Call(ctx, &resp, "suix_queryEvents", filter, cursor, 100); err != nil {
		return nil, cursor, err
	}
	events := make([]RawEvent, 0, len(resp.Data))
	for _, e := range resp.Data {
		events = append(events, RawEvent{Type: e.Type, Fields: e.Fields, TxDigest: e.TxDigest})
	}
	return events, resp.NextCursor, nil
}

func (c *rpcClient) CurrentEpoch(ctx context.Context) (uint64, error) {
	var resp struct {
		Epoch string `json:"epoch"`
	}
	if err := c.pool.Current().Call(ctx, &resp, "suix_getLatestSuiSystemState"); err != nil {
		return 0, err
	}
	return parseUint(resp.Epoch), nil
}

type mergeCoinsRequest struct {
	Kind    string          `json:"kind"`
	Primary sui.ObjectRef   `json:"primary"`
	Merge   []sui.ObjectRef `json:"coinsToMerge"`
}

func (c *rpcClient) BuildMergeCoinsTx(ctx context.Context, primary sui.ObjectRef, toMerge []sui.ObjectRef) ([]byte, error) {
	var txBytes []byte
	req := mergeCoinsRequest{Kind: "mergeCoins", Primary: primary, Merge: toMerge}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_mergeCoins", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

type splitCoinsRequest struct {
	Kind    string        `json:"kind"`
	Coin    sui.ObjectRef `json:"coin"`
	Amounts []uint64      `json:"splitAmounts"`
}

func (c *rpcClient) BuildSplitCoinsTx(ctx context.Context, coin sui.ObjectRef, amounts []uint64) ([]byte, error) {
	var txBytes []byte
	req := splitCoinsRequest{Kind: "splitCoins", Coin: coin, Amounts: amounts}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_splitCoins", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildPlaceOrdersTx(ctx context.Context, accountCap sui.ObjectRef, orders []OrderParams) ([]byte, error) {
	var txBytes []byte
	req := struct {
		Kind       string        `json:"kind"`
		AccountCap sui.ObjectRef `json:"accountCap"`
		Orders     []OrderParams `json:"orders"`
	}{Kind: "placeLimitOrders", AccountCap: accountCap, Orders: orders}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildCancelOrderTx(ctx context.Context, accountCap sui.ObjectRef, poolID string, exchangeOrderID string) ([]byte, error) {
	var txBytes []byte
	req := struct {
		Kind            string        `json:"kind"`
		AccountCap      sui.ObjectRef `json:"accountCap"`
		PoolID          string        `json:"poolId"`
		ExchangeOrderID string        `json:"exchangeOrderId"`
	}{Kind: "cancelOrder", AccountCap: accountCap, PoolID: poolID, ExchangeOrderID: exchangeOrderID}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildCancelAllOrdersTx(ctx context.Context, accountCap sui.ObjectRef, poolID string) ([]byte, error) {
	var txBytes []byte
	req := struct {
		Kind       string        `json:"kind"`
		AccountCap sui.ObjectRef `json:"accountCap"`
		PoolID     string        `json:"poolId"`
	}{Kind: "cancelAllOrders", AccountCap: accountCap, PoolID: poolID}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildDepositTx(ctx context.Context, accountCap sui.ObjectRef, poolID, coinType string, amount uint64) ([]byte, error) {
	var txBytes []byte
	req := struct {
		Kind       string        `json:"kind"`
		AccountCap sui.ObjectRef `json:"accountCap"`
		PoolID     string        `json:"poolId"`
		CoinType   string        `json:"coinType"`
		Amount     uint64        `json:"amount"`
	}{Kind: "deposit", AccountCap: accountCap, PoolID: poolID, CoinType: coinType, Amount: amount}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildWithdrawTx(ctx context.Context, accountCap sui.ObjectRef, poolID, coinType, recipient string, amount uint64) ([]byte, error) {
	var txBytes []byte
	req := struct {
		Kind       string        `json:"kind"`
		AccountCap sui.ObjectRef `json:"accountCap"`
		PoolID     string        `json:"poolId"`
		CoinType   string        `json:"coinType"`
		Recipient  string        `json:"recipient"`
		Amount     uint64        `json:"amount"`
	}{Kind: "withdraw", AccountCap: accountCap, PoolID: poolID, CoinType: coinType, Recipient: recipient, Amount: amount}
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", req); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildMintAccountCapTx(ctx context.Context) ([]byte, error) {
	var txBytes []byte
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", map[string]string{"kind": "mintAccountCap"}); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func (c *rpcClient) BuildCreateBalanceManagerTx(ctx context.Context) ([]byte, error) {
	var txBytes []byte
	if err := c.pool.Current().Call(ctx, &txBytes, "unsafe_moveCall", map[string]string{"kind": "createBalanceManager"}); err != nil {
		return nil, err
	}
	return txBytes, nil
}

func parseUint(s string) uint64 {
	var v uint64
	for _, r := range s {
		if r < '0' || r > '9' {
			return v
		}
		v = v*10 + uint64(r-'0')
	}
	return v
}
