// Package chain is the narrow boundary between dex-proxy's domain logic
// (gas-coin manager, account-cap pool, executor) and the upstream Sui RPC
// surface. The upstream blockchain SDK and its wire codec are treated as
// an external collaborator; this package is the thin seam dex-proxy owns.
package chain

import (
	"context"

	"github.com/suidex/dex-proxy/internal/sui"
)

// TxEffects is the subset of a transaction response dex-proxy reasons
// about: the post-transaction state of the gas object used to pay for it,
// the gas cost breakdown (needed to compute the coin's new balance without
// a re-read), any emitted Move events, and a raw error string when the
// transaction itself failed on-chain (Move abort, finality timeout, ...).
type TxEffects struct {
	Digest string

	GasObject       sui.ObjectRef
	ComputationCost uint64
	StorageCost     uint64
	StorageRebate   uint64

	Events []RawEvent

	Success bool
	Error   string // raw chain error string, see sui.TryParseError / IsFinalityTimeout
}

// NewGasBalance computes the gas coin's new balance from the effects of
// the transaction it paid for.
func (e *TxEffects) NewGasBalance(oldBalance uint64) uint64 {
	spent := e.ComputationCost + e.StorageCost
	if spent > oldBalance+e.StorageRebate {
		return 0
	}
	return oldBalance + e.StorageRebate - spent
}

// RawEvent is an untyped on-chain event as delivered by the event query /
// subscription APIs; internal/eventsub is responsible for typing it.
type RawEvent struct {
	Type   string
	Fields map[string]interface{}
	TxDigest string
}

// TxRecipe materialises a transaction given the two pooled resources it
// will be signed and paid with. Request handlers (internal/executor
// callers) supply these; the executor never knows the shape of the
// resulting transaction, only how to submit it.
type TxRecipe func(ctx context.Context, accountCap sui.ObjectRef, gasCoin sui.ObjectRef) (txBytes []byte, err error)

// Client is everything the domain packages need from the chain. A real
// implementation submits through internal/rpcpool; tests substitute a fake.
type Client interface {
	// ListOwnedCoins returns every coin of coinType owned by owner,
	// paginated internally until exhausted.
	ListOwnedCoins(ctx context.Context, owner, coinType string) ([]sui.Coin, error)

	// ReadObject re-reads an owned object's current version/digest/balance.
	// It returns ErrObjectNotFound if the object no longer exists.
	ReadObject(ctx context.Context, id string) (sui.ObjectRef, uint64, error)

	// SubmitTransaction signs (with the process keypair) and submits
	// txBytes, using gasPayment as the sole gas-payment coin and budget as
	// the gas budget.
	SubmitTransaction(ctx context.Context, txBytes []byte, gasPayment sui.ObjectRef, budget uint64) (*TxEffects, error)

	// QueryEvents returns events matching a sender or MoveEventField filter
	// since the given cursor.
	QueryEvents(ctx context.Context, filter EventFilter, cursor string) ([]RawEvent, string, error)

	// CurrentEpoch returns the chain's current epoch number, used by the
	// epoch tracker.
	CurrentEpoch(ctx context.Context) (uint64, error)

	// BuildMergeCoinsTx and BuildSplitCoinsTx construct the programmable
	// transaction block bytes for the gas-coin manager's consolidation and
	// replenishment operations. The wire encoding itself belongs to the
	// upstream SDK; this method is the seam dex-proxy calls through.
	BuildMergeCoinsTx(ctx context.Context, primary sui.ObjectRef, toMerge []sui.ObjectRef) ([]byte, error)
	BuildSplitCoinsTx(ctx context.Context, coin sui.ObjectRef, amounts []uint64) ([]byte, error)

	// BuildPlaceOrdersTx constructs the place_limit_order / batch entry
	// call for one or more orders in a single transaction. accountCap and
	// clockObject are by-reference inputs; gasCoin is attached separately
	// as gas payment by the caller.
	BuildPlaceOrdersTx(ctx context.Context, accountCap sui.ObjectRef, orders []OrderParams) ([]byte, error)

	// BuildCancelOrderTx / BuildCancelAllOrdersTx build cancellation calls.
	BuildCancelOrderTx(ctx context.Context, accountCap sui.ObjectRef, poolID string, exchangeOrderID string) ([]byte, error)
	BuildCancelAllOrdersTx(ctx context.Context, accountCap sui.ObjectRef, poolID string) ([]byte, error)

	// BuildDepositTx / BuildWithdrawTx build pool/balance-manager transfers.
	BuildDepositTx(ctx context.Context, accountCap sui.ObjectRef, poolID, coinType string, amount uint64) ([]byte, error)
	BuildWithdrawTx(ctx context.Context, accountCap sui.ObjectRef, poolID, coinType, recipient string, amount uint64) ([]byte, error)

	// BuildMintAccountCapTx / BuildCreateBalanceManagerTx build the
	// dedicated capability-minting calls behind POST /account-cap,
	// /child-account-cap, /create-balance-manager.
	BuildMintAccountCapTx(ctx context.Context) ([]byte, error)
	BuildCreateBalanceManagerTx(ctx context.Context) ([]byte, error)
}

// OrderParams is the set of fields a place-order recipe needs per order.
type OrderParams struct {
	ClientOrderID string
	PoolID        string
	Side          sui.Side
	Type          sui.OrderType
	Quantity      uint64
	Price         uint64
	ExpirationTS  uint64
	SelfMatchingPrevention int
	Restriction   int
}

// EventFilter selects which class of event query to run.
type EventFilter struct {
	Sender           string
	MakerAddress     string
	MakerBalanceMgr  string
	TakerBalanceMgr  string
}

// ErrObjectNotFound is returned by ReadObject when the object has been
// deleted or never existed -- the terminal case in the version-update
// "disappeared" branch.
var ErrObjectNotFound = objectNotFoundError{}

type objectNotFoundError struct{}

func (objectNotFoundError) Error() string { return "object not found" }
