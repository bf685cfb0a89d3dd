package executor

import (
	"context"
	"errors"

	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/sui"
)

// ErrInvalidExpirationForV3 is returned when a caller supplies a
// per-order expiration to a v3 (balance-manager) pool, which only accepts
// the fixed far-future sentinel.
var ErrInvalidExpirationForV3 = errors.New("INVALID_EXPIRATION_FOR_V3")

// smpFor returns the self-matching-prevention code for the exchange
// version: CANCEL_OLDEST for v2, CANCEL_MAKER for v3.
func smpFor(version sui.ExchangeVersion) int {
	if version == sui.V3 {
		return sui.SMPCancelMakerV3
	}
	return sui.SMPCancelOldestV2
}

// resolveExpiration validates and normalises the expiration timestamp for
// a single order, per version.
func resolveExpiration(version sui.ExchangeVersion, requested uint64) (uint64, error) {
	if version == sui.V3 {
		if requested != 0 && requested != sui.ExpirationSentinelV3 {
			return 0, ErrInvalidExpirationForV3
		}
		return sui.ExpirationSentinelV3, nil
	}
	return requested, nil
}

// PlaceOrdersRecipe builds a chain.TxRecipe placing one or more orders in a
// single transaction. The returned recipe ignores the gasCoin argument
// (the executor attaches gas payment separately) and only uses accountCap.
func PlaceOrdersRecipe(version sui.ExchangeVersion, orders []chain.OrderParams) (chain.TxRecipe, error) {
	resolved := make([]chain.OrderParams, len(orders))
	for i, o := range orders {
		exp, err := resolveExpiration(version, o.ExpirationTS)
		if err != nil {
			return nil, err
		}
		o.ExpirationTS = exp
		o.SelfMatchingPrevention = smpFor(version)
		resolved[i] = o
	}

	return func(ctx context.Context, accountCap sui.ObjectRef, gasCoin sui.ObjectRef) ([]byte, error) {
		return chainFromContext(ctx).BuildPlaceOrdersTx(ctx, accountCap, resolved)
	}, nil
}

// CancelOrderRecipe builds a recipe cancelling a single order by its
// exchange-assigned id.
func CancelOrderRecipe(poolID, exchangeOrderID string) chain.TxRecipe {
	return func(ctx context.Context, accountCap sui.ObjectRef, gasCoin sui.ObjectRef) ([]byte, error) {
		return chainFromContext(ctx).BuildCancelOrderTx(ctx, accountCap, poolID, exchangeOrderID)
	}
}

// CancelAllOrdersRecipe builds a recipe cancelling every open order on a
// pool, used when a cancel-all request supplies no explicit order list.
func CancelAllOrdersRecipe(poolID string) chain.TxRecipe {
	return func(ctx context.Context, accountCap sui.ObjectRef, gasCoin sui.ObjectRef) ([]byte, error) {
		return chainFromContext(ctx).BuildCancelAllOrdersTx(ctx, accountCap, poolID)
	}
}

// chainClientKey is how recipes reach the chain.Client bound to the
// request without threading it through every recipe constructor's
// signature; it is set once by Execute before invoking the recipe.
type chainClientKey struct{}

func withChainClient(ctx context.Context, c chain.Client) context.Context {
	return context.WithValue(ctx, chainClientKey{}, c)
}

func chainFromContext(ctx context.Context) chain.Client {
	c, _ := ctx.Value(chainClientKey{}).(chain.Client)
	return c
}
