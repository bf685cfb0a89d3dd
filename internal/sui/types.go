// Package sui holds the narrow vocabulary of on-chain types dex-proxy needs
// to reason about: object references, coins, and the exchange version
// variants (v2 clob_v2 vs v3 balance_manager). It is not a general Sui SDK;
// it only models what the gas-coin manager, executor and order cache touch.
package sui

import "fmt"

// ObjectRef identifies a specific version of an owned on-chain object.
// Every transaction that mutates an owned object must reference the
// version it was last observed at; a stale version is rejected by chain
// consensus.
type ObjectRef struct {
	ID      string `json:"objectId"`
	Version uint64 `json:"version"`
	Digest  string `json:"digest"`
}

func (o ObjectRef) String() string {
	return fmt.Sprintf("%s@%d", o.ID, o.Version)
}

// ExchangeVersion distinguishes the two DeepBook contract generations this
// gateway can speak to. They differ in authority object (account cap vs
// balance manager), self-matching-prevention codes, and expiration
// timestamp handling (see ExpirationSentinelV3).
type ExchangeVersion int

const (
	V2 ExchangeVersion = iota
	V3
)

// ExpirationSentinelV3 is DeepBook v3's fixed far-future expiration, used
// in place of a per-order value: a v3 order that requests a different
// expiration is rejected.
const ExpirationSentinelV3 uint64 = 2524608000000

// Side is the book side of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// OrderType is the time-in-force / execution style of an order.
type OrderType int

const (
	GTC OrderType = iota
	IOC
	PostOnly // also referred to as GPO in v3 responses
)

// SelfMatchingPrevention codes, version dependent.
const (
	SMPCancelOldestV2 = 0
	SMPCancelMakerV3  = 2
)

// Coin is an owned SUI-type coin object tracked by the gas-coin manager.
type Coin struct {
	Ref     ObjectRef
	Balance uint64
}
