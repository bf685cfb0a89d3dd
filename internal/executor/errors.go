package executor

import (
	"errors"
	"strings"

	"github.com/suidex/dex-proxy/internal/sui"
)

// Error kinds are expressed as a small open taxonomy rather than a closed
// enum so HTTP handlers can type-switch while new kinds can still be added
// without breaking existing switches (each kind implements error and
// carries its own Is/As hooks).

// TransientNetworkError wraps an RPC transport failure.
type TransientNetworkError struct{ Cause error }

func (e *TransientNetworkError) Error() string { return "transient network error: " + e.Cause.Error() }
func (e *TransientNetworkError) Unwrap() error { return e.Cause }

// OnChainAbortError carries a parsed Move abort.
type OnChainAbortError struct {
	Abort         *sui.MoveAbort
	ClientOrderID string // set by the caller when the abort's command index maps to a batched order
}

func (e *OnChainAbortError) Error() string { return e.Abort.Error() }

// FinalityTimeoutError is the resource-poisoning path: the transaction may
// still apply later, so it is surfaced as a server error so the caller
// retries rather than assuming failure.
type FinalityTimeoutError struct{ Digest string }

func (e *FinalityTimeoutError) Error() string {
	return "transaction timed out before reaching finality: " + e.Digest
}

// InsufficientGasError is special-cased from the chain's own error string.
type InsufficientGasError struct{ Raw string }

func (e *InsufficientGasError) Error() string { return "insufficient gas: " + e.Raw }

var insufficientGasMarkers = []string{"insufficient gas", "InsufficientGas", "balance is not enough to pay for gas"}

func isInsufficientGas(raw string) bool {
	for _, marker := range insufficientGasMarkers {
		if strings.Contains(raw, marker) {
			return true
		}
	}
	return false
}

// ErrPoolExhausted is returned when either the account-cap pool or the
// gas-coin pool currently has no Free entry.
var ErrPoolExhausted = errors.New("executor: resource pool exhausted")
