package gaspool

import "errors"

// Sentinel errors returned by the gas-coin manager.
var (
	// ErrStartup is fatal: no SUI coin found, or main could not be
	// established.
	ErrStartup = errors.New("gaspool: startup failed")

	// ErrExhausted is the non-blocking "try again" failure of
	// GetFreeGasCoin when no child is currently Free.
	ErrExhausted = errors.New("gaspool: no free gas coin")

	// ErrMainInUse is the "try again" error GetMainGasCoin returns when
	// main is not Free (InUse by a concurrent operation, or still parked
	// after the on-demand refresh).
	ErrMainInUse = errors.New("gaspool: main gas coin is in use")
)
