// Package executor serialises dispatch of exchange-side transactions
// across the available (account_cap, gas_coin) pairs, and performs
// post-transaction reconciliation for both objects.
//
// Grounded on work/worker.go's agent registration/release discipline
// (wg sync.WaitGroup, recv chan *Result fan-in), reworked into defer-based
// scoped-acquisition guards so resources are always released under panics,
// returns and early exits alike.
package executor

import (
	"context"

	"github.com/google/uuid"

	"github.com/suidex/dex-proxy/internal/accountpool"
	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/gaspool"
	dexlog "github.com/suidex/dex-proxy/internal/log"
	"github.com/suidex/dex-proxy/internal/sui"
)

var logger = dexlog.NewModuleLogger(dexlog.Executor)

// Executor dispatches transactions through a gas-coin manager and an
// account-cap pool.
type Executor struct {
	gasPool     *gaspool.Manager
	accountPool *accountpool.Pool
	chain       chain.Client
	gasBudget   uint64
	version     sui.ExchangeVersion
}

// New constructs an Executor bound to the given pools and chain client.
func New(gasPool *gaspool.Manager, accountPool *accountpool.Pool, c chain.Client, gasBudget uint64, version sui.ExchangeVersion) *Executor {
	return &Executor{gasPool: gasPool, accountPool: accountPool, chain: c, gasBudget: gasBudget, version: version}
}

// Execute runs the five-step dispatch: acquire an account cap, acquire a
// gas coin, materialise the transaction via recipe, submit it, and
// reconcile + release both pooled resources on every exit path. requestID
// is generated if empty.
func (ex *Executor) Execute(ctx context.Context, requestID string, recipe chain.TxRecipe) (*chain.TxEffects, error) {
	if requestID == "" {
		requestID = uuid.NewString()
	}

	capHandle, capID, err := ex.accountPool.Acquire()
	if err != nil {
		return nil, ErrPoolExhausted
	}

	gasHandle, gasRef, err := ex.gasPool.GetFreeGasCoin()
	if err != nil {
		ex.accountPool.Release(capHandle, false)
		return nil, ErrPoolExhausted
	}

	var (
		effects  *chain.TxEffects
		submitErr error
		timedOut bool
	)
	defer func() {
		ex.gasPool.Release(ctx, gasHandle, effects, submitErr)
		ex.accountPool.Release(capHandle, timedOut)
	}()

	txBytes, err := recipe(withChainClient(ctx, ex.chain), sui.ObjectRef{ID: capID}, gasRef)
	if err != nil {
		submitErr = err
		return nil, err
	}

	effects, submitErr = ex.chain.SubmitTransaction(ctx, txBytes, gasRef, ex.gasBudget)
	if submitErr != nil {
		logger.Warn("transaction submission failed", "request_id", requestID, "err", submitErr)
		return nil, &TransientNetworkError{Cause: submitErr}
	}

	if sui.IsFinalityTimeout(effects.Error) {
		timedOut = true
		return effects, &FinalityTimeoutError{Digest: effects.Digest}
	}

	if !effects.Success {
		if isInsufficientGas(effects.Error) {
			return effects, &InsufficientGasError{Raw: effects.Error}
		}
		if abort, ok := sui.TryParseError(effects.Error, ex.version); ok {
			logger.Info("move abort", "request_id", requestID, "module", abort.Module, "code", abort.Code, "command", abort.Command, "mnemonic", abort.Mnemonic)
			return effects, &OnChainAbortError{Abort: abort}
		}
		return effects, &TransientNetworkError{Cause: errString(effects.Error)}
	}

	return effects, nil
}

type rawErr string

func (r rawErr) Error() string { return string(r) }

func errString(s string) error {
	if s == "" {
		s = "unknown on-chain failure"
	}
	return rawErr(s)
}
