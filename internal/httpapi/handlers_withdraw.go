package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/sui"
)

// withMainGasCoin implements the deposit/withdraw flow: acquire main
// (non-blocking: if main is busy, ErrMainInUse is returned at once and the
// client retries the request), merge any untracked coins
// into it, run build against it as gas payment, submit directly (not via
// the executor, which only ever hands out child gas coins), then reconcile
// and release main -- all regardless of which operation build constructs.
func (s *Server) withMainGasCoin(ctx context.Context, build func(gasCoin sui.ObjectRef) ([]byte, error)) (string, error) {
	handle, ref, err := s.gasPool.GetMainGasCoin(ctx)
	if err != nil {
		return "", err
	}

	var (
		effects *chain.TxEffects
		txErr   error
	)
	defer func() {
		s.gasPool.Release(ctx, handle, effects, txErr)
	}()

	if err := s.gasPool.MergeUntrackedInto(ctx, handle); err != nil {
		txErr = err
		return "", err
	}

	txBytes, err := build(ref)
	if err != nil {
		txErr = err
		return "", err
	}

	effects, err = s.chainClient.SubmitTransaction(ctx, txBytes, ref, s.gasBudget)
	if err != nil {
		txErr = err
		return "", err
	}

	if !effects.Success {
		msg := effects.Error
		if msg == "" {
			msg = "unknown on-chain failure"
		}
		txErr = errors.New(msg)
		return "", txErr
	}
	return effects.Digest, nil
}

func (s *Server) handleDepositIntoPool(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleDeposit(w, r)
}

func (s *Server) handleDepositIntoBalanceManager(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleDeposit(w, r)
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	amount, err := parseUint64(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	digest, err := s.withMainGasCoin(r.Context(), func(gasCoin sui.ObjectRef) ([]byte, error) {
		return s.chainClient.BuildDepositTx(r.Context(), sui.ObjectRef{ID: s.balanceMgrID}, req.Pool, req.CoinType, amount)
	})
	if err != nil {
		s.writeExecError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Status: "success", TxDigest: digest})
}

func (s *Server) handleWithdrawFromPool(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleWithdrawGeneric(w, r)
}

func (s *Server) handleWithdrawFromBalanceManager(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleWithdrawGeneric(w, r)
}

func (s *Server) handleWithdrawSui(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	req.CoinType = "0x2::sui::SUI"
	s.withdraw(w, r, req)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.handleWithdrawGeneric(w, r)
}

func (s *Server) handleWithdrawGeneric(w http.ResponseWriter, r *http.Request) {
	var req withdrawRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	s.withdraw(w, r, req)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request, req withdrawRequest) {
	if !s.whitelist.Allowed(s.chainName, req.Recipient) {
		writeError(w, http.StatusBadRequest, "UNAUTHORISED", "recipient is not whitelisted")
		return
	}
	amount, err := parseUint64(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	digest, err := s.withMainGasCoin(r.Context(), func(gasCoin sui.ObjectRef) ([]byte, error) {
		return s.chainClient.BuildWithdrawTx(r.Context(), sui.ObjectRef{ID: s.balanceMgrID}, req.Pool, req.CoinType, req.Recipient, amount)
	})
	if err != nil {
		s.writeExecError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Status: "success", TxDigest: digest})
}
