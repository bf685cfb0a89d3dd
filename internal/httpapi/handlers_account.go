package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/suidex/dex-proxy/internal/sui"
)

// handleCreateAccountCap and its two siblings submit straight through the
// main gas coin, mirroring the deposit/withdraw flows: these are one-off
// administrative operations, not part of the per-order hot path the
// executor's child gas coins serve.

func (s *Server) handleCreateAccountCap(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.runMintTx(w, r, s.chainClient.BuildMintAccountCapTx)
}

func (s *Server) handleCreateChildAccountCap(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.runMintTx(w, r, s.chainClient.BuildMintAccountCapTx)
}

func (s *Server) handleCreateBalanceManager(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.runMintTx(w, r, s.chainClient.BuildCreateBalanceManagerTx)
}

func (s *Server) runMintTx(w http.ResponseWriter, r *http.Request, build func(ctx context.Context) ([]byte, error)) {
	digest, err := s.withMainGasCoin(r.Context(), func(_ sui.ObjectRef) ([]byte, error) {
		return build(r.Context())
	})
	if err != nil {
		s.writeExecError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse{Status: "success", TxDigest: digest})
}
