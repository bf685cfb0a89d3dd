package httpapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("id")
	if id == "" {
		id = r.URL.Query().Get("pool")
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_POOL", "id or pool query parameter is required")
		return
	}
	info, ok := s.pools[id]
	if !ok {
		writeError(w, http.StatusBadRequest, "NOT_FOUND", "unknown pool")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleWalletBalanceInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := r.Context()
	coins, err := s.chainClient.ListOwnedCoins(ctx, s.walletAddress, "0x2::sui::SUI")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "TRANSIENT_NETWORK", err.Error())
		return
	}
	var total uint64
	for _, c := range coins {
		total += c.Balance
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"wallet_address": s.walletAddress,
		"coin_count":     len(coins),
		"total_balance":  total,
	})
}

func (s *Server) handleBalanceManagerBalanceInfo(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	coinType := r.URL.Query().Get("coin")
	if coinType == "" {
		writeError(w, http.StatusBadRequest, "MISSING_COIN", "coin query parameter is required")
		return
	}
	// The balance-manager's internal coin balances live in a dynamic
	// field read, out of scope for the minimal chain.Client seam; the
	// response echoes the balance-manager id and the requested coin type
	// and carries no balance figure.
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"balance_manager_id": s.balanceMgrID,
		"coin_type":          coinType,
	})
}
