package httpapi

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/suidex/dex-proxy/internal/accountpool"
	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/executor"
	"github.com/suidex/dex-proxy/internal/gaspool"
	"github.com/suidex/dex-proxy/internal/ordercache"
)

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pool := r.URL.Query().Get("pool")
	orders := s.cache.List(pool)
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	id := r.URL.Query().Get("client_order_id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_CLIENT_ORDER_ID", "client_order_id query parameter is required")
		return
	}
	order, ok := s.cache.Get(id)
	if !ok {
		writeError(w, http.StatusBadRequest, "ORDER_NOT_FOUND", "no such order")
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *Server) handleInsertOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req insertOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	params, ioc, err := s.buildOrderParams(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	o := &ordercache.Order{
		ClientOrderID: req.ClientOrderID,
		PoolID:        req.Pool,
		Side:          params.Side,
		Type:          params.Type,
		Quantity:      params.Quantity,
		Remaining:     params.Quantity,
		Price:         params.Price,
		ExpirationTS:  params.ExpirationTS,
		Status:        ordercache.PendingInsert,
	}
	if err := s.cache.Add(o); err != nil {
		writeError(w, http.StatusBadRequest, "CACHE_FULL", err.Error())
		return
	}

	recipe, err := executor.PlaceOrdersRecipe(s.version, []chain.OrderParams{params})
	if err != nil {
		s.cache.Delete(req.ClientOrderID)
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	effects, err := s.exec.Execute(r.Context(), "", recipe)
	if err != nil {
		s.cache.Delete(req.ClientOrderID)
		s.writeExecError(w, err)
		return
	}

	_ = s.cache.ApplyInsertSuccess(req.ClientOrderID, firstOrderID(effects), params.Quantity, 0, effects.Digest, ioc)

	writeJSON(w, http.StatusOK, orderResponse{
		Status:   "success",
		TxDigest: effects.Digest,
		Events:   toInterfaceSlice(effects.Events),
	})
}

func (s *Server) handleInsertOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req bulkInsertRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if len(req.Orders) == 0 {
		writeError(w, http.StatusBadRequest, "EMPTY_ORDERS", "orders list must not be empty")
		return
	}

	paramsList := make([]chain.OrderParams, 0, len(req.Orders))
	iocFlags := make([]bool, 0, len(req.Orders))
	clientIDs := make([]string, 0, len(req.Orders))
	for _, o := range req.Orders {
		if o.Pool == "" {
			o.Pool = req.Pool
		}
		if o.ExpirationTS == "" {
			o.ExpirationTS = req.ExpirationTS
		}
		p, ioc, err := s.buildOrderParams(o)
		if err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
			return
		}
		paramsList = append(paramsList, p)
		iocFlags = append(iocFlags, ioc)
		clientIDs = append(clientIDs, o.ClientOrderID)

		cacheOrder := &ordercache.Order{
			ClientOrderID: o.ClientOrderID,
			PoolID:        o.Pool,
			Side:          p.Side,
			Type:          p.Type,
			Quantity:      p.Quantity,
			Remaining:     p.Quantity,
			Price:         p.Price,
			ExpirationTS:  p.ExpirationTS,
			Status:        ordercache.PendingInsert,
		}
		if err := s.cache.Add(cacheOrder); err != nil {
			writeError(w, http.StatusBadRequest, "CACHE_FULL", err.Error())
			return
		}
	}

	recipe, err := executor.PlaceOrdersRecipe(s.version, paramsList)
	if err != nil {
		for _, id := range clientIDs {
			s.cache.Delete(id)
		}
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	effects, err := s.exec.Execute(r.Context(), "", recipe)
	if err != nil {
		// A bulk-insert abort names the offending order by the Move
		// abort's command index.
		var abortErr *executor.OnChainAbortError
		if errors.As(err, &abortErr) && abortErr.Abort.Command < len(clientIDs) {
			abortErr.ClientOrderID = clientIDs[abortErr.Abort.Command]
		}
		for _, id := range clientIDs {
			s.cache.Delete(id)
		}
		s.writeExecError(w, err)
		return
	}

	for i, id := range clientIDs {
		_ = s.cache.ApplyInsertSuccess(id, "", paramsList[i].Quantity, 0, effects.Digest, iocFlags[i])
	}

	writeJSON(w, http.StatusOK, orderResponse{
		Status:   "success",
		TxDigest: effects.Digest,
		Events:   toInterfaceSlice(effects.Events),
	})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pool := r.URL.Query().Get("pool")
	id := r.URL.Query().Get("client_order_id")
	if pool == "" || id == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "pool and client_order_id are required")
		return
	}
	order, ok := s.cache.Get(id)
	if !ok {
		writeError(w, http.StatusBadRequest, "ORDER_NOT_FOUND", "no such order")
		return
	}

	recipe := executor.CancelOrderRecipe(pool, order.ExchangeOrderID)
	effects, err := s.exec.Execute(r.Context(), "", recipe)
	if err != nil {
		s.writeExecError(w, err)
		return
	}

	_ = s.cache.ApplyCancelSuccess(id, effects.Digest)
	s.cache.Delete(id)
	writeJSON(w, http.StatusOK, orderResponse{Status: "success", TxDigest: effects.Digest})
}

func (s *Server) handleCancelOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	pool := r.URL.Query().Get("pool")
	if pool == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "pool is required")
		return
	}

	recipe := executor.CancelAllOrdersRecipe(pool)
	effects, err := s.exec.Execute(r.Context(), "", recipe)
	if err != nil {
		s.writeExecError(w, err)
		return
	}

	for _, o := range s.cache.List(pool) {
		_ = s.cache.ApplyCancelSuccess(o.ClientOrderID, effects.Digest)
		s.cache.Delete(o.ClientOrderID)
	}
	writeJSON(w, http.StatusOK, orderResponse{Status: "success", TxDigest: effects.Digest})
}

func (s *Server) buildOrderParams(req insertOrderRequest) (chain.OrderParams, bool, error) {
	side, err := parseSide(req.Side)
	if err != nil {
		return chain.OrderParams{}, false, err
	}
	otype, ioc, err := parseOrderType(req.OrderType)
	if err != nil {
		return chain.OrderParams{}, false, err
	}
	qty, err := parseUint64(req.Quantity)
	if err != nil {
		return chain.OrderParams{}, false, err
	}
	price, err := parseUint64(req.Price)
	if err != nil {
		return chain.OrderParams{}, false, err
	}
	exp, err := parseUint64(req.ExpirationTS)
	if err != nil {
		return chain.OrderParams{}, false, err
	}
	return chain.OrderParams{
		ClientOrderID: req.ClientOrderID,
		PoolID:        req.Pool,
		Side:          side,
		Type:          otype,
		Quantity:      qty,
		Price:         price,
		ExpirationTS:  exp,
	}, ioc, nil
}

func firstOrderID(effects *chain.TxEffects) string {
	for _, e := range effects.Events {
		if id, ok := e.Fields["order_id"].(string); ok {
			return id
		}
	}
	return ""
}

func toInterfaceSlice(events []chain.RawEvent) []interface{} {
	out := make([]interface{}, len(events))
	for i, e := range events {
		out[i] = e
	}
	return out
}

// writeExecError classifies an executor error and writes the matching
// HTTP response.
func (s *Server) writeExecError(w http.ResponseWriter, err error) {
	var abort *executor.OnChainAbortError
	var finality *executor.FinalityTimeoutError
	var gasErr *executor.InsufficientGasError
	var transient *executor.TransientNetworkError

	switch {
	case errors.As(err, &abort):
		msg := abort.Abort.Error()
		writeJSON(w, http.StatusBadRequest, errorResponse{Type: abort.Abort.Mnemonic, Error: msg})
	case errors.As(err, &finality):
		writeError(w, http.StatusInternalServerError, "FINALITY_TIMEOUT", finality.Error())
	case errors.As(err, &gasErr):
		writeError(w, http.StatusBadRequest, "INSUFFICIENT_GAS", gasErr.Error())
	case errors.Is(err, executor.ErrPoolExhausted):
		writeError(w, http.StatusBadRequest, "POOL_EXHAUSTED", err.Error())
	case errors.Is(err, gaspool.ErrMainInUse):
		writeError(w, http.StatusBadRequest, "MAIN_COIN_IN_USE", "The mainGasCoin is being used by another request, please retry")
	case errors.Is(err, accountpool.ErrExhausted):
		writeError(w, http.StatusBadRequest, "POOL_EXHAUSTED", err.Error())
	case errors.As(err, &transient):
		writeError(w, http.StatusInternalServerError, "TRANSIENT_NETWORK", transient.Error())
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}
