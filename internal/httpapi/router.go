// Package httpapi implements the gateway's HTTP/JSON and WebSocket
// surface: a thin router dispatching onto the domain packages. Grounded
// on the teacher's networks/rpc HTTP serving conventions, translated from
// a JSON-RPC envelope to plain REST+WS on the client-facing leg (see
// DESIGN.md).
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/suidex/dex-proxy/internal/accountpool"
	"github.com/suidex/dex-proxy/internal/chain"
	"github.com/suidex/dex-proxy/internal/executor"
	"github.com/suidex/dex-proxy/internal/gaspool"
	dexlog "github.com/suidex/dex-proxy/internal/log"
	"github.com/suidex/dex-proxy/internal/metrics"
	"github.com/suidex/dex-proxy/internal/ordercache"
	"github.com/suidex/dex-proxy/internal/sui"
	"github.com/suidex/dex-proxy/internal/whitelist"
)

var logger = dexlog.NewModuleLogger(dexlog.HTTPAPI)

// Server holds every dependency the handlers dispatch onto.
type Server struct {
	router *httprouter.Router
	hub    *Hub

	cache       *ordercache.Cache
	gasPool     *gaspool.Manager
	accountPool *accountpool.Pool
	exec        *executor.Executor
	chainClient chain.Client
	whitelist   *whitelist.List

	version       sui.ExchangeVersion
	walletAddress string
	balanceMgrID  string
	chainName     string
	gasBudget     uint64

	pools map[string]PoolInfo
}

// Deps bundles Server's constructor dependencies.
type Deps struct {
	Cache       *ordercache.Cache
	GasPool     *gaspool.Manager
	AccountPool *accountpool.Pool
	Executor    *executor.Executor
	ChainClient chain.Client
	Whitelist   *whitelist.List
	Version     sui.ExchangeVersion
	WalletAddr  string
	BalanceMgrID string
	ChainName   string
	GasBudget   uint64
	Pools       map[string]PoolInfo
}

// NewServer wires every route the gateway exposes.
func NewServer(d Deps) *Server {
	s := &Server{
		router:        httprouter.New(),
		hub:           newHub(),
		cache:         d.Cache,
		gasPool:       d.GasPool,
		accountPool:   d.AccountPool,
		exec:          d.Executor,
		chainClient:   d.ChainClient,
		whitelist:     d.Whitelist,
		version:       d.Version,
		walletAddress: d.WalletAddr,
		balanceMgrID:  d.BalanceMgrID,
		chainName:     d.ChainName,
		gasBudget:     d.GasBudget,
		pools:         d.Pools,
	}

	s.router.GET("/status", s.handleStatus)
	s.router.GET("/pool", s.handleGetPool)
	s.router.GET("/wallet-address", s.handleWalletAddress)
	s.router.GET("/balance-manager-id", s.handleBalanceManagerID)
	s.router.GET("/wallet-balance-info", s.handleWalletBalanceInfo)
	s.router.GET("/balance-manager-balance-info", s.handleBalanceManagerBalanceInfo)
	s.router.GET("/orders", s.handleListOrders)
	s.router.GET("/order", s.handleGetOrder)
	s.router.POST("/order", s.handleInsertOrder)
	s.router.POST("/orders", s.handleInsertOrders)
	s.router.DELETE("/order", s.handleCancelOrder)
	s.router.DELETE("/orders", s.handleCancelOrders)
	s.router.GET("/trades", s.handleTrades)
	s.router.POST("/deposit-into-pool", s.handleDepositIntoPool)
	s.router.POST("/deposit-into-balance-manager", s.handleDepositIntoBalanceManager)
	s.router.POST("/withdraw-from-pool", s.handleWithdrawFromPool)
	s.router.POST("/withdraw-from-balance-manager", s.handleWithdrawFromBalanceManager)
	s.router.POST("/withdraw-sui", s.handleWithdrawSui)
	s.router.POST("/withdraw", s.handleWithdraw)
	s.router.POST("/account-cap", s.handleCreateAccountCap)
	s.router.POST("/child-account-cap", s.handleCreateChildAccountCap)
	s.router.POST("/create-balance-manager", s.handleCreateBalanceManager)
	s.router.GET("/metrics", wrapHandler(metrics.Handler()))
	s.router.GET("/ws", s.handleWebsocket)

	s.router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "unrecognised route")
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// wrapHandler adapts a plain http.Handler (e.g. the Prometheus exposition
// handler) into an httprouter.Handle.
func wrapHandler(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	writeJSON(w, status, errorResponse{Type: errType, Error: msg})
}

// decodeJSON rejects unknown fields: every request body is projected
// into a typed struct at the handler boundary.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWalletAddress(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"wallet_address": s.walletAddress})
}

func (s *Server) handleBalanceManagerID(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"balance_manager_id": s.balanceMgrID})
}
