package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/suidex/dex-proxy/internal/chain"
)

// tradesLookbackLimit is the trade-query lookback window: a start_ts
// exactly 40 minutes in the past is in-band, one second further back
// fails with a 400.
const tradesLookbackLimit = 40 * time.Minute

const defaultTradesMaxPages = 1

// handleTrades serves GET /trades in either of its two query modes: a
// csv list of transaction digests, or a start_ts/max_pages paginated
// window bounded to the last 40 minutes.
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()

	if raw := q.Get("tx_digests"); raw != "" {
		digests := strings.Split(raw, ",")
		events, err := s.tradesByDigests(r, digests)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "TRANSIENT_NETWORK", err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"trades": events})
		return
	}

	startTSRaw := q.Get("start_ts")
	if startTSRaw == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "start_ts or tx_digests is required")
		return
	}
	startMillis, err := strconv.ParseInt(startTSRaw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid start_ts")
		return
	}
	start := time.UnixMilli(startMillis)
	if time.Since(start) > tradesLookbackLimit {
		writeError(w, http.StatusBadRequest, "LOOKBACK_TOO_FAR", "start_ts exceeds the 40-minute lookback window")
		return
	}

	maxPages := defaultTradesMaxPages
	if raw := q.Get("max_pages"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid max_pages")
			return
		}
		maxPages = n
	}

	events, err := s.tradesSince(r, maxPages)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "TRANSIENT_NETWORK", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trades": events})
}

func (s *Server) tradesSince(r *http.Request, maxPages int) ([]chain.RawEvent, error) {
	ctx := r.Context()
	filter := chain.EventFilter{
		MakerAddress:    s.walletAddress,
		MakerBalanceMgr: s.balanceMgrID,
		TakerBalanceMgr: s.balanceMgrID,
	}

	var all []chain.RawEvent
	cursor := ""
	for page := 0; page < maxPages; page++ {
		events, next, err := s.chainClient.QueryEvents(ctx, filter, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, events...)
		if next == "" {
			break
		}
		cursor = next
	}
	return all, nil
}

func (s *Server) tradesByDigests(r *http.Request, digests []string) ([]chain.RawEvent, error) {
	ctx := r.Context()
	filter := chain.EventFilter{Sender: s.walletAddress}

	events, _, err := s.chainClient.QueryEvents(ctx, filter, "")
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]struct{}, len(digests))
	for _, d := range digests {
		wanted[strings.TrimSpace(d)] = struct{}{}
	}

	out := make([]chain.RawEvent, 0, len(digests))
	for _, e := range events {
		if _, ok := wanted[e.TxDigest]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}
