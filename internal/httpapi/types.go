package httpapi

// PoolInfo is the static parameter set returned by GET /pool.
type PoolInfo struct {
	ID         string `json:"id"`
	TickSize   uint64 `json:"tick_size"`
	LotSize    uint64 `json:"lot_size"`
	TakerFeeBP uint64 `json:"taker_fee_bp"`
	MakerFeeBP uint64 `json:"maker_fee_bp"`
	BaseAsset  string `json:"base_asset"`
	QuoteAsset string `json:"quote_asset"`
}

// insertOrderRequest is the typed, unknown-fields-rejected decode target
// for POST /order.
type insertOrderRequest struct {
	ClientOrderID string `json:"client_order_id"`
	Pool          string `json:"pool"`
	OrderType     string `json:"order_type"`
	Side          string `json:"side"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price"`
	ExpirationTS  string `json:"expiration_ts,omitempty"`
}

type bulkInsertRequest struct {
	Pool         string               `json:"pool"`
	Orders       []insertOrderRequest `json:"orders"`
	ExpirationTS string               `json:"expiration_ts,omitempty"`
}

type orderResponse struct {
	Status   string        `json:"status"`
	TxDigest string        `json:"tx_digest,omitempty"`
	Events   []interface{} `json:"events,omitempty"`
}

type depositRequest struct {
	Pool     string `json:"pool,omitempty"`
	CoinType string `json:"coin_type"`
	Amount   string `json:"amount"`
}

type withdrawRequest struct {
	Pool      string `json:"pool,omitempty"`
	CoinType  string `json:"coin_type"`
	Amount    string `json:"amount"`
	Recipient string `json:"recipient"`
}

type errorResponse struct {
	Type  string `json:"type,omitempty"`
	Error string `json:"error"`
}
