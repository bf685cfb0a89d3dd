// Package config loads dex-proxy's process configuration: a tree of dex.*
// keys decoded from a TOML file with naoina/toml, the library the teacher
// repo itself uses for node configuration (cmd/utils/flags.go region; see
// DESIGN.md).
package config

import (
	"os"
	"time"

	"github.com/naoina/toml"
)

// Config is the root configuration object, read from the file passed to
// -config.
type Config struct {
	Dex DexConfig `toml:"dex"`
}

type DexConfig struct {
	WalletAddress     string `toml:"wallet_address"`
	ChainName         string `toml:"chain_name"`
	SubscribeToEvents bool   `toml:"subscribe_to_events"`
	LogResponses      bool   `toml:"log_responses"`
	Env               string `toml:"env"` // mainnet|testnet

	AccountCapIDs AccountCapIDsConfig `toml:"account_cap_ids"`
	BalanceManagerID string           `toml:"balance_manager_id"`

	GasManager GasManagerConfig `toml:"gas_manager"`
	OrderCache OrderCacheConfig `toml:"order_cache"`

	ExchangeConnectors ExchangeConnectorsConfig `toml:"exchange_connectors"`

	TrackLeadingClientPollIntervalS  int `toml:"track_leading_client_poll_interval_s"`
	WithdrawSettledAmountsIntervalS  int `toml:"withdraw_settled_amounts_interval_s"` // v3 only

	WhitelistPath string `toml:"whitelist_path"`
	RedisAddr     string `toml:"redis_addr"`
	KafkaBrokers  []string `toml:"kafka_brokers"`
	KafkaTopicPrefix string `toml:"kafka_topic_prefix"`

	HTTPAddr string `toml:"http_addr"`
}

type AccountCapIDsConfig struct {
	Main     string   `toml:"main"`
	Children []string `toml:"children"`
}

type GasManagerConfig struct {
	MaxBalancePerInstanceMist uint64 `toml:"max_balance_per_instance_mist"`
	MinBalancePerInstanceMist uint64 `toml:"min_balance_per_instance_mist"`
	SyncIntervalS             int    `toml:"sync_interval_s"`
	GasBudgetMist             uint64 `toml:"gas_budget_mist"`
	GasCoinExpectedCount      int    `toml:"gas_coin_expected_count"`
}

func (g GasManagerConfig) SyncInterval() time.Duration {
	return time.Duration(g.SyncIntervalS) * time.Second
}

type OrderCacheConfig struct {
	Capacity int `toml:"capacity"`
}

type ExchangeConnectorsConfig struct {
	REST []string    `toml:"rest"`
	WS   WSConnector `toml:"ws"`
}

type WSConnector struct {
	URL               string `toml:"url"`
	CallTimeoutS      int    `toml:"call_timeout_s"`
	ReconnectTimeoutS int    `toml:"reconnect_timeout_s"`
	MaxReconnects     int    `toml:"max_reconnects"`
}

// Load decodes the TOML file at path into a Config.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
