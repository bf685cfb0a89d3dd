package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDecodesNestedTables(t *testing.T) {
	body := `
[dex]
wallet_address = "0xwallet"
chain_name = "sui"
subscribe_to_events = true
env = "testnet"
balance_manager_id = "0xbm"
http_addr = ":8080"
redis_addr = "localhost:6379"
kafka_brokers = ["broker1:9092", "broker2:9092"]

[dex.account_cap_ids]
main = "0xmain"
children = ["0xc1", "0xc2"]

[dex.gas_manager]
max_balance_per_instance_mist = 10000
min_balance_per_instance_mist = 100
sync_interval_s = 30
gas_budget_mist = 50
gas_coin_expected_count = 4

[dex.order_cache]
capacity = 10000

[dex.exchange_connectors]
rest = ["https://rpc1", "https://rpc2"]

[dex.exchange_connectors.ws]
url = "wss://rpc1"
call_timeout_s = 5
reconnect_timeout_s = 2
max_reconnects = 10
`
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0xwallet", cfg.Dex.WalletAddress)
	assert.True(t, cfg.Dex.SubscribeToEvents)
	assert.Equal(t, "0xmain", cfg.Dex.AccountCapIDs.Main)
	assert.Equal(t, []string{"0xc1", "0xc2"}, cfg.Dex.AccountCapIDs.Children)
	assert.Equal(t, 30*time.Second, cfg.Dex.GasManager.SyncInterval())
	assert.Equal(t, []string{"https://rpc1", "https://rpc2"}, cfg.Dex.ExchangeConnectors.REST)
	assert.Equal(t, "wss://rpc1", cfg.Dex.ExchangeConnectors.WS.URL)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.Dex.KafkaBrokers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	assert.Error(t, err)
}
