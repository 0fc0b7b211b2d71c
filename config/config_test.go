package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestFromYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
wallet_private_key: "secret-key"
rpc_url: "https://rpc.example.com"
jupiter_url: "https://jup.example.com/swap/v1"
line_channel_token: "token"
line_user_id: "user"
trade_interval: 2m
slippage_bps: 100
fee_buffer: "0.02"
initial_capital: "500"
http_addr: ":9090"
wal_dir: "/tmp/wal"
`), 0o600))

	cfg, err := fromYaml(path)
	require.NoError(t, err)

	require.Equal(t, "secret-key", cfg.WalletPrivateKey)
	require.Equal(t, "https://rpc.example.com", cfg.RPCURL)
	require.Equal(t, "https://jup.example.com/swap/v1", cfg.JupiterURL)
	require.Equal(t, 2*time.Minute, cfg.TradeInterval)
	require.Equal(t, 100, cfg.SlippageBps)
	require.True(t, cfg.FeeBuffer.Equal(decimal.RequireFromString("0.02")))
	require.True(t, cfg.InitialCapital.Equal(decimal.NewFromInt(500)))
	require.Equal(t, ":9090", cfg.HTTPAddr)
	require.Equal(t, "/tmp/wal", cfg.WalDir)
	require.True(t, cfg.NotificationsEnabled())
	require.Equal(t, "SOL", cfg.Pair.Base.Symbol)
	require.Equal(t, "USDC", cfg.Pair.Quote.Symbol)
}

func TestFromYamlDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`wallet_private_key: "secret-key"`), 0o600))

	cfg, err := fromYaml(path)
	require.NoError(t, err)

	require.Equal(t, defaultRPCURL, cfg.RPCURL)
	require.Equal(t, defaultInterval, cfg.TradeInterval)
	require.Equal(t, defaultSlippageBps, cfg.SlippageBps)
	require.True(t, cfg.FeeBuffer.Equal(decimal.RequireFromString(defaultFeeBuffer)))
	require.Equal(t, defaultRetentionDays, cfg.RetentionDays)
	require.Equal(t, 30*24*time.Hour, cfg.Retention())
	require.False(t, cfg.NotificationsEnabled())
}

func TestWalletKeyRequired(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`rpc_url: "https://rpc.example.com"`), 0o600))

	_, err := fromYaml(path)
	require.Error(t, err)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("WALLET_PRIVATE_KEY", "env-secret")
	t.Setenv("SOLANA_RPC_URL", "https://rpc.env.example.com")
	t.Setenv("LINE_CHANNEL_TOKEN", "channel-token")
	t.Setenv("LINE_USER_ID", "user-1")
	t.Setenv("SOL_MINT", "devnet-sol-mint")
	t.Setenv("USDC_MINT", "devnet-usdc-mint")
	t.Setenv("TRADE_INTERVAL", "90s")
	t.Setenv("SLIPPAGE_BPS", "75")
	t.Setenv("DATA_RETENTION_DAYS", "7")
	t.Setenv("PORT", "3000")

	cfg, err := fromEnv()
	require.NoError(t, err)

	require.Equal(t, "env-secret", cfg.WalletPrivateKey)
	require.Equal(t, "https://rpc.env.example.com", cfg.RPCURL)
	require.Equal(t, "channel-token", cfg.LineChannelToken)
	require.True(t, cfg.NotificationsEnabled())
	require.Equal(t, "devnet-sol-mint", cfg.Pair.Base.Mint)
	require.Equal(t, "devnet-usdc-mint", cfg.Pair.Quote.Mint)
	require.Equal(t, 90*time.Second, cfg.TradeInterval)
	require.Equal(t, 75, cfg.SlippageBps)
	require.Equal(t, 7, cfg.RetentionDays)
	require.Equal(t, ":3000", cfg.HTTPAddr)
}

func TestFromEnvRejectsGarbageInterval(t *testing.T) {
	t.Setenv("WALLET_PRIVATE_KEY", "env-secret")
	t.Setenv("TRADE_INTERVAL", "often")

	_, err := fromEnv()
	require.Error(t, err)
}
