// Package config loads the engine configuration from environment variables
// (a .env file is honored when present) or from a YAML file passed with
// --config.
package config

import (
	"flag"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kazusol/soltrader/internal/entity"
)

// Default mint addresses of the traded pair.
const (
	SolMint  = "So11111111111111111111111111111111111111112"
	UsdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

const (
	defaultRPCURL      = "https://api.mainnet-beta.solana.com"
	defaultJupiterURL  = "https://lite-api.jup.ag/swap/v1"
	defaultInterval    = 5 * time.Minute
	defaultSlippageBps = 50
	defaultHTTPAddr    = ":8080"
	defaultWalDir      = "./wal"
	defaultFeeBuffer   = "0.01"
	defaultCapital     = "1000"

	defaultRetentionDays = 30
)

// Config is the full runtime configuration.
type Config struct {
	Pair entity.Pair

	RPCURL           string
	JupiterURL       string
	WalletPrivateKey string

	LineChannelToken string
	LineUserID       string

	TradeInterval  time.Duration
	SlippageBps    int
	FeeBuffer      decimal.Decimal
	InitialCapital decimal.Decimal
	RetentionDays  int

	HTTPAddr string
	WalDir   string
}

type yamlConfig struct {
	RPCURL           string `yaml:"rpc_url"`
	JupiterURL       string `yaml:"jupiter_url"`
	WalletPrivateKey string `yaml:"wallet_private_key"`
	LineChannelToken string `yaml:"line_channel_token"`
	LineUserID       string `yaml:"line_user_id"`
	TradeInterval    string `yaml:"trade_interval"`
	SlippageBps      int    `yaml:"slippage_bps"`
	FeeBuffer        string `yaml:"fee_buffer"`
	InitialCapital   string `yaml:"initial_capital"`
	RetentionDays    int    `yaml:"retention_days"`
	SolMint          string `yaml:"sol_mint"`
	UsdcMint         string `yaml:"usdc_mint"`
	HTTPAddr         string `yaml:"http_addr"`
	WalDir           string `yaml:"wal_dir"`
}

// DefaultPair is SOL traded against USDC.
func DefaultPair() entity.Pair {
	return entity.Pair{
		Base:  entity.Asset{Symbol: "SOL", Mint: SolMint, Decimals: 9},
		Quote: entity.Asset{Symbol: "USDC", Mint: UsdcMint, Decimals: 6},
	}
}

// Get loads the configuration. A --config flag selects a YAML file; otherwise
// the environment (plus a .env file, if any) is used.
func Get() (*Config, error) {
	path := flag.String("config", "", "path to yaml config")
	flag.Parse()

	if *path != "" {
		return fromYaml(*path)
	}
	return fromEnv()
}

func fromEnv() (*Config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := defaults()
	cfg.WalletPrivateKey = os.Getenv("WALLET_PRIVATE_KEY")
	cfg.LineChannelToken = os.Getenv("LINE_CHANNEL_TOKEN")
	cfg.LineUserID = os.Getenv("LINE_USER_ID")

	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.RPCURL = v
	}
	if v := os.Getenv("JUPITER_API_URL"); v != "" {
		cfg.JupiterURL = v
	}
	if v := os.Getenv("SOL_MINT"); v != "" {
		cfg.Pair.Base.Mint = v
	}
	if v := os.Getenv("USDC_MINT"); v != "" {
		cfg.Pair.Quote.Mint = v
	}
	if v := os.Getenv("TRADE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse TRADE_INTERVAL")
		}
		cfg.TradeInterval = d
	}
	if v := os.Getenv("SLIPPAGE_BPS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse SLIPPAGE_BPS")
		}
		cfg.SlippageBps = n
	}
	if v := os.Getenv("FEE_BUFFER_SOL"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse FEE_BUFFER_SOL")
		}
		cfg.FeeBuffer = d
	}
	if v := os.Getenv("INITIAL_CAPITAL_USDC"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse INITIAL_CAPITAL_USDC")
		}
		cfg.InitialCapital = d
	}
	if v := os.Getenv("DATA_RETENTION_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, errors.Wrap(err, "parse DATA_RETENTION_DAYS")
		}
		cfg.RetentionDays = n
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.HTTPAddr = ":" + port
	}
	if v := os.Getenv("WAL_DIR"); v != "" {
		cfg.WalDir = v
	}

	return cfg, cfg.validate()
}

func fromYaml(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}

	var y yamlConfig
	if err := yaml.Unmarshal(raw, &y); err != nil {
		return nil, errors.Wrap(err, "parse config file")
	}

	cfg := defaults()
	cfg.WalletPrivateKey = y.WalletPrivateKey
	cfg.LineChannelToken = y.LineChannelToken
	cfg.LineUserID = y.LineUserID

	if y.RPCURL != "" {
		cfg.RPCURL = y.RPCURL
	}
	if y.JupiterURL != "" {
		cfg.JupiterURL = y.JupiterURL
	}
	if y.TradeInterval != "" {
		d, err := time.ParseDuration(y.TradeInterval)
		if err != nil {
			return nil, errors.Wrap(err, "incorrect 'trade_interval' param in yaml config")
		}
		cfg.TradeInterval = d
	}
	if y.SlippageBps != 0 {
		cfg.SlippageBps = y.SlippageBps
	}
	if y.FeeBuffer != "" {
		d, err := decimal.NewFromString(y.FeeBuffer)
		if err != nil {
			return nil, errors.Wrap(err, "incorrect 'fee_buffer' param in yaml config")
		}
		cfg.FeeBuffer = d
	}
	if y.InitialCapital != "" {
		d, err := decimal.NewFromString(y.InitialCapital)
		if err != nil {
			return nil, errors.Wrap(err, "incorrect 'initial_capital' param in yaml config")
		}
		cfg.InitialCapital = d
	}
	if y.RetentionDays != 0 {
		cfg.RetentionDays = y.RetentionDays
	}
	if y.SolMint != "" {
		cfg.Pair.Base.Mint = y.SolMint
	}
	if y.UsdcMint != "" {
		cfg.Pair.Quote.Mint = y.UsdcMint
	}
	if y.HTTPAddr != "" {
		cfg.HTTPAddr = y.HTTPAddr
	}
	if y.WalDir != "" {
		cfg.WalDir = y.WalDir
	}

	return cfg, cfg.validate()
}

func defaults() *Config {
	return &Config{
		Pair:           DefaultPair(),
		RPCURL:         defaultRPCURL,
		JupiterURL:     defaultJupiterURL,
		TradeInterval:  defaultInterval,
		SlippageBps:    defaultSlippageBps,
		FeeBuffer:      decimal.RequireFromString(defaultFeeBuffer),
		InitialCapital: decimal.RequireFromString(defaultCapital),
		RetentionDays:  defaultRetentionDays,
		HTTPAddr:       defaultHTTPAddr,
		WalDir:         defaultWalDir,
	}
}

func (c *Config) validate() error {
	if c.WalletPrivateKey == "" {
		return errors.New("wallet private key is required (WALLET_PRIVATE_KEY)")
	}
	if c.TradeInterval <= 0 {
		return errors.New("trade interval must be positive")
	}
	if c.SlippageBps < 0 {
		return errors.New("slippage bps cannot be negative")
	}
	if c.FeeBuffer.IsNegative() {
		return errors.New("fee buffer cannot be negative")
	}
	if c.RetentionDays < 0 {
		return errors.New("retention days cannot be negative")
	}
	return nil
}

// Retention is the record retention window; zero disables pruning.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// NotificationsEnabled reports whether LINE credentials are configured.
func (c *Config) NotificationsEnabled() bool {
	return c.LineChannelToken != "" && c.LineUserID != ""
}
