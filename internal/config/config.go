package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Blockchain BlockchainConfig `yaml:"blockchain"`
	Airdrop    AirdropConfig    `yaml:"airdrop"`
	NATS       NATSConfig       `yaml:"nats"`
	CORS       CORSConfig       `yaml:"cors"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	TrustedProxies []string `yaml:"trustedProxies"` // proxies whose X-Forwarded-For is honored; empty trusts none
}

// BlockchainConfig chain endpoint used for block time and token metadata reads
type BlockchainConfig struct {
	ChainID           int64  `yaml:"chainId"`
	RPCEndpoint       string `yaml:"rpcEndpoint"`
	RPCTimeoutSeconds int    `yaml:"rpcTimeoutSeconds"`
}

// AirdropConfig policy knobs of the airdrop details step
type AirdropConfig struct {
	WindowStartOffset  int64            `yaml:"windowStartOffset"`  // seconds added to chain time for the claim start
	WindowEndOffset    int64            `yaml:"windowEndOffset"`    // seconds added to chain time for the claim end
	DefaultDecimals    int32            `yaml:"defaultDecimals"`    // used when a token's decimals are unknown
	MinRecipients      int              `yaml:"minRecipients"`      // minimum recipient count accepted on submit
	DefaultRewardToken string           `yaml:"defaultRewardToken"` // prefilled token address
	TokenDecimals      map[string]int32 `yaml:"tokenDecimals"`      // address -> decimals, wins over on-chain lookup
	ResolveOnChain     bool             `yaml:"resolveDecimalsOnChain"`
	TokenCacheSize     int              `yaml:"tokenCacheSize"`
	ExportDir          string           `yaml:"exportDir"`         // where the CLI writes tree.json by default
	SessionTTLMinutes  int              `yaml:"sessionTtlMinutes"` // idle step sessions are dropped after this
}

// NATSConfig draft event publisher. Empty URL disables publishing.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
	Timeout int    `yaml:"timeout"`
}

// CORSConfig CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowedOrigins"`   // List of allowed origins
	AllowCredentials bool     `yaml:"allowCredentials"` // Whether to allow credentials
	MaxAge           int      `yaml:"maxAge"`           // Max age for preflight requests (seconds)
}

// MetricsConfig access to /metrics. Loopback is always allowed.
type MetricsConfig struct {
	AllowedIPs []string `yaml:"allowedIPs"` // IPs or CIDR ranges
}

// LogConfig logrus level and formatter
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// envOverrides values read from the environment; unset variables leave the file value alone
type envOverrides struct {
	ServerHost        string   `envconfig:"SERVER_HOST"`
	ServerPort        *int     `envconfig:"SERVER_PORT"`
	TrustedProxies    []string `envconfig:"SERVER_TRUSTED_PROXIES"`
	ChainID           *int64   `envconfig:"CHAIN_ID"`
	RPCEndpoint       string   `envconfig:"RPC_URL"`
	RPCTimeoutSeconds *int     `envconfig:"RPC_TIMEOUT"`
	WindowStartOffset *int64   `envconfig:"WINDOW_START_OFFSET"`
	WindowEndOffset   *int64   `envconfig:"WINDOW_END_OFFSET"`
	DefaultDecimals   *int32   `envconfig:"DEFAULT_DECIMALS"`
	MinRecipients     *int     `envconfig:"MIN_RECIPIENTS"`
	RewardToken       string   `envconfig:"DEFAULT_REWARD_TOKEN"`
	ResolveOnChain    *bool    `envconfig:"RESOLVE_DECIMALS_ON_CHAIN"`
	NATSURL           string   `envconfig:"NATS_URL"`
	NATSSubject       string   `envconfig:"NATS_SUBJECT"`
	CORSOrigins       []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	MetricsAllowedIPs []string `envconfig:"METRICS_ALLOWED_IPS"`
	LogLevel          string   `envconfig:"LOG_LEVEL"`
	LogFormat         string   `envconfig:"LOG_FORMAT"`
}

// EnvPrefix prefix of every environment override, e.g. AIRDROP_RPC_URL
const EnvPrefix = "AIRDROP"

var AppConfig *Config

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Blockchain: BlockchainConfig{
			ChainID:           35443,
			RPCEndpoint:       "https://rpc.qtestnet.org",
			RPCTimeoutSeconds: 10,
		},
		Airdrop: AirdropConfig{
			WindowStartOffset:  400,
			WindowEndOffset:    3000,
			DefaultDecimals:    18,
			MinRecipients:      1,
			DefaultRewardToken: "0x536B3cEA28f86cBb90a9F9C3934f8220f230c5Bc",
			TokenDecimals:      map[string]int32{},
			ResolveOnChain:     true,
			TokenCacheSize:     256,
			ExportDir:          ".",
			SessionTTLMinutes:  30,
		},
		NATS: NATSConfig{Subject: "proposal.draft.airdrop", Timeout: 10},
		CORS: CORSConfig{MaxAge: 3600},
		Log:  LogConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig Load configuration file into AppConfig
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Load reads configPath over the defaults, then applies environment overrides.
// An empty path means config.local.yaml if present, else config.yaml; a missing
// default file is not an error.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	explicit := configPath != ""
	if !explicit {
		configPath = "config.yaml"
		if _, err := os.Stat("config.local.yaml"); err == nil {
			configPath = "config.local.yaml"
			logrus.Info("🔧 Using local configuration file: config.local.yaml")
		}
	}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		logrus.WithField("path", configPath).Info("✅ Loaded configuration file")
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		logrus.WithField("path", configPath).Info("No configuration file, using defaults")
	}

	if err := overrideFromEnv(cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideFromEnv Override configuration from AIRDROP_* environment variables
func overrideFromEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("failed to process environment overrides: %w", err)
	}

	if env.ServerHost != "" {
		cfg.Server.Host = env.ServerHost
	}
	if env.ServerPort != nil {
		cfg.Server.Port = *env.ServerPort
	}
	if len(env.TrustedProxies) > 0 {
		cfg.Server.TrustedProxies = trimList(env.TrustedProxies)
	}
	if env.ChainID != nil {
		cfg.Blockchain.ChainID = *env.ChainID
	}
	if env.RPCEndpoint != "" {
		cfg.Blockchain.RPCEndpoint = env.RPCEndpoint
	}
	if env.RPCTimeoutSeconds != nil {
		cfg.Blockchain.RPCTimeoutSeconds = *env.RPCTimeoutSeconds
	}
	if env.WindowStartOffset != nil {
		cfg.Airdrop.WindowStartOffset = *env.WindowStartOffset
	}
	if env.WindowEndOffset != nil {
		cfg.Airdrop.WindowEndOffset = *env.WindowEndOffset
	}
	if env.DefaultDecimals != nil {
		cfg.Airdrop.DefaultDecimals = *env.DefaultDecimals
	}
	if env.MinRecipients != nil {
		cfg.Airdrop.MinRecipients = *env.MinRecipients
	}
	if env.RewardToken != "" {
		cfg.Airdrop.DefaultRewardToken = env.RewardToken
	}
	if env.ResolveOnChain != nil {
		cfg.Airdrop.ResolveOnChain = *env.ResolveOnChain
	}
	if env.NATSURL != "" {
		cfg.NATS.URL = env.NATSURL
	}
	if env.NATSSubject != "" {
		cfg.NATS.Subject = env.NATSSubject
	}
	if len(env.CORSOrigins) > 0 {
		cfg.CORS.AllowedOrigins = trimList(env.CORSOrigins)
	}
	if len(env.MetricsAllowedIPs) > 0 {
		cfg.Metrics.AllowedIPs = trimList(env.MetricsAllowedIPs)
	}
	if env.LogLevel != "" {
		cfg.Log.Level = env.LogLevel
	}
	if env.LogFormat != "" {
		cfg.Log.Format = env.LogFormat
	}
	return nil
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// normalize lowercases token keys so lookups do not depend on checksum casing
func normalize(cfg *Config) {
	if len(cfg.Airdrop.TokenDecimals) == 0 {
		return
	}
	lowered := make(map[string]int32, len(cfg.Airdrop.TokenDecimals))
	for addr, dec := range cfg.Airdrop.TokenDecimals {
		lowered[strings.ToLower(addr)] = dec
	}
	cfg.Airdrop.TokenDecimals = lowered
}

// Validate rejects configurations the step cannot run with
func (c *Config) Validate() error {
	if c.Airdrop.WindowStartOffset >= c.Airdrop.WindowEndOffset {
		return fmt.Errorf("airdrop.windowStartOffset (%d) must be less than airdrop.windowEndOffset (%d)",
			c.Airdrop.WindowStartOffset, c.Airdrop.WindowEndOffset)
	}
	if c.Airdrop.DefaultDecimals < 0 || c.Airdrop.DefaultDecimals > 77 {
		return fmt.Errorf("airdrop.defaultDecimals %d out of range [0, 77]", c.Airdrop.DefaultDecimals)
	}
	if c.Airdrop.MinRecipients < 1 {
		return fmt.Errorf("airdrop.minRecipients must be at least 1, got %d", c.Airdrop.MinRecipients)
	}
	if c.Blockchain.RPCTimeoutSeconds <= 0 {
		return fmt.Errorf("blockchain.rpcTimeoutSeconds must be positive")
	}
	if c.Airdrop.TokenCacheSize <= 0 {
		return fmt.Errorf("airdrop.tokenCacheSize must be positive")
	}
	if c.Airdrop.SessionTTLMinutes <= 0 {
		return fmt.Errorf("airdrop.sessionTtlMinutes must be positive")
	}
	return nil
}

// RPCTimeout per-call timeout for chain reads
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.Blockchain.RPCTimeoutSeconds) * time.Second
}

// SessionTTL idle lifetime of a step session
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Airdrop.SessionTTLMinutes) * time.Minute
}

// NATSTimeout connect timeout for the draft publisher
func (c *Config) NATSTimeout() time.Duration {
	return time.Duration(c.NATS.Timeout) * time.Second
}

// Address listen address for the HTTP server
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ConfigureLogger applies level and formatter to logger
func (l LogConfig) ConfigureLogger(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(l.Level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", l.Level, err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(l.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	default:
		return fmt.Errorf("invalid log format %q", l.Format)
	}
	return nil
}
