// Package config loads the daemon's runtime configuration from an optional
// YAML file plus environment credentials. Missing chain credentials are not an
// error: the accrual path runs with minting disabled.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names for chain credentials.
const (
	EnvAlchemyKey   = "ALCHEMY_API_KEY"
	EnvSignerKey    = "ADMIN_PRIVATE_KEY"
	EnvTokenAddress = "REWARD_TOKEN_ADDRESS"
)

// DefaultTokenAddress is the reward token contract used when no override is
// configured.
const DefaultTokenAddress = "0x8502496d6739dd6e18ced318c4b5fc12a5fb2c2c"

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	raw := value.Value
	if raw == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// Config captures the runtime configuration for earnd.
type Config struct {
	ListenAddress string           `yaml:"listen"`
	Principal     float64          `yaml:"principal"`
	Boost         float64          `yaml:"boost"`
	Strategies    []StrategyConfig `yaml:"strategies"`
	Settlement    SettlementConfig `yaml:"settlement"`
	Chain         ChainConfig      `yaml:"chain"`
	HTTP          HTTPConfig       `yaml:"http"`
}

// StrategyConfig overrides one entry of the built-in strategy table.
type StrategyConfig struct {
	ID     string  `yaml:"id"`
	APY    float64 `yaml:"apy"`
	Weight float64 `yaml:"weight"`
}

// SettlementConfig tunes throttling and the confirmation wait.
type SettlementConfig struct {
	MinInterval Duration `yaml:"min_interval"`
	MintTimeout Duration `yaml:"mint_timeout"`
	GasLimit    uint64   `yaml:"gas_limit"`
}

// ChainConfig locates the Ethereum RPC endpoint and signing credentials.
// Credentials resolve from the environment unless set explicitly; leaving them
// unset degrades to minting-disabled.
type ChainConfig struct {
	RPCURL       string `yaml:"rpc_url"`
	TokenAddress string `yaml:"token"`
	SignerKeyEnv string `yaml:"signer_key_env"`

	signerKey string
}

// HTTPConfig controls the request surface.
type HTTPConfig struct {
	AllowedOrigins    []string `yaml:"allowed_origins"`
	RequestsPerMinute float64  `yaml:"requests_per_minute"`
	Burst             int      `yaml:"burst"`
}

// Load reads configuration from the supplied path. An empty path yields the
// defaults, resolved against the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	if strings.TrimSpace(path) != "" {
		file, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()
		dec := yaml.NewDecoder(file)
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}
	applyDefaults(&cfg)
	cfg.Chain.resolve()
	if err := validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = ":7090"
	}
	if cfg.Principal <= 0 {
		cfg.Principal = 100_000
	}
	if cfg.Boost <= 0 {
		cfg.Boost = 2.5
	}
	if cfg.Settlement.MinInterval.Duration == 0 {
		cfg.Settlement.MinInterval.Duration = 5 * time.Second
	}
	if cfg.Settlement.MintTimeout.Duration == 0 {
		cfg.Settlement.MintTimeout.Duration = 120 * time.Second
	}
	if cfg.Settlement.GasLimit == 0 {
		cfg.Settlement.GasLimit = 200_000
	}
	if cfg.HTTP.RequestsPerMinute <= 0 {
		cfg.HTTP.RequestsPerMinute = 300
	}
	if cfg.HTTP.Burst <= 0 {
		cfg.HTTP.Burst = 20
	}
}

func (c *ChainConfig) resolve() {
	if strings.TrimSpace(c.RPCURL) == "" {
		if key := strings.TrimSpace(os.Getenv(EnvAlchemyKey)); key != "" {
			c.RPCURL = "https://eth-mainnet.g.alchemy.com/v2/" + key
		}
	}
	env := strings.TrimSpace(c.SignerKeyEnv)
	if env == "" {
		env = EnvSignerKey
	}
	c.signerKey = strings.TrimSpace(os.Getenv(env))
	if strings.TrimSpace(c.TokenAddress) == "" {
		if token := strings.TrimSpace(os.Getenv(EnvTokenAddress)); token != "" {
			c.TokenAddress = token
		} else {
			c.TokenAddress = DefaultTokenAddress
		}
	}
}

// SignerKey returns the resolved signing key, if any.
func (c ChainConfig) SignerKey() string {
	return c.signerKey
}

// MintingConfigured reports whether both an RPC endpoint and a signing key are
// available.
func (c ChainConfig) MintingConfigured() bool {
	return strings.TrimSpace(c.RPCURL) != "" && c.signerKey != ""
}

func validate(cfg Config) error {
	if cfg.Settlement.MinInterval.Duration < 0 {
		return fmt.Errorf("settlement min_interval must be non-negative")
	}
	for _, entry := range cfg.Strategies {
		if strings.TrimSpace(entry.ID) == "" {
			return fmt.Errorf("strategy id required")
		}
		if entry.APY < 0 {
			return fmt.Errorf("strategy %s apy must be non-negative", entry.ID)
		}
		if entry.Weight < 0 {
			return fmt.Errorf("strategy %s weight must be non-negative", entry.ID)
		}
	}
	return nil
}
