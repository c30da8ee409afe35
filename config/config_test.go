package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearChainEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvAlchemyKey, "")
	t.Setenv(EnvSignerKey, "")
	t.Setenv(EnvTokenAddress, "")
}

func TestLoadDefaults(t *testing.T) {
	clearChainEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, ":7090", cfg.ListenAddress)
	require.Equal(t, 100_000.0, cfg.Principal)
	require.Equal(t, 2.5, cfg.Boost)
	require.Equal(t, 5*time.Second, cfg.Settlement.MinInterval.Duration)
	require.Equal(t, 120*time.Second, cfg.Settlement.MintTimeout.Duration)
	require.Equal(t, uint64(200_000), cfg.Settlement.GasLimit)
	require.Equal(t, DefaultTokenAddress, cfg.Chain.TokenAddress)
	require.False(t, cfg.Chain.MintingConfigured())
}

func TestLoadFile(t *testing.T) {
	clearChainEnv(t)

	path := filepath.Join(t.TempDir(), "earnd.yaml")
	payload := `
listen: ":9000"
boost: 1.5
settlement:
  min_interval: 10s
  mint_timeout: 1m
strategies:
  - id: aave
    apy: 0.85
    weight: 0.5
  - id: curve
    apy: 1.25
    weight: 0.5
chain:
  rpc_url: "https://rpc.example.test"
http:
  requests_per_minute: 60
  burst: 5
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.ListenAddress)
	require.Equal(t, 1.5, cfg.Boost)
	require.Equal(t, 10*time.Second, cfg.Settlement.MinInterval.Duration)
	require.Equal(t, time.Minute, cfg.Settlement.MintTimeout.Duration)
	require.Len(t, cfg.Strategies, 2)
	require.Equal(t, "https://rpc.example.test", cfg.Chain.RPCURL)
	require.Equal(t, 60.0, cfg.HTTP.RequestsPerMinute)
	require.False(t, cfg.Chain.MintingConfigured())
}

func TestChainResolvesFromEnvironment(t *testing.T) {
	clearChainEnv(t)
	t.Setenv(EnvAlchemyKey, "demo-key")
	t.Setenv(EnvSignerKey, "0xabc123")
	t.Setenv(EnvTokenAddress, "0x1111111111111111111111111111111111111111")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "https://eth-mainnet.g.alchemy.com/v2/demo-key", cfg.Chain.RPCURL)
	require.Equal(t, "0xabc123", cfg.Chain.SignerKey())
	require.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Chain.TokenAddress)
	require.True(t, cfg.Chain.MintingConfigured())
}

func TestLoadRejectsInvalidStrategies(t *testing.T) {
	clearChainEnv(t)

	path := filepath.Join(t.TempDir(), "earnd.yaml")
	payload := `
strategies:
  - id: ""
    apy: 0.85
    weight: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
