package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/defistate/tokenswap-go/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
network: core_testnet
listen_addr: ":9545"
deployer: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
fee_bps: 25
prefund: "500000"
seed:
  amount_a: "10000"
  amount_b: "10000"
influx:
  url: "http://localhost:8086"
  org: "tokenswap"
  bucket: "pools"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(1114), cfg.NetworkInfo().ChainID)
	assert.Equal(t, ":9545", cfg.ListenAddr)
	assert.Equal(t, ":9090", cfg.MetricsAddr, "default must survive")
	assert.Equal(t, uint16(25), cfg.FeeBps)
	assert.Equal(t, "TKA", cfg.TokenA.Symbol)
	assert.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), cfg.DeployerAddress())
	assert.True(t, cfg.Influx.Enabled())

	supply, err := cfg.InitialSupplyAmount()
	require.NoError(t, err)
	assert.Equal(t, units.MustParseEther("1000000"), supply)

	prefund, err := cfg.PrefundAmount()
	require.NoError(t, err)
	assert.Equal(t, units.MustParseEther("500000"), prefund)

	a, b, err := cfg.SeedAmounts()
	require.NoError(t, err)
	assert.Equal(t, units.MustParseEther("10000"), a)
	assert.Equal(t, units.MustParseEther("10000"), b)
}

func TestLoadConfig_Minimal(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `deployer: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"`))
	require.NoError(t, err)

	assert.Equal(t, uint64(31337), cfg.NetworkInfo().ChainID)
	assert.False(t, cfg.Influx.Enabled())

	prefund, err := cfg.PrefundAmount()
	require.NoError(t, err)
	assert.Nil(t, prefund)

	a, b, err := cfg.SeedAmounts()
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Nil(t, b)
}

func TestLoadConfig_Invalid(t *testing.T) {
	const deployer = `deployer: "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"` + "\n"

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "unknown network", body: deployer + "network: mainnet", wantErr: "unknown network"},
		{name: "missing deployer", body: "fee_bps: 30", wantErr: "deployer"},
		{name: "fee too high", body: deployer + "fee_bps: 10000", wantErr: "fee_bps"},
		{name: "same symbols", body: deployer + "token_b: {name: Token A, symbol: TKA}", wantErr: "must differ"},
		{name: "bad prefund", body: deployer + `prefund: "lots"`, wantErr: "prefund"},
		{name: "bad seed", body: deployer + "seed: {amount_a: \"1\", amount_b: \"-1\"}", wantErr: "amount_b"},
		{name: "influx without bucket", body: deployer + "influx: {url: \"http://localhost:8086\", org: o}", wantErr: "influx.bucket"},
		{name: "malformed yaml", body: "network: [", wantErr: "failed to parse"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tc.body))
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read")
}
