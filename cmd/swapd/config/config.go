package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/defistate/tokenswap-go/chains"
	"github.com/defistate/tokenswap-go/units"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"gopkg.in/yaml.v3"
)

// TokenConfig names one token of the pair.
type TokenConfig struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
}

// SeedConfig is the initial deposit made by the deployer, in whole tokens.
type SeedConfig struct {
	AmountA string `yaml:"amount_a"`
	AmountB string `yaml:"amount_b"`
}

// InfluxConfig enables the state recorder when URL is set.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Enabled reports whether a recorder should be started.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// SwapdConfig is the daemon configuration.
type SwapdConfig struct {
	Network          string       `yaml:"network"`
	ListenAddr       string       `yaml:"listen_addr"`
	MetricsAddr      string       `yaml:"metrics_addr"`
	Deployer         string       `yaml:"deployer"`
	FeeBps           uint16       `yaml:"fee_bps"`
	StreamBufferSize uint         `yaml:"stream_buffer_size"`
	TokenA           TokenConfig  `yaml:"token_a"`
	TokenB           TokenConfig  `yaml:"token_b"`
	InitialSupply    string       `yaml:"initial_supply"`
	Prefund          string       `yaml:"prefund"`
	Seed             *SeedConfig  `yaml:"seed"`
	Influx           InfluxConfig `yaml:"influx"`
}

// LoadConfig reads and validates the YAML file at path. Unset fields take defaults.
func LoadConfig(path string) (*SwapdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := &SwapdConfig{
		Network:          chains.Hardhat.Name,
		ListenAddr:       ":8545",
		MetricsAddr:      ":9090",
		StreamBufferSize: 100,
		TokenA:           TokenConfig{Name: "Token A", Symbol: "TKA"},
		TokenB:           TokenConfig{Name: "Token B", Symbol: "TKB"},
		InitialSupply:    "1000000",
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *SwapdConfig) validate() error {
	if _, err := chains.ByName(c.Network); err != nil {
		return err
	}
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if !common.IsHexAddress(c.Deployer) {
		return fmt.Errorf("deployer must be a hex address, got %q", c.Deployer)
	}
	if c.DeployerAddress() == (common.Address{}) {
		return errors.New("deployer cannot be the zero address")
	}
	if c.FeeBps >= 10000 {
		return fmt.Errorf("fee_bps must be below 10000, got %d", c.FeeBps)
	}
	if c.StreamBufferSize == 0 {
		return errors.New("stream_buffer_size must be greater than 0")
	}
	if c.TokenA.Symbol == "" || c.TokenB.Symbol == "" {
		return errors.New("token_a.symbol and token_b.symbol are required")
	}
	if c.TokenA.Symbol == c.TokenB.Symbol {
		return fmt.Errorf("token symbols must differ, both are %s", c.TokenA.Symbol)
	}
	if _, err := c.InitialSupplyAmount(); err != nil {
		return fmt.Errorf("initial_supply: %w", err)
	}
	if _, err := c.PrefundAmount(); err != nil {
		return fmt.Errorf("prefund: %w", err)
	}
	if _, _, err := c.SeedAmounts(); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if c.Influx.Enabled() && (c.Influx.Org == "" || c.Influx.Bucket == "") {
		return errors.New("influx.org and influx.bucket are required when influx.url is set")
	}
	return nil
}

// NetworkInfo resolves the configured network.
func (c *SwapdConfig) NetworkInfo() chains.Network {
	n, _ := chains.ByName(c.Network)
	return n
}

// DeployerAddress returns the account that receives the minted supply.
func (c *SwapdConfig) DeployerAddress() common.Address {
	return common.HexToAddress(c.Deployer)
}

// InitialSupplyAmount returns the per-token supply minted to the deployer, in base units.
func (c *SwapdConfig) InitialSupplyAmount() (*uint256.Int, error) {
	return units.ParseEther(c.InitialSupply)
}

// PrefundAmount returns the plain-transfer prefund in base units, or nil when unset.
func (c *SwapdConfig) PrefundAmount() (*uint256.Int, error) {
	if c.Prefund == "" {
		return nil, nil
	}
	return units.ParseEther(c.Prefund)
}

// SeedAmounts returns the seed deposit in base units, or nils when no seed is configured.
func (c *SwapdConfig) SeedAmounts() (amountA, amountB *uint256.Int, err error) {
	if c.Seed == nil {
		return nil, nil, nil
	}
	if amountA, err = units.ParseEther(c.Seed.AmountA); err != nil {
		return nil, nil, fmt.Errorf("amount_a: %w", err)
	}
	if amountB, err = units.ParseEther(c.Seed.AmountB); err != nil {
		return nil, nil, fmt.Errorf("amount_b: %w", err)
	}
	return amountA, amountB, nil
}
