// Package config loads the pipeline configuration from ZKATTEST_* environment
// variables. The resulting values, in particular the trust policy, are
// read-only once the process has started.
package config

import (
	"crypto/ecdsa"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/trufnetwork/zkattest/attestation"
)

// EnvPrefix prefixes every variable Config reads.
const EnvPrefix = "ZKATTEST_"

const (
	ethereumAddressPrefix = "0x"
	ethereumAddressLength = 42
)

// Metrics backends.
const (
	MetricsOTEL       = "otel"
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

var hexAddressRe = regexp.MustCompile(`^0x[0-9a-f]{40}$`)

// Config is the complete process configuration.
type Config struct {
	RPCURL          string `env:"RPC_URL" envDefault:"https://rpc-quicknode-holesky.morphl2.io"`
	ChainID         int64  `env:"CHAIN_ID" envDefault:"2810"`
	ContractAddress string `env:"CONTRACT_ADDRESS" envDefault:"0x79208010a972D0C0a978a9073bd0dcb659152072"`
	ExplorerURL     string `env:"EXPLORER_URL" envDefault:"https://explorer-holesky.morphl2.io/tx/"`

	AttestorURL string `env:"ATTESTOR_URL" envDefault:"http://127.0.0.1:8090"`
	AppID       string `env:"APP_ID" envDefault:"fb7dc08a-3b93-47c0-a553-5de29be89eb6"`

	// TrustedAllocators is the allow-list of allocator signer addresses.
	TrustedAllocators []string `env:"TRUSTED_ALLOCATORS" envSeparator:"," envDefault:"0x19a567b3b212a5b35bA0E3B600FbEd5c2eE9083d"`

	// PrivateKey is the hex wallet key used to submit transactions.
	PrivateKey string `env:"PRIVATE_KEY"`
	WaitMined  bool   `env:"WAIT_MINED" envDefault:"true"`
	GasLimit   uint64 `env:"GAS_LIMIT"`

	Concurrency int    `env:"CONCURRENCY" envDefault:"4"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:":8080"`
	Metrics     string `env:"METRICS" envDefault:"otel"`
}

// Load reads the process environment.
func Load() (*Config, error) {
	return load(env.Options{Prefix: EnvPrefix})
}

// Parse reads the process environment without validating it, for callers
// that apply overrides before calling Validate.
func Parse() (*Config, error) {
	return parse(env.Options{Prefix: EnvPrefix})
}

// LoadFrom reads environ instead of the process environment. Keys include
// the ZKATTEST_ prefix.
func LoadFrom(environ map[string]string) (*Config, error) {
	return load(env.Options{Prefix: EnvPrefix, Environment: environ})
}

func load(opts env.Options) (*Config, error) {
	cfg, err := parse(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}
	cfg.TrustedAllocators = NormalizeAddresses(cfg.TrustedAllocators)
	return &cfg, nil
}

// Validate checks every field that can be checked without network access.
func (c *Config) Validate() error {
	if len(c.TrustedAllocators) == 0 {
		return errors.New("at least one trusted allocator is required")
	}
	for _, addr := range c.TrustedAllocators {
		if err := ValidateEthereumAddress(addr); err != nil {
			return errors.Wrapf(err, "trusted allocator %q", addr)
		}
	}
	if err := ValidateEthereumAddress(NormalizeEthereumAddress(c.ContractAddress)); err != nil {
		return errors.Wrap(err, "contract address")
	}
	if c.ChainID <= 0 {
		return errors.Errorf("chain id must be positive, got %d", c.ChainID)
	}
	if c.Concurrency < 0 {
		return errors.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	for name, raw := range map[string]string{"rpc url": c.RPCURL, "attestor url": c.AttestorURL} {
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			return errors.Errorf("%s %q is not an absolute URL", name, raw)
		}
	}
	switch c.Metrics {
	case MetricsOTEL, MetricsPrometheus, MetricsNone:
	default:
		return errors.Errorf("unknown metrics backend %q", c.Metrics)
	}
	if c.PrivateKey != "" {
		if _, err := c.Wallet(); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEthereumAddress checks the normalized (lowercase) form of an address.
func ValidateEthereumAddress(addr string) error {
	if addr == "" {
		return errors.New("address is required")
	}
	if !strings.HasPrefix(addr, ethereumAddressPrefix) {
		return errors.New("ethereum address must start with '" + ethereumAddressPrefix + "'")
	}
	if len(addr) != ethereumAddressLength {
		return errors.New("ethereum address must be exactly 42 characters (0x + 40 hex)")
	}
	if strings.ToLower(addr) != addr {
		return errors.New("ethereum address must be lowercase")
	}
	if !hexAddressRe.MatchString(addr) {
		return errors.New("ethereum address contains non-hex characters")
	}
	return nil
}

// NormalizeEthereumAddress converts an address to its canonical form (lowercase).
func NormalizeEthereumAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// NormalizeAddresses lowercases, drops blanks and removes duplicates,
// keeping first-seen order.
func NormalizeAddresses(addrs []string) []string {
	normalized := lo.Map(addrs, func(a string, _ int) string { return NormalizeEthereumAddress(a) })
	return lo.Uniq(lo.Compact(normalized))
}

// TrustPolicy builds the allocator allow-list.
func (c *Config) TrustPolicy() (*attestation.TrustPolicy, error) {
	return attestation.NewTrustPolicyFromHex(c.TrustedAllocators...)
}

// Contract returns the attestation contract address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// ChainIDBig returns the chain id as a big.Int.
func (c *Config) ChainIDBig() *big.Int {
	return big.NewInt(c.ChainID)
}

// Wallet parses the submitting key. It returns nil without error when no key
// is configured; the environment check reports that case.
func (c *Config) Wallet() (*ecdsa.PrivateKey, error) {
	if c.PrivateKey == "" {
		return nil, nil
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimPrefix(c.PrivateKey, "0x"), "0X"))
	if err != nil {
		return nil, errors.New("private key is not a valid secp256k1 hex key")
	}
	return key, nil
}
