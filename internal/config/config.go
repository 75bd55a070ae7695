// Package config loads the faucet service configuration from an optional
// YAML file and the environment.
package config

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/faucet/core"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the service reads
const EnvPrefix = "FAUCET"

// Config represents the complete service configuration
type Config struct {
	HTTP  HTTPConfig  `mapstructure:"http"`
	Auth  AuthConfig  `mapstructure:"auth"`
	SIWE  SIWEConfig  `mapstructure:"siwe"`
	Chain ChainConfig `mapstructure:"chain"`
	Redis RedisConfig `mapstructure:"redis"`
}

// HTTPConfig contains listener and HTTP policy settings
type HTTPConfig struct {
	Port           int      `mapstructure:"port"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	// TrustedProxies lists the proxy IPs or CIDRs whose forwarding headers
	// are honoured. Empty trusts none.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// AuthConfig contains session and challenge settings
type AuthConfig struct {
	JWTSecret    string        `mapstructure:"jwt_secret"`
	SessionTTL   time.Duration `mapstructure:"session_ttl"`
	ChallengeTTL time.Duration `mapstructure:"challenge_ttl"`
}

// SIWEConfig contains the fields every sign-in message is bound to
type SIWEConfig struct {
	Domain    string `mapstructure:"domain"`
	URI       string `mapstructure:"uri"`
	Statement string `mapstructure:"statement"`
	Version   string `mapstructure:"version"`
}

// ChainConfig contains the faucet contract settings
type ChainConfig struct {
	ID               uint64        `mapstructure:"id"`
	RPCURL           string        `mapstructure:"rpc_url"`
	ContractAddress  string        `mapstructure:"contract_address"`
	PrivateKey       string        `mapstructure:"private_key"`
	MulticallAddress string        `mapstructure:"multicall_address"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// RedisConfig selects Redis for nonces and events. An empty URL keeps both
// in process.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// legacyEnv maps keys to the unprefixed variable names of older deployments.
var legacyEnv = map[string]string{
	"auth.jwt_secret":        "JWT_SECRET",
	"chain.rpc_url":          "RPC_URL",
	"chain.contract_address": "CONTRACT_ADDRESS",
	"chain.private_key":      "PRIVATE_KEY",
	"http.port":              "PORT",
	"redis.url":              "REDIS_URL",
}

// Load reads configuration from cfgFile, or from faucet.yaml in ./configs or
// the working directory when cfgFile is empty, then applies the environment.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("faucet")
		v.SetConfigType("yaml")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	for key, legacy := range legacyEnv {
		envKey := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 3000)
	v.SetDefault("http.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("http.rate_limit_rps", 10)
	v.SetDefault("http.rate_limit_burst", 20)
	v.SetDefault("http.trusted_proxies", []string{})

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.session_ttl", time.Hour)
	v.SetDefault("auth.challenge_ttl", 5*time.Minute)

	v.SetDefault("siwe.domain", "localhost:3000")
	v.SetDefault("siwe.uri", "http://localhost:3000")
	v.SetDefault("siwe.statement", "Sign in to the Faucet DApp.")
	v.SetDefault("siwe.version", "1")

	v.SetDefault("chain.id", 11155111)
	v.SetDefault("chain.rpc_url", "https://ethereum-sepolia-rpc.publicnode.com")
	v.SetDefault("chain.contract_address", "")
	v.SetDefault("chain.private_key", "")
	v.SetDefault("chain.multicall_address", "0xcA11bde05977b3631167028862bE2a173976CA11")
	v.SetDefault("chain.timeout", 15*time.Second)

	v.SetDefault("redis.url", "")
}

// Validate checks the settings every command needs
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	for _, p := range c.HTTP.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("http.trusted_proxies entry %q is not an IP or CIDR", p)
			}
		}
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return errors.New("auth.session_ttl must be positive")
	}
	if c.Auth.ChallengeTTL <= 0 {
		return errors.New("auth.challenge_ttl must be positive")
	}
	if c.SIWE.Domain == "" || c.SIWE.URI == "" {
		return errors.New("siwe.domain and siwe.uri are required")
	}
	if c.SIWE.Version != core.MessageVersion {
		return fmt.Errorf("siwe.version %q is not supported", c.SIWE.Version)
	}
	if strings.Contains(c.SIWE.Statement, "\n") {
		return errors.New("siwe.statement must be a single line")
	}
	if c.Chain.ID == 0 {
		return errors.New("chain.id is required")
	}
	if c.Chain.MulticallAddress != "" && !common.IsHexAddress(c.Chain.MulticallAddress) {
		return fmt.Errorf("chain.multicall_address %q is not an address", c.Chain.MulticallAddress)
	}
	return nil
}

// ValidateChain checks the settings needed to submit claims
func (c *ChainConfig) ValidateChain() error {
	if c.RPCURL == "" {
		return errors.New("chain.rpc_url is required")
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("chain.contract_address %q is not an address", c.ContractAddress)
	}
	if _, err := c.Key(); err != nil {
		return err
	}
	return nil
}

// Key parses the faucet signing key
func (c *ChainConfig) Key() (*ecdsa.PrivateKey, error) {
	if c.PrivateKey == "" {
		return nil, errors.New("chain.private_key is required")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain.private_key: %w", err)
	}
	return key, nil
}
