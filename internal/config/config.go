// Package config loads the aggregator's runtime configuration from
// environment variables and an optional config file, following the
// viper-defaults-then-env-bindings-then-validate pattern.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig
	Signer  SignerConfig
	V1      DomainConfig
	V2      DomainConfig
	Feature FeatureConfig
}

type ServerConfig struct {
	JSONRPCPort int `mapstructure:"jsonrpc_port"`
	GRPCPort    int `mapstructure:"grpc_port"`
}

// SignerConfig describes the aggregator's own signing key and the
// allow-list of other signers it accepts receipts from.
type SignerConfig struct {
	PrivateKeyHex  string   `mapstructure:"private_key_hex"`
	KeySourceAddr  string   `mapstructure:"key_source_addr"`
	AllowedSigners []string `mapstructure:"allowed_signers"`
}

// DomainConfig is the EIP-712 domain for one wire version.
type DomainConfig struct {
	ChainID           int64  `mapstructure:"chain_id"`
	VerifyingContract string `mapstructure:"verifying_contract"`
}

type FeatureConfig struct {
	EnableV2 bool `mapstructure:"enable_v2"`
}

// Load builds a Config the same way the rest of this codebase's services
// do: viper defaults, an optional YAML file, then explicit environment
// bindings, then a validation pass.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.jsonrpc_port", 8080)
	v.SetDefault("server.grpc_port", 8090)
	v.SetDefault("feature.enable_v2", true)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindings := map[string]string{
		"server.jsonrpc_port":    "JSONRPC_PORT",
		"server.grpc_port":       "GRPC_PORT",
		"signer.private_key_hex": "TAP_SIGNER_PRIVATE_KEY",
		"signer.key_source_addr": "TAP_KEY_SOURCE_ADDR",
		"signer.allowed_signers": "TAP_ALLOWED_SIGNERS",
		"v1.chain_id":            "TAP_V1_CHAIN_ID",
		"v1.verifying_contract":  "TAP_V1_VERIFYING_CONTRACT",
		"v2.chain_id":            "TAP_V2_CHAIN_ID",
		"v2.verifying_contract":  "TAP_V2_VERIFYING_CONTRACT",
		"feature.enable_v2":      "TAP_ENABLE_V2",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	type req struct {
		val  string
		name string
	}
	checks := []req{
		{c.V1.VerifyingContract, "TAP_V1_VERIFYING_CONTRACT"},
	}
	if c.Feature.EnableV2 {
		checks = append(checks, req{c.V2.VerifyingContract, "TAP_V2_VERIFYING_CONTRACT"})
	}
	if c.Signer.PrivateKeyHex == "" && c.Signer.KeySourceAddr == "" {
		return fmt.Errorf("required config missing: one of TAP_SIGNER_PRIVATE_KEY or TAP_KEY_SOURCE_ADDR")
	}
	for _, r := range checks {
		if r.val == "" {
			return fmt.Errorf("required config missing: %s", r.name)
		}
	}
	if c.V1.ChainID == 0 {
		return fmt.Errorf("required config missing: TAP_V1_CHAIN_ID")
	}
	if c.Feature.EnableV2 && c.V2.ChainID == 0 {
		return fmt.Errorf("required config missing: TAP_V2_CHAIN_ID")
	}
	return nil
}
