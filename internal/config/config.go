package config

import (
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Chain      ChainConfig      `mapstructure:"chain"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Settlement SettlementConfig `mapstructure:"settlement"`
	Venues     []VenueConfig    `mapstructure:"venues"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type AuthConfig struct {
	AdminKey string `mapstructure:"admin_key"`
}

type ChainConfig struct {
	RPCURL string `mapstructure:"rpc_url"`
	// ChainID and VerifyingContract pin the EIP-712 domain; signatures from
	// other deployments will not verify here.
	ChainID           int64  `mapstructure:"chain_id"`
	VerifyingContract string `mapstructure:"verifying_contract"`
}

type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SettlementConfig struct {
	FeeRateBps int      `mapstructure:"fee_rate_bps"`
	Whitelist  []string `mapstructure:"whitelist"` // trusted intermediate hop tokens
	// HoldingAddress is where adapters deliver swap output and payouts draw from.
	HoldingAddress string `mapstructure:"holding_address"`
}

type VenueConfig struct {
	Protocol string `mapstructure:"protocol"`
	Adapter  string `mapstructure:"adapter"`
	Active   bool   `mapstructure:"active"`
	Version  uint32 `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./configs")

	// Environment variables support
	// e.g. SETTLEGATE_AUTH_ADMIN_KEY
	viper.SetEnvPrefix("settlegate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("auth.admin_key", "")
	viper.SetDefault("chain.chain_id", 137)
	viper.SetDefault("chain.verifying_contract", "0x0000000000000000000000000000000000000000")
	viper.SetDefault("settlement.fee_rate_bps", 0)
	viper.SetDefault("settlement.holding_address", "0x1000000000000000000000000000000000000001")
	viper.SetDefault("rate_limit.rps", 50)
	viper.SetDefault("rate_limit.burst", 100)
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("log.level", "info")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults and env vars")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
