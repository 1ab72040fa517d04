package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultPollInterval is the reconciliation cadence.
const DefaultPollInterval = 10 * time.Second

// Config holds configuration values loaded from flags, env, .env, or config file.
type Config struct {
	RPCURL       string
	Network      string
	PrivateKey   string
	Address      string
	Incentive    string
	PollInterval time.Duration
	SubgraphRate float64
	MaxRetries   int
	RetryBackoff time.Duration
	SnapshotOut  string
	PGDSN        string
	LogLevel     string
	Networks     map[string]NetworkConfig
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	// A missing .env is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("STAKER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("poll-interval", DefaultPollInterval)
	v.SetDefault("subgraph-rate", 5.0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	networks, err := loadNetworks(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RPCURL:       v.GetString("rpc"),
		Network:      strings.ToLower(strings.TrimSpace(v.GetString("network"))),
		PrivateKey:   strings.TrimSpace(v.GetString("private-key")),
		Address:      strings.TrimSpace(v.GetString("address")),
		Incentive:    strings.TrimSpace(v.GetString("incentive")),
		PollInterval: v.GetDuration("poll-interval"),
		SubgraphRate: v.GetFloat64("subgraph-rate"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		SnapshotOut:  v.GetString("snapshot-out"),
		PGDSN:        v.GetString("pg-dsn"),
		LogLevel:     v.GetString("log-level"),
		Networks:     networks,
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	return cfg, nil
}

// loadNetworks starts from the built-in table and applies per-field
// overrides from the "networks" config key. Chain ids must stay unique.
func loadNetworks(v *viper.Viper) (map[string]NetworkConfig, error) {
	networks := DefaultNetworks()
	if !v.IsSet("networks") {
		return networks, nil
	}

	var overrides map[string]NetworkConfig
	if err := v.UnmarshalKey("networks", &overrides); err != nil {
		return nil, fmt.Errorf("parse networks: %w", err)
	}
	for key, override := range overrides {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == "" {
			continue
		}
		prefix := "networks." + key + "."
		base := networks[name]
		base.Name = name
		networks[name] = base.merge(override, func(field string) bool {
			return v.IsSet(prefix + field)
		})
	}

	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	byChain := make(map[uint64]string, len(names))
	for _, name := range names {
		id := networks[name].ChainID
		if id == 0 {
			continue
		}
		if other, ok := byChain[id]; ok {
			return nil, fmt.Errorf("networks %s and %s share chain id %d", other, name, id)
		}
		byChain[id] = name
	}
	return networks, nil
}
