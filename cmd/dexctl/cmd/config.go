package cmd

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix is the prefix of every environment override, DEX_CHAIN_ID,
// DEX_VAULT_PASSPHRASE and so on.
const envPrefix = "DEX"

// Config is the dexctl configuration, read from flags, DEX_* variables and
// an optional YAML file, in that order of precedence.
type Config struct {
	ChainID     uint64   `mapstructure:"chain_id"`
	RPCURLs     []string `mapstructure:"rpc_urls"`
	Wallet      string   `mapstructure:"wallet"`
	SafetyGuard bool     `mapstructure:"safety_guard"`

	Log     LogConfig     `mapstructure:"log"`
	Vault   VaultConfig   `mapstructure:"vault"`
	DB      DBConfig      `mapstructure:"db"`
	Monitor MonitorConfig `mapstructure:"monitor"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// VaultConfig selects the keystore vault. Without a directory wallets live
// in memory and are gone when the process exits.
type VaultConfig struct {
	Dir         string `mapstructure:"dir"`
	Passphrase  string `mapstructure:"passphrase"`
	LightScrypt bool   `mapstructure:"light_scrypt"`
}

// DBConfig points at the Postgres network overlay.
type DBConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MonitorConfig is the listen address of the metrics server.
type MonitorConfig struct {
	Addr string `mapstructure:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("chain_id", 1)
	v.SetDefault("rpc_urls", []string{})
	v.SetDefault("wallet", "default")
	v.SetDefault("safety_guard", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("vault.dir", "")
	v.SetDefault("vault.passphrase", "")
	v.SetDefault("vault.light_scrypt", false)
	v.SetDefault("db.dsn", "")
	v.SetDefault("monitor.addr", ":2112")
}

// bindFlags maps the flags of cmd onto configuration keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	bindings := map[string]string{
		"chain_id":     "chain-id",
		"rpc_urls":     "rpc-url",
		"wallet":       "wallet",
		"safety_guard": "safety-guard",
		"log.level":    "log-level",
		"log.format":   "log-format",
		"vault.dir":    "vault-dir",
		"db.dsn":       "db-dsn",
		"monitor.addr": "metrics-addr",
	}
	for key, name := range bindings {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "failed to bind flag %s", name)
		}
	}
	return nil
}

// loadConfig reads configFile when set, then overlays DEX_* variables and
// the flags bound to v.
func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", configFile)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if config.ChainID == 0 {
		return nil, errors.New("chain_id must be set")
	}
	return &config, nil
}

// newLogger builds the process logger. Output goes to stderr so reports on
// stdout stay clean.
func newLogger(config LogConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", config.Level)
	}
	logger.SetLevel(level)

	switch strings.ToLower(config.Format) {
	case "", "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return nil, errors.Errorf("invalid log format %q, want text or json", config.Format)
	}
	return logger, nil
}
