package config

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultPool is the Uniswap V3 USDC/WETH 0.05% pool on Ethereum mainnet.
const DefaultPool = "0x88e6A0c2dDD26FEEb64F039a2c41296FcB3f5640"

// Config holds configuration for the run command.
type Config struct {
	Database       DatabaseConfig
	WSURL          string
	Pool           string
	MetricsAddr    string
	HealthInterval time.Duration
	LogLevel       string
}

// DatabaseConfig holds the Postgres connection settings. In a config file these are
// top-level keys (username, password, host, port, name, sslmode).
type DatabaseConfig struct {
	Username string
	Password string
	Host     string
	Port     uint16
	Name     string
	SSLMode  string
}

// DSN renders the settings as a postgres:// connection URL.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		Host:   d.Host + ":" + strconv.Itoa(int(d.Port)),
		Path:   "/" + d.Name,
	}
	if d.Username != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.Username, d.Password)
		} else {
			u.User = url.User(d.Username)
		}
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}
	return u.String()
}

// dbFlags maps flat config keys to the flags that override them.
var dbFlags = map[string]string{
	"username": "db-username",
	"password": "db-password",
	"host":     "db-host",
	"port":     "db-port",
	"name":     "db-name",
	"sslmode":  "db-sslmode",
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := newViper()
	v.SetDefault("pool", DefaultPool)
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 5432)
	v.SetDefault("sslmode", "disable")
	v.SetDefault("health-interval", 5*time.Second)
	v.SetDefault("metrics-addr", "")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
		for key, name := range dbFlags {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := readConfig(v, cfgFile); err != nil {
		return Config{}, err
	}

	port := v.GetInt("port")
	if port <= 0 || port > math.MaxUint16 {
		return Config{}, fmt.Errorf("port out of range: %d", port)
	}

	cfg := Config{
		Database: DatabaseConfig{
			Username: v.GetString("username"),
			Password: v.GetString("password"),
			Host:     v.GetString("host"),
			Port:     uint16(port),
			Name:     v.GetString("name"),
			SSLMode:  v.GetString("sslmode"),
		},
		WSURL:          v.GetString("ws-url"),
		Pool:           v.GetString("pool"),
		MetricsAddr:    v.GetString("metrics-addr"),
		HealthInterval: v.GetDuration("health-interval"),
		LogLevel:       v.GetString("log-level"),
	}

	if cfg.Database.Name == "" {
		return Config{}, fmt.Errorf("database name is required")
	}
	if cfg.HealthInterval <= 0 {
		return Config{}, fmt.Errorf("health-interval must be positive")
	}

	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ETHLOGS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// readConfig reads cfgFile, or ./config.yaml when cfgFile is empty and the file exists.
func readConfig(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}
