package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// PlaceholderToken is the shipped default; running with it is refused.
const PlaceholderToken = "YOUR_BOT_TOKEN_HERE"

var ErrMissingToken = errors.New("BOT_TOKEN is not set")

type Config struct {
	BotToken string
	DBDriver string
	DBConn   string
	HTTPAddr string
	LogLevel string
	Workers  int
}

// flag name -> viper key
var flagKeys = map[string]string{
	"bot-token": "bot_token",
	"db-driver": "db_driver",
	"db-conn":   "db_conn",
	"http-addr": "http_addr",
	"log-level": "log_level",
	"workers":   "workers",
}

// NewViper returns a viper instance with defaults and environment lookup.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("bot_token", PlaceholderToken)
	v.SetDefault("db_driver", "json")
	v.SetDefault("db_conn", "notes_data.json")
	v.SetDefault("http_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("workers", 8)
	v.AutomaticEnv()
	return v
}

// RegisterFlags declares the command-line overrides.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("bot-token", "", "Telegram bot token (env BOT_TOKEN)")
	fs.String("db-driver", "", "storage driver: json, sqlite3 or postgres (env DB_DRIVER)")
	fs.String("db-conn", "", "data file path or SQL connection string (env DB_CONN)")
	fs.String("http-addr", "", "listen address for the HTTP gateway, empty disables it (env HTTP_ADDR)")
	fs.String("log-level", "", "debug, info, warn or error (env LOG_LEVEL)")
	fs.Int("workers", 0, "updates processed concurrently (env WORKERS)")
}

// BindFlags lets explicitly set flags win over the environment.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Load reads v into a Config and validates it.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		BotToken: strings.TrimSpace(v.GetString("bot_token")),
		DBDriver: v.GetString("db_driver"),
		DBConn:   v.GetString("db_conn"),
		HTTPAddr: v.GetString("http_addr"),
		LogLevel: v.GetString("log_level"),
		Workers:  v.GetInt("workers"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.BotToken == "" || c.BotToken == PlaceholderToken {
		return ErrMissingToken
	}
	switch c.DBDriver {
	case "json", "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBConn == "" {
		return fmt.Errorf("DB_CONN is empty")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	return nil
}
