package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Address  string
		HTTPPort string
	}
	Database struct {
		Driver string // "mysql" | "postgres" | "" (без БД)
		DSN    string
	}
	Logging struct {
		Level  string
		Format string
		File   string
	}
	Sync struct {
		TickInterval time.Duration // период планировщика
		FetchTimeout time.Duration // таймаут запроса к внешнему API
		SystemEmail  string        // учётка, от имени которой идут авто-синки
	}
}

// Load читает warden.yaml (или файл из --config) + переменные окружения WARDEN_*.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.address", "0.0.0.0")
	v.SetDefault("server.http_port", "8080")
	v.SetDefault("database.driver", "")
	v.SetDefault("database.dsn", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("sync.tick_interval", "5m")
	v.SetDefault("sync.fetch_timeout", "30s")
	v.SetDefault("sync.system_email", "system@warden.local")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("warden")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/warden")
	}

	v.SetEnvPrefix("WARDEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// конфиг-файл опционален, env + defaults достаточно
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	cfg.Server.Address = v.GetString("server.address")
	cfg.Server.HTTPPort = v.GetString("server.http_port")
	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.DSN = v.GetString("database.dsn")
	cfg.Logging.Level = v.GetString("logging.level")
	cfg.Logging.Format = v.GetString("logging.format")
	cfg.Logging.File = v.GetString("logging.file")
	cfg.Sync.TickInterval = v.GetDuration("sync.tick_interval")
	cfg.Sync.FetchTimeout = v.GetDuration("sync.fetch_timeout")
	cfg.Sync.SystemEmail = v.GetString("sync.system_email")

	if cfg.Sync.TickInterval <= 0 {
		cfg.Sync.TickInterval = 5 * time.Minute
	}
	if cfg.Sync.FetchTimeout <= 0 {
		cfg.Sync.FetchTimeout = 30 * time.Second
	}

	return cfg, nil
}
