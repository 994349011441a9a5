package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gigbook/internal/filex"
	"github.com/dmitrijs2005/gigbook/internal/schema"
	"github.com/spf13/viper"
)

// Setting keys, shared by config.yaml, GIGBOOK_* variables and flags.
const (
	KeyServerAddr     = "server_addr"
	KeyDataDir        = "data_dir"
	KeyPlatform       = "platform"
	KeyRequestTimeout = "request_timeout"
	KeySyncTimeout    = "sync_timeout"
	KeyLogFile        = "log_file"
	KeyLogLevel       = "log_level"
)

const (
	envPrefix      = "GIGBOOK"
	configFileName = "config"
	configFileType = "yaml"
	dbFileName     = "gigbook.db"
	logFileName    = "gigbook.log"
)

// Config holds runtime settings for the gigbook CLI.
type Config struct {
	ServerAddr     string
	DataDir        string
	Platform       schema.Platform
	RequestTimeout time.Duration
	SyncTimeout    time.Duration
	LogFile        string
	LogLevel       string
}

// DBPath is the device database inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// NewViper returns a viper instance carrying the defaults and reading
// GIGBOOK_* environment variables. Callers bind their flags to it before
// calling Load.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyServerAddr, "127.0.0.1:50051")
	v.SetDefault(KeyPlatform, string(schema.Native))
	v.SetDefault(KeyRequestTimeout, 15*time.Second)
	v.SetDefault(KeySyncTimeout, 2*time.Minute)
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the data directory, overlays config.yaml found there and
// decodes the result. A missing config.yaml is not an error.
func Load(v *viper.Viper) (*Config, error) {
	dir := v.GetString(KeyDataDir)
	if dir == "" {
		var err error
		if dir, err = filex.DefaultDataDir(); err != nil {
			return nil, err
		}
	}
	dir, err := filex.EnsureDir(dir)
	if err != nil {
		return nil, err
	}

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	platform, err := schema.ParsePlatform(v.GetString(KeyPlatform))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", KeyPlatform, err)
	}

	cfg := &Config{
		ServerAddr:     v.GetString(KeyServerAddr),
		DataDir:        dir,
		Platform:       platform,
		RequestTimeout: v.GetDuration(KeyRequestTimeout),
		SyncTimeout:    v.GetDuration(KeySyncTimeout),
		LogFile:        v.GetString(KeyLogFile),
		LogLevel:       v.GetString(KeyLogLevel),
	}
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(dir, logFileName)
	}
	if cfg.RequestTimeout <= 0 || cfg.SyncTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be positive")
	}
	return cfg, nil
}
