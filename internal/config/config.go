// Package config defines and validates the sync daemon's configuration.
// Loading happens in cmd/syncd's loadConfig, grounded on
// internal/client/config and cmd/client/main.go's loadConfig: a cobra
// flag set bound into viper, a JSON config file on disk, and
// SYNCD_-prefixed environment overrides. Viper resolves explicitly set
// flags first, then environment variables, then the file.
package config

import (
	"os"
	"path/filepath"

	"github.com/opensyncd/syncd/internal/syncerr"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".syncd", "config.json")
	DefaultLogPath    = filepath.Join(home, ".syncd", "syncd.log")
)

const connSock = "sock"

// Config is the daemon's full configuration surface, plus the ambient
// log_level/log_file options every daemon in this corpus carries.
type Config struct {
	SyncDir string `json:"sync_dir" mapstructure:"sync_dir"`

	Conn     string `json:"conn" mapstructure:"conn"`
	ConnHost string `json:"conn_host" mapstructure:"conn_host"`
	ConnPort int    `json:"conn_port" mapstructure:"conn_port"`
	ConnUser string `json:"conn_user" mapstructure:"conn_user"`
	ConnPass string `json:"conn_pass" mapstructure:"conn_pass"`

	Key string `json:"key" mapstructure:"key"`

	LogLevel string `json:"log_level" mapstructure:"log_level"`
	LogFile  string `json:"log_file" mapstructure:"log_file"`

	// Path is the config file actually loaded, if any. Not persisted.
	Path string `json:"-" mapstructure:"-"`
}

// Validate fills in defaults and rejects a config the client cannot
// start from, returning a ConfigError fatal to construction.
func (c *Config) Validate() error {
	if c.SyncDir == "" {
		return syncerr.NewConfigError("sync_dir", "required")
	}
	if !filepath.IsAbs(c.SyncDir) {
		return syncerr.NewConfigError("sync_dir", "must be an absolute path")
	}

	if c.Conn == "" {
		c.Conn = connSock
	}
	if c.Conn != connSock {
		return syncerr.NewConfigError("conn", "unrecognized connector: "+c.Conn)
	}

	if c.ConnHost == "" {
		return syncerr.NewConfigError("conn_host", "required when conn=sock")
	}
	if c.ConnPort == 0 {
		return syncerr.NewConfigError("conn_port", "required when conn=sock")
	}
	if c.ConnUser == "" {
		return syncerr.NewConfigError("conn_user", "required when conn=sock")
	}
	if c.ConnPass == "" {
		return syncerr.NewConfigError("conn_pass", "required when conn=sock")
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" {
		c.LogFile = DefaultLogPath
	}

	return nil
}

// Keyed reports whether the connector should run in keyed (encrypted)
// mode.
func (c *Config) Keyed() bool {
	return c.Key != ""
}
