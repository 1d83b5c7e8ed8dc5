// Package config loads vspcd's JSON configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/stlalpha/vspcd/internal/logging"
)

// Config holds the recognized configuration keys from the spec: host/port
// for the telnet listener, web_port for the HTTP retrieval server, optional
// TLS material, the VSPC URI used to accept DO-PROXY, the mandatory serial
// log directory, and HTTP Basic auth credentials for log retrieval.
type Config struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	WebPort      int    `json:"web_port"`
	Cert         string `json:"cert"`
	Key          string `json:"key"`
	URI          string `json:"uri"`
	SerialLogDir string `json:"serial_log_dir"`
	Username     string `json:"username"`
	Password     string `json:"password"`
}

const (
	defaultHost    = "0.0.0.0"
	defaultPort    = 13370
	defaultWebPort = 13371
)

// Load reads and validates configuration from the JSON file at path,
// applying defaults for any key left unset. serial_log_dir is mandatory;
// its absence is a fatal configuration error per the exit-code contract.
func Load(path string) (Config, error) {
	logging.Info("loading configuration from %s", path)

	cfg := Config{
		Host:    defaultHost,
		Port:    defaultPort,
		WebPort: defaultWebPort,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config JSON from %s: %w", path, err)
	}

	if cfg.Host == "" {
		cfg.Host = defaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = defaultPort
	}
	if cfg.WebPort == 0 {
		cfg.WebPort = defaultWebPort
	}
	if cfg.SerialLogDir == "" {
		return Config{}, fmt.Errorf("serial_log_dir is not specified")
	}
	if cfg.Username != "" && cfg.Password == "" {
		logging.Warn("username is set but password is empty; console log endpoint will require an empty password")
	}

	logging.Info("configuration loaded: telnet %s:%d, web %s:%d, log dir %s", cfg.Host, cfg.Port, cfg.Host, cfg.WebPort, cfg.SerialLogDir)
	return cfg, nil
}

// TLSEnabled reports whether cert/key material was configured.
func (c Config) TLSEnabled() bool {
	return c.Cert != ""
}
