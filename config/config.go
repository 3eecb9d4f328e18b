// Package config loads the proxy's JSON configuration file, merging every
// recognized key over its default, the way cmd/noxv2-server builds its
// Options from environment variables but sourced from a file instead.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Server holds the inbound datagram listener settings.
type Server struct {
	Port    uint16 `json:"port"`
	Address string `json:"address"`
}

// Client holds advisory client metadata and resolver/local-port settings.
type Client struct {
	GameVersion string `json:"gameVersion"`
	Protocol    uint16 `json:"protocol"`
	DNSServer   string `json:"dnsServer"`
	LocalPort   uint16 `json:"localPort"`
}

// Log holds logging verbosity and traffic-print gates.
type Log struct {
	Level                 string `json:"level"`
	PrintMessage          bool   `json:"printMessage"`
	PrintGameUpdatePacket bool   `json:"printGameUpdatePacket"`
	PrintVariant          bool   `json:"printVariant"`
	PrintExtra            bool   `json:"printExtra"`
}

// Command holds the chat-command dispatcher's prefix.
type Command struct {
	Prefix string `json:"prefix"`
}

// Web holds the HTTPS interceptor's listener and certificate settings.
type Web struct {
	Port              uint16 `json:"port"`
	CertPath          string `json:"certPath"`
	KeyPath           string `json:"keyPath"`
	IgnoreMaintenance bool   `json:"ignoreMaintenance"`
}

// Scripts holds the hook registry's enablement and search path.
type Scripts struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// Config is the fully merged configuration, always valid after Load: every
// field carries either the value read from the file or its default.
type Config struct {
	Server  Server  `json:"server"`
	Client  Client  `json:"client"`
	Log     Log     `json:"log"`
	Command Command `json:"command"`
	Web     Web     `json:"web"`
	Scripts Scripts `json:"scripts"`
}

// Default returns the configuration used when no file is present and as
// the base every file is merged over.
func Default() Config {
	return Config{
		Server: Server{Port: 16999, Address: "www.growtopia1.com"},
		Client: Client{DNSServer: "system", LocalPort: 0},
		Log:    Log{Level: "info"},
		Command: Command{Prefix: "/"},
		Web: Web{Port: 443, CertPath: "cert.pem", KeyPath: "key.pem"},
	}
}

// Load reads path as JSON and merges it over Default. A missing file is
// not an error: Default is returned unchanged. An invalid command prefix
// (anything but exactly one byte, matching command.Registry's byte-level
// prefix match) reverts to the default prefix.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if len(cfg.Command.Prefix) != 1 {
		cfg.Command.Prefix = Default().Command.Prefix
	}
	return cfg, nil
}
