// Package config loads the seeder's startup configuration: a TOML file
// read with naoina/toml (the same library geth's own cmd/geth/config.go
// uses for node configuration), overridable by CLI flags.
package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/naoina/toml"
)

// Config is the seeder's full startup configuration.
type Config struct {
	BeginningPort      int // base UDP port for the N-port range
	SocketCount        int // N
	WorkerCount        int // W, expected >= N
	ClientPingInterval int // seconds value returned to peers on successful Hello
	Verbosity          int // log level, 0 (crit) .. 5 (trace)
	MetricsAddr        string
}

// Default returns the seeder's built-in defaults.
func Default() Config {
	return Config{
		BeginningPort:      9000,
		SocketCount:        5,
		WorkerCount:        5,
		ClientPingInterval: 30,
		Verbosity:          3,
	}
}

// PingInterval returns ClientPingInterval as a time.Duration.
func (c Config) PingInterval() time.Duration {
	return time.Duration(c.ClientPingInterval) * time.Second
}

// tomlSettings matches geth's own config-file loader: field names are
// matched case-insensitively against the struct so operators don't have
// to get capitalization exactly right in the TOML file.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return strings.ToLower(key)
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		return nil
	},
}

// LoadFile reads a TOML config file into a copy of Default, returning the
// merged Config. A missing file is not an error: Default alone is
// returned unchanged, since every field already has a sensible default.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()

	if err := tomlSettings.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
