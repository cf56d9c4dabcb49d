// Package config loads server configuration from an HCL configuration
// file, using hcl:"...,label" struct tags with gohcl.DecodeBody and
// hclparse.NewParser.
package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete set of recognized server configuration options.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig `hcl:"table,block"`
}

// ServerSettings are process-level options.
type ServerSettings struct {
	Address string `hcl:"address,optional"`
	Port int `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`

	// ReconnectGraceSeconds is the tombstone lifetime after disconnect.
	ReconnectGraceSeconds int `hcl:"reconnect_grace_seconds,optional"`

	// MinPlayers/MaxPlayers bound a table's seat count when no per-table
	// override is given.
	MinPlayers int `hcl:"min_players,optional"`
	MaxPlayers int `hcl:"max_players,optional"`

	// DefaultTurnTimeSeconds is the per-table per-turn wall clock.
	DefaultTurnTimeSeconds int `hcl:"default_turn_time_seconds,optional"`

	// DefaultTimeBankSeconds is the starting bank per player.
	DefaultTimeBankSeconds float64 `hcl:"default_time_bank_seconds,optional"`

	// TimeBankReplenishPerHand is the seconds added at each new hand,
	// capped at 120 total (table.maxTimeBank).
	TimeBankReplenishPerHand float64 `hcl:"time_bank_replenish_per_hand,optional"`

	// JWTSecret validates access tokens (out of core scope: issuance).
	JWTSecret string `hcl:"jwt_secret,optional"`
}

// TableConfig defines one table to create at startup.
type TableConfig struct {
	Name string `hcl:"name,label"`
	SmallBlind int `hcl:"small_blind"`
	BigBlind int `hcl:"big_blind"`
	MaxPlayers int `hcl:"max_players,optional"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address: "localhost",
			Port: 8080,
			LogLevel: "info",
			ReconnectGraceSeconds: 60,
			MinPlayers: 2,
			MaxPlayers: 9,
			DefaultTurnTimeSeconds: 30,
			DefaultTimeBankSeconds: 60,
			TimeBankReplenishPerHand: 10,
		},
	}
}

// Load reads configuration from an HCL file, falling back to Default() if
// the file does not exist, per LoadServerConfig behavior.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parse %s: %s", filename, diags.Error())
	}

	cfg := *Default()
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decode %s: %s", filename, diags.Error())
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(c *Config) {
	d := Default()
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = d.Server.LogLevel
	}
	if c.Server.ReconnectGraceSeconds == 0 {
		c.Server.ReconnectGraceSeconds = d.Server.ReconnectGraceSeconds
	}
	if c.Server.MinPlayers == 0 {
		c.Server.MinPlayers = d.Server.MinPlayers
	}
	if c.Server.MaxPlayers == 0 {
		c.Server.MaxPlayers = d.Server.MaxPlayers
	}
	if c.Server.DefaultTurnTimeSeconds == 0 {
		c.Server.DefaultTurnTimeSeconds = d.Server.DefaultTurnTimeSeconds
	}
	if c.Server.DefaultTimeBankSeconds == 0 {
		c.Server.DefaultTimeBankSeconds = d.Server.DefaultTimeBankSeconds
	}
	if c.Server.TimeBankReplenishPerHand == 0 {
		c.Server.TimeBankReplenishPerHand = d.Server.TimeBankReplenishPerHand
	}
	for i := range c.Tables {
		if c.Tables[i].MaxPlayers == 0 {
			c.Tables[i].MaxPlayers = c.Server.MaxPlayers
		}
	}
}

// Validate checks the configuration is internally consistent, per the
// teacher's Validate method.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Server.MinPlayers < 2 {
		return fmt.Errorf("config: min_players must be >= 2")
	}
	if c.Server.MaxPlayers < c.Server.MinPlayers {
		return fmt.Errorf("config: max_players must be >= min_players")
	}
	for _, tbl := range c.Tables {
		if tbl.SmallBlind <= 0 {
			return fmt.Errorf("config: table %s: small_blind must be positive", tbl.Name)
		}
		if tbl.BigBlind <= tbl.SmallBlind {
			return fmt.Errorf("config: table %s: big_blind must exceed small_blind", tbl.Name)
		}
	}
	return nil
}

// GetServerAddress returns the full listen address.
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
