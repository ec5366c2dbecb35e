package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"fodinha/internal/bot"
	"fodinha/internal/session"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
	LogFile  string `hcl:"log_file,optional"`
}

// GameSettings contains the default session tunables. Seat ceiling and
// bot difficulty can still be overridden per session at creation.
type GameSettings struct {
	MaxSeats      int    `hcl:"max_seats,optional"`
	TurnTimer     int    `hcl:"turn_timer_seconds,optional"`
	GracePeriod   int    `hcl:"grace_period_seconds,optional"`
	TrickPause    int    `hcl:"trick_pause_seconds,optional"`
	RoundPause    int    `hcl:"round_pause_seconds,optional"`
	BotDifficulty string `hcl:"bot_difficulty,optional"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			MaxSeats:      session.MaxSeats,
			TurnTimer:     20,
			GracePeriod:   30,
			TrickPause:    2,
			RoundPause:    4,
			BotDifficulty: "medium",
		},
	}
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	// Apply defaults for missing values
	defaults := DefaultServerConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.MaxSeats == 0 {
		config.Game.MaxSeats = defaults.Game.MaxSeats
	}
	if config.Game.TurnTimer == 0 {
		config.Game.TurnTimer = defaults.Game.TurnTimer
	}
	if config.Game.GracePeriod == 0 {
		config.Game.GracePeriod = defaults.Game.GracePeriod
	}
	if config.Game.TrickPause == 0 {
		config.Game.TrickPause = defaults.Game.TrickPause
	}
	if config.Game.RoundPause == 0 {
		config.Game.RoundPause = defaults.Game.RoundPause
	}
	if config.Game.BotDifficulty == "" {
		config.Game.BotDifficulty = defaults.Game.BotDifficulty
	}

	return &config, nil
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.MaxSeats < session.MinSeats || c.Game.MaxSeats > session.MaxSeats {
		return fmt.Errorf("max seats must be between %d and %d", session.MinSeats, session.MaxSeats)
	}
	if c.Game.TurnTimer < 1 {
		return fmt.Errorf("turn timer must be at least one second")
	}
	if c.Game.GracePeriod < 1 {
		return fmt.Errorf("grace period must be at least one second")
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// SessionConfig builds the base session configuration from the game
// settings block.
func (c *ServerConfig) SessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.MaxSeats = c.Game.MaxSeats
	cfg.TurnTimer = time.Duration(c.Game.TurnTimer) * time.Second
	cfg.GracePeriod = time.Duration(c.Game.GracePeriod) * time.Second
	cfg.TrickPause = time.Duration(c.Game.TrickPause) * time.Second
	cfg.RoundPause = time.Duration(c.Game.RoundPause) * time.Second
	cfg.BotDifficulty = bot.ParseDifficulty(c.Game.BotDifficulty)
	return cfg
}
