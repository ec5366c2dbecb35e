package main

import (
	"testing"

	"github.com/alecthomas/kong"
)

func TestCLIFlagNames(t *testing.T) {
	cli := CLI
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}

	_, err = parser.Parse([]string{
		"--config", "custom.hcl",
		"--addr", ":9000",
		"--log-level", "debug",
		"--seed", "42",
	})
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cli.Config != "custom.hcl" {
		t.Errorf("Expected config custom.hcl, got %q", cli.Config)
	}
	if cli.Addr != ":9000" {
		t.Errorf("Expected addr :9000, got %q", cli.Addr)
	}
	if cli.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %q", cli.LogLevel)
	}
	if cli.Seed != 42 {
		t.Errorf("Expected seed 42, got %d", cli.Seed)
	}
}

func TestCLIConfigDefault(t *testing.T) {
	cli := CLI
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatalf("kong.New failed: %v", err)
	}
	if _, err := parser.Parse(nil); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cli.Config != "fodinha-server.hcl" {
		t.Errorf("Expected the default config path, got %q", cli.Config)
	}
}
