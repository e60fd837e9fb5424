package db

import "testing"

func TestParsePoolConfig(t *testing.T) {
	cfg, err := ParsePoolConfig("postgres://u:p@localhost:5432/sandhi", PoolOptions{MaxConns: 8, MinConns: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxConns != 8 || cfg.MinConns != 2 {
		t.Errorf("expected 8/2 conns, got %d/%d", cfg.MaxConns, cfg.MinConns)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != applicationName {
		t.Errorf("expected application_name %q, got %q", applicationName, got)
	}
}

func TestParsePoolConfig_KeepsURLApplicationName(t *testing.T) {
	cfg, err := ParsePoolConfig("postgres://u:p@localhost:5432/sandhi?application_name=ops", PoolOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.ConnConfig.RuntimeParams["application_name"]; got != "ops" {
		t.Errorf("expected application_name from url, got %q", got)
	}
}

func TestParsePoolConfig_MinAboveMax(t *testing.T) {
	cfg, err := ParsePoolConfig("postgres://u:p@localhost:5432/sandhi", PoolOptions{MaxConns: 2, MinConns: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MinConns > cfg.MaxConns {
		t.Errorf("min conns %d above max %d", cfg.MinConns, cfg.MaxConns)
	}
}

func TestParsePoolConfig_Invalid(t *testing.T) {
	if _, err := ParsePoolConfig("postgres://u:p@localhost:notaport/x", PoolOptions{}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
