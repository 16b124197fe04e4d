package config

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func baseEnv() map[string]string {
	return map[string]string{
		"GUILD_ID":    "123",
		"BOT_TOKEN":   "abc",
		"DB_HOST":     "localhost",
		"DB_PORT":     "5432",
		"DB_USER":     "u",
		"DB_PASSWORD": "p",
		"DB_NAME":     "d",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(NewValidatorWithLookup(zerolog.Nop(), mapLookup(baseEnv())))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.GuildID != 123 || cfg.DBPort != 5432 || cfg.DBName != "d" {
		t.Errorf("required values not mapped: %+v", cfg)
	}
	if cfg.UseSSL {
		t.Error("USE_SSL should default to false")
	}
	if cfg.DBTimeout() != 30*time.Second {
		t.Errorf("DBTimeout = %v, want 30s", cfg.DBTimeout())
	}
	if cfg.DBPoolMin != 1 || cfg.DBPoolMax != 5 {
		t.Errorf("pool sizes = %d/%d, want 1/5", cfg.DBPoolMin, cfg.DBPoolMax)
	}
	if cfg.CommandPrefix != ">>" {
		t.Errorf("CommandPrefix = %q", cfg.CommandPrefix)
	}
	if cfg.ModuleSetupTimeout != 30*time.Second {
		t.Errorf("ModuleSetupTimeout = %v", cfg.ModuleSetupTimeout)
	}
}

func TestLoadOptionalOverrides(t *testing.T) {
	env := baseEnv()
	env["USE_SSL"] = "yes"
	env["DB_TIMEOUT"] = "10"
	env["DB_POOL_MAX"] = "8"
	env["MODULE_SETUP_TIMEOUT"] = "5s"

	cfg, err := Load(NewValidatorWithLookup(zerolog.Nop(), mapLookup(env)))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.UseSSL {
		t.Error(`USE_SSL="yes" should enable SSL`)
	}
	if cfg.DBTimeoutSeconds != 10 || cfg.DBPoolMax != 8 || cfg.ModuleSetupTimeout != 5*time.Second {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoadRejectsInconsistentPool(t *testing.T) {
	env := baseEnv()
	env["DB_POOL_MIN"] = "10"
	env["DB_POOL_MAX"] = "2"

	if _, err := Load(NewValidatorWithLookup(zerolog.Nop(), mapLookup(env))); err == nil {
		t.Fatal("expected min > max to be rejected")
	}
}
