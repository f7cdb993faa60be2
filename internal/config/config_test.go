package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Defaults() should validate cleanly, got: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.LogLevel = "loud"
	cfg.Acquire.PageSize = 0
	cfg.Filter.ModelGroup = ""
	cfg.Notify.TelegramToken = "token-without-chat"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"unknown mode", "unknown log_level", "page_size", "model_group", "telegram_token"} {
		if !strings.Contains(msg, want) {
			t.Errorf("validation error missing %q; got: %s", want, msg)
		}
	}
}

func TestValidateYearRange(t *testing.T) {
	cfg := Defaults()
	cfg.Filter.YearMin = 2026
	cfg.Filter.YearMax = 2020
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for inverted year range")
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	var d duration
	if err := d.UnmarshalText([]byte("5m")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if d.Duration != 5*time.Minute {
		t.Errorf("got %v, want 5m", d.Duration)
	}
	if err := d.UnmarshalText([]byte("nope")); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Notify.TelegramToken = "12345:abcdef"

	red := RedactedConfig(&cfg)
	if red.Database.Password != "***" {
		t.Errorf("database password not redacted: %q", red.Database.Password)
	}
	if red.Notify.TelegramToken != "***" {
		t.Errorf("telegram token not redacted: %q", red.Notify.TelegramToken)
	}
	if cfg.Database.Password != "hunter2" {
		t.Error("original config mutated")
	}
}
