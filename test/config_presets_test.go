package test

import (
	"testing"
	"time"

	"clinicauth"
)

func presetWithSecrets(cfg clinicauth.Config) clinicauth.Config {
	cfg.JWT.AccessSecret = []byte("preset-access-secret-0123456789ab")
	cfg.JWT.RefreshSecret = []byte("preset-refresh-secret-0123456789a")
	return cfg
}

func TestDefaultConfigPresetValidates(t *testing.T) {
	cfg := clinicauth.DefaultConfig()

	if cfg.JWT.AccessTTL != 15*time.Minute {
		t.Fatalf("expected 15m access TTL, got %v", cfg.JWT.AccessTTL)
	}
	if cfg.Account.DefaultRole != clinicauth.RoleDoctor {
		t.Fatalf("expected doctor default role, got %v", cfg.Account.DefaultRole)
	}
	if !cfg.Account.AutoLogin {
		t.Fatal("expected auto-login enabled in preset baseline")
	}
	if len(cfg.JWT.AccessSecret) != 0 || len(cfg.JWT.RefreshSecret) != 0 {
		t.Fatal("expected preset to ship without secrets")
	}

	cfg = presetWithSecrets(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected preset to validate, got %v", err)
	}
}

func TestHighSecurityConfigPresetValidates(t *testing.T) {
	cfg := clinicauth.HighSecurityConfig()

	if cfg.JWT.AccessTTL >= clinicauth.DefaultConfig().JWT.AccessTTL {
		t.Fatal("expected shorter access TTL than the default preset")
	}
	if !cfg.Account.RevokeOnNewLogin {
		t.Fatal("expected single-session accounts")
	}
	if !cfg.Audit.Enabled || cfg.Audit.DropIfFull {
		t.Fatal("expected lossless audit delivery")
	}
	if cfg.Password.Memory <= clinicauth.DefaultConfig().Password.Memory {
		t.Fatal("expected a heavier argon2 work factor")
	}

	cfg = presetWithSecrets(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected high security preset to validate, got %v", err)
	}
}

func TestHighThroughputConfigPresetValidates(t *testing.T) {
	cfg := clinicauth.HighThroughputConfig()

	if cfg.JWT.AccessTTL <= clinicauth.DefaultConfig().JWT.AccessTTL {
		t.Fatal("expected longer access TTL than the default preset")
	}
	if !cfg.Metrics.Enabled {
		t.Fatal("expected metrics enabled for capacity planning")
	}
	if cfg.Password.Memory != clinicauth.DefaultConfig().Password.Memory {
		t.Fatal("expected hashing cost unchanged")
	}

	cfg = presetWithSecrets(cfg)
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected high throughput preset to validate, got %v", err)
	}
}
