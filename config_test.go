package clinicauth

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults with secrets",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "missing access secret",
			mutate: func(c *Config) {
				c.JWT.AccessSecret = nil
			},
			wantValid: false,
		},
		{
			name: "missing refresh secret",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = nil
			},
			wantValid: false,
		},
		{
			name: "shared secret",
			mutate: func(c *Config) {
				c.JWT.RefreshSecret = append([]byte(nil), c.JWT.AccessSecret...)
			},
			wantValid: false,
		},
		{
			name: "access ttl not below refresh ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = c.JWT.RefreshTTL
			},
			wantValid: false,
		},
		{
			name: "zero access ttl",
			mutate: func(c *Config) {
				c.JWT.AccessTTL = 0
			},
			wantValid: false,
		},
		{
			name: "zero reset ttl",
			mutate: func(c *Config) {
				c.PasswordReset.TokenTTL = 0
			},
			wantValid: false,
		},
		{
			name: "custom reset ttl",
			mutate: func(c *Config) {
				c.PasswordReset.TokenTTL = 2 * time.Hour
			},
			wantValid: true,
		},
		{
			name: "empty refresh prefix",
			mutate: func(c *Config) {
				c.Store.RefreshPrefix = ""
			},
			wantValid: false,
		},
		{
			name: "colliding store prefixes",
			mutate: func(c *Config) {
				c.Store.ResetPrefix = c.Store.RefreshPrefix
			},
			wantValid: false,
		},
		{
			name: "invalid default role",
			mutate: func(c *Config) {
				c.Account.DefaultRole = Role("superuser")
			},
			wantValid: false,
		},
		{
			name: "empty allowed roles",
			mutate: func(c *Config) {
				c.Account.AllowedRoles = nil
			},
			wantValid: false,
		},
		{
			name: "invalid allowed role",
			mutate: func(c *Config) {
				c.Account.AllowedRoles = []Role{RoleDoctor, Role("superuser")}
			},
			wantValid: false,
		},
		{
			name: "default role not allowed",
			mutate: func(c *Config) {
				c.Account.DefaultRole = RoleAdmin
				c.Account.AllowedRoles = []Role{RoleDoctor}
			},
			wantValid: false,
		},
		{
			name: "password min length too small",
			mutate: func(c *Config) {
				c.Password.MinLength = 0
			},
			wantValid: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testBuilderConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config, got nil")
			}
		})
	}
}

func TestCloneConfigIsolatesSecrets(t *testing.T) {
	cfg := testBuilderConfig()
	clone := cloneConfig(cfg)

	clone.JWT.AccessSecret[0] ^= 0xFF
	if cfg.JWT.AccessSecret[0] == clone.JWT.AccessSecret[0] {
		t.Fatal("expected cloned secret to be an independent copy")
	}

	clone.Account.AllowedRoles[0] = Role("other")
	if cfg.Account.AllowedRoles[0] == Role("other") {
		t.Fatal("expected cloned allowed roles to be an independent copy")
	}
}
