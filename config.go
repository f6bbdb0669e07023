package clinicauth

import (
	"bytes"
	"errors"
	"time"
)

// Config defines a public type used by clinicauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	JWT           JWTConfig
	Password      PasswordConfig
	PasswordReset PasswordResetConfig
	Store         StoreConfig
	Account       AccountConfig
	Audit         AuditConfig
	Metrics       MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig defines a public type used by clinicauth APIs.
//
// JWTConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Access and refresh tokens are signed with HS256 under two distinct
// secrets so that one token class can never verify as the other.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by clinicauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

// PasswordResetConfig defines a public type used by clinicauth APIs.
//
// PasswordResetConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordResetConfig struct {
	TokenTTL time.Duration
}

/*
====================================
STORE CONFIG
====================================
*/

// StoreConfig defines a public type used by clinicauth APIs.
//
// StoreConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// Prefixes apply only to the built-in Redis stores.
type StoreConfig struct {
	RefreshPrefix string
	ResetPrefix   string
}

// AccountConfig defines a public type used by clinicauth APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	DefaultRole      Role
	AllowedRoles     []Role
	AutoLogin        bool
	RevokeOnNewLogin bool
}

// AuditConfig defines a public type used by clinicauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by clinicauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Password: PasswordConfig{
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: 30 * time.Minute,
		},
		Store: StoreConfig{
			RefreshPrefix: "crt",
			ResetPrefix:   "prt",
		},
		Account: AccountConfig{
			DefaultRole:      RoleDoctor,
			AllowedRoles:     []Role{RoleDoctor, RoleAdmin},
			AutoLogin:        true,
			RevokeOnNewLogin: false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

/*
====================================
PRESETS
====================================
*/

// DefaultConfig returns the configuration [New] starts from: 15 minute
// access tokens, 7 day refresh tokens, and balanced argon2 parameters.
// Callers adjust the returned value, set both JWT secrets, and pass it to
// [Builder.WithConfig].
func DefaultConfig() Config {
	return defaultConfig()
}

// HighSecurityConfig returns a preset with shorter token lifetimes, a
// heavier argon2 work factor, and single-session accounts. Suited to
// admin-facing deployments.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = 5 * time.Minute
	cfg.JWT.RefreshTTL = 24 * time.Hour
	cfg.Password.Memory = 128 * 1024
	cfg.Password.Time = 4
	cfg.Password.MinLength = 12
	cfg.PasswordReset.TokenTTL = 15 * time.Minute
	cfg.Account.RevokeOnNewLogin = true
	cfg.Audit.Enabled = true
	cfg.Audit.DropIfFull = false
	return cfg
}

// HighThroughputConfig returns a preset tuned for validation-heavy
// workloads: longer access tokens reduce refresh traffic and metrics stay
// on for capacity planning. Password hashing cost is unchanged.
func HighThroughputConfig() Config {
	cfg := defaultConfig()
	cfg.JWT.AccessTTL = time.Hour
	cfg.JWT.RefreshTTL = 30 * 24 * time.Hour
	cfg.Metrics.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.AccessSecret = cloneBytes(cfg.JWT.AccessSecret)
	out.JWT.RefreshSecret = cloneBytes(cfg.JWT.RefreshSecret)
	if len(cfg.Account.AllowedRoles) > 0 {
		out.Account.AllowedRoles = append([]Role(nil), cfg.Account.AllowedRoles...)
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if len(c.JWT.AccessSecret) == 0 {
		return errors.New("JWT AccessSecret is required")
	}
	if len(c.JWT.RefreshSecret) == 0 {
		return errors.New("JWT RefreshSecret is required")
	}
	if bytes.Equal(c.JWT.AccessSecret, c.JWT.RefreshSecret) {
		return errors.New("JWT AccessSecret and RefreshSecret must differ")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}

	// Password Reset
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}

	// Store
	if c.Store.RefreshPrefix == "" {
		return errors.New("Store RefreshPrefix is required")
	}
	if c.Store.ResetPrefix == "" {
		return errors.New("Store ResetPrefix is required")
	}
	if c.Store.RefreshPrefix == c.Store.ResetPrefix {
		return errors.New("Store prefixes must differ")
	}

	// Account
	if !c.Account.DefaultRole.Valid() {
		return errors.New("Account DefaultRole is invalid")
	}
	if len(c.Account.AllowedRoles) == 0 {
		return errors.New("Account AllowedRoles is required")
	}
	for _, r := range c.Account.AllowedRoles {
		if !r.Valid() {
			return errors.New("Account AllowedRoles contains an invalid role")
		}
	}
	if !c.roleAllowed(c.Account.DefaultRole) {
		return errors.New("Account DefaultRole must be in AllowedRoles")
	}

	// Audit
	if c.Audit.Enabled {
		if c.Audit.BufferSize <= 0 {
			return errors.New("Audit BufferSize must be > 0 when audit is enabled")
		}
	}

	return nil
}

func (c *Config) roleAllowed(r Role) bool {
	for _, allowed := range c.Account.AllowedRoles {
		if r == allowed {
			return true
		}
	}
	return false
}
