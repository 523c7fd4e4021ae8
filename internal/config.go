package internal

import (
	"fmt"
	"log/slog"
	"slices"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gobwas/glob"
	"golang.org/x/time/rate"

	"github.com/starford/nestmaid/internal/nested"
	"github.com/starford/nestmaid/internal/storage"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app" toml:"app"`
	Vault    VaultConfig       `yaml:"vault" toml:"vault"`
	SQLite   SQLiteConfig      `yaml:"sqlite" toml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth" toml:"auth"`
	Resolver ResolverConfig    `yaml:"resolver" toml:"resolver"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Vault.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level" toml:"log_level"`
	HTTP     HTTPConfig `yaml:"http" toml:"http"`
	// ResolveRate is the sustained number of resolution requests per second
	// the API accepts. Zero disables throttling.
	ResolveRate  float64 `yaml:"resolve_rate" toml:"resolve_rate"`
	ResolveBurst int     `yaml:"resolve_burst" toml:"resolve_burst"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.ResolveRate, validation.Min(0.0)),
		validation.Field(&c.ResolveBurst, validation.Min(0)),
	); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	return c.HTTP.Validate()
}

// ResolveLimiter returns the API resolution limiter, or nil when throttling
// is disabled.
func (c *ApplicationConfig) ResolveLimiter() *rate.Limiter {
	if c.ResolveRate <= 0 {
		return nil
	}
	burst := c.ResolveBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.ResolveRate), burst)
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port" toml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the vault directory and which files in it are documents.
type VaultConfig struct {
	Path       string   `yaml:"path" toml:"path"`
	Extensions []string `yaml:"extensions" toml:"extensions"`
	Ignore     []string `yaml:"ignore" toml:"ignore"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extensions, validation.Each(validation.Required)),
		validation.Field(&c.Ignore, validation.Each(validation.By(validGlob))),
	)
}

// StorageOptions converts the vault settings to storage options.
func (c *VaultConfig) StorageOptions() []storage.FSOption {
	var opts []storage.FSOption
	if len(c.Extensions) > 0 {
		opts = append(opts, storage.WithExtensions(c.Extensions...))
	}
	if len(c.Ignore) > 0 {
		opts = append(opts, storage.WithIgnore(c.Ignore...))
	}
	return opts
}

func validGlob(value any) error {
	p, _ := value.(string)
	if _, err := glob.Compile(p, '/'); err != nil {
		return fmt.Errorf("invalid glob %q", p)
	}
	return nil
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ResolverConfig holds the nesting limits of the resolution engine.
type ResolverConfig struct {
	MaxDepth          int  `yaml:"max_depth" toml:"max_depth"`
	WarnDepth         int  `yaml:"warn_depth" toml:"warn_depth"`
	StrictDefinitions bool `yaml:"strict_definitions" toml:"strict_definitions"`
}

// Validate validates the resolver configuration.
func (c *ResolverConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.MaxDepth, validation.Required, validation.Min(1), validation.Max(nested.DefaultMaxDepth)),
		validation.Field(&c.WarnDepth, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	if c.WarnDepth >= c.MaxDepth {
		return fmt.Errorf("resolver: warn_depth (%d) must be below max_depth (%d)", c.WarnDepth, c.MaxDepth)
	}
	return nil
}

// Options converts the resolver settings to engine options.
func (c *ResolverConfig) Options() []nested.Option {
	return []nested.Option{
		nested.WithMaxDepth(c.MaxDepth),
		nested.WithWarnDepth(c.WarnDepth),
		nested.WithStrictDefinitions(c.StrictDefinitions),
	}
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode" toml:"mode"`
	Token string `yaml:"token" toml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled".
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
			ResolveRate:  20,
			ResolveBurst: 40,
		},
		Vault: VaultConfig{
			Path:       "./vault",
			Extensions: slices.Clone(storage.DefaultExtensions),
		},
		SQLite: SQLiteConfig{
			Path: "./nestmaid.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Resolver: ResolverConfig{
			MaxDepth:  nested.DefaultMaxDepth,
			WarnDepth: nested.DefaultWarnDepth,
		},
	}
}
