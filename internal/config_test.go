package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestResolverConfig_Bounds(t *testing.T) {
	cases := []struct {
		name    string
		cfg     ResolverConfig
		wantErr bool
	}{
		{"defaults", ResolverConfig{MaxDepth: 10, WarnDepth: 7}, false},
		{"shallow", ResolverConfig{MaxDepth: 3, WarnDepth: 2}, false},
		{"above hard cap", ResolverConfig{MaxDepth: 11, WarnDepth: 7}, true},
		{"warn equals max", ResolverConfig{MaxDepth: 5, WarnDepth: 5}, true},
		{"warn above max", ResolverConfig{MaxDepth: 5, WarnDepth: 8}, true},
		{"zero", ResolverConfig{}, true},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate()
		if (err != nil) != tc.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestResolverConfig_Options(t *testing.T) {
	cfg := ResolverConfig{MaxDepth: 2, WarnDepth: 1}
	if got := len(cfg.Options()); got != 3 {
		t.Fatalf("options = %d, want 3", got)
	}
}

func TestVaultConfig_Ignore(t *testing.T) {
	cfg := VaultConfig{Path: "./v", Ignore: []string{"drafts/**", "*.tmp.mmd"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid globs rejected: %v", err)
	}
	if got := len(cfg.StorageOptions()); got != 1 {
		t.Errorf("storage options = %d, want 1", got)
	}

	cfg.Ignore = []string{"[unclosed"}
	if err := cfg.Validate(); err == nil {
		t.Error("invalid glob should fail validation")
	}
}

func TestVaultConfig_EmptyExtension(t *testing.T) {
	cfg := VaultConfig{Path: "./v", Extensions: []string{".mmd", ""}}
	if err := cfg.Validate(); err == nil {
		t.Error("empty extension should fail validation")
	}
}

func TestApplicationConfig_ResolveLimiter(t *testing.T) {
	cfg := ApplicationConfig{HTTP: HTTPConfig{Port: 1}}
	if cfg.ResolveLimiter() != nil {
		t.Error("zero rate should disable the limiter")
	}

	cfg.ResolveRate = 5
	l := cfg.ResolveLimiter()
	if l == nil {
		t.Fatal("limiter should be set")
	}
	if l.Burst() != 1 {
		t.Errorf("burst = %d, want 1", l.Burst())
	}

	cfg.ResolveRate = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative rate should fail validation")
	}
}
