package password

import (
	"errors"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
		MinLength:   6,
	}
}

func newHasher(t *testing.T, cfg Config) *Hasher {
	t.Helper()
	h, err := New(cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newHasher(t, testConfig())

	digest, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", digest)
	}

	ok, err := h.Verify("secret123", digest)
	if err != nil || !ok {
		t.Fatalf("expected verification to succeed, ok=%v err=%v", ok, err)
	}

	ok, err = h.Verify("secret124", digest)
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail, ok=%v err=%v", ok, err)
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newHasher(t, testConfig())

	a, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := h.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("expected two hashes of the same password to differ")
	}
}

func TestHashRejectsShortPassword(t *testing.T) {
	h := newHasher(t, testConfig())
	if _, err := h.Hash("abc"); !errors.Is(err, ErrTooShort) {
		t.Fatalf("expected ErrTooShort, got %v", err)
	}
}

func TestVerifyMalformedDigest(t *testing.T) {
	h := newHasher(t, testConfig())

	cases := []string{
		"",
		"plain",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA",
		"$2b$04$short",
	}
	for _, digest := range cases {
		ok, err := h.Verify("secret123", digest)
		if ok {
			t.Fatalf("digest %q verified", digest)
		}
		if !errors.Is(err, ErrMalformedDigest) {
			t.Fatalf("digest %q: expected ErrMalformedDigest, got %v", digest, err)
		}
	}
}

func TestVerifyLegacyBcrypt(t *testing.T) {
	h := newHasher(t, testConfig())

	legacy, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	ok, err := h.Verify("secret123", string(legacy))
	if err != nil || !ok {
		t.Fatalf("expected bcrypt digest to verify, ok=%v err=%v", ok, err)
	}
	ok, err = h.Verify("wrong-one", string(legacy))
	if err != nil || ok {
		t.Fatalf("expected bcrypt mismatch, ok=%v err=%v", ok, err)
	}

	upgrade, err := h.NeedsUpgrade(string(legacy))
	if err != nil || !upgrade {
		t.Fatalf("expected bcrypt digest to need upgrade, upgrade=%v err=%v", upgrade, err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	weak := newHasher(t, testConfig())
	digest, err := weak.Hash("secret123")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strongCfg := testConfig()
	strongCfg.Time = 2
	strong := newHasher(t, strongCfg)

	upgrade, err := strong.NeedsUpgrade(digest)
	if err != nil || !upgrade {
		t.Fatalf("expected upgrade, got upgrade=%v err=%v", upgrade, err)
	}

	upgrade, err = weak.NeedsUpgrade(digest)
	if err != nil || upgrade {
		t.Fatalf("expected no upgrade, got upgrade=%v err=%v", upgrade, err)
	}
}

func TestNewRejectsWeakConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"memory", func(c *Config) { c.Memory = 1024 }},
		{"time", func(c *Config) { c.Time = 0 }},
		{"parallelism", func(c *Config) { c.Parallelism = 0 }},
		{"salt", func(c *Config) { c.SaltLength = 8 }},
		{"key", func(c *Config) { c.KeyLength = 8 }},
		{"min length", func(c *Config) { c.MinLength = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
