package credcore

import (
	"context"
	"strings"
	"testing"
)

func TestBuildRequiresStore(t *testing.T) {
	_, err := New().WithTokenKey(testKey).Build()
	if err == nil || !strings.Contains(err.Error(), "store") {
		t.Fatalf("Build without store err = %v", err)
	}
}

func TestBuildRequiresTokenKey(t *testing.T) {
	_, err := New().WithStore(newMockAccountStore()).Build()
	if err == nil || !strings.Contains(err.Error(), "token key") {
		t.Fatalf("Build without key err = %v", err)
	}

	_, err = New().
		WithStore(newMockAccountStore()).
		WithTokenKey([]byte("short")).
		Build()
	if err == nil || !strings.Contains(err.Error(), "token key") {
		t.Fatalf("Build with short key err = %v", err)
	}
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Token.ResetTTL = 0
	_, err := New().
		WithConfig(cfg).
		WithTokenKey(testKey).
		WithStore(newMockAccountStore()).
		Build()
	if err == nil {
		t.Fatal("Build accepted zero reset TTL")
	}

	cfg = testConfig()
	cfg.Password.Memory = 1024
	_, err = New().
		WithConfig(cfg).
		WithTokenKey(testKey).
		WithStore(newMockAccountStore()).
		Build()
	if err == nil {
		t.Fatal("Build accepted sub-minimum argon2 memory")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	b := New().WithTokenKey(testKey).WithStore(newMockAccountStore())
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Fatal("second Build on same builder succeeded")
	}
}

func TestBuildOwnsKeyCopy(t *testing.T) {
	key := make([]byte, len(testKey))
	copy(key, testKey)

	engine, err := New().WithTokenKey(key).WithStore(newMockAccountStore()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// Mutating the caller's slice must not affect the engine.
	for i := range key {
		key[i] = 0
	}
	if engine == nil {
		t.Fatal("nil engine")
	}
}

func TestEngineNotReadyZeroValue(t *testing.T) {
	var e Engine
	if _, err := e.CreateAccount(context.Background(), "a@example.com", "correct horse 1"); err != ErrEngineNotReady {
		t.Fatalf("zero-value engine err = %v, want ErrEngineNotReady", err)
	}
}

func TestDefaultConfigIsValidExceptKey(t *testing.T) {
	cfg := defaultConfig()
	cfg.Token.Key = testKey
	if err := validateEngineConfig(cfg); err != nil {
		t.Fatalf("defaultConfig invalid: %v", err)
	}
}
