package config

import (
	"testing"

	"github.com/zalando/go-keyring"
)

func TestKeyringManager_RedisPassword(t *testing.T) {
	keyring.MockInit()
	km := NewKeyringManager()

	if !km.IsAvailable() {
		t.Fatal("mock keyring should be available")
	}

	if err := km.SaveRedisPassword("s3cret"); err != nil {
		t.Fatalf("Failed to save password: %v", err)
	}

	got, err := km.GetRedisPassword()
	if err != nil {
		t.Fatalf("Failed to get password: %v", err)
	}
	if got != "s3cret" {
		t.Errorf("Expected password s3cret, got %s", got)
	}

	if err := km.DeleteRedisPassword(); err != nil {
		t.Fatalf("Failed to delete password: %v", err)
	}
	got, err = km.GetRedisPassword()
	if err != nil || got != "" {
		t.Errorf("Expected empty password after delete, got %q (err %v)", got, err)
	}
}

func TestKeyringManager_SaveEmpty(t *testing.T) {
	keyring.MockInit()
	if err := NewKeyringManager().SaveRedisPassword(""); err == nil {
		t.Error("Expected error for empty password")
	}
}
