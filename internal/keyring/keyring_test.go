package keyring

import (
	"testing"

	gokeyring "github.com/zalando/go-keyring"
)

func TestSaveAndLoad(t *testing.T) {
	gokeyring.MockInit()

	store := NewTokenStore("http://localhost:8000")
	if err := store.Save("token-1"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if got != "token-1" {
		t.Errorf("Load() = %q, want %q", got, "token-1")
	}
}

func TestSaveEmpty(t *testing.T) {
	gokeyring.MockInit()

	if err := NewTokenStore("http://localhost:8000").Save(""); err == nil {
		t.Error("Save(\"\") should return an error")
	}
}

func TestLoadNotFound(t *testing.T) {
	gokeyring.MockInit()

	_, err := NewTokenStore("http://nothing-stored").Load()
	if err != ErrNotFound {
		t.Errorf("Load() error = %v, want %v", err, ErrNotFound)
	}
}

func TestServersAreSeparate(t *testing.T) {
	gokeyring.MockInit()

	a := NewTokenStore("https://a.example.com")
	b := NewTokenStore("https://b.example.com")
	if err := a.Save("token-a"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	if _, err := b.Load(); err != ErrNotFound {
		t.Errorf("Load() on other server error = %v, want %v", err, ErrNotFound)
	}
}

func TestClear(t *testing.T) {
	gokeyring.MockInit()

	store := NewTokenStore("http://localhost:8000")
	if err := store.Save("token-1"); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}
	if _, err := store.Load(); err != ErrNotFound {
		t.Errorf("Load() after Clear() error = %v, want %v", err, ErrNotFound)
	}

	// Clearing twice is fine
	if err := store.Clear(); err != nil {
		t.Errorf("second Clear() failed: %v", err)
	}
}

func TestIsAvailable(t *testing.T) {
	gokeyring.MockInit()

	if !IsAvailable() {
		t.Error("IsAvailable() = false with mock keyring")
	}
}
