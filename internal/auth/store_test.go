package auth

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStore_SaveLoad(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "auth")
	s := NewStore(dir)

	if s.Exists() {
		t.Error("Exists() = true before Save")
	}

	creds := Credentials{
		Domain: "https://xethub.test",
		User:   "tester",
		Email:  "tester@example.com",
		Token:  "secret-token",
	}
	if err := s.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !s.Exists() {
		t.Error("Exists() = false after Save")
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != creds {
		t.Errorf("Load() = %+v, want %+v", got, creds)
	}
}

func TestStore_LoadMissing(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "auth"))

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil for missing credentials", err)
	}
	if got != (Credentials{}) {
		t.Errorf("Load() = %+v, want zero credentials", got)
	}
}

func TestStore_TokenNotStoredInPlaintext(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "auth")
	s := NewStore(dir)

	creds := Credentials{Domain: "https://xethub.test", User: "tester", Token: "secret-token"}
	if err := s.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "credentials.age"))
	if err != nil {
		t.Fatalf("reading credentials file: %v", err)
	}
	if strings.Contains(string(data), "secret-token") {
		t.Error("token appears in plaintext in the credentials file")
	}
}

func TestStore_OverwriteReplacesCredentials(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "auth")
	s := NewStore(dir)

	if err := s.Save(Credentials{User: "first", Token: "t1"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(Credentials{User: "second", Token: "t2"}); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.User != "second" || got.Token != "t2" {
		t.Errorf("Load() = %+v, want the replacement credentials", got)
	}
}
