package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
)

// Credentials are the stored login details for one service domain.
type Credentials struct {
	Domain string `json:"domain"`
	User   string `json:"user"`
	Email  string `json:"email"`
	Token  string `json:"token"`
}

// Store persists login credentials under the xet base directory. The
// credentials are encrypted at rest with an X25519 identity generated on
// first use and kept next to them with owner-only permissions.
type Store struct {
	dir string
}

// NewStore creates a credential store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) identityPath() string    { return filepath.Join(s.dir, "identity.key") }
func (s *Store) credentialsPath() string { return filepath.Join(s.dir, "credentials.age") }

// Exists reports whether credentials have been stored.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.credentialsPath())
	return err == nil
}

// Save encrypts and writes the credentials, generating the identity if it
// does not exist yet.
func (s *Store) Save(creds Credentials) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating credential directory: %w", err)
	}

	identity, err := s.loadOrCreateIdentity()
	if err != nil {
		return err
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, identity.Recipient())
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("encrypting credentials: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalizing encrypted credentials: %w", err)
	}

	if err := os.WriteFile(s.credentialsPath(), buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}

// Load decrypts and returns the stored credentials. A store with no saved
// credentials returns zero Credentials and no error.
func (s *Store) Load() (Credentials, error) {
	encrypted, err := os.ReadFile(s.credentialsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("reading credentials: %w", err)
	}

	identity, err := s.loadIdentity()
	if err != nil {
		return Credentials{}, err
	}

	r, err := age.Decrypt(bytes.NewReader(encrypted), identity)
	if err != nil {
		return Credentials{}, fmt.Errorf("decrypting credentials: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Credentials{}, fmt.Errorf("reading decrypted credentials: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decoding credentials: %w", err)
	}
	return creds, nil
}

func (s *Store) loadIdentity() (*age.X25519Identity, error) {
	data, err := os.ReadFile(s.identityPath())
	if err != nil {
		return nil, fmt.Errorf("reading identity: %w", err)
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return identity, nil
}

func (s *Store) loadOrCreateIdentity() (*age.X25519Identity, error) {
	if _, err := os.Stat(s.identityPath()); err == nil {
		return s.loadIdentity()
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("generating identity: %w", err)
	}
	if err := os.WriteFile(s.identityPath(), []byte(identity.String()+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("writing identity: %w", err)
	}
	return identity, nil
}
