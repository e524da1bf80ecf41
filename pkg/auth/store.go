package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zalando/go-keyring"
	"golang.org/x/oauth2"
)

const (
	// TokenFile holds the OAuth token (access + refresh) for the file store.
	TokenFile = "token.json"

	keyringService = "calstats"
	keyringUser    = "google-oauth-token"
)

var (
	// ErrNoToken is returned by a TokenStore that holds no token.
	ErrNoToken = errors.New("no stored token")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// TokenStore persists the OAuth token between runs.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(tok *oauth2.Token) error
	// Delete removes the token. Deleting a missing token is not an error.
	Delete() error
	String() string
}

// NewTokenStore returns the store named by kind ("file" or "keyring").
func NewTokenStore(kind, dir string) (TokenStore, error) {
	switch kind {
	case "", "file":
		return NewFileTokenStore(dir), nil
	case "keyring":
		return NewKeyringTokenStore(), nil
	default:
		return nil, fmt.Errorf("unknown token store %q", kind)
	}
}

// FileTokenStore keeps the token as JSON on disk, readable by the owner only.
type FileTokenStore struct {
	Path string
}

func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{Path: filepath.Join(dir, TokenFile)}
}

func (s *FileTokenStore) String() string { return s.Path }

func (s *FileTokenStore) Load() (*oauth2.Token, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", s.Path, err)
	}
	return tok, nil
}

func (s *FileTokenStore) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(s.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", s.Path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}

func (s *FileTokenStore) Delete() error {
	if err := os.Remove(s.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete token file '%s': %w", s.Path, err)
	}
	return nil
}

// KeyringTokenStore keeps the token in the OS keyring.
type KeyringTokenStore struct {
	Service string
	User    string
}

func NewKeyringTokenStore() *KeyringTokenStore {
	return &KeyringTokenStore{Service: keyringService, User: keyringUser}
}

func (s *KeyringTokenStore) String() string { return "keyring:" + s.Service }

func (s *KeyringTokenStore) Load() (*oauth2.Token, error) {
	raw, err := keyring.Get(s.Service, s.User)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal([]byte(raw), tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from keyring: %w", err)
	}
	return tok, nil
}

func (s *KeyringTokenStore) Save(tok *oauth2.Token) error {
	b, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := keyring.Set(s.Service, s.User, string(b)); err != nil {
		return fmt.Errorf("failed to store token in keyring: %w", err)
	}
	return nil
}

func (s *KeyringTokenStore) Delete() error {
	err := keyring.Delete(s.Service, s.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}
