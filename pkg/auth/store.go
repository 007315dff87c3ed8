package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

// Store persists the long-lived refresh token between runs. Load returns an
// empty string when nothing is stored.
type Store interface {
	Load() (string, error)
	Save(refreshToken string) error
	Clear() error
}

// EnvFileStore keeps the refresh token in a dotenv file next to the other
// settings. Other keys in the file are preserved.
type EnvFileStore struct {
	Path string
	Key  string
}

func NewEnvFileStore(path, key string) *EnvFileStore {
	return &EnvFileStore{Path: path, Key: key}
}

func (s *EnvFileStore) Load() (string, error) {
	vals, err := s.read()
	if err != nil {
		return "", err
	}
	return vals[s.Key], nil
}

func (s *EnvFileStore) Save(refreshToken string) error {
	vals, err := s.read()
	if err != nil {
		return err
	}
	vals[s.Key] = refreshToken
	return s.write(vals)
}

func (s *EnvFileStore) Clear() error {
	vals, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := vals[s.Key]; !ok {
		return nil
	}
	delete(vals, s.Key)
	return s.write(vals)
}

func (s *EnvFileStore) read() (map[string]string, error) {
	vals, err := godotenv.Read(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return vals, nil
}

// write replaces the file. It is created owner-only since it holds a
// month-long credential, and an existing file is tightened before writing.
func (s *EnvFileStore) write(vals map[string]string) error {
	content, err := godotenv.Marshal(vals)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.Path, err)
	}

	f, err := os.OpenFile(s.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.Path, err)
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		return fmt.Errorf("chmod %s: %w", s.Path, err)
	}
	if _, err := f.WriteString(content + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write %s: %w", s.Path, err)
	}
	return nil
}

const (
	keyringService = "mdhold"
	keyringUser    = "refresh_token"
)

// KeyringStore keeps the refresh token in the OS keyring.
type KeyringStore struct {
	Service string
	User    string
}

func NewKeyringStore() *KeyringStore {
	return &KeyringStore{Service: keyringService, User: keyringUser}
}

func (s *KeyringStore) Load() (string, error) {
	tok, err := keyring.Get(s.Service, s.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring get: %w", err)
	}
	return tok, nil
}

func (s *KeyringStore) Save(refreshToken string) error {
	if err := keyring.Set(s.Service, s.User, refreshToken); err != nil {
		return fmt.Errorf("keyring set: %w", err)
	}
	return nil
}

func (s *KeyringStore) Clear() error {
	err := keyring.Delete(s.Service, s.User)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete: %w", err)
	}
	return nil
}
