package store

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
)

// FileStore keeps credentials in a single encrypted file. The whole key/value
// map is sealed with XChaCha20-Poly1305 under a key derived from the
// configured secret; a fresh nonce is drawn on every save.
type FileStore struct {
	path string
	aead cipher.AEAD

	mu sync.Mutex
}

func NewFileStore(path, secret string) (*FileStore, error) {
	if secret == "" {
		return nil, errors.New("store: credentials secret must not be empty")
	}

	key := sha256.Sum256([]byte(secret))
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, fmt.Errorf("store: chacha20poly1305.NewX: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: os.MkdirAll: %w", err)
	}

	return &FileStore{path: path, aead: aead}, nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	delete(values, key)
	return s.save(values)
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: os.ReadFile: %w", err)
	}

	if len(raw) < s.aead.NonceSize() {
		return nil, errors.New("store: credentials file truncated")
	}

	nonce, sealed := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("store: aead.Open: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("store: json.Unmarshal: %w", err)
	}
	return values, nil
}

func (s *FileStore) save(values map[string]string) error {
	plain, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("store: json.Marshal: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("store: rand.Read: %w", err)
	}

	sealed := s.aead.Seal(nonce, nonce, plain, nil)
	if err := os.WriteFile(s.path, sealed, 0o600); err != nil {
		return fmt.Errorf("store: os.WriteFile: %w", err)
	}
	return nil
}
