package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nic-dns/internal/crypto"
)

// TokenStorage persists the single token of a Manager. LoadToken returns
// nil, nil when nothing is stored.
type TokenStorage interface {
	SaveToken(ctx context.Context, token *Token) error
	LoadToken(ctx context.Context) (*Token, error)
	DeleteToken(ctx context.Context) error
}

// SettingsStorage is the key/value contract DBTokenStorage builds on. The
// SQLite and PostgreSQL adapters implement it.
type SettingsStorage interface {
	// GetSetting returns "" when the key does not exist
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error
}

// Codec turns a token into the string a storage backend keeps.
type Codec interface {
	Encode(token *Token) (string, error)
	Decode(data string) (*Token, error)
}

// JSONCodec stores tokens as plain JSON
type JSONCodec struct{}

func (JSONCodec) Encode(token *Token) (string, error) {
	data, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token: %w", err)
	}
	return string(data), nil
}

func (JSONCodec) Decode(data string) (*Token, error) {
	var token Token
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, fmt.Errorf("failed to deserialize token: %w", err)
	}
	return &token, nil
}

// EncryptedCodec stores tokens as AES-GCM sealed JSON
type EncryptedCodec struct {
	Encryptor *crypto.Encryptor
}

func (c EncryptedCodec) Encode(token *Token) (string, error) {
	plain, err := JSONCodec{}.Encode(token)
	if err != nil {
		return "", err
	}
	return c.Encryptor.Encrypt([]byte(plain))
}

func (c EncryptedCodec) Decode(data string) (*Token, error) {
	plain, err := c.Encryptor.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt token: %w", err)
	}
	return JSONCodec{}.Decode(string(plain))
}

// StorageOption configures a storage backend
type StorageOption func(*storageOptions)

type storageOptions struct {
	codec Codec
}

// WithCodec sets how tokens are serialized. JSONCodec is the default.
func WithCodec(codec Codec) StorageOption {
	return func(o *storageOptions) {
		o.codec = codec
	}
}

func applyStorageOptions(opts []StorageOption) storageOptions {
	o := storageOptions{codec: JSONCodec{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MemoryTokenStorage keeps the token in process memory
type MemoryTokenStorage struct {
	mu    sync.RWMutex
	token *Token
}

// NewMemoryTokenStorage creates an empty in-memory store
func NewMemoryTokenStorage() *MemoryTokenStorage {
	return &MemoryTokenStorage{}
}

func (s *MemoryTokenStorage) SaveToken(ctx context.Context, token *Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	s.token = &t
	return nil
}

func (s *MemoryTokenStorage) LoadToken(ctx context.Context) (*Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.token == nil {
		return nil, nil
	}
	t := *s.token
	return &t, nil
}

func (s *MemoryTokenStorage) DeleteToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
	return nil
}

// FileTokenStorage keeps the token in a file readable only by its owner.
type FileTokenStorage struct {
	path  string
	codec Codec
	mu    sync.Mutex
}

// NewFileTokenStorage creates a store backed by path
func NewFileTokenStorage(path string, opts ...StorageOption) *FileTokenStorage {
	o := applyStorageOptions(opts)
	return &FileTokenStorage{path: path, codec: o.codec}
}

// SaveToken writes the token to a temporary file with mode 0600 and renames
// it over the target, so readers never see a partial token.
func (s *FileTokenStorage) SaveToken(ctx context.Context, token *Token) error {
	data, err := s.codec.Encode(token)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".nic-token-*")
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to restrict token file: %w", err)
	}
	if _, err := tmp.WriteString(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}

func (s *FileTokenStorage) LoadToken(ctx context.Context) (*Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return s.codec.Decode(string(data))
}

func (s *FileTokenStorage) DeleteToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete token file: %w", err)
	}
	return nil
}

// DBTokenStorage keeps the token in a settings table under one key.
type DBTokenStorage struct {
	store SettingsStorage
	key   string
	codec Codec
}

// NewDBTokenStorage creates a store that writes the token under key
func NewDBTokenStorage(store SettingsStorage, key string, opts ...StorageOption) *DBTokenStorage {
	o := applyStorageOptions(opts)
	return &DBTokenStorage{store: store, key: key, codec: o.codec}
}

func (s *DBTokenStorage) SaveToken(ctx context.Context, token *Token) error {
	data, err := s.codec.Encode(token)
	if err != nil {
		return err
	}
	return s.store.SetSetting(ctx, s.key, data)
}

func (s *DBTokenStorage) LoadToken(ctx context.Context) (*Token, error) {
	data, err := s.store.GetSetting(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, nil
	}
	return s.codec.Decode(data)
}

func (s *DBTokenStorage) DeleteToken(ctx context.Context) error {
	return s.store.DeleteSetting(ctx, s.key)
}
