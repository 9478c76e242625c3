// Package session implements the secure session store: AES-encrypted,
// disk-backed key/value storage for per-platform authorization sessions,
// translating original_source ServiceSessionDB.hpp to Go while fixing the
// lookup-key bug documented there (see Decision D1 in DESIGN.md).
package session

import (
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"optionx/internal/domain"
	"optionx/internal/metrics"
	"optionx/pkg/crypto"
	"optionx/pkg/utils"
)

// json is the faster jsoniter codec, drop-in compatible with
// encoding/json's Marshal/Unmarshal signatures - used for the on-disk
// session file the same way the rest of the domain stack standardizes
// on jsoniter for payload (de)serialization.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	ErrKeyNotSet    = errors.New("session: encryption key not set")
	ErrNotFound     = errors.New("session: record not found")
	ErrEmptyPlatform = errors.New("session: platform must not be empty")
	ErrEmptyEmail    = errors.New("session: email must not be empty")
)

// Store is the contract used by the rest of the engine - a single
// platform/email session value, encrypted at rest.
type Store interface {
	SetKey(key []byte) error
	Get(platform, email string) (string, error)
	Set(platform, email, value string) error
	Remove(platform, email string) error
	Clear() error
}

// fileFormat is the on-disk representation of the session entries: each
// deterministic lookup key (hex HMAC-SHA256 under the key from
// pkg/crypto.DeriveLookupKey, see hmac.go) mapped to the IV-prepended
// encrypted value, base64-encoded for safe JSON storage.
type fileFormat struct {
	Records map[string]string `json:"records"` // lookupKeyHex -> base64(iv||ciphertext)
}

// FileStore is a durable, file-backed Store. Every mutating call
// rewrites the whole file (sessions are small in number and low in
// write frequency - this mirrors the straightforward persistence the
// original single-process ServiceSessionDB relied on).
type FileStore struct {
	mu   sync.Mutex
	path string
	mode crypto.AESMode
	salt string
	key  *maskedKey
	log  *zap.Logger

	records map[string][]byte // lookupKeyHex -> iv||ciphertext
}

// NewFileStore creates a FileStore backed by path. mode selects CBC or
// CFB for value encryption. salt scopes the HMAC-derived lookup key
// (typically a fixed per-deployment string).
func NewFileStore(path string, mode crypto.AESMode, salt string, log *zap.Logger) *FileStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileStore{
		path:    path,
		mode:    mode,
		salt:    salt,
		log:     log,
		records: make(map[string][]byte),
	}
}

// SetKey installs the value-encryption key and loads any existing file at
// path. The key is masked in memory immediately (see keys.go).
func (s *FileStore) SetKey(key []byte) error {
	if err := crypto.ValidateKey(s.mode, key); err != nil {
		return err
	}
	mk, err := newMaskedKey(key)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.key = mk
	s.mu.Unlock()
	return s.load()
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return err
	}
	records := make(map[string][]byte, len(ff.Records))
	for lookupHex, b64 := range ff.Records {
		raw, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return err
		}
		records[lookupHex] = raw
	}
	s.mu.Lock()
	s.records = records
	s.mu.Unlock()
	return nil
}

func (s *FileStore) persistLocked() error {
	if s.path == "" {
		return nil
	}
	ff := fileFormat{Records: make(map[string]string, len(s.records))}
	for lookupHex, raw := range s.records {
		ff.Records[lookupHex] = base64.StdEncoding.EncodeToString(raw)
	}
	data, err := json.Marshal(ff)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o600)
}

// Get decrypts and returns the session value for platform/email.
func (s *FileStore) Get(platform, email string) (string, error) {
	if err := validateIdentity(platform, email); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return "", ErrKeyNotSet
	}

	lookupHex := s.lookupKeyHex(platform, email)
	raw, ok := s.records[lookupHex]
	if !ok {
		metrics.SessionStoreOperations.WithLabelValues("get", "not_found").Inc()
		return "", ErrNotFound
	}

	key := s.key.reveal()
	plaintext, err := crypto.DecryptAtRest(s.mode, key, raw)
	zeroBytes(key)
	if err != nil {
		metrics.SessionStoreOperations.WithLabelValues("get", "error").Inc()
		return "", err
	}
	metrics.SessionStoreOperations.WithLabelValues("get", "ok").Inc()
	return string(plaintext), nil
}

// Set encrypts and stores value under platform/email, persisting
// immediately.
func (s *FileStore) Set(platform, email, value string) error {
	if err := validateIdentity(platform, email); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key == nil {
		return ErrKeyNotSet
	}

	key := s.key.reveal()
	raw, err := crypto.EncryptAtRest(s.mode, key, []byte(value))
	zeroBytes(key)
	if err != nil {
		metrics.SessionStoreOperations.WithLabelValues("set", "error").Inc()
		return err
	}

	lookupHex := s.lookupKeyHex(platform, email)
	s.records[lookupHex] = raw
	if err := s.persistLocked(); err != nil {
		metrics.SessionStoreOperations.WithLabelValues("set", "error").Inc()
		return err
	}
	metrics.SessionStoreOperations.WithLabelValues("set", "ok").Inc()
	s.log.Debug("session value stored", zap.String("platform", platform))
	return nil
}

// Remove deletes the session for platform/email, if present.
func (s *FileStore) Remove(platform, email string) error {
	if err := validateIdentity(platform, email); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lookupHex := s.lookupKeyHex(platform, email)
	delete(s.records, lookupHex)
	if err := s.persistLocked(); err != nil {
		metrics.SessionStoreOperations.WithLabelValues("remove", "error").Inc()
		return err
	}
	metrics.SessionStoreOperations.WithLabelValues("remove", "ok").Inc()
	return nil
}

// Clear removes all sessions from the store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string][]byte)
	if err := s.persistLocked(); err != nil {
		metrics.SessionStoreOperations.WithLabelValues("clear", "error").Inc()
		return err
	}
	metrics.SessionStoreOperations.WithLabelValues("clear", "ok").Inc()
	return nil
}

// lookupKeyHex derives the deterministic lookup key for platform:email.
// Must be called with s.mu held (reads s.key).
func (s *FileStore) lookupKeyHex(platform, email string) string {
	key := s.key.reveal()
	lookupKey := crypto.DeriveLookupKey(key, s.salt)
	zeroBytes(key)
	rec := domain.SessionRecord{Platform: platform, Email: email}
	mac := hmacHex(lookupKey, rec.Key())
	zeroBytes(lookupKey)
	return mac
}

func validateIdentity(platform, email string) error {
	if platform == "" {
		return ErrEmptyPlatform
	}
	if email == "" {
		return ErrEmptyEmail
	}
	if err := utils.ValidateEmail(email); err != nil {
		return err
	}
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
