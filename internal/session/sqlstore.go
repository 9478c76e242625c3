package session

import (
	"database/sql"
	"errors"
	"sync"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"optionx/internal/domain"
	"optionx/internal/metrics"
	"optionx/pkg/crypto"
)

// SQLStore is a postgres-backed Store, grounded on the plain
// $1,$2-placeholder SQL style of teacher's
// internal/repository/order_repository.go. Useful when sessions must
// survive process restarts across a fleet rather than a single host's
// disk (see SPEC_FULL.md §B domain stack - this is the lib/pq binding).
type SQLStore struct {
	db   *sql.DB
	mode crypto.AESMode
	salt string

	mu  sync.Mutex
	key *maskedKey
	log *zap.Logger
}

// NewSQLStore wraps an already-open *sql.DB. The caller is responsible
// for creating the `session_records` table:
//
//	CREATE TABLE IF NOT EXISTS session_records (
//	    lookup_key TEXT PRIMARY KEY,
//	    ciphertext BYTEA NOT NULL
//	);
func NewSQLStore(db *sql.DB, mode crypto.AESMode, salt string, log *zap.Logger) *SQLStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SQLStore{db: db, mode: mode, salt: salt, log: log}
}

func (s *SQLStore) SetKey(key []byte) error {
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
	return nil
}

func (s *SQLStore) lookupKeyHex(platform, email string) (string, error) {
	s.mu.Lock()
	mk := s.key
	s.mu.Unlock()
	if mk == nil {
		return "", ErrKeyNotSet
	}
	key := mk.reveal()
	lookupKey := crypto.DeriveLookupKey(key, s.salt)
	zeroBytes(key)
	rec := domain.SessionRecord{Platform: platform, Email: email}
	mac := hmacHex(lookupKey, rec.Key())
	zeroBytes(lookupKey)
	return mac, nil
}

func (s *SQLStore) Get(platform, email string) (string, error) {
	if err := validateIdentity(platform, email); err != nil {
		return "", err
	}
	lookupHex, err := s.lookupKeyHex(platform, email)
	if err != nil {
		return "", err
	}

	var raw []byte
	err = s.db.QueryRow(`SELECT ciphertext FROM session_records WHERE lookup_key = $1`, lookupHex).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.SessionStoreOperations.WithLabelValues("get", "not_found").Inc()
		return "", ErrNotFound
	}
	if err != nil {
		metrics.SessionStoreOperations.WithLabelValues("get", "error").Inc()
		return "", err
	}

	s.mu.Lock()
	mk := s.key
	s.mu.Unlock()
	key := mk.reveal()
	plaintext, err := crypto.DecryptAtRest(s.mode, key, raw)
	zeroBytes(key)
	if err != nil {
		metrics.SessionStoreOperations.WithLabelValues("get", "error").Inc()
		return "", err
	}
	metrics.SessionStoreOperations.WithLabelValues("get", "ok").Inc()
	return string(plaintext), nil
}

func (s *SQLStore) Set(platform, email, value string) error {
	if err := validateIdentity(platform, email); err != nil {
		return err
	}
	lookupHex, err := s.lookupKeyHex(platform, email)
	if err != nil {
		return err
	}

	s.mu.Lock()
	mk := s.key
	s.mu.Unlock()
	key := mk.reveal()
	raw, err := crypto.EncryptAtRest(s.mode, key, []byte(value))
	zeroBytes(key)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO session_records (lookup_key, ciphertext)
		VALUES ($1, $2)
		ON CONFLICT (lookup_key) DO UPDATE SET ciphertext = EXCLUDED.ciphertext
	`, lookupHex, raw)
	if err != nil {
		metrics.SessionStoreOperations.WithLabelValues("set", "error").Inc()
		return err
	}
	metrics.SessionStoreOperations.WithLabelValues("set", "ok").Inc()
	s.log.Debug("session value stored (sql)", zap.String("platform", platform))
	return nil
}

func (s *SQLStore) Remove(platform, email string) error {
	if err := validateIdentity(platform, email); err != nil {
		return err
	}
	lookupHex, err := s.lookupKeyHex(platform, email)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`DELETE FROM session_records WHERE lookup_key = $1`, lookupHex)
	return err
}

func (s *SQLStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM session_records`)
	return err
}

var _ Store = (*FileStore)(nil)
var _ Store = (*SQLStore)(nil)
