package session_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"optionx/internal/session"
	"optionx/pkg/crypto"
)

func testKey(t *testing.T, mode crypto.AESMode) []byte {
	t.Helper()
	key := make([]byte, mode.KeySize())
	for i := range key {
		key[i] = byte(i + 1)
	}
	return key
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")

	store := session.NewFileStore(path, crypto.ModeCBC256, "test-salt", nil)
	if err := store.SetKey(testKey(t, crypto.ModeCBC256)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}

	if err := store.Set("demo", "trader@example.com", "top-secret-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := store.Get("demo", "trader@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "top-secret-token" {
		t.Fatalf("Get() = %q, want %q", got, "top-secret-token")
	}

	// A freshly opened store at the same path, given the same key, must
	// reproduce the same cleartext - persistence survives a reload.
	reopened := session.NewFileStore(path, crypto.ModeCBC256, "test-salt", nil)
	if err := reopened.SetKey(testKey(t, crypto.ModeCBC256)); err != nil {
		t.Fatalf("SetKey on reopened store: %v", err)
	}
	got, err = reopened.Get("demo", "trader@example.com")
	if err != nil {
		t.Fatalf("Get on reopened store: %v", err)
	}
	if got != "top-secret-token" {
		t.Fatalf("reopened Get() = %q, want %q", got, "top-secret-token")
	}
}

func TestFileStoreCFBRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")

	store := session.NewFileStore(path, crypto.ModeCFB192, "test-salt", nil)
	if err := store.SetKey(testKey(t, crypto.ModeCFB192)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := store.Set("demo", "trader@example.com", "cfb-value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := store.Get("demo", "trader@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "cfb-value" {
		t.Fatalf("Get() = %q, want %q", got, "cfb-value")
	}
}

// TestFileStoreCorruptedCiphertextFailsDecrypt writes a valid session
// record, then truncates its stored ciphertext on disk to fewer bytes
// than one IV before reloading - Get must surface the corruption instead
// of returning garbage plaintext.
func TestFileStoreCorruptedCiphertextFailsDecrypt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.json")

	store := session.NewFileStore(path, crypto.ModeCBC256, "test-salt", nil)
	key := testKey(t, crypto.ModeCBC256)
	if err := store.SetKey(key); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := store.Set("demo", "trader@example.com", "will-be-corrupted"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var ff struct {
		Records map[string]string `json:"records"`
	}
	if err := json.Unmarshal(raw, &ff); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(ff.Records) != 1 {
		t.Fatalf("expected exactly one record on disk, got %d", len(ff.Records))
	}
	for lookupHex := range ff.Records {
		ff.Records[lookupHex] = base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03})
	}
	corrupted, err := json.Marshal(ff)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := os.WriteFile(path, corrupted, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	reopened := session.NewFileStore(path, crypto.ModeCBC256, "test-salt", nil)
	if err := reopened.SetKey(key); err != nil {
		t.Fatalf("SetKey on reopened store: %v", err)
	}

	_, err = reopened.Get("demo", "trader@example.com")
	if !errors.Is(err, crypto.ErrShortCiphertext) {
		t.Fatalf("Get() error = %v, want ErrShortCiphertext", err)
	}
}

func TestFileStoreSetKeyRejectsWrongSize(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(filepath.Join(dir, "sessions.json"), crypto.ModeCBC256, "salt", nil)
	if err := store.SetKey(make([]byte, 16)); !errors.Is(err, crypto.ErrInvalidKeyLength) {
		t.Fatalf("SetKey() error = %v, want ErrInvalidKeyLength for a 16-byte key under CBC_256", err)
	}
}

func TestFileStoreGetMissingReturnsNotFound(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(filepath.Join(dir, "sessions.json"), crypto.ModeCBC256, "salt", nil)
	if err := store.SetKey(testKey(t, crypto.ModeCBC256)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if _, err := store.Get("demo", "nobody@example.com"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsInvalidEmail(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(filepath.Join(dir, "sessions.json"), crypto.ModeCBC256, "salt", nil)
	if err := store.SetKey(testKey(t, crypto.ModeCBC256)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := store.Set("demo", "not-an-email", "value"); err == nil {
		t.Fatal("Set() with a malformed email should fail validation")
	}
}

func TestFileStoreRemoveAndClear(t *testing.T) {
	dir := t.TempDir()
	store := session.NewFileStore(filepath.Join(dir, "sessions.json"), crypto.ModeCBC256, "salt", nil)
	if err := store.SetKey(testKey(t, crypto.ModeCBC256)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := store.Set("demo", "a@example.com", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Set("demo", "b@example.com", "v2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if err := store.Remove("demo", "a@example.com"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := store.Get("demo", "a@example.com"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Get() after Remove error = %v, want ErrNotFound", err)
	}
	if _, err := store.Get("demo", "b@example.com"); err != nil {
		t.Fatalf("Get() for the untouched record: %v", err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Get("demo", "b@example.com"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Get() after Clear error = %v, want ErrNotFound", err)
	}
}
