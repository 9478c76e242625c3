package session_test

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"optionx/internal/session"
	"optionx/pkg/crypto"
)

func newMockSQLStore(t *testing.T) (*session.SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := session.NewSQLStore(db, crypto.ModeCBC256, "test-salt", nil)
	if err := store.SetKey(testKey(t, crypto.ModeCBC256)); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	return store, mock
}

// ciphertextCapture is a sqlmock.Argument that always matches, recording
// whatever []byte value it was compared against - used to pull the real
// ciphertext EncryptAtRest produced out of a mocked Exec call so a later
// mocked Query can hand that exact row back to Get.
type ciphertextCapture struct {
	into *[]byte
}

func (c ciphertextCapture) Match(v driver.Value) bool {
	if b, ok := v.([]byte); ok {
		*c.into = append([]byte(nil), b...)
	}
	return true
}

func TestSQLStoreSetThenGetRoundTrip(t *testing.T) {
	store, mock := newMockSQLStore(t)

	var captured []byte
	mock.ExpectExec(`INSERT INTO session_records`).
		WithArgs(sqlmock.AnyArg(), ciphertextCapture{&captured}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Set("demo", "trader@example.com", "sql-secret"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if len(captured) == 0 {
		t.Fatal("Set did not produce a ciphertext for the mock to capture")
	}

	mock.ExpectQuery(`SELECT ciphertext FROM session_records WHERE lookup_key = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"ciphertext"}).AddRow(captured))

	got, err := store.Get("demo", "trader@example.com")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "sql-secret" {
		t.Fatalf("Get() = %q, want %q", got, "sql-secret")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreGetNotFound(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectQuery(`SELECT ciphertext FROM session_records WHERE lookup_key = \$1`).
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get("demo", "nobody@example.com")
	if !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreSetUpsert(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectExec(`INSERT INTO session_records`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Set("demo", "trader@example.com", "value"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreRemove(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectExec(`DELETE FROM session_records WHERE lookup_key = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Remove("demo", "trader@example.com"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreClear(t *testing.T) {
	store, mock := newMockSQLStore(t)

	mock.ExpectExec(`DELETE FROM session_records`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSQLStoreSetKeyRejectsWrongSize(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := session.NewSQLStore(db, crypto.ModeCBC256, "salt", nil)
	if err := store.SetKey(make([]byte, 24)); !errors.Is(err, crypto.ErrInvalidKeyLength) {
		t.Fatalf("SetKey() error = %v, want ErrInvalidKeyLength for a 24-byte key under CBC_256", err)
	}
}

func TestSQLStoreGetBeforeSetKeyFails(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	store := session.NewSQLStore(db, crypto.ModeCBC256, "salt", nil)
	if _, err := store.Get("demo", "trader@example.com"); !errors.Is(err, session.ErrKeyNotSet) {
		t.Fatalf("Get() error = %v, want ErrKeyNotSet", err)
	}
}
