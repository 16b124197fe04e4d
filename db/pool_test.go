package db

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
)

var testCreds = Credentials{
	Host:     "localhost",
	Port:     5432,
	User:     "bot",
	Password: "hunter2",
	Database: "kasutamaiza",
}

var testOpts = Options{MinSize: 1, MaxSize: 5, Timeout: time.Second, Retries: 1, RetryDelay: time.Millisecond}

// mockedPool returns a pool whose opener hands out db and counts calls
func mockedPool(t *testing.T, db *sql.DB) (*Pool, *int) {
	t.Helper()
	calls := 0
	p := NewPool(zerolog.New(io.Discard), nil).WithOpener(func(driver, dsn string) (*sql.DB, error) {
		calls++
		if driver != "postgres" {
			t.Errorf("driver = %q", driver)
		}
		return db, nil
	})
	return p, &calls
}

// newMock opens a sqlmock handle with exact query matching. Pings only need an
// expectation when ping is set.
func newMock(t *testing.T, ping bool) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(
		sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual),
		sqlmock.MonitorPingsOption(ping),
	)
	if err != nil {
		t.Fatal(err)
	}
	return db, mock
}

func TestInitializeIsIdempotent(t *testing.T) {
	db, _ := newMock(t, false)
	p, calls := mockedPool(t, db)

	first, err := p.Initialize(context.Background(), testCreds, testOpts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Initialize(context.Background(), testCreds, testOpts)
	if err != nil {
		t.Fatal(err)
	}

	if *calls != 1 {
		t.Errorf("opener called %d times, want 1", *calls)
	}
	if first != second {
		t.Error("second Initialize returned a different handle")
	}
	if !p.Initialized() {
		t.Error("pool not marked initialized")
	}
}

func TestInitializeFailureWrapsDriverError(t *testing.T) {
	db, mock := newMock(t, true)
	authErr := errors.New("password authentication failed for user \"bot\"")
	mock.ExpectPing().WillReturnError(authErr)

	p, _ := mockedPool(t, db)
	_, err := p.Initialize(context.Background(), testCreds, testOpts)

	var initErr *PoolInitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected PoolInitializationError, got %v", err)
	}
	if !errors.Is(err, authErr) {
		t.Errorf("driver error not preserved: %v", err)
	}
	if strings.Contains(err.Error(), testCreds.Password) {
		t.Error("error message leaks the password")
	}
	if p.Initialized() {
		t.Error("failed pool marked initialized")
	}
}

func TestInitializeRetriesUntilSuccess(t *testing.T) {
	failing, failMock := newMock(t, true)
	failMock.ExpectPing().WillReturnError(errors.New("connection refused"))
	healthy, _ := newMock(t, false)

	calls := 0
	p := NewPool(zerolog.New(io.Discard), nil).WithOpener(func(string, string) (*sql.DB, error) {
		calls++
		if calls == 1 {
			return failing, nil
		}
		return healthy, nil
	})

	opts := testOpts
	opts.Retries = 3
	got, err := p.Initialize(context.Background(), testCreds, opts)
	if err != nil {
		t.Fatal(err)
	}
	if got != healthy {
		t.Error("pool did not keep the successful handle")
	}
	if calls != 2 {
		t.Errorf("opener called %d times, want 2", calls)
	}
}

func TestInitializeMissingCertificate(t *testing.T) {
	db, _ := newMock(t, false)
	p, calls := mockedPool(t, db)

	creds := testCreds
	creds.SSL = SSLOptions{Enabled: true, CertPath: t.TempDir() + "/missing.pem"}

	_, err := p.Initialize(context.Background(), creds, testOpts)
	var initErr *PoolInitializationError
	if !errors.As(err, &initErr) {
		t.Fatalf("expected PoolInitializationError, got %v", err)
	}
	if *calls != 0 {
		t.Errorf("opener called %d times before the certificate check", *calls)
	}
}

func TestOperationsBeforeInitialize(t *testing.T) {
	p := NewPool(zerolog.New(io.Discard), nil)
	if _, err := p.Execute(context.Background(), "SELECT 1"); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestExecuteAndFetch(t *testing.T) {
	db, mock := newMock(t, false)
	p, _ := mockedPool(t, db)
	if _, err := p.Initialize(context.Background(), testCreds, testOpts); err != nil {
		t.Fatal(err)
	}

	mock.ExpectExec("INSERT INTO users (user_id) VALUES ($1)").
		WithArgs(int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT user_id, username FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username"}).
			AddRow(int64(42), "yugi").
			AddRow(int64(43), []byte("kaiba")))

	res, err := p.Execute(context.Background(), "INSERT INTO users (user_id) VALUES ($1)", int64(42))
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		t.Errorf("rows affected = %d", n)
	}

	records, err := p.Fetch(context.Background(), "SELECT user_id, username FROM users")
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if records[0].Int64("user_id") != 42 || records[1].String("username") != "kaiba" {
		t.Errorf("unexpected records %v", records)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestErrorsPropagateUnchanged(t *testing.T) {
	db, mock := newMock(t, false)
	p, _ := mockedPool(t, db)
	if _, err := p.Initialize(context.Background(), testCreds, testOpts); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("relation \"nope\" does not exist")
	mock.ExpectExec("DELETE FROM nope").WillReturnError(boom)
	mock.ExpectQuery("SELECT * FROM nope").WillReturnError(boom)

	if _, err := p.Execute(context.Background(), "DELETE FROM nope"); !errors.Is(err, boom) {
		t.Errorf("execute error = %v", err)
	}
	if _, err := p.Fetch(context.Background(), "SELECT * FROM nope"); !errors.Is(err, boom) {
		t.Errorf("fetch error = %v", err)
	}
}

func TestFetchRowNoRows(t *testing.T) {
	db, mock := newMock(t, false)
	p, _ := mockedPool(t, db)
	if _, err := p.Initialize(context.Background(), testCreds, testOpts); err != nil {
		t.Fatal(err)
	}
	mock.ExpectQuery("SELECT bio FROM user_profiles WHERE user_id = $1").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"bio"}))

	_, err := p.FetchRow(context.Background(), "SELECT bio FROM user_profiles WHERE user_id = $1", int64(7))
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestAcquireReleasesOnPanic(t *testing.T) {
	db, _ := newMock(t, false)
	p, _ := mockedPool(t, db)
	if _, err := p.Initialize(context.Background(), testCreds, testOpts); err != nil {
		t.Fatal(err)
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("panic was swallowed")
			}
		}()
		_ = p.Acquire(context.Background(), func(*sql.Conn) error {
			if db.Stats().InUse != 1 {
				t.Errorf("in use during fn = %d", db.Stats().InUse)
			}
			panic("handler bug")
		})
	}()

	if n := db.Stats().InUse; n != 0 {
		t.Errorf("connection not released, in use = %d", n)
	}
}

func TestTransaction(t *testing.T) {
	db, mock := newMock(t, false)
	p, _ := mockedPool(t, db)
	if _, err := p.Initialize(context.Background(), testCreds, testOpts); err != nil {
		t.Fatal(err)
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET username = $1").WithArgs("yugi").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET username = $1").WithArgs("kaiba").WillReturnError(errors.New("conflict"))
	mock.ExpectRollback()

	err := p.Transaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE users SET username = $1", "yugi")
		return err
	})
	if err != nil {
		t.Fatal(err)
	}

	err = p.Transaction(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.ExecContext(context.Background(), "UPDATE users SET username = $1", "kaiba")
		return err
	})
	if err == nil || err.Error() != "conflict" {
		t.Errorf("err = %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db, mock := newMock(t, false)
	mock.ExpectClose()
	p, _ := mockedPool(t, db)
	if _, err := p.Initialize(context.Background(), testCreds, testOpts); err != nil {
		t.Fatal(err)
	}

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if _, err := p.Execute(context.Background(), "SELECT 1"); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCloseNeverInitialized(t *testing.T) {
	p := NewPool(zerolog.New(io.Discard), nil)
	if err := p.Close(); err != nil {
		t.Errorf("close of an unopened pool: %v", err)
	}
}

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		ssl  SSLOptions
		want string
	}{
		{"disabled", SSLOptions{}, "sslmode=disable"},
		{"verified", SSLOptions{Enabled: true}, "sslmode=verify-full"},
		{"unverified", SSLOptions{Enabled: true, DisableVerification: true}, "sslmode=require"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCreds
			c.SSL = tt.ssl
			dsn, err := c.DSN(30 * time.Second)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(dsn, tt.want) {
				t.Errorf("dsn %q missing %q", dsn, tt.want)
			}
			if !strings.Contains(dsn, "connect_timeout=30") {
				t.Errorf("dsn %q missing timeout", dsn)
			}
		})
	}
}
