package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"KasutamaizaBot/metrics"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

const driverName = "postgres"

var (
	ErrNotInitialized = errors.New("database pool has not been initialized")
	ErrPoolClosed     = errors.New("database pool is closed")
)

// PoolInitializationError wraps the driver error from the first connection attempt
type PoolInitializationError struct {
	Target string
	Err    error
}

func (e *PoolInitializationError) Error() string {
	return fmt.Sprintf("failed to initialize database pool for %s: %v", e.Target, e.Err)
}

func (e *PoolInitializationError) Unwrap() error { return e.Err }

// Opener opens a *sql.DB; sql.Open in production, a mock in tests
type Opener func(driverName, dsn string) (*sql.DB, error)

// Options size and pace the pool
type Options struct {
	MinSize    int
	MaxSize    int
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
}

// Pool owns the process-wide database pool. At most one *sql.DB is ever opened.
type Pool struct {
	mu          sync.Mutex
	db          *sql.DB
	initialized bool
	closed      bool

	open    Opener
	log     zerolog.Logger
	metrics *metrics.Metrics
}

func NewPool(logger zerolog.Logger, m *metrics.Metrics) *Pool {
	return &Pool{
		open:    sql.Open,
		log:     logger.With().Str("component", "db").Logger(),
		metrics: m,
	}
}

// WithOpener replaces the driver opener
func (p *Pool) WithOpener(open Opener) *Pool {
	p.open = open
	return p
}

// Initialize opens and verifies the pool. Later calls return the existing handle.
func (p *Pool) Initialize(ctx context.Context, creds Credentials, opts Options) (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		p.log.Debug().Msg("Database pool already initialized, reusing handle")
		return p.db, nil
	}
	if p.closed {
		return nil, ErrPoolClosed
	}

	target := creds.Redacted()
	dsn, err := creds.DSN(opts.Timeout)
	if err != nil {
		return nil, &PoolInitializationError{Target: target, Err: err}
	}

	retries := opts.Retries
	if retries < 1 {
		retries = 1
	}
	b := backoff.NewExponentialBackOff()
	if opts.RetryDelay > 0 {
		b.InitialInterval = opts.RetryDelay
	}

	attempt := 0
	db, err := backoff.Retry(ctx, func() (*sql.DB, error) {
		attempt++
		p.log.Info().
			Str("target", target).
			Bool("ssl", creds.SSL.Enabled).
			Int("attempt", attempt).
			Msg("Attempting database connection")
		return p.connect(ctx, dsn, opts)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(retries)),
		backoff.WithNotify(func(err error, next time.Duration) {
			p.log.Error().Err(err).Int("attempt", attempt).Dur("retry_in", next).Msg("Connection attempt failed")
		}),
	)
	if err != nil {
		p.log.Error().Err(err).Str("target", target).Msg("All connection attempts failed")
		return nil, &PoolInitializationError{Target: target, Err: err}
	}

	p.db = db
	p.initialized = true
	p.log.Info().Int("min", opts.MinSize).Int("max", opts.MaxSize).Msg("Database pool created")
	return db, nil
}

func (p *Pool) connect(ctx context.Context, dsn string, opts Options) (*sql.DB, error) {
	db, err := p.open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if opts.MaxSize > 0 {
		db.SetMaxOpenConns(opts.MaxSize)
	}
	if opts.MinSize > 0 {
		db.SetMaxIdleConns(opts.MinSize)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Initialized reports whether Initialize has succeeded
func (p *Pool) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// DB returns the underlying handle
func (p *Pool) DB() (*sql.DB, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case p.closed:
		return nil, ErrPoolClosed
	case !p.initialized:
		return nil, ErrNotInitialized
	}
	return p.db, nil
}

// Acquire checks out a connection for the duration of fn. The connection is returned
// to the pool on every exit path, including a panic inside fn.
func (p *Pool) Acquire(ctx context.Context, fn func(*sql.Conn) error) error {
	db, err := p.DB()
	if err != nil {
		return err
	}
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// Execute runs a statement that returns no rows
func (p *Pool) Execute(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := p.Acquire(ctx, func(conn *sql.Conn) error {
		var err error
		res, err = conn.ExecContext(ctx, query, args...)
		return err
	})
	p.metrics.Query("execute", err)
	if err != nil {
		p.log.Error().Err(err).Str("query", query).Interface("args", args).Msg("Failed to execute query")
		return nil, err
	}
	p.log.Debug().Str("query", query).Msg("Query executed")
	return res, nil
}

// Fetch runs a query and returns every row
func (p *Pool) Fetch(ctx context.Context, query string, args ...any) ([]Record, error) {
	var records []Record
	err := p.Acquire(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		records, err = scanRecords(rows)
		return err
	})
	p.metrics.Query("fetch", err)
	if err != nil {
		p.log.Error().Err(err).Str("query", query).Interface("args", args).Msg("Failed to execute fetch query")
		return nil, err
	}
	p.log.Debug().Str("query", query).Int("rows", len(records)).Msg("Query executed")
	return records, nil
}

// Transaction runs fn inside a transaction on one checked out connection. The
// transaction commits when fn returns nil and rolls back otherwise, including when
// fn panics.
func (p *Pool) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	err := p.Acquire(ctx, func(conn *sql.Conn) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			if rec := recover(); rec != nil {
				_ = tx.Rollback()
				panic(rec)
			}
		}()
		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				p.log.Error().Err(rbErr).Msg("Failed to roll back transaction")
			}
			return err
		}
		return tx.Commit()
	})
	p.metrics.Query("transaction", err)
	if err != nil {
		p.log.Error().Err(err).Msg("Transaction failed")
	}
	return err
}

// ExecContext lets the pool act as a schema executor
func (p *Pool) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.Execute(ctx, query, args...)
}

// FetchRow returns the first row, or sql.ErrNoRows
func (p *Pool) FetchRow(ctx context.Context, query string, args ...any) (Record, error) {
	records, err := p.Fetch(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, sql.ErrNoRows
	}
	return records[0], nil
}

// Close closes every connection. Calling it again is a no-op.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || !p.initialized {
		p.log.Info().Bool("initialized", p.initialized).Msg("Database pool already closed or never initialized")
		p.closed = true
		return nil
	}

	p.closed = true
	p.initialized = false
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("close database pool: %w", err)
	}
	p.log.Info().Msg("Database pool closed")
	return nil
}
