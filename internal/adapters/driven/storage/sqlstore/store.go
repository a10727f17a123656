package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/flowsync/internal/adapters/driven/storage/sqlstore/migrations"
	"github.com/custodia-labs/flowsync/internal/core/ports/driven"
	"github.com/custodia-labs/flowsync/internal/logger"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DefaultSQLitePath is used when no DSN is configured.
const DefaultSQLitePath = "flowsync.db"

// timeLayout keeps a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// gooseMu guards goose's package-level dialect and filesystem.
var gooseMu sync.Mutex

func init() {
	// modernc registers as "sqlite", which sqlx does not know by default.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Store is a unified SQL storage that provides access to all store
// interfaces through wrapper types. Queries are written with ? placeholders
// and rebound for the active driver.
type Store struct {
	db     *sqlx.DB
	driver string
	now    func() time.Time
}

var _ driven.Pinger = (*Store)(nil)

// NormaliseDriver maps driver aliases to a supported driver name.
// An empty driver is inferred from the DSN.
func NormaliseDriver(driver, dsn string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "":
		if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
			return DriverPostgres, nil
		}
		return DriverSQLite, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "postgres", "postgresql", "pq":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	driver, err := NormaliseDriver(driver, dsn)
	if err != nil {
		return nil, err
	}

	if driver == DriverSQLite {
		dsn, err = sqliteDSN(dsn)
		if err != nil {
			return nil, err
		}
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db, driver: driver, now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewStore opens a SQLite store at dataDir/flowsync.db.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return Open(context.Background(), DriverSQLite, filepath.Join(dataDir, DefaultSQLitePath))
}

// sqliteDSN turns a file path into a DSN with WAL mode, a busy timeout
// and foreign keys enabled on every connection.
func sqliteDSN(dsn string) (string, error) {
	dsn = strings.TrimPrefix(strings.TrimSpace(dsn), "sqlite://")
	if dsn == "" {
		dsn = DefaultSQLitePath
	}
	if strings.Contains(dsn, "?") {
		return dsn, nil
	}
	if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return "", fmt.Errorf("creating data directory: %w", err)
		}
	}
	return dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
}

// Migrate applies every pending migration for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db.DB, s.driver); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Version returns the applied migration version.
func (s *Store) Version() (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return 0, fmt.Errorf("setting migration dialect: %w", err)
	}
	return goose.GetDBVersion(s.db.DB)
}

func (s *Store) gooseDialect() string {
	if s.driver == DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// Driver returns the normalised driver name.
func (s *Store) Driver() string {
	return s.driver
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CredentialsStore returns a CredentialsStore backed by this store.
func (s *Store) CredentialsStore() driven.CredentialsStore {
	return &credentialsStore{store: s}
}

// WorkflowStore returns a WorkflowStore backed by this store.
func (s *Store) WorkflowStore() driven.WorkflowStore {
	return &workflowStore{store: s}
}

// ExecutionLogStore returns an ExecutionLogStore backed by this store.
func (s *Store) ExecutionLogStore() driven.ExecutionLogStore {
	return &execLogStore{store: s}
}

// SchedulerStore returns a SchedulerStore backed by this store.
func (s *Store) SchedulerStore() driven.SchedulerStore {
	return &schedulerStore{store: s}
}

// rebind converts ? placeholders to the driver's bind style.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

// gooseLogger routes migration output to the structured logger.
type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...any) {
	logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (gooseLogger) Fatalf(format string, v ...any) {
	logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// ==================== Helper Functions ====================

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// formatNullableTime formats a time, or returns nil for zero time.
func formatNullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

// parseTime parses a stored timestamp. Returns zero time if the string
// is empty or invalid.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func parseNullableTime(s sql.NullString) time.Time {
	if !s.Valid {
		return time.Time{}
	}
	return parseTime(s.String)
}

// nullString returns nil for empty strings, otherwise the string.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
