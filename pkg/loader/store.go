package loader

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Dicklesworthstone/parts_viewer/pkg/model"
)

// Supported database/sql driver names.
const (
	DriverSQLite3  = "sqlite3"  // mattn/go-sqlite3, cgo
	DriverSQLite   = "sqlite"   // modernc.org/sqlite, pure Go
	DriverPostgres = "postgres" // lib/pq
)

// DefaultConnectTimeout bounds how long Open keeps retrying the first ping.
const DefaultConnectTimeout = 10 * time.Second

// Store reads parts from a relational database.
type Store struct {
	db     *sql.DB
	driver string
	logger *zap.Logger

	connectTimeout time.Duration
}

var _ Source = (*Store)(nil)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithConnectTimeout sets how long Open retries before giving up.
func WithConnectTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.connectTimeout = d
		}
	}
}

// WithLogger sets the store's logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB, driver string, opts ...StoreOption) *Store {
	s := &Store{
		db:             db,
		driver:         driver,
		logger:         zap.NewNop(),
		connectTimeout: DefaultConnectTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open connects to the database, retrying the initial ping with exponential
// backoff until the connect timeout elapses or ctx ends.
func Open(ctx context.Context, driver, dsn string, opts ...StoreOption) (*Store, error) {
	switch driver {
	case DriverSQLite3, DriverSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	s := NewStore(db, driver, opts...)
	if driver == DriverPostgres {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := s.ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return s, nil
}

func (s *Store) ping(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = s.connectTimeout

	attempt := 0
	op := func() error {
		attempt++
		err := s.db.PingContext(ctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if err != nil {
			s.logger.Debug("ping failed", zap.Int("attempt", attempt), zap.Error(err))
		}
		return err
	}
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// DBPath returns the file named by a sqlite DSN, or "" for in-memory DSNs.
func DBPath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == ":memory:" {
		return ""
	}
	return path
}

// ensureDir creates the parent directory of a file-backed sqlite DSN.
func ensureDir(dsn string) error {
	path := DBPath(dsn)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

const partsQuery = `
	SELECT p.id, p.part_no, p.description, pc.description, pc.asset,
	       un.unit, pu.unit_qty, m.model, p.stock_count, p.created_at
	FROM parts p
	JOIN part_classifications pc ON p.classification_id = pc.id
	JOIN part_units pu ON p.unit_id = pu.id
	JOIN part_unit_names un ON pu.unit_name_id = un.id
	LEFT JOIN model_parts mp ON mp.part_id = p.id
	LEFT JOIN models m ON mp.model_id = m.id
	ORDER BY p.part_no, m.model
`

// FetchParts implements Fetcher. A part linked to several models appears
// once per model; a part without a model appears once with a nil Model.
func (s *Store) FetchParts(ctx context.Context) ([]model.Part, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, partsQuery)
	if err != nil {
		return nil, fmt.Errorf("query parts: %w", err)
	}
	defer rows.Close()

	var parts []model.Part
	for rows.Next() {
		p, err := scanPart(rows)
		if err != nil {
			return nil, fmt.Errorf("scan part: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read parts: %w", err)
	}

	s.logger.Debug("fetched parts", zap.Int("count", len(parts)), zap.Duration("took", time.Since(start)))
	return parts, nil
}

// scannable is satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanPart(row scannable) (model.Part, error) {
	var p model.Part
	var (
		description sql.NullString
		asset       sql.NullBool
		unit        sql.NullString
		unitQty     sql.NullFloat64
		modelName   sql.NullString
	)

	err := row.Scan(
		&p.ID,
		&p.PartNo,
		&description,
		&p.Classification,
		&asset,
		&unit,
		&unitQty,
		&modelName,
		&p.StockCount,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	p.Description = description.String
	if asset.Valid {
		p.IsRotable = model.Ptr(asset.Bool)
	}
	if unit.Valid {
		p.UnitOfMeasure = model.Ptr(formatUnit(unit.String, unitQty))
	}
	if modelName.Valid {
		p.Model = model.Ptr(modelName.String)
	}
	return p, nil
}

// formatUnit renders a unit name with its pack quantity, e.g. "EA 1.00".
func formatUnit(name string, qty sql.NullFloat64) string {
	if !qty.Valid {
		return name
	}
	return fmt.Sprintf("%s %.2f", name, qty.Float64)
}
