package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"kpicli/internal/indicator"
)

// Config holds the Postgres connection and retry parameters. Only the
// parameters are held long-term: connections are created per operation and
// torn down when it completes.
type Config struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	Table          string
	AppName        string
	ConnectTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

// DefaultConfig returns the store defaults: 3 attempts, 1s linear backoff
// base, 10s connect timeout.
func DefaultConfig() Config {
	return Config{
		Port:           5432,
		Database:       "postgres",
		Table:          DefaultTable,
		AppName:        "DataCollector",
		ConnectTimeout: 10 * time.Second,
		MaxRetries:     3,
		RetryDelay:     time.Second,
	}
}

// Postgres is the production Store. Each Upsert acquires a fresh
// connection, runs one transaction, and releases the connection whether or
// not the transaction succeeded.
type Postgres struct {
	cfg    Config
	logger *slog.Logger

	// Injection points for tests.
	open  func(dsn string) (*sql.DB, error)
	sleep func(d time.Duration)
}

// NewPostgres creates a Postgres store. Zero retry settings fall back to
// the defaults.
func NewPostgres(cfg Config, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	return &Postgres{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "store")),
		open: func(dsn string) (*sql.DB, error) {
			return sql.Open("postgres", dsn)
		},
		sleep: time.Sleep,
	}
}

// dsn renders the lib/pq key/value connection string.
func (p *Postgres) dsn() string {
	kv := []string{
		fmt.Sprintf("host=%s", p.cfg.Host),
		fmt.Sprintf("port=%d", p.cfg.Port),
		fmt.Sprintf("user=%s", p.cfg.User),
		fmt.Sprintf("password=%s", p.cfg.Password),
		fmt.Sprintf("dbname=%s", p.cfg.Database),
		fmt.Sprintf("connect_timeout=%d", int(p.cfg.ConnectTimeout.Seconds())),
		fmt.Sprintf("application_name=%s", p.cfg.AppName),
		"sslmode=disable",
	}
	return strings.Join(kv, " ")
}

// Upsert writes the record with bounded retries. Transient connection
// failures are retried on a brand-new connection with linearly increasing
// backoff (delay = base x attempt); everything else propagates immediately.
// After the last attempt the final transient error is returned.
func (p *Postgres) Upsert(ctx context.Context, rec *indicator.Record) (UpsertResult, error) {
	if rec == nil || rec.Len() == 0 {
		return UpsertResult{}, ErrEmptyRecord
	}

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxRetries; attempt++ {
		res, err := p.upsertOnce(ctx, rec)
		if err == nil {
			return res, nil
		}
		if !IsTransient(err) {
			p.logger.Error("upsert failed with non-retriable error",
				slog.String("day_id", rec.DayID()),
				slog.String("error", err.Error()))
			return UpsertResult{}, err
		}

		lastErr = err
		p.logger.Warn("upsert attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_retries", p.cfg.MaxRetries),
			slog.String("day_id", rec.DayID()),
			slog.String("error", err.Error()))

		if attempt < p.cfg.MaxRetries {
			delay := p.cfg.RetryDelay * time.Duration(attempt)
			p.logger.Info("retrying after backoff", slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return UpsertResult{}, ctx.Err()
			default:
			}
			p.sleep(delay)
		}
	}

	return UpsertResult{}, fmt.Errorf("upsert failed after %d attempts: %w", p.cfg.MaxRetries, lastErr)
}

// upsertOnce runs one complete acquire-execute-commit-release cycle on a
// fresh connection.
func (p *Postgres) upsertOnce(ctx context.Context, rec *indicator.Record) (res UpsertResult, err error) {
	db, err := p.open(p.dsn())
	if err != nil {
		return UpsertResult{}, fmt.Errorf("open connection: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			p.logger.Warn("closing connection failed", slog.String("error", closeErr.Error()))
		}
	}()

	// sql.Open is lazy; force the dial so connection failures surface here
	// and are classified as transient.
	if err := db.PingContext(ctx); err != nil {
		return UpsertResult{}, fmt.Errorf("connect: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				p.logger.Warn("rollback failed", slog.String("error", rbErr.Error()))
			}
		}
	}()

	// Existing-row count distinguishes insert from update for reporting
	// only; the write itself is unconditional.
	var existing int
	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = ANY($1)", p.cfg.Table, indicator.DayIDColumn)
	if err = tx.QueryRowContext(ctx, countSQL, pq.Array([]string{rec.DayID()})).Scan(&existing); err != nil {
		return UpsertResult{}, fmt.Errorf("count existing rows: %w", err)
	}

	stmt := buildUpsertSQL(p.cfg.Table, rec.Fields())
	if _, err = tx.ExecContext(ctx, stmt, rec.Args()...); err != nil {
		return UpsertResult{}, fmt.Errorf("upsert row: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return UpsertResult{}, fmt.Errorf("commit: %w", err)
	}

	res = UpsertResult{Inserted: 1 - existing, Updated: existing}
	p.logger.Info("upsert committed",
		slog.String("day_id", rec.DayID()),
		slog.Int("fields", rec.Len()),
		slog.Int("inserted", res.Inserted),
		slog.Int("updated", res.Updated))
	return res, nil
}

// Get reads one day row. Like Upsert it is scoped to a fresh connection.
func (p *Postgres) Get(ctx context.Context, dayID string) (map[string]any, error) {
	db, err := p.open(p.dsn())
	if err != nil {
		return nil, fmt.Errorf("open connection: %w", err)
	}
	defer db.Close()

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", p.cfg.Table, indicator.DayIDColumn)
	rows, err := db.QueryContext(ctx, query, dayID)
	if err != nil {
		return nil, fmt.Errorf("query day row: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrDayNotFound
	}

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	return rowFromColumns(cols, vals), nil
}

// rowFromColumns maps one scanned row onto registry-cased field names, so
// Get responses match the casing Memory and the registry use. Unquoted
// identifiers fold to lowercase on the way back from the server.
func rowFromColumns(cols []string, vals []any) map[string]any {
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		name := col
		if canon, ok := indicator.CanonicalField(col); ok {
			name = canon
		}
		if b, ok := vals[i].([]byte); ok {
			row[name] = string(b)
			continue
		}
		row[name] = vals[i]
	}
	return row
}

// Ping opens a short-lived connection and verifies the server answers.
func (p *Postgres) Ping(ctx context.Context) error {
	db, err := p.open(p.dsn())
	if err != nil {
		return err
	}
	defer db.Close()
	return db.PingContext(ctx)
}

// buildUpsertSQL renders the single-statement upsert for one record. The
// DO UPDATE clause lists exactly the non-key columns present in the record,
// so columns written by earlier calls for the same day are never clobbered.
func buildUpsertSQL(table string, fields []string) string {
	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, indicator.DayIDColumn)
	cols = append(cols, fields...)

	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := make([]string, len(fields))
	for i, f := range fields {
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", f, f)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table,
		strings.Join(cols, ", "),
		strings.Join(placeholders, ", "),
		indicator.DayIDColumn,
		strings.Join(updates, ", "),
	)
}

// Schema returns the bootstrap DDL for the indicator table. Percentage
// fields are NUMERIC, counts INTEGER, passthrough fields TEXT; every
// indicator column is nullable so partial-day rows are representable.
func Schema(table string) string {
	if table == "" {
		table = DefaultTable
	}
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", table)
	fmt.Fprintf(&b, "\t%s TEXT NOT NULL UNIQUE", indicator.DayIDColumn)
	fields := indicator.Fields()
	// Stable order keeps the DDL diffable. Identifiers stay unquoted
	// everywhere so Postgres folds them consistently.
	sort.Strings(fields)
	for _, f := range fields {
		kind, _ := indicator.KindOf(f)
		var sqlType string
		switch kind {
		case indicator.KindPercentage:
			sqlType = "NUMERIC(8,4)"
		case indicator.KindInteger:
			sqlType = "BIGINT"
		default:
			sqlType = "TEXT"
		}
		fmt.Fprintf(&b, ",\n\t%s %s NULL", f, sqlType)
	}
	b.WriteString("\n)")
	return b.String()
}
