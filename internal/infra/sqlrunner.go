package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLExecutor is what the credential store needs from the database.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
}

// Querier is the subset of *pgxpool.Pool the runner drives.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ErrUnmarkedQuery is returned for statements without a valid marker line.
var ErrUnmarkedQuery = errors.New("sql: marker missing or invalid")

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Statement is a query split into its marker and the SQL sent to Postgres.
type Statement struct {
	Marker string
	Body   string
}

// ParseStatement splits a "--sql <uuid>" tagged query.
func ParseStatement(query string) (Statement, error) {
	first, rest, _ := strings.Cut(strings.TrimSpace(query), "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return Statement{}, ErrUnmarkedQuery
	}
	body := strings.TrimSpace(rest)
	if body == "" {
		return Statement{}, ErrUnmarkedQuery
	}
	return Statement{Marker: strings.TrimPrefix(first, "--sql "), Body: body}, nil
}

// SQLRunner sends marker-tagged statements to the pool. Only the marker and
// the timing are logged; arguments carry API keys and never are.
type SQLRunner struct {
	db     Querier
	logger zerolog.Logger
	now    func() time.Time
}

func NewSQLRunner(db Querier, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{db: db, logger: logger, now: time.Now}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	stmt, err := ParseStatement(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := r.now()
	tag, err := r.db.Exec(ctx, stmt.Body, args...)
	r.done(stmt.Marker, "exec", start, err)
	return tag, err
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	stmt, err := ParseStatement(query)
	if err != nil {
		return errorRow{err: err}
	}
	return &timedRow{
		row:    r.db.QueryRow(ctx, stmt.Body, args...),
		runner: r,
		marker: stmt.Marker,
		start:  r.now(),
	}
}

func (r *SQLRunner) done(marker, kind string, start time.Time, err error) {
	elapsed := r.now().Sub(start)
	if err != nil && !IsNoRows(err) {
		r.logger.Error().Err(err).Str("sql", marker).Str("kind", kind).Dur("elapsed", elapsed).Msg("sql: failed")
		return
	}
	r.logger.Debug().Str("sql", marker).Str("kind", kind).Dur("elapsed", elapsed).Msg("sql: ok")
}

// timedRow defers logging until Scan, where pgx reports the query error.
type timedRow struct {
	row    pgx.Row
	runner *SQLRunner
	marker string
	start  time.Time
}

func (t *timedRow) Scan(dest ...any) error {
	err := t.row.Scan(dest...)
	t.runner.done(t.marker, "query_row", t.start, err)
	return err
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(...any) error {
	return e.err
}

var _ SQLExecutor = (*SQLRunner)(nil)
