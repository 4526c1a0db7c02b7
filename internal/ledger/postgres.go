// internal/ledger/postgres.go
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	StreamCash    = "cash"
	StreamEntries = "entries"
)

// Schema creates the table backing PostgresLog. Lines are stored exactly
// as the file log writes them so replay parses both the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS ledger_lines (
	id BIGSERIAL PRIMARY KEY,
	stream TEXT NOT NULL,
	line TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS ledger_lines_stream_id_idx ON ledger_lines (stream, id);
`

const (
	insertLineQuery = `INSERT INTO ledger_lines (stream, line) VALUES ($1, $2)`
	selectLineQuery = `SELECT id, line FROM ledger_lines WHERE stream = $1 ORDER BY id ASC`
)

// undefined_table
const pqUndefinedTable = "42P01"

var ErrSchemaMissing = errors.New("ledger schema missing")

type lineRow struct {
	ID   int64  `db:"id"`
	Line string `db:"line"`
}

// PostgresLog is a Log stored in the ledger_lines table, one stream per
// log. Every round-trip goes through a circuit breaker.
type PostgresLog struct {
	db      *sqlx.DB
	stream  string
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

// NewBreaker returns the breaker settings used for ledger round-trips:
// five consecutive failures open it for thirty seconds.
func NewBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

func NewPostgresLog(db *sqlx.DB, stream string, breaker *gobreaker.CircuitBreaker) *PostgresLog {
	return &PostgresLog{
		db:      db,
		stream:  stream,
		breaker: breaker,
		tracer:  otel.Tracer("gymnexus/ledger"),
	}
}

// EnsureSchema applies Schema.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply ledger schema: %w", err)
	}
	return nil
}

func (p *PostgresLog) Append(ctx context.Context, line string) error {
	ctx, span := p.tracer.Start(ctx, "ledger.pg.append",
		trace.WithAttributes(attribute.String("ledger.stream", p.stream)),
	)
	defer span.End()

	_, err := p.breaker.Execute(func() (interface{}, error) {
		return p.db.ExecContext(ctx, insertLineQuery, p.stream, line)
	})
	if err != nil {
		span.RecordError(err)
		return p.wrap("append", err)
	}
	return nil
}

func (p *PostgresLog) Replay(ctx context.Context, fn func(lineNo int, line string) error) error {
	ctx, span := p.tracer.Start(ctx, "ledger.pg.replay",
		trace.WithAttributes(attribute.String("ledger.stream", p.stream)),
	)
	defer span.End()

	var rows []lineRow
	_, err := p.breaker.Execute(func() (interface{}, error) {
		rows = rows[:0]
		return nil, p.db.SelectContext(ctx, &rows, selectLineQuery, p.stream)
	})
	if err != nil {
		span.RecordError(err)
		return p.wrap("replay", err)
	}
	span.SetAttributes(attribute.Int("ledger.lines", len(rows)))

	for i, r := range rows {
		if err := fn(i+1, r.Line); err != nil {
			return err
		}
	}
	return nil
}

func (p *PostgresLog) wrap(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqUndefinedTable {
		return fmt.Errorf("%s %s stream: %w: %v", op, p.stream, ErrSchemaMissing, err)
	}
	return fmt.Errorf("%s %s stream: %w", op, p.stream, err)
}
