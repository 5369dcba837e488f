package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
	sqlite3 "github.com/mattn/go-sqlite3"

	"ukweather/internal/modules/weather/types"
)

//go:embed sql/find-record.sql
var findRecordSQL string

//go:embed sql/insert-record.sql
var insertRecordSQL string

//go:embed sql/update-record.sql
var updateRecordSQL string

//go:embed sql/delete-record.sql
var deleteRecordSQL string

//go:embed sql/delete-all-records.sql
var deleteAllRecordsSQL string

//go:embed sql/query-records.sql
var queryRecordsSQL string

//go:embed sql/count-records.sql
var countRecordsSQL string

var (
	ErrNotFound       = errors.New("weather record not found")
	ErrDuplicateYear  = errors.New("weather record for this year already exists")
	ErrYearOutOfRange = fmt.Errorf("year must be between %d and %d", types.MinYear, types.MaxYear)
)

// Filter narrows Query and Count. Nil bounds are not applied; Limit <= 0
// means no limit.
type Filter struct {
	Year     *int
	YearFrom *int
	YearTo   *int
	Limit    int
	Offset   int
}

type WeatherRepository interface {
	Find(ctx context.Context, year int) (types.Record, error)
	Insert(ctx context.Context, rec types.Record) (types.Record, error)
	Update(ctx context.Context, rec types.Record) (types.Record, error)
	Delete(ctx context.Context, year int) error
	DeleteAll(ctx context.Context) (int64, error)
	Query(ctx context.Context, f Filter) ([]types.Record, error)
	Count(ctx context.Context, f Filter) (int, error)
	// WithTx runs fn against a repository bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(repo WeatherRepository) error) error
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type repositoryImpl struct {
	db    *sql.DB // nil inside a transaction
	q     querier
	clock clockwork.Clock
}

func NewRepository(db *sql.DB, clock clockwork.Clock) WeatherRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &repositoryImpl{db: db, q: db, clock: clock}
}

// ValidateYear reports whether year is storable.
func ValidateYear(year int) error {
	if year < types.MinYear || year > types.MaxYear {
		return fmt.Errorf("year %d: %w", year, ErrYearOutOfRange)
	}
	return nil
}

func (r *repositoryImpl) Find(ctx context.Context, year int) (types.Record, error) {
	rec, err := scanRecord(r.q.QueryRowContext(ctx, findRecordSQL, year))
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, fmt.Errorf("year %d: %w", year, ErrNotFound)
	}
	if err != nil {
		return types.Record{}, fmt.Errorf("find year %d: %w", year, err)
	}
	return rec, nil
}

func (r *repositoryImpl) Insert(ctx context.Context, rec types.Record) (types.Record, error) {
	if err := ValidateYear(rec.Year); err != nil {
		return types.Record{}, err
	}
	now := r.clock.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	args := make([]any, 0, len(types.Fields)+3)
	args = append(args, rec.Year)
	args = append(args, temperatureArgs(rec)...)
	args = append(args, formatTime(now), formatTime(now))

	if _, err := r.q.ExecContext(ctx, insertRecordSQL, args...); err != nil {
		if isConstraint(err, sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique) {
			return types.Record{}, fmt.Errorf("year %d: %w", rec.Year, ErrDuplicateYear)
		}
		if isConstraint(err, sqlite3.ErrConstraintCheck) {
			return types.Record{}, fmt.Errorf("year %d: %w", rec.Year, ErrYearOutOfRange)
		}
		return types.Record{}, fmt.Errorf("insert year %d: %w", rec.Year, err)
	}
	return rec, nil
}

// Update overwrites every temperature field of the stored record, including
// fields that are missing in rec.
func (r *repositoryImpl) Update(ctx context.Context, rec types.Record) (types.Record, error) {
	if err := ValidateYear(rec.Year); err != nil {
		return types.Record{}, err
	}
	now := r.clock.Now().UTC()

	args := make([]any, 0, len(types.Fields)+2)
	args = append(args, temperatureArgs(rec)...)
	args = append(args, formatTime(now), rec.Year)

	res, err := r.q.ExecContext(ctx, updateRecordSQL, args...)
	if err != nil {
		return types.Record{}, fmt.Errorf("update year %d: %w", rec.Year, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return types.Record{}, fmt.Errorf("update year %d: %w", rec.Year, err)
	}
	if n == 0 {
		return types.Record{}, fmt.Errorf("year %d: %w", rec.Year, ErrNotFound)
	}
	return r.Find(ctx, rec.Year)
}

func (r *repositoryImpl) Delete(ctx context.Context, year int) error {
	res, err := r.q.ExecContext(ctx, deleteRecordSQL, year)
	if err != nil {
		return fmt.Errorf("delete year %d: %w", year, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete year %d: %w", year, err)
	}
	if n == 0 {
		return fmt.Errorf("year %d: %w", year, ErrNotFound)
	}
	return nil
}

func (r *repositoryImpl) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.q.ExecContext(ctx, deleteAllRecordsSQL)
	if err != nil {
		return 0, fmt.Errorf("delete all records: %w", err)
	}
	return res.RowsAffected()
}

// Query returns matching records, newest year first.
func (r *repositoryImpl) Query(ctx context.Context, f Filter) ([]types.Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}
	rows, err := r.q.QueryContext(ctx, queryRecordsSQL,
		nullableInt(f.Year), nullableInt(f.YearFrom), nullableInt(f.YearTo), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close weather records rows", "error", err)
		}
	}()

	var out []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) Count(ctx context.Context, f Filter) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, countRecordsSQL,
		nullableInt(f.Year), nullableInt(f.YearFrom), nullableInt(f.YearTo)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (r *repositoryImpl) WithTx(ctx context.Context, fn func(repo WeatherRepository) error) error {
	if r.db == nil {
		return fn(r)
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(&repositoryImpl{q: tx, clock: r.clock}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback weather records tx", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (types.Record, error) {
	var (
		rec              types.Record
		created, updated string
	)
	dest := make([]any, 0, len(types.Fields)+3)
	dest = append(dest, &rec.Year)
	for _, f := range types.Fields {
		dest = append(dest, rec.Field(f))
	}
	dest = append(dest, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		return types.Record{}, err
	}

	var err error
	if rec.CreatedAt, err = parseTime(created); err != nil {
		return types.Record{}, err
	}
	if rec.UpdatedAt, err = parseTime(updated); err != nil {
		return types.Record{}, err
	}
	return rec, nil
}

func temperatureArgs(rec types.Record) []any {
	out := make([]any, 0, len(types.Fields))
	for _, f := range types.Fields {
		out = append(out, rec.Get(f))
	}
	return out
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, s)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", s, err, err2)
		}
	}
	return t, nil
}

func isConstraint(err error, codes ...sqlite3.ErrNoExtended) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	for _, c := range codes {
		if se.ExtendedCode == c {
			return true
		}
	}
	return false
}
