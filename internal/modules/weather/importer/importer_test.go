package importer

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukweather/internal/migrate"
	"ukweather/internal/modules/weather/parser"
	"ukweather/internal/modules/weather/repository"
	"ukweather/internal/modules/weather/types"
	"ukweather/internal/observability"
)

func newRepo(t *testing.T) repository.WeatherRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Run(db))
	return repository.NewRepository(db, clockwork.NewFakeClock())
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const firstFile = `year jan feb win ann
2020 5.1 6.2 5.6 10.0
2021 --- 7.0 N/A 11.0
`

func TestImport_CreatesRecords(t *testing.T) {
	repo := newRepo(t)
	metrics := observability.NewMetrics()
	im := New(repo, quietLogger(), metrics)
	ctx := context.Background()

	rep, err := im.Import(ctx, "test", strings.NewReader(firstFile), Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, 2, rep.Parsed)
	assert.Equal(t, 2, rep.Created)
	assert.Zero(t, rep.Updated)
	assert.Zero(t, rep.Skipped)

	got, err := repo.Find(ctx, 2021)
	require.NoError(t, err)
	assert.False(t, got.January.Valid)
	assert.Equal(t, types.Temp(7.0), got.February)
	assert.Equal(t, types.Temp(11.0), got.Annual)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ImportRecords.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportRuns.WithLabelValues("test", "ok")))
}

func TestImport_DuplicateWithoutReplaceIsSkipped(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "test", strings.NewReader(firstFile), Options{})
	require.NoError(t, err)

	rep, err := im.Import(ctx, "test", strings.NewReader("year ann\n2020 99.0\n2022 12.0\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Skipped)

	got, err := repo.Find(ctx, 2020)
	require.NoError(t, err)
	assert.Equal(t, types.Temp(10.0), got.Annual)
}

func TestImport_ReplaceOverwritesEveryFieldIncludingMissing(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "test", strings.NewReader(firstFile), Options{})
	require.NoError(t, err)

	rep, err := im.Import(ctx, "test", strings.NewReader("year ann\n2020 12.5\n"), Options{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Updated)

	got, err := repo.Find(ctx, 2020)
	require.NoError(t, err)
	assert.Equal(t, types.Temp(12.5), got.Annual)
	// january was 5.1 and is absent from the new file
	assert.False(t, got.January.Valid)
	assert.False(t, got.Winter.Valid)
}

func TestImport_ClearRemovesExistingFirst(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "test", strings.NewReader(firstFile), Options{})
	require.NoError(t, err)

	rep, err := im.Import(ctx, "test", strings.NewReader("year ann\n1990 9.0\n"), Options{Clear: true})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rep.Cleared)
	assert.Equal(t, 1, rep.Created)

	n, err := repo.Count(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestImport_NoRecordsLeavesStoreUntouched(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "test", strings.NewReader(firstFile), Options{})
	require.NoError(t, err)

	rep, err := im.Import(ctx, "test", strings.NewReader("year ann\nbad row here\n"), Options{Clear: true})
	require.NoError(t, err)
	assert.Zero(t, rep.Parsed)
	assert.Len(t, rep.Diagnostics, 1)
	assert.Zero(t, rep.Cleared)

	n, err := repo.Count(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestImport_FormatErrorIsFatal(t *testing.T) {
	metrics := observability.NewMetrics()
	im := New(newRepo(t), quietLogger(), metrics)

	_, err := im.Import(context.Background(), "test", strings.NewReader("jan feb\n1 2\n"), Options{})
	var fe *parser.FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ImportRuns.WithLabelValues("test", "error")))
}

func TestImport_OutOfRangeYearIsRejectedNotFatal(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)

	rep, err := im.Import(context.Background(), "test", strings.NewReader("year ann\n1700 8.0\n1900 9.0\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Parsed)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Rejected)
}

func TestImport_DuplicateYearsInOneFile(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)
	ctx := context.Background()

	rep, err := im.Import(ctx, "test", strings.NewReader("year ann\n2000 1.0\n2000 2.0\n"), Options{Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Created)
	assert.Equal(t, 1, rep.Updated)

	got, err := repo.Find(ctx, 2000)
	require.NoError(t, err)
	assert.Equal(t, types.Temp(2.0), got.Annual)
}

type failingRepo struct {
	repository.WeatherRepository
	failYear int
}

func (f failingRepo) Insert(ctx context.Context, rec types.Record) (types.Record, error) {
	if rec.Year == f.failYear {
		return types.Record{}, errors.New("disk full")
	}
	return f.WeatherRepository.Insert(ctx, rec)
}

func (f failingRepo) WithTx(ctx context.Context, fn func(repository.WeatherRepository) error) error {
	return f.WeatherRepository.WithTx(ctx, func(tx repository.WeatherRepository) error {
		return fn(failingRepo{WeatherRepository: tx, failYear: f.failYear})
	})
}

func TestImport_StorageFailureRollsBackWholeBatch(t *testing.T) {
	repo := newRepo(t)
	im := New(failingRepo{WeatherRepository: repo, failYear: 2002}, quietLogger(), nil)
	ctx := context.Background()

	_, err := im.Import(ctx, "test", strings.NewReader("year ann\n2001 1.0\n2002 2.0\n2003 3.0\n"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rolled back")

	n, err := repo.Count(ctx, repository.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImportFile(t *testing.T) {
	repo := newRepo(t)
	im := New(repo, quietLogger(), nil)

	path := filepath.Join(t.TempDir(), "cet.txt")
	require.NoError(t, os.WriteFile(path, []byte(firstFile), 0o600))

	rep, err := im.ImportFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "file", rep.Source)
	assert.Equal(t, 2, rep.Created)
}

func TestImportFile_Missing(t *testing.T) {
	im := New(newRepo(t), quietLogger(), nil)

	_, err := im.ImportFile(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "does not exist")
}
