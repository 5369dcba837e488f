// Package importer loads Met Office text files into the weather store.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"ukweather/internal/modules/weather/parser"
	"ukweather/internal/modules/weather/repository"
	"ukweather/internal/modules/weather/types"
	"ukweather/internal/observability"
)

// Options controls how parsed records are merged with stored ones.
type Options struct {
	// Replace overwrites a stored year with the parsed values. Every field is
	// overwritten, so a value missing from the file clears the stored one.
	Replace bool
	// Clear deletes all stored records before importing.
	Clear bool
}

// Report summarises one import run.
type Report struct {
	RunID       string              `json:"run_id"`
	Source      string              `json:"source"`
	Parsed      int                 `json:"parsed"`
	Created     int                 `json:"created"`
	Updated     int                 `json:"updated"`
	Skipped     int                 `json:"skipped"`
	Rejected    int                 `json:"rejected"`
	Cleared     int64               `json:"cleared"`
	Diagnostics []parser.Diagnostic `json:"diagnostics,omitempty"`
}

type Importer struct {
	repo    repository.WeatherRepository
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New returns an Importer. metrics may be nil.
func New(repo repository.WeatherRepository, logger *slog.Logger, metrics *observability.Metrics) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{repo: repo, logger: logger, metrics: metrics}
}

// ImportFile parses the file at path and merges its records.
func (im *Importer) ImportFile(ctx context.Context, path string, opts Options) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Report{}, fmt.Errorf("file %q does not exist: %w", path, err)
		}
		return Report{}, fmt.Errorf("open %q: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			im.logger.Error("close import file", "path", path, "error", closeErr)
		}
	}()
	return im.Import(ctx, "file", f, opts)
}

// Import parses r and merges its records. source labels the run in logs
// and metrics.
func (im *Importer) Import(ctx context.Context, source string, r io.Reader, opts Options) (Report, error) {
	report := Report{RunID: uuid.NewString(), Source: source}
	logger := im.logger.With("run_id", report.RunID, "source", source)

	res, err := parser.Parse(r)
	if err != nil {
		im.observeRun(source, err)
		return report, fmt.Errorf("parse: %w", err)
	}
	report.Parsed = len(res.Records)
	report.Diagnostics = res.Diagnostics
	for _, d := range res.Diagnostics {
		logger.Warn("skipped malformed row", "line", d.Line, "text", d.Text, "error", d.Err)
	}
	if im.metrics != nil {
		im.metrics.ParseSkipped.Add(float64(len(res.Diagnostics)))
	}

	if len(res.Records) == 0 {
		logger.Warn("no valid weather records found")
		im.observeRun(source, nil)
		return report, nil
	}
	logger.Info("parsed weather records", "records", len(res.Records), "skipped_rows", len(res.Diagnostics))

	merged, err := im.merge(ctx, logger, res.Records, opts)
	if err != nil {
		im.observeRun(source, err)
		return report, err
	}
	merged.RunID, merged.Source = report.RunID, report.Source
	merged.Parsed, merged.Diagnostics = report.Parsed, report.Diagnostics

	logger.Info("import completed",
		"created", merged.Created,
		"updated", merged.Updated,
		"skipped", merged.Skipped,
		"rejected", merged.Rejected,
		"cleared", merged.Cleared,
	)
	im.observeRun(source, nil)
	im.observeRecords(merged)
	return merged, nil
}

// merge applies records in a single transaction. Duplicate years without
// Replace and years the store refuses are counted, not failed; any other
// error rolls the whole batch back.
func (im *Importer) merge(ctx context.Context, logger *slog.Logger, records []types.Record, opts Options) (Report, error) {
	var out Report
	err := im.repo.WithTx(ctx, func(tx repository.WeatherRepository) error {
		out = Report{}
		if opts.Clear {
			n, err := tx.DeleteAll(ctx)
			if err != nil {
				return err
			}
			out.Cleared = n
			logger.Info("cleared existing weather data", "deleted", n)
		}

		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}

			existing, err := tx.Find(ctx, rec.Year)
			switch {
			case err == nil:
				if !opts.Replace {
					out.Skipped++
					continue
				}
				existing.CopyTemperatures(rec)
				if _, err := tx.Update(ctx, existing); err != nil {
					return fmt.Errorf("update year %d: %w", rec.Year, err)
				}
				out.Updated++
			case errors.Is(err, repository.ErrNotFound):
				if _, err := tx.Insert(ctx, rec); err != nil {
					if errors.Is(err, repository.ErrYearOutOfRange) {
						logger.Warn("rejected record", "year", rec.Year, "error", err)
						out.Rejected++
						continue
					}
					return fmt.Errorf("insert year %d: %w", rec.Year, err)
				}
				out.Created++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("import rolled back: %w", err)
	}
	return out, nil
}

func (im *Importer) observeRun(source string, err error) {
	if im.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	im.metrics.ImportRuns.WithLabelValues(source, outcome).Inc()
}

func (im *Importer) observeRecords(r Report) {
	if im.metrics == nil {
		return
	}
	im.metrics.ImportRecords.WithLabelValues("created").Add(float64(r.Created))
	im.metrics.ImportRecords.WithLabelValues("updated").Add(float64(r.Updated))
	im.metrics.ImportRecords.WithLabelValues("skipped").Add(float64(r.Skipped))
	im.metrics.ImportRecords.WithLabelValues("rejected").Add(float64(r.Rejected))
}
