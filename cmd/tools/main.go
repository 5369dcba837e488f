package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"ukweather/internal/config"
	"ukweather/internal/db"
	"ukweather/internal/logging"
	"ukweather/internal/migrate"
	"ukweather/internal/modules/weather/importer"
	"ukweather/internal/modules/weather/parser"
	"ukweather/internal/modules/weather/repository"
	"ukweather/internal/modules/weather/types"
	"ukweather/internal/mqtt"
)

const appName = "ukweather-tools"

var version = "dev"

const usage = `usage: %s <command> [flags]
  migrate                          apply pending schema migrations
  import [-replace] [-clear] FILE  load a Met Office text file
  export [-o FILE]                 write stored records in Met Office text format
  publish FILE                     send a Met Office text file to the MQTT ingest topic
`

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprintf(stderr, usage, appName)
		return 2
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(stderr, "config error: %v\n", err)
		return 1
	}
	logger := logging.NewWithWriter(stderr, cfg, version, appName)

	switch args[0] {
	case "migrate", "import", "export":
	case "publish":
		return runPublish(ctx, args[1:], cfg, logger, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		fmt.Fprintf(stderr, usage, appName)
		return 2
	}

	conn, err := db.Open(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "db open: %v\n", err)
		return 1
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "err", closeErr)
		}
	}()

	if err := migrate.Run(conn); err != nil {
		fmt.Fprintf(stderr, "migrate: %v\n", err)
		return 1
	}
	repo := repository.NewRepository(conn, clockwork.NewRealClock())

	switch args[0] {
	case "migrate":
		fmt.Fprintln(stdout, "migrations applied")
		return 0
	case "import":
		return runImport(ctx, args[1:], repo, logger, stdout, stderr)
	default:
		return runExport(ctx, args[1:], repo, stdout, stderr)
	}
}

func runImport(ctx context.Context, args []string, repo repository.WeatherRepository, logger *slog.Logger, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("import", flag.ContinueOnError)
	fset.SetOutput(stderr)
	replace := fset.Bool("replace", false, "overwrite years that are already stored")
	clearFirst := fset.Bool("clear", false, "delete all stored records before importing")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() != 1 {
		fmt.Fprintln(stderr, "import: exactly one FILE is required")
		return 2
	}

	im := importer.New(repo, logger, nil)
	report, err := im.ImportFile(ctx, fset.Arg(0), importer.Options{Replace: *replace, Clear: *clearFirst})
	if err != nil {
		fmt.Fprintf(stderr, "import: %v\n", err)
		return 1
	}

	if report.Parsed == 0 {
		fmt.Fprintln(stdout, "No valid weather records found in the file.")
		return 0
	}
	if *clearFirst {
		fmt.Fprintf(stdout, "Cleared %d existing records.\n", report.Cleared)
	}
	fmt.Fprintf(stdout, "Import completed: %d created, %d updated, %d skipped", report.Created, report.Updated, report.Skipped)
	if report.Rejected > 0 {
		fmt.Fprintf(stdout, ", %d rejected", report.Rejected)
	}
	fmt.Fprintln(stdout)
	if n := len(report.Diagnostics); n > 0 {
		fmt.Fprintf(stdout, "%d malformed rows were skipped.\n", n)
	}
	return 0
}

func runExport(ctx context.Context, args []string, repo repository.WeatherRepository, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("export", flag.ContinueOnError)
	fset.SetOutput(stderr)
	out := fset.String("o", "", "output file (default stdout)")
	if err := fset.Parse(args); err != nil {
		return 2
	}

	records, err := repo.Query(ctx, repository.Filter{})
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}
	slices.Reverse(records)

	if *out == "" {
		err = parser.Write(stdout, records)
	} else {
		err = writeFile(*out, records)
	}
	if err != nil {
		fmt.Fprintf(stderr, "export: %v\n", err)
		return 1
	}
	return 0
}

func runPublish(ctx context.Context, args []string, cfg config.Config, logger *slog.Logger, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("publish", flag.ContinueOnError)
	fset.SetOutput(stderr)
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() != 1 {
		fmt.Fprintln(stderr, "publish: exactly one FILE is required")
		return 2
	}

	payload, err := os.ReadFile(fset.Arg(0))
	if err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 1
	}
	// reject documents the server would refuse before they reach the broker
	res, err := parser.Parse(bytes.NewReader(payload))
	if err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 1
	}

	publisher, err := mqtt.NewPublisher(cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 1
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err = publisher.Connect(connectCtx)
	cancel()
	if err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 1
	}
	defer publisher.Disconnect()

	if err := publisher.PublishDocument(ctx, payload); err != nil {
		fmt.Fprintf(stderr, "publish: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "Published %d records to %s.\n", len(res.Records), cfg.MQTTTopic)
	return 0
}

func writeFile(path string, records []types.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := parser.Write(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
