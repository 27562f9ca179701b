package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dfarias/escrow-etl/internal/extract"
	"github.com/dfarias/escrow-etl/internal/load"
	"github.com/dfarias/escrow-etl/internal/logger"
	"github.com/dfarias/escrow-etl/internal/pipeline"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		runPipeline(log)
	case "inspect":
		runInspect(log)
	case "upload":
		runUpload(log)
	case "stats":
		runStats(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Escrow ETL CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  run       Execute a full ETL run over a balance and a withdrawal extract")
	fmt.Println("  inspect   Show the shape of a source file without transforming it")
	fmt.Println("  upload    Upload a source file to Cloud Storage")
	fmt.Println("  stats     Show row counts of the loaded tables")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// loaderFlags carries the destination options shared by run and stats.
type loaderFlags struct {
	dbPath    *string
	bqProject *string
	bqDataset *string
}

func addLoaderFlags(fs *flag.FlagSet) loaderFlags {
	return loaderFlags{
		dbPath:    fs.String("db", "escrow.db", "SQLite database path"),
		bqProject: fs.String("bq-project", os.Getenv("BQ_PROJECT"), "BigQuery project (or set BQ_PROJECT); overrides -db"),
		bqDataset: fs.String("bq-dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset (or set BQ_DATASET)"),
	}
}

func (f loaderFlags) open(ctx context.Context, log zerolog.Logger) (load.Loader, error) {
	if *f.bqProject != "" {
		if *f.bqDataset == "" {
			return nil, fmt.Errorf("-bq-dataset is required with -bq-project")
		}
		log.Info().Str("project", *f.bqProject).Str("dataset", *f.bqDataset).Msg("Using BigQuery destination")
		return load.NewBigQueryLoader(ctx, *f.bqProject, *f.bqDataset)
	}
	log.Info().Str("path", *f.dbPath).Msg("Using SQLite destination")
	return load.OpenSQLite(*f.dbPath)
}

func runPipeline(log zerolog.Logger) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	balances := fs.String("balances", "", "Balance extract (local path or gs:// URI)")
	withdrawals := fs.String("withdrawals", "", "Withdrawal extract (local path or gs:// URI)")
	lf := addLoaderFlags(fs)
	fs.Parse(os.Args[2:])

	if *balances == "" || *withdrawals == "" {
		log.Fatal().Msg("Error: -balances and -withdrawals are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	loader, err := lf.open(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open destination")
	}
	defer loader.Close()

	runner := pipeline.NewRunner(loader, log)
	result, err := runner.Run(ctx, *balances, *withdrawals)
	if err != nil {
		log.Fatal().Err(err).Msg("Run failed")
	}

	fmt.Printf("Run %s completed.\n", result.RunID)
	for _, name := range load.DestinationTables {
		fmt.Printf("  %-12s %d rows\n", name, result.Tables[name])
	}
}

func runInspect(log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	file := fs.String("file", "", "Source file (local path or gs:// URI)")
	fs.Parse(os.Args[2:])

	if *file == "" {
		log.Fatal().Msg("Error: -file is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	info, err := extract.Inspect(ctx, *file)
	if err != nil {
		log.Fatal().Err(err).Msg("Inspect failed")
	}

	out, _ := json.MarshalIndent(info, "", "  ")
	fmt.Println(string(out))
}

func runUpload(log zerolog.Logger) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	bucketName := fs.String("bucket", "", "Cloud Storage bucket name")
	objectName := fs.String("object", "", "Object name (defaults to filename)")
	filePath := fs.String("file", "", "Path to local source file")
	fs.Parse(os.Args[2:])

	if *bucketName == "" || *filePath == "" {
		log.Fatal().Msg("Usage: cli upload -bucket NAME -file PATH")
	}
	if *objectName == "" {
		*objectName = filepath.Base(*filePath)
	}

	ctx := logger.WithContext(context.Background(), log)

	uri, err := extract.UploadToGCS(ctx, *bucketName, *objectName, *filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Upload failed")
	}

	fmt.Printf("Uploaded %s to %s\n", *filePath, uri)
}

func runStats(log zerolog.Logger) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	lf := addLoaderFlags(fs)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	loader, err := lf.open(ctx, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open destination")
	}
	defer loader.Close()

	stats, err := loader.Stats(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read stats")
	}
	if len(stats) == 0 {
		fmt.Println("No tables loaded yet.")
		return
	}
	for _, name := range load.DestinationTables {
		if n, ok := stats[name]; ok {
			fmt.Printf("  %-12s %d rows\n", name, n)
		}
	}
}
