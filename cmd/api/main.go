package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dfarias/escrow-etl/internal/api/handlers"
	"github.com/dfarias/escrow-etl/internal/api/middleware"
	"github.com/dfarias/escrow-etl/internal/jobs"
	"github.com/dfarias/escrow-etl/internal/jobs/inmemory"
	"github.com/dfarias/escrow-etl/internal/load"
	"github.com/dfarias/escrow-etl/internal/logger"
	"github.com/dfarias/escrow-etl/internal/pipeline"
)

func main() {
	var (
		port      = flag.String("port", "8080", "HTTP server port")
		uploadDir = flag.String("upload-dir", "uploads", "Directory for uploaded source files")
		dbPath    = flag.String("db", "escrow.db", "SQLite database path")
		bqProject = flag.String("bq-project", os.Getenv("BQ_PROJECT"), "BigQuery project (or set BQ_PROJECT); overrides -db")
		bqDataset = flag.String("bq-dataset", os.Getenv("BQ_DATASET"), "BigQuery dataset (or set BQ_DATASET)")
	)
	flag.Parse()

	log := logger.New()
	ctx := context.Background()

	var (
		loader load.Loader
		err    error
	)
	if *bqProject != "" {
		if *bqDataset == "" {
			log.Fatal().Msg("-bq-dataset is required with -bq-project")
		}
		loader, err = load.NewBigQueryLoader(ctx, *bqProject, *bqDataset)
	} else {
		loader, err = load.OpenSQLite(*dbPath)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open destination store")
	}
	defer loader.Close()

	runner := pipeline.NewRunner(loader, log)

	// Job infrastructure: one worker drains the queue, so runs stay
	// strictly sequential.
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(16, jobStore)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	jobHandler := func(ctx context.Context, job *jobs.RunJob) (*pipeline.Result, error) {
		log.Info().
			Str("job_id", job.JobID).
			Str("balances", job.BalancesPath).
			Str("withdrawals", job.WithdrawalsPath).
			Msg("Processing run job")

		result, err := runner.Run(ctx, job.BalancesPath, job.WithdrawalsPath)
		if err != nil {
			log.Error().Err(err).Str("job_id", job.JobID).Msg("Run failed")
			return result, err
		}

		log.Info().Str("job_id", job.JobID).Str("run_id", result.RunID).Msg("Run completed")
		return result, nil
	}

	go func() {
		log.Info().Msg("Starting run worker")
		if err := jobQueue.Start(workerCtx, jobHandler); err != nil {
			log.Error().Err(err).Msg("Run worker stopped with error")
		}
	}()

	uploadsHandler := handlers.NewUploadsHandler(*uploadDir, log)
	runsHandler := handlers.NewRunsHandler(jobQueue, runner, log)
	jobsHandler := handlers.NewJobsHandler(jobStore, log)
	tablesHandler := handlers.NewTablesHandler(loader, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/uploads", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			uploadsHandler.Upload(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			runsHandler.Enqueue(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/runs/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			runsHandler.Status(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/tables", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			tablesHandler.Stats(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/health", tablesHandler.Health)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", *port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancelWorker()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping run queue")
	}

	log.Info().Msg("Server exited")
}
