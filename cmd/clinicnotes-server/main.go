package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicnotes/clinicnotes/internal/config"
	"github.com/clinicnotes/clinicnotes/internal/domain/finance"
	"github.com/clinicnotes/clinicnotes/internal/domain/layout"
	"github.com/clinicnotes/clinicnotes/internal/domain/patient"
	"github.com/clinicnotes/clinicnotes/internal/domain/transcription"
	"github.com/clinicnotes/clinicnotes/internal/domain/visit"
	"github.com/clinicnotes/clinicnotes/internal/importer"
	"github.com/clinicnotes/clinicnotes/internal/platform/apperr"
	"github.com/clinicnotes/clinicnotes/internal/platform/auth"
	"github.com/clinicnotes/clinicnotes/internal/platform/cache"
	"github.com/clinicnotes/clinicnotes/internal/platform/db"
	"github.com/clinicnotes/clinicnotes/internal/platform/docstore"
	"github.com/clinicnotes/clinicnotes/internal/platform/middleware"
	"github.com/clinicnotes/clinicnotes/migrations"
)

const transcriptionPath = "/api/v1/transcriptions"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "clinicnotes-server",
		Short:        "Clinic visit notes API server",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(counterCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(vocabCmd())
	return rootCmd
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// stores holds the repositories of the configured backend and the handles
// that must be closed on exit.
type stores struct {
	patients patient.Repository
	counter  patient.CounterStore
	visits   visit.Repository
	layouts  layout.Repository
	charges  finance.Repository

	pool    *pgxpool.Pool
	checks  map[string]db.Check
	closers []func()
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	st := &stores{checks: make(map[string]db.Check)}

	if cfg.UsesMongo() {
		database, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		st.closers = append(st.closers, func() { _ = database.Client().Disconnect(context.Background()) })
		st.patients = patient.NewRepoMongo(database)
		st.counter = patient.NewCounterMongo(database)
		st.visits = visit.NewRepoMongo(database)
		st.layouts = layout.NewRepoMongo(database)
		st.charges = finance.NewRepoMongo(database)
		st.checks["mongodb"] = docstore.Ping(database)
		logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")
	} else {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		st.pool = pool
		st.closers = append(st.closers, pool.Close)
		st.patients = patient.NewRepoPG(pool)
		st.counter = patient.NewCounterPG(pool)
		st.visits = visit.NewRepoPG(pool)
		st.layouts = layout.NewRepoPG(pool)
		st.charges = finance.NewRepoPG(pool)
		st.checks["postgres"] = db.PoolCheck(pool)
		logger.Info().Msg("connected to database")
	}

	// The layout cache is optional; without Redis reads go to the store.
	if cfg.RedisURL != "" {
		client, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, layout cache disabled")
		} else {
			st.closers = append(st.closers, func() { _ = client.Close() })
			st.layouts = layout.NewCachedRepository(st.layouts, client, cfg.LayoutCacheTTL)
			st.checks["redis"] = cache.Ping(client)
			logger.Info().Msg("layout cache enabled")
		}
	}
	return st, nil
}

// services is the wired domain layer.
type services struct {
	patients      *patient.Service
	visits        *visit.Service
	layouts       *layout.Service
	charges       *finance.Service
	transcription *transcription.Service
}

func newServices(st *stores, model transcription.Model, vocab *transcription.Vocabulary) *services {
	patients := patient.NewService(st.patients, patient.NewAllocator(st.counter))
	return &services{
		patients:      patients,
		visits:        visit.NewService(st.visits, patients),
		layouts:       layout.NewService(st.layouts),
		charges:       finance.NewService(st.charges),
		transcription: transcription.NewService(model, vocab),
	}
}

func loadVocabulary(path string, logger zerolog.Logger) *transcription.Vocabulary {
	vocab, err := transcription.LoadVocabulary(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("medication vocabulary not loaded, using empty lists")
		return vocab
	}
	logger.Info().
		Int("medications", len(vocab.MedicationNames)).
		Int("instructions", len(vocab.Instructions)).
		Int("durations", len(vocab.Durations)).
		Msg("medication vocabulary loaded")
	return vocab
}

func newServer(cfg *config.Config, logger zerolog.Logger, svc *services, checks map[string]db.Check, pool *pgxpool.Pool) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit, map[string]string{transcriptionPath: cfg.AudioBodyLimit}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout, map[string]time.Duration{transcriptionPath: cfg.ExtractTimeout}))

	e.GET("/health", db.HealthHandler(checks, pool))

	apiV1 := e.Group("/api/v1")
	if cfg.AuthSigningKey != "" {
		apiV1.Use(auth.JWTMiddleware(auth.JWTConfig{SigningKey: []byte(cfg.AuthSigningKey)}))
	} else {
		logger.Warn().Msg("AUTH_SIGNING_KEY not set, every request is treated as admin")
		apiV1.Use(auth.DevAuthMiddleware())
	}

	patient.NewHandler(svc.patients).RegisterRoutes(apiV1)
	visit.NewHandler(svc.visits).RegisterRoutes(apiV1)
	layout.NewHandler(svc.layouts).RegisterRoutes(apiV1)
	finance.NewHandler(svc.charges).RegisterRoutes(apiV1)
	transcription.NewHandler(svc.transcription).RegisterRoutes(apiV1)
	return e
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx := context.Background()
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to store")
	}
	defer st.Close()

	model := transcription.NewGeminiModel(cfg.GeminiAPIKey, cfg.GeminiModel)
	if cfg.GeminiAPIKey == "" {
		logger.Warn().Msg("GEMINI_API_KEY not set, transcription requests will fail")
	}
	svc := newServices(st, model, loadVocabulary(cfg.MedicationContextPath, logger))
	e := newServer(cfg, logger, svc, st.checks, st.pool)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema or indexes",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations (Postgres) or create indexes (MongoDB)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := context.Background()

			if cfg.UsesMongo() {
				database, err := docstore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
				if err != nil {
					return err
				}
				defer database.Client().Disconnect(context.Background())

				count, err := docstore.EnsureIndexes(ctx, database)
				if err != nil {
					return fmt.Errorf("index creation failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Ensured %d index(es) on %s.\n", count, cfg.MongoDatabase)
				return nil
			}

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := newMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status (Postgres only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.UsesMongo() {
				fmt.Fprintln(cmd.OutOrStdout(), "MongoDB has no migrations; run `migrate up` to ensure indexes.")
				return nil
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := newMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Read migrations from this directory instead of the embedded set")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	if dir != "" {
		return db.NewMigrator(pool, dir)
	}
	return db.NewMigratorFS(pool, migrations.FS)
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func counterCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "counter",
		Short: "Manage the patient registration counter",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set N",
		Short: "Set the last allocated registration number; the next patient gets N+1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || n < 0 {
				return fmt.Errorf("N must be a non-negative integer, got %q", args[0])
			}
			return withStores(func(ctx context.Context, st *stores, _ zerolog.Logger) error {
				if err := patient.NewAllocator(st.counter).SetCounter(ctx, n); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Patient counter set to %d; next registration is %s.\n", n, patient.FormatPReg(n+1))
				return nil
			})
		},
	})
	return cmd
}

// withStores runs fn against the configured backend with a logger on ctx.
func withStores(fn func(ctx context.Context, st *stores, logger zerolog.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Env)
	ctx := logger.WithContext(context.Background())

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	// CLI commands run sequentially, so one pinned connection serves them.
	if st.pool != nil {
		conn, err := st.pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer conn.Release()
		ctx = db.WithConn(ctx, conn)
	}
	return fn(ctx, st, logger)
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import the legacy clinic CSV export",
	}

	patientsCmd := &cobra.Command{
		Use:   "patients",
		Short: "Import one patient per distinct PReg and move the counter past them",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("csv")
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			in, err := os.Open(filepath.Clean(path))
			if err != nil {
				return err
			}
			defer in.Close()

			return withStores(func(ctx context.Context, st *stores, _ zerolog.Logger) error {
				svc := newServices(st, nil, nil)
				sum, err := importer.ImportPatients(ctx, in, batchSize, svc.patients, svc.patients.Allocator())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Rows read: %d, unique patients: %d\n", sum.Rows, sum.Patients)
				fmt.Fprintf(out, "Created or already present: %d, failed: %d, rejected batches: %d\n",
					sum.Succeeded, sum.Failed, sum.FailedBatches)
				for i, f := range sum.Failures {
					if i == 10 {
						fmt.Fprintf(out, "  ... %d more\n", len(sum.Failures)-i)
						break
					}
					fmt.Fprintf(out, "  - PReg %s: %s %s\n", f.PReg, f.Status, f.Reason)
				}
				if sum.CounterSet {
					fmt.Fprintf(out, "Patient counter set to %d.\n", sum.MaxPReg)
				}
				return nil
			})
		},
	}
	patientsCmd.Flags().String("csv", "", "Path to the clinic CSV export")
	patientsCmd.Flags().Int("batch-size", importer.DefaultBatchSize, "Records per import batch")
	_ = patientsCmd.MarkFlagRequired("csv")
	cmd.AddCommand(patientsCmd)

	visitsCmd := &cobra.Command{
		Use:   "visits",
		Short: "Import historical visits grouped by PReg and date",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("csv")
			batchSize, _ := cmd.Flags().GetInt("batch-size")
			in, err := os.Open(filepath.Clean(path))
			if err != nil {
				return err
			}
			defer in.Close()

			return withStores(func(ctx context.Context, st *stores, _ zerolog.Logger) error {
				svc := newServices(st, nil, nil)
				sum, err := importer.ImportVisits(ctx, in, batchSize, svc.visits)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Visits prepared: %d\n", sum.Visits)
				fmt.Fprintf(out, "Imported or already present: %d, failed: %d, rejected batches: %d\n",
					sum.Succeeded, sum.Failed, sum.FailedBatches)
				for i, f := range sum.Failures {
					if i == 10 {
						fmt.Fprintf(out, "  ... %d more\n", len(sum.Failures)-i)
						break
					}
					fmt.Fprintf(out, "  - PReg %s, date %s: %s %s\n", f.PatientID, f.VisitDate, f.Status, f.Reason)
				}
				return nil
			})
		},
	}
	visitsCmd.Flags().String("csv", "", "Path to the clinic CSV export")
	visitsCmd.Flags().Int("batch-size", importer.DefaultBatchSize, "Visits per import batch")
	_ = visitsCmd.MarkFlagRequired("csv")
	cmd.AddCommand(visitsCmd)

	return cmd
}

func vocabCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "Manage the medication vocabulary used by transcription",
	}
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Derive the vocabulary file from the clinic CSV export",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("csv")
			outPath, _ := cmd.Flags().GetString("out")

			in, err := os.Open(filepath.Clean(path))
			if err != nil {
				return err
			}
			defer in.Close()

			vocab, err := importer.BuildVocabulary(in)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return err
			}
			out, err := os.Create(filepath.Clean(outPath))
			if err != nil {
				return err
			}
			if err := importer.WriteVocabulary(out, vocab); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s: %d medication names, %d instructions, %d durations.\n",
				outPath, len(vocab.MedicationNames), len(vocab.Instructions), len(vocab.Durations))
			return nil
		},
	}
	buildCmd.Flags().String("csv", "", "Path to the clinic CSV export")
	buildCmd.Flags().String("out", "./medication_context_data.json", "Output vocabulary file")
	_ = buildCmd.MarkFlagRequired("csv")
	cmd.AddCommand(buildCmd)
	return cmd
}
