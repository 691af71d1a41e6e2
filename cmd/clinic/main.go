package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinicdesk/clinic/internal/config"
	"github.com/clinicdesk/clinic/internal/domain/dashboard"
	"github.com/clinicdesk/clinic/internal/domain/lab"
	"github.com/clinicdesk/clinic/internal/domain/medication"
	"github.com/clinicdesk/clinic/internal/domain/patient"
	"github.com/clinicdesk/clinic/internal/domain/scheduling"
	"github.com/clinicdesk/clinic/internal/domain/visit"
	"github.com/clinicdesk/clinic/internal/importer"
	"github.com/clinicdesk/clinic/internal/platform/db"
	"github.com/clinicdesk/clinic/internal/platform/metrics"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinic",
		Short:         "Clinic patient record manager",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(appointmentsCmd())
	rootCmd.AddCommand(patientsCmd())
	rootCmd.AddCommand(dashboardCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// newLogger writes JSON to stderr, or a console format in development, so
// command output on stdout stays clean.
func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return logger.Level(cfg.Level())
}

// app owns the store lifecycle for one command run.
type app struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	metrics *metrics.Recorder

	patients     *patient.Service
	visits       *visit.Service
	lab          *lab.Service
	medication   *medication.Service
	appointments *scheduling.Service
	dashboard    *dashboard.Service
	importer     *importer.Pipeline
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBSchema, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Debug().Str("schema", cfg.DBSchema).Msg("connected to database")

	tx := db.NewTransactor(pool)
	rec := metrics.New()

	patientRepo := patient.NewRepo(pool)
	visitRepo := visit.NewRepo(pool)

	a := &app{cfg: cfg, logger: logger, pool: pool, metrics: rec}
	a.patients = patient.NewService(patientRepo, tx)
	a.visits = visit.NewService(visitRepo, patientRepo, tx)
	a.lab = lab.NewService(lab.NewTestTypeRepo(pool), lab.NewTestResultRepo(pool), visitRepo, tx)
	a.medication = medication.NewService(medication.NewMedicineRepo(pool), medication.NewPrescriptionRepo(pool), visitRepo, tx)
	a.appointments = scheduling.NewService(scheduling.NewRepo(pool), patientRepo, tx, rec)
	a.dashboard = dashboard.NewService(a.patients, a.visits, a.appointments, scheduling.DefaultUpcomingDays)

	stores := importer.Stores{
		Patients:  a.patients,
		Medicines: a.medication,
		Lab:       a.lab,
		Visits:    a.visits,
	}
	a.importer = importer.New(stores, tx, importer.Config{
		MaxRows:    cfg.MaxImportRows,
		DateLayout: cfg.DateFormat,
	}).WithLogger(logger).WithMetrics(rec)

	return a, nil
}

// Close flushes metrics to the textfile and releases the pool.
func (a *app) Close() {
	if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
		a.logger.Warn().Err(err).Str("path", a.cfg.MetricsFile).Msg("failed to write metrics")
	}
	a.pool.Close()
}

// withApp runs fn against a freshly wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				fmt.Printf("Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx, schema)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Printf("Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}
	addMigrateFlags(upCmd)
	cmd.AddCommand(upCmd)

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator, schema string) error {
				statuses, err := m.Status(ctx, schema)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}

				fmt.Printf("Migration status for schema: %s\n", schema)
				fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				fmt.Println("---------- ---------------------------------------- ---------- --------------------")
				for _, s := range statuses {
					status := "pending"
					appliedAt := ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}
	addMigrateFlags(statusCmd)
	cmd.AddCommand(statusCmd)

	return cmd
}

func addMigrateFlags(cmd *cobra.Command) {
	cmd.Flags().String("schema", "", "Target schema (default DB_SCHEMA)")
	cmd.Flags().String("dir", "", "Path to migrations directory (default MIGRATIONS_DIR)")
}

func withMigrator(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator, schema string) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	schema, _ := cmd.Flags().GetString("schema")
	dir, _ := cmd.Flags().GetString("dir")
	if schema == "" {
		schema = cfg.DBSchema
	}
	if dir == "" {
		dir = cfg.MigrationsDir
	}

	ctx := cmd.Context()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, "", cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, db.NewMigrator(pool, dir).WithLogger(newLogger(cfg)), schema)
}

func dbCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "ping",
		Short: "Check the database connection",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				h, err := db.Check(ctx, a.pool)
				if err != nil {
					return fmt.Errorf("database check failed: %w", err)
				}
				fmt.Printf("PostgreSQL %s, search_path %s\n", h.ServerVersion, h.SearchPath)
				fmt.Printf("Patients: %d\n", h.Patients)
				fmt.Printf("Connections: %d total, %d idle, %d acquired, max %d\n",
					h.TotalConns, h.IdleConns, h.AcquiredConns, h.MaxConns)
				return nil
			})
		},
	})
	return cmd
}
