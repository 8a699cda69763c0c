package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"go.uber.org/zap"

	"github.com/NicholasBallas/idr-intelligence-platform/internal/disputes"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/ingest"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/querycache"
	"github.com/NicholasBallas/idr-intelligence-platform/internal/risk"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/config"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/database"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/logger"
	"github.com/NicholasBallas/idr-intelligence-platform/pkg/redis"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "idrctl",
		Short: "Operate the IDR dispute intelligence pipeline",
	}

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newReportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newService builds the pipeline against the configured Postgres and Redis.
// Redis is optional for CLI use: without it the service computes views
// directly.
func newService(cfg *config.Config) (*risk.Service, func(), error) {
	pool, err := database.NewPostgresPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	var cleanup func()
	var svc *risk.Service

	engine := risk.NewEngine(risk.ThresholdsFromConfig(cfg.Risk), risk.WeightsFromConfig(cfg.Risk))
	store := disputes.NewRepository(pool)

	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Warn("Redis unavailable, views computed directly", zap.Error(err))
		svc = risk.NewService(store, nil, engine)
		cleanup = pool.Close
	} else {
		cache := querycache.New(redisClient, cfg.Cache.KeyPrefix, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		svc = risk.NewService(store, cache, engine)
		cleanup = func() {
			redisClient.Close()
			pool.Close()
		}
	}

	return svc, cleanup, nil
}

func newIngestCmd() *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "ingest <file-or-s3-uri>...",
		Short: "Ingest quarterly dispute export files into the store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("idrctl")
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := logger.Init(cfg.Server.Environment); err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer logger.Sync()

			svc, cleanup, err := newService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var bars *mpb.Progress
			if !noProgress {
				bars = mpb.NewWithContext(ctx, mpb.WithWidth(60))
			}

			for i, uri := range args {
				if err := ingestOne(ctx, svc, bars, i, len(args), uri); err != nil {
					return err
				}
			}

			if bars != nil {
				bars.Wait()
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")
	return cmd
}

func ingestOne(ctx context.Context, svc *risk.Service, bars *mpb.Progress, index, total int, uri string) error {
	src, err := ingest.Open(ctx, uri)
	if err != nil {
		return fmt.Errorf("opening %s: %w", uri, err)
	}
	defer src.Close()

	records, err := ingest.ReadCSV(src)
	if err != nil {
		return fmt.Errorf("reading %s: %w", uri, err)
	}

	var progress ingest.ProgressFunc
	if bars != nil {
		bar := bars.AddBar(int64(len(records)),
			mpb.PrependDecorators(
				decor.Name(fmt.Sprintf("[%d/%d] %s ", index+1, total, uri), decor.WCSyncSpaceR),
			),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")),
		)
		progress = func(processed, _ int) {
			bar.SetCurrent(int64(processed))
		}
	}

	report, err := svc.IngestBatch(ctx, records, progress)
	if err != nil {
		return fmt.Errorf("ingesting %s: %w", uri, err)
	}

	fmt.Printf("%s: %d inserted, %d updated, %d malformed of %d\n",
		uri, report.Inserted, report.Updated, report.Malformed, report.Total)
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("idrctl")
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := database.RunMigrations(cfg.Database.URL(), cfg.Database.MigrationsDir); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newReportCmd() *cobra.Command {
	var minScore int

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print scored provider reports, highest risk first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load("idrctl")
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if err := logger.Init(cfg.Server.Environment); err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer logger.Sync()

			svc, cleanup, err := newService(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reports, err := svc.ProviderReports(ctx, disputes.Filter{}, minScore)
			if err != nil {
				return fmt.Errorf("computing reports: %w", err)
			}

			for _, r := range reports {
				fmt.Printf("%-12s score=%-3d disputes=%-6d flags=%d %s\n",
					r.Provider, r.Risk.Score, r.Aggregate.TotalDisputes, len(r.Flags), r.ProviderName)
			}
			fmt.Printf("%d providers\n", len(reports))
			return nil
		},
	}

	cmd.Flags().IntVar(&minScore, "min-score", 0, "Only report providers at or above this risk score")
	return cmd
}
