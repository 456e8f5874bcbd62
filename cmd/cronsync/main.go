// Command cronsync runs one smart sweep (or one forced campaign sync) and exits. It is meant to be
// invoked by an external scheduler such as cron.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"hoctuthien/internal/app"
	"hoctuthien/internal/config"
	"hoctuthien/internal/infrastructure/cache"
	"hoctuthien/internal/infrastructure/database"
	"hoctuthien/internal/infrastructure/logger"
	"hoctuthien/internal/metrics"
	"hoctuthien/internal/service"
	"hoctuthien/pkg/idgen"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		campaignID int64
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "cronsync",
		Short: "Poll charity campaign feeds and settle matching payment requests",
		Long: `Runs a smart sweep over every campaign with pending or recent payment requests.
With --campaign, polls that one campaign immediately instead.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, cmd.OutOrStdout(), configPath, campaignID, asJSON)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to config file")
	cmd.Flags().Int64Var(&campaignID, "campaign", 0, "force a sync of this campaign id only")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "print the report as JSON")

	return cmd
}

func run(ctx context.Context, out io.Writer, configPath string, campaignID int64, asJSON bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	zlog, err := logger.New(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = zlog.Sync() }()

	idgen.Init(2)

	db, err := database.InitMySQL(&cfg.MySQL, zlog)
	if err != nil {
		return err
	}

	// without redis the sweep still runs, only unlocked
	rdb, err := cache.InitRedis(&cfg.Redis)
	if err != nil {
		zlog.Warn("redis unavailable, campaign locks disabled", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	engine := app.NewEngine(cfg, db, rdb, metrics.New(prometheus.NewRegistry()), zlog)

	if campaignID != 0 {
		fmt.Fprintf(out, "Force syncing campaign %d\n", campaignID)
		report, err := engine.Scheduler.ForceSync(ctx, campaignID)
		if err != nil {
			return err
		}
		return printReports(out, []service.SyncReport{report}, asJSON)
	}

	progress := func(line string) {
		if !asJSON {
			fmt.Fprintln(out, line)
		}
	}
	report, err := engine.Scheduler.SmartSweep(ctx, progress)
	if err != nil {
		return err
	}
	if asJSON {
		return printReports(out, report.Campaigns, true)
	}
	fmt.Fprintf(out, "Done: %d campaign(s), %d payment(s) settled\n", len(report.Campaigns), report.Finalized())
	return nil
}

func printReports(out io.Writer, reports []service.SyncReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	}
	for _, r := range reports {
		if r.FeedUnavailable {
			fmt.Fprintf(out, "%s: feed unavailable (%s)\n", r.CampaignName, r.FeedError)
			continue
		}
		fmt.Fprintf(out, "%s: fetched=%d new=%d finalized=%d\n", r.CampaignName, r.Fetched, r.Ingested, r.Finalized)
	}
	return nil
}
