package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/enrich"
	"github.com/sells-group/leadgen-cli/internal/export"
	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/orchestrator"
	"github.com/sells-group/leadgen-cli/internal/quota"
)

var (
	scrapeKeyword   string
	scrapeLocations []string
	scrapeLimit     int
	scrapeOut       string
	scrapeXLSX      string
	scrapeExisting  string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape business leads for a keyword across locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("scrape"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		reg := buildRegistry()
		if reg.Len() == 0 {
			return eris.New("no provider is enabled and configured")
		}

		var existing []model.Lead
		if scrapeExisting != "" {
			f, err := os.Open(scrapeExisting)
			if err != nil {
				return eris.Wrapf(err, "open existing leads %s", scrapeExisting)
			}
			existing, err = export.ReadCSV(f)
			f.Close() //nolint:errcheck
			if err != nil {
				return eris.Wrap(err, "parse existing leads")
			}
		}

		var enricher enrich.Enricher
		if cfg.Enrich.Enabled {
			enricher = enrich.NewHTTPEnricher().
				WithTimeout(time.Duration(cfg.Enrich.TimeoutSecs) * time.Second)
		}

		job := &model.Job{
			ID:        uuid.NewString(),
			Keyword:   scrapeKeyword,
			Locations: scrapeLocations,
			Target:    scrapeLimit,
		}
		if err := st.CreateJob(ctx, job); err != nil {
			return eris.Wrap(err, "create job record")
		}
		zap.L().Info("job created",
			zap.String("job_id", job.ID),
			zap.String("keyword", scrapeKeyword),
			zap.Int("locations", len(scrapeLocations)),
			zap.Int("target", scrapeLimit),
		)

		start := time.Now()
		o := orchestrator.New(orchestratorConfig(), reg, quota.NewTracker(st), enricher).
			OnProgress(func(count int) {
				if err := st.UpdateJobProgress(ctx, job.ID, count); err != nil {
					zap.L().Warn("job progress update failed", zap.Error(err))
				}
			}).
			OnLog(func(text string) {
				fmt.Fprintln(os.Stderr, text)
			})

		result, err := o.Run(ctx, orchestrator.Request{
			Keyword:       scrapeKeyword,
			Locations:     scrapeLocations,
			Target:        scrapeLimit,
			ExistingLeads: existing,
		})
		if err != nil {
			_ = st.UpdateJobStatus(ctx, job.ID, model.JobStatusError, err.Error())
			return eris.Wrap(err, "scrape run")
		}

		if err := export.WriteCSVFile(scrapeOut, result.Leads); err != nil {
			_ = st.UpdateJobStatus(ctx, job.ID, model.JobStatusError, err.Error())
			return err
		}
		if scrapeXLSX != "" {
			if err := export.WriteXLSX(scrapeXLSX, result.Leads); err != nil {
				_ = st.UpdateJobStatus(ctx, job.ID, model.JobStatusError, err.Error())
				return err
			}
		}

		elapsed := time.Since(start).Seconds()
		if err := st.CompleteJob(ctx, job.ID, scrapeOut, elapsed, len(result.Leads)); err != nil {
			zap.L().Warn("job completion update failed", zap.Error(err))
		}

		withContact := 0
		for _, l := range result.Leads {
			if l.HasContact() {
				withContact++
			}
		}
		zap.L().Info("scrape complete",
			zap.String("job_id", job.ID),
			zap.Int("leads", len(result.Leads)),
			zap.Int("with_contact", withContact),
			zap.Int("rounds", result.Rounds),
			zap.String("reason", string(result.Reason)),
			zap.Bool("target_met", result.TargetMet()),
			zap.Float64("elapsed_s", elapsed),
		)
		fmt.Printf("%d leads written to %s (%d with contact info)\n", len(result.Leads), scrapeOut, withContact)
		if !result.TargetMet() {
			fmt.Printf("stopped short of the %d-lead target: %s\n", scrapeLimit, result.Reason)
		}
		return nil
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeKeyword, "keyword", "", "business keyword to search, e.g. \"plumber\" (required)")
	scrapeCmd.Flags().StringSliceVar(&scrapeLocations, "locations", nil, "comma-separated locations, e.g. \"Austin, TX\",\"Dallas, TX\" (required)")
	scrapeCmd.Flags().IntVar(&scrapeLimit, "limit", 50, "target number of leads")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "leads.csv", "output CSV path")
	scrapeCmd.Flags().StringVar(&scrapeXLSX, "xlsx", "", "also write an XLSX workbook to this path")
	scrapeCmd.Flags().StringVar(&scrapeExisting, "existing", "", "CSV of already-collected leads to resume from")
	_ = scrapeCmd.MarkFlagRequired("keyword")
	_ = scrapeCmd.MarkFlagRequired("locations")
	rootCmd.AddCommand(scrapeCmd)
}
