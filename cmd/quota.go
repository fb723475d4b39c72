package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadgen-cli/internal/model"
	"github.com/sells-group/leadgen-cli/internal/provider"
	"github.com/sells-group/leadgen-cli/internal/quota"
)

var quotaCmd = &cobra.Command{
	Use:   "quota",
	Short: "Inspect and manage provider usage quotas",
}

// -- quota status --

var quotaStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show remaining quota per provider",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		avail, err := quota.NewTracker(st).CheckAvailability(ctx)
		if err != nil {
			return eris.Wrap(err, "quota status")
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROVIDER\tAVAILABLE\tTOTAL")
		for _, name := range avail.Available {
			rem := avail.Limits[name]
			fmt.Fprintf(w, "%s\t%d\t%d\n", name, rem.Available, rem.Total)
		}
		for _, name := range avail.Unavailable {
			rem := avail.Limits[name]
			fmt.Fprintf(w, "%s\t%d\t%d\n", name, rem.Available, rem.Total)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println(avail.HumanStatus)
		return nil
	},
}

// -- quota set --

var quotaSetCmd = &cobra.Command{
	Use:   "set <provider> <used>",
	Short: "Overwrite a provider's used count for the current period",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		used, err := strconv.Atoi(args[1])
		if err != nil || used < 0 {
			return eris.Errorf("used must be a non-negative integer, got %q", args[1])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if err := quota.NewTracker(st).RecordUsage(ctx, args[0], used, quota.Absolute); err != nil {
			return eris.Wrapf(err, "quota set %s", args[0])
		}

		fmt.Printf("%s used count set to %d\n", args[0], used)
		return nil
	},
}

// -- quota init --

// quotaSeed is the YAML shape accepted by quota init --file.
type quotaSeed struct {
	Providers []struct {
		Provider string `yaml:"provider"`
		Limit    int    `yaml:"limit"`
		Type     string `yaml:"type"`
	} `yaml:"providers"`
}

var (
	quotaInitFile  string
	quotaInitLimit int
)

var quotaInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed the quota ledger",
	Long:  "Seeds a daily quota row for every known provider, or loads rows from a YAML seed file. Existing rows are overwritten.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		var rows []model.ProviderQuota
		now := time.Now().UTC()

		if quotaInitFile != "" {
			data, err := os.ReadFile(quotaInitFile)
			if err != nil {
				return eris.Wrapf(err, "read seed file %s", quotaInitFile)
			}
			var seed quotaSeed
			if err := yaml.Unmarshal(data, &seed); err != nil {
				return eris.Wrapf(err, "parse seed file %s", quotaInitFile)
			}
			for _, p := range seed.Providers {
				row, err := seedRow(p.Provider, p.Limit, p.Type, now)
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}
		} else {
			for _, name := range []string{provider.PlacesName, provider.YelpName, provider.FoursquareName, provider.NominatimName} {
				row, _ := seedRow(name, quotaInitLimit, string(model.LimitDaily), now)
				rows = append(rows, row)
			}
		}

		for _, row := range rows {
			if err := st.UpsertQuota(ctx, row); err != nil {
				return eris.Wrapf(err, "seed quota %s", row.Provider)
			}
			zap.L().Info("quota seeded",
				zap.String("provider", row.Provider),
				zap.Int("limit", row.LimitValue),
				zap.String("type", string(row.LimitType)),
			)
		}

		fmt.Printf("%d quota rows seeded\n", len(rows))
		return nil
	},
}

func seedRow(name string, limit int, limitType string, now time.Time) (model.ProviderQuota, error) {
	var (
		lt  model.LimitType
		dur time.Duration
	)
	switch model.LimitType(limitType) {
	case model.LimitDaily:
		lt, dur = model.LimitDaily, 24*time.Hour
	case model.LimitMonthly:
		lt, dur = model.LimitMonthly, 30*24*time.Hour
	default:
		return model.ProviderQuota{}, eris.Errorf("unknown limit type %q for %s (want daily or monthly)", limitType, name)
	}
	return model.ProviderQuota{
		Provider:       name,
		LimitValue:     limit,
		PeriodStart:    now,
		PeriodDuration: dur,
		LimitType:      lt,
	}, nil
}

func init() {
	quotaInitCmd.Flags().StringVar(&quotaInitFile, "file", "", "YAML seed file (providers: [{provider, limit, type}])")
	quotaInitCmd.Flags().IntVar(&quotaInitLimit, "limit", 1000, "daily limit for every provider when no seed file is given")

	quotaCmd.AddCommand(quotaStatusCmd)
	quotaCmd.AddCommand(quotaSetCmd)
	quotaCmd.AddCommand(quotaInitCmd)
	rootCmd.AddCommand(quotaCmd)
}
