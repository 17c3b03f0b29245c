package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ethanolivertroy/psirt-check/internal/risk"
	"github.com/ethanolivertroy/psirt-check/internal/store"
)

var (
	flagHistoryLimit  int
	flagHistoryDevice string
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recorded correlation runs",
	Long: `List runs recorded with --persist, newest first. With a run ID, show that
run's ranked devices. With --device, show one device's risk across runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum number of rows (0 = all)")
	historyCmd.Flags().StringVar(&flagHistoryDevice, "device", "", "Show the history of one hostname")
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch {
	case len(args) == 1:
		run, err := st.GetRun(ctx, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no run with ID %s", args[0])
		}
		if err != nil {
			return err
		}
		return printRun(out, run)
	case flagHistoryDevice != "":
		risks, err := st.DeviceHistory(ctx, flagHistoryDevice, flagHistoryLimit)
		if err != nil {
			return err
		}
		return printDeviceHistory(out, flagHistoryDevice, risks)
	default:
		runs, err := st.ListRuns(ctx, flagHistoryLimit)
		if err != nil {
			return err
		}
		return printRuns(out, runs)
	}
}

func printRuns(w io.Writer, runs []store.RunModel) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded. Run with --persist to record one.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tDATE\tDEVICES\tAFFECTED\tADVISORIES\tCRIT\tHIGH\tMED\tLOW\tFAILED LOOKUPS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
			r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Devices, r.AffectedDevices, r.Advisories,
			r.Critical, r.High, r.Medium, r.Low, r.FetchFailures)
	}
	return tw.Flush()
}

func printRun(w io.Writer, run *store.RunModel) error {
	fmt.Fprintf(w, "Run %s (%s)\n", run.ID, run.CreatedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(w, "%d advisories on %d of %d devices\n\n", run.Advisories, run.AffectedDevices, run.Devices)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tHOSTNAME\tOS\tVERSION\tSCORE\tLEVEL\tADVISORIES")
	for _, d := range run.DeviceRisks {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%.1f\t%s\t%s\n",
			d.Rank, d.Hostname, d.OSType, d.Version, d.Score, risk.Level(d.Score), advisoryList(d.AdvisoryIDs))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if run.Summary != "" {
		_, err := fmt.Fprintf(w, "\n%s\n", strings.TrimSpace(run.Summary))
		return err
	}
	return nil
}

func printDeviceHistory(w io.Writer, hostname string, risks []store.DeviceRiskModel) error {
	if len(risks) == 0 {
		_, err := fmt.Fprintf(w, "No recorded runs ranked %s.\n", hostname)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tRANK\tVERSION\tSCORE\tCRIT\tHIGH\tMED\tLOW")
	for _, d := range risks {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%.1f\t%d\t%d\t%d\t%d\n",
			d.RunID, d.Rank, d.Version, d.Score, d.Critical, d.High, d.Medium, d.Low)
	}
	return tw.Flush()
}

func advisoryList(ids string) string {
	if ids == "" {
		return "-"
	}
	return strings.ReplaceAll(ids, ",", ", ")
}
