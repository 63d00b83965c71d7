package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/teranos/popidx/am"
	"github.com/teranos/popidx/display"
	"github.com/teranos/popidx/errors"
	"github.com/teranos/popidx/logger"
	"github.com/teranos/popidx/pop/manager"
	"github.com/teranos/popidx/pop/simulate"
)

// SimulateCmd runs a randomized population against the index manager
var SimulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Churn a random population and verify every index",
	Long: `Build a reference population, register the standard scenario indexes and
apply random mutations. At every checkpoint each index is compared with a
brute-force scan and with the membership replayed from its event stream.

Exits non-zero if any index diverges.

Examples:
  popidx simulate                           # Defaults from popidx.toml
  popidx simulate --population 5000 --churn 20000
  popidx simulate --seed 7 --json           # Machine-readable progress`,
	RunE: runSimulate,
}

func init() {
	SimulateCmd.Flags().Int("population", 0, "Entities created before churn (default from config)")
	SimulateCmd.Flags().Int("groups", 0, "Groups per group type (default from config)")
	SimulateCmd.Flags().Int("churn", 0, "Random mutations after setup (default from config)")
	SimulateCmd.Flags().Int("checkpoint", 0, "Steps between oracle checks (default from config)")
	SimulateCmd.Flags().Int64("seed", 0, "Random seed (default from config)")
	SimulateCmd.Flags().Bool("json", false, "Emit progress and the report as JSON lines")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	flags := cmd.Flags()
	if flags.Changed("population") {
		cfg.Simulate.Population, _ = flags.GetInt("population")
	}
	if flags.Changed("groups") {
		cfg.Simulate.Groups, _ = flags.GetInt("groups")
	}
	if flags.Changed("churn") {
		cfg.Simulate.ChurnSteps, _ = flags.GetInt("churn")
	}
	if flags.Changed("checkpoint") {
		cfg.Simulate.Checkpoint, _ = flags.GetInt("checkpoint")
	}
	if flags.Changed("seed") {
		cfg.Simulate.Seed, _ = flags.GetInt64("seed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	verbosity, _ := flags.GetCount("verbose")
	jsonOutput := display.ShouldOutputJSON(cmd)
	log := logger.ComponentLogger("simulate")
	if logger.ShouldOutput(verbosity, logger.OutputConfig) {
		log.Debugw("Simulation config",
			logger.FieldPopulation, cfg.Simulate.Population,
			logger.FieldSeed, cfg.Simulate.Seed,
			"churn_steps", cfg.Simulate.ChurnSteps,
			"reentrancy", cfg.Index.Reentrancy)
	}

	reg := prometheus.NewRegistry()
	mgrOpts, err := cfg.ManagerOptions(reg, logger.ComponentLogger("manager"))
	if err != nil {
		return err
	}
	mgrOpts = append(mgrOpts, manager.WithEventTrace(logger.ShouldOutput(verbosity, logger.OutputEvents)))

	var progress simulate.Progress = simulate.NewCLIEmitter(verbosity)
	if jsonOutput {
		progress = simulate.NewJSONEmitter(cmd.OutOrStdout())
	}

	sim, err := simulate.New(simulate.Config{
		Population:         cfg.Simulate.Population,
		Groups:             cfg.Simulate.Groups,
		MaxGroupsPerEntity: cfg.Simulate.MaxGroupsPerEntity,
		ChurnSteps:         cfg.Simulate.ChurnSteps,
		Checkpoint:         cfg.Simulate.Checkpoint,
		Seed:               cfg.Simulate.Seed,
		NotifyRemoval:      cfg.Index.NotifyOnEntityRemoval,
	},
		simulate.WithLogger(log),
		simulate.WithProgress(progress),
		simulate.WithManagerOptions(mgrOpts...),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, err := sim.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			pterm.Warning.Println("Simulation interrupted")
		}
		return err
	}

	if !jsonOutput {
		out := cmd.OutOrStdout()
		if err := renderReport(out, report); err != nil {
			return err
		}
		if cfg.Metrics.Enabled && logger.ShouldOutput(verbosity, logger.OutputMetrics) {
			if err := renderMetrics(out, reg); err != nil {
				return err
			}
		}
	}

	if !report.OK() {
		return errors.WithHint(
			errors.Newf("%d index divergences (seed %d)", report.Divergences, report.Seed),
			"rerun with the same --seed and -vv to see which checkpoint diverged first")
	}
	return nil
}

func renderReport(w io.Writer, r *simulate.Report) error {
	rows := make([][]string, 0, len(r.Indexes))
	for _, ix := range r.Indexes {
		status := pterm.Green("exact")
		if ix.Divergences > 0 || ix.Spurious > 0 {
			status = pterm.Red(fmt.Sprintf("%d divergent, %d spurious", ix.Divergences, ix.Spurious))
		}
		rows = append(rows, []string{
			string(ix.Key),
			fmt.Sprintf("%d", ix.Size),
			fmt.Sprintf("%d", ix.Expected),
			fmt.Sprintf("%d", ix.Added),
			fmt.Sprintf("%d", ix.Removed),
			status,
			ix.Filter,
		})
	}
	fmt.Fprintf(w, "\nPopulation %s after %s steps (seed %d)\n",
		pterm.LightCyan(fmt.Sprintf("%d", r.Entities)),
		pterm.LightCyan(fmt.Sprintf("%d", r.Steps)),
		r.Seed)
	return display.Table(w, []string{"Index", "Size", "Expected", "ADD", "REMOVE", "Status", "Filter"}, rows)
}

func renderMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "failed to gather metrics")
	}
	var rows [][]string
	for _, f := range families {
		for _, m := range f.GetMetric() {
			rows = append(rows, []string{f.GetName(), labelString(m.GetLabel()), fmt.Sprintf("%g", metricValue(m))})
		}
	}
	fmt.Fprintln(w)
	return display.Table(w, []string{"Metric", "Labels", "Value"}, rows)
}

func labelString(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, p.GetName()+"="+p.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func metricValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	}
	return 0
}
