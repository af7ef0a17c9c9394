package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/encodeous/dvr/sim"
	"github.com/encodeous/dvr/state"
	"github.com/spf13/cobra"
)

var (
	runTicks    uint64
	runLogPath  string
	runRealtime bool
	runOpts     = sim.Options{Interval: state.DefaultTickInterval}
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Simulate the network",
	Long: `Runs every router in the network until the configured number of ticks has passed, or until no route changes.
Afterwards, every pair of nodes is traced through the forwarding tables and compared against the cheapest path.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			panic(err)
		}
		if cmd.Flags().Changed("ticks") {
			cfg.Ticks = runTicks
		}
		if cmd.Flags().Changed("dead-ticks") {
			cfg.DeadTicks = state.NeighbourDeadTicks
		}
		if cmd.Flags().Changed("poison-gc") {
			cfg.PoisonGcTicks = state.PoisonGcTicks
		}

		runOpts.LogLevel = slog.LevelInfo
		if ok, _ := cmd.Flags().GetBool("verbose"); ok {
			runOpts.LogLevel = slog.LevelDebug
		}
		runOpts.LogPath = runLogPath
		if !runRealtime {
			runOpts.Interval = 0
		}

		v, err := sim.Start(cfg, runOpts)
		if err != nil {
			panic(err)
		}

		tables, err := forwardingYaml(v)
		if err != nil {
			panic(err)
		}
		fmt.Println(tables)
		report := v.Validate()
		writeReport(os.Stdout, report)
		if !report.Converged() {
			os.Exit(2)
		}
	},
	GroupID: "sim",
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("verbose", "v", false, "Verbose output")
	runCmd.Flags().Uint64Var(&runTicks, "ticks", 0, "Number of ticks to run, 0 runs until routes stop changing")
	runCmd.Flags().StringVarP(&runLogPath, "log", "l", "", "Also write logs to this file")
	runCmd.Flags().BoolVar(&runRealtime, "realtime", false, "Tick on a timer instead of as fast as possible")
	runCmd.Flags().DurationVarP(&runOpts.Interval, "interval", "i", runOpts.Interval, "Tick interval in realtime mode")
	runCmd.Flags().Uint64Var(&state.NeighbourDeadTicks, "dead-ticks", state.NeighbourDeadTicks, "Silent ticks before a neighbour is dropped")
	runCmd.Flags().Uint64Var(&state.PoisonGcTicks, "poison-gc", state.PoisonGcTicks, "Ticks before an unreachable route is removed, 0 keeps it")
	runCmd.Flags().BoolVarP(&state.DBG_debug, "debug", "d", false, "Serve /debug/metrics and /debug/vars on :6060")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_table, "ltable", "t", false, "Outputs route tables to the console")
	runCmd.Flags().BoolVarP(&state.DBG_log_route_changes, "lrchange", "g", false, "Outputs route changes to the console")
}
