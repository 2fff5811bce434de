// Package cmd provides the command-line interface of the simulator.
package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/sarchlab/mesibus/monitoring"
	"github.com/sarchlab/mesibus/record"
	"github.com/sarchlab/mesibus/report"
	"github.com/sarchlab/mesibus/simulation"
	"github.com/sarchlab/mesibus/tracing"
)

var (
	traceBase  string
	setBits    int
	assoc      int
	blockBits  int
	outputPath string

	recordPath   string
	busTracePath string
	monitor      bool
	monitorPort  int
	monitorOpen  bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mesibus",
	Short: "mesibus simulates four cores with MESI-coherent L1 caches on a snooping bus.",
	Long: `mesibus replays per-core memory reference traces through private ` +
		`write-back L1 data caches kept coherent by a snooping MESI protocol ` +
		`over a single shared bus, and reports deterministic hit, miss, ` +
		`traffic, and cycle statistics.`,
	SilenceUsage: true,
	RunE:         runSimulation,
}

// Execute runs the root command and sets the process exit status.
func Execute() {
	// A .env file can pre-set MESIBUS_TRACE and MESIBUS_OUTPUT; explicit
	// flags still win.
	_ = godotenv.Load()

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.Flags()

	flags.StringVarP(&traceBase, "trace", "t", "app1",
		"trace file prefix; <prefix>_proc0.trace through _proc3.trace are loaded")
	flags.IntVarP(&setBits, "set-bits", "s", 6,
		"number of set index bits; the cache has 2^s sets")
	flags.IntVarP(&assoc, "assoc", "E", 2,
		"associativity; lines per set")
	flags.IntVarP(&blockBits, "block-bits", "b", 5,
		"number of block offset bits; blocks are 2^b bytes")
	flags.StringVarP(&outputPath, "output", "o", "",
		"output file; default standard output")

	flags.StringVar(&recordPath, "record", "",
		"record final statistics into this SQLite database")
	flags.StringVar(&busTracePath, "bus-trace", "",
		"write one CSV row per bus transaction into this file")
	flags.BoolVar(&monitor, "monitor", false,
		"serve live progress over HTTP")
	flags.IntVar(&monitorPort, "monitor-port", 0,
		"port of the monitoring server; 0 picks a random port")
	flags.BoolVar(&monitorOpen, "monitor-open", false,
		"open the monitoring page in the default browser")
}

func runSimulation(cmd *cobra.Command, _ []string) error {
	applyEnvDefaults(cmd)

	if err := validateGeometry(); err != nil {
		return err
	}

	s := simulation.MakeBuilder().
		WithSetBits(setBits).
		WithWayAssociativity(assoc).
		WithBlockBits(blockBits).
		Build()

	if err := s.LoadTraces(traceBase); err != nil {
		return err
	}

	if busTracePath != "" {
		backend := tracing.NewCSVBackend(busTracePath)
		backend.Init()
		s.AcceptHook(backend)
	}

	if monitor || monitorOpen || monitorPort != 0 {
		m := monitoring.NewMonitor(s).WithPortNumber(monitorPort)
		if monitorOpen {
			m = m.WithBrowserPage()
		}
		m.StartServer()
	}

	s.Run()

	if recordPath != "" {
		record.StoreResults(record.New(recordPath), s)
	}

	return writeReport(s)
}

func applyEnvDefaults(cmd *cobra.Command) {
	if !cmd.Flags().Changed("trace") {
		if v := os.Getenv("MESIBUS_TRACE"); v != "" {
			traceBase = v
		}
	}

	if !cmd.Flags().Changed("output") {
		if v := os.Getenv("MESIBUS_OUTPUT"); v != "" {
			outputPath = v
		}
	}
}

func validateGeometry() error {
	if setBits < 0 || setBits > 30 {
		return fmt.Errorf("set index bits must be between 0 and 30, got %d", setBits)
	}

	if assoc < 1 {
		return fmt.Errorf("associativity must be at least 1, got %d", assoc)
	}

	if blockBits < 2 || blockBits > 30 {
		return fmt.Errorf("block offset bits must be between 2 and 30, got %d", blockBits)
	}

	if setBits+blockBits > 31 {
		return fmt.Errorf(
			"s=%d and b=%d leave no tag bits in a 32-bit address",
			setBits, blockBits)
	}

	return nil
}

func writeReport(s *simulation.Simulation) error {
	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("opening output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return report.Write(out, s)
}
