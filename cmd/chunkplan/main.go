// Command chunkplan plans and inspects the chunk layout of HDF5 and Zarr
// datasets.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	logLevel string
	log      *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{log: zap.NewNop()}
	cmd := &cobra.Command{
		Use:   "chunkplan",
		Short: "Plan and inspect dataset chunking for HDF5 and Zarr",
		Long: `chunkplan computes chunk and buffer shapes for array datasets and reads
back the chunking and compression of written HDF5 files and Zarr stores.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log, err := newLogger(a.logLevel)
			if err != nil {
				return err
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = a.log.Sync()
		},
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	cmd.AddCommand(
		newPlanCommand(a),
		newInspectCommand(a),
	)
	return cmd
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	c := zap.NewProductionConfig()
	c.Level = lvl
	c.Encoding = "console"
	c.Sampling = nil
	c.OutputPaths = []string{"stderr"}
	c.ErrorOutputPaths = []string{"stderr"}
	return c.Build()
}

func main() {
	cmd := newRootCommand()
	cmd.SetOut(os.Stdout)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
