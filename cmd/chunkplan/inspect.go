package main

import (
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-chunkplan/backend"
)

type inspectFlags struct {
	backend  string
	bufferGB float64
	format   string
}

func newInspectCommand(a *app) *cobra.Command {
	f := &inspectFlags{}
	cmd := &cobra.Command{
		Use:   "inspect PATH",
		Short: "Show the chunking and compression of a written file",
		Long: `inspect reads the datasets of an HDF5 file or Zarr store and prints their
chunk shapes and compression. Buffer shapes are recomputed for the buffer
budget. Chunk shapes marked with * were adjusted rather than read, as for
datasets stored without chunks.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, a, f, args[0])
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.backend, "backend", "", "storage backend: hdf5 or zarr (detected when empty)")
	flags.Float64Var(&f.bufferGB, "buffer-gb", 1, "buffer size budget in GB")
	flags.StringVar(&f.format, "format", formatTable, "output format: table or yaml")
	return cmd
}

func runInspect(cmd *cobra.Command, a *app, f *inspectFlags, path string) error {
	var (
		kind backend.Kind
		err  error
	)
	if f.backend == "" {
		kind, err = backend.DetectKind(path)
	} else {
		kind, err = backend.ParseKind(f.backend)
	}
	if err != nil {
		return err
	}

	cfg, err := backend.FromWrittenFile(path, kind,
		backend.WithBufferGB(f.bufferGB),
		backend.WithLogger(a.log))
	if err != nil {
		return err
	}
	return printConfiguration(cmd.OutOrStdout(), cfg, f.format)
}
