package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-chunkplan/backend"
	"github.com/robert-malhotra/go-chunkplan/dtype"
	"github.com/robert-malhotra/go-chunkplan/graph"
)

type planFlags struct {
	shape     []string
	dtype     string
	name      string
	backend   string
	chunkMB   float64
	bufferGB  float64
	overrides string
	format    string
}

func newPlanCommand(a *app) *cobra.Command {
	f := &planFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Compute the chunk and buffer shapes of a dataset",
		Example: `  chunkplan plan --shape 64,30000000 --dtype float64
  chunkplan plan --shape 1000,1000 --dtype "<i2" --backend zarr --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPlan(cmd, a, f)
		},
	}
	flags := cmd.Flags()
	flags.StringSliceVar(&f.shape, "shape", nil, "dataset shape, comma separated")
	flags.StringVar(&f.dtype, "dtype", "float64", "element type, by name (float64, int16, bool, str12) or type string (<f8)")
	flags.StringVar(&f.name, "name", "data", "dataset location")
	flags.StringVar(&f.backend, "backend", "hdf5", "storage backend: hdf5 or zarr")
	flags.Float64Var(&f.chunkMB, "chunk-mb", 10, "chunk size budget in MB")
	flags.Float64Var(&f.bufferGB, "buffer-gb", 1, "buffer size budget in GB")
	flags.StringVar(&f.overrides, "overrides", "", "YAML file with per-dataset overrides")
	flags.StringVar(&f.format, "format", formatTable, "output format: table or yaml")
	_ = cmd.MarkFlagRequired("shape")
	return cmd
}

func runPlan(cmd *cobra.Command, a *app, f *planFlags) error {
	shape, err := parseShape(f.shape)
	if err != nil {
		return err
	}
	d, err := parseDtype(f.dtype)
	if err != nil {
		return err
	}
	kind, err := backend.ParseKind(f.backend)
	if err != nil {
		return err
	}
	loc := graph.Location(strings.Trim(f.name, "/"))
	if err := loc.Validate(); err != nil {
		return err
	}

	// Planning needs only shape and type, so the dataset is a lazy array
	// that is never read.
	root := nest(loc, graph.NewLazyArray(shape, d, nil))
	cfg, err := backend.FromObjectGraph(cmd.Context(), root, kind,
		backend.WithChunkMB(f.chunkMB),
		backend.WithBufferGB(f.bufferGB),
		backend.WithLogger(a.log))
	if err != nil {
		return err
	}

	if f.overrides != "" {
		file, err := os.Open(f.overrides)
		if err != nil {
			return err
		}
		defer file.Close()
		doc, err := backend.ReadOverrides(file)
		if err != nil {
			return err
		}
		if err := cfg.ApplyOverrides(doc); err != nil {
			return err
		}
	}
	return printConfiguration(cmd.OutOrStdout(), cfg, f.format)
}

// nest builds the groups leading to loc around a single dataset.
func nest(loc graph.Location, value any) *graph.Group {
	segs := loc.Segments()
	var obj graph.Object = graph.NewDataset(segs[len(segs)-1], value)
	for i := len(segs) - 2; i >= 0; i-- {
		obj = graph.NewGroup(segs[i], obj)
	}
	return graph.NewGroup("root", obj)
}

func parseShape(parts []string) ([]uint64, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("shape is empty")
	}
	shape := make([]uint64, len(parts))
	for i, p := range parts {
		n, err := cast.ToUint64E(strings.ReplaceAll(strings.TrimSpace(p), "_", ""))
		if err != nil {
			return nil, fmt.Errorf("shape axis %d: %w", i, err)
		}
		shape[i] = n
	}
	return shape, nil
}

var dtypeNames = map[string]dtype.Descriptor{
	"bool":    dtype.Bool8,
	"int8":    dtype.Int8,
	"int16":   dtype.Int16,
	"int32":   dtype.Int32,
	"int64":   dtype.Int64,
	"uint8":   dtype.Uint8,
	"uint16":  dtype.Uint16,
	"uint32":  dtype.Uint32,
	"uint64":  dtype.Uint64,
	"float32": dtype.Float32,
	"float64": dtype.Float64,
}

func parseDtype(s string) (dtype.Descriptor, error) {
	s = strings.TrimSpace(s)
	name := strings.ToLower(s)
	if d, ok := dtypeNames[name]; ok {
		return d, nil
	}
	if rest, ok := strings.CutPrefix(name, "str"); ok {
		n, err := cast.ToUint64E(rest)
		if err != nil || n == 0 {
			return dtype.Descriptor{}, fmt.Errorf("invalid string width in %q", s)
		}
		return dtype.StringOf(n), nil
	}
	return dtype.ParseTypestr(s)
}
