package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/robert-malhotra/go-chunkplan/backend"
)

const (
	formatTable = "table"
	formatYAML  = "yaml"
)

func printConfiguration(w io.Writer, c *backend.Configuration, format string) error {
	switch format {
	case formatTable:
		printTable(w, c)
		return nil
	case formatYAML:
		return c.WriteYAML(w)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printTable(w io.Writer, c *backend.Configuration) {
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Location", "Shape", "Dtype", "Chunks", "Chunk size", "Buffer", "Buffer size", "Compression"})
	out.SetAutoWrapText(false)
	out.SetAlignment(tablewriter.ALIGN_LEFT)

	for _, d := range c.Datasets() {
		id := d.Identity()
		plan := d.Plan()
		chunks := formatShape(plan.ChunkShape)
		if d.Provisional() {
			chunks += " *"
		}
		out.Append([]string{
			string(d.Location()),
			formatShape(id.FullShape),
			id.Dtype.String(),
			chunks,
			humanize.Bytes(plan.ChunkBytes(id.ItemSize)),
			formatShape(plan.BufferShape),
			humanize.Bytes(plan.BufferBytes(id.ItemSize)),
			d.Compression().String(),
		})
	}
	out.SetFooter([]string{"", "", "", "", "", "", strconv.Itoa(c.Len()) + " datasets", c.Backend().String()})
	out.Render()
}

func formatShape(shape []uint64) string {
	parts := make([]string, len(shape))
	for i, n := range shape {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
