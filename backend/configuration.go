package backend

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/robert-malhotra/go-chunkplan/graph"
)

// Configuration is the set of dataset plans for one conversion target,
// keyed by location. Entries change only by whole replacement.
type Configuration struct {
	backend  Kind
	datasets map[graph.Location]*DatasetIOConfiguration
}

// New returns an empty configuration for backend k.
func New(k Kind) *Configuration {
	return &Configuration{
		backend:  k,
		datasets: make(map[graph.Location]*DatasetIOConfiguration),
	}
}

// Backend returns the backend every entry targets.
func (c *Configuration) Backend() Kind { return c.backend }

// Len returns the number of datasets.
func (c *Configuration) Len() int { return len(c.datasets) }

// Get returns the configuration at loc.
func (c *Configuration) Get(loc graph.Location) (*DatasetIOConfiguration, bool) {
	d, ok := c.datasets[loc]
	return d, ok
}

// Locations returns the planned locations in lexical order.
func (c *Configuration) Locations() []graph.Location {
	locs := make([]graph.Location, 0, len(c.datasets))
	for loc := range c.datasets {
		locs = append(locs, loc)
	}
	sort.Slice(locs, func(i, j int) bool { return locs[i] < locs[j] })
	return locs
}

// Datasets returns the entries in location order.
func (c *Configuration) Datasets() []*DatasetIOConfiguration {
	locs := c.Locations()
	out := make([]*DatasetIOConfiguration, len(locs))
	for i, loc := range locs {
		out[i] = c.datasets[loc]
	}
	return out
}

// Insert adds a new entry.
func (c *Configuration) Insert(d *DatasetIOConfiguration) error {
	if d == nil {
		return ErrValidation.New("", "nil configuration")
	}
	if d.Backend() != c.backend {
		return ErrBackendMismatch.New(string(d.Location()), d.Backend(), c.backend)
	}
	if _, ok := c.datasets[d.Location()]; ok {
		return ErrDuplicateLocation.New(string(d.Location()))
	}
	c.datasets[d.Location()] = d
	return nil
}

// Override replaces the entry at loc with d. The replacement must keep the
// location, backend and dataset shape of the entry it replaces.
func (c *Configuration) Override(loc graph.Location, d *DatasetIOConfiguration) error {
	if d == nil {
		return ErrValidation.New(string(loc), "nil configuration")
	}
	if d.Location() != loc {
		return ErrValidation.New(string(loc), "replacement is for location "+strconv.Quote(string(d.Location())))
	}
	if d.Backend() != c.backend {
		return ErrBackendMismatch.New(string(loc), d.Backend(), c.backend)
	}
	old, ok := c.datasets[loc]
	if !ok {
		return ErrUnknownLocation.New(string(loc))
	}
	if !equalShape(old.p.Identity.FullShape, d.p.Identity.FullShape) {
		return ErrValidation.New(string(loc), "replacement changes the dataset shape")
	}
	c.datasets[loc] = d
	return nil
}

// Equal reports whether c and o hold equal entries for the same backend.
func (c *Configuration) Equal(o *Configuration) bool {
	if c.backend != o.backend || len(c.datasets) != len(o.datasets) {
		return false
	}
	for loc, d := range c.datasets {
		if !d.Equal(o.datasets[loc]) {
			return false
		}
	}
	return true
}

// Fingerprint returns a hash of the configuration contents. Equal
// configurations have equal fingerprints regardless of insertion order.
func (c *Configuration) Fingerprint() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(c.backend.String())
	for _, d := range c.Datasets() {
		_, _ = h.WriteString("\x00")
		_, _ = h.WriteString(canonical(d))
	}
	return h.Sum64()
}

func canonical(d *DatasetIOConfiguration) string {
	var sb strings.Builder
	sb.WriteString(string(d.p.Location))
	sb.WriteByte('\x1f')
	sb.WriteString(d.p.DatasetName)
	sb.WriteByte('\x1f')
	writeShape(&sb, d.p.Identity.FullShape)
	sb.WriteString(d.p.Identity.Dtype.String())
	sb.WriteByte('\x1f')
	writeShape(&sb, d.p.Plan.ChunkShape)
	writeShape(&sb, d.p.Plan.BufferShape)
	sb.WriteString(d.p.Compression.String())
	return sb.String()
}

func writeShape(sb *strings.Builder, shape []uint64) {
	for i, n := range shape {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(n, 10))
	}
	sb.WriteByte('\x1f')
}
