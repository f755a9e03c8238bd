// Package disks holds a table of named image-size presets that cmd/mkfs
// accepts in place of a raw byte count, adapted from the teacher repo's
// disks.go disk-geometry table (dargueta/disko). The teacher's geometry
// model (heads/tracks/sectors, bits per address unit) describes physical
// disk hardware this filesystem never addresses directly; only the
// preset-by-name idea and its gocsv-backed loading survive, narrowed down to
// the one dimension myfs/superblock.FormatImage actually takes: a byte
// count.
package disks

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry is one named image-size preset an operator can pass to cmd/mkfs
// instead of typing a byte count.
type Geometry struct {
	Name               string `csv:"name"`
	Slug               string `csv:"slug"`
	FirstYearAvailable uint   `csv:"first_year_available"`
	FormFactor         string `csv:"form_factor"`
	SizeBytes          int64  `csv:"size_bytes"`
	Notes              string `csv:"notes"`
}

//go:embed disk-geometries.csv
var diskGeometriesRawCSV string

var diskGeometries = map[string]Geometry{}

// Lookup returns the preset registered under slug.
func Lookup(slug string) (Geometry, error) {
	g, ok := diskGeometries[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined image size exists with slug %q", slug)
	}
	return g, nil
}

// Slugs returns every registered preset slug, in the order the CSV defines
// them, for printing in cmd/mkfs's --help output.
func Slugs() []string {
	slugs := make([]string, 0, len(diskGeometries))
	for _, g := range ordered {
		slugs = append(slugs, g.Slug)
	}
	return slugs
}

var ordered []Geometry

func init() {
	reader := strings.NewReader(diskGeometriesRawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := diskGeometries[row.Slug]; exists {
			return fmt.Errorf("duplicate definition for image size preset %q", row.Slug)
		}
		diskGeometries[row.Slug] = row
		ordered = append(ordered, row)
		return nil
	})
	if err != nil {
		panic(err)
	}
}
