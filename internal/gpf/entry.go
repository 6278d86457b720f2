package gpf

import (
	"fmt"
	"io"
	"strings"

	"gpfimport/internal/ctrlpoint"
)

// PointTypeXYZ marks a control point whose ground coordinates are fixed.
const PointTypeXYZ = 3

// fieldSep separates the coordinate fields of an entry.
var fieldSep = strings.Repeat(" ", 8)

// Vec3 is an accuracy or offset triple as written in an entry.
type Vec3 struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Layout holds the fixed per-entry values.
type Layout struct {
	Accuracy Vec3
	Offset   Vec3
}

// DefaultLayout is the standard XYZ control accuracy with no offset.
func DefaultLayout() Layout {
	return Layout{Accuracy: Vec3{X: 20, Y: 20, Z: 1}}
}

// WriteEntry writes rec as a four-line GPF entry followed by a blank line:
//
//	<id>_<source> <use> 3
//	<lat>        <lon>        <elev>
//	<accuracy x y z>
//	<offset x y z>
func WriteEntry(w io.Writer, rec ctrlpoint.Record, l Layout) error {
	use := 0
	if rec.UseBox {
		use = 1
	}
	_, err := fmt.Fprintf(w, "%d_%s %d %d\n%.14f%s%.14f%s%.14f\n%s\n%s\n\n",
		rec.ID, rec.SourceName, use, PointTypeXYZ,
		rec.LatRad, fieldSep, rec.LonRad, fieldSep, rec.Elevation,
		formatVec3(l.Accuracy),
		formatVec3(l.Offset),
	)
	return err
}

func formatVec3(v Vec3) string {
	return fmt.Sprintf("%f %f %f", v.X, v.Y, v.Z)
}
