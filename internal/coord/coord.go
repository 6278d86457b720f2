// Package coord converts registration-output coordinate lines from
// degrees:minutes:seconds into the radians a GPF stores.
package coord

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gpfimport/internal/importerr"
)

// Token positions in a coordinate line: [tag LONdms tag LATdms tag ELEV].
const (
	lonToken  = 1
	latToken  = 3
	elevToken = 5
	minTokens = elevToken + 1
)

// Triple is one converted ground coordinate. Elevation keeps the input units.
type Triple struct {
	LatRad    float64
	LonRad    float64
	Elevation float64
}

// Convert parses a coordinate line. Labels at positions 0, 2 and 4 are not
// checked. Latitude range is passed through unvalidated.
func Convert(line string) (Triple, error) {
	fields := strings.Fields(line)
	if len(fields) < minTokens {
		return Triple{}, importerr.Format("convert", line,
			fmt.Errorf("want at least %d tokens, got %d", minTokens, len(fields)))
	}

	lonDeg, err := ParseDMS(fields[lonToken])
	if err != nil {
		return Triple{}, err
	}
	latDeg, err := ParseDMS(fields[latToken])
	if err != nil {
		return Triple{}, err
	}
	elev, err := parseFinite(fields[elevToken])
	if err != nil {
		return Triple{}, importerr.Format("elevation", fields[elevToken], err)
	}

	return Triple{
		LatRad:    Radians(latDeg),
		LonRad:    Radians(lonDeg),
		Elevation: elev,
	}, nil
}

// ParseDMS parses "D:M:S" into signed decimal degrees. The sign is taken once
// from the degree field and applied to |D| + M/60 + S/3600, so "-10:15:36" is
// -10.26. The sign comes from the parsed degree value, so "-0:30:0" reads as
// +0.5.
func ParseDMS(s string) (float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, importerr.Format("dms", s, fmt.Errorf("want D:M:S, got %d field(s)", len(parts)))
	}

	var v [3]float64
	for i, p := range parts {
		f, err := parseFinite(p)
		if err != nil {
			return 0, importerr.Format("dms", s, err)
		}
		v[i] = f
	}

	dec := math.Abs(v[0]) + v[1]/60.0 + v[2]/3600.0
	if v[0] < 0 {
		dec = -dec
	}
	return dec, nil
}

// Radians converts decimal degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return v, nil
}
