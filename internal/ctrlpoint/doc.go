package ctrlpoint

// Package ctrlpoint extracts control points from registration output files.
//
// A control-point file is free-form text. The only structure it must carry:
// - a line containing "Control Point:" anywhere in it
// - immediately followed by a coordinate line: tag LON_DMS tag LAT_DMS tag ELEV
//
// Everything else in the file is ignored.
