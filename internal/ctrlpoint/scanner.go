package ctrlpoint

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gpfimport/internal/coord"
	"gpfimport/internal/importerr"
)

// Marker introduces a control point; the line after it holds the coordinates.
const Marker = "Control Point:"

// Record is one control point ready to be written to a GPF.
type Record struct {
	ID         int
	SourceName string
	UseBox     bool
	coord.Triple

	// Line is the 1-based line number of the coordinate line.
	Line int
}

// Skipped describes a record dropped in best-effort mode.
type Skipped struct {
	Path string
	Line int
	Err  error
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s:%d: %v", s.Path, s.Line, s.Err)
}

type Options struct {
	UseBox bool
	// BestEffort skips malformed coordinate lines instead of failing. A
	// skipped record does not consume a point id.
	BestEffort bool
}

// Scanner yields the control points of one file in file order. It is lazy
// and cannot be restarted; the point id counter is threaded in through
// NewScanner and read back with NextID.
type Scanner struct {
	r      *bufio.Reader
	closer io.Closer
	line   string
	eof    bool

	path   string
	source string
	opts   Options
	nextID int

	lineNo  int
	rec     Record
	skipped []Skipped
	err     error
	done    bool
}

// SourceName is the base name of path without its extension.
func SourceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// NewScanner reads control points from r. path names the source for ids and
// diagnostics; ids start at nextID.
func NewScanner(r io.Reader, path string, nextID int, opts Options) *Scanner {
	return &Scanner{
		r:      bufio.NewReaderSize(r, 64*1024),
		path:   path,
		source: SourceName(path),
		opts:   opts,
		nextID: nextID,
	}
}

// Open opens a control-point file. The caller must Close the scanner.
func Open(path string, nextID int, opts Options) (*Scanner, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, importerr.NotFound("open control file", path, err)
		}
		return nil, fmt.Errorf("open control file %s: %w", path, err)
	}
	sc := NewScanner(f, path, nextID, opts)
	sc.closer = f
	return sc, nil
}

// Scan advances to the next control point. It returns false at end of input
// or on the first error, which Err then reports.
func (sc *Scanner) Scan() bool {
	if sc.done {
		return false
	}
	for sc.next() {
		if !strings.Contains(sc.line, Marker) {
			continue
		}
		markerLine := sc.lineNo

		if !sc.next() {
			if sc.err != nil {
				return sc.finish()
			}
			err := importerr.Format("extract", Marker,
				fmt.Errorf("%s:%d: marker has no coordinate line", sc.path, markerLine))
			if sc.skip(markerLine, err) {
				continue
			}
			return sc.finish()
		}

		line := strings.TrimSpace(sc.line)
		tr, err := coord.Convert(line)
		if err != nil {
			err = fmt.Errorf("%s:%d: %w", sc.path, sc.lineNo, err)
			if sc.skip(sc.lineNo, err) {
				continue
			}
			return sc.finish()
		}

		sc.rec = Record{
			ID:         sc.nextID,
			SourceName: sc.source,
			UseBox:     sc.opts.UseBox,
			Triple:     tr,
			Line:       sc.lineNo,
		}
		sc.nextID++
		return true
	}
	return sc.finish()
}

// next reads one line of any length; lines are not capped so oversized
// free-form text never stops the scan.
func (sc *Scanner) next() bool {
	if sc.eof {
		return false
	}
	line, err := sc.r.ReadString('\n')
	if err != nil {
		sc.eof = true
		if !errors.Is(err, io.EOF) {
			if sc.err == nil {
				sc.err = fmt.Errorf("read control file %s: %w", sc.path, err)
			}
			return false
		}
		if line == "" {
			return false
		}
	}
	sc.lineNo++
	sc.line = strings.TrimRight(line, "\r\n")
	return true
}

// skip records err in best-effort mode and reports whether scanning goes on.
func (sc *Scanner) skip(line int, err error) bool {
	if sc.opts.BestEffort {
		sc.skipped = append(sc.skipped, Skipped{Path: sc.path, Line: line, Err: err})
		return true
	}
	sc.err = err
	return false
}

func (sc *Scanner) finish() bool {
	sc.done = true
	sc.rec = Record{}
	return false
}

// Record returns the control point found by the last successful Scan.
func (sc *Scanner) Record() Record { return sc.rec }

func (sc *Scanner) Err() error { return sc.err }

// NextID is the id the next record would receive.
func (sc *Scanner) NextID() int { return sc.nextID }

// Skipped lists the records dropped so far in best-effort mode.
func (sc *Scanner) Skipped() []Skipped { return sc.skipped }

func (sc *Scanner) Close() error {
	if sc.closer == nil {
		return nil
	}
	c := sc.closer
	sc.closer = nil
	return c.Close()
}

// ExtractAll reads every control point of the file at path.
func ExtractAll(path string, nextID int, opts Options) ([]Record, int, []Skipped, error) {
	sc, err := Open(path, nextID, opts)
	if err != nil {
		return nil, nextID, nil, err
	}
	defer sc.Close()

	var recs []Record
	for sc.Scan() {
		recs = append(recs, sc.Record())
	}
	if err := sc.Err(); err != nil {
		return nil, nextID, sc.Skipped(), err
	}
	return recs, sc.NextID(), sc.Skipped(), nil
}
