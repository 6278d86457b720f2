package gpf

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gpfimport/internal/ctrlpoint"
	"gpfimport/internal/fsutil"
	"gpfimport/internal/importerr"
	"gpfimport/internal/logging"
)

// State is the progress of one import run.
type State int

const (
	StateInit State = iota
	StateBackedUp
	StateAppending
	StateCountPatched
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateBackedUp:
		return "backed-up"
	case StateAppending:
		return "appending"
	case StateCountPatched:
		return "count-patched"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FileResult summarizes one control-point file of a run.
type FileResult struct {
	Name     string
	Path     string
	FirstID  int
	Appended int
}

// Result describes a finished or aborted run.
type Result struct {
	State State

	GPFPath    string
	BackupPath string
	TempPath   string

	OriginalCount int
	FinalCount    int
	Appended      int

	Files   []FileResult
	Skipped []ctrlpoint.Skipped

	// Unchanged is set when there was nothing to import and no file was
	// touched.
	Unchanged bool
}

// Updater appends control points to a project's GPF.
//
// A run copies the GPF to <name>_backup.gpf and <name>_temp.gpf, appends
// every entry to the temp copy, rewrites its point count and finally renames
// it over the live GPF. Until that rename the live GPF is never written.
// Runs against the same project must not overlap.
type Updater struct {
	ProjectDir string
	Project    string

	// Resolve locates a control-point file. Nil means the name is used as
	// given.
	Resolve func(name string) (string, error)

	Options ctrlpoint.Options
	Logger  *slog.Logger

	// Layout defaults to DefaultLayout when left zero.
	Layout Layout
}

// GPFPath is {ProjectDir}/{Project}.gpf.
func (u *Updater) GPFPath() string {
	return filepath.Join(u.ProjectDir, u.Project+".gpf")
}

// SiblingPath inserts suffix before the extension of path.
func SiblingPath(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + suffix + ext
}

func (u *Updater) logger() *slog.Logger {
	if u.Logger == nil {
		return logging.Noop()
	}
	return u.Logger
}

func (u *Updater) layout() Layout {
	if u.Layout == (Layout{}) {
		return DefaultLayout()
	}
	return u.Layout
}

func (u *Updater) resolve(name string) (string, error) {
	if u.Resolve != nil {
		return u.Resolve(name)
	}
	return ctrlpoint.Resolver{}.Resolve(name)
}

// Run imports the control points of files, in order. Any error aborts the
// whole run: the live GPF is left as it was, the temp copy is removed and
// the backup stays for the operator.
func (u *Updater) Run(files []string) (res Result, err error) {
	log := u.logger()
	res.GPFPath = u.GPFPath()
	res.BackupPath = SiblingPath(res.GPFPath, "_backup")
	res.TempPath = SiblingPath(res.GPFPath, "_temp")

	fi, err := os.Stat(res.GPFPath)
	if err != nil || fi.IsDir() {
		if err == nil {
			err = errors.New("is a directory")
		}
		res.State = StateAborted
		return res, importerr.NotFound("locate gpf", res.GPFPath, err)
	}
	log.Debug("found gpf", "path", res.GPFPath)

	if len(files) == 0 {
		count, err := ReadCount(res.GPFPath)
		if err != nil {
			res.State = StateAborted
			return res, err
		}
		res.OriginalCount, res.FinalCount = count, count
		res.Unchanged = true
		log.Info("no control point files given; gpf left untouched", "count", count)
		return res, nil
	}

	tempCreated := false
	defer func() {
		if err == nil {
			return
		}
		res.State = StateAborted
		if tempCreated {
			if rmErr := os.Remove(res.TempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				log.Warn("remove temp gpf failed", "path", res.TempPath, "err", rmErr)
			}
		}
		log.Error("import aborted", "err", err, "backup", res.BackupPath)
	}()

	// Init -> BackedUp
	if err := fsutil.CopyFile(res.GPFPath, res.BackupPath, true); err != nil {
		return res, importerr.IOWrite("backup gpf", res.BackupPath, err)
	}
	log.Info("backup written", "path", res.BackupPath)
	tempCreated = true
	if err := fsutil.CopyFile(res.GPFPath, res.TempPath, false); err != nil {
		return res, importerr.IOWrite("create temp gpf", res.TempPath, err)
	}
	res.State = StateBackedUp
	log.Debug("temp gpf created", "path", res.TempPath)

	// BackedUp -> Appending
	count, err := ReadCount(res.GPFPath)
	if err != nil {
		return res, err
	}
	res.OriginalCount = count
	log.Debug("read point count", "count", count)

	paths := make([]string, len(files))
	for i, name := range files {
		p, err := u.resolve(name)
		if err != nil {
			return res, err
		}
		paths[i] = p
	}

	res.State = StateAppending
	next, err := u.appendAll(&res, files, paths, count)
	if err != nil {
		return res, err
	}
	res.Appended = next - count
	res.FinalCount = next

	// Appending -> CountPatched
	if err := PatchCount(res.TempPath, count, next); err != nil {
		if errors.Is(err, importerr.ErrCorruptFile) {
			return res, err
		}
		return res, importerr.IOWrite("patch point count", res.TempPath, err)
	}
	res.State = StateCountPatched
	log.Info("point count updated", "from", count, "to", next)

	// CountPatched -> Committed
	if err := fsutil.Replace(res.TempPath, res.GPFPath); err != nil {
		return res, importerr.IOWrite("replace gpf", res.GPFPath, err)
	}
	tempCreated = false
	res.State = StateCommitted
	log.Info("gpf updated", "path", res.GPFPath, "appended", res.Appended, "skipped", len(res.Skipped))
	return res, nil
}

// appendAll writes the entries of every file to the temp GPF and returns
// the next free point id.
func (u *Updater) appendAll(res *Result, names, paths []string, next int) (int, error) {
	log := u.logger()

	sep, err := finalNewline(res.TempPath)
	if err != nil {
		return next, importerr.IOWrite("inspect temp gpf", res.TempPath, err)
	}

	f, err := os.OpenFile(res.TempPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return next, importerr.IOWrite("open temp gpf", res.TempPath, err)
	}
	w := bufio.NewWriterSize(f, 64*1024)
	if sep != "" {
		if _, err := w.WriteString(sep); err != nil {
			_ = f.Close()
			return next, importerr.IOWrite("append to temp gpf", res.TempPath, err)
		}
	}

	for i, p := range paths {
		log.Debug("reading control points", "file", p)
		fr := FileResult{Name: names[i], Path: p, FirstID: next}
		n, err := u.appendFile(w, p, next)
		if err != nil {
			_ = f.Close()
			return next, err
		}
		fr.Appended = n.appended
		res.Files = append(res.Files, fr)
		res.Skipped = append(res.Skipped, n.skipped...)
		for _, s := range n.skipped {
			log.Warn("skipped control point", "file", s.Path, "line", s.Line, "err", s.Err)
		}
		next = n.next
		log.Info("control points appended", "file", p, "count", fr.Appended)
	}

	if err := w.Flush(); err != nil {
		_ = f.Close()
		return next, importerr.IOWrite("append to temp gpf", res.TempPath, err)
	}
	if err := f.Close(); err != nil {
		return next, importerr.IOWrite("close temp gpf", res.TempPath, err)
	}
	return next, nil
}

type fileOutcome struct {
	next     int
	appended int
	skipped  []ctrlpoint.Skipped
}

func (u *Updater) appendFile(w io.Writer, path string, next int) (fileOutcome, error) {
	sc, err := ctrlpoint.Open(path, next, u.Options)
	if err != nil {
		return fileOutcome{}, err
	}
	defer sc.Close()

	var out fileOutcome
	for sc.Scan() {
		if err := WriteEntry(w, sc.Record(), u.layout()); err != nil {
			return fileOutcome{}, importerr.IOWrite("append to temp gpf", path, err)
		}
		out.appended++
	}
	if err := sc.Err(); err != nil {
		return fileOutcome{}, err
	}
	out.next = sc.NextID()
	out.skipped = sc.Skipped()
	return out, nil
}

// finalNewline returns the line ending to write before the first new entry:
// empty when the file already ends in a newline, otherwise the ending the
// GPF header uses.
func finalNewline(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if len(b) == 0 || b[len(b)-1] == '\n' {
		return "", nil
	}
	h, _, err := ParseHeader(b)
	if err != nil {
		return "\n", nil
	}
	return h.LineEnding(), nil
}
