package gpf

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"gpfimport/internal/ctrlpoint"
	"gpfimport/internal/importerr"
)

const baseGPF = "GROUND POINT FILE\n" +
	"2\n" +
	"0_tie 0 0\n" +
	"0.10000000000000        0.20000000000000        10.00000000000000\n" +
	"20.000000 20.000000 1.000000\n" +
	"0.000000 0.000000 0.000000\n" +
	"\n" +
	"1_tie 0 0\n" +
	"0.30000000000000        0.40000000000000        20.00000000000000\n" +
	"20.000000 20.000000 1.000000\n" +
	"0.000000 0.000000 0.000000\n" +
	"\n"

type project struct {
	dir  string
	name string
	gpf  string
}

func newProject(t *testing.T, gpfBody string) project {
	t.Helper()
	dir := t.TempDir()
	p := project{dir: dir, name: "M1234", gpf: filepath.Join(dir, "M1234.gpf")}
	if err := os.WriteFile(p.gpf, []byte(gpfBody), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return p
}

func (p project) writeCtrl(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(p.dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func (p project) updater() *Updater {
	return &Updater{
		ProjectDir: p.dir,
		Project:    p.name,
		Resolve:    ctrlpoint.Resolver{Dirs: []string{p.dir}}.Resolve,
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	return string(b)
}

func requireNotExist(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be absent, stat err=%v", path, err)
	}
}

func pointIDs(t *testing.T, gpf string) []string {
	t.Helper()
	var ids []string
	for _, line := range strings.Split(gpf, "\n") {
		if strings.HasSuffix(line, " 0 3") || strings.HasSuffix(line, " 1 3") {
			ids = append(ids, strings.Fields(line)[0])
		}
	}
	return ids
}

const ctrlA = `registration of A
Control Point: 1
Lon: 45:30:0 Lat: -10:15:36 Elev: 1200.5
Control Point: 2
Lon: 1:0:0 Lat: 2:0:0 Elev: -3
`

const ctrlB = `Control Point: 1
Lon: 0:0:0 Lat: 0:30:0 Elev: 0
`

func TestRun_AppendsAndPatchesCount(t *testing.T) {
	p := newProject(t, baseGPF)
	p.writeCtrl(t, "siteA.txt", ctrlA)
	p.writeCtrl(t, "siteB.dat", ctrlB)

	res, err := p.updater().Run([]string{"siteA.txt", "siteB.dat"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.State != StateCommitted {
		t.Fatalf("state=%s want committed", res.State)
	}
	if res.OriginalCount != 2 || res.FinalCount != 5 || res.Appended != 3 {
		t.Fatalf("counts=%d/%d/%d want 2/5/3", res.OriginalCount, res.FinalCount, res.Appended)
	}

	got := readFile(t, p.gpf)
	if !strings.HasPrefix(got, "GROUND POINT FILE\n5\n0_tie 0 0\n") {
		t.Fatalf("unexpected header: %q", got[:40])
	}
	wantIDs := []string{"2_siteA", "3_siteA", "4_siteB"}
	if ids := pointIDs(t, got); !reflect.DeepEqual(ids, wantIDs) {
		t.Fatalf("ids=%v want %v", ids, wantIDs)
	}
	if !strings.HasSuffix(got, "4_siteB 0 3\n"+
		"0.00872664625997        0.00000000000000        0.00000000000000\n"+
		"20.000000 20.000000 1.000000\n"+
		"0.000000 0.000000 0.000000\n\n") {
		t.Fatalf("unexpected tail: %q", got[len(got)-120:])
	}
	if !strings.Contains(got, baseGPF[len("GROUND POINT FILE\n2\n"):]) {
		t.Fatalf("existing entries were not preserved")
	}

	if backup := readFile(t, res.BackupPath); backup != baseGPF {
		t.Fatalf("backup differs from pre-run gpf")
	}
	if res.BackupPath != filepath.Join(p.dir, "M1234_backup.gpf") {
		t.Fatalf("backup path=%s", res.BackupPath)
	}
	requireNotExist(t, res.TempPath)

	if len(res.Files) != 2 || res.Files[0].FirstID != 2 || res.Files[1].FirstID != 4 {
		t.Fatalf("files=%+v", res.Files)
	}
}

func TestRun_SecondRunContinuesNumbering(t *testing.T) {
	p := newProject(t, baseGPF)
	p.writeCtrl(t, "siteB.txt", ctrlB)

	u := p.updater()
	if _, err := u.Run([]string{"siteB.txt"}); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	res, err := u.Run([]string{"siteB.txt"})
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}
	if res.OriginalCount != 3 || res.FinalCount != 4 {
		t.Fatalf("counts=%d/%d want 3/4", res.OriginalCount, res.FinalCount)
	}
	ids := pointIDs(t, readFile(t, p.gpf))
	if !reflect.DeepEqual(ids, []string{"2_siteB", "3_siteB"}) {
		t.Fatalf("ids=%v", ids)
	}
}

func TestRun_MalformedCoordinateAbortsWithoutMutation(t *testing.T) {
	p := newProject(t, baseGPF)
	p.writeCtrl(t, "good.txt", ctrlB)
	p.writeCtrl(t, "bad.txt", "Control Point: 9\nLon: abc:1:2 Lat: 2:0:0 Elev: 3\n")

	res, err := p.updater().Run([]string{"good.txt", "bad.txt"})
	if !errors.Is(err, importerr.ErrFormat) {
		t.Fatalf("err=%v want ErrFormat", err)
	}
	if res.State != StateAborted {
		t.Fatalf("state=%s want aborted", res.State)
	}
	if got := readFile(t, p.gpf); got != baseGPF {
		t.Fatalf("live gpf was modified")
	}
	if backup := readFile(t, res.BackupPath); backup != baseGPF {
		t.Fatalf("backup differs from pre-run gpf")
	}
	requireNotExist(t, res.TempPath)
}

func TestRun_MissingControlFileAborts(t *testing.T) {
	p := newProject(t, baseGPF)
	p.writeCtrl(t, "good.txt", ctrlB)

	_, err := p.updater().Run([]string{"good.txt", "missing.txt"})
	if !errors.Is(err, importerr.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if got := readFile(t, p.gpf); got != baseGPF {
		t.Fatalf("live gpf was modified")
	}
	requireNotExist(t, filepath.Join(p.dir, "M1234_temp.gpf"))
}

func TestRun_MissingGPF(t *testing.T) {
	dir := t.TempDir()
	u := &Updater{ProjectDir: dir, Project: "nope"}
	res, err := u.Run([]string{"a.txt"})
	if !errors.Is(err, importerr.ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
	if !strings.Contains(err.Error(), filepath.Join(dir, "nope.gpf")) {
		t.Fatalf("err=%q should name the gpf path", err.Error())
	}
	requireNotExist(t, res.BackupPath)
}

func TestRun_CorruptCount(t *testing.T) {
	body := "GROUND POINT FILE\ntwo\n"
	p := newProject(t, body)
	p.writeCtrl(t, "siteB.txt", ctrlB)

	res, err := p.updater().Run([]string{"siteB.txt"})
	if !errors.Is(err, importerr.ErrCorruptFile) {
		t.Fatalf("err=%v want ErrCorruptFile", err)
	}
	if got := readFile(t, p.gpf); got != body {
		t.Fatalf("live gpf was modified")
	}
	if backup := readFile(t, res.BackupPath); backup != body {
		t.Fatalf("backup differs from pre-run gpf")
	}
	requireNotExist(t, res.TempPath)
}

func TestRun_EmptyFileListTouchesNothing(t *testing.T) {
	p := newProject(t, baseGPF)

	res, err := p.updater().Run(nil)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !res.Unchanged || res.OriginalCount != 2 || res.FinalCount != 2 {
		t.Fatalf("res=%+v", res)
	}
	if got := readFile(t, p.gpf); got != baseGPF {
		t.Fatalf("live gpf was modified")
	}
	requireNotExist(t, res.BackupPath)
	requireNotExist(t, res.TempPath)
}

func TestRun_FileWithoutMarkersKeepsCount(t *testing.T) {
	p := newProject(t, baseGPF)
	p.writeCtrl(t, "empty.txt", "no control points in this run\n")

	res, err := p.updater().Run([]string{"empty.txt"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if res.FinalCount != 2 || res.Appended != 0 {
		t.Fatalf("counts=%d/%d want 2/0", res.FinalCount, res.Appended)
	}
	if got := readFile(t, p.gpf); got != baseGPF {
		t.Fatalf("gpf=%q want unchanged content", got)
	}
}

func TestRun_BestEffortReportsSkipped(t *testing.T) {
	p := newProject(t, baseGPF)
	p.writeCtrl(t, "mixed.txt", "Control Point: 1\nLon: x:1:2 Lat: 2:0:0 Elev: 3\n"+ctrlB)

	u := p.updater()
	u.Options.BestEffort = true
	res, err := u.Run([]string{"mixed.txt"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Line != 2 {
		t.Fatalf("skipped=%+v", res.Skipped)
	}
	if !errors.Is(res.Skipped[0].Err, importerr.ErrFormat) {
		t.Fatalf("skip err=%v want ErrFormat", res.Skipped[0].Err)
	}
	if res.FinalCount != 3 {
		t.Fatalf("final=%d want 3", res.FinalCount)
	}
	if ids := pointIDs(t, readFile(t, p.gpf)); !reflect.DeepEqual(ids, []string{"2_mixed"}) {
		t.Fatalf("ids=%v", ids)
	}
}

func TestRun_UseBoxAndNoTrailingNewline(t *testing.T) {
	p := newProject(t, "TITLE\r\n0")
	p.writeCtrl(t, "c.txt", ctrlB)

	u := p.updater()
	u.Options.UseBox = true
	if _, err := u.Run([]string{"c.txt"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	got := readFile(t, p.gpf)
	if !strings.HasPrefix(got, "TITLE\r\n1\r\n0_c 1 3\n") {
		t.Fatalf("gpf=%q", got)
	}
}

func TestRun_CRLFBodyWithoutTrailingNewline(t *testing.T) {
	body := "TITLE\r\n1\r\n0_tie 0 0\r\n0.1 0.2 3.0\r\n20 20 1\r\n0 0 0"
	p := newProject(t, body)
	p.writeCtrl(t, "c.txt", ctrlB)

	if _, err := p.updater().Run([]string{"c.txt"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	got := readFile(t, p.gpf)
	want := "TITLE\r\n2\r\n0_tie 0 0\r\n0.1 0.2 3.0\r\n20 20 1\r\n0 0 0\r\n1_c 0 3\n"
	if !strings.HasPrefix(got, want) {
		t.Fatalf("gpf=%q want prefix %q", got, want)
	}
}

func TestRun_PreservesMode(t *testing.T) {
	p := newProject(t, baseGPF)
	if err := os.Chmod(p.gpf, 0o600); err != nil {
		t.Fatalf("Chmod() error: %v", err)
	}
	p.writeCtrl(t, "c.txt", ctrlB)
	if _, err := p.updater().Run([]string{"c.txt"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	fi, err := os.Stat(p.gpf)
	if err != nil {
		t.Fatalf("Stat() error: %v", err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%v want 0600", fi.Mode().Perm())
	}
}

func TestSiblingPath(t *testing.T) {
	if got := SiblingPath(filepath.Join("a", "p.gpf"), "_backup"); got != filepath.Join("a", "p_backup.gpf") {
		t.Fatalf("got %s", got)
	}
	if got := SiblingPath("noext", "_temp"); got != "noext_temp" {
		t.Fatalf("got %s", got)
	}
}

func TestRun_AppendedBytesMatchWriteEntry(t *testing.T) {
	p := newProject(t, baseGPF)
	path := p.writeCtrl(t, "siteA.txt", ctrlA)

	recs, _, _, err := ctrlpoint.ExtractAll(path, 2, ctrlpoint.Options{})
	if err != nil {
		t.Fatalf("ExtractAll() error: %v", err)
	}
	var want bytes.Buffer
	for _, r := range recs {
		if err := WriteEntry(&want, r, DefaultLayout()); err != nil {
			t.Fatalf("WriteEntry() error: %v", err)
		}
	}

	if _, err := p.updater().Run([]string{"siteA.txt"}); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	got := readFile(t, p.gpf)
	if !strings.HasSuffix(got, want.String()) {
		t.Fatalf("appended entries differ from WriteEntry output")
	}
}
