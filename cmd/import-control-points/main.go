package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gpfimport/internal/config"
	"gpfimport/internal/ctrlpoint"
	"gpfimport/internal/gpf"
	"gpfimport/internal/importerr"
	"gpfimport/internal/logging"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

const usageText = `Usage: import-control-points [options] projectName ctrlPointFile [ctrlPointFiles...]
       import-control-points -a [options] projectName 'dir|file1|file2|...'

Appends the control points found after "Control Point:" lines to
<dataDir>/<projectName>/<projectName>.gpf. The GPF is copied to
<projectName>_backup.gpf first and replaced only once every file was read.
Do not run two imports against the same project at once.

Options:
`

type options struct {
	dataDir    string
	configPath string
	verbose    bool
	pipeMode   bool
	useBox     bool
	bestEffort bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("import-control-points", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.dataDir, "d", "", "SOCET SET data directory holding the project folders")
	fs.StringVar(&opts.dataDir, "directory", "", "same as -d")
	fs.StringVar(&opts.configPath, "config", "", "Path to YAML config")
	fs.BoolVar(&opts.verbose, "v", false, "verbose messages")
	fs.BoolVar(&opts.pipeMode, "a", false, "file argument is a pipe-delimited 'dir|file1|file2' list")
	fs.BoolVar(&opts.useBox, "use", false, "check the Use box of imported points")
	fs.BoolVar(&opts.bestEffort, "best-effort", false, "skip malformed control points instead of aborting")
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageText)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	rest := fs.Args()
	if len(rest) == 0 {
		fmt.Fprintln(stderr, "missing projectName")
		fs.Usage()
		return exitUsage
	}
	if opts.pipeMode && len(rest) != 2 {
		fmt.Fprintln(stderr, "-a expects exactly one 'dir|file1|file2|...' argument after projectName")
		return exitUsage
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(stderr, renderFailure(err))
		return exitUsage
	}
	logger := logging.New(stderr, logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	project := rest[0]
	projectDir, err := projectDirectory(cfg.DataDir, project)
	if err != nil {
		fmt.Fprintln(stderr, renderFailure(err))
		return exitFail
	}
	logger.Debug("project located", "project", project, "dir", projectDir)

	var files []string
	resolver := ctrlpoint.Resolver{}
	if opts.pipeMode {
		var pipeDir string
		pipeDir, files = ctrlpoint.ParsePipeList(rest[1])
		resolver.Dirs = []string{pipeDir, projectDir}
	} else {
		files = rest[1:]
	}

	u := &gpf.Updater{
		ProjectDir: projectDir,
		Project:    project,
		Resolve:    resolver.Resolve,
		Options:    ctrlpoint.Options{UseBox: cfg.UseBox, BestEffort: cfg.BestEffort},
		Layout:     cfg.Layout(),
		Logger:     logger,
	}
	res, err := u.Run(files)
	if err != nil {
		fmt.Fprintln(stderr, renderFailure(err))
		if res.State == gpf.StateAborted && fileExists(res.BackupPath) {
			fmt.Fprintf(stderr, "backup of the original GPF: %s\n", res.BackupPath)
		}
		return exitFail
	}
	fmt.Fprintln(stdout, renderSummary(res))
	return exitOK
}

func loadConfig(opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("config load failed: %w", err)
		}
	}
	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.useBox {
		cfg.UseBox = true
	}
	if opts.bestEffort {
		cfg.BestEffort = true
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// projectDirectory checks the data directory and returns the absolute
// project folder inside it.
func projectDirectory(dataDir, project string) (string, error) {
	if strings.TrimSpace(project) == "" {
		return "", importerr.NotFound("locate project", project, errors.New("empty project name"))
	}
	if _, err := os.Lstat(dataDir); err != nil {
		return "", importerr.NotFound("locate data directory", dataDir, err)
	}
	dir, err := filepath.Abs(filepath.Join(dataDir, project))
	if err != nil {
		return "", importerr.NotFound("locate project", project, err)
	}
	if _, err := os.Lstat(dir); err != nil {
		return "", importerr.NotFound("locate project", dir, err)
	}
	return dir, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
