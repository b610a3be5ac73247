package main

import (
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/dd0wney/jmri-panelmerge/pkg/config"
	"github.com/dd0wney/jmri-panelmerge/pkg/logging"
	"github.com/dd0wney/jmri-panelmerge/pkg/pipeline"
)

const usage = "Usage: jmri-merge jmri-infile.xml jmri-outfile.xml [notable]"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// parseArgs splits <in> <out> [notable]. ok is false for any other shape.
func parseArgs(args []string) (in, out string, notable, ok bool) {
	switch {
	case len(args) == 2:
		return args[0], args[1], false, true
	case len(args) == 3 && args[2] == "notable":
		return args[0], args[1], true, true
	}
	return "", "", false, false
}

// run executes one merge and returns the process exit code.
func run(args []string, stderr io.Writer) int {
	in, out, notable, ok := parseArgs(args)
	if !ok {
		fmt.Fprintln(stderr, usage)
		return 1
	}
	if err := merge(in, out, notable, stderr); err != nil {
		fmt.Fprintf(stderr, "fatal: %v\n", err)
		return 1
	}
	return 0
}

func merge(in, out string, notable bool, stderr io.Writer) error {
	boot := logging.New(logging.FormatText, stderr, logging.InfoLevel)
	cfg, path, err := config.Load(".", boot)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := cfg.Logger(stderr).With(logging.Component("jmri-merge"))
	if path != "" {
		log.Info("using run file", logging.Path(path), logging.RunID(runID))
	}

	res, err := pipeline.Run(pipeline.Options{
		Input:   in,
		Output:  out,
		Notable: notable,
		Config:  cfg,
		Log:     log,
		RunID:   runID,
	})
	if err != nil {
		return err
	}
	return res.Summary.Write(stderr)
}
