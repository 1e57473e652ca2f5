package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	flag "github.com/spf13/pflag"

	"github.com/Lllllllleong/pdftoolbox/internal/models"
)

// command is one subcommand.
type command struct {
	summary string
	usage   string
	run     func(ctx context.Context, env *Environment, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"compress":      {"Make a PDF smaller", "compress [flags] FILE.pdf", runCompress},
		"merge":         {"Combine PDFs in order", "merge [flags] FILE.pdf FILE.pdf...", runMerge},
		"split":         {"Split a PDF by ranges, a page set, or every page", "split [flags] FILE.pdf", runSplit},
		"images-to-pdf": {"Turn images into one PDF", "images-to-pdf [flags] IMAGE...", runImagesToPDF},
		"pdf-to-images": {"Render PDF pages as JPEG or PNG", "pdf-to-images [flags] FILE.pdf", runPDFToImages},
		"watermark":     {"Stamp text or an image on pages", "watermark [flags] FILE.pdf", runWatermark},
		"sign":          {"Place signature images on pages", "sign [flags] FILE.pdf", runSign},
		"inspect":       {"Show page count, encryption and a preview", "inspect [flags] FILE.pdf", runInspect},
	}
}

// run executes the subcommand named by args[0] and returns the exit code.
func run(ctx context.Context, args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stderr)
		return ExitUsage
	}
	switch args[0] {
	case "help", "-h", "--help":
		printUsage(env.Stdout)
		return ExitSuccess
	case "version", "--version":
		fmt.Fprintf(env.Stdout, "pdftoolbox %s\n", Version)
		return ExitSuccess
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(env.Stderr, "unknown command %q\n\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}

	err := cmd.run(ctx, env, args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return ExitSuccess
	}
	if err != nil {
		reportError(env.Stderr, err)
	}
	return exitCodeFor(err)
}

func reportError(w io.Writer, err error) {
	switch {
	case errors.Is(err, ErrUsage), errors.Is(err, ErrReadInput), errors.Is(err, ErrWriteOutput):
		fmt.Fprintf(w, "error: %v\n", err)
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "cancelled")
	default:
		fmt.Fprintf(w, "error: %s\n", models.UserMessage(err))
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: pdftoolbox COMMAND [flags] FILES...")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-14s %s\n", name, commands[name].summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'pdftoolbox COMMAND --help' for the flags of a command.")
}

// newFlagSet returns a FlagSet printing its usage to env.Stderr.
func newFlagSet(env *Environment, name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	fs.Usage = func() {
		fmt.Fprintf(env.Stderr, "Usage: pdftoolbox %s\n\n", commands[name].usage)
		fs.PrintDefaults()
	}
	return fs
}
