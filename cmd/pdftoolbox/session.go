package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/Lllllllleong/pdftoolbox/internal/app"
	"github.com/Lllllllleong/pdftoolbox/internal/config"
	"github.com/Lllllllleong/pdftoolbox/internal/fileio"
	"github.com/Lllllllleong/pdftoolbox/internal/models"
	"github.com/Lllllllleong/pdftoolbox/internal/task"
)

// Sentinel errors for file access.
var (
	ErrReadInput   = errors.New("failed to read input file")
	ErrWriteOutput = errors.New("failed to write output file")
)

// session is the state of one command invocation.
type session struct {
	env    *Environment
	flags  *commonFlags
	cfg    *config.Config
	log    *slog.Logger
	runner *task.Runner
}

func newSession(env *Environment, flags *commonFlags) (*session, error) {
	level := slog.LevelInfo
	switch {
	case flags.verbose:
		level = slog.LevelDebug
	case flags.quiet:
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	path := flags.config
	if path == "" && env.Getenv != nil {
		path = env.Getenv(config.EnvPath)
	}
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		logger.Debug("Config loaded.", "path", path)
	}

	return &session{
		env:    env,
		flags:  flags,
		cfg:    cfg,
		log:    logger,
		runner: task.NewRunner(env.Rasterizer),
	}, nil
}

// readInputs loads every path into memory.
func readInputs(paths []string) ([]models.File, error) {
	files := make([]models.File, 0, len(paths))
	for _, p := range paths {
		data, err := fileio.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrReadInput, err)
		}
		files = append(files, models.File{Name: filepath.Base(p), Data: data})
	}
	return files, nil
}

// execute runs p through an app.Controller, drawing progress when attached
// to a terminal.
func (s *session) execute(ctx context.Context, files []models.File, p task.Params) (*task.Outcome, error) {
	bar := newProgressLine(s.env.Stderr, p.Kind().String(), s.env.Interactive && !s.flags.quiet)
	c := app.NewController(s.runner, bar.update)
	if err := c.Select(p.Kind(), files); err != nil {
		return nil, err
	}
	out, err := c.Execute(ctx, p)
	bar.clear()
	if err != nil {
		return nil, err
	}
	for _, w := range out.Warnings {
		s.log.Warn(w)
	}
	return out, nil
}

func (s *session) outputDir() string {
	switch {
	case s.flags.output != "":
		return s.flags.output
	case s.cfg.Output.Dir != "":
		return s.cfg.Output.Dir
	default:
		return "."
	}
}

// write stores files in the output directory and lists their paths on Stdout.
func (s *session) write(files []models.File) error {
	names := make([]string, len(files))
	data := make([][]byte, len(files))
	for i, f := range files {
		names[i] = f.Name
		data[i] = f.Data
	}
	paths, err := fileio.WriteOutputs(s.outputDir(), names, data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrWriteOutput, err)
	}
	if !s.flags.quiet {
		for i, p := range paths {
			fmt.Fprintf(s.env.Stdout, "%s (%s)\n", p, fileio.FormatSize(int64(len(data[i]))))
		}
	}
	return nil
}

// progressLine redraws "<label> NN%" in place.
type progressLine struct {
	w       io.Writer
	label   string
	enabled bool
	last    int
}

func newProgressLine(w io.Writer, label string, enabled bool) *progressLine {
	return &progressLine{w: w, label: label, enabled: enabled, last: -1}
}

func (p *progressLine) update(s app.State) {
	if !p.enabled || !s.Processing || s.Progress == p.last {
		return
	}
	p.last = s.Progress
	fmt.Fprintf(p.w, "\r%s %3d%%", p.label, s.Progress)
}

func (p *progressLine) clear() {
	if p.enabled && p.last >= 0 {
		fmt.Fprint(p.w, "\r\x1b[K")
	}
}
