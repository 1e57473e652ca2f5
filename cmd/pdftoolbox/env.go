package main

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Lllllllleong/pdftoolbox/internal/raster"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout     io.Writer
	Stderr     io.Writer
	Rasterizer raster.Rasterizer
	// Interactive is true when progress can be redrawn in place on Stderr.
	Interactive bool
	Getenv      func(string) string
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		Rasterizer:  raster.NewFitz(),
		Interactive: term.IsTerminal(int(os.Stderr.Fd())),
		Getenv:      os.Getenv,
	}
}
