// Package vp wraps the VOICEPEAK command line executable: locating the
// binary, building argument lists from option values, launching the
// process and forwarding its line-oriented output.
package vp

import (
	"path/filepath"
	"runtime"
)

// Executable identifies the synthesizer binary to invoke. The zero-argument
// constructor resolves the platform default name through PATH; use
// NewExecutablePath to point at a specific installation.
type Executable struct {
	path string
}

// NewExecutable returns an Executable using the platform default binary name.
func NewExecutable() *Executable {
	return &Executable{path: defaultExecutableName()}
}

// NewExecutablePath returns an Executable for an explicit binary location.
func NewExecutablePath(path string) (*Executable, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	return &Executable{path: abs}, nil
}

// Path returns the resolved executable path or name.
func (e *Executable) Path() string {
	return e.path
}

// Fill appends the executable to an argument list under construction.
func (e *Executable) Fill(argv []string) []string {
	return append(argv, e.path)
}

func defaultExecutableName() string {
	if runtime.GOOS == "windows" {
		return "voicepeak.exe"
	}
	return "voicepeak"
}
