package main

import (
	"fmt"
	"io"
	"os"
)

const stdinName = "<stdin>"

// readInput reads a template. "-" or no argument reads stdin.
func (a *app) readInput(args []string) (name, text string, err error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(a.stdin)
		if err != nil {
			return "", "", &CLIError{Type: "input", Message: "cannot read stdin", Details: err.Error()}
		}
		return stdinName, string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", &CLIError{
			Type:    "input",
			Message: fmt.Sprintf("cannot read %s", args[0]),
			Details: err.Error(),
			Hint:    `pass "-" to read the template from stdin`,
		}
	}
	return args[0], string(data), nil
}

// openInput opens a binary input for reading; the caller closes it.
func (a *app) openInput(args []string) (io.Reader, func() error, error) {
	if len(args) == 0 || args[0] == "-" {
		return a.stdin, func() error { return nil }, nil
	}
	f, err := os.Open(args[0])
	if err != nil {
		return nil, nil, &CLIError{Type: "input", Message: fmt.Sprintf("cannot open %s", args[0]), Details: err.Error()}
	}
	return f, f.Close, nil
}
