// Package main provides the entry point for the speccheck CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for speccheck.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "speccheck",
		Short: "Crawl web specifications and study them for cross-reference inconsistencies",
		Long: `Speccheck crawls a corpus of web specifications, extracts the structured
facts that connect them (links, normative references, term definitions,
Web IDL), and studies the whole corpus for inconsistencies: broken anchors,
missing bibliography entries, duplicated IDL definitions, citations of
outdated levels, and more.

A typical workflow crawls a spec list into a crawl file, then studies it:

  speccheck crawl specs.yaml --out .
  speccheck study crawl.json --markdown`,
		Version:       resolveBuildMetadata().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewStudyCmd())
	cmd.AddCommand(NewMergeCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// exitError carries a process exit code through cobra's error return.
// Input and argument problems map to distinct codes so scripted callers
// can tell a bad invocation from a failed crawl.
type exitError struct {
	code int
	err  error
}

// Error implements the error interface.
func (e *exitError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error.
func (e *exitError) Unwrap() error {
	return e.err
}

// Exit codes for scripted callers.
const (
	exitCodeUsage      = 2  // missing or invalid arguments
	exitCodeInput      = 3  // input file could not be read or parsed
	exitCodeCrawlFatal = 64 // crawl failed before producing any result
)

// usageError wraps err with the usage exit code.
func usageError(err error) error {
	return &exitError{code: exitCodeUsage, err: err}
}

// inputError wraps err with the input exit code.
func inputError(err error) error {
	return &exitError{code: exitCodeInput, err: err}
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		os.Exit(1)
	}
}
