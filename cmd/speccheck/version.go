package main

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set at build time via -ldflags. Release builds pass all three; anything
// missing is filled in from the binary's embedded build info.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildMetadata describes the binary for the version command and the
// root command's --version flag.
type buildMetadata struct {
	Version    string
	Commit     string
	Date       string
	GoVersion  string
	ModulePath string
}

// resolveBuildMetadata merges the ldflags values with debug.ReadBuildInfo.
// A module-aware `go install` stamps Main.Version and the vcs settings, so
// even unflagged builds report something usable.
func resolveBuildMetadata() buildMetadata {
	m := buildMetadata{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		m.GoVersion = info.GoVersion
		m.ModulePath = info.Main.Path
		if m.Version == "" {
			m.Version = info.Main.Version
		}
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if m.Commit == "" {
					m.Commit = shortCommit(s.Value)
				}
			case "vcs.time":
				if m.Date == "" {
					m.Date = s.Value
				}
			}
		}
	}

	if m.Version == "" {
		m.Version = "(devel)"
	}
	if m.Commit == "" {
		m.Commit = "unknown"
	}
	if m.Date == "" {
		m.Date = "unknown"
	}
	return m
}

func shortCommit(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}
	return rev
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, build date, and toolchain of speccheck.`,
		Run: func(cmd *cobra.Command, _ []string) {
			m := resolveBuildMetadata()
			fmt.Fprintf(cmd.OutOrStdout(), "speccheck version %s\n", m.Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", m.Commit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", m.Date)
			if m.GoVersion != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  go:     %s\n", m.GoVersion)
			}
			if m.ModulePath != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  module: %s\n", m.ModulePath)
			}
		},
	}
}
